// Package version manages the immutable-once-uploaded snapshots inside a
// branch. Version names are stored lower-cased and are unique per branch.
package version

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Version is one named snapshot of a branch's project files.
type Version struct {
	Name        string    `json:"name"`
	ProjectID   string    `json:"projectId"`
	BranchName  string    `json:"branchName"`
	Tags        []string  `json:"tags"`
	Description *string   `json:"description,omitempty"`
	ArchivePath *string   `json:"projectFilesStoragePath,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// WithOwner is a version joined upward through its branch to the project's
// owner, so one read is enough to authorize the principal.
type WithOwner struct {
	Version
	OwnerID string `json:"-"`
}

// ErrNotFound is returned when a version does not exist.
var ErrNotFound = errors.New("version not found")

// ErrDuplicateName is returned when the branch already has a version with the
// same name.
var ErrDuplicateName = errors.New("duplicate version name")

// Repository handles all version database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const versionColumns = `name, project_id, branch_name, tags, description, archive_path, created_at, updated_at`

func scanVersion(row pgx.Row) (*Version, error) {
	v := &Version{}
	err := row.Scan(&v.Name, &v.ProjectID, &v.BranchName, &v.Tags, &v.Description, &v.ArchivePath, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// CreateFields carries the insertable fields of a new version. The archive
// path is attached via SetArchivePath once the blob is uploaded.
type CreateFields struct {
	Name        string
	Tags        []string
	Description *string
}

// Create inserts a new version. The caller has already loaded and authorized
// the parent branch.
func (r *Repository) Create(ctx context.Context, projectID, branchName string, fields CreateFields) (*Version, error) {
	v, err := scanVersion(r.db.QueryRow(ctx,
		`INSERT INTO versions (project_id, branch_name, name, tags, description)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+versionColumns,
		projectID, branchName, fields.Name, fields.Tags, fields.Description,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("create version: %w", err)
	}
	return v, nil
}

// Get fetches a version by its composite natural key, joined upward for the
// owner.
func (r *Repository) Get(ctx context.Context, projectID, branchName, name string) (*WithOwner, error) {
	v := &WithOwner{}
	err := r.db.QueryRow(ctx,
		`SELECT v.name, v.project_id, v.branch_name, v.tags, v.description, v.archive_path,
		        v.created_at, v.updated_at, p.owner_id
		 FROM versions v
		 JOIN projects p ON p.id = v.project_id
		 WHERE v.project_id = $1 AND v.branch_name = $2 AND v.name = $3`,
		projectID, branchName, name,
	).Scan(&v.Name, &v.ProjectID, &v.BranchName, &v.Tags, &v.Description, &v.ArchivePath,
		&v.CreatedAt, &v.UpdatedAt, &v.OwnerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}
	return v, nil
}

// List fetches every version of a branch, newest first.
func (r *Repository) List(ctx context.Context, projectID, branchName string) ([]*Version, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+versionColumns+`
		 FROM versions
		 WHERE project_id = $1 AND branch_name = $2
		 ORDER BY created_at DESC`,
		projectID, branchName)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []*Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// SetArchivePath records where the version's project-files archive lives in
// storage.
func (r *Repository) SetArchivePath(ctx context.Context, projectID, branchName, name, path string) (*Version, error) {
	v, err := scanVersion(r.db.QueryRow(ctx,
		`UPDATE versions SET archive_path = $4, updated_at = now()
		 WHERE project_id = $1 AND branch_name = $2 AND name = $3
		 RETURNING `+versionColumns,
		projectID, branchName, name, path,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set archive path: %w", err)
	}
	return v, nil
}

// Delete removes the version row. Previews go with it through the relational
// cascade; blob cleanup is the service's concern.
func (r *Repository) Delete(ctx context.Context, projectID, branchName, name string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM versions WHERE project_id = $1 AND branch_name = $2 AND name = $3`,
		projectID, branchName, name)
	if err != nil {
		return fmt.Errorf("delete version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation checks whether an error is a PostgreSQL unique_violation (code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
