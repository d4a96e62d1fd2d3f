// Package branch manages the named lines of work inside a project. A branch's
// name is its natural key within the project and is stored lower-cased.
package branch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Branch is one line of work inside a project.
type Branch struct {
	Name        string    `json:"name"`
	ProjectID   string    `json:"projectId"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// WithOwner is a branch joined upward to its project's owner, so one read is
// enough to authorize the principal.
type WithOwner struct {
	Branch
	OwnerID string `json:"-"`
}

// ErrNotFound is returned when a branch does not exist.
var ErrNotFound = errors.New("branch not found")

// ErrDuplicateName is returned when the project already has a branch with the
// same name.
var ErrDuplicateName = errors.New("duplicate branch name")

// Repository handles all branch database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new branch. The caller has already loaded and authorized
// the parent project.
func (r *Repository) Create(ctx context.Context, projectID, name string, description *string) (*Branch, error) {
	b := &Branch{}
	err := r.db.QueryRow(ctx,
		`INSERT INTO branches (project_id, name, description)
		 VALUES ($1, $2, $3)
		 RETURNING name, project_id, description, created_at, updated_at`,
		projectID, name, description,
	).Scan(&b.Name, &b.ProjectID, &b.Description, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("create branch: %w", err)
	}
	return b, nil
}

// Get fetches a branch by its natural key, joined upward for the owner.
func (r *Repository) Get(ctx context.Context, projectID, name string) (*WithOwner, error) {
	b := &WithOwner{}
	err := r.db.QueryRow(ctx,
		`SELECT b.name, b.project_id, b.description, b.created_at, b.updated_at, p.owner_id
		 FROM branches b
		 JOIN projects p ON p.id = b.project_id
		 WHERE b.project_id = $1 AND b.name = $2`,
		projectID, name,
	).Scan(&b.Name, &b.ProjectID, &b.Description, &b.CreatedAt, &b.UpdatedAt, &b.OwnerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get branch: %w", err)
	}
	return b, nil
}

// VersionNames lists the names of the branch's versions. Deletion uses these
// to derive the storage prefixes that need cleanup after the row cascade.
func (r *Repository) VersionNames(ctx context.Context, projectID, branchName string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT name FROM versions WHERE project_id = $1 AND branch_name = $2`,
		projectID, branchName)
	if err != nil {
		return nil, fmt.Errorf("list version names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan version name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// UpdatePatch carries the fields a branch update may change; nil fields are
// left untouched. Renames ripple to versions and previews through the
// ON UPDATE CASCADE foreign keys.
type UpdatePatch struct {
	Name        *string
	Description *string
}

// Update applies a partial patch to the branch row and refreshes updated_at.
func (r *Repository) Update(ctx context.Context, projectID, name string, patch UpdatePatch) (*Branch, error) {
	b := &Branch{}
	err := r.db.QueryRow(ctx,
		`UPDATE branches
		 SET name = COALESCE($3, name),
		     description = COALESCE($4, description),
		     updated_at = now()
		 WHERE project_id = $1 AND name = $2
		 RETURNING name, project_id, description, created_at, updated_at`,
		projectID, name, patch.Name, patch.Description,
	).Scan(&b.Name, &b.ProjectID, &b.Description, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("update branch: %w", err)
	}
	return b, nil
}

// Delete removes the branch row. Versions and previews go with it through the
// relational cascade; blob cleanup is the service's concern.
func (r *Repository) Delete(ctx context.Context, projectID, name string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM branches WHERE project_id = $1 AND name = $2`,
		projectID, name)
	if err != nil {
		return fmt.Errorf("delete branch: %w", err)
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
