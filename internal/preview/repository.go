// Package preview manages the lightweight rendered artifacts attached to
// versions.
package preview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Preview is one rendered artifact of a version. A version may have many.
type Preview struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	FilePath    *string   `json:"fileStoragePath,omitempty"`
	ProjectID   string    `json:"projectId"`
	BranchName  string    `json:"branchName"`
	VersionName string    `json:"versionName"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// WithOwner is a preview joined upward through version and branch to the
// project's owner, so one read is enough to authorize the principal.
type WithOwner struct {
	Preview
	OwnerID string `json:"-"`
}

// ErrNotFound is returned when a preview does not exist.
var ErrNotFound = errors.New("preview not found")

// Repository handles all preview database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const previewColumns = `id, title, file_path, project_id, branch_name, version_name, created_at, updated_at`

func scanPreview(row pgx.Row) (*Preview, error) {
	p := &Preview{}
	err := row.Scan(&p.ID, &p.Title, &p.FilePath, &p.ProjectID, &p.BranchName, &p.VersionName, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new preview tied to a version's composite natural key.
// The caller has already loaded and authorized the parent version.
func (r *Repository) Create(ctx context.Context, projectID, branchName, versionName, title string) (*Preview, error) {
	p, err := scanPreview(r.db.QueryRow(ctx,
		`INSERT INTO previews (project_id, branch_name, version_name, title)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+previewColumns,
		projectID, branchName, versionName, title,
	))
	if err != nil {
		return nil, fmt.Errorf("create preview: %w", err)
	}
	return p, nil
}

// GetByID fetches a preview, joined upward for the owner.
func (r *Repository) GetByID(ctx context.Context, id string) (*WithOwner, error) {
	p := &WithOwner{}
	err := r.db.QueryRow(ctx,
		`SELECT pv.id, pv.title, pv.file_path, pv.project_id, pv.branch_name, pv.version_name,
		        pv.created_at, pv.updated_at, pr.owner_id
		 FROM previews pv
		 JOIN versions v ON v.project_id = pv.project_id
		                AND v.branch_name = pv.branch_name
		                AND v.name = pv.version_name
		 JOIN branches b ON b.project_id = v.project_id AND b.name = v.branch_name
		 JOIN projects pr ON pr.id = b.project_id
		 WHERE pv.id = $1`,
		id,
	).Scan(&p.ID, &p.Title, &p.FilePath, &p.ProjectID, &p.BranchName, &p.VersionName,
		&p.CreatedAt, &p.UpdatedAt, &p.OwnerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get preview: %w", err)
	}
	return p, nil
}

// ListByVersion fetches every preview of a version, oldest first.
func (r *Repository) ListByVersion(ctx context.Context, projectID, branchName, versionName string) ([]*Preview, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+previewColumns+`
		 FROM previews
		 WHERE project_id = $1 AND branch_name = $2 AND version_name = $3
		 ORDER BY created_at ASC`,
		projectID, branchName, versionName)
	if err != nil {
		return nil, fmt.Errorf("list previews: %w", err)
	}
	defer rows.Close()

	var previews []*Preview
	for rows.Next() {
		p, err := scanPreview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan preview: %w", err)
		}
		previews = append(previews, p)
	}
	return previews, rows.Err()
}

// SetFilePath records where the preview's media blob lives in storage.
func (r *Repository) SetFilePath(ctx context.Context, id, path string) (*Preview, error) {
	p, err := scanPreview(r.db.QueryRow(ctx,
		`UPDATE previews SET file_path = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+previewColumns,
		id, path,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set preview file path: %w", err)
	}
	return p, nil
}

// Delete removes the preview row only; the parent version is untouched.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM previews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete preview: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
