// Package project manages the top-level asset containers and their cover art.
package project

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultBranchName is the branch auto-created with every new project.
const DefaultBranchName = "original"

// Project is the top-level asset container. Project names keep their original
// casing; uniqueness per owner is still case-insensitive.
type Project struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	Name         string    `json:"name"`
	Genre        string    `json:"genre"`
	Tags         []string  `json:"tags"`
	Description  *string   `json:"description,omitempty"`
	CoverArtPath *string   `json:"coverArtStoragePath,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// BranchSummary is the branch listing embedded in a single-project read.
type BranchSummary struct {
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ErrNotFound is returned when a project does not exist.
var ErrNotFound = errors.New("project not found")

// ErrDuplicateName is returned when the owner already has a project with the
// same case-insensitive name.
var ErrDuplicateName = errors.New("duplicate project name")

// Repository handles all project database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const projectColumns = `id, owner_id, name, genre, tags, description, cover_art_path, created_at, updated_at`

func scanProject(row pgx.Row) (*Project, error) {
	p := &Project{}
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Genre, &p.Tags, &p.Description, &p.CoverArtPath, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CreateFields carries the insertable fields of a new project.
type CreateFields struct {
	Name        string
	Genre       string
	Tags        []string
	Description *string
}

// Create inserts the project and its default branch in one transaction, so a
// project can never exist without its "original" branch.
func (r *Repository) Create(ctx context.Context, ownerID string, fields CreateFields) (*Project, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create project: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := scanProject(tx.QueryRow(ctx,
		`INSERT INTO projects (owner_id, name, genre, tags, description)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+projectColumns,
		ownerID, fields.Name, fields.Genre, fields.Tags, fields.Description,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("insert project: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO branches (project_id, name) VALUES ($1, $2)`,
		p.ID, DefaultBranchName,
	); err != nil {
		return nil, fmt.Errorf("insert default branch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create project: %w", err)
	}
	return p, nil
}

// GetByID fetches a project by its UUID.
func (r *Repository) GetByID(ctx context.Context, id string) (*Project, error) {
	p, err := scanProject(r.db.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project by id: %w", err)
	}
	return p, nil
}

// ListByOwner fetches every project owned by ownerID, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]*Project, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ListBranches fetches the branches of a project, default branch first.
func (r *Repository) ListBranches(ctx context.Context, projectID string) ([]BranchSummary, error) {
	rows, err := r.db.Query(ctx,
		`SELECT name, description, created_at, updated_at
		 FROM branches WHERE project_id = $1
		 ORDER BY created_at ASC`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer rows.Close()

	var branches []BranchSummary
	for rows.Next() {
		var b BranchSummary
		if err := rows.Scan(&b.Name, &b.Description, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}

// CountByName counts the owner's non-deleted projects matching name
// case-insensitively, excluding excludeID (pass "" to exclude nothing).
// This backs the friendly duplicate-name message; the unique index is the
// actual guarantee.
func (r *Repository) CountByName(ctx context.Context, ownerID, name, excludeID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM projects
		 WHERE owner_id = $1 AND lower(name) = lower($2) AND id::text <> $3`,
		ownerID, name, excludeID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count projects by name: %w", err)
	}
	return count, nil
}

// UpdatePatch carries the fields a project update may change; nil fields are
// left untouched.
type UpdatePatch struct {
	Name        *string
	Genre       *string
	Tags        *[]string
	Description *string
}

// Update applies a partial patch and refreshes updated_at.
func (r *Repository) Update(ctx context.Context, id string, patch UpdatePatch) (*Project, error) {
	p, err := scanProject(r.db.QueryRow(ctx,
		`UPDATE projects
		 SET name = COALESCE($2, name),
		     genre = COALESCE($3, genre),
		     tags = COALESCE($4::text[], tags),
		     description = COALESCE($5, description),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+projectColumns,
		id, patch.Name, patch.Genre, patch.Tags, patch.Description,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("update project: %w", err)
	}
	return p, nil
}

// SetCoverArtPath records where the project's cover art lives in storage.
func (r *Repository) SetCoverArtPath(ctx context.Context, id, path string) (*Project, error) {
	p, err := scanProject(r.db.QueryRow(ctx,
		`UPDATE projects SET cover_art_path = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+projectColumns,
		id, path,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set cover art path: %w", err)
	}
	return p, nil
}

// Delete removes the project row. Branches, versions, and previews go with it
// through the relational cascade; blob cleanup is the service's concern.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
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
