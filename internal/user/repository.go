// Package user manages user accounts and their persistence.
package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// User represents a registered account. The password hash never leaves the
// service layer.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	AccountType  string    `json:"accountType"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Onboarding reports which first steps the user has completed.
type Onboarding struct {
	Project bool `json:"project"`
	Branch  bool `json:"branch"`
	Version bool `json:"version"`
}

// ErrNotFound is returned when a user does not exist.
var ErrNotFound = errors.New("user not found")

// ErrAlreadyExists is returned when an email is already registered.
var ErrAlreadyExists = errors.New("user already exists")

// Repository handles all user database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, email, name, account_type, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.AccountType, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new user and returns the created record.
func (r *Repository) Create(ctx context.Context, email, name, passwordHash, accountType string) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`INSERT INTO users (email, name, password_hash, account_type)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+userColumns,
		email, name, passwordHash, accountType,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetByID fetches a user by their UUID.
func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// GetByEmail fetches a user by their email address.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// UpdatePatch carries the fields a profile update may change; nil fields are
// left untouched.
type UpdatePatch struct {
	Email        *string
	Name         *string
	PasswordHash *string
}

// Update applies a partial patch to the user row and refreshes updated_at.
func (r *Repository) Update(ctx context.Context, id string, patch UpdatePatch) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`UPDATE users
		 SET email = COALESCE($2, email),
		     name = COALESCE($3, name),
		     password_hash = COALESCE($4, password_hash),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, patch.Email, patch.Name, patch.PasswordHash,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// Delete removes the user row. Owned projects, branches, versions, and
// previews go with it through the relational cascade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// OwnedProjectIDs lists the IDs of every project the user owns. The caller
// uses these to clean up storage prefixes after the row cascade.
func (r *Repository) OwnedProjectIDs(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM projects WHERE owner_id = $1`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list owned projects: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// OnboardingStatus reports whether the user has created a project, a branch
// beyond the default one, and a version.
func (r *Repository) OnboardingStatus(ctx context.Context, ownerID string) (*Onboarding, error) {
	o := &Onboarding{}
	err := r.db.QueryRow(ctx,
		`SELECT
		   EXISTS (SELECT 1 FROM projects WHERE owner_id = $1),
		   EXISTS (SELECT 1 FROM branches b
		           JOIN projects p ON p.id = b.project_id
		           WHERE p.owner_id = $1 AND b.name <> 'original'),
		   EXISTS (SELECT 1 FROM versions v
		           JOIN projects p ON p.id = v.project_id
		           WHERE p.owner_id = $1)`,
		ownerID,
	).Scan(&o.Project, &o.Branch, &o.Version)
	if err != nil {
		return nil, fmt.Errorf("onboarding status: %w", err)
	}
	return o, nil
}

// isUniqueViolation checks whether an error is a PostgreSQL unique_violation (code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
