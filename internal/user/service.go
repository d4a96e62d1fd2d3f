package user

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"

	"github.com/trackhouse/service/internal/apperr"
	"github.com/trackhouse/service/internal/objectkey"
	"github.com/trackhouse/service/internal/storage"
)

// repository is the slice of Repository the service needs; tests substitute
// an in-memory implementation.
type repository interface {
	Create(ctx context.Context, email, name, passwordHash, accountType string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, id string, patch UpdatePatch) (*User, error)
	Delete(ctx context.Context, id string) error
	OwnedProjectIDs(ctx context.Context, ownerID string) ([]string, error)
	OnboardingStatus(ctx context.Context, ownerID string) (*Onboarding, error)
}

// Service contains business logic for account management.
type Service struct {
	repo  repository
	store storage.Storage
}

// NewService creates a new user Service.
func NewService(repo repository, store storage.Storage) *Service {
	return &Service{repo: repo, store: store}
}

// Create registers a new account with an already-hashed password.
func (s *Service) Create(ctx context.Context, email, name, passwordHash, accountType string) (*User, error) {
	u, err := s.repo.Create(ctx, email, name, passwordHash, accountType)
	if errors.Is(err, ErrAlreadyExists) {
		return nil, apperr.Conflictf("an account with email %s already exists", email)
	}
	if err != nil {
		return nil, apperr.Unknownf(err, "could not create your account")
	}
	return u, nil
}

// GetByID returns a user by their UUID.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFoundf("user %s not found", id)
	}
	if err != nil {
		return nil, apperr.Unknownf(err, "could not load your account")
	}
	return u, nil
}

// GetByEmail returns a user by their email address.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFoundf("no account with email %s", email)
	}
	if err != nil {
		return nil, apperr.Unknownf(err, "could not load account")
	}
	return u, nil
}

// UpdateCommand carries a profile update. Password is the current password
// and must verify before any field changes; NewPassword is optional.
type UpdateCommand struct {
	Password    string
	Email       *string
	Name        *string
	NewPassword *string
}

// UpdateProfile applies a partial profile update for the principal.
func (s *Service) UpdateProfile(ctx context.Context, principalID string, cmd UpdateCommand) (*User, error) {
	current, err := s.GetByID(ctx, principalID)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(current.PasswordHash), []byte(cmd.Password)); err != nil {
		return nil, apperr.Authf("current password is incorrect")
	}

	patch := UpdatePatch{Email: cmd.Email, Name: cmd.Name}
	if cmd.NewPassword != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*cmd.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperr.Unknownf(err, "could not update your password")
		}
		hashed := string(hash)
		patch.PasswordHash = &hashed
	}

	updated, err := s.repo.Update(ctx, principalID, patch)
	if errors.Is(err, ErrAlreadyExists) {
		return nil, apperr.Conflictf("an account with that email already exists")
	}
	if err != nil {
		return nil, apperr.Unknownf(err, "could not update your profile")
	}
	return updated, nil
}

// DeleteAccount removes the principal's account. The row delete cascades to
// every owned project, branch, version, and preview; storage prefixes are
// cleaned afterwards, best-effort — orphaned blobs are left for reclamation
// rather than failing the deletion.
func (s *Service) DeleteAccount(ctx context.Context, principalID string) error {
	projectIDs, err := s.repo.OwnedProjectIDs(ctx, principalID)
	if err != nil {
		return apperr.Unknownf(err, "could not delete your account")
	}

	if err := s.repo.Delete(ctx, principalID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFoundf("user %s not found", principalID)
		}
		return apperr.Unknownf(err, "could not delete your account")
	}

	for _, projectID := range projectIDs {
		prefix := objectkey.ProjectPrefix(principalID, projectID)
		if err := s.store.DeletePrefix(ctx, prefix); err != nil {
			log.Printf("user: orphaned blobs under %s after account deletion: %v", prefix, err)
		}
	}
	return nil
}

// Onboarding returns the principal's onboarding status.
func (s *Service) Onboarding(ctx context.Context, principalID string) (*Onboarding, error) {
	o, err := s.repo.OnboardingStatus(ctx, principalID)
	if err != nil {
		return nil, apperr.Unknownf(fmt.Errorf("onboarding: %w", err), "could not load onboarding status")
	}
	return o, nil
}
