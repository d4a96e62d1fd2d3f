package branch

import (
	"context"
	"errors"
	"log"

	"github.com/trackhouse/service/internal/apperr"
	"github.com/trackhouse/service/internal/objectkey"
	"github.com/trackhouse/service/internal/ownership"
	"github.com/trackhouse/service/internal/project"
	"github.com/trackhouse/service/internal/storage"
)

// repository is the slice of Repository the service needs; tests substitute
// an in-memory implementation.
type repository interface {
	Create(ctx context.Context, projectID, name string, description *string) (*Branch, error)
	Get(ctx context.Context, projectID, name string) (*WithOwner, error)
	VersionNames(ctx context.Context, projectID, branchName string) ([]string, error)
	Update(ctx context.Context, projectID, name string, patch UpdatePatch) (*Branch, error)
	Delete(ctx context.Context, projectID, name string) error
}

// projects provides the parent lookup needed to authorize branch creation.
type projects interface {
	GetByID(ctx context.Context, id string) (*project.Project, error)
}

// Service composes the repository, the parent project lookup, and storage
// into the branch use cases.
type Service struct {
	repo     repository
	projects projects
	store    storage.Storage
}

// NewService creates a new branch Service.
func NewService(repo repository, projects projects, store storage.Storage) *Service {
	return &Service{repo: repo, projects: projects, store: store}
}

// CreateCommand carries a validated create-branch request.
type CreateCommand struct {
	Name        string
	Description *string
}

// Create adds a branch to the principal's project. The name is normalized
// before storage so URL segments and keys agree later.
func (s *Service) Create(ctx context.Context, principalID, projectID string, cmd CreateCommand) (*Branch, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if errors.Is(err, project.ErrNotFound) {
		return nil, apperr.NotFoundf("no project %s found", projectID)
	}
	if err != nil {
		return nil, apperr.Unknownf(err, "could not create branch")
	}
	if err := ownership.Authorize(principalID, p.OwnerID); err != nil {
		return nil, err
	}

	name := objectkey.NormalizeName(cmd.Name)
	b, err := s.repo.Create(ctx, projectID, name, cmd.Description)
	if errors.Is(err, ErrDuplicateName) {
		return nil, apperr.Conflictf("this project already has a branch called %s", name)
	}
	if err != nil {
		return nil, apperr.Unknownf(err, "could not create branch")
	}
	return b, nil
}

// load fetches the branch by its natural key (normalizing the raw URL
// segment) and authorizes the principal via the upward join.
func (s *Service) load(ctx context.Context, principalID, projectID, rawName string) (*WithOwner, error) {
	name := objectkey.NormalizeName(rawName)
	b, err := s.repo.Get(ctx, projectID, name)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFoundf("no branch %s found", name)
	}
	if err != nil {
		return nil, apperr.Unknownf(err, "could not load branch")
	}
	if err := ownership.Authorize(principalID, b.OwnerID); err != nil {
		return nil, err
	}
	return b, nil
}

// Get returns a single branch of the principal's project.
func (s *Service) Get(ctx context.Context, principalID, projectID, rawName string) (*Branch, error) {
	b, err := s.load(ctx, principalID, projectID, rawName)
	if err != nil {
		return nil, err
	}
	return &b.Branch, nil
}

// UpdateCommand carries a validated branch update. Nil fields stay untouched.
type UpdateCommand struct {
	Name        *string
	Description *string
}

// Update patches the branch. When the branch is renamed, every blob under the
// old storage prefix is relocated to the new one, copy-then-delete per
// object. The metadata rename has already committed by then, so a relocation
// failure comes back as a warning, not a hard failure.
func (s *Service) Update(ctx context.Context, principalID, projectID, rawName string, cmd UpdateCommand) (*Branch, string, error) {
	b, err := s.load(ctx, principalID, projectID, rawName)
	if err != nil {
		return nil, "", err
	}

	patch := UpdatePatch{Description: cmd.Description}
	if cmd.Name != nil {
		newName := objectkey.NormalizeName(*cmd.Name)
		patch.Name = &newName
	}

	updated, err := s.repo.Update(ctx, projectID, b.Name, patch)
	if errors.Is(err, ErrDuplicateName) {
		return nil, "", apperr.Conflictf("this project already has a branch called %s", *patch.Name)
	}
	if err != nil {
		return nil, "", apperr.Unknownf(err, "could not update branch")
	}

	var warning string
	if patch.Name != nil && *patch.Name != b.Name {
		oldPrefix := objectkey.BranchPrefix(b.OwnerID, projectID, b.Name)
		newPrefix := objectkey.BranchPrefix(b.OwnerID, projectID, updated.Name)
		if err := s.store.RenamePrefix(ctx, oldPrefix, newPrefix); err != nil {
			log.Printf("branch: blob relocation %s -> %s failed: %v", oldPrefix, newPrefix, err)
			warning = "branch renamed, but relocating its stored files failed; some downloads may still use the old location"
		}
	}
	return updated, warning, nil
}

// Delete removes the branch row — versions and previews cascade with it —
// and then clears each child version's storage prefix. Metadata goes first;
// failed blob cleanup leaves orphans for reclamation, never an error.
func (s *Service) Delete(ctx context.Context, principalID, projectID, rawName string) error {
	b, err := s.load(ctx, principalID, projectID, rawName)
	if err != nil {
		return err
	}

	versionNames, err := s.repo.VersionNames(ctx, projectID, b.Name)
	if err != nil {
		return apperr.Unknownf(err, "could not delete branch")
	}

	if err := s.repo.Delete(ctx, projectID, b.Name); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFoundf("no branch %s found", b.Name)
		}
		return apperr.Unknownf(err, "could not delete branch")
	}

	for _, versionName := range versionNames {
		prefix := objectkey.VersionPrefix(b.OwnerID, projectID, b.Name, versionName)
		if err := s.store.DeletePrefix(ctx, prefix); err != nil {
			log.Printf("branch: orphaned blobs under %s after deletion: %v", prefix, err)
		}
	}
	return nil
}
