package version

import (
	"bytes"
	"context"
	"errors"
	"log"
	"time"

	"github.com/trackhouse/service/internal/apperr"
	"github.com/trackhouse/service/internal/branch"
	"github.com/trackhouse/service/internal/multipart"
	"github.com/trackhouse/service/internal/objectkey"
	"github.com/trackhouse/service/internal/ownership"
	"github.com/trackhouse/service/internal/storage"
)

// repository is the slice of Repository the service needs; tests substitute
// an in-memory implementation.
type repository interface {
	Create(ctx context.Context, projectID, branchName string, fields CreateFields) (*Version, error)
	Get(ctx context.Context, projectID, branchName, name string) (*WithOwner, error)
	List(ctx context.Context, projectID, branchName string) ([]*Version, error)
	SetArchivePath(ctx context.Context, projectID, branchName, name, path string) (*Version, error)
	Delete(ctx context.Context, projectID, branchName, name string) error
}

// branches provides the parent lookup (with owner) needed to authorize
// version operations.
type branches interface {
	Get(ctx context.Context, projectID, name string) (*branch.WithOwner, error)
}

// Service composes the repository, the parent branch lookup, and storage
// into the version use cases.
type Service struct {
	repo     repository
	branches branches
	store    storage.Storage
	urlTTL   time.Duration
}

// NewService creates a new version Service.
func NewService(repo repository, branches branches, store storage.Storage, urlTTL time.Duration) *Service {
	return &Service{repo: repo, branches: branches, store: store, urlTTL: urlTTL}
}

// Details is a version plus a signed download URL for its archive.
type Details struct {
	*Version
	ProjectFilesURL string `json:"projectFilesURL,omitempty"`
}

// loadBranch fetches the parent branch (normalizing the raw URL segment) and
// authorizes the principal against the project owner.
func (s *Service) loadBranch(ctx context.Context, principalID, projectID, rawBranch string) (*branch.WithOwner, error) {
	name := objectkey.NormalizeName(rawBranch)
	b, err := s.branches.Get(ctx, projectID, name)
	if errors.Is(err, branch.ErrNotFound) {
		return nil, apperr.NotFoundf("branch %s not found", name)
	}
	if err != nil {
		return nil, apperr.Unknownf(err, "could not load branch")
	}
	if err := ownership.Authorize(principalID, b.OwnerID); err != nil {
		return nil, err
	}
	return b, nil
}

// List returns every version on a branch of the principal's project.
func (s *Service) List(ctx context.Context, principalID, projectID, rawBranch string) ([]*Version, error) {
	b, err := s.loadBranch(ctx, principalID, projectID, rawBranch)
	if err != nil {
		return nil, err
	}

	versions, err := s.repo.List(ctx, projectID, b.Name)
	if err != nil {
		return nil, apperr.Unknownf(err, "could not list versions")
	}
	return versions, nil
}

// CreateCommand carries a validated create-version request. Archive is the
// required project-files upload.
type CreateCommand struct {
	Name        string
	Tags        []string
	Description *string
	Archive     *multipart.File
}

// Create inserts the version row and then uploads the archive to its derived
// key, patching the row with the storage path. The row goes first because
// the key derivation needs the version's identity settled; if the upload
// fails, the row stays without a path and the caller may retry the upload
// without recreating the version.
func (s *Service) Create(ctx context.Context, principalID, projectID, rawBranch string, cmd CreateCommand) (*Details, string, error) {
	b, err := s.loadBranch(ctx, principalID, projectID, rawBranch)
	if err != nil {
		return nil, "", err
	}

	name := objectkey.NormalizeName(cmd.Name)
	if _, err := s.repo.Get(ctx, projectID, b.Name, name); err == nil {
		return nil, "", apperr.Conflictf("you already have a version called %s on this branch", name)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, "", apperr.Unknownf(err, "could not create version")
	}

	v, err := s.repo.Create(ctx, projectID, b.Name, CreateFields{
		Name:        name,
		Tags:        cmd.Tags,
		Description: cmd.Description,
	})
	if errors.Is(err, ErrDuplicateName) {
		// lost the race to the primary key
		return nil, "", apperr.Conflictf("you already have a version called %s on this branch", name)
	}
	if err != nil {
		return nil, "", apperr.Unknownf(err, "could not create version")
	}

	key := objectkey.ArchiveKey(b.OwnerID, projectID, b.Name, v.Name, objectkey.Ext(cmd.Archive.Filename))
	if err := s.store.Upload(ctx, key, bytes.NewReader(cmd.Archive.Data), int64(len(cmd.Archive.Data)), cmd.Archive.ContentType); err != nil {
		log.Printf("version: archive upload failed for %s/%s/%s: %v", projectID, b.Name, v.Name, err)
		return &Details{Version: v}, "version created, but the project files upload failed; retry the upload", nil
	}

	patched, err := s.repo.SetArchivePath(ctx, projectID, b.Name, v.Name, key)
	if err != nil {
		log.Printf("version: could not record archive path for %s/%s/%s: %v", projectID, b.Name, v.Name, err)
		return &Details{Version: v}, "version created, but recording the upload failed; retry the upload", nil
	}

	return &Details{Version: patched, ProjectFilesURL: s.signArchive(ctx, patched)}, "", nil
}

// Get returns a single version with a signed archive URL when one exists.
func (s *Service) Get(ctx context.Context, principalID, projectID, rawBranch, rawName string) (*Details, error) {
	v, err := s.loadVersion(ctx, principalID, projectID, rawBranch, rawName)
	if err != nil {
		return nil, err
	}
	return &Details{Version: &v.Version, ProjectFilesURL: s.signArchive(ctx, &v.Version)}, nil
}

// loadVersion fetches the version by its composite key and authorizes the
// principal via the upward join.
func (s *Service) loadVersion(ctx context.Context, principalID, projectID, rawBranch, rawName string) (*WithOwner, error) {
	branchName := objectkey.NormalizeName(rawBranch)
	name := objectkey.NormalizeName(rawName)
	v, err := s.repo.Get(ctx, projectID, branchName, name)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFoundf("version %s on branch %s not found", name, branchName)
	}
	if err != nil {
		return nil, apperr.Unknownf(err, "could not load version")
	}
	if err := ownership.Authorize(principalID, v.OwnerID); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) signArchive(ctx context.Context, v *Version) string {
	if v.ArchivePath == nil {
		return ""
	}
	url, err := s.store.SignedURL(ctx, *v.ArchivePath, s.urlTTL)
	if err != nil {
		log.Printf("version: could not sign archive URL for %s/%s/%s: %v", v.ProjectID, v.BranchName, v.Name, err)
		return ""
	}
	return url
}

// Delete removes the version row — previews cascade with it — and then
// clears the version's storage prefix. Metadata goes first; failed blob
// cleanup leaves orphans for reclamation, never an error.
func (s *Service) Delete(ctx context.Context, principalID, projectID, rawBranch, rawName string) error {
	v, err := s.loadVersion(ctx, principalID, projectID, rawBranch, rawName)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, projectID, v.BranchName, v.Name); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFoundf("version %s not found", v.Name)
		}
		return apperr.Unknownf(err, "could not delete version")
	}

	prefix := objectkey.VersionPrefix(v.OwnerID, projectID, v.BranchName, v.Name)
	if err := s.store.DeletePrefix(ctx, prefix); err != nil {
		log.Printf("version: orphaned blobs under %s after deletion: %v", prefix, err)
	}
	return nil
}
