package preview

import (
	"bytes"
	"context"
	"errors"
	"log"
	"time"

	"github.com/trackhouse/service/internal/apperr"
	"github.com/trackhouse/service/internal/multipart"
	"github.com/trackhouse/service/internal/objectkey"
	"github.com/trackhouse/service/internal/ownership"
	"github.com/trackhouse/service/internal/storage"
	"github.com/trackhouse/service/internal/version"
)

// repository is the slice of Repository the service needs; tests substitute
// an in-memory implementation.
type repository interface {
	Create(ctx context.Context, projectID, branchName, versionName, title string) (*Preview, error)
	GetByID(ctx context.Context, id string) (*WithOwner, error)
	ListByVersion(ctx context.Context, projectID, branchName, versionName string) ([]*Preview, error)
	SetFilePath(ctx context.Context, id, path string) (*Preview, error)
	Delete(ctx context.Context, id string) error
}

// versions provides the parent lookup (with owner) needed to authorize
// preview operations.
type versions interface {
	Get(ctx context.Context, projectID, branchName, name string) (*version.WithOwner, error)
}

// Service composes the repository, the parent version lookup, and storage
// into the preview use cases.
type Service struct {
	repo     repository
	versions versions
	store    storage.Storage
	urlTTL   time.Duration
}

// NewService creates a new preview Service.
func NewService(repo repository, versions versions, store storage.Storage, urlTTL time.Duration) *Service {
	return &Service{repo: repo, versions: versions, store: store, urlTTL: urlTTL}
}

// Details is a preview plus a signed URL for its media blob.
type Details struct {
	*Preview
	FileURL string `json:"fileURL,omitempty"`
}

// loadVersion fetches the parent version (normalizing the raw URL segments)
// and authorizes the principal via the upward join.
func (s *Service) loadVersion(ctx context.Context, principalID, projectID, rawBranch, rawVersion string) (*version.WithOwner, error) {
	branchName := objectkey.NormalizeName(rawBranch)
	versionName := objectkey.NormalizeName(rawVersion)
	v, err := s.versions.Get(ctx, projectID, branchName, versionName)
	if errors.Is(err, version.ErrNotFound) {
		return nil, apperr.NotFoundf("version %s on branch %s not found", versionName, branchName)
	}
	if err != nil {
		return nil, apperr.Unknownf(err, "could not load version")
	}
	if err := ownership.Authorize(principalID, v.OwnerID); err != nil {
		return nil, err
	}
	return v, nil
}

// CreateCommand carries a validated create-preview request. File is the
// required media upload.
type CreateCommand struct {
	Title string
	File  *multipart.File
}

// Create inserts the preview row and then uploads the media to a key derived
// from the version's chain plus the preview's generated ID. If the upload
// fails, the row stays without a path and a warning is returned.
func (s *Service) Create(ctx context.Context, principalID, projectID, rawBranch, rawVersion string, cmd CreateCommand) (*Details, string, error) {
	v, err := s.loadVersion(ctx, principalID, projectID, rawBranch, rawVersion)
	if err != nil {
		return nil, "", err
	}

	p, err := s.repo.Create(ctx, projectID, v.BranchName, v.Name, cmd.Title)
	if err != nil {
		return nil, "", apperr.Unknownf(err, "could not create preview")
	}

	key := objectkey.PreviewKey(v.OwnerID, projectID, v.BranchName, v.Name, p.ID, objectkey.Ext(cmd.File.Filename))
	if err := s.store.Upload(ctx, key, bytes.NewReader(cmd.File.Data), int64(len(cmd.File.Data)), cmd.File.ContentType); err != nil {
		log.Printf("preview: upload failed for %s: %v", p.ID, err)
		return &Details{Preview: p}, "preview created, but the file upload failed; delete it and retry", nil
	}

	patched, err := s.repo.SetFilePath(ctx, p.ID, key)
	if err != nil {
		log.Printf("preview: could not record file path for %s: %v", p.ID, err)
		return &Details{Preview: p}, "preview created, but recording the upload failed", nil
	}

	return &Details{Preview: patched, FileURL: s.signFile(ctx, patched)}, "", nil
}

// List returns every preview of a version with signed media URLs.
func (s *Service) List(ctx context.Context, principalID, projectID, rawBranch, rawVersion string) ([]*Details, error) {
	v, err := s.loadVersion(ctx, principalID, projectID, rawBranch, rawVersion)
	if err != nil {
		return nil, err
	}

	previews, err := s.repo.ListByVersion(ctx, projectID, v.BranchName, v.Name)
	if err != nil {
		return nil, apperr.Unknownf(err, "could not list previews")
	}

	details := make([]*Details, 0, len(previews))
	for _, p := range previews {
		details = append(details, &Details{Preview: p, FileURL: s.signFile(ctx, p)})
	}
	return details, nil
}

func (s *Service) signFile(ctx context.Context, p *Preview) string {
	if p.FilePath == nil {
		return ""
	}
	url, err := s.store.SignedURL(ctx, *p.FilePath, s.urlTTL)
	if err != nil {
		log.Printf("preview: could not sign file URL for %s: %v", p.ID, err)
		return ""
	}
	return url
}

// Delete removes the preview row and then its own blob — never the parent
// version's archive. Metadata goes first; a failed blob delete leaves an
// orphan for reclamation, never an error.
func (s *Service) Delete(ctx context.Context, principalID, previewID string) error {
	p, err := s.repo.GetByID(ctx, previewID)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFoundf("preview %s not found", previewID)
	}
	if err != nil {
		return apperr.Unknownf(err, "could not load preview")
	}
	if err := ownership.Authorize(principalID, p.OwnerID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, p.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFoundf("preview %s not found", previewID)
		}
		return apperr.Unknownf(err, "could not delete preview")
	}

	if p.FilePath != nil {
		if err := s.store.Delete(ctx, *p.FilePath); err != nil {
			log.Printf("preview: orphaned blob %s after deletion: %v", *p.FilePath, err)
		}
	}
	return nil
}
