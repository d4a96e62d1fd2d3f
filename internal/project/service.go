package project

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
)

// repository is the slice of Repository the service needs; tests substitute
// an in-memory implementation.
type repository interface {
	Create(ctx context.Context, ownerID string, fields CreateFields) (*Project, error)
	GetByID(ctx context.Context, id string) (*Project, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Project, error)
	ListBranches(ctx context.Context, projectID string) ([]BranchSummary, error)
	CountByName(ctx context.Context, ownerID, name, excludeID string) (int, error)
	Update(ctx context.Context, id string, patch UpdatePatch) (*Project, error)
	SetCoverArtPath(ctx context.Context, id, path string) (*Project, error)
	Delete(ctx context.Context, id string) error
}

// Service composes the repository, storage, and ownership checks into the
// project use cases.
type Service struct {
	repo   repository
	store  storage.Storage
	urlTTL time.Duration
}

// NewService creates a new project Service.
func NewService(repo repository, store storage.Storage, urlTTL time.Duration) *Service {
	return &Service{repo: repo, store: store, urlTTL: urlTTL}
}

// Details is a project plus its read-side extras.
type Details struct {
	*Project
	Branches    []BranchSummary `json:"branches,omitempty"`
	CoverArtURL string          `json:"coverArtURL,omitempty"`
}

// CreateCommand carries a validated create-project request. CoverArt is
// optional.
type CreateCommand struct {
	Name        string
	Genre       string
	Tags        []string
	Description *string
	CoverArt    *multipart.File
}

// Create inserts the project (with its default branch) and then uploads the
// optional cover art. The row must exist first because the blob key includes
// the generated project ID; if the upload fails the project stays without
// cover art and a warning is returned instead of an error.
func (s *Service) Create(ctx context.Context, principalID string, cmd CreateCommand) (*Details, string, error) {
	count, err := s.repo.CountByName(ctx, principalID, cmd.Name, "")
	if err != nil {
		return nil, "", apperr.Unknownf(err, "could not create project")
	}
	if count > 0 {
		return nil, "", apperr.Conflictf("you already have a project called %s", cmd.Name)
	}

	p, err := s.repo.Create(ctx, principalID, CreateFields{
		Name:        cmd.Name,
		Genre:       cmd.Genre,
		Tags:        cmd.Tags,
		Description: cmd.Description,
	})
	if errors.Is(err, ErrDuplicateName) {
		// lost the race to the unique index
		return nil, "", apperr.Conflictf("you already have a project called %s", cmd.Name)
	}
	if err != nil {
		return nil, "", apperr.Unknownf(err, "could not create project")
	}

	details := &Details{Project: p}
	var warning string
	if cmd.CoverArt != nil {
		updated, url, err := s.attachCoverArt(ctx, principalID, p, cmd.CoverArt)
		if err != nil {
			log.Printf("project: cover art upload failed for %s: %v", p.ID, err)
			warning = "project created, but the cover art upload failed; retry by updating the project"
		} else {
			details.Project = updated
			details.CoverArtURL = url
		}
	}
	return details, warning, nil
}

// attachCoverArt uploads the blob to the derived key and patches the row with
// the storage path. Re-uploads overwrite the same key.
func (s *Service) attachCoverArt(ctx context.Context, ownerID string, p *Project, file *multipart.File) (*Project, string, error) {
	key := objectkey.CoverArtKey(ownerID, p.ID, objectkey.Ext(file.Filename))
	if err := s.store.Upload(ctx, key, bytes.NewReader(file.Data), int64(len(file.Data)), file.ContentType); err != nil {
		return nil, "", err
	}

	updated, err := s.repo.SetCoverArtPath(ctx, p.ID, key)
	if err != nil {
		return nil, "", err
	}

	url, err := s.store.SignedURL(ctx, key, s.urlTTL)
	if err != nil {
		// the blob and path are in place; the read path can sign later
		log.Printf("project: could not sign cover art URL for %s: %v", p.ID, err)
		url = ""
	}
	return updated, url, nil
}

// load fetches the project and authorizes the principal against its owner.
func (s *Service) load(ctx context.Context, principalID, projectID string) (*Project, error) {
	p, err := s.repo.GetByID(ctx, projectID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFoundf("project %s not found", projectID)
	}
	if err != nil {
		return nil, apperr.Unknownf(err, "could not load project")
	}
	if err := ownership.Authorize(principalID, p.OwnerID); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns a single project with its branches and a signed cover-art URL.
func (s *Service) Get(ctx context.Context, principalID, projectID string) (*Details, error) {
	p, err := s.load(ctx, principalID, projectID)
	if err != nil {
		return nil, err
	}

	branches, err := s.repo.ListBranches(ctx, p.ID)
	if err != nil {
		return nil, apperr.Unknownf(err, "could not load project")
	}

	return &Details{
		Project:     p,
		Branches:    branches,
		CoverArtURL: s.signCoverArt(ctx, p),
	}, nil
}

// List returns every project of the principal with signed cover-art URLs.
func (s *Service) List(ctx context.Context, principalID string) ([]*Details, error) {
	projects, err := s.repo.ListByOwner(ctx, principalID)
	if err != nil {
		return nil, apperr.Unknownf(err, "could not list projects")
	}

	details := make([]*Details, 0, len(projects))
	for _, p := range projects {
		details = append(details, &Details{
			Project:     p,
			CoverArtURL: s.signCoverArt(ctx, p),
		})
	}
	return details, nil
}

func (s *Service) signCoverArt(ctx context.Context, p *Project) string {
	if p.CoverArtPath == nil {
		return ""
	}
	url, err := s.store.SignedURL(ctx, *p.CoverArtPath, s.urlTTL)
	if err != nil {
		log.Printf("project: could not sign cover art URL for %s: %v", p.ID, err)
		return ""
	}
	return url
}

// UpdateCommand carries a validated project update. Nil fields stay
// untouched; CoverArt overwrites the previous cover art when present.
type UpdateCommand struct {
	Name        *string
	Genre       *string
	Tags        *[]string
	Description *string
	CoverArt    *multipart.File
}

// Update patches the project and optionally replaces its cover art.
func (s *Service) Update(ctx context.Context, principalID, projectID string, cmd UpdateCommand) (*Details, string, error) {
	p, err := s.load(ctx, principalID, projectID)
	if err != nil {
		return nil, "", err
	}

	if cmd.Name != nil {
		count, err := s.repo.CountByName(ctx, principalID, *cmd.Name, p.ID)
		if err != nil {
			return nil, "", apperr.Unknownf(err, "could not update project")
		}
		if count > 0 {
			return nil, "", apperr.Conflictf("you already have a project called %s", *cmd.Name)
		}
	}

	updated, err := s.repo.Update(ctx, p.ID, UpdatePatch{
		Name:        cmd.Name,
		Genre:       cmd.Genre,
		Tags:        cmd.Tags,
		Description: cmd.Description,
	})
	if errors.Is(err, ErrDuplicateName) {
		return nil, "", apperr.Conflictf("you already have a project with that name")
	}
	if err != nil {
		return nil, "", apperr.Unknownf(err, "could not update project")
	}

	details := &Details{Project: updated, CoverArtURL: s.signCoverArt(ctx, updated)}
	var warning string
	if cmd.CoverArt != nil {
		patched, url, err := s.attachCoverArt(ctx, principalID, updated, cmd.CoverArt)
		if err != nil {
			log.Printf("project: cover art upload failed for %s: %v", updated.ID, err)
			warning = "project updated, but the cover art upload failed"
		} else {
			details.Project = patched
			details.CoverArtURL = url
		}
	}
	return details, warning, nil
}

// Delete removes the project row (cascading to branches, versions, and
// previews) and then clears the project's whole storage prefix. Metadata goes
// first; a failed blob cleanup leaves orphaned blobs for reclamation and is
// never surfaced as a failure.
func (s *Service) Delete(ctx context.Context, principalID, projectID string) error {
	p, err := s.load(ctx, principalID, projectID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, p.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFoundf("project %s not found", projectID)
		}
		return apperr.Unknownf(err, "could not delete project")
	}

	prefix := objectkey.ProjectPrefix(p.OwnerID, p.ID)
	if err := s.store.DeletePrefix(ctx, prefix); err != nil {
		log.Printf("project: orphaned blobs under %s after deletion: %v", prefix, err)
	}
	return nil
}
