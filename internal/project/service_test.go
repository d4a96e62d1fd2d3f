package project

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackhouse/service/internal/apperr"
	"github.com/trackhouse/service/internal/multipart"
	"github.com/trackhouse/service/internal/objectkey"
	"github.com/trackhouse/service/internal/storage"
)

// fakeRepo is an in-memory repository for service tests.
type fakeRepo struct {
	projects map[string]*Project
	branches map[string][]BranchSummary
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		projects: map[string]*Project{},
		branches: map[string][]BranchSummary{},
	}
}

func (r *fakeRepo) Create(_ context.Context, ownerID string, fields CreateFields) (*Project, error) {
	for _, p := range r.projects {
		if p.OwnerID == ownerID && strings.EqualFold(p.Name, fields.Name) {
			return nil, ErrDuplicateName
		}
	}
	now := time.Now()
	p := &Project{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        fields.Name,
		Genre:       fields.Genre,
		Tags:        fields.Tags,
		Description: fields.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.projects[p.ID] = p
	r.branches[p.ID] = []BranchSummary{{Name: DefaultBranchName, CreatedAt: now, UpdatedAt: now}}
	return p, nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*Project, error) {
	p, ok := r.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakeRepo) ListByOwner(_ context.Context, ownerID string) ([]*Project, error) {
	var out []*Project
	for _, p := range r.projects {
		if p.OwnerID == ownerID {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListBranches(_ context.Context, projectID string) ([]BranchSummary, error) {
	return r.branches[projectID], nil
}

func (r *fakeRepo) CountByName(_ context.Context, ownerID, name, excludeID string) (int, error) {
	count := 0
	for _, p := range r.projects {
		if p.OwnerID == ownerID && strings.EqualFold(p.Name, name) && p.ID != excludeID {
			count++
		}
	}
	return count, nil
}

func (r *fakeRepo) Update(_ context.Context, id string, patch UpdatePatch) (*Project, error) {
	p, ok := r.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Genre != nil {
		p.Genre = *patch.Genre
	}
	if patch.Tags != nil {
		p.Tags = *patch.Tags
	}
	if patch.Description != nil {
		p.Description = patch.Description
	}
	p.UpdatedAt = time.Now()
	copied := *p
	return &copied, nil
}

func (r *fakeRepo) SetCoverArtPath(_ context.Context, id, path string) (*Project, error) {
	p, ok := r.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.CoverArtPath = &path
	copied := *p
	return &copied, nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.projects[id]; !ok {
		return ErrNotFound
	}
	delete(r.projects, id)
	delete(r.branches, id)
	return nil
}

func newTestService() (*Service, *fakeRepo, *storage.Fake) {
	repo := newFakeRepo()
	store := storage.NewFake()
	return NewService(repo, store, time.Minute), repo, store
}

func coverArt() *multipart.File {
	return &multipart.File{
		Fieldname:   "coverArt",
		Filename:    "cover.png",
		ContentType: "image/png",
		Data:        []byte("png-bytes"),
	}
}

func TestCreateProject(t *testing.T) {
	svc, repo, _ := newTestService()
	owner := uuid.NewString()

	details, warning, err := svc.Create(context.Background(), owner, CreateCommand{
		Name:  "Midnight Demo",
		Genre: "house",
		Tags:  []string{"wip"},
	})
	require.NoError(t, err)
	assert.Empty(t, warning)
	assert.Equal(t, "Midnight Demo", details.Name, "project names keep their casing")
	assert.Equal(t, owner, details.OwnerID)

	branches, err := repo.ListBranches(context.Background(), details.ID)
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.Equal(t, DefaultBranchName, branches[0].Name)
}

func TestCreateProjectDuplicateName(t *testing.T) {
	svc, _, _ := newTestService()
	owner := uuid.NewString()

	_, _, err := svc.Create(context.Background(), owner, CreateCommand{Name: "Demo", Genre: "house"})
	require.NoError(t, err)

	_, _, err = svc.Create(context.Background(), owner, CreateCommand{Name: "demo", Genre: "house"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err), "duplicate check is case-insensitive")

	// a different owner may reuse the name
	_, _, err = svc.Create(context.Background(), uuid.NewString(), CreateCommand{Name: "Demo", Genre: "house"})
	assert.NoError(t, err)
}

func TestCreateProjectWithCoverArt(t *testing.T) {
	svc, _, store := newTestService()
	owner := uuid.NewString()

	details, warning, err := svc.Create(context.Background(), owner, CreateCommand{
		Name:     "Artful",
		Genre:    "ambient",
		CoverArt: coverArt(),
	})
	require.NoError(t, err)
	assert.Empty(t, warning)

	key := objectkey.CoverArtKey(owner, details.ID, ".png")
	assert.True(t, store.Has(key))
	require.NotNil(t, details.CoverArtPath)
	assert.Equal(t, key, *details.CoverArtPath)
	assert.NotEmpty(t, details.CoverArtURL)
}

func TestCreateProjectCoverArtUploadFailure(t *testing.T) {
	svc, _, store := newTestService()
	store.FailUploads = true

	details, warning, err := svc.Create(context.Background(), uuid.NewString(), CreateCommand{
		Name:     "Unlucky",
		Genre:    "house",
		CoverArt: coverArt(),
	})
	require.NoError(t, err, "a failed cover art upload must not fail project creation")
	assert.NotEmpty(t, warning)
	assert.Nil(t, details.CoverArtPath)
	assert.Empty(t, store.Keys())
}

func TestGetProjectDeniedForOtherOwner(t *testing.T) {
	svc, _, _ := newTestService()
	owner := uuid.NewString()

	details, _, err := svc.Create(context.Background(), owner, CreateCommand{Name: "Private", Genre: "house"})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), uuid.NewString(), details.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
}

func TestGetProjectNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Get(context.Background(), uuid.NewString(), uuid.NewString())
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestUpdateProjectRenameConflict(t *testing.T) {
	svc, _, _ := newTestService()
	owner := uuid.NewString()
	ctx := context.Background()

	_, _, err := svc.Create(ctx, owner, CreateCommand{Name: "First", Genre: "house"})
	require.NoError(t, err)
	second, _, err := svc.Create(ctx, owner, CreateCommand{Name: "Second", Genre: "house"})
	require.NoError(t, err)

	name := "FIRST"
	_, _, err = svc.Update(ctx, owner, second.ID, UpdateCommand{Name: &name})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// renaming to the current name is not a conflict with itself
	same := "Second"
	_, _, err = svc.Update(ctx, owner, second.ID, UpdateCommand{Name: &same})
	assert.NoError(t, err)
}

func TestDeleteProjectClearsStoragePrefix(t *testing.T) {
	svc, repo, store := newTestService()
	owner := uuid.NewString()
	ctx := context.Background()

	details, _, err := svc.Create(ctx, owner, CreateCommand{Name: "Doomed", Genre: "house", CoverArt: coverArt()})
	require.NoError(t, err)

	prefix := objectkey.ProjectPrefix(owner, details.ID)
	require.NoError(t, store.Upload(ctx, prefix+"/draft/v1/projectFiles.zip", strings.NewReader("zip"), 3, "application/zip"))

	// blob of an unrelated project must survive
	otherKey := objectkey.CoverArtKey(owner, uuid.NewString(), ".png")
	require.NoError(t, store.Upload(ctx, otherKey, strings.NewReader("png"), 3, "image/png"))

	require.NoError(t, svc.Delete(ctx, owner, details.ID))

	_, err = repo.GetByID(ctx, details.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{otherKey}, store.Keys())
}

func TestDeleteProjectSurvivesStorageFailure(t *testing.T) {
	svc, repo, store := newTestService()
	owner := uuid.NewString()
	ctx := context.Background()

	details, _, err := svc.Create(ctx, owner, CreateCommand{Name: "Doomed", Genre: "house"})
	require.NoError(t, err)

	store.FailDeletes = true
	require.NoError(t, svc.Delete(ctx, owner, details.ID), "blob cleanup failure must not surface")

	_, err = repo.GetByID(ctx, details.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
