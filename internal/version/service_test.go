package version

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackhouse/service/internal/apperr"
	"github.com/trackhouse/service/internal/branch"
	"github.com/trackhouse/service/internal/multipart"
	"github.com/trackhouse/service/internal/objectkey"
	"github.com/trackhouse/service/internal/storage"
)

// fakeRepo is an in-memory repository for service tests. Keys are the
// composite natural key joined with "/".
type fakeRepo struct {
	versions map[string]*Version
	ownerID  string
}

func newFakeRepo(ownerID string) *fakeRepo {
	return &fakeRepo{versions: map[string]*Version{}, ownerID: ownerID}
}

func versionKey(projectID, branchName, name string) string {
	return projectID + "/" + branchName + "/" + name
}

func (r *fakeRepo) Create(_ context.Context, projectID, branchName string, fields CreateFields) (*Version, error) {
	key := versionKey(projectID, branchName, fields.Name)
	if _, ok := r.versions[key]; ok {
		return nil, ErrDuplicateName
	}
	now := time.Now()
	v := &Version{
		Name: fields.Name, ProjectID: projectID, BranchName: branchName,
		Tags: fields.Tags, Description: fields.Description,
		CreatedAt: now, UpdatedAt: now,
	}
	r.versions[key] = v
	copied := *v
	return &copied, nil
}

func (r *fakeRepo) Get(_ context.Context, projectID, branchName, name string) (*WithOwner, error) {
	v, ok := r.versions[versionKey(projectID, branchName, name)]
	if !ok {
		return nil, ErrNotFound
	}
	return &WithOwner{Version: *v, OwnerID: r.ownerID}, nil
}

func (r *fakeRepo) List(_ context.Context, projectID, branchName string) ([]*Version, error) {
	var out []*Version
	for _, v := range r.versions {
		if v.ProjectID == projectID && v.BranchName == branchName {
			copied := *v
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeRepo) SetArchivePath(_ context.Context, projectID, branchName, name, path string) (*Version, error) {
	v, ok := r.versions[versionKey(projectID, branchName, name)]
	if !ok {
		return nil, ErrNotFound
	}
	v.ArchivePath = &path
	v.UpdatedAt = time.Now()
	copied := *v
	return &copied, nil
}

func (r *fakeRepo) Delete(_ context.Context, projectID, branchName, name string) error {
	key := versionKey(projectID, branchName, name)
	if _, ok := r.versions[key]; !ok {
		return ErrNotFound
	}
	delete(r.versions, key)
	return nil
}

// fakeBranches serves the parent lookup with the owner attached.
type fakeBranches struct {
	ownerID   string
	projectID string
	names     map[string]bool
}

func (f *fakeBranches) Get(_ context.Context, projectID, name string) (*branch.WithOwner, error) {
	if projectID != f.projectID || !f.names[name] {
		return nil, branch.ErrNotFound
	}
	return &branch.WithOwner{
		Branch:  branch.Branch{Name: name, ProjectID: projectID},
		OwnerID: f.ownerID,
	}, nil
}

type fixture struct {
	svc       *Service
	repo      *fakeRepo
	store     *storage.Fake
	ownerID   string
	projectID string
}

func newFixture() *fixture {
	f := &fixture{
		ownerID:   uuid.NewString(),
		projectID: uuid.NewString(),
		store:     storage.NewFake(),
	}
	f.repo = newFakeRepo(f.ownerID)
	branches := &fakeBranches{ownerID: f.ownerID, projectID: f.projectID, names: map[string]bool{"draft": true}}
	f.svc = NewService(f.repo, branches, f.store, time.Minute)
	return f
}

func archive() *multipart.File {
	return &multipart.File{
		Fieldname:   "projectFiles",
		Filename:    "session.zip",
		ContentType: "application/zip",
		Data:        []byte("zip-bytes"),
	}
}

func TestCreateVersionUploadsArchive(t *testing.T) {
	f := newFixture()

	details, warning, err := f.svc.Create(context.Background(), f.ownerID, f.projectID, "draft", CreateCommand{
		Name:    "V1",
		Tags:    []string{"mix"},
		Archive: archive(),
	})
	require.NoError(t, err)
	assert.Empty(t, warning)
	assert.Equal(t, "v1", details.Name, "version names are stored lower-cased")

	key := objectkey.ArchiveKey(f.ownerID, f.projectID, "draft", "v1", ".zip")
	assert.True(t, f.store.Has(key))
	require.NotNil(t, details.ArchivePath)
	assert.Equal(t, key, *details.ArchivePath)
	assert.NotEmpty(t, details.ProjectFilesURL)
}

func TestCreateVersionDuplicateCaseInsensitive(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, _, err := f.svc.Create(ctx, f.ownerID, f.projectID, "draft", CreateCommand{Name: "v1", Archive: archive()})
	require.NoError(t, err)

	_, _, err = f.svc.Create(ctx, f.ownerID, f.projectID, "draft", CreateCommand{Name: "V1", Archive: archive()})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestCreateVersionUnknownBranch(t *testing.T) {
	f := newFixture()

	_, _, err := f.svc.Create(context.Background(), f.ownerID, f.projectID, "nope", CreateCommand{Name: "v1", Archive: archive()})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCreateVersionUploadFailureIsPartialSuccess(t *testing.T) {
	f := newFixture()
	f.store.FailUploads = true

	details, warning, err := f.svc.Create(context.Background(), f.ownerID, f.projectID, "draft", CreateCommand{
		Name:    "v1",
		Archive: archive(),
	})
	require.NoError(t, err, "the row exists; the failed upload is reported as a warning")
	require.NotNil(t, details)
	assert.NotEmpty(t, warning)
	assert.Nil(t, details.ArchivePath)
	assert.Empty(t, details.ProjectFilesURL)

	// the row survives for an upload retry
	_, err = f.repo.Get(context.Background(), f.projectID, "draft", "v1")
	assert.NoError(t, err)
}

func TestGetVersionDeniedForOtherOwner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, _, err := f.svc.Create(ctx, f.ownerID, f.projectID, "draft", CreateCommand{Name: "v1", Archive: archive()})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, uuid.NewString(), f.projectID, "draft", "v1")
	require.Error(t, err)
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
}

func TestListVersions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, name := range []string{"v1", "v2"} {
		_, _, err := f.svc.Create(ctx, f.ownerID, f.projectID, "draft", CreateCommand{Name: name, Archive: archive()})
		require.NoError(t, err)
	}

	versions, err := f.svc.List(ctx, f.ownerID, f.projectID, "draft")
	require.NoError(t, err)
	assert.Len(t, versions, 2)
}

func TestDeleteVersionClearsItsPrefixOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, _, err := f.svc.Create(ctx, f.ownerID, f.projectID, "draft", CreateCommand{Name: "v1", Archive: archive()})
	require.NoError(t, err)
	_, _, err = f.svc.Create(ctx, f.ownerID, f.projectID, "draft", CreateCommand{Name: "v2", Archive: archive()})
	require.NoError(t, err)

	previewKey := objectkey.PreviewKey(f.ownerID, f.projectID, "draft", "v1", uuid.NewString(), ".mp3")
	require.NoError(t, f.store.Upload(ctx, previewKey, strings.NewReader("mp3"), 3, "audio/mpeg"))

	require.NoError(t, f.svc.Delete(ctx, f.ownerID, f.projectID, "draft", "v1"))

	_, err = f.repo.Get(ctx, f.projectID, "draft", "v1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, f.store.Has(previewKey), "preview blobs live under the version prefix and go with it")
	assert.True(t, f.store.Has(objectkey.ArchiveKey(f.ownerID, f.projectID, "draft", "v2", ".zip")), "the sibling version is untouched")
}
