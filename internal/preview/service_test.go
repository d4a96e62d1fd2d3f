package preview

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
	"github.com/trackhouse/service/internal/version"
)

// fakeRepo is an in-memory repository for service tests.
type fakeRepo struct {
	previews map[string]*Preview
	ownerID  string
}

func newFakeRepo(ownerID string) *fakeRepo {
	return &fakeRepo{previews: map[string]*Preview{}, ownerID: ownerID}
}

func (r *fakeRepo) Create(_ context.Context, projectID, branchName, versionName, title string) (*Preview, error) {
	now := time.Now()
	p := &Preview{
		ID: uuid.NewString(), Title: title,
		ProjectID: projectID, BranchName: branchName, VersionName: versionName,
		CreatedAt: now, UpdatedAt: now,
	}
	r.previews[p.ID] = p
	copied := *p
	return &copied, nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*WithOwner, error) {
	p, ok := r.previews[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &WithOwner{Preview: *p, OwnerID: r.ownerID}, nil
}

func (r *fakeRepo) ListByVersion(_ context.Context, projectID, branchName, versionName string) ([]*Preview, error) {
	var out []*Preview
	for _, p := range r.previews {
		if p.ProjectID == projectID && p.BranchName == branchName && p.VersionName == versionName {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeRepo) SetFilePath(_ context.Context, id, path string) (*Preview, error) {
	p, ok := r.previews[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.FilePath = &path
	p.UpdatedAt = time.Now()
	copied := *p
	return &copied, nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.previews[id]; !ok {
		return ErrNotFound
	}
	delete(r.previews, id)
	return nil
}

// fakeVersions serves the parent lookup with the owner attached.
type fakeVersions struct {
	ownerID   string
	projectID string
}

func (f *fakeVersions) Get(_ context.Context, projectID, branchName, name string) (*version.WithOwner, error) {
	if projectID != f.projectID || branchName != "draft" || name != "v1" {
		return nil, version.ErrNotFound
	}
	return &version.WithOwner{
		Version: version.Version{Name: name, ProjectID: projectID, BranchName: branchName},
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
	versions := &fakeVersions{ownerID: f.ownerID, projectID: f.projectID}
	f.svc = NewService(f.repo, versions, f.store, time.Minute)
	return f
}

func media() *multipart.File {
	return &multipart.File{
		Fieldname:   "preview",
		Filename:    "bounce.mp3",
		ContentType: "audio/mpeg",
		Data:        []byte("mp3-bytes"),
	}
}

func TestCreatePreviewUploadsToDerivedKey(t *testing.T) {
	f := newFixture()

	details, warning, err := f.svc.Create(context.Background(), f.ownerID, f.projectID, "draft", "v1", CreateCommand{
		Title: "rough bounce",
		File:  media(),
	})
	require.NoError(t, err)
	assert.Empty(t, warning)

	key := objectkey.PreviewKey(f.ownerID, f.projectID, "draft", "v1", details.ID, ".mp3")
	assert.True(t, f.store.Has(key))
	require.NotNil(t, details.FilePath)
	assert.Equal(t, key, *details.FilePath)
	assert.NotEmpty(t, details.FileURL)
}

func TestCreatePreviewUnknownVersion(t *testing.T) {
	f := newFixture()

	_, _, err := f.svc.Create(context.Background(), f.ownerID, f.projectID, "draft", "v9", CreateCommand{
		Title: "rough bounce",
		File:  media(),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCreatePreviewDeniedForOtherOwner(t *testing.T) {
	f := newFixture()

	_, _, err := f.svc.Create(context.Background(), uuid.NewString(), f.projectID, "draft", "v1", CreateCommand{
		Title: "rough bounce",
		File:  media(),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
}

func TestCreatePreviewUploadFailureIsPartialSuccess(t *testing.T) {
	f := newFixture()
	f.store.FailUploads = true

	details, warning, err := f.svc.Create(context.Background(), f.ownerID, f.projectID, "draft", "v1", CreateCommand{
		Title: "rough bounce",
		File:  media(),
	})
	require.NoError(t, err)
	require.NotNil(t, details)
	assert.NotEmpty(t, warning)
	assert.Nil(t, details.FilePath)
}

func TestListPreviews(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, title := range []string{"take one", "take two"} {
		_, _, err := f.svc.Create(ctx, f.ownerID, f.projectID, "draft", "v1", CreateCommand{Title: title, File: media()})
		require.NoError(t, err)
	}

	previews, err := f.svc.List(ctx, f.ownerID, f.projectID, "draft", "v1")
	require.NoError(t, err)
	require.Len(t, previews, 2)
	for _, p := range previews {
		assert.NotEmpty(t, p.FileURL)
	}
}

func TestDeletePreviewRemovesOnlyItsOwnBlob(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	details, _, err := f.svc.Create(ctx, f.ownerID, f.projectID, "draft", "v1", CreateCommand{Title: "rough bounce", File: media()})
	require.NoError(t, err)

	archiveKey := objectkey.ArchiveKey(f.ownerID, f.projectID, "draft", "v1", ".zip")
	require.NoError(t, f.store.Upload(ctx, archiveKey, strings.NewReader("zip"), 3, "application/zip"))

	require.NoError(t, f.svc.Delete(ctx, f.ownerID, details.ID))

	_, err = f.repo.GetByID(ctx, details.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{archiveKey}, f.store.Keys(), "the version's archive is never touched")
}

func TestDeletePreviewDeniedForOtherOwner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	details, _, err := f.svc.Create(ctx, f.ownerID, f.projectID, "draft", "v1", CreateCommand{Title: "rough bounce", File: media()})
	require.NoError(t, err)

	err = f.svc.Delete(ctx, uuid.NewString(), details.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
}
