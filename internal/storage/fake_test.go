package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func put(t *testing.T, f *Fake, key string) {
	t.Helper()
	require.NoError(t, f.Upload(context.Background(), key, strings.NewReader("x"), 1, "application/octet-stream"))
}

func TestFakeDeletePrefixIsBoundaryAware(t *testing.T) {
	f := NewFake()
	put(t, f, "u1/p1/draft/v1/projectFiles.als")
	put(t, f, "u1/p1/draft/v1/previews/a.mp3")
	put(t, f, "u1/p1/draft2/v1/projectFiles.als")

	require.NoError(t, f.DeletePrefix(context.Background(), "u1/p1/draft"))

	// "draft2" merely shares a leading substring and must survive
	assert.Equal(t, []string{"u1/p1/draft2/v1/projectFiles.als"}, f.Keys())

	// deleting an already-empty prefix is a no-op
	assert.NoError(t, f.DeletePrefix(context.Background(), "u1/p1/draft"))
}

func TestFakeRenamePrefixPreservesSuffixes(t *testing.T) {
	f := NewFake()
	put(t, f, "u1/p1/draft/v1/projectFiles.als")
	put(t, f, "u1/p1/draft/v2/previews/a.mp3")

	require.NoError(t, f.RenamePrefix(context.Background(), "u1/p1/draft", "u1/p1/final"))

	assert.Equal(t, []string{
		"u1/p1/final/v1/projectFiles.als",
		"u1/p1/final/v2/previews/a.mp3",
	}, f.Keys())
}

func TestFakeUploadOverwrites(t *testing.T) {
	f := NewFake()
	put(t, f, "u1/p1/coverArt.png")
	put(t, f, "u1/p1/coverArt.png")

	assert.Equal(t, []string{"u1/p1/coverArt.png"}, f.Keys())
}

func TestFakeSignedURLRequiresObject(t *testing.T) {
	f := NewFake()
	_, err := f.SignedURL(context.Background(), "missing", 0)
	assert.Error(t, err)

	put(t, f, "u1/p1/coverArt.png")
	url, err := f.SignedURL(context.Background(), "u1/p1/coverArt.png", 0)
	require.NoError(t, err)
	assert.Contains(t, url, "u1/p1/coverArt.png")
}
