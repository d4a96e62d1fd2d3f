package objectkey

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "my mix", NormalizeName("My%20Mix"))
	assert.Equal(t, "draft", NormalizeName("DRAFT"))
	assert.Equal(t, "draft", NormalizeName("draft"))
	// undecodable input falls back to the raw segment, lower-cased
	assert.Equal(t, "bad%zzname", NormalizeName("Bad%ZZName"))
}

func TestDeriveIsDeterministicAcrossCasing(t *testing.T) {
	a := ArchiveKey("u1", "p1", "Draft", "V1", ".als")
	b := ArchiveKey("u1", "p1", "draft", "v1", ".als")
	assert.Equal(t, a, b)
	assert.Equal(t, "u1/p1/draft/v1/projectFiles.als", a)
}

// Every key derived for a version must sit under the version prefix, which in
// turn sits under the branch and project prefixes. Cleanup paths rely on this.
func TestPrefixNesting(t *testing.T) {
	owner, project, branch, version := "u1", "p1", "draft", "v1"

	versionPrefix := VersionPrefix(owner, project, branch, version)
	branchPrefix := BranchPrefix(owner, project, branch)
	projectPrefix := ProjectPrefix(owner, project)

	keys := []string{
		ArchiveKey(owner, project, branch, version, ".als"),
		PreviewKey(owner, project, branch, version, "prev-1", ".mp3"),
	}
	for _, key := range keys {
		assert.True(t, strings.HasPrefix(key, versionPrefix+"/"), key)
	}
	assert.True(t, strings.HasPrefix(versionPrefix, branchPrefix+"/"))
	assert.True(t, strings.HasPrefix(branchPrefix, projectPrefix+"/"))

	coverArt := CoverArtKey(owner, project, ".png")
	assert.True(t, strings.HasPrefix(coverArt, projectPrefix+"/"))
}

func TestExt(t *testing.T) {
	assert.Equal(t, ".zip", Ext("tika.zip"))
	assert.Equal(t, ".als", Ext("my.project.als"))
	assert.Equal(t, "", Ext("noextension"))
}
