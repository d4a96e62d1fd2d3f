// Package objectkey derives object-storage keys from the ownership hierarchy.
// It is the single source of truth for key layout: upload paths and cleanup
// prefixes both come from here, so they cannot diverge and strand blobs.
//
// Layout inside the bucket:
//
//	{ownerID}/{projectID}/coverArt{ext}
//	{ownerID}/{projectID}/{branch}/{version}/projectFiles{ext}
//	{ownerID}/{projectID}/{branch}/{version}/previews/{previewID}{ext}
package objectkey

import (
	"net/url"
	"path"
	"strings"
)

// NormalizeName lower-cases and percent-decodes a branch or version name.
// Names arrive from URL path segments, so "My%20Mix" and "my mix" must map
// to the same key. Undecodable input is kept as-is.
func NormalizeName(raw string) string {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		decoded = raw
	}
	return strings.ToLower(decoded)
}

// Ext returns the extension of filename including the leading dot, or "" when
// the filename has none.
func Ext(filename string) string {
	return path.Ext(filename)
}

// ProjectPrefix is the prefix under which every blob of a project lives.
func ProjectPrefix(ownerID, projectID string) string {
	return ownerID + "/" + projectID
}

// CoverArtKey is the key of a project's cover-art blob.
func CoverArtKey(ownerID, projectID, ext string) string {
	return ProjectPrefix(ownerID, projectID) + "/coverArt" + ext
}

// BranchPrefix is the prefix under which every blob of a branch lives.
func BranchPrefix(ownerID, projectID, branchName string) string {
	return ProjectPrefix(ownerID, projectID) + "/" + NormalizeName(branchName)
}

// VersionPrefix is the prefix under which every blob of a version lives.
func VersionPrefix(ownerID, projectID, branchName, versionName string) string {
	return BranchPrefix(ownerID, projectID, branchName) + "/" + NormalizeName(versionName)
}

// ArchiveKey is the key of a version's primary project-files archive.
func ArchiveKey(ownerID, projectID, branchName, versionName, ext string) string {
	return VersionPrefix(ownerID, projectID, branchName, versionName) + "/projectFiles" + ext
}

// PreviewKey is the key of one preview blob attached to a version.
func PreviewKey(ownerID, projectID, branchName, versionName, previewID, ext string) string {
	return VersionPrefix(ownerID, projectID, branchName, versionName) + "/previews/" + previewID + ext
}
