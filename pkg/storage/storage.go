// Package storage defines the object store contract shared by the Azure Blob
// and S3 backends, along with key helpers for the target folder layout.
package storage

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"strings"

	"github.com/menta2k/image-sorter/pkg/types"
)

// DefaultTargetFolder is the prefix that marks accepted images
const DefaultTargetFolder = "tree-pictures/"

var (
	// ErrVideoSkipped is returned by Upload for video files
	ErrVideoSkipped = errors.New("video files are not uploaded")
	// ErrCopyIncomplete is returned when a server-side copy is still pending after the wait timeout
	ErrCopyIncomplete = errors.New("server-side copy did not complete in time")
	// ErrCopyFailed is returned when the provider reports a failed or aborted copy
	ErrCopyFailed = errors.New("server-side copy failed")
	// ErrDestinationExists is returned when a move would overwrite an object already in the target folder
	ErrDestinationExists = errors.New("destination object already exists")
)

// ObjectStore captures the blob operations the pipeline needs.
type ObjectStore interface {
	Upload(ctx context.Context, localPath, key string) error
	List(ctx context.Context) ([]types.BlobDescriptor, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// Copy performs a server-side copy within the same container and returns
	// once the destination holds the data.
	Copy(ctx context.Context, srcKey, dstKey string) error
}

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".avi":  {},
	".mkv":  {},
	".webm": {},
}

// IsVideo reports whether name has a video extension (case-insensitive)
func IsVideo(name string) bool {
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// InFolder reports whether a key belongs to the folder prefix
func InFolder(key, folder string) bool {
	return strings.HasPrefix(key, folder)
}

// BaseName returns the last path segment of an object key
func BaseName(key string) string {
	return path.Base(key)
}

// FolderKey returns the key key takes once moved into folder
func FolderKey(folder, key string) string {
	return folder + BaseName(key)
}

// NormalizeFolder makes sure a non-empty folder prefix ends in a slash
func NormalizeFolder(folder string) string {
	folder = strings.TrimLeft(strings.TrimSpace(folder), "/")
	if folder == "" {
		return DefaultTargetFolder
	}
	if !strings.HasSuffix(folder, "/") {
		folder += "/"
	}
	return folder
}
