// Package cache stores raw GitHub API payloads on disk so repeated runs work offline.
package cache

import (
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
)

// ErrNotFound is returned by Read when no entry exists for a key.
var ErrNotFound = errors.New("cache entry not found")

// Kind groups cache entries by the resource they hold.
type Kind string

const (
	DirContents     Kind = "dir_contents"
	FileBlobs       Kind = "file_blobs"
	PullsMeta       Kind = "pulls_meta"
	PullFilesDetail Kind = "pull_files_detail"
	Assets          Kind = "assets"
	Consolidated    Kind = "consolidated_json"
)

// Key identifies one cached payload.
type Key struct {
	Owner string
	Repo  string
	Kind  Kind
	ID    string
}

// Path returns the key's location relative to the store root.
//
// Blob SHAs, PR numbers, asset and label names are used as file names as-is.
// Directory paths and PR states are URL-safe base64 encoded, with "default"
// standing in for the empty identifier.
func (k Key) Path() string {
	switch k.Kind {
	case FileBlobs:
		return filepath.Join(string(k.Kind), k.ID+".dat")
	case PullFilesDetail, Consolidated:
		return filepath.Join(string(k.Kind), k.ID+".json")
	case Assets:
		return filepath.Join(string(k.Kind), k.ID)
	default:
		return filepath.Join(string(k.Kind), sanitize(k.ID)+".json")
	}
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s:%s", k.Owner, k.Repo, k.Path())
}

func sanitize(id string) string {
	if id == "" {
		return "default"
	}
	return base64.URLEncoding.EncodeToString([]byte(id))
}

// Store is a write-once-then-reused payload cache. Entries never expire.
type Store interface {
	Exists(key Key) bool
	Read(key Key) ([]byte, error)
	Write(key Key, data []byte) error
}
