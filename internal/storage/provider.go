// Package storage is the wiki backend: a vault of Markdown pages whose
// relative paths encode namespace and title.
package storage

import "github.com/starford/semwiki/internal/models"

// Provider is the interface for vault file operations.
type Provider interface {
	// List returns metadata for every .md page under dir (relative to vault root).
	List(dir string) ([]models.PageMetadata, error)
	// Read returns the raw bytes of the page at path (relative to vault root).
	Read(path string) ([]byte, error)
}
