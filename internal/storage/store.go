// Package storage keeps bill attachments (invoices and payment proofs)
// behind a small key/value interface with local-disk and S3 backends.
package storage

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"strings"

	"billminder/internal/uuid"
)

// ErrNotFound is returned by Read when no object exists under the key.
var ErrNotFound = errors.New("storage: object not found")

// ErrInvalidKey is returned for empty keys or keys escaping the store root.
var ErrInvalidKey = errors.New("storage: invalid key")

// Key prefixes for the two attachment kinds.
const (
	PrefixInvoices = "boletos"
	PrefixProofs   = "comprovantes"
)

// FileStore persists attachment bytes under slash-separated keys.
type FileStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
}

// NewKey builds a unique key under prefix that keeps the lowercased extension
// of the uploaded file name, e.g. "boletos/0190...-7c1e.pdf".
func NewKey(prefix, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return path.Join(prefix, uuid.New()+ext)
}

// cleanKey normalizes key and rejects anything that is absolute or climbs out
// of the store root.
func cleanKey(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || strings.HasPrefix(cleaned, "..") || cleaned != strings.TrimPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
