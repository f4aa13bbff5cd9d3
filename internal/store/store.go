// Package store implements the content store: documents addressed by path,
// versioned by an opaque revision token, persisted either through the GitHub
// Contents API or a local git-backed filesystem fallback.
package store

import (
	"context"
	"strings"

	"github.com/alabrestoise/siteapi/internal/apperrors"
)

// Document is a named blob of content with its revision token.
type Document struct {
	Content []byte
	// Revision is the git blob hash of the content. Empty for a document
	// that does not yet exist.
	Revision string
}

// Store abstracts document read/write operations against a backend.
type Store interface {
	// Read returns the current document at key, or a KindNotFound error.
	Read(ctx context.Context, key string) (Document, error)

	// Write commits content at key and returns the new revision. A
	// non-empty revision names the expected current revision; a backend
	// that enforces the precondition rejects a stale revision with a
	// KindConflict error instead of silently overwriting.
	Write(ctx context.Context, key string, content []byte, revision, message string) (string, error)
}

// Mode identifies which backend a client is using.
type Mode string

const (
	// ModeRemote persists through the GitHub Contents API.
	ModeRemote Mode = "remote"
	// ModeLocal persists to the local filesystem git repository.
	ModeLocal Mode = "local"
)

// notFound wraps a backend error as a KindNotFound document error.
func notFound(key string, err error) error {
	return apperrors.Wrap(apperrors.KindNotFound, "document not found: "+key, err)
}

// cleanKey validates a document key. Keys are slash-separated repository
// paths; anything that could escape the store root is rejected.
func cleanKey(key string) (string, error) {
	if key == "" {
		return "", apperrors.Wrap(apperrors.KindValidation, "invalid key", apperrors.ErrEmptyDocumentKey)
	}
	if strings.HasPrefix(key, "/") {
		return "", apperrors.New(apperrors.KindValidation, "key must be relative: "+key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", apperrors.New(apperrors.KindValidation, "key contains invalid segment: "+key)
		}
	}
	return key, nil
}
