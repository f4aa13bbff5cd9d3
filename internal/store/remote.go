package store

import (
	"context"
	"log/slog"

	"github.com/alabrestoise/siteapi/internal/apperrors"
	"github.com/alabrestoise/siteapi/internal/github"
)

// RemoteStore persists documents through the GitHub Contents API. Every
// successful write creates one commit on the configured branch, attributed
// to the synthetic site author.
type RemoteStore struct {
	client *github.Client
	repo   string
	branch string
	author github.CommitAuthor
	logger *slog.Logger
}

// RemoteStoreOption configures a RemoteStore.
type RemoteStoreOption func(*RemoteStore)

// WithRemoteLogger sets a custom logger.
func WithRemoteLogger(l *slog.Logger) RemoteStoreOption {
	return func(s *RemoteStore) {
		s.logger = l
	}
}

// NewRemoteStore creates a store writing to the given repository and branch.
func NewRemoteStore(client *github.Client, repo, branch string, author github.CommitAuthor, opts ...RemoteStoreOption) *RemoteStore {
	s := &RemoteStore{
		client: client,
		repo:   repo,
		branch: branch,
		author: author,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read fetches the document and its blob sha.
func (s *RemoteStore) Read(ctx context.Context, key string) (Document, error) {
	key, err := cleanKey(key)
	if err != nil {
		return Document{}, err
	}

	s.logger.DebugContext(ctx, "remote read", "key", key, "repo", s.repo)

	file, err := s.client.GetContents(ctx, s.repo, s.branch, key)
	if err != nil {
		return Document{}, err
	}

	return Document{Content: file.Content, Revision: file.SHA}, nil
}

// Write commits content at key. When revision is empty the current blob sha
// is resolved with a fresh read first, so a create of an existing file turns
// into an update rather than a remote 422. The remote enforces the
// precondition: a stale revision comes back as a KindConflict error.
func (s *RemoteStore) Write(ctx context.Context, key string, content []byte, revision, message string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	if revision == "" {
		current, readErr := s.Read(ctx, key)
		switch {
		case readErr == nil:
			revision = current.Revision
		case apperrors.IsKind(readErr, apperrors.KindNotFound):
			// First write of this document.
		default:
			return "", readErr
		}
	}

	s.logger.DebugContext(ctx, "remote write",
		"key", key, "repo", s.repo, "branch", s.branch,
		"size", len(content), "revision", revision)

	newRevision, err := s.client.PutContents(ctx, s.repo, s.branch, key, content, revision, message, s.author)
	if err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "remote write complete", "key", key, "revision", newRevision)
	return newRevision, nil
}
