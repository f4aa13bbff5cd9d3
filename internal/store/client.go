package store

import (
	"context"
	"log/slog"

	"github.com/alabrestoise/siteapi/internal/apperrors"
	"github.com/alabrestoise/siteapi/internal/config"
	"github.com/alabrestoise/siteapi/internal/github"
)

// Client orchestrates read-modify-write cycles against whichever backend is
// configured. Every handler shares one client; each request remains a
// stateless read-then-write sequence with no cross-request locking, so
// conflicting concurrent writers are arbitrated by the backend's own
// revision precondition (remote) or last-writer-wins (local).
type Client struct {
	store  Store
	mode   Mode
	logger *slog.Logger
}

// Open selects the backend from configuration presence: remote when both
// the repository identifier and the access token are set, local otherwise.
// The selection is a pure function of configuration; a remote failure is
// surfaced to the caller, never silently degraded to local storage.
func Open(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	author := github.CommitAuthor{Name: cfg.CommitAuthor, Email: cfg.CommitEmail}

	if cfg.StoreConfigured() {
		gh := github.NewClient(cfg.GitHubToken, github.WithLogger(logger))
		remote := NewRemoteStore(gh, cfg.GitHubRepo, cfg.GitHubBranch, author, WithRemoteLogger(logger))
		logger.Info("content store", "mode", ModeRemote, "repo", cfg.GitHubRepo, "branch", cfg.GitHubBranch)
		return NewClient(remote, ModeRemote, logger), nil
	}

	local, err := NewLocalStore(cfg.ContentDir,
		WithLocalLogger(logger),
		WithLocalAuthor(cfg.CommitAuthor, cfg.CommitEmail))
	if err != nil {
		return nil, err
	}
	logger.Info("content store", "mode", ModeLocal, "dir", cfg.ContentDir)
	return NewClient(local, ModeLocal, logger), nil
}

// NewClient wraps an already-constructed backend.
func NewClient(s Store, mode Mode, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{store: s, mode: mode, logger: logger}
}

// Mode returns the backend in use.
func (c *Client) Mode() Mode {
	return c.mode
}

// Read returns the current document at key.
func (c *Client) Read(ctx context.Context, key string) (Document, error) {
	return c.store.Read(ctx, key)
}

// Write commits content at key with the given revision precondition.
func (c *Client) Write(ctx context.Context, key string, content []byte, revision, message string) (string, error) {
	return c.store.Write(ctx, key, content, revision, message)
}

// Update performs one read-modify-write cycle: read the current document,
// apply transform, write back naming the revision that was just read. The
// transform receives the current content and whether the document exists.
// The returned document carries the new content and revision.
func (c *Client) Update(
	ctx context.Context,
	key, message string,
	transform func(current []byte, exists bool) ([]byte, error),
) (Document, error) {
	var current []byte
	var revision string
	exists := true

	doc, err := c.store.Read(ctx, key)
	switch {
	case err == nil:
		current = doc.Content
		revision = doc.Revision
	case apperrors.IsKind(err, apperrors.KindNotFound):
		exists = false
	default:
		return Document{}, err
	}

	next, err := transform(current, exists)
	if err != nil {
		return Document{}, err
	}

	newRevision, err := c.store.Write(ctx, key, next, revision, message)
	if err != nil {
		return Document{}, err
	}

	return Document{Content: next, Revision: newRevision}, nil
}

// AppendLine appends one line to a newline-delimited document. Earlier
// lines are never rewritten: the new line is concatenated onto the decoded
// current value.
func (c *Client) AppendLine(ctx context.Context, key, line, message string) error {
	_, err := c.Update(ctx, key, message, func(current []byte, exists bool) ([]byte, error) {
		if !exists || len(current) == 0 {
			return []byte(line + "\n"), nil
		}
		if current[len(current)-1] != '\n' {
			current = append(current, '\n')
		}
		return append(current, []byte(line+"\n")...), nil
	})
	return err
}
