package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	// File and directory permissions.
	dirPerm  = 0750 // Directory permissions: rwxr-x---
	filePerm = 0600 // File permissions: rw-------
)

// LocalStore persists documents to a git repository on the local filesystem.
// It mirrors the remote store's side effects (one commit per write, blob-hash
// revisions) but performs no precondition check: last writer wins. Used only
// when remote credentials are absent, which pins the content to the serving
// instance's disk.
type LocalStore struct {
	rootPath    string
	repo        *git.Repository
	mu          sync.Mutex
	logger      *slog.Logger
	authorName  string
	authorEmail string
}

// LocalStoreOption configures a LocalStore.
type LocalStoreOption func(*LocalStore)

// WithLocalLogger sets a custom logger.
func WithLocalLogger(l *slog.Logger) LocalStoreOption {
	return func(s *LocalStore) {
		s.logger = l
	}
}

// WithLocalAuthor sets the commit author identity.
func WithLocalAuthor(name, email string) LocalStoreOption {
	return func(s *LocalStore) {
		s.authorName = name
		s.authorEmail = email
	}
}

// NewLocalStore creates a store rooted at path, opening the git repository
// there or initializing a fresh one.
func NewLocalStore(path string, opts ...LocalStoreOption) (*LocalStore, error) {
	s := &LocalStore{
		rootPath:    path,
		logger:      slog.Default(),
		authorName:  "alabrestoise",
		authorEmail: "site@alabrestoise.fr",
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(path, dirPerm); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}

	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainInit(path, false)
	}
	if err != nil {
		return nil, fmt.Errorf("open git repo: %w", err)
	}

	s.repo = repo
	return s, nil
}

// Revision computes the git blob hash of content, matching the sha the
// Contents API would assign, so local and remote tokens are interchangeable
// in shape.
func Revision(content []byte) string {
	return plumbing.ComputeHash(plumbing.BlobObject, content).String()
}

// Read returns the document at key. Any read failure, including a missing
// file, surfaces as KindNotFound: the local fallback never distinguishes
// missing from unreadable.
func (s *LocalStore) Read(ctx context.Context, key string) (Document, error) {
	key, err := cleanKey(key)
	if err != nil {
		return Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.DebugContext(ctx, "local read", "key", key)

	data, err := os.ReadFile(filepath.Join(s.rootPath, filepath.FromSlash(key))) //nolint:gosec // key validated by cleanKey
	if err != nil {
		return Document{}, notFound(key, err)
	}

	return Document{Content: data, Revision: Revision(data)}, nil
}

// Write overwrites the document at key unconditionally, creating parent
// directories as needed, and records a commit with the synthetic author.
// The revision argument is ignored: there is no conflict detection locally.
func (s *LocalStore) Write(ctx context.Context, key string, content []byte, _, message string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.DebugContext(ctx, "local write", "key", key, "size", len(content))

	fullPath := filepath.Join(s.rootPath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), dirPerm); err != nil {
		return "", fmt.Errorf("create parent dir: %w", err)
	}
	if err := os.WriteFile(fullPath, content, filePerm); err != nil {
		return "", fmt.Errorf("write file %s: %w", key, err)
	}

	if err := s.commit(key, message); err != nil {
		return "", err
	}

	revision := Revision(content)
	s.logger.InfoContext(ctx, "local write complete", "key", key, "revision", revision)
	return revision, nil
}

// commit stages key and creates a commit unless the worktree is unchanged.
func (s *LocalStore) commit(key, message string) error {
	worktree, err := s.repo.Worktree()
	if err != nil {
		return fmt.Errorf("get worktree: %w", err)
	}

	if _, err := worktree.Add(key); err != nil {
		return fmt.Errorf("git add %s: %w", key, err)
	}

	status, err := worktree.Status()
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}

	hasChanges := false
	for _, st := range status {
		if st.Staging != git.Unmodified && st.Staging != git.Untracked {
			hasChanges = true
			break
		}
	}
	if !hasChanges {
		return nil
	}

	_, err = worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  s.authorName,
			Email: s.authorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// Root returns the store's root directory.
func (s *LocalStore) Root() string {
	return s.rootPath
}
