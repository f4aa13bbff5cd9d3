package store

import (
	"bytes"
	"context"
	"testing"

	"github.com/go-git/go-git/v5"

	"github.com/alabrestoise/siteapi/internal/apperrors"
)

func TestLocalStore_ReadMissing(t *testing.T) {
	t.Parallel()

	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	_, err = s.Read(context.Background(), "content/missing.json")
	if err == nil {
		t.Fatal("expected error for missing document")
	}
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Errorf("expected not_found kind, got %q (%v)", apperrors.KindOf(err), err)
	}
}

func TestLocalStore_WriteReadRoundTrip(t *testing.T) {
	t.Parallel()

	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ctx := context.Background()

	content := []byte(`{"title":"Galerie","items":[]}`)
	revision, err := s.Write(ctx, "content/home/gallery.json", content, "", "seed gallery")
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if revision == "" {
		t.Error("expected a non-empty revision")
	}
	if revision != Revision(content) {
		t.Errorf("revision mismatch: got %s, want %s", revision, Revision(content))
	}

	doc, err := s.Read(ctx, "content/home/gallery.json")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(doc.Content, content) {
		t.Errorf("content mismatch: got %q, want %q", doc.Content, content)
	}
	if doc.Revision != revision {
		t.Errorf("read revision %s does not match write revision %s", doc.Revision, revision)
	}
}

func TestLocalStore_OverwriteIgnoresRevision(t *testing.T) {
	t.Parallel()

	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ctx := context.Background()

	if _, err := s.Write(ctx, "data/doc.txt", []byte("first"), "", "first"); err != nil {
		t.Fatalf("first write failed: %v", err)
	}

	// A stale (or bogus) revision is not checked locally: last writer wins.
	if _, err := s.Write(ctx, "data/doc.txt", []byte("second"), "bogus-revision", "second"); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	doc, err := s.Read(ctx, "data/doc.txt")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(doc.Content) != "second" {
		t.Errorf("expected last write to win, got %q", doc.Content)
	}
}

func TestLocalStore_WritesCreateCommits(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewLocalStore(dir, WithLocalAuthor("site-bot", "bot@example.com"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ctx := context.Background()

	if _, err := s.Write(ctx, "data/a.txt", []byte("a"), "", "add a"); err != nil {
		t.Fatalf("write a failed: %v", err)
	}
	if _, err := s.Write(ctx, "data/b.txt", []byte("b"), "", "add b"); err != nil {
		t.Fatalf("write b failed: %v", err)
	}

	repo, err := git.PlainOpen(dir)
	if err != nil {
		t.Fatalf("failed to open repo: %v", err)
	}
	head, err := repo.Head()
	if err != nil {
		t.Fatalf("failed to resolve HEAD: %v", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		t.Fatalf("failed to read HEAD commit: %v", err)
	}

	if commit.Message != "add b" {
		t.Errorf("expected HEAD message %q, got %q", "add b", commit.Message)
	}
	if commit.Author.Name != "site-bot" {
		t.Errorf("expected author site-bot, got %s", commit.Author.Name)
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		t.Fatalf("failed to iterate log: %v", err)
	}
	count := 0
	for {
		if _, iterErr := iter.Next(); iterErr != nil {
			break
		}
		count++
	}
	if count != 2 {
		t.Errorf("expected 2 commits, got %d", count)
	}
}

func TestLocalStore_UnchangedWriteSkipsCommit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ctx := context.Background()

	if _, err := s.Write(ctx, "data/a.txt", []byte("a"), "", "add a"); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if _, err := s.Write(ctx, "data/a.txt", []byte("a"), "", "add a again"); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	repo, err := git.PlainOpen(dir)
	if err != nil {
		t.Fatalf("failed to open repo: %v", err)
	}
	head, err := repo.Head()
	if err != nil {
		t.Fatalf("failed to resolve HEAD: %v", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		t.Fatalf("failed to read HEAD commit: %v", err)
	}
	if commit.Message != "add a" {
		t.Errorf("expected unchanged write to skip commit, HEAD is %q", commit.Message)
	}
}

func TestCleanKey_RejectsTraversal(t *testing.T) {
	t.Parallel()

	bad := []string{"", "/etc/passwd", "a/../b", "../x", "a//b", "."}
	for _, key := range bad {
		if _, err := cleanKey(key); err == nil {
			t.Errorf("expected key %q to be rejected", key)
		}
	}

	good := []string{"a", "content/home/gallery.json", "data/subscribers.csv"}
	for _, key := range good {
		if _, err := cleanKey(key); err != nil {
			t.Errorf("expected key %q to be accepted, got %v", key, err)
		}
	}
}

func TestRevision_TracksContent(t *testing.T) {
	t.Parallel()

	a := Revision([]byte("hello"))
	b := Revision([]byte("hello"))
	c := Revision([]byte("world"))

	if a != b {
		t.Error("identical content must produce identical revisions")
	}
	if a == c {
		t.Error("different content must produce different revisions")
	}
	if len(a) != 40 {
		t.Errorf("expected a 40-char blob hash, got %q", a)
	}
}
