package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alabrestoise/siteapi/internal/apperrors"
	"github.com/alabrestoise/siteapi/internal/config"
	"github.com/alabrestoise/siteapi/internal/email"
	"github.com/alabrestoise/siteapi/internal/notify"
	"github.com/alabrestoise/siteapi/internal/store"
)

// memStore is an in-memory content store with revision preconditions and
// failure injection.
type memStore struct {
	mu         sync.Mutex
	docs       map[string][]byte
	writes     int
	failReads  bool
	failWrites bool
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string][]byte)}
}

func (m *memStore) Read(_ context.Context, key string) (store.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failReads {
		return store.Document{}, apperrors.New(apperrors.KindUpstream, "injected read failure")
	}
	content, ok := m.docs[key]
	if !ok {
		return store.Document{}, apperrors.New(apperrors.KindNotFound, "not found: "+key)
	}
	return store.Document{Content: content, Revision: store.Revision(content)}, nil
}

func (m *memStore) Write(_ context.Context, key string, content []byte, revision, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWrites {
		return "", apperrors.New(apperrors.KindUpstream, "injected write failure")
	}
	current, exists := m.docs[key]
	if exists && revision != store.Revision(current) {
		return "", apperrors.New(apperrors.KindConflict, "revision precondition failed for "+key)
	}
	m.docs[key] = content
	m.writes++
	return store.Revision(content), nil
}

func (m *memStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *memStore) get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.docs[key]
	return content, ok
}

func (m *memStore) put(key string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = content
}

// fakeMailer records sent messages and can be told to fail.
type fakeMailer struct {
	mu   sync.Mutex
	sent []email.Message
	fail bool
}

func (f *fakeMailer) Send(_ context.Context, msg email.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return "", apperrors.New(apperrors.KindUpstream, "injected send failure")
	}
	f.sent = append(f.sent, msg)
	return "msg_test", nil
}

func (f *fakeMailer) sentMessages() []email.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]email.Message(nil), f.sent...)
}

// testEnv bundles the pieces a handler test needs.
type testEnv struct {
	router http.Handler
	store  *memStore
	mailer *fakeMailer
	cfg    *config.Config
}

func newTestEnv(t *testing.T, mutate func(cfg *config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.ContentDir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}

	st := newMemStore()
	mailer := &fakeMailer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	content := store.NewClient(st, store.ModeRemote, logger)
	notifier := notify.New(notify.WithLogger(logger))
	srv := NewServer(cfg, content, mailer, notifier, logger)

	return &testEnv{
		router: srv.httpServer.Handler,
		store:  st,
		mailer: mailer,
		cfg:    cfg,
	}
}

// do performs a JSON request against the router and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// decodeBody parses the recorded JSON response body.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// decodeJSONBody parses a request body, for webhook assertions.
func decodeJSONBody(t *testing.T, req *http.Request) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
	return body
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}
