package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alabrestoise/siteapi/internal/config"
	"github.com/alabrestoise/siteapi/internal/leads"
)

func TestSubscribe_AppendsToLedger(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/subscribe",
		map[string]any{"email": "marie@example.com", "source": "footer", "path": "/blog"},
		map[string]string{"X-Forwarded-For": "1.2.3.4", "Origin": "https://alabrestoise.fr"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["ok"])

	ledger, ok := env.store.get(leads.SubscribersKey)
	require.True(t, ok, "expected a ledger document")
	line := string(ledger)
	assert.True(t, strings.HasSuffix(line, "\n"))
	assert.Contains(t, line, "marie@example.com")
	assert.Contains(t, line, "footer")
	assert.Contains(t, line, "1.2.3.4")
	assert.Contains(t, line, "https://alabrestoise.fr")

	steps := rec.Header().Get(debugHeader)
	assert.Contains(t, steps, "ledger=ok")
	assert.Contains(t, steps, "webhook=skip")
	assert.Contains(t, steps, "email=skip")
}

func TestSubscribe_SecondSubscriberPreservesFirst(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	first := env.do(t, http.MethodPost, "/api/subscribe", map[string]any{"email": "a@example.com"}, nil)
	second := env.do(t, http.MethodPost, "/api/subscribe", map[string]any{"email": "b@example.com"}, nil)
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)

	ledger, ok := env.store.get(leads.SubscribersKey)
	require.True(t, ok)
	lines := strings.Split(strings.TrimSuffix(string(ledger), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "a@example.com")
	assert.Contains(t, lines[1], "b@example.com")
}

func TestSubscribe_InvalidEmail(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	for _, email := range []string{"", "not-an-email", "a@b"} {
		rec := env.do(t, http.MethodPost, "/api/subscribe", map[string]any{"email": email}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "email %q", email)
		assert.Equal(t, false, decodeBody(t, rec)["ok"])
	}
	assert.Equal(t, 0, env.store.writeCount())
}

func TestSubscribe_InvalidJSON(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/subscribe", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscribe_StoreFailureStillSucceeds(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	env.store.failWrites = true

	rec := env.do(t, http.MethodPost, "/api/subscribe", map[string]any{"email": "marie@example.com"}, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["ok"])
	assert.Contains(t, rec.Header().Get(debugHeader), "ledger=error")
}

func TestSubscribe_MailerFailureStillSucceeds(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.ResendAPIKey = "re_test"
	})
	env.mailer.fail = true

	rec := env.do(t, http.MethodPost, "/api/subscribe", map[string]any{"email": "marie@example.com"}, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["ok"])
	assert.Contains(t, rec.Header().Get(debugHeader), "email=error")
}

func TestSubscribe_SendsWelcomeEmail(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.ResendAPIKey = "re_test"
	})

	rec := env.do(t, http.MethodPost, "/api/subscribe", map[string]any{"email": "marie@example.com"}, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(debugHeader), "email=ok")

	sent := env.mailer.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"marie@example.com"}, sent[0].To)
	assert.Contains(t, sent[0].Subject, "Bienvenue")
}

func TestSubscribe_FiresLeadWebhook(t *testing.T) {
	t.Parallel()

	var hookPayload map[string]any
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hookPayload = decodeJSONBody(t, r)
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.LeadWebhookURL = hook.URL
	})

	rec := env.do(t, http.MethodPost, "/api/subscribe",
		map[string]any{"email": "marie@example.com", "source": "popup"}, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(debugHeader), "webhook=ok")
	require.NotNil(t, hookPayload)
	assert.Equal(t, "subscribe", hookPayload["type"])
	assert.Equal(t, "marie@example.com", hookPayload["email"])
	assert.Equal(t, "popup", hookPayload["source"])
}
