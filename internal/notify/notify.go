// Package notify posts best-effort JSON notifications to external webhooks:
// the lead notification hook and the site deploy hook. Failures are logged
// and never affect the visitor-facing outcome.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alabrestoise/siteapi/internal/apperrors"
)

const httpTimeout = 10 * time.Second

// Notifier posts JSON payloads to configured webhook URLs.
type Notifier struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) {
		n.httpClient = c
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) {
		n.logger = l
	}
}

// New creates a Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		httpClient: &http.Client{Timeout: httpTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Post sends payload as JSON to url. An empty url is a no-op.
func (n *Notifier) Post(ctx context.Context, url string, payload any) error {
	if url == "" {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.KindUpstream, "post webhook", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return apperrors.Wrap(apperrors.KindUpstream, "post webhook",
			apperrors.NewHTTPError(resp.StatusCode, ""))
	}

	return nil
}

// BestEffort posts and logs any failure instead of returning it.
// It reports whether the post succeeded (an unset url counts as skipped).
func (n *Notifier) BestEffort(ctx context.Context, name, url string, payload any) bool {
	if url == "" {
		return false
	}
	if err := n.Post(ctx, url, payload); err != nil {
		n.logger.WarnContext(ctx, "webhook post failed", "hook", name, "error", err)
		return false
	}
	n.logger.DebugContext(ctx, "webhook posted", "hook", name)
	return true
}
