// Package email sends transactional email through the Resend API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/alabrestoise/siteapi/internal/apperrors"
)

const (
	// BaseURL is the Resend API base URL.
	BaseURL = "https://api.resend.com"

	httpTimeout = 30 * time.Second

	// Resend allows 2 requests/second on the default plan.
	rateLimitInterval = 500 * time.Millisecond

	httpStatusBadRequest = 400
)

// Message is one outbound email.
type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

// Sender is the send capability handlers depend on.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Client is a Resend API client.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	rateLimiter *rate.Limiter
	baseURL     string
	logger      *slog.Logger
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = l
	}
}

// WithBaseURL sets a custom base URL (useful for testing).
func WithBaseURL(url string) ClientOption {
	return func(client *Client) {
		client.baseURL = url
	}
}

// NewClient creates a new Resend client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	client := &Client{
		httpClient:  &http.Client{Timeout: httpTimeout},
		apiKey:      apiKey,
		rateLimiter: rate.NewLimiter(rate.Every(rateLimitInterval), 1),
		baseURL:     BaseURL,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// APIError is a structured Resend API error response.
type APIError struct {
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("resend: %s (HTTP %d): %s", e.Name, e.StatusCode, e.Message)
}

// sendResponse is the success body of POST /emails.
type sendResponse struct {
	ID string `json:"id"`
}

// Send delivers one message and returns the provider's message id.
// A missing API key is a configuration error, not a transport one.
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	if c.apiKey == "" {
		return "", apperrors.Wrap(apperrors.KindConfig, "send email", apperrors.ErrEmailNotConfigured)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.DebugContext(ctx, "sending email", "to", msg.To, "subject", msg.Subject)
	startTime := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindUpstream, "send email", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if closeErr := resp.Body.Close(); closeErr != nil {
		c.logger.WarnContext(ctx, "failed to close response body", "error", closeErr)
	}
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= httpStatusBadRequest {
		var errResp APIError
		if jsonErr := json.Unmarshal(respBody, &errResp); jsonErr != nil || errResp.Message == "" {
			return "", apperrors.Wrap(apperrors.KindUpstream, "send email",
				apperrors.NewHTTPError(resp.StatusCode, string(respBody)))
		}
		errResp.StatusCode = resp.StatusCode
		return "", apperrors.Wrap(apperrors.KindUpstream, "send email", &errResp)
	}

	var result sendResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	c.logger.InfoContext(ctx, "email sent",
		"id", result.ID, "to", msg.To, "duration", time.Since(startTime))

	return result.ID, nil
}
