package server

import (
	"crypto/hmac"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alabrestoise/siteapi/internal/apperrors"
	"github.com/alabrestoise/siteapi/internal/config"
	"github.com/alabrestoise/siteapi/internal/email"
	"github.com/alabrestoise/siteapi/internal/notify"
	"github.com/alabrestoise/siteapi/internal/store"
	"github.com/alabrestoise/siteapi/internal/version"
)

// debugHeader exposes the per-step outcome trail of best-effort handlers.
const debugHeader = "X-Debug-Steps"

// Handler implements all site API endpoints.
type Handler struct {
	cfg      *config.Config
	content  *store.Client
	mailer   email.Sender
	notifier *notify.Notifier
	logger   *slog.Logger
}

// NewHandler creates the endpoint handler.
func NewHandler(
	cfg *config.Config,
	content *store.Client,
	mailer email.Sender,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notify.New(notify.WithLogger(logger))
	}
	return &Handler{
		cfg:      cfg,
		content:  content,
		mailer:   mailer,
		notifier: notifier,
		logger:   logger,
	}
}

// authorized verifies the bearer token against the configured admin token
// using a constant-time comparison. When no token is configured the check
// passes: unconfigured environments are deliberately open.
func (h *Handler) authorized(req *http.Request) bool {
	if h.cfg.AdminToken == "" {
		return true
	}

	auth := req.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return false
	}

	return hmac.Equal([]byte(token), []byte(h.cfg.AdminToken))
}

// requireAdmin writes a 401 and returns false when the request lacks a
// valid bearer token.
func (h *Handler) requireAdmin(w http.ResponseWriter, req *http.Request) bool {
	if h.authorized(req) {
		return true
	}
	h.logger.WarnContext(req.Context(), "rejected admin request",
		"path", req.URL.Path, "remote_addr", req.RemoteAddr)
	writeJSON(w, http.StatusUnauthorized, map[string]any{"ok": false, "error": "unauthorized"})
	return false
}

// decodeJSON parses the request body into v.
func decodeJSON(req *http.Request, v any) error {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return apperrors.Wrap(apperrors.KindValidation, "invalid JSON body", err)
	}
	return nil
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFromError maps a classified error to an HTTP status.
func statusFromError(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return http.StatusUnprocessableEntity
	case apperrors.KindAuth:
		return http.StatusUnauthorized
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// clientIP extracts the originating IP, preferring X-Forwarded-For.
func clientIP(req *http.Request) string {
	if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host := req.RemoteAddr
	if idx := strings.LastIndexByte(host, ':'); idx >= 0 {
		host = host[:idx]
	}
	return host
}

// HandleHealth handles the /health endpoint for health checks.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleVersion handles the /api/version endpoint.
func (h *Handler) HandleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.Commit,
		"build_time": version.BuildTime,
	})
}

// HandleAdminAuth handles POST /api/admin-auth: a pure token check used by
// the admin UI to validate its stored credential.
func (h *Handler) HandleAdminAuth(w http.ResponseWriter, req *http.Request) {
	if !h.requireAdmin(w, req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
