package server

import (
	"fmt"
	"html"
	"net/http"

	"github.com/alabrestoise/siteapi/internal/email"
	"github.com/alabrestoise/siteapi/internal/leads"
)

// HandleContact handles POST /api/contact. Required fields are validated
// before any email is attempted; when no email provider is configured the
// handler answers 202 so the client falls back to a mailto link.
func (h *Handler) HandleContact(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var msg leads.ContactMessage
	if err := decodeJSON(req, &msg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid JSON body"})
		return
	}

	if field := msg.MissingField(); field != "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "missing field: " + field})
		return
	}

	if !h.cfg.EmailConfigured() {
		h.logger.WarnContext(ctx, "contact received without email provider configured")
		writeJSON(w, http.StatusAccepted, map[string]any{"ok": false, "fallback": "mailto"})
		return
	}

	owner := h.cfg.EmailOwner
	if owner == "" {
		owner = h.cfg.EmailFrom
	}

	if _, err := h.mailer.Send(ctx, email.Message{
		From:    h.cfg.EmailFrom,
		To:      []string{owner},
		ReplyTo: msg.Email,
		Subject: fmt.Sprintf("Nouveau message de %s (%s)", msg.FullName, msg.ProjectType),
		HTML:    contactHTML(&msg),
	}); err != nil {
		h.logger.ErrorContext(ctx, "contact email failed", "from", msg.Email, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "email delivery failed"})
		return
	}

	// Lead webhook is best-effort and never affects the outcome.
	ok := h.notifier.BestEffort(ctx, "lead", h.cfg.LeadWebhookURL, map[string]any{
		"type":        "contact",
		"email":       msg.Email,
		"projectType": msg.ProjectType,
	})
	if ok {
		w.Header().Set(debugHeader, "email=ok,webhook=ok")
	} else {
		w.Header().Set(debugHeader, "email=ok,webhook=skip")
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// contactHTML renders the owner notification body.
func contactHTML(msg *leads.ContactMessage) string {
	body := fmt.Sprintf("<p><strong>%s</strong> &lt;%s&gt;</p><p>Projet : %s</p>",
		html.EscapeString(msg.FullName),
		html.EscapeString(msg.Email),
		html.EscapeString(msg.ProjectType))
	if msg.Company != "" {
		body += fmt.Sprintf("<p>Société : %s</p>", html.EscapeString(msg.Company))
	}
	if msg.Phone != "" {
		body += fmt.Sprintf("<p>Téléphone : %s</p>", html.EscapeString(msg.Phone))
	}
	if msg.Budget != "" {
		body += fmt.Sprintf("<p>Budget : %s</p>", html.EscapeString(msg.Budget))
	}
	body += fmt.Sprintf("<blockquote>%s</blockquote>", html.EscapeString(msg.Message))
	return body
}
