package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/alabrestoise/siteapi/internal/email"
	"github.com/alabrestoise/siteapi/internal/leads"
)

// HandleSubscribe handles POST /api/subscribe. A syntactically valid email
// always gets 200 {ok:true}: the ledger append, lead webhook, and welcome
// email are best-effort steps whose outcomes are recorded in the
// X-Debug-Steps header but never block the visitor.
func (h *Handler) HandleSubscribe(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var sub leads.Subscription
	if err := decodeJSON(req, &sub); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid JSON body"})
		return
	}

	sub.Email = strings.TrimSpace(sub.Email)
	if !leads.ValidEmail(sub.Email) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid email"})
		return
	}

	sub.IP = clientIP(req)
	sub.Origin = req.Header.Get("Origin")
	if sub.UserAgent == "" {
		sub.UserAgent = req.UserAgent()
	}

	var steps []string

	// Ledger append.
	line, err := sub.LedgerLine(time.Now())
	if err == nil {
		err = h.content.AppendLine(ctx, leads.SubscribersKey, line, "subscribe: "+sub.Email)
	}
	if err != nil {
		h.logger.WarnContext(ctx, "subscriber ledger append failed", "email", sub.Email, "error", err)
		steps = append(steps, "ledger=error")
	} else {
		steps = append(steps, "ledger=ok")
	}

	// Lead webhook.
	if h.notifier.BestEffort(ctx, "lead", h.cfg.LeadWebhookURL, map[string]any{
		"type":   "subscribe",
		"email":  sub.Email,
		"source": sub.Source,
		"path":   sub.Path,
	}) {
		steps = append(steps, "webhook=ok")
	} else {
		steps = append(steps, "webhook=skip")
	}

	// Welcome email.
	switch {
	case !h.cfg.EmailConfigured():
		steps = append(steps, "email=skip")
	default:
		_, sendErr := h.mailer.Send(ctx, email.Message{
			From:    h.cfg.EmailFrom,
			To:      []string{sub.Email},
			Subject: "Bienvenue dans la newsletter À la Brestoise",
			HTML:    welcomeHTML,
		})
		if sendErr != nil {
			h.logger.WarnContext(ctx, "welcome email failed", "email", sub.Email, "error", sendErr)
			steps = append(steps, "email=error")
		} else {
			steps = append(steps, "email=ok")
		}
	}

	w.Header().Set(debugHeader, strings.Join(steps, ","))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

const welcomeHTML = `<p>Merci pour votre inscription !</p>
<p>Vous recevrez les prochaines nouvelles d'À la Brestoise directement dans votre boîte mail.</p>`
