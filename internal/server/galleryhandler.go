package server

import (
	"net/http"

	"github.com/alabrestoise/siteapi/internal/apperrors"
	"github.com/alabrestoise/siteapi/internal/gallery"
)

// HandleGalleryGet handles GET /api/home-gallery. A document that does not
// exist yet yields the empty default; an upstream read failure is reported
// as 502 rather than masked as an empty gallery.
func (h *Handler) HandleGalleryGet(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	doc, err := h.content.Read(ctx, gallery.Key)
	if apperrors.IsKind(err, apperrors.KindNotFound) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": gallery.Default()})
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "gallery read failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{"success": false, "error": "content store unavailable"})
		return
	}

	g, err := gallery.Decode(doc.Content)
	if err != nil {
		h.logger.ErrorContext(ctx, "gallery decode failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{"success": false, "error": "invalid gallery document"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": g})
}

// HandleGalleryPut handles PUT /api/home-gallery (admin): validate, assign
// ids, replace the whole document, then fire the deploy hook best-effort.
// Validation happens before any store call.
func (h *Handler) HandleGalleryPut(w http.ResponseWriter, req *http.Request) {
	if !h.requireAdmin(w, req) {
		return
	}
	ctx := req.Context()

	var g gallery.Gallery
	if err := decodeJSON(req, &g); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid JSON body"})
		return
	}
	if g.Title == "" {
		g.Title = gallery.Default().Title
	}
	if g.Items == nil {
		g.Items = []gallery.Item{}
	}

	if err := g.Validate(); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"success": false, "error": err.Error()})
		return
	}
	g.EnsureIDs()

	encoded, err := g.Encode()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "encode failed"})
		return
	}

	_, err = h.content.Update(ctx, gallery.Key, "update home gallery",
		func(_ []byte, _ bool) ([]byte, error) {
			return encoded, nil
		})
	if err != nil {
		status := statusFromError(err)
		if status == http.StatusConflict {
			h.logger.WarnContext(ctx, "gallery write conflict", "error", err)
			writeJSON(w, status, map[string]any{"success": false, "error": "concurrent update, retry"})
			return
		}
		h.logger.ErrorContext(ctx, "gallery write failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{"success": false, "error": "content store write failed"})
		return
	}

	// Trigger a site rebuild; failure is logged and ignored.
	h.notifier.BestEffort(ctx, "deploy", h.cfg.DeployHookURL, map[string]any{"reason": "home-gallery"})

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    g,
		"mode":    h.content.Mode(),
	})
}
