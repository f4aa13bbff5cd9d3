package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/alabrestoise/siteapi/internal/apperrors"
	"github.com/alabrestoise/siteapi/internal/leads"
)

// HandleTestimonialSubmit handles POST /api/testimonial: append a pending
// testimonial to the collection document.
func (h *Handler) HandleTestimonialSubmit(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var payload struct {
		Name string `json:"name"`
		Role string `json:"role"`
		Text string `json:"text"`
	}
	if err := decodeJSON(req, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid JSON body"})
		return
	}

	payload.Name = strings.TrimSpace(payload.Name)
	payload.Text = strings.TrimSpace(payload.Text)
	if payload.Name == "" || payload.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "name and text are required"})
		return
	}

	entry := leads.NewTestimonial(payload.Name, strings.TrimSpace(payload.Role), payload.Text, time.Now())

	_, err := h.content.Update(ctx, leads.TestimonialsKey, "testimonial: "+entry.Name,
		func(current []byte, _ bool) ([]byte, error) {
			list, decodeErr := leads.DecodeTestimonials(current)
			if decodeErr != nil {
				return nil, decodeErr
			}
			return leads.EncodeTestimonials(append(list, entry))
		})
	if err != nil {
		h.logger.ErrorContext(ctx, "testimonial write failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "could not save testimonial"})
		return
	}

	h.notifier.BestEffort(ctx, "lead", h.cfg.LeadWebhookURL, map[string]any{
		"type": "testimonial",
		"name": entry.Name,
	})

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": entry.ID})
}

// HandleTestimonialList handles GET /api/testimonials (admin): the full
// collection, including pending and rejected entries.
func (h *Handler) HandleTestimonialList(w http.ResponseWriter, req *http.Request) {
	if !h.requireAdmin(w, req) {
		return
	}
	ctx := req.Context()

	doc, err := h.content.Read(ctx, leads.TestimonialsKey)
	if err != nil && !apperrors.IsKind(err, apperrors.KindNotFound) {
		h.logger.ErrorContext(ctx, "testimonial read failed", "error", err)
		writeJSON(w, statusFromError(err), map[string]any{"ok": false, "error": "could not read testimonials"})
		return
	}

	list, err := leads.DecodeTestimonials(doc.Content)
	if err != nil {
		writeJSON(w, statusFromError(err), map[string]any{"ok": false, "error": "could not decode testimonials"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "data": list})
}

// HandleTestimonialStatus handles PATCH /api/testimonials/{id} (admin):
// transition a testimonial to published or rejected.
func (h *Handler) HandleTestimonialStatus(w http.ResponseWriter, req *http.Request) {
	if !h.requireAdmin(w, req) {
		return
	}
	ctx := req.Context()
	id := req.PathValue("id")

	var payload struct {
		Status leads.TestimonialStatus `json:"status"`
	}
	if err := decodeJSON(req, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid JSON body"})
		return
	}

	if !leads.ValidTransition(payload.Status) {
		writeJSON(w, http.StatusUnprocessableEntity,
			map[string]any{"ok": false, "error": "status must be published or rejected"})
		return
	}

	_, err := h.content.Update(ctx, leads.TestimonialsKey, "testimonial "+id+": "+string(payload.Status),
		func(current []byte, _ bool) ([]byte, error) {
			list, decodeErr := leads.DecodeTestimonials(current)
			if decodeErr != nil {
				return nil, decodeErr
			}
			list, found := leads.SetStatus(list, id, payload.Status)
			if !found {
				return nil, apperrors.New(apperrors.KindNotFound, "testimonial not found: "+id)
			}
			return leads.EncodeTestimonials(list)
		})
	if err != nil {
		status := statusFromError(err)
		if status >= http.StatusInternalServerError {
			h.logger.ErrorContext(ctx, "testimonial status update failed", "id", id, "error", err)
		}
		writeJSON(w, status, map[string]any{"ok": false, "error": "could not update testimonial"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// HandleTestimonialDelete handles DELETE /api/testimonials/{id} (admin):
// rewrite the collection without the entry.
func (h *Handler) HandleTestimonialDelete(w http.ResponseWriter, req *http.Request) {
	if !h.requireAdmin(w, req) {
		return
	}
	ctx := req.Context()
	id := req.PathValue("id")

	_, err := h.content.Update(ctx, leads.TestimonialsKey, "remove testimonial "+id,
		func(current []byte, _ bool) ([]byte, error) {
			list, decodeErr := leads.DecodeTestimonials(current)
			if decodeErr != nil {
				return nil, decodeErr
			}
			list, found := leads.Remove(list, id)
			if !found {
				return nil, apperrors.New(apperrors.KindNotFound, "testimonial not found: "+id)
			}
			return leads.EncodeTestimonials(list)
		})
	if err != nil {
		status := statusFromError(err)
		if status >= http.StatusInternalServerError {
			h.logger.ErrorContext(ctx, "testimonial delete failed", "id", id, "error", err)
		}
		writeJSON(w, status, map[string]any{"ok": false, "error": "could not delete testimonial"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
