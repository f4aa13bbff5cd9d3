package server

import (
	"encoding/base64"
	"net/http"
	"regexp"
	"strings"

	"github.com/alabrestoise/siteapi/internal/apperrors"
)

const (
	uploadPrefix = "public/images/uploads"

	// maxUploadBytes caps the decoded image size at 5 MB.
	maxUploadBytes = 5 << 20
)

var (
	slugPattern     = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	fileNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)
)

// uploadRequest is the body of POST /api/upload-image.
type uploadRequest struct {
	Slug     string `json:"slug"`
	FileName string `json:"fileName"`
	// Content is the base64-encoded image, optionally a data URL.
	Content string `json:"content"`
}

// validate checks the upload payload and returns the decoded bytes.
func (u *uploadRequest) validate() ([]byte, error) {
	if !slugPattern.MatchString(u.Slug) {
		return nil, apperrors.New(apperrors.KindValidation, "slug must contain only lowercase letters, numbers, and hyphens")
	}
	if !fileNamePattern.MatchString(u.FileName) || strings.Contains(u.FileName, "..") {
		return nil, apperrors.New(apperrors.KindValidation, "invalid file name")
	}
	if u.Content == "" {
		return nil, apperrors.New(apperrors.KindValidation, "content is required")
	}

	raw := u.Content
	// Accept "data:image/png;base64,..." payloads from the admin UI.
	if idx := strings.Index(raw, ";base64,"); strings.HasPrefix(raw, "data:") && idx >= 0 {
		raw = raw[idx+len(";base64,"):]
	}

	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "content is not valid base64", err)
	}
	if len(decoded) == 0 {
		return nil, apperrors.New(apperrors.KindValidation, "content is empty")
	}
	if len(decoded) > maxUploadBytes {
		return nil, apperrors.Newf(apperrors.KindValidation, "content exceeds %d bytes", maxUploadBytes)
	}

	return decoded, nil
}

// HandleUpload handles POST /api/upload-image (admin): decode the payload
// and write it into the content store under the uploads prefix.
func (h *Handler) HandleUpload(w http.ResponseWriter, req *http.Request) {
	if !h.requireAdmin(w, req) {
		return
	}
	ctx := req.Context()

	var payload uploadRequest
	if err := decodeJSON(req, &payload); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"ok": false, "error": "invalid JSON body"})
		return
	}

	decoded, err := payload.validate()
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"ok": false, "error": err.Error()})
		return
	}

	key := uploadPrefix + "/" + payload.Slug + "/" + payload.FileName
	if _, err := h.content.Write(ctx, key, decoded, "", "upload "+payload.FileName); err != nil {
		h.logger.ErrorContext(ctx, "upload write failed", "key", key, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "upload failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "path": "/" + key})
}
