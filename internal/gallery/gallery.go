// Package gallery models the home-page image gallery document.
package gallery

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/alabrestoise/siteapi/internal/apperrors"
)

// Key is the document key of the gallery in the content store.
const Key = "content/home/gallery.json"

// MaxItems caps the gallery size.
const MaxItems = 15

// Item is one gallery image.
type Item struct {
	ID          string `json:"id"`
	Src         string `json:"src"`
	Alt         string `json:"alt,omitempty"`
	Description string `json:"description,omitempty"`
}

// Gallery is the home-page gallery document.
type Gallery struct {
	Title string `json:"title"`
	Items []Item `json:"items"`
}

// Default is the gallery served when the document does not exist yet.
func Default() Gallery {
	return Gallery{Title: "Galerie", Items: []Item{}}
}

// Validate checks the gallery invariants: at most MaxItems entries, every
// item with a non-empty src.
func (g *Gallery) Validate() error {
	if len(g.Items) > MaxItems {
		return apperrors.Newf(apperrors.KindValidation, "gallery cannot exceed %d items (got %d)", MaxItems, len(g.Items))
	}
	for i, item := range g.Items {
		if item.Src == "" {
			return apperrors.Newf(apperrors.KindValidation, "gallery item %d has an empty src", i)
		}
	}
	return nil
}

// EnsureIDs assigns a generated id to any item missing one.
func (g *Gallery) EnsureIDs() {
	for i := range g.Items {
		if g.Items[i].ID == "" {
			g.Items[i].ID = uuid.NewString()
		}
	}
}

// Decode parses a stored gallery document.
func Decode(data []byte) (Gallery, error) {
	var g Gallery
	if err := json.Unmarshal(data, &g); err != nil {
		return Gallery{}, apperrors.Wrap(apperrors.KindUpstream, "decode gallery document", err)
	}
	if g.Items == nil {
		g.Items = []Item{}
	}
	return g, nil
}

// Encode serializes the gallery for storage. Output is indented so the
// document stays reviewable in the content repository's history.
func (g Gallery) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode gallery: %w", err)
	}
	return append(data, '\n'), nil
}
