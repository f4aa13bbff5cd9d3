package leads

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alabrestoise/siteapi/internal/apperrors"
)

// TestimonialStatus is the review state of a testimonial.
type TestimonialStatus string

const (
	// StatusPending marks a freshly submitted testimonial awaiting review.
	StatusPending TestimonialStatus = "pending"
	// StatusPublished marks a testimonial approved for display.
	StatusPublished TestimonialStatus = "published"
	// StatusRejected marks a testimonial excluded from display.
	StatusRejected TestimonialStatus = "rejected"
)

// ValidTransition reports whether an operator may move a testimonial to the
// given status. Only published and rejected are reachable from pending.
func ValidTransition(status TestimonialStatus) bool {
	return status == StatusPublished || status == StatusRejected
}

// Testimonial is one visitor-submitted testimonial.
type Testimonial struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Role      string            `json:"role,omitempty"`
	Text      string            `json:"text"`
	Status    TestimonialStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
}

// NewTestimonial creates a pending testimonial with a generated id.
func NewTestimonial(name, role, text string, now time.Time) Testimonial {
	return Testimonial{
		ID:        uuid.NewString(),
		Name:      name,
		Role:      role,
		Text:      text,
		Status:    StatusPending,
		CreatedAt: now.UTC(),
	}
}

// DecodeTestimonials parses the stored collection document.
func DecodeTestimonials(data []byte) ([]Testimonial, error) {
	if len(data) == 0 {
		return []Testimonial{}, nil
	}
	var list []Testimonial
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, apperrors.Wrap(apperrors.KindUpstream, "decode testimonial collection", err)
	}
	return list, nil
}

// EncodeTestimonials serializes the collection for storage.
func EncodeTestimonials(list []Testimonial) ([]byte, error) {
	if list == nil {
		list = []Testimonial{}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode testimonial collection: %w", err)
	}
	return append(data, '\n'), nil
}

// SetStatus transitions the testimonial with the given id. It returns the
// updated collection and whether the id was found.
func SetStatus(list []Testimonial, id string, status TestimonialStatus) ([]Testimonial, bool) {
	for i := range list {
		if list[i].ID == id {
			list[i].Status = status
			return list, true
		}
	}
	return list, false
}

// Remove deletes the testimonial with the given id by rewriting the
// collection without it. It returns the new collection and whether the id
// was found.
func Remove(list []Testimonial, id string) ([]Testimonial, bool) {
	for i := range list {
		if list[i].ID == id {
			return append(list[:i:i], list[i+1:]...), true
		}
	}
	return list, false
}
