// Package leads models visitor-submitted records: newsletter subscriptions,
// contact-form messages, and testimonials awaiting review.
package leads

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// SubscribersKey is the document key of the subscriber ledger.
const SubscribersKey = "data/subscribers.csv"

// TestimonialsKey is the document key of the testimonial collection.
const TestimonialsKey = "data/testimonials.json"

// emailPattern is deliberately loose: anything shaped like user@host.tld.
var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// ValidEmail reports whether s is an acceptable email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// Subscription is one newsletter signup.
type Subscription struct {
	Email     string `json:"email"`
	Source    string `json:"source,omitempty"`
	Path      string `json:"path,omitempty"`
	UserAgent string `json:"ua,omitempty"`

	// Filled in server-side from the request.
	IP     string `json:"-"`
	Origin string `json:"-"`
}

// LedgerLine renders the subscription as one CSV ledger line (without
// trailing newline): timestamp,email,source,ip,origin,path,userAgent.
func (s Subscription) LedgerLine(now time.Time) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	record := []string{
		now.UTC().Format(time.RFC3339),
		s.Email,
		s.Source,
		s.IP,
		s.Origin,
		s.Path,
		s.UserAgent,
	}
	if err := w.Write(record); err != nil {
		return "", fmt.Errorf("encode ledger line: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("encode ledger line: %w", err)
	}
	return strings.TrimRight(buf.String(), "\r\n"), nil
}

// ContactMessage is a contact-form submission.
type ContactMessage struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	ProjectType string `json:"projectType"`
	Message     string `json:"message"`
	Consent     bool   `json:"consent"`

	Company string `json:"company,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Budget  string `json:"budget,omitempty"`
}

// MissingField returns the name of the first missing required field, or "".
// Consent counts as missing when false: a message without consent is never
// processed.
func (m *ContactMessage) MissingField() string {
	switch {
	case strings.TrimSpace(m.FullName) == "":
		return "fullName"
	case strings.TrimSpace(m.Email) == "":
		return "email"
	case strings.TrimSpace(m.ProjectType) == "":
		return "projectType"
	case strings.TrimSpace(m.Message) == "":
		return "message"
	case !m.Consent:
		return "consent"
	}
	return ""
}
