package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/eujobs/scraper/internal/model"
	"github.com/eujobs/scraper/internal/urlutil"
)

// Violation is one schema constraint failure with its field path.
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError carries every violated constraint of a record, not just
// the first one encountered.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s: %s", v.Field, v.Reason)
	}
	return "record validation failed: " + strings.Join(parts, "; ")
}

const dateOnlyFormat = "2006-01-02"

// Validate checks an output record against the sink contract: required
// fields non-empty, URL fields absolute http(s), date and date-time fields
// in their declared formats. All violations are accumulated.
func Validate(rec *model.OutputRecord) error {
	var violations []Violation
	add := func(field, reason string) {
		violations = append(violations, Violation{Field: field, Reason: reason})
	}

	required := []struct {
		field string
		value string
	}{
		{"id", rec.ID},
		{"title", rec.Title},
		{"description", rec.Description},
		{"companyName", rec.CompanyName},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			add(r.field, "must not be empty")
		}
	}

	if rec.URL == "" {
		add("url", "must not be empty")
	} else if !urlutil.IsAbsoluteHTTP(rec.URL) {
		add("url", "must be an absolute http(s) URL")
	}

	optionalURLs := []struct {
		field string
		value string
	}{
		{"logoUrl", rec.LogoURL},
		{"socialImageUrl", rec.SocialImageURL},
		{"introVideoUrl", rec.IntroVideoURL},
		{"companyWebsite", rec.CompanyWebsite},
	}
	for _, u := range optionalURLs {
		if u.value != "" && !urlutil.IsAbsoluteHTTP(u.value) {
			add(u.field, "must be an absolute http(s) URL")
		}
	}
	if rec.Link != nil && !urlutil.IsAbsoluteHTTP(*rec.Link) {
		add("link", "must be an absolute http(s) URL")
	}

	requiredInstants := []struct {
		field string
		value string
	}{
		{"createdAt", rec.CreatedAt},
		{"publishedAt", rec.PublishedAt},
		{"scrapedAt", rec.ScrapedAt},
	}
	for _, d := range requiredInstants {
		if d.value == "" {
			add(d.field, "must not be empty")
			continue
		}
		if _, err := time.Parse(time.RFC3339, d.value); err != nil {
			add(d.field, "must be an ISO-8601 instant")
		}
	}
	if rec.ApprovedAt != "" {
		if _, err := time.Parse(time.RFC3339, rec.ApprovedAt); err != nil {
			add("approvedAt", "must be an ISO-8601 instant")
		}
	}
	if rec.ExpirationDate != "" {
		if _, err := time.Parse(dateOnlyFormat, rec.ExpirationDate); err != nil {
			add("expirationDate", "must match YYYY-MM-DD")
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}
