package normalize

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eujobs/scraper/internal/model"
)

const (
	testImageBase = "https://eujobs.imgix.net"
	testSourceURL = "https://eujobs.co/jobs/abc123"
)

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func detailFixture() *model.DetailRecord {
	return &model.DetailRecord{
		ID:            "abc123",
		Key:           "backend-engineer",
		Title:         "Backend Engineer",
		Description:   "<p>Build <strong>reliable</strong> services.</p>",
		PositionTypes: []string{"full_time"},
		Location:      "Berlin, Germany",
		IsRemote:      true,
		Link:          "https://apply.example.com/abc123",
		CreatedAt:     "2024-03-01T10:00:00Z",
		PublishedAt:   "2024-03-02T08:30:00Z",
		Company: model.Company{
			ID:       "c1",
			Name:     "Acme GmbH",
			LogoPath: "/files/x.jpg",
		},
	}
}

func TestNormalizeDerivesLogoURL(t *testing.T) {
	n := New(testImageBase, fixedClock)

	rec, err := n.Normalize(detailFixture(), testSourceURL)
	require.NoError(t, err)
	require.Equal(t, "https://eujobs.imgix.net/files/x.jpg?fit=crop&w=300&h=300&auto=format&q=60", rec.LogoURL)
}

func TestNormalizeNoLogoPathNoLogoURL(t *testing.T) {
	n := New(testImageBase, fixedClock)

	detail := detailFixture()
	detail.Company.LogoPath = ""
	rec, err := n.Normalize(detail, testSourceURL)
	require.NoError(t, err)
	require.Empty(t, rec.LogoURL)
}

func TestNormalizePublishedAtFallback(t *testing.T) {
	n := New(testImageBase, fixedClock)

	detail := detailFixture()
	detail.PublishedAt = ""
	rec, err := n.Normalize(detail, testSourceURL)
	require.NoError(t, err)
	require.Equal(t, detail.CreatedAt, rec.PublishedAt)
}

func TestNormalizeEmptyLinkIsAbsent(t *testing.T) {
	n := New(testImageBase, fixedClock)

	detail := detailFixture()
	detail.Link = ""
	rec, err := n.Normalize(detail, testSourceURL)
	require.NoError(t, err)
	require.Nil(t, rec.Link)

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	require.NotContains(t, string(raw), `"link"`)
}

func TestNormalizePositionTypeLabels(t *testing.T) {
	n := New(testImageBase, fixedClock)

	detail := detailFixture()
	detail.PositionTypes = []string{"full_time", "internship", "gig_work"}
	rec, err := n.Normalize(detail, testSourceURL)
	require.NoError(t, err)

	// Unrecognized identifiers pass through so new upstream categories
	// survive until the mapping is updated.
	require.Equal(t, []string{"Full-time", "Internship", "gig_work"}, rec.PositionTypes)
}

func TestNormalizeStampsScrapedAt(t *testing.T) {
	n := New(testImageBase, fixedClock)

	rec, err := n.Normalize(detailFixture(), testSourceURL)
	require.NoError(t, err)
	require.Equal(t, "2024-05-01T12:00:00Z", rec.ScrapedAt)
}

func TestNormalizeFlattensDescription(t *testing.T) {
	n := New(testImageBase, fixedClock)

	rec, err := n.Normalize(detailFixture(), testSourceURL)
	require.NoError(t, err)
	require.Equal(t, "Build reliable services.", rec.DescriptionText)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	n := New(testImageBase, fixedClock)

	first, err := n.Normalize(detailFixture(), testSourceURL)
	require.NoError(t, err)
	second, err := n.Normalize(detailFixture(), testSourceURL)
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	require.Equal(t, firstJSON, secondJSON)
}

func TestValidateAccumulatesAllViolations(t *testing.T) {
	n := New(testImageBase, fixedClock)

	detail := detailFixture()
	detail.Title = ""
	detail.ExpirationDate = "06/01/2024"
	_, err := n.Normalize(detail, "not a url")

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Violations, 3)

	fields := make(map[string]string, len(verr.Violations))
	for _, v := range verr.Violations {
		fields[v.Field] = v.Reason
	}
	require.Contains(t, fields, "title")
	require.Contains(t, fields, "url")
	require.Contains(t, fields, "expirationDate")
}

func TestValidateRejectsNonHTTPSchemes(t *testing.T) {
	n := New(testImageBase, fixedClock)

	detail := detailFixture()
	detail.Link = "ftp://apply.example.com/abc123"
	_, err := n.Normalize(detail, testSourceURL)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "link", verr.Violations[0].Field)
}

func TestValidateDateFormats(t *testing.T) {
	n := New(testImageBase, fixedClock)

	detail := detailFixture()
	detail.ExpirationDate = "2024-06-01"
	rec, err := n.Normalize(detail, testSourceURL)
	require.NoError(t, err)
	require.Equal(t, "2024-06-01", rec.ExpirationDate)

	detail.CreatedAt = "yesterday"
	_, err = n.Normalize(detail, testSourceURL)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
}
