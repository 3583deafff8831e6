package normalize

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/eujobs/scraper/internal/model"
)

// Image composition parameters are fixed by the output contract.
const imageQuery = "fit=crop&w=300&h=300&auto=format&q=60"

// positionTypeLabels translates upstream position-type identifiers into
// human-readable labels. Unrecognized identifiers pass through unchanged so
// new upstream categories survive until the mapping is updated.
var positionTypeLabels = map[string]string{
	"full_time":  "Full-time",
	"part_time":  "Part-time",
	"internship": "Internship",
	"freelance":  "Freelance",
	"contract":   "Contract",
}

// Normalizer maps extracted detail records into validated output records.
type Normalizer struct {
	imageBase string
	now       func() time.Time
}

func New(imageBase string, now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{
		imageBase: strings.TrimSuffix(imageBase, "/"),
		now:       now,
	}
}

// Normalize builds the canonical output record for one job and validates it.
// Derivations: logo URL composition, position-type label translation,
// publishedAt falling back to createdAt, empty link normalized to absent,
// and a scrape timestamp from the injected clock.
func (n *Normalizer) Normalize(detail *model.DetailRecord, sourceURL string) (*model.OutputRecord, error) {
	rec := &model.OutputRecord{
		URL:               sourceURL,
		ID:                detail.ID,
		Key:               detail.Key,
		Title:             detail.Title,
		Description:       detail.Description,
		DescriptionText:   flattenHTML(detail.Description),
		DescriptionLength: detail.DescriptionLength,
		Salary:            detail.Salary,
		SalaryFrom:        detail.SalaryFrom,
		SalaryTo:          detail.SalaryTo,
		Equity:            detail.Equity,
		Status:            detail.Status,
		Role:              detail.Role,
		PositionTypes:     translatePositionTypes(detail.PositionTypes),
		Location:          detail.Location,
		IsRemote:          detail.IsRemote,
		IsFeatured:        detail.IsFeatured,
		Views:             detail.Views,
		AppliedCount:      detail.AppliedCount,
		CompanyName:       detail.Company.Name,
		CompanyKey:        detail.Company.Key,
		CompanyWebsite:    detail.Company.Website,
		CompanySize:       detail.Company.Size,
		CompanyFounded:    detail.Company.Founded,
		LogoURL:           n.composeLogoURL(detail.Company.LogoPath),
		SocialImageURL:    detail.SocialImageURL,
		IntroVideoURL:     detail.Company.IntroVideoURL,
		WhatWeDo:          detail.Company.WhatWeDo,
		Perks:             detail.Company.Perks,
		GalleryImages:     detail.Company.GalleryImages,
		CreatedAt:         detail.CreatedAt,
		ApprovedAt:        detail.ApprovedAt,
		PublishedAt:       detail.PublishedAt,
		ExpirationDate:    detail.ExpirationDate,
		ScrapedAt:         n.now().UTC().Format(time.RFC3339),
	}

	if rec.PublishedAt == "" {
		rec.PublishedAt = detail.CreatedAt
	}
	if link := strings.TrimSpace(detail.Link); link != "" {
		rec.Link = &link
	}

	if err := Validate(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// composeLogoURL resolves a relative logo path against the image service.
// An absent path yields no logo URL at all.
func (n *Normalizer) composeLogoURL(logoPath string) string {
	if logoPath == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s?%s", n.imageBase, strings.TrimPrefix(logoPath, "/"), imageQuery)
}

func translatePositionTypes(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		if label, ok := positionTypeLabels[id]; ok {
			out[i] = label
		} else {
			out[i] = id
		}
	}
	return out
}

// flattenHTML derives a plain-text rendition of the rich-text description.
func flattenHTML(content string) string {
	if content == "" {
		return ""
	}
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			sb.WriteByte(' ')
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return strings.Join(strings.Fields(sb.String()), " ")
}
