package model

// Company is the full company record embedded in a job detail page.
type Company struct {
	ID            string   `json:"_id"`
	Key           string   `json:"key"`
	Name          string   `json:"name"`
	Website       string   `json:"website,omitempty"`
	Size          string   `json:"size,omitempty"`
	Founded       int      `json:"founded,omitempty"`
	LogoPath      string   `json:"logoPath,omitempty"`
	LogoWidth     int      `json:"logoWidth,omitempty"`
	LogoHeight    int      `json:"logoHeight,omitempty"`
	IntroVideoURL string   `json:"introVideoUrl,omitempty"`
	WhatWeDo      string   `json:"whatWeDo,omitempty"`
	Perks         []string `json:"perks,omitempty"`
	GalleryImages []string `json:"galleryImages,omitempty"`
}

// DetailRecord is the full job record extracted from the embedded state of a
// detail page. Timestamps stay as the upstream strings; the validator checks
// their format.
type DetailRecord struct {
	ID                string   `json:"_id"`
	Key               string   `json:"key"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	DescriptionLength int      `json:"descriptionLength,omitempty"`
	Salary            string   `json:"salary,omitempty"`
	SalaryFrom        *int     `json:"salaryFrom,omitempty"`
	SalaryTo          *int     `json:"salaryTo,omitempty"`
	Equity            string   `json:"equity,omitempty"`
	Status            string   `json:"status,omitempty"`
	Role              string   `json:"role,omitempty"`
	PositionTypes     []string `json:"jobPositionTypes,omitempty"`
	Location          string   `json:"location,omitempty"`
	IsRemote          bool     `json:"isRemote"`
	IsFeatured        bool     `json:"isFeatured"`
	Views             int      `json:"views,omitempty"`
	AppliedCount      int      `json:"appliedCount,omitempty"`
	Link              string   `json:"link,omitempty"`
	SocialImageURL    string   `json:"socialImageUrl,omitempty"`
	CreatedAt         string   `json:"createdAt"`
	ApprovedAt        string   `json:"approvedAt,omitempty"`
	PublishedAt       string   `json:"publishedAt,omitempty"`
	ExpirationDate    string   `json:"expirationDate,omitempty"`
	Company           Company  `json:"company"`
}

// OutputRecord is the canonical validated unit handed to the output sink.
type OutputRecord struct {
	URL               string   `json:"url"`
	ID                string   `json:"id"`
	Key               string   `json:"key"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	DescriptionText   string   `json:"descriptionText,omitempty"`
	DescriptionLength int      `json:"descriptionLength,omitempty"`
	Salary            string   `json:"salary,omitempty"`
	SalaryFrom        *int     `json:"salaryFrom,omitempty"`
	SalaryTo          *int     `json:"salaryTo,omitempty"`
	Equity            string   `json:"equity,omitempty"`
	Status            string   `json:"status,omitempty"`
	Role              string   `json:"role,omitempty"`
	PositionTypes     []string `json:"jobPositionTypes,omitempty"`
	Location          string   `json:"location,omitempty"`
	IsRemote          bool     `json:"isRemote"`
	IsFeatured        bool     `json:"isFeatured"`
	Views             int      `json:"views,omitempty"`
	AppliedCount      int      `json:"appliedCount,omitempty"`
	CompanyName       string   `json:"companyName"`
	CompanyKey        string   `json:"companyKey,omitempty"`
	CompanyWebsite    string   `json:"companyWebsite,omitempty"`
	CompanySize       string   `json:"companySize,omitempty"`
	CompanyFounded    int      `json:"companyFounded,omitempty"`
	LogoURL           string   `json:"logoUrl,omitempty"`
	SocialImageURL    string   `json:"socialImageUrl,omitempty"`
	IntroVideoURL     string   `json:"introVideoUrl,omitempty"`
	WhatWeDo          string   `json:"whatWeDo,omitempty"`
	Perks             []string `json:"perks,omitempty"`
	GalleryImages     []string `json:"galleryImages,omitempty"`
	Link              *string  `json:"link,omitempty"`
	CreatedAt         string   `json:"createdAt"`
	ApprovedAt        string   `json:"approvedAt,omitempty"`
	PublishedAt       string   `json:"publishedAt"`
	ExpirationDate    string   `json:"expirationDate,omitempty"`
	ScrapedAt         string   `json:"scrapedAt"`
}

// FailureRecord is the placeholder written to the sink when a single job
// cannot be scraped, so runs stay auditable.
type FailureRecord struct {
	URL      string `json:"url"`
	JobID    string `json:"jobId,omitempty"`
	Error    string `json:"error"`
	FailedAt string `json:"failedAt"`
}
