package listing

// CompanySummary is the lightweight company shape embedded in listing docs.
type CompanySummary struct {
	ID       string `json:"_id"`
	Key      string `json:"key"`
	Name     string `json:"name"`
	Website  string `json:"website,omitempty"`
	Size     string `json:"size,omitempty"`
	Founded  int    `json:"founded,omitempty"`
	LogoPath string `json:"logoPath,omitempty"`
}

// Summary is one job reference returned by the listing endpoint. It is
// superseded once the corresponding detail record is fetched.
type Summary struct {
	ID            string         `json:"_id"`
	Key           string         `json:"key"`
	Title         string         `json:"title"`
	Location      string         `json:"location,omitempty"`
	IsRemote      bool           `json:"isRemote"`
	PositionTypes []string       `json:"jobPositionTypes,omitempty"`
	IsFeatured    bool           `json:"isFeatured"`
	Views         int            `json:"views,omitempty"`
	AppliedCount  int            `json:"appliedCount,omitempty"`
	Company       CompanySummary `json:"company"`
}

// Page is one listing API response. Featured is populated only for page 1;
// the upstream returns featured docs alongside the first regular page.
type Page struct {
	Total       int       `json:"total"`
	Limit       int       `json:"limit"`
	Number      int       `json:"page"`
	Pages       int       `json:"pages"`
	Suggestions []string  `json:"suggestions,omitempty"`
	Docs        []Summary `json:"docs"`
	Featured    []Summary `json:"-"`
}

type apiResponse struct {
	Jobs struct {
		Total       int       `json:"total"`
		Limit       int       `json:"limit"`
		Page        int       `json:"page"`
		Pages       int       `json:"pages"`
		Suggestions []string  `json:"suggestions"`
		Docs        []Summary `json:"docs"`
	} `json:"jobs"`
	FeaturedJobs struct {
		Total int       `json:"total"`
		Docs  []Summary `json:"docs"`
	} `json:"featuredJobs"`
}
