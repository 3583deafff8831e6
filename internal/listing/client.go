package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"

	"github.com/eujobs/scraper/internal/region"
)

// fallbackPageSize mirrors the fixed upstream page size, used only when a
// response omits the limit field. The size is dictated by the service and is
// never sent as a request parameter.
const fallbackPageSize = 15

// APIError reports a non-success status or an undecodable body from the
// listing API. It is fatal to the region's aggregation.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("listing api error (status %d)", e.Status)
	}
	return fmt.Sprintf("listing api error (status %d): %s", e.Status, e.Message)
}

// Client fetches paginated listing summaries for one region. It does not
// retry; transport retries belong to the crawling collaborator.
type Client struct {
	http *resty.Client
}

func NewClient(apiBase, userAgent string) *Client {
	c := resty.New()
	c.SetBaseURL(apiBase)
	c.SetHeader("user-agent", userAgent)
	c.SetTimeout(15 * time.Second)
	return &Client{http: c}
}

// FetchPage requests one page of listings for a region. The remote
// pseudo-region is encoded as isRemote=true: the upstream has no REMOTE
// country code, and sending one returns a structurally valid empty page that
// would be indistinguishable from "no remote jobs".
func (c *Client) FetchPage(ctx context.Context, r region.Filter, page int) (*Page, error) {
	if !region.IsValid(r) {
		return nil, fmt.Errorf("unrecognized region filter %q", r)
	}
	if page < 1 {
		return nil, fmt.Errorf("page must be positive, got %d", page)
	}

	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("page", strconv.Itoa(page)).
		SetQueryParam("sorting", "popular")
	if r == region.Remote {
		req.SetQueryParam("isRemote", "true")
	} else {
		req.SetQueryParam("countryCode", string(r))
	}

	resp, err := req.Get("/jobsandfeatured")
	if err != nil {
		return nil, fmt.Errorf("listing fetch failed: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Status: resp.StatusCode(), Message: resp.Status()}
	}

	var body apiResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, &APIError{Status: resp.StatusCode(), Message: fmt.Sprintf("decode failed: %v", err)}
	}

	p := &Page{
		Total:       body.Jobs.Total,
		Limit:       body.Jobs.Limit,
		Number:      body.Jobs.Page,
		Pages:       body.Jobs.Pages,
		Suggestions: body.Jobs.Suggestions,
		Docs:        body.Jobs.Docs,
	}
	if page == 1 {
		p.Featured = body.FeaturedJobs.Docs
	}
	return p, nil
}

// FetchAllForRegion walks every page of a region's listings. Page 1 is
// fetched alone first because only it reveals the total page count and the
// featured docs; the remaining pages are fetched concurrently. A limit > 0
// bounds both the returned summaries and the pages requested.
func (c *Client) FetchAllForRegion(ctx context.Context, r region.Filter, limit int) ([]Summary, error) {
	first, err := c.FetchPage(ctx, r, 1)
	if err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(first.Featured)+len(first.Docs))
	out = append(out, first.Featured...)
	out = append(out, first.Docs...)
	if limit > 0 && len(out) >= limit {
		return out[:limit], nil
	}
	if first.Pages <= 1 {
		return out, nil
	}

	lastPage := first.Pages
	if limit > 0 {
		pageSize := first.Limit
		if pageSize <= 0 {
			pageSize = fallbackPageSize
		}
		needed := limit - len(out)
		extraPages := (needed + pageSize - 1) / pageSize
		if 1+extraPages < lastPage {
			lastPage = 1 + extraPages
		}
	}

	pages, err := c.fetchPageRange(ctx, r, 2, lastPage)
	if err != nil {
		return nil, err
	}
	for _, p := range pages {
		out = append(out, p.Docs...)
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	slog.Debug("fetched region listings", "region", r, "pages", lastPage, "summaries", len(out))
	return out, nil
}

// fetchPageRange fetches pages from..to concurrently and returns them in
// page order regardless of completion order.
func (c *Client) fetchPageRange(ctx context.Context, r region.Filter, from, to int) ([]*Page, error) {
	g, ctx := errgroup.WithContext(ctx)
	pages := make([]*Page, to-from+1)
	for page := from; page <= to; page++ {
		page := page
		g.Go(func() error {
			p, err := c.FetchPage(ctx, r, page)
			if err != nil {
				return err
			}
			pages[page-from] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}
