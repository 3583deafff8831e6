package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eujobs/scraper/internal/config"
	"github.com/eujobs/scraper/internal/extract"
	"github.com/eujobs/scraper/internal/listing"
	"github.com/eujobs/scraper/internal/model"
	"github.com/eujobs/scraper/internal/normalize"
	"github.com/eujobs/scraper/internal/region"
)

type fakeAggregator struct {
	summaries []listing.Summary
	err       error
	calls     int
}

func (f *fakeAggregator) FetchAllJobs(_ context.Context, _ []region.Filter, _ int) ([]listing.Summary, error) {
	f.calls++
	return f.summaries, f.err
}

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	seen  []string
}

func (f *fakeFetcher) FetchHTML(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	f.seen = append(f.seen, url)
	f.mu.Unlock()
	if err := f.errs[url]; err != nil {
		return "", err
	}
	page, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("unexpected url %s", url)
	}
	return page, nil
}

type memorySink struct {
	mu       sync.Mutex
	jobs     []*model.OutputRecord
	failures []*model.FailureRecord
	saveErr  error
}

func (s *memorySink) SaveJob(_ context.Context, rec *model.OutputRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.jobs = append(s.jobs, rec)
	return nil
}

func (s *memorySink) SaveFailure(_ context.Context, rec *model.FailureRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, rec)
	return nil
}

func detailPage(id, title string) string {
	payload := fmt.Sprintf(`(function(a){return {state:{jobs:{job:{_id:%q,title:%q,description:"<p>Ship it.</p>",createdAt:"2024-03-01T10:00:00Z",company:{_id:"c1",name:a}}}}}}("Acme GmbH"))`, id, title)
	return `<html><body><script>window.__NUXT__=` + payload + `;</script></body></html>`
}

func testConfig() *config.Config {
	return &config.Config{
		Regions:     []region.Filter{"DE"},
		MaxJobs:     0,
		SiteBase:    "https://eujobs.co",
		ImageBase:   "https://eujobs.imgix.net",
		Workers:     2,
		EvalTimeout: time.Second,
	}
}

func newTestPipeline(cfg *config.Config, agg Aggregator, fetcher Fetcher, sink Sink) *Pipeline {
	return New(
		cfg,
		agg,
		fetcher,
		extract.New(cfg.EvalTimeout),
		normalize.New(cfg.ImageBase, func() time.Time {
			return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		}),
		sink,
	)
}

func TestRunScrapesEveryListedJob(t *testing.T) {
	agg := &fakeAggregator{summaries: []listing.Summary{
		{ID: "j1", Title: "Job 1"},
		{ID: "j2", Title: "Job 2"},
	}}
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://eujobs.co/jobs/j1": detailPage("j1", "Job 1"),
		"https://eujobs.co/jobs/j2": detailPage("j2", "Job 2"),
	}}
	sink := &memorySink{}

	report, err := newTestPipeline(testConfig(), agg, fetcher, sink).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, report.Listed)
	require.Equal(t, 2, report.Scraped)
	require.Equal(t, 0, report.Failures)
	require.Len(t, sink.jobs, 2)
	require.Empty(t, sink.failures)
}

func TestRunRecordsPlaceholderAndContinues(t *testing.T) {
	agg := &fakeAggregator{summaries: []listing.Summary{
		{ID: "good"},
		{ID: "bad"},
	}}
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://eujobs.co/jobs/good": detailPage("good", "Good Job"),
		"https://eujobs.co/jobs/bad":  "<html><body>no embedded state here</body></html>",
	}}
	sink := &memorySink{}

	report, err := newTestPipeline(testConfig(), agg, fetcher, sink).Run(context.Background())
	require.NoError(t, err, "a single job failure must never abort the run")

	require.Equal(t, 1, report.Scraped)
	require.Equal(t, 1, report.Failures)
	require.Len(t, sink.jobs, 1)
	require.Len(t, sink.failures, 1)
	require.Equal(t, "https://eujobs.co/jobs/bad", sink.failures[0].URL)
	require.NotEmpty(t, sink.failures[0].Error)
	require.NotEmpty(t, sink.failures[0].FailedAt)
}

func TestRunValidationFailureBecomesPlaceholder(t *testing.T) {
	agg := &fakeAggregator{summaries: []listing.Summary{{ID: "j1"}}}
	fetcher := &fakeFetcher{pages: map[string]string{
		// Missing title fails validation after a successful extraction.
		"https://eujobs.co/jobs/j1": detailPage("j1", ""),
	}}
	sink := &memorySink{}

	report, err := newTestPipeline(testConfig(), agg, fetcher, sink).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Failures)
	require.Len(t, sink.failures, 1)
	require.Equal(t, "j1", sink.failures[0].JobID)
}

func TestRunAggregationFailureIsFatal(t *testing.T) {
	boom := errors.New("region unreachable")
	agg := &fakeAggregator{err: boom}

	_, err := newTestPipeline(testConfig(), agg, &fakeFetcher{}, &memorySink{}).Run(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestRunSingleJobModeBypassesAggregation(t *testing.T) {
	cfg := testConfig()
	cfg.JobURL = "https://eujobs.co/jobs/solo"

	agg := &fakeAggregator{}
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://eujobs.co/jobs/solo": detailPage("solo", "Solo Job"),
	}}
	sink := &memorySink{}

	report, err := newTestPipeline(cfg, agg, fetcher, sink).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, agg.calls, "single-job mode must not touch the listing API")
	require.Equal(t, 1, report.Scraped)
	require.Len(t, sink.jobs, 1)
	require.Equal(t, "Solo Job", sink.jobs[0].Title)
}

func TestRunSinkFailureIsFatal(t *testing.T) {
	agg := &fakeAggregator{summaries: []listing.Summary{{ID: "j1"}}}
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://eujobs.co/jobs/j1": detailPage("j1", "Job 1"),
	}}
	sink := &memorySink{saveErr: errors.New("disk full")}

	_, err := newTestPipeline(testConfig(), agg, fetcher, sink).Run(context.Background())
	require.Error(t, err, "losing output must fail the run")
}
