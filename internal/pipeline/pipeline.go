package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eujobs/scraper/internal/config"
	"github.com/eujobs/scraper/internal/extract"
	"github.com/eujobs/scraper/internal/listing"
	"github.com/eujobs/scraper/internal/model"
	"github.com/eujobs/scraper/internal/normalize"
	"github.com/eujobs/scraper/internal/observability"
	"github.com/eujobs/scraper/internal/region"
)

// Sink receives one record per call. Validated records and failure
// placeholders go to the same sink so a run's success rate stays auditable.
type Sink interface {
	SaveJob(ctx context.Context, rec *model.OutputRecord) error
	SaveFailure(ctx context.Context, rec *model.FailureRecord) error
}

// Fetcher retrieves one detail page. Retries are its responsibility; an
// error here is final for that page.
type Fetcher interface {
	FetchHTML(ctx context.Context, url string) (string, error)
}

// Aggregator is the listing side of the pipeline.
type Aggregator interface {
	FetchAllJobs(ctx context.Context, regions []region.Filter, limit int) ([]listing.Summary, error)
}

// Report summarizes one run.
type Report struct {
	Listed   int `json:"listed"`
	Scraped  int `json:"scraped"`
	Failures int `json:"failures"`
}

// Pipeline wires aggregation, detail fetching, extraction and normalization
// into one run. Failures scoped to a single job become failure placeholders;
// failures scoped to the run propagate as errors.
type Pipeline struct {
	cfg        *config.Config
	aggregator Aggregator
	fetcher    Fetcher
	extractor  *extract.Extractor
	normalizer *normalize.Normalizer
	sink       Sink
}

func New(cfg *config.Config, aggregator Aggregator, fetcher Fetcher, extractor *extract.Extractor, normalizer *normalize.Normalizer, sink Sink) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		aggregator: aggregator,
		fetcher:    fetcher,
		extractor:  extractor,
		normalizer: normalizer,
		sink:       sink,
	}
}

// Run executes one scrape. With a configured single-job URL the listing
// stage is bypassed entirely.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	if p.cfg.JobURL != "" {
		slog.Info("running in single-job mode", "url", p.cfg.JobURL)
		report := &Report{Listed: 1}
		if err := p.processJob(ctx, p.cfg.JobURL, "", report); err != nil {
			return report, err
		}
		return report, nil
	}

	summaries, err := p.aggregator.FetchAllJobs(ctx, p.cfg.Regions, p.cfg.MaxJobs)
	if err != nil {
		return nil, fmt.Errorf("listing aggregation failed: %w", err)
	}
	observability.IncJobsListed(len(summaries))
	slog.Info("aggregated listings", "jobs", len(summaries), "regions", len(p.cfg.Regions))

	report := &Report{Listed: len(summaries)}
	var scraped, failed int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for _, summary := range summaries {
		summary := summary
		g.Go(func() error {
			url := p.detailURL(summary.ID)
			if err := p.processJobCounted(gctx, url, summary.ID, &scraped, &failed); err != nil {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	report.Scraped = int(atomic.LoadInt64(&scraped))
	report.Failures = int(atomic.LoadInt64(&failed))
	return report, nil
}

func (p *Pipeline) processJobCounted(ctx context.Context, url, jobID string, scraped, failed *int64) error {
	report := &Report{}
	if err := p.processJob(ctx, url, jobID, report); err != nil {
		return err
	}
	atomic.AddInt64(scraped, int64(report.Scraped))
	atomic.AddInt64(failed, int64(report.Failures))
	return nil
}

// processJob scrapes one detail page. A fetch, extraction or validation
// failure is written as a placeholder and does not propagate; only a sink
// write failure is returned, because losing output is fatal to the run.
func (p *Pipeline) processJob(ctx context.Context, url, jobID string, report *Report) error {
	htmlDoc, err := p.fetcher.FetchHTML(ctx, url)
	if err != nil {
		return p.recordFailure(ctx, url, jobID, err, report)
	}
	observability.IncPagesFetched()

	detail, err := p.extractor.Extract(ctx, htmlDoc)
	if err != nil {
		return p.recordFailure(ctx, url, jobID, err, report)
	}

	rec, err := p.normalizer.Normalize(detail, url)
	if err != nil {
		return p.recordFailure(ctx, url, detail.ID, err, report)
	}

	if err := p.sink.SaveJob(ctx, rec); err != nil {
		return fmt.Errorf("sink write failed for %s: %w", url, err)
	}
	observability.IncJobsScraped()
	report.Scraped++
	slog.Debug("scraped job", "url", url, "title", rec.Title)
	return nil
}

func (p *Pipeline) recordFailure(ctx context.Context, url, jobID string, cause error, report *Report) error {
	errType := observability.Classify(cause)
	observability.IncJobFailure(errType)
	report.Failures++
	slog.Warn("job failed", "url", url, "type", errType, "error", cause)

	placeholder := &model.FailureRecord{
		URL:      url,
		JobID:    jobID,
		Error:    cause.Error(),
		FailedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := p.sink.SaveFailure(ctx, placeholder); err != nil {
		return fmt.Errorf("sink write failed for %s: %w", url, err)
	}
	return nil
}

func (p *Pipeline) detailURL(jobID string) string {
	return strings.TrimSuffix(p.cfg.SiteBase, "/") + "/jobs/" + jobID
}
