package listing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/eujobs/scraper/internal/region"
)

// RegionFetcher is the part of Client the aggregator depends on.
type RegionFetcher interface {
	FetchAllForRegion(ctx context.Context, r region.Filter, limit int) ([]Summary, error)
}

// Aggregator drives the listing client across a set of region filters
// concurrently and merges the results deterministically.
type Aggregator struct {
	fetcher RegionFetcher
	// skipFailedRegions degrades a region failure to a warning instead of
	// failing the whole run.
	skipFailedRegions bool
}

func NewAggregator(fetcher RegionFetcher, skipFailedRegions bool) *Aggregator {
	return &Aggregator{fetcher: fetcher, skipFailedRegions: skipFailedRegions}
}

// FetchAllJobs fetches every requested region concurrently, merges the
// results in region-iteration order (then page, then in-page order),
// deduplicates by job ID keeping the first occurrence, and truncates at
// limit unique jobs when limit > 0.
func (a *Aggregator) FetchAllJobs(ctx context.Context, regions []region.Filter, limit int) ([]Summary, error) {
	if len(regions) == 0 {
		return nil, fmt.Errorf("no region filters requested")
	}
	for _, r := range regions {
		if !region.IsValid(r) {
			return nil, fmt.Errorf("unrecognized region filter %q", r)
		}
	}

	perRegion := make([][]Summary, len(regions))
	regionErrs := make([]error, len(regions))

	var wg sync.WaitGroup
	for i, r := range regions {
		i, r := i, r
		wg.Add(1)
		go func() {
			defer wg.Done()
			summaries, err := a.fetcher.FetchAllForRegion(ctx, r, limit)
			if err != nil {
				regionErrs[i] = fmt.Errorf("region %s: %w", r, err)
				return
			}
			perRegion[i] = summaries
		}()
	}
	wg.Wait()

	for i, err := range regionErrs {
		if err == nil {
			continue
		}
		if !a.skipFailedRegions {
			return nil, err
		}
		slog.Warn("skipping failed region", "region", regions[i], "error", err)
	}

	// The dedup set is owned here and only touched after all fetches are
	// done; merge order does not depend on fetch completion order.
	seen := make(map[string]struct{})
	var merged []Summary
	for _, summaries := range perRegion {
		for _, s := range summaries {
			if _, dup := seen[s.ID]; dup {
				continue
			}
			seen[s.ID] = struct{}{}
			merged = append(merged, s)
			if limit > 0 && len(merged) >= limit {
				return merged, nil
			}
		}
	}
	return merged, nil
}
