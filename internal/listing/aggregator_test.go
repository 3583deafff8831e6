package listing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eujobs/scraper/internal/region"
)

// fakeRegionFetcher returns canned summaries (or an error) per region.
type fakeRegionFetcher struct {
	byRegion map[region.Filter][]Summary
	errs     map[region.Filter]error
}

func (f *fakeRegionFetcher) FetchAllForRegion(_ context.Context, r region.Filter, limit int) ([]Summary, error) {
	if err := f.errs[r]; err != nil {
		return nil, err
	}
	summaries := f.byRegion[r]
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func taggedSummary(id, company string) Summary {
	s := summaryFixture(id)
	s.Company.Name = company
	return s
}

func TestFetchAllJobsMergesInRegionOrder(t *testing.T) {
	fetcher := &fakeRegionFetcher{byRegion: map[region.Filter][]Summary{
		"DE": {summaryFixture("d1"), summaryFixture("d2")},
		"FR": {summaryFixture("f1")},
	}}
	agg := NewAggregator(fetcher, false)

	merged, err := agg.FetchAllJobs(context.Background(), []region.Filter{"DE", "FR"}, 0)
	require.NoError(t, err)

	ids := make([]string, len(merged))
	for i, s := range merged {
		ids[i] = s.ID
	}
	require.Equal(t, []string{"d1", "d2", "f1"}, ids)
}

func TestFetchAllJobsDeduplicatesAcrossRegions(t *testing.T) {
	// The same job can legitimately show up under several regions (remote
	// jobs especially); only the first occurrence in region order survives.
	fetcher := &fakeRegionFetcher{byRegion: map[region.Filter][]Summary{
		"DE":          {taggedSummary("shared", "from DE"), summaryFixture("d2")},
		region.Remote: {taggedSummary("shared", "from REMOTE"), summaryFixture("r2")},
	}}
	agg := NewAggregator(fetcher, false)

	merged, err := agg.FetchAllJobs(context.Background(), []region.Filter{"DE", region.Remote}, 0)
	require.NoError(t, err)
	require.Len(t, merged, 3)

	occurrences := 0
	for _, s := range merged {
		if s.ID == "shared" {
			occurrences++
			require.Equal(t, "from DE", s.Company.Name, "first-seen region wins")
		}
	}
	require.Equal(t, 1, occurrences)
}

func TestFetchAllJobsLimitTruncation(t *testing.T) {
	fetcher := &fakeRegionFetcher{byRegion: map[region.Filter][]Summary{
		"DE": {summaryFixture("d1"), summaryFixture("d2"), summaryFixture("d3")},
		"FR": {summaryFixture("d1"), summaryFixture("f2"), summaryFixture("f3")},
	}}
	agg := NewAggregator(fetcher, false)

	for limit, want := range map[int]int{1: 1, 4: 4, 100: 5} {
		merged, err := agg.FetchAllJobs(context.Background(), []region.Filter{"DE", "FR"}, limit)
		require.NoError(t, err)
		require.Len(t, merged, want, "limit %d", limit)
	}
}

func TestFetchAllJobsRegionFailureIsFatal(t *testing.T) {
	boom := errors.New("listing api down")
	fetcher := &fakeRegionFetcher{
		byRegion: map[region.Filter][]Summary{"DE": {summaryFixture("d1")}},
		errs:     map[region.Filter]error{"FR": boom},
	}
	agg := NewAggregator(fetcher, false)

	_, err := agg.FetchAllJobs(context.Background(), []region.Filter{"DE", "FR"}, 0)
	require.ErrorIs(t, err, boom)
}

func TestFetchAllJobsSkipFailedRegions(t *testing.T) {
	fetcher := &fakeRegionFetcher{
		byRegion: map[region.Filter][]Summary{"DE": {summaryFixture("d1")}},
		errs:     map[region.Filter]error{"FR": errors.New("listing api down")},
	}
	agg := NewAggregator(fetcher, true)

	merged, err := agg.FetchAllJobs(context.Background(), []region.Filter{"DE", "FR"}, 0)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	require.Equal(t, "d1", merged[0].ID)
}

func TestFetchAllJobsRejectsUnknownRegion(t *testing.T) {
	fetcher := &fakeRegionFetcher{}
	agg := NewAggregator(fetcher, false)

	_, err := agg.FetchAllJobs(context.Background(), []region.Filter{"DE", "NOWHERE"}, 0)
	require.Error(t, err)
}

func TestFetchAllJobsRequiresRegions(t *testing.T) {
	agg := NewAggregator(&fakeRegionFetcher{}, false)

	_, err := agg.FetchAllJobs(context.Background(), nil, 0)
	require.Error(t, err)
}
