package observability

import (
	"sync"
	"sync/atomic"
)

// StatsSnapshot is a point-in-time copy of the run counters.
type StatsSnapshot struct {
	JobsListed     uint64            `json:"jobs_listed"`
	JobsScraped    uint64            `json:"jobs_scraped"`
	JobFailures    uint64            `json:"job_failures"`
	PagesFetched   uint64            `json:"pages_fetched"`
	FailuresByType map[string]uint64 `json:"failures_by_type,omitempty"`
}

var (
	jobsListed   uint64
	jobsScraped  uint64
	jobFailures  uint64
	pagesFetched uint64

	statsMu        sync.Mutex
	failuresByType = map[string]uint64{}
)

func IncJobsListed(n int) {
	if n > 0 {
		atomic.AddUint64(&jobsListed, uint64(n))
	}
}

func IncJobsScraped() {
	atomic.AddUint64(&jobsScraped, 1)
}

func IncPagesFetched() {
	atomic.AddUint64(&pagesFetched, 1)
}

func IncJobFailure(errType string) {
	if errType == "" {
		errType = ErrorUnknown
	}
	atomic.AddUint64(&jobFailures, 1)
	statsMu.Lock()
	failuresByType[errType]++
	statsMu.Unlock()
}

func Snapshot() StatsSnapshot {
	statsMu.Lock()
	failuresCopy := make(map[string]uint64, len(failuresByType))
	for k, v := range failuresByType {
		failuresCopy[k] = v
	}
	statsMu.Unlock()

	return StatsSnapshot{
		JobsListed:     atomic.LoadUint64(&jobsListed),
		JobsScraped:    atomic.LoadUint64(&jobsScraped),
		JobFailures:    atomic.LoadUint64(&jobFailures),
		PagesFetched:   atomic.LoadUint64(&pagesFetched),
		FailuresByType: failuresCopy,
	}
}
