package observability

import (
	"context"
	"errors"

	"github.com/eujobs/scraper/internal/extract"
	"github.com/eujobs/scraper/internal/httpx"
	"github.com/eujobs/scraper/internal/listing"
	"github.com/eujobs/scraper/internal/normalize"
)

const (
	ErrorAPI        = "api"
	ErrorFetch      = "fetch"
	ErrorExtraction = "extraction"
	ErrorValidation = "validation"
	ErrorStore      = "store"
	ErrorUnknown    = "unknown"
)

// Classify buckets a pipeline error into the run's error taxonomy.
func Classify(err error) string {
	if err == nil {
		return ErrorUnknown
	}
	var apiErr *listing.APIError
	if errors.As(err, &apiErr) {
		return ErrorAPI
	}
	var extractErr *extract.Error
	if errors.As(err, &extractErr) {
		return ErrorExtraction
	}
	var validationErr *normalize.ValidationError
	if errors.As(err, &validationErr) {
		return ErrorValidation
	}
	var fetchErr *httpx.FetchError
	if errors.As(err, &fetchErr) {
		return ErrorFetch
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorFetch
	}
	return ErrorUnknown
}
