package api

import (
	"net/http"
	"strconv"

	"github.com/eujobs/scraper/internal/model"
	"github.com/eujobs/scraper/internal/observability"
)

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r, 20)

	jobs, err := s.store.GetJobs(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch jobs: "+err.Error())
		return
	}
	if jobs == nil {
		jobs = []model.OutputRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items":  jobs,
		"limit":  limit,
		"offset": offset,
	})
}

func (s *Server) handleListFailures(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r, 20)

	failures, err := s.store.ListFailures(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch failures: "+err.Error())
		return
	}
	if failures == nil {
		failures = []model.FailureRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items":  failures,
		"limit":  limit,
		"offset": offset,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, observability.Snapshot())
}

func parsePagination(r *http.Request, defaultLimit int) (int, int) {
	q := r.URL.Query()
	limit := defaultLimit
	offset := 0

	if v := q.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := q.Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
