package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/litscout/scholar-search-service/internal/domain"
)

const (
	// defaultMaxResults is the result quota applied when a search request
	// does not set one.
	defaultMaxResults = 50

	// defaultTopicCount is the cluster count applied when a topics request
	// does not set one.
	defaultTopicCount = 5

	// maxRequestBodySize bounds JSON request bodies. Multipart uploads have
	// their own, larger bound.
	maxRequestBodySize = 1 << 20 // 1 MB
)

// searchRequest is the JSON request body for paper search.
type searchRequest struct {
	Query            string `json:"query"`
	MaxResults       int    `json:"max_results,omitempty"`
	YearRange        []int  `json:"year_range,omitempty"`
	IncludeAbstracts bool   `json:"include_abstracts,omitempty"`
}

// generateTopicsRequest is the JSON request body for topic generation.
type generateTopicsRequest struct {
	Papers  []domain.Paper `json:"papers"`
	NTopics int            `json:"n_topics,omitempty"`
}

// searchPapers handles POST /api/search. It answers from the cache when a
// fresh entry exists and scrapes otherwise.
func (s *Server) searchPapers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req searchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}
	if req.MaxResults <= 0 {
		req.MaxResults = defaultMaxResults
	}

	query := domain.SearchQuery{
		Text:       req.Query,
		MaxResults: req.MaxResults,
	}
	// A malformed range is ignored rather than rejected; it only narrows
	// the search.
	if len(req.YearRange) == 2 {
		query.YearRange = &domain.YearRange{From: req.YearRange[0], To: req.YearRange[1]}
	}

	result, err := s.searcher.Search(ctx, query, req.IncludeAbstracts)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "Query is required")
			return
		}
		s.requestLogger(r.Context()).Error().Err(err).Msg("search failed")
		writeError(w, http.StatusInternalServerError, "Search failed")
		return
	}

	papers := result.Papers
	if papers == nil {
		papers = []domain.Paper{}
	}

	resp := searchResponse{
		Papers:      papers,
		FromCache:   result.FromCache,
		Aborted:     result.Aborted,
		AbortReason: string(result.Reason),
		Timestamp:   time.Now().UTC().Format(apiTimeFormat),
	}
	writeJSON(w, http.StatusOK, wrap(resp, resp.Timestamp))
}

// generateTopics handles POST /api/generate-topics.
func (s *Server) generateTopics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req generateTopicsRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	if len(req.Papers) == 0 {
		writeError(w, http.StatusBadRequest, "Papers are required")
		return
	}
	if req.NTopics <= 0 {
		req.NTopics = defaultTopicCount
	}

	topics, err := s.topics.Generate(ctx, req.Papers, req.NTopics)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "No valid text found in papers")
			return
		}
		s.requestLogger(r.Context()).Error().Err(err).Msg("topic generation failed")
		writeError(w, http.StatusInternalServerError, "Topic generation failed")
		return
	}

	resp := topicsResponse{
		Topics:     *topics,
		PaperCount: len(req.Papers),
		Timestamp:  time.Now().UTC().Format(apiTimeFormat),
	}
	writeJSON(w, http.StatusOK, wrap(resp, resp.Timestamp))
}

// getStats handles GET /api/stats.
func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.statsRepo.Collect(r.Context())
	if err != nil {
		s.requestLogger(r.Context()).Error().Err(err).Msg("stats collection failed")
		writeError(w, http.StatusInternalServerError, "Failed to collect stats")
		return
	}
	writeJSON(w, http.StatusOK, wrap(stats, ""))
}
