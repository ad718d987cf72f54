package session

import (
	"context"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/bkx/internal/models"
	"github.com/desertthunder/bkx/internal/services"
	"github.com/desertthunder/bkx/internal/shared"
	"github.com/desertthunder/bkx/internal/validation"
)

// Search messages.
const (
	MsgNoResults    = "No books found matching your search."
	MsgSearchFailed = "Failed to fetch books."
)

// SearchSnapshot is a copy of a [Search]'s state.
type SearchSnapshot struct {
	Request models.SearchRequest
	Results []models.BookSummary
	Loading bool
	Error   string
}

// Search runs public catalog queries. It needs no sign in.
type Search struct {
	gw        services.Gateway
	validator *validation.Validator
	logger    *log.Logger

	mu      sync.Mutex
	req     models.SearchRequest
	results []models.BookSummary
	loading bool
	err     string
	seq     uint64
}

// NewSearch creates an empty search.
func NewSearch(gw services.Gateway, logger *log.Logger) *Search {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Search{
		gw:        gw,
		validator: validation.New(),
		logger:    shared.WithLogger(logger, "component", "search"),
	}
}

// Snapshot returns a copy of the search state.
func (s *Search) Snapshot() SearchSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SearchSnapshot{
		Request: s.req,
		Results: append([]models.BookSummary(nil), s.results...),
		Loading: s.loading,
		Error:   s.err,
	}
}

// Run validates req, queries the gateway and stores the results. When searches overlap the latest one wins.
func (s *Search) Run(ctx context.Context, req models.SearchRequest) ([]models.BookSummary, error) {
	if err := s.validator.Validate(req); err != nil {
		s.mu.Lock()
		s.err = err.Error()
		s.mu.Unlock()
		return nil, err
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.req = req
	s.loading = true
	s.err = ""
	s.results = nil
	s.mu.Unlock()

	books, err := s.gw.Search(ctx, req)
	s.logger.Debug("search finished", "type", req.Type, "query", req.Query, "results", len(books), "err", err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return books, err
	}
	s.loading = false

	if err != nil {
		s.err = services.Message(err, MsgSearchFailed)
		return nil, err
	}
	s.results = books
	if len(books) == 0 {
		s.err = MsgNoResults
	}
	return books, nil
}

// Clear drops the query, results and error.
func (s *Search) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.req = models.SearchRequest{}
	s.results = nil
	s.loading = false
	s.err = ""
}
