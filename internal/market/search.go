package market

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/serverkit/addonctl/internal/catalog"
)

// Searcher runs one catalog query. catalog.Mux implements it.
type Searcher interface {
	Search(ctx context.Context, req catalog.SearchRequest) (*catalog.Page, error)
}

// SearchState is the user-visible filter state of a search session.
type SearchState struct {
	Query    string
	Provider catalog.Provider
	Category string
	Sort     catalog.Sort
	Page     int // 1-based
	PageSize int
}

// SearchView is a snapshot for rendering a result grid.
type SearchView struct {
	State      SearchState
	Result     *catalog.Page
	Loading    bool
	Err        error
	TotalPages int
}

// SearchSession turns filter state into catalog queries and keeps the most
// recent result page. Changing any filter other than the page resets the
// page to 1.
type SearchSession struct {
	searcher Searcher
	kind     catalog.Kind
	logger   *slog.Logger

	mu      sync.Mutex
	state   SearchState
	target  catalog.Target
	result  *catalog.Page
	loading bool
	err     error
	issued  uint64
}

// NewSearchSession creates a session on page 1 of provider's catalog.
func NewSearchSession(searcher Searcher, kind catalog.Kind, provider catalog.Provider, pageSize int, logger *slog.Logger) *SearchSession {
	if pageSize < 1 {
		pageSize = 20
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SearchSession{
		searcher: searcher,
		kind:     kind,
		logger:   logger,
		state: SearchState{
			Provider: provider,
			Page:     1,
			PageSize: pageSize,
		},
	}
}

// State returns the current filter state.
func (s *SearchSession) State() SearchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetTarget supplies the compatibility context. Searches are suppressed
// until the target is ready.
func (s *SearchSession) SetTarget(t catalog.Target) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = t
}

// Target returns the compatibility context.
func (s *SearchSession) Target() catalog.Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// SetQuery changes the query text. It reports whether the state changed.
func (s *SearchSession) SetQuery(q string) bool {
	return s.update(func(st *SearchState) bool {
		if st.Query == q {
			return false
		}
		st.Query = q
		return true
	})
}

// SetProvider switches catalogs. Categories are provider-scoped, so the
// active category is cleared as well.
func (s *SearchSession) SetProvider(p catalog.Provider) bool {
	return s.update(func(st *SearchState) bool {
		if st.Provider == p {
			return false
		}
		st.Provider = p
		st.Category = ""
		return true
	})
}

// SetCategory sets or clears (with "") the category facet.
func (s *SearchSession) SetCategory(category string) bool {
	return s.update(func(st *SearchState) bool {
		if st.Category == category {
			return false
		}
		st.Category = category
		return true
	})
}

// SetSort changes the result ordering.
func (s *SearchSession) SetSort(order catalog.Sort) bool {
	return s.update(func(st *SearchState) bool {
		if st.Sort == order {
			return false
		}
		st.Sort = order
		return true
	})
}

// SetPageSize changes the page size. Values below 1 are ignored.
func (s *SearchSession) SetPageSize(n int) bool {
	return s.update(func(st *SearchState) bool {
		if n < 1 || st.PageSize == n {
			return false
		}
		st.PageSize = n
		return true
	})
}

// update applies a filter change and resets the page when it changed.
func (s *SearchSession) update(apply func(*SearchState) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !apply(&s.state) {
		return false
	}
	s.state.Page = 1
	return true
}

// SetPage moves to page n (1-based) without touching other filters.
func (s *SearchSession) SetPage(n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 1 || s.state.Page == n {
		return false
	}
	s.state.Page = n
	return true
}

// NextPage advances one page if the last result reported more.
func (s *SearchSession) NextPage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pages := totalPages(s.result, s.state.PageSize); pages > 0 && s.state.Page >= pages {
		return false
	}
	s.state.Page++
	return true
}

// PrevPage goes back one page.
func (s *SearchSession) PrevPage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Page <= 1 {
		return false
	}
	s.state.Page--
	return true
}

// Request derives the catalog request for the current state.
func (s *SearchSession) Request() (catalog.SearchRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestLocked()
}

func (s *SearchSession) requestLocked() (catalog.SearchRequest, error) {
	if !s.target.Ready() {
		return catalog.SearchRequest{}, ErrTargetNotReady
	}
	st := s.state
	return catalog.SearchRequest{
		Provider: st.Provider,
		Kind:     s.kind,
		Query:    strings.TrimSpace(st.Query),
		Category: st.Category,
		Sort:     st.Sort,
		Offset:   (st.Page - 1) * st.PageSize,
		Limit:    st.PageSize,
		Target:   s.target,
	}, nil
}

// Search sends exactly one request for the current state. Before the target
// is known it returns ErrTargetNotReady without sending anything. If a newer
// search was issued while this one was in flight, its response is discarded
// and ErrStaleResult is returned. On failure the previous page is kept and a
// *SearchError is returned.
func (s *SearchSession) Search(ctx context.Context) (*catalog.Page, error) {
	s.mu.Lock()
	req, err := s.requestLocked()
	if err != nil {
		s.mu.Unlock()
		s.logger.Debug("search suppressed", "reason", err)
		return nil, err
	}
	s.issued++
	gen := s.issued
	s.loading = true
	s.mu.Unlock()

	s.logger.Debug("searching", "provider", req.Provider, "query", req.Query,
		"category", req.Category, "offset", req.Offset, "limit", req.Limit)
	page, err := s.searcher.Search(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.issued {
		return nil, ErrStaleResult
	}
	s.loading = false
	if err != nil {
		s.err = &SearchError{Request: req, Err: err}
		return nil, s.err
	}
	s.result = page
	s.err = nil
	return page, nil
}

// View returns a snapshot of the session for rendering.
func (s *SearchSession) View() SearchView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SearchView{
		State:      s.state,
		Result:     s.result,
		Loading:    s.loading,
		Err:        s.err,
		TotalPages: totalPages(s.result, s.state.PageSize),
	}
}

// DismissError clears the last search failure.
func (s *SearchSession) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = nil
}

func totalPages(p *catalog.Page, pageSize int) int {
	if p == nil || pageSize < 1 {
		return 0
	}
	return (p.Total + pageSize - 1) / pageSize
}
