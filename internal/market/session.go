package market

import (
	"context"
	"log/slog"
	"sync"

	"github.com/serverkit/addonctl/internal/catalog"
)

// Session is one marketplace for one addon kind. It owns the search state,
// the selection, the dependency resolver, the current review and the
// install orchestrator.
type Session struct {
	kind         catalog.Kind
	search       *SearchSession
	selection    *SelectionSet
	resolver     *Resolver
	orchestrator *Orchestrator
	opts         sessionOptions

	mu        sync.Mutex
	review    *Review
	resolving bool
}

type sessionOptions struct {
	optionalDefault bool
	parallelism     int
	provider        catalog.Provider
	pageSize        int
	onProgress      ProgressFunc
	onInstalled     func(*InstallReport)
	logger          *slog.Logger
}

// SessionOption configures a Session.
type SessionOption func(*sessionOptions)

// WithOptionalDefault sets whether optional dependencies start out chosen
// in a review.
func WithOptionalDefault(on bool) SessionOption {
	return func(o *sessionOptions) { o.optionalDefault = on }
}

// WithParallelism bounds concurrent dependency lookups per resolution layer.
func WithParallelism(n int) SessionOption {
	return func(o *sessionOptions) { o.parallelism = n }
}

// WithProvider sets the provider the search starts on.
func WithProvider(p catalog.Provider) SessionOption {
	return func(o *sessionOptions) { o.provider = p }
}

// WithPageSize sets the initial search page size.
func WithPageSize(n int) SessionOption {
	return func(o *sessionOptions) { o.pageSize = n }
}

// WithProgress registers a callback for install progress.
func WithProgress(fn ProgressFunc) SessionOption {
	return func(o *sessionOptions) { o.onProgress = fn }
}

// WithInstalledHook registers a callback run after a successful install,
// for example to refresh a list of installed addons.
func WithInstalledHook(fn func(*InstallReport)) SessionOption {
	return func(o *sessionOptions) { o.onInstalled = fn }
}

// WithSessionLogger sets the logger shared by the session's components.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(o *sessionOptions) { o.logger = l }
}

// NewSession wires a session for kind over the given collaborators.
func NewSession(kind catalog.Kind, searcher Searcher, deps DependencySource, installer Installer, opts ...SessionOption) *Session {
	o := sessionOptions{
		parallelism: 1,
		provider:    catalog.Modrinth,
		pageSize:    20,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	logger := o.logger.With("kind", kind.String())

	return &Session{
		kind:         kind,
		search:       NewSearchSession(searcher, kind, o.provider, o.pageSize, logger),
		selection:    NewSelectionSet(),
		resolver:     NewResolver(deps, o.parallelism, logger),
		orchestrator: NewOrchestrator(installer, o.onProgress, logger),
		opts:         o,
	}
}

// Kind returns the addon kind the session serves.
func (s *Session) Kind() catalog.Kind { return s.kind }

// Search returns the search state.
func (s *Session) Search() *SearchSession { return s.search }

// Selection returns the user's selection.
func (s *Session) Selection() *SelectionSet { return s.selection }

// Orchestrator returns the install orchestrator.
func (s *Session) Orchestrator() *Orchestrator { return s.orchestrator }

// Review returns the open review, or nil.
func (s *Session) Review() *Review {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.review
}

// Resolving reports whether a resolution pass is running.
func (s *Session) Resolving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolving
}

// BeginReview resolves the dependencies of the current selection once and
// opens a review over the result. A review is always returned; when
// resolution fails it holds only the selection and the error is returned
// as well.
func (s *Session) BeginReview(ctx context.Context) (*Review, error) {
	selected := s.selection.Items()

	s.mu.Lock()
	s.resolving = true
	s.mu.Unlock()

	resolved, err := s.resolver.Resolve(ctx, selected)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolving = false
	if err != nil {
		s.opts.logger.Warn("dependency resolution failed", "err", err)
		resolved = nil
	}
	s.review = NewReview(selected, resolved, s.opts.optionalDefault, err)
	return s.review, err
}

// BeginReviewWithoutDependencies opens a review over the selection alone.
func (s *Session) BeginReviewWithoutDependencies() *Review {
	selected := s.selection.Items()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.review = NewReview(selected, nil, s.opts.optionalDefault, nil)
	return s.review
}

// Install confirms the open review and installs the chosen items. On
// success the selection is cleared, the review is closed and the installed
// hook runs. On failure both are kept so the user can retry.
func (s *Session) Install(ctx context.Context) (*InstallReport, error) {
	review := s.Review()
	if review == nil {
		return nil, ErrNoReview
	}
	items, err := review.Confirm()
	if err != nil {
		return nil, err
	}

	report, err := s.orchestrator.Run(ctx, items)
	if err != nil {
		return report, err
	}

	s.selection.Clear()
	s.mu.Lock()
	if s.review == review {
		s.review = nil
	}
	s.mu.Unlock()

	if s.opts.onInstalled != nil {
		s.opts.onInstalled(report)
	}
	return report, nil
}

// DiscardReview closes the review. The selection is left untouched.
func (s *Session) DiscardReview() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.review = nil
}

// Abandon clears the selection and any open review, as when the user
// navigates away from the marketplace.
func (s *Session) Abandon() {
	s.selection.Clear()
	s.DiscardReview()
	s.orchestrator.Reset()
}
