package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Client is the contract each provider implements.
type Client interface {
	// Provider returns the provider this client talks to.
	Provider() Provider

	// Search runs one catalog query and returns a page of candidates.
	Search(ctx context.Context, req SearchRequest) (*Page, error)

	// Item fetches a single item by identifier.
	Item(ctx context.Context, id string) (*Item, error)

	// Dependencies returns the required and optional dependencies of the
	// newest version of id compatible with target.
	Dependencies(ctx context.Context, id string, target Target) (*Dependencies, error)

	// Versions lists published versions of id compatible with target,
	// newest first as reported by the provider.
	Versions(ctx context.Context, id string, target Target) ([]Version, error)

	// Categories lists the search facets available for kind.
	Categories(ctx context.Context, kind Kind) ([]Category, error)
}

// Options carries what a provider factory needs to build a client.
type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	UserAgent  string
	MaxRetries int
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Factory creates a client for one provider.
type Factory func(opts Options) (Client, error)

var (
	factories = make(map[Provider]Factory)
	mu        sync.RWMutex
)

// Register adds a provider factory. Provider packages call it from init.
func Register(p Provider, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[p] = factory
}

// New creates a client for the given provider using its registered factory.
func New(p Provider, opts Options) (Client, error) {
	mu.RLock()
	factory, ok := factories[p]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, p)
	}
	return factory(opts)
}

// Registered returns the providers that have a factory, in enum order.
func Registered() []Provider {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]Provider, 0, len(factories))
	for p := range factories {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
