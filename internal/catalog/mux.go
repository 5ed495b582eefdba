package catalog

import (
	"context"
	"fmt"
	"sync"
)

// Mux dispatches provider-agnostic calls to the client registered for each
// provider.
type Mux struct {
	clients map[Provider]Client

	mu     sync.RWMutex
	target Target
}

// NewMux builds a mux over clients. Later clients for the same provider
// replace earlier ones.
func NewMux(clients ...Client) *Mux {
	m := &Mux{clients: make(map[Provider]Client, len(clients))}
	for _, c := range clients {
		m.clients[c.Provider()] = c
	}
	return m
}

// SetTarget sets the compatibility context used for dependency lookups.
func (m *Mux) SetTarget(t Target) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.target = t
}

// Target returns the compatibility context.
func (m *Mux) Target() Target {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.target
}

// Client returns the client for p.
func (m *Mux) Client(p Provider) (Client, error) {
	c, ok := m.clients[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, p)
	}
	return c, nil
}

// Providers returns the providers served by the mux, in enum order.
func (m *Mux) Providers() []Provider {
	var out []Provider
	for _, p := range Providers() {
		if _, ok := m.clients[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Search routes req to its provider.
func (m *Mux) Search(ctx context.Context, req SearchRequest) (*Page, error) {
	c, err := m.Client(req.Provider)
	if err != nil {
		return nil, err
	}
	return c.Search(ctx, req)
}

// Dependencies looks up the dependencies of the item identified by key.
func (m *Mux) Dependencies(ctx context.Context, key Key) (*Dependencies, error) {
	c, err := m.Client(key.Provider)
	if err != nil {
		return nil, err
	}
	return c.Dependencies(ctx, key.ID, m.Target())
}

// Item fetches the item identified by key.
func (m *Mux) Item(ctx context.Context, key Key) (*Item, error) {
	c, err := m.Client(key.Provider)
	if err != nil {
		return nil, err
	}
	return c.Item(ctx, key.ID)
}

// Versions lists the versions of key compatible with the mux target.
func (m *Mux) Versions(ctx context.Context, key Key) ([]Version, error) {
	c, err := m.Client(key.Provider)
	if err != nil {
		return nil, err
	}
	return c.Versions(ctx, key.ID, m.Target())
}

// Categories lists the categories p offers for kind.
func (m *Mux) Categories(ctx context.Context, p Provider, kind Kind) ([]Category, error) {
	c, err := m.Client(p)
	if err != nil {
		return nil, err
	}
	return c.Categories(ctx, kind)
}
