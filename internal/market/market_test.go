package market

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/serverkit/addonctl/internal/catalog"
)

func mr(id string) catalog.Item {
	return catalog.Item{Provider: catalog.Modrinth, ID: id, Title: "Mod " + id}
}

func cf(id string) catalog.Item {
	return catalog.Item{Provider: catalog.CurseForge, ID: id, Title: "Mod " + id}
}

func keysOf(items []catalog.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Key().String()
	}
	return out
}

func depKeys(deps []ResolvedDependency) []string {
	out := make([]string, len(deps))
	for i, d := range deps {
		out[i] = d.Item.Key().String()
	}
	return out
}

// fakeGraph is an in-memory DependencySource.
type fakeGraph struct {
	mu      sync.Mutex
	deps    map[catalog.Key]*catalog.Dependencies
	fail    map[catalog.Key]error
	lookups []catalog.Key
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		deps: make(map[catalog.Key]*catalog.Dependencies),
		fail: make(map[catalog.Key]error),
	}
}

func (g *fakeGraph) require(from catalog.Item, to ...catalog.Item) {
	d := g.entry(from)
	d.Required = append(d.Required, to...)
}

func (g *fakeGraph) optional(from catalog.Item, to ...catalog.Item) {
	d := g.entry(from)
	d.Optional = append(d.Optional, to...)
}

func (g *fakeGraph) entry(it catalog.Item) *catalog.Dependencies {
	d, ok := g.deps[it.Key()]
	if !ok {
		d = &catalog.Dependencies{}
		g.deps[it.Key()] = d
	}
	return d
}

func (g *fakeGraph) Dependencies(_ context.Context, key catalog.Key) (*catalog.Dependencies, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lookups = append(g.lookups, key)
	if err := g.fail[key]; err != nil {
		return nil, err
	}
	if d, ok := g.deps[key]; ok {
		return d, nil
	}
	return &catalog.Dependencies{}, nil
}

func (g *fakeGraph) lookedUp(key catalog.Key) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, k := range g.lookups {
		if k == key {
			return true
		}
	}
	return false
}

// fakeSearcher records requests and answers from a callback.
type fakeSearcher struct {
	calls  atomic.Int32
	answer func(req catalog.SearchRequest) (*catalog.Page, error)
}

func (f *fakeSearcher) Search(_ context.Context, req catalog.SearchRequest) (*catalog.Page, error) {
	f.calls.Add(1)
	if f.answer == nil {
		return &catalog.Page{Offset: req.Offset, Limit: req.Limit}, nil
	}
	return f.answer(req)
}

// fakeInstaller records install attempts and fails on selected keys.
type fakeInstaller struct {
	mu        sync.Mutex
	attempted []catalog.Key
	fail      map[catalog.Key]error
}

func (f *fakeInstaller) Install(_ context.Context, item catalog.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempted = append(f.attempted, item.Key())
	if err := f.fail[item.Key()]; err != nil {
		return err
	}
	return nil
}

var errBoom = errors.New("boom")
