package market

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/serverkit/addonctl/internal/catalog"
)

// DependencySource looks up the direct dependencies of one item.
// catalog.Mux implements it.
type DependencySource interface {
	Dependencies(ctx context.Context, key catalog.Key) (*catalog.Dependencies, error)
}

// Classification tells whether a resolved dependency was declared required
// or optional by the item that introduced it.
type Classification int

const (
	Required Classification = iota
	Optional
)

func (c Classification) String() string {
	if c == Optional {
		return "optional"
	}
	return "required"
}

// ResolvedDependency is one item added by resolution. Parent is the item
// whose lookup first reported it.
type ResolvedDependency struct {
	Item           catalog.Item
	Classification Classification
	Parent         catalog.Key
}

// Resolver computes the transitive dependencies of a selection with a
// breadth-first walk. Only required dependencies are expanded further;
// optional ones are reported but never looked up. Every item appears at most
// once, with the classification under which it was first discovered.
type Resolver struct {
	source      DependencySource
	parallelism int
	logger      *slog.Logger
}

// NewResolver returns a resolver that issues at most parallelism lookups at
// once. Values below 2 look items up strictly one at a time.
func NewResolver(source DependencySource, parallelism int, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{source: source, parallelism: parallelism, logger: logger}
}

// Resolve walks the dependency graph of roots. Roots are never part of the
// output. Results are in discovery order and do not depend on parallelism.
// If any lookup fails the whole pass is abandoned and a *ResolutionError is
// returned with no dependencies.
func (r *Resolver) Resolve(ctx context.Context, roots []catalog.Item) ([]ResolvedDependency, error) {
	seen := make(map[catalog.Key]bool, len(roots))
	layer := make([]catalog.Item, 0, len(roots))
	for _, it := range roots {
		if seen[it.Key()] {
			continue
		}
		seen[it.Key()] = true
		layer = append(layer, it)
	}

	var out []ResolvedDependency
	for depth := 0; len(layer) > 0; depth++ {
		r.logger.Debug("resolving dependency layer", "depth", depth, "items", len(layer))
		results, err := r.lookupLayer(ctx, layer)
		if err != nil {
			return nil, err
		}

		var next []catalog.Item
		for i, parent := range layer {
			deps := results[i]
			if deps == nil {
				continue
			}
			for _, d := range deps.Required {
				if seen[d.Key()] {
					continue
				}
				seen[d.Key()] = true
				out = append(out, ResolvedDependency{Item: d, Classification: Required, Parent: parent.Key()})
				next = append(next, d)
			}
			for _, d := range deps.Optional {
				if seen[d.Key()] {
					continue
				}
				seen[d.Key()] = true
				out = append(out, ResolvedDependency{Item: d, Classification: Optional, Parent: parent.Key()})
			}
		}
		layer = next
	}
	return out, nil
}

// lookupLayer fetches the dependencies of every item in layer. The result
// slice is indexed like layer.
func (r *Resolver) lookupLayer(ctx context.Context, layer []catalog.Item) ([]*catalog.Dependencies, error) {
	results := make([]*catalog.Dependencies, len(layer))

	if r.parallelism < 2 || len(layer) == 1 {
		for i, it := range layer {
			deps, err := r.lookup(ctx, it.Key())
			if err != nil {
				return nil, err
			}
			results[i] = deps
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for i, it := range layer {
		g.Go(func() error {
			deps, err := r.lookup(gctx, it.Key())
			if err != nil {
				return err
			}
			results[i] = deps
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Resolver) lookup(ctx context.Context, key catalog.Key) (*catalog.Dependencies, error) {
	deps, err := r.source.Dependencies(ctx, key)
	if err != nil {
		r.logger.Debug("dependency lookup failed", "item", key, "err", err)
		return nil, &ResolutionError{Key: key, Err: err}
	}
	return deps, nil
}
