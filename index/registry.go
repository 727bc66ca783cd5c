package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	zlaunch "github.com/zortax/zlaunch"
	"github.com/zortax/zlaunch/rank"
)

// Source builds a module's entries from its external origin.
type Source interface {
	Load(ctx context.Context) ([]Entry, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Entry, error)

func (f SourceFunc) Load(ctx context.Context) ([]Entry, error) { return f(ctx) }

// Policy says when a module is refreshed.
type Policy int

const (
	// RefreshOnDemand modules are refreshed at startup and when their
	// origin reports a change.
	RefreshOnDemand Policy = iota
	// RefreshOnQuery modules are cheap and refreshed before every query.
	RefreshOnQuery
)

type slot struct {
	// source, policy and gen are guarded by Registry.mu.
	source Source
	policy Policy
	gen    uint64
	index  atomic.Pointer[Index]
}

// Registry holds the current Index of every registered module. Refreshes
// build the new Index without holding any lock, then swap it in atomically;
// readers see either the old or the new Index, never a partial one.
type Registry struct {
	mu    sync.RWMutex // guards slots; never held across a Load
	slots map[zlaunch.Module]*slot

	flight singleflight.Group
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		slots:  make(map[zlaunch.Module]*slot),
		logger: slog.Default().With("component", "registry"),
	}
}

// Register installs or replaces the source of a module. A replaced module
// keeps serving its current Index until the next refresh. A Load of the old
// source still in flight is not joined by later refreshes, and its result
// is discarded.
func (r *Registry) Register(m zlaunch.Module, src Source, policy Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[m]
	if !ok {
		s = &slot{}
		r.slots[m] = s
	}
	s.source = src
	s.policy = policy
	s.gen++
}

// Modules returns the registered modules in canonical order.
func (r *Registry) Modules() []zlaunch.Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []zlaunch.Module
	for _, m := range zlaunch.Modules {
		if _, ok := r.slots[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

func (r *Registry) slot(m zlaunch.Module) (*slot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.slots[m]
	return s, ok
}

// binding is a slot's registration at one point in time.
type binding struct {
	source Source
	policy Policy
	gen    uint64
}

func (r *Registry) binding(m zlaunch.Module) (*slot, binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.slots[m]
	if !ok {
		return nil, binding{}, false
	}
	return s, binding{source: s.source, policy: s.policy, gen: s.gen}, true
}

// store installs idx unless m was registered again since b was read.
func (r *Registry) store(s *slot, b binding, idx *Index) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s.gen != b.gen {
		return false
	}
	s.index.Store(idx)
	return true
}

// Snapshot returns the current Index of m. A module that was never
// refreshed has an empty Index.
func (r *Registry) Snapshot(m zlaunch.Module) *Index {
	s, ok := r.slot(m)
	if !ok {
		return &Index{Module: m}
	}
	if idx := s.index.Load(); idx != nil {
		return idx
	}
	return &Index{Module: m}
}

// Refresh rebuilds the Index of m. Concurrent refreshes of the same module
// share one Load. On failure the module is marked stale and empty, and the
// error wraps zlaunch.ErrRefreshFailed.
func (r *Registry) Refresh(ctx context.Context, m zlaunch.Module) error {
	s, b, ok := r.binding(m)
	if !ok {
		return zlaunch.Validationf("unknown module %q", m)
	}

	key := fmt.Sprintf("%s/%d", m, b.gen)
	_, err, _ := r.flight.Do(key, func() (any, error) {
		start := time.Now()
		entries, err := b.source.Load(ctx)
		idx := &Index{
			Module:      m,
			RefreshedAt: time.Now(),
			Cost:        time.Since(start),
		}
		if err != nil {
			idx.Stale = true
			idx.Err = err
			if r.store(s, b, idx) {
				r.logger.Warn("index refresh failed", "module", m, "error", err)
			}
			return nil, zlaunch.WrapError(zlaunch.CodeRefreshFailed, fmt.Errorf("%s: %w", m, err))
		}
		for i := range entries {
			entries[i].Module = m
		}
		idx.Entries = entries
		if !r.store(s, b, idx) {
			r.logger.Debug("discarded refresh of replaced source", "module", m)
			return nil, nil
		}
		r.logger.Debug("index refreshed", "module", m, "entries", len(entries), "cost", idx.Cost)
		return nil, nil
	})
	return err
}

// RefreshAll refreshes every registered module in parallel. Failures only
// affect their own module; the joined errors are returned for logging.
func (r *Registry) RefreshAll(ctx context.Context) error {
	modules := r.Modules()
	errs := make([]error, len(modules))

	var g errgroup.Group
	for i, m := range modules {
		g.Go(func() error {
			errs[i] = r.Refresh(ctx, m)
			return nil
		})
	}
	g.Wait()
	return errors.Join(errs...)
}

// Query is one search across modules.
type Query struct {
	Text string
	// Modules are searched in order; earlier modules win score ties.
	Modules []zlaunch.Module
	// Limit caps the result count. Zero means no limit.
	Limit int
}

// Query refreshes the query-time modules among q.Modules, then ranks the
// entries of every requested module together. Search providers are not
// ranked: a trigger prefix selects one provider, otherwise every provider is
// offered after the ranked results, including for an empty query.
func (r *Registry) Query(ctx context.Context, q Query) ([]Scored, error) {
	var search *Index
	var candidates []Entry
	for _, m := range q.Modules {
		_, b, ok := r.binding(m)
		if !ok {
			continue
		}
		if b.policy == RefreshOnQuery {
			// Failure leaves the module stale and empty; the query goes on.
			_ = r.Refresh(ctx, m)
		}
		idx := r.Snapshot(m)
		if m == zlaunch.ModuleSearch {
			search = idx
			continue
		}
		candidates = append(candidates, idx.Entries...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var det Detection
	if search != nil {
		det = DetectSearch(q.Text, search.Entries)
		if det.Kind == Triggered {
			return []Scored{{Entry: det.Entry()}}, nil
		}
	}

	matches := rank.Rank(q.Text, candidates, func(e Entry) string { return e.Title })
	out := make([]Scored, 0, len(matches))
	for _, m := range matches {
		out = append(out, Scored{Entry: m.Item, Score: m.Score, Positions: m.Positions})
	}

	switch {
	case search == nil:
	case det.Kind == Fallback:
		for _, e := range search.Entries {
			out = append(out, Scored{Entry: FallbackEntry(e, det.Query)})
		}
	case det.Kind == NoSearch:
		for _, e := range search.Entries {
			out = append(out, Scored{Entry: e})
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = slices.Clip(out[:q.Limit])
	}
	return out, nil
}

// Find returns the entry with the given id from the current indexes.
// Search entries are resolved against query, since their URL depends on it.
func (r *Registry) Find(id, query string) (Entry, bool) {
	for _, m := range r.Modules() {
		for _, e := range r.Snapshot(m).Entries {
			if e.ID != id {
				continue
			}
			if m == zlaunch.ModuleSearch {
				det := DetectSearch(query, []Entry{e})
				if det.Kind == Triggered {
					return det.Entry(), true
				}
				return FallbackEntry(e, det.Query), true
			}
			return e, true
		}
	}
	return Entry{}, false
}
