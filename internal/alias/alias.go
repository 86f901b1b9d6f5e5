// Package alias implements the alias resolver (C4): mapping a short or
// colloquial law name ("民法典") to its canonical title and law id.
package alias

import (
	"context"

	"lawretrieval/internal/core"
	"lawretrieval/internal/logger"
)

// Store is the subset of internal/store.Store the resolver needs.
type Store interface {
	FindAliasesExact(ctx context.Context, query string) ([]core.AliasMatch, error)
	FindAliasesSubstring(ctx context.Context, query string) ([]core.AliasMatch, error)
}

// Cache is the subset of the bounded alias LRU cache the resolver uses.
type Cache interface {
	Get(key string) ([]core.AliasMatch, bool)
	Add(key string, value []core.AliasMatch) bool
}

// Resolver resolves a query string to its best alias match.
type Resolver struct {
	store Store
	cache Cache
}

func New(store Store, cache Cache) *Resolver {
	return &Resolver{store: store, cache: cache}
}

// substringConfidenceFactor is applied to rung-2 (substring) matches per §4.4.
const substringConfidenceFactor = 0.9

// Resolve looks up query against law_aliases restricted to in-force
// laws: exact match first (ordered by confidence DESC, publish_date
// DESC), then a substring match with confidence scaled by 0.9. It never
// returns an error to the caller; any storage failure is logged here
// and resolves to "no match" for that rung.
func (r *Resolver) Resolve(ctx context.Context, query string) (*core.AliasMatch, bool) {
	if cached, ok := r.cache.Get(query); ok {
		if len(cached) == 0 {
			return nil, false
		}
		best := cached[0]
		return &best, true
	}

	matches, err := r.store.FindAliasesExact(ctx, query)
	if err != nil {
		logger.Warn("alias: exact lookup failed", "error", err.Error())
	}
	if err == nil && len(matches) > 0 {
		r.cache.Add(query, matches)
		best := matches[0]
		return &best, true
	}

	sub, err := r.store.FindAliasesSubstring(ctx, query)
	if err != nil {
		logger.Warn("alias: substring lookup failed", "error", err.Error())
	}
	if err != nil || len(sub) == 0 {
		r.cache.Add(query, nil)
		return nil, false
	}
	for i := range sub {
		sub[i].EffectiveConfidence *= substringConfidenceFactor
	}
	r.cache.Add(query, sub)
	best := sub[0]
	return &best, true
}
