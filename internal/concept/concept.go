// Package concept implements the concept resolver (C5): mapping a
// natural-language query to the legal topics (and their article
// hints) it names, by exact, synonym-expanded, and fuzzy lookup.
package concept

import (
	"context"

	"lawretrieval/internal/core"
)

// Store is the subset of internal/store.Store the resolver needs.
type Store interface {
	FindTopicsExact(ctx context.Context, candidate string) ([]core.ConceptMatch, error)
	FindTopicsFuzzy(ctx context.Context, query string) ([]core.ConceptMatch, error)
	ConceptSynonym(ctx context.Context, term string) (string, bool)
}

// Cache is the subset of the bounded concept LRU cache the resolver uses.
type Cache interface {
	Get(key string) ([]core.ConceptMatch, bool)
	Add(key string, value []core.ConceptMatch) bool
}

// Resolver resolves a query to legal-topic matches.
type Resolver struct {
	store Store
	cache Cache
}

func New(store Store, cache Cache) *Resolver {
	return &Resolver{store: store, cache: cache}
}

// fuzzyLimit is the row cap of the rung-3 LIKE fallback, per §4.5.
// Resolve does not pass it on: the store's FindTopicsFuzzy query
// applies its own LIMIT 10.
const fuzzyLimit = 10

// Resolve returns topic matches for query. It builds an ordered
// candidate list (full query, then contiguous substrings longest to
// shortest, then individual tokens), tries an exact law_topics lookup
// per candidate, falls back to a concept_synonyms expansion per
// candidate, and if nothing matched at all, a fuzzy LIKE scan limited
// to 10 rows. The result is a cacheable immutable snapshot.
func (r *Resolver) Resolve(ctx context.Context, query string) ([]core.ConceptMatch, error) {
	if cached, ok := r.cache.Get(query); ok {
		return cached, nil
	}

	for _, candidate := range candidates(query) {
		exact, err := r.store.FindTopicsExact(ctx, candidate)
		if err == nil && len(exact) > 0 {
			r.cache.Add(query, exact)
			return exact, nil
		}

		canonical, ok := r.store.ConceptSynonym(ctx, candidate)
		if !ok {
			continue
		}
		syn, err := r.store.FindTopicsExact(ctx, canonical)
		if err == nil && len(syn) > 0 {
			r.cache.Add(query, syn)
			return syn, nil
		}
	}

	fuzzy, err := r.store.FindTopicsFuzzy(ctx, query)
	if err != nil {
		r.cache.Add(query, nil)
		return nil, nil
	}
	r.cache.Add(query, fuzzy)
	return fuzzy, nil
}

// ExpandQuery is a diagnostic helper mirroring
// original_source/query_rewriter.py's expand_query: it reports, for
// each candidate token, the canonical concept term it maps to (if
// any), without performing the full topic resolution above.
func (r *Resolver) ExpandQuery(ctx context.Context, query string) map[string]string {
	expansions := map[string]string{}
	for _, candidate := range candidates(query) {
		if canonical, ok := r.store.ConceptSynonym(ctx, candidate); ok {
			expansions[candidate] = canonical
		}
	}
	return expansions
}

// candidates builds the ordered candidate list from §4.5: the full
// query, then all contiguous rune substrings from longest to
// shortest (length >= 2), then individual runes.
func candidates(query string) []string {
	runes := []rune(query)
	n := len(runes)
	if n == 0 {
		return nil
	}

	out := []string{query}
	for length := n - 1; length >= 2; length-- {
		for start := 0; start+length <= n; start++ {
			out = append(out, string(runes[start:start+length]))
		}
	}
	for _, rn := range runes {
		out = append(out, string(rn))
	}
	return out
}
