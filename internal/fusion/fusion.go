// Package fusion implements the fusion ranker (C8): reciprocal-rank
// fusion across the concept, FTS, and vector result paths. There is
// no RRF implementation in the teacher; this adapts the general shape
// of a weighted multi-factor scorer from the teacher's
// internal/relevance/keyword_scorer.go (Score/ScoreBatch, a weights
// struct) to the spec's reciprocal-rank formula.
package fusion

import "sort"

// Weights holds the per-path RRF weights from §4.8/§6.
type Weights struct {
	Concept float64
	FTS     float64
	Vector  float64
}

// Item is one ranked result from a single path, keyed for fusion.
// Key is (law_title, article_number_str) for articles or law_id for
// law-level results, as a caller-chosen string.
type Item struct {
	Key         string
	PublishDate string
	Payload     any
}

// Ranked is a fused result: the winning item plus its RRF score.
type Ranked struct {
	Item  Item
	Score float64
}

// Fuse merges concept/FTS/vector ranked lists via RRF with constant k,
// excluding any key already present in excludeKeys (the higher-
// priority alias/concept segments emitted verbatim ahead of the fused
// rest), tie-breaking by PublishDate descending, and truncating to
// limit.
func Fuse(concept, fts, vector []Item, w Weights, k int, excludeKeys map[string]bool, limit int) []Ranked {
	scores := map[string]float64{}
	best := map[string]Item{}

	merge := func(items []Item, weight float64) {
		items = dedupe(items)
		for rank, it := range items {
			if excludeKeys[it.Key] {
				continue
			}
			scores[it.Key] += weight / float64(k+rank+1)
			if _, ok := best[it.Key]; !ok {
				best[it.Key] = it
			}
		}
	}

	merge(concept, w.Concept)
	merge(fts, w.FTS)
	merge(vector, w.Vector)

	ranked := make([]Ranked, 0, len(scores))
	for key, score := range scores {
		ranked = append(ranked, Ranked{Item: best[key], Score: score})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Item.PublishDate > ranked[j].Item.PublishDate
	})

	if limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked
}

// dedupe removes repeated keys within a single path's list, keeping
// the first (best-ranked) occurrence.
func dedupe(items []Item) []Item {
	seen := map[string]bool{}
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if seen[it.Key] {
			continue
		}
		seen[it.Key] = true
		out = append(out, it)
	}
	return out
}
