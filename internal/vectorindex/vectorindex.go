// Package vectorindex implements the vector index (C7): an in-memory,
// L2-normalized matrix of article embeddings searched by cosine
// similarity, boosted by a few fixed article-metadata rules. The
// design mirrors the teacher's internal/vectorstore interface
// (Search/SearchQuery/SearchResult) adapted from a pgvector-backed SQL
// store to an in-process parallel-array index, since the corpus this
// engine serves keeps its matrix in memory rather than in the
// database (original_source/vector_db.py).
package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"lawretrieval/internal/logger"
)

// Row is one article's embedding plus the metadata used to compute
// its boost factor.
type Row struct {
	ArticleID     int64
	Embedding     []float32
	ArticleLength int
	LawTitle      string
}

// Loader fetches every embedding row on (re)load.
type Loader interface {
	LoadAllEmbeddings(ctx context.Context) ([]Row, error)
}

// Embedder encodes query text into a vector for search.
type Embedder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// BoostConfig holds the fixed boost rules from §4.7/§6.
type BoostConfig struct {
	CoreLawTitles         []string
	CoreLawFactor         float64
	ShortArticleThreshold int
	ShortArticleFactor    float64
	TinyArticleThreshold  int
	TinyArticleFactor     float64
}

// Hit is a single search result.
type Hit struct {
	ArticleID int64
	Score     float64
	RawScore  float64
}

// Index is the in-memory vector index. Load and Reload hold the mutex
// for the whole build; Search takes it only to copy the slice headers,
// so a search waits while a load is in progress and then scores that
// read-only snapshot without the lock.
type Index struct {
	loader   Loader
	embedder Embedder
	boost    BoostConfig

	mu      sync.Mutex
	loaded  bool
	ids     []int64
	matrix  [][]float32
	boosts  []float64
}

func New(loader Loader, embedder Embedder, boost BoostConfig) *Index {
	return &Index{loader: loader, embedder: embedder, boost: boost}
}

// Load performs the one-time matrix build if it has not run yet.
// Safe to call concurrently; only the first caller does the work.
func (idx *Index) Load(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.loaded {
		return nil
	}
	return idx.loadLocked(ctx)
}

// Reload invalidates the current matrix and rebuilds it immediately,
// used by `clear_caches`.
func (idx *Index) Reload(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.loaded = false
	return idx.loadLocked(ctx)
}

func (idx *Index) loadLocked(ctx context.Context) error {
	rows, err := idx.loader.LoadAllEmbeddings(ctx)
	if err != nil {
		return fmt.Errorf("vectorindex: load failed: %w", err)
	}

	ids := make([]int64, 0, len(rows))
	matrix := make([][]float32, 0, len(rows))
	boosts := make([]float64, 0, len(rows))

	for _, r := range rows {
		if len(r.Embedding) == 0 {
			continue
		}
		ids = append(ids, r.ArticleID)
		matrix = append(matrix, l2Normalize(r.Embedding))
		boosts = append(boosts, idx.computeBoost(r))
	}

	idx.ids = ids
	idx.matrix = matrix
	idx.boosts = boosts
	idx.loaded = true
	return nil
}

// computeBoost applies the §4.7 boost rules: the core-law factor
// multiplies in independently, but the short/tiny length tiers are
// mutually exclusive — a tiny article never also takes the short factor.
func (idx *Index) computeBoost(r Row) float64 {
	b := 1.0
	for _, title := range idx.boost.CoreLawTitles {
		if strings.Contains(r.LawTitle, title) {
			b *= idx.boost.CoreLawFactor
			break
		}
	}
	switch {
	case r.ArticleLength < idx.boost.TinyArticleThreshold:
		b *= idx.boost.TinyArticleFactor
	case r.ArticleLength < idx.boost.ShortArticleThreshold:
		b *= idx.boost.ShortArticleFactor
	}
	return b
}

// Search encodes text, scores every row by boosted cosine similarity,
// and returns the top limit hits. Returns an empty slice (not an
// error) if the index has never loaded successfully — vector search
// degrades to a no-op rather than failing the request.
func (idx *Index) Search(ctx context.Context, text string, limit int) ([]Hit, error) {
	idx.mu.Lock()
	loaded := idx.loaded
	ids := idx.ids
	matrix := idx.matrix
	boosts := idx.boosts
	idx.mu.Unlock()

	if !loaded || len(ids) == 0 {
		return nil, nil
	}

	q, err := idx.embedder.Encode(ctx, text)
	if err != nil {
		logger.Warn("vectorindex: embedder encode failed", "error", err.Error())
		return nil, nil
	}
	q = l2Normalize(q)

	hits := make([]Hit, len(ids))
	for i := range ids {
		raw := dot(matrix[i], q)
		hits[i] = Hit{ArticleID: ids[i], RawScore: raw, Score: raw * boosts[i]}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit < len(hits) {
		hits = hits[:limit]
	}
	return hits, nil
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func l2Normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := float32(math.Sqrt(sumSq))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
