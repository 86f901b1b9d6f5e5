// Package ftsplan implements the FTS query planner (C6): a six-rung
// search ladder that widens from an exact phrase match down to a plain
// LIKE scan, returning at the first rung that produces a hit.
package ftsplan

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"lawretrieval/internal/core"
)

// Store is the subset of internal/store.Store the planner needs.
type Store interface {
	SearchLawsFTS(ctx context.Context, matchExpr, category, status string, limit int) ([]core.FTSResult, error)
	SearchArticlesFTS(ctx context.Context, matchExpr string, limit int) ([]core.FTSResult, error)
	SearchLawsLike(ctx context.Context, tokens []string, category, status string, limit int) ([]core.FTSResult, error)
	SearchArticlesLike(ctx context.Context, tokens []string, limit int) ([]core.FTSResult, error)
	SearchSynonymGroup(ctx context.Context, word string) ([]string, error)
}

// Planner runs the six-rung ladder against laws or articles.
type Planner struct {
	store Store
}

func New(store Store) *Planner {
	return &Planner{store: store}
}

var onlyChineseNoSpace = regexp.MustCompile(`^[\p{Han}，。、？！：；【】《》（）]+$`)

// tokenize implements §4.6 rung 2: a Chinese search-mode tokenizer
// producing tokens of length >= 2 when the query is pure Chinese text
// with no spaces, otherwise a plain whitespace split. There is no
// Chinese word-segmentation library anywhere in the retrieval pack
// (see DESIGN.md), so this uses a bigram-overlap shingling scheme: a
// rune-level sliding window of length 2. It does not segment words:
// "离婚股权" yields 离婚, 婚股 and 股权.
func tokenize(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if !strings.ContainsAny(query, " \t") && onlyChineseNoSpace.MatchString(query) {
		return shingle(query, 2)
	}
	fields := strings.Fields(query)
	var tokens []string
	for _, f := range fields {
		if len([]rune(f)) >= 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// shingle splits s into overlapping rune windows of the given length.
func shingle(s string, length int) []string {
	runes := []rune(s)
	var filtered []rune
	for _, r := range runes {
		if unicode.Is(unicode.Han, r) {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) < length {
		if len(filtered) == 0 {
			return nil
		}
		return []string{string(filtered)}
	}
	seen := map[string]bool{}
	var out []string
	for i := 0; i+length <= len(filtered); i++ {
		tok := string(filtered[i : i+length])
		if !seen[tok] {
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return out
}

func phraseQuery(q string) string {
	return `"` + strings.ReplaceAll(q, `"`, `""`) + `"`
}

func andExpr(tokens []string) string {
	var parts []string
	for _, t := range tokens {
		if len([]rune(t)) < 2 {
			continue
		}
		parts = append(parts, phraseQuery(t))
	}
	return strings.Join(parts, " AND ")
}

// SearchLaws runs the law-level ladder: rungs 1 (exact phrase), 4 (AND
// without synonyms), and 6 (LIKE fallback) — rungs 3/5's synonym
// expansion is an articles-only concern per §4.6.
func (p *Planner) SearchLaws(ctx context.Context, query, category, status string, limit int) ([]core.FTSResult, error) {
	if hits, err := p.store.SearchLawsFTS(ctx, phraseQuery(query), category, status, limit); err == nil && len(hits) > 0 {
		return hits, nil
	}

	tokens := tokenize(query)
	if expr := andExpr(tokens); expr != "" {
		if hits, err := p.store.SearchLawsFTS(ctx, expr, category, status, limit); err == nil && len(hits) > 0 {
			return hits, nil
		}
	}

	hits, err := p.store.SearchLawsLike(ctx, tokens, category, status, limit)
	if err != nil {
		return nil, nil
	}
	return hits, nil
}

// SearchArticles runs the full six-rung ladder.
func (p *Planner) SearchArticles(ctx context.Context, query string, limit int) ([]core.FTSResult, error) {
	if hits, err := p.store.SearchArticlesFTS(ctx, phraseQuery(query), limit); err == nil && len(hits) > 0 {
		return hits, nil
	}

	tokens := tokenize(query)

	if expr := p.andWithSynonyms(ctx, tokens); expr != "" {
		if hits, err := p.store.SearchArticlesFTS(ctx, expr, limit); err == nil && len(hits) > 0 {
			return hits, nil
		}
	}

	if expr := andExpr(tokens); expr != "" {
		if hits, err := p.store.SearchArticlesFTS(ctx, expr, limit); err == nil && len(hits) > 0 {
			return hits, nil
		}
	}

	if expr := p.orOfSynonymExpanded(ctx, tokens); expr != "" {
		if hits, err := p.store.SearchArticlesFTS(ctx, expr, limit); err == nil && len(hits) > 0 {
			return hits, nil
		}
	}

	hits, err := p.store.SearchArticlesLike(ctx, tokens, limit)
	if err != nil {
		return nil, nil
	}
	return hits, nil
}

// andWithSynonyms builds rung 3: for each token, OR its synonym group,
// AND across tokens. Example: "离婚" AND ("股权" OR "出资额" OR "股份").
func (p *Planner) andWithSynonyms(ctx context.Context, tokens []string) string {
	var clauses []string
	for _, t := range tokens {
		if len([]rune(t)) < 2 {
			continue
		}
		group, err := p.store.SearchSynonymGroup(ctx, t)
		if err != nil || len(group) == 0 {
			group = []string{t}
		}
		var quoted []string
		for _, w := range group {
			quoted = append(quoted, phraseQuery(w))
		}
		if len(quoted) == 1 {
			clauses = append(clauses, quoted[0])
		} else {
			clauses = append(clauses, "("+strings.Join(quoted, " OR ")+")")
		}
	}
	return strings.Join(clauses, " AND ")
}

// orOfSynonymExpanded builds rung 5: the broadest attempt, OR-ing every
// synonym-expanded token together.
func (p *Planner) orOfSynonymExpanded(ctx context.Context, tokens []string) string {
	seen := map[string]bool{}
	var quoted []string
	for _, t := range tokens {
		if len([]rune(t)) < 2 {
			continue
		}
		group, err := p.store.SearchSynonymGroup(ctx, t)
		if err != nil || len(group) == 0 {
			group = []string{t}
		}
		for _, w := range group {
			if !seen[w] {
				seen[w] = true
				quoted = append(quoted, phraseQuery(w))
			}
		}
	}
	return strings.Join(quoted, " OR ")
}
