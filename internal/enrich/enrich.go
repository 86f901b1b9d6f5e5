// Package enrich implements the article enricher (C9): siblings and
// cross-references attached to a resolved article. Grounded on the
// teacher's internal/citations/tracker.go for the general shape of a
// small formatting-oriented lookup helper, and on
// original_source/migrations/006_cross_references.py for the
// cross-reference schema and rendering convention.
package enrich

import (
	"context"
	"fmt"

	"lawretrieval/internal/core"
)

// Store is the subset of internal/store.Store the enricher needs.
type Store interface {
	GetSiblingArticles(ctx context.Context, lawID int64, chapterPath string, targetNumber, limit int) ([]core.Article, error)
	GetCrossReferences(ctx context.Context, lawID int64, articleInt int) ([]CrossReferenceRow, error)
}

// CrossReferenceRow mirrors internal/store.CrossReferenceRow, kept as
// its own type here so this package does not need to import store.
type CrossReferenceRow struct {
	core.CrossReference
	TargetLawTitle string
	TargetContent  string
}

const siblingLimit = 10
const previewLength = 100

// Enricher produces siblings and cross-reference adornments for a
// resolved article.
type Enricher struct {
	store Store
}

func New(store Store) *Enricher {
	return &Enricher{store: store}
}

// Siblings returns the up-to-10 articles sharing article.ChapterPath
// within its law, ordered ascending by article number for
// presentation (the store orders by distance; this re-sorts).
func (e *Enricher) Siblings(ctx context.Context, article core.Article) ([]core.Article, error) {
	if article.ChapterPath == "" {
		return nil, nil
	}
	siblings, err := e.store.GetSiblingArticles(ctx, article.LawID, article.ChapterPath, article.NumberInt, siblingLimit)
	if err != nil {
		return nil, fmt.Errorf("enrich: Siblings: %w", err)
	}

	sortByNumberAsc(siblings)
	return siblings, nil
}

func sortByNumberAsc(articles []core.Article) {
	for i := 1; i < len(articles); i++ {
		for j := i; j > 0 && articles[j-1].NumberInt > articles[j].NumberInt; j-- {
			articles[j-1], articles[j] = articles[j], articles[j-1]
		}
	}
}

// CrossReferences returns the rendered cross-reference lines for
// article, in the form "target law title · 第N条 · preview".
func (e *Enricher) CrossReferences(ctx context.Context, article core.Article) ([]string, error) {
	rows, err := e.store.GetCrossReferences(ctx, article.LawID, article.NumberInt)
	if err != nil {
		return nil, fmt.Errorf("enrich: CrossReferences: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("%s · 第%d条 · %s", r.TargetLawTitle, r.TargetArticleInt, preview(r.TargetContent, previewLength)))
	}
	return lines, nil
}

// preview truncates s to at most n runes, appending an ellipsis if
// truncated.
func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
