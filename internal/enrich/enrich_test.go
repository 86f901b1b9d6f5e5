package enrich

import (
	"context"
	"strings"
	"testing"

	"lawretrieval/internal/core"
)

type fakeStore struct {
	siblings []core.Article
	xrefs    []CrossReferenceRow
}

func (f *fakeStore) GetSiblingArticles(ctx context.Context, lawID int64, chapterPath string, targetNumber, limit int) ([]core.Article, error) {
	return f.siblings, nil
}

func (f *fakeStore) GetCrossReferences(ctx context.Context, lawID int64, articleInt int) ([]CrossReferenceRow, error) {
	return f.xrefs, nil
}

func TestSiblings_SortedAscending(t *testing.T) {
	store := &fakeStore{siblings: []core.Article{
		{NumberInt: 8}, {NumberInt: 2}, {NumberInt: 5},
	}}
	e := New(store)

	got, err := e.Siblings(context.Background(), core.Article{LawID: 1, NumberInt: 5, ChapterPath: "第一章"})
	if err != nil {
		t.Fatalf("Siblings failed: %v", err)
	}
	want := []int{2, 5, 8}
	for i, n := range want {
		if got[i].NumberInt != n {
			t.Errorf("got[%d] = %d, want %d", i, got[i].NumberInt, n)
		}
	}
}

func TestSiblings_EmptyChapterPathReturnsNil(t *testing.T) {
	e := New(&fakeStore{siblings: []core.Article{{NumberInt: 1}}})
	got, err := e.Siblings(context.Background(), core.Article{ChapterPath: ""})
	if err != nil {
		t.Fatalf("Siblings failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil siblings when chapter path is empty, got %v", got)
	}
}

func TestCrossReferences_RenderedFormat(t *testing.T) {
	store := &fakeStore{xrefs: []CrossReferenceRow{
		{
			CrossReference: core.CrossReference{TargetArticleInt: 538},
			TargetLawTitle:  "合同编通则解释",
			TargetContent:   strings.Repeat("内容", 60),
		},
	}}
	e := New(store)

	lines, err := e.CrossReferences(context.Background(), core.Article{LawID: 1, NumberInt: 1})
	if err != nil {
		t.Fatalf("CrossReferences failed: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if !strings.HasPrefix(lines[0], "合同编通则解释 · 第538条 · ") {
		t.Errorf("line = %q, unexpected format", lines[0])
	}
	if !strings.HasSuffix(lines[0], "...") {
		t.Errorf("line = %q, expected truncation ellipsis for long content", lines[0])
	}
}

func TestCrossReferences_EmptyDropped(t *testing.T) {
	e := New(&fakeStore{})
	lines, err := e.CrossReferences(context.Background(), core.Article{LawID: 1, NumberInt: 1})
	if err != nil {
		t.Fatalf("CrossReferences failed: %v", err)
	}
	if lines != nil {
		t.Errorf("expected nil lines when no cross-references exist, got %v", lines)
	}
}
