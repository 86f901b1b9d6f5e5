package store

import (
	"context"
	"testing"

	"lawretrieval/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), 5, [3]int{100, 100, 100})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewStore(t *testing.T) {
	s := newTestStore(t)
	if s.db == nil {
		t.Error("Store database should not be nil")
	}
}

func TestInsertAndGetLaw(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.InsertLaw(ctx, core.Law{
		Title:       "中华人民共和国民法典",
		PublishDate: "2020-05-28",
		Category:    "civil",
		Status:      core.StatusInForce,
		Content:     "第一条 为了保护民事主体的合法权益。",
	})
	if err != nil {
		t.Fatalf("InsertLaw failed: %v", err)
	}

	got, err := s.GetLawByID(ctx, id)
	if err != nil {
		t.Fatalf("GetLawByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected law, got nil")
	}
	if got.Title != "中华人民共和国民法典" {
		t.Errorf("Title = %q, want 中华人民共和国民法典", got.Title)
	}
}

func TestFindLawsByTitle_TieBreak(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _ = s.InsertLaw(ctx, core.Law{Title: "测试法", PublishDate: "2010-01-01", Status: core.StatusRepealed})
	_, _ = s.InsertLaw(ctx, core.Law{Title: "测试法", PublishDate: "2020-01-01", Status: core.StatusInForce})
	_, _ = s.InsertLaw(ctx, core.Law{Title: "测试法", PublishDate: "2015-01-01", Status: core.StatusRepealed})

	laws, err := s.FindLawsByTitle(ctx, "测试法")
	if err != nil {
		t.Fatalf("FindLawsByTitle failed: %v", err)
	}
	if len(laws) != 3 {
		t.Fatalf("got %d laws, want 3", len(laws))
	}
	if laws[0].Status != core.StatusInForce {
		t.Errorf("first law status = %q, want in_force (in-force should win the tie-break)", laws[0].Status)
	}
}

func TestArticleLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	lawID, _ := s.InsertLaw(ctx, core.Law{Title: "测试法", PublishDate: "2020-01-01", Status: core.StatusInForce})
	_, err := s.InsertArticle(ctx, core.Article{
		LawID:       lawID,
		NumberInt:   10,
		NumberStr:   "10",
		Content:     "第十条 测试内容。",
		ChapterPath: "第一章 总则",
	})
	if err != nil {
		t.Fatalf("InsertArticle failed: %v", err)
	}

	got, err := s.GetArticleByNumber(ctx, lawID, 10)
	if err != nil {
		t.Fatalf("GetArticleByNumber failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected article, got nil")
	}
	if got.ChapterPath != "第一章 总则" {
		t.Errorf("ChapterPath = %q", got.ChapterPath)
	}
}

func TestSiblingArticles_OrderedByDistance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	lawID, _ := s.InsertLaw(ctx, core.Law{Title: "测试法", PublishDate: "2020-01-01", Status: core.StatusInForce})
	for _, n := range []int{1, 2, 5, 8, 10} {
		_, _ = s.InsertArticle(ctx, core.Article{
			LawID: lawID, NumberInt: n, NumberStr: "x", Content: "c", ChapterPath: "第一章",
		})
	}

	siblings, err := s.GetSiblingArticles(ctx, lawID, "第一章", 5, 3)
	if err != nil {
		t.Fatalf("GetSiblingArticles failed: %v", err)
	}
	if len(siblings) != 3 {
		t.Fatalf("got %d siblings, want 3", len(siblings))
	}
	if siblings[0].NumberInt != 5 {
		t.Errorf("closest sibling should be 5 itself, got %d", siblings[0].NumberInt)
	}
}

func TestAliasResolution(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	lawID, _ := s.InsertLaw(ctx, core.Law{Title: "中华人民共和国民法典", PublishDate: "2020-01-01", Status: core.StatusInForce})
	if err := s.InsertAlias(ctx, core.Alias{Alias: "民法典", LawID: lawID, Type: core.AliasShortName, Confidence: 1.0}); err != nil {
		t.Fatalf("InsertAlias failed: %v", err)
	}

	exact, err := s.FindAliasesExact(ctx, "民法典")
	if err != nil {
		t.Fatalf("FindAliasesExact failed: %v", err)
	}
	if len(exact) != 1 || exact[0].LawID != lawID {
		t.Errorf("exact alias match = %+v, want single match for lawID %d", exact, lawID)
	}

	sub, err := s.FindAliasesSubstring(ctx, "法典")
	if err != nil {
		t.Fatalf("FindAliasesSubstring failed: %v", err)
	}
	if len(sub) != 1 {
		t.Errorf("substring alias match = %+v, want 1 hit", sub)
	}
}

func TestArticleHintsParsing(t *testing.T) {
	cases := map[string][]int{
		"535,537-539": {535, 537, 538, 539},
		"535，540":     {535, 540},
		"":             nil,
	}
	for in, want := range cases {
		got := parseArticleHints(in)
		if len(got) != len(want) {
			t.Fatalf("parseArticleHints(%q) = %v, want %v", in, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("parseArticleHints(%q)[%d] = %d, want %d", in, i, got[i], want[i])
			}
		}
	}
}

func TestEmbeddingRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	lawID, _ := s.InsertLaw(ctx, core.Law{Title: "测试法", PublishDate: "2020-01-01", Status: core.StatusInForce})
	articleID, _ := s.InsertArticle(ctx, core.Article{LawID: lawID, NumberInt: 1, NumberStr: "1", Content: "内容"})

	vec := []float32{0.1, 0.2, 0.3, 0.4}
	if err := s.PutArticleEmbedding(ctx, articleID, vec); err != nil {
		t.Fatalf("PutArticleEmbedding failed: %v", err)
	}

	rows, err := s.LoadAllEmbeddings(ctx)
	if err != nil {
		t.Fatalf("LoadAllEmbeddings failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d embedding rows, want 1", len(rows))
	}
	if len(rows[0].Embedding) != len(vec) {
		t.Fatalf("round-tripped embedding length = %d, want %d", len(rows[0].Embedding), len(vec))
	}
	for i := range vec {
		if rows[0].Embedding[i] != vec[i] {
			t.Errorf("embedding[%d] = %f, want %f", i, rows[0].Embedding[i], vec[i])
		}
	}
}

func TestClearCaches_SignalsCallback(t *testing.T) {
	s := newTestStore(t)
	called := false
	s.OnClearCaches(func() { called = true })

	s.AliasCache().Add("k", []core.AliasMatch{{LawID: 1}})
	s.ClearCaches()

	if s.AliasCache().Len() != 0 {
		t.Error("alias cache should be empty after ClearCaches")
	}
	if !called {
		t.Error("ClearCaches should invoke the registered callback")
	}
}

func TestSearchLawsFTS(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.InsertLaw(ctx, core.Law{
		Title: "中华人民共和国民法典", PublishDate: "2020-01-01",
		Status: core.StatusInForce, Category: "civil", Content: "物权 合同 婚姻家庭",
	}); err != nil {
		t.Fatalf("InsertLaw failed: %v", err)
	}

	results, err := s.SearchLawsFTS(ctx, `"婚姻"`, "", "in_force", 10)
	if err != nil {
		t.Fatalf("SearchLawsFTS failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
}
