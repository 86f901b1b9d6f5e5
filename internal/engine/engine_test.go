package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"lawretrieval/internal/core"
	"lawretrieval/internal/fusion"
	"lawretrieval/internal/store"
	"lawretrieval/internal/vectorindex"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Encode(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0, 0}, nil
}

func testOptions() Options {
	return Options{
		FusionWeights:       fusion.Weights{Concept: 2.0, FTS: 1.0, Vector: 0.8},
		RRFK:                60,
		Boost:               vectorindex.BoostConfig{ShortArticleThreshold: 50, ShortArticleFactor: 0.5, TinyArticleThreshold: 20, TinyArticleFactor: 0.1},
		VectorWaitTimeout:   200 * time.Millisecond,
		VectorSearchTimeout: 200 * time.Millisecond,
	}
}

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	s, err := store.NewStore(t.TempDir(), 5, [3]int{100, 100, 100})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	e := New(context.Background(), s, fakeEmbedder{}, testOptions())
	// Give the background preload a moment to signal, since there are
	// no embeddings yet and it should finish almost immediately.
	e.gate.Wait(context.Background())
	return e, s
}

func seedCivilCode(t *testing.T, s *store.Store, ctx context.Context) int64 {
	t.Helper()
	lawID, err := s.InsertLaw(ctx, core.Law{
		Title: "中华人民共和国民法典", PublishDate: "2020-05-28",
		Category: "civil", Status: core.StatusInForce,
		Content: "第一编 总则\n第一章 基本规定\n第一条 为了保护民事主体的合法权益。",
	})
	if err != nil {
		t.Fatalf("InsertLaw failed: %v", err)
	}
	if _, err := s.InsertArticle(ctx, core.Article{
		LawID: lawID, NumberInt: 1, NumberStr: "1",
		Content: "为了保护民事主体的合法权益，调整民事关系。", ChapterPath: "第一编 总则 > 第一章 基本规定",
	}); err != nil {
		t.Fatalf("InsertArticle failed: %v", err)
	}
	if err := s.InsertAlias(ctx, core.Alias{Alias: "民法典", LawID: lawID, Type: core.AliasShortName, Confidence: 1.0}); err != nil {
		t.Fatalf("InsertAlias failed: %v", err)
	}
	return lawID
}

func TestGetArticle_ByAlias(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	seedCivilCode(t, s, ctx)

	out, err := e.GetArticle(ctx, "民法典", "1")
	if err != nil {
		t.Fatalf("GetArticle failed: %v", err)
	}
	if !strings.Contains(out, "民事主体的合法权益") {
		t.Errorf("GetArticle output missing article content: %q", out)
	}
	if !strings.Contains(out, "现行有效") {
		t.Errorf("GetArticle output missing status line: %q", out)
	}
}

func TestGetArticle_NotFound(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	seedCivilCode(t, s, ctx)

	_, err := e.GetArticle(ctx, "民法典", "9999")
	if err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetArticle_UnknownLaw(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.GetArticle(ctx, "不存在的法律", "1")
	if err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCheckLawValidity_RepealedSuggestsSuccessor(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	_, _ = s.InsertLaw(ctx, core.Law{Title: "中华人民共和国合同法", PublishDate: "1999-03-15", Status: core.StatusRepealed})
	_, _ = s.InsertLaw(ctx, core.Law{Title: "中华人民共和国民法典", PublishDate: "2020-05-28", Status: core.StatusInForce})

	out, err := e.CheckLawValidity(ctx, "中华人民共和国合同法")
	if err != nil {
		t.Fatalf("CheckLawValidity failed: %v", err)
	}
	if !strings.Contains(out, "已废止") {
		t.Errorf("expected repealed status in output: %q", out)
	}
	if !strings.Contains(out, "中华人民共和国民法典") {
		t.Errorf("expected successor suggestion in output: %q", out)
	}
}

func TestGetLawStructure_NestsHierarchy(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	seedCivilCode(t, s, ctx)

	out, err := e.GetLawStructure(ctx, "民法典")
	if err != nil {
		t.Fatalf("GetLawStructure failed: %v", err)
	}
	if !strings.Contains(out, "总则") || !strings.Contains(out, "基本规定") {
		t.Errorf("structure output missing expected nodes: %q", out)
	}
	if strings.Contains(out, "民事主体的合法权益") {
		t.Errorf("structure output should not inline article content: %q", out)
	}
}

func TestSearchLaws_AliasHit(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	seedCivilCode(t, s, ctx)

	out, err := e.SearchLaws(ctx, "民法典", "", "", 10)
	if err != nil {
		t.Fatalf("SearchLaws failed: %v", err)
	}
	if !strings.Contains(out, "中华人民共和国民法典") {
		t.Errorf("expected alias-resolved title in output: %q", out)
	}
}

func TestSearchLaws_NoMatchReturnsNotFound(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.SearchLaws(ctx, "完全不存在的查询词", "", "", 10)
	if err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSearchArticleContent_FTSPath(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	seedCivilCode(t, s, ctx)

	out, err := e.SearchArticleContent(ctx, "民事主体", 5)
	if err != nil {
		t.Fatalf("SearchArticleContent failed: %v", err)
	}
	if !strings.Contains(out, "第1条") {
		t.Errorf("expected article 1 in fused results: %q", out)
	}
}

func TestBatchVerifyCitations_QuotedForm(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	seedCivilCode(t, s, ctx)

	out, err := e.BatchVerifyCitations(ctx, "根据《中华人民共和国民法典》第1条的规定……")
	if err != nil {
		t.Fatalf("BatchVerifyCitations failed: %v", err)
	}
	if !strings.Contains(out, "现行有效") {
		t.Errorf("expected in-force verdict: %q", out)
	}
}

func TestGetArticle_WrappedArticleNumber(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	lawID := seedCivilCode(t, s, ctx)

	if _, err := s.InsertArticle(ctx, core.Article{
		LawID: lawID, NumberInt: 1023, NumberStr: "1023",
		Content: "国家对归侵权人所有的不动产或者动产，采取保护措施。", ChapterPath: "第四编 人格权",
	}); err != nil {
		t.Fatalf("InsertArticle failed: %v", err)
	}

	out, err := e.GetArticle(ctx, "民法典", "第1023条")
	if err != nil {
		t.Fatalf("GetArticle failed: %v", err)
	}
	if !strings.Contains(out, "不动产或者动产") {
		t.Errorf("GetArticle output missing article 1023 content: %q", out)
	}
}

func TestGetArticle_SuffixedArticleNumber(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	lawID := seedCivilCode(t, s, ctx)

	if _, err := s.InsertArticle(ctx, core.Article{
		LawID: lawID, NumberInt: 120, NumberStr: "120之一",
		Content: "补充规定的内容。", ChapterPath: "第二编 物权",
	}); err != nil {
		t.Fatalf("InsertArticle failed: %v", err)
	}

	out, err := e.GetArticle(ctx, "民法典", "第一百二十条之一")
	if err != nil {
		t.Fatalf("GetArticle failed: %v", err)
	}
	if !strings.Contains(out, "补充规定的内容") {
		t.Errorf("GetArticle output missing suffixed article content: %q", out)
	}
}

func TestBatchVerifyCitations_SuffixedCitation(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	lawID := seedCivilCode(t, s, ctx)

	if _, err := s.InsertArticle(ctx, core.Article{
		LawID: lawID, NumberInt: 120, NumberStr: "120之一",
		Content: "补充规定的内容。", ChapterPath: "第二编 物权",
	}); err != nil {
		t.Fatalf("InsertArticle failed: %v", err)
	}

	out, err := e.BatchVerifyCitations(ctx, "根据《中华人民共和国民法典》第一百二十条之一的规定……")
	if err != nil {
		t.Fatalf("BatchVerifyCitations failed: %v", err)
	}
	if !strings.Contains(out, "现行有效") {
		t.Errorf("expected in-force verdict for suffixed citation: %q", out)
	}
}

func TestBatchVerifyCitations_NoCitations(t *testing.T) {
	e, _ := newTestEngine(t)
	out, err := e.BatchVerifyCitations(context.Background(), "这段话没有任何法律引用。")
	if err != nil {
		t.Fatalf("BatchVerifyCitations failed: %v", err)
	}
	if !strings.Contains(out, "未发现") {
		t.Errorf("expected no-citations message: %q", out)
	}
}

func TestClearCaches_PurgesAliasCache(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	seedCivilCode(t, s, ctx)

	_, _ = e.aliasR.Resolve(ctx, "民法典")
	if s.AliasCache().Len() == 0 {
		t.Fatal("expected alias cache to be populated before ClearCaches")
	}

	e.ClearCaches()
	if s.AliasCache().Len() != 0 {
		t.Error("expected alias cache to be empty after ClearCaches")
	}
}

func TestGetStatistics_CountsLawsAndArticles(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	seedCivilCode(t, s, ctx)

	out, err := e.GetStatistics(ctx)
	if err != nil {
		t.Fatalf("GetStatistics failed: %v", err)
	}
	if !strings.Contains(out, "法律：1") || !strings.Contains(out, "条文：1") {
		t.Errorf("unexpected statistics output: %q", out)
	}
}
