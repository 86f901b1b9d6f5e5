package splitter

import (
	"strings"
	"testing"
)

func TestSplit_SourceOrder(t *testing.T) {
	text := `中华人民共和国民法典
第一编 总则
第一章 基本规定
第一条 为了保护民事主体的合法权益。
这是第一条的第二行。
第二条 民事主体的人身权利受法律保护。
第二章 自然人
第三条 自然人从出生时起到死亡时止。`

	articles := Split(text)
	if len(articles) != 3 {
		t.Fatalf("got %d articles, want 3", len(articles))
	}

	want := []int{1, 2, 3}
	for i, a := range articles {
		if a.NumberInt != want[i] {
			t.Errorf("article %d: NumberInt = %d, want %d", i, a.NumberInt, want[i])
		}
	}

	if !strings.Contains(articles[0].Content, "这是第一条的第二行") {
		t.Errorf("article 0 content missing continuation line: %q", articles[0].Content)
	}
}

func TestSplit_FirstLineMatchesOpener(t *testing.T) {
	text := `第一章 总则
第十条 合同自由。
第十一条 公平原则。`

	for _, a := range Split(text) {
		first := strings.SplitN(a.Content, "\n", 2)[0]
		if m := articleRe.FindString(first); m == "" {
			t.Errorf("article %d first line %q does not match opener pattern", a.NumberInt, first)
		}
	}
}

func TestSplit_ChapterPathOnlyPrecedingHierarchy(t *testing.T) {
	text := `第一编 总则
第一章 基本规定
第一条 内容一。
第二章 自然人
第二条 内容二。`

	articles := Split(text)
	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2", len(articles))
	}
	if !strings.Contains(articles[0].ChapterPath, "第一编") || !strings.Contains(articles[0].ChapterPath, "第一章") {
		t.Errorf("article 0 chapter path missing expected hierarchy: %q", articles[0].ChapterPath)
	}
	if strings.Contains(articles[0].ChapterPath, "第二章") {
		t.Errorf("article 0 chapter path leaked a later hierarchy line: %q", articles[0].ChapterPath)
	}
	if !strings.Contains(articles[1].ChapterPath, "第二章") {
		t.Errorf("article 1 chapter path missing updated chapter: %q", articles[1].ChapterPath)
	}
	if !strings.Contains(articles[1].ChapterPath, "第一编") {
		t.Errorf("article 1 chapter path should still carry the unreset book level: %q", articles[1].ChapterPath)
	}
}

func TestSplit_SuffixNumberStr(t *testing.T) {
	text := `第一条 内容一。
第一条之一 内容一补充。
第二条 内容二。`

	articles := Split(text)
	if len(articles) != 3 {
		t.Fatalf("got %d articles, want 3", len(articles))
	}
	if articles[1].NumberStr != "1之一" {
		t.Errorf("NumberStr = %q, want %q", articles[1].NumberStr, "1之一")
	}
	if articles[1].NumberInt != 1 {
		t.Errorf("NumberInt = %d, want 1", articles[1].NumberInt)
	}
	if strings.Contains(articles[0].NumberStr, "之") || strings.Contains(articles[2].NumberStr, "之") {
		t.Errorf("unsuffixed articles should not carry 之 in NumberStr: %q %q", articles[0].NumberStr, articles[2].NumberStr)
	}
}

func TestSplit_ArabicArticleNumber(t *testing.T) {
	text := `第120条 内容。`
	articles := Split(text)
	if len(articles) != 1 {
		t.Fatalf("got %d articles, want 1", len(articles))
	}
	if articles[0].NumberInt != 120 {
		t.Errorf("NumberInt = %d, want 120", articles[0].NumberInt)
	}
}

func TestHierarchy_NestsChaptersUnderBooks(t *testing.T) {
	text := `第一编 总则
第一章 基本规定
第一条 内容。
第二章 自然人
第二条 内容。
第二编 物权
第三章 通则
第三条 内容。`

	roots := Hierarchy(text)
	if len(roots) != 2 {
		t.Fatalf("got %d root nodes, want 2", len(roots))
	}
	if roots[0].Title != "总则" || roots[1].Title != "物权" {
		t.Errorf("root titles = %q, %q", roots[0].Title, roots[1].Title)
	}
	if len(roots[0].Children) != 2 {
		t.Fatalf("book 1 should have 2 chapters, got %d", len(roots[0].Children))
	}
	if roots[0].Children[0].Type != "chapter" {
		t.Errorf("child type = %q, want chapter", roots[0].Children[0].Type)
	}
	if len(roots[1].Children) != 1 {
		t.Errorf("book 2 should have 1 chapter, got %d", len(roots[1].Children))
	}
}

func TestSplit_DiscardsStrayLinesOutsideArticle(t *testing.T) {
	text := `中华人民共和国民法典
目录

第一条 内容。`
	articles := Split(text)
	if len(articles) != 1 {
		t.Fatalf("got %d articles, want 1", len(articles))
	}
	if strings.Contains(articles[0].Content, "目录") {
		t.Errorf("stray preamble line leaked into article content: %q", articles[0].Content)
	}
}
