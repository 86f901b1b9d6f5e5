// Package splitter parses a statute's full text into an ordered
// sequence of hierarchy-annotated articles (C2). It is a pure function
// of its input text: patterns are compiled once at package init and
// the splitter holds no mutable state across calls, matching the
// line-oriented extraction style of the teacher's internal/parser
// package.
package splitter

import (
	"regexp"
	"strconv"
	"strings"

	"lawretrieval/internal/logger"
	"lawretrieval/internal/numeral"
)

const cnNumClass = `[一二三四五六七八九十百千万零]+`

var (
	hierarchyRe = regexp.MustCompile(`^第(` + cnNumClass + `)(编|分编|章|节)\s+(.+)$`)
	articleRe   = regexp.MustCompile(`^第(\d+|` + cnNumClass + `)条(之(\d+|` + cnNumClass + `))?`)
)

// level indexes the four hierarchy ranks, from coarsest to finest.
type level int

const (
	levelBook level = iota
	levelPart
	levelChapter
	levelSection
	levelCount
)

var markerToLevel = map[string]level{
	"编":  levelBook,
	"分编": levelPart,
	"章":  levelChapter,
	"节":  levelSection,
}

// Article is one emitted article record, matching core.Article's
// shape minus the law foreign key (the caller assigns LawID).
type Article struct {
	NumberInt   int
	NumberStr   string
	Content     string
	ChapterPath string
}

// Split parses a statute's full text into an ordered list of articles.
// Articles are emitted in source order; each emitted article's first
// line matches the opener pattern it was detected from.
func Split(text string) []Article {
	var articles []Article

	var hierarchy [levelCount]string
	var cur *Article
	var lines []string

	flush := func() {
		if cur == nil {
			return
		}
		cur.Content = strings.Join(lines, "\n")
		articles = append(articles, *cur)
		cur = nil
		lines = nil
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, " \t\r")

		if m := hierarchyRe.FindStringSubmatch(line); m != nil {
			lvl := markerToLevel[m[2]]
			hierarchy[lvl] = line
			for l := lvl + 1; l < levelCount; l++ {
				hierarchy[l] = ""
			}
			continue
		}

		if m := articleRe.FindStringSubmatch(line); m != nil {
			flush()
			n := numeral.ToInt(m[1])
			numStr := strconv.Itoa(n)
			if m[3] != "" {
				numStr += "之" + m[3]
			}
			if n == 0 {
				numStr = m[1]
				if m[3] != "" {
					numStr = m[1] + "之" + m[3]
				}
				logger.Warn("splitter: failed to parse article number", "raw", m[1])
			}
			cur = &Article{
				NumberInt:   n,
				NumberStr:   numStr,
				ChapterPath: joinHierarchy(hierarchy),
			}
			lines = []string{line}
			continue
		}

		if cur == nil {
			// discard blank/stray lines outside any article
			continue
		}
		lines = append(lines, line)
	}
	flush()

	return articles
}

// HierarchyNode is one Book/Part/Chapter/Section node in a statute's
// table of contents, per get_law_structure (§4.10). Articles
// themselves are deliberately not included, to keep the tree
// lightweight.
type HierarchyNode struct {
	Type     string
	Name     string
	Title    string
	Children []*HierarchyNode
}

var levelTypeNames = map[level]string{
	levelBook: "book", levelPart: "part", levelChapter: "chapter", levelSection: "section",
}

// Hierarchy parses a statute's Book/Part/Chapter/Section structure
// into a forest of HierarchyNode, without inlining any article content.
func Hierarchy(text string) []*HierarchyNode {
	var roots []*HierarchyNode
	var current [levelCount]*HierarchyNode

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, " \t\r")
		m := hierarchyRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		lvl := markerToLevel[m[2]]
		node := &HierarchyNode{
			Type:  levelTypeNames[lvl],
			Name:  "第" + m[1] + m[2],
			Title: m[3],
		}
		current[lvl] = node
		for l := lvl + 1; l < levelCount; l++ {
			current[l] = nil
		}

		parent := parentOf(current, lvl)
		if parent == nil {
			roots = append(roots, node)
		} else {
			parent.Children = append(parent.Children, node)
		}
	}
	return roots
}

func parentOf(current [levelCount]*HierarchyNode, lvl level) *HierarchyNode {
	for l := lvl - 1; l >= 0; l-- {
		if current[l] != nil {
			return current[l]
		}
	}
	return nil
}

func joinHierarchy(h [levelCount]string) string {
	var parts []string
	for _, v := range h {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " > ")
}
