// Package engine implements the query orchestrator (C10): the eight
// public tool-surface operations, composed from the alias, concept,
// FTS, vector, fusion, and enrichment packages behind a single
// human-readable text response. Grounded on the way the teacher wires
// multiple internal packages behind one entry point in
// internal/research/research.go and cmd/handlers.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"lawretrieval/internal/alias"
	"lawretrieval/internal/concept"
	"lawretrieval/internal/core"
	"lawretrieval/internal/enrich"
	"lawretrieval/internal/fusion"
	"lawretrieval/internal/ftsplan"
	"lawretrieval/internal/logger"
	"lawretrieval/internal/numeral"
	"lawretrieval/internal/readiness"
	"lawretrieval/internal/splitter"
	"lawretrieval/internal/store"
	"lawretrieval/internal/vectorindex"
)

// Engine composes the retrieval pipeline behind the public tool
// surface.
type Engine struct {
	store    *store.Store
	aliasR   *alias.Resolver
	conceptR *concept.Resolver
	planner  *ftsplan.Planner
	vecIdx   *vectorindex.Index
	enricher *enrich.Enricher
	gate     *readiness.Gate

	fusionWeights       fusion.Weights
	rrfK                int
	vectorWaitTimeout   time.Duration
	vectorSearchTimeout time.Duration
}

// Embedder is the subset of internal/embedder.Embedder the vector
// index needs.
type Embedder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// Options configures a new Engine, mirroring the §6 configuration knobs.
type Options struct {
	FusionWeights       fusion.Weights
	RRFK                int
	Boost               vectorindex.BoostConfig
	VectorWaitTimeout   time.Duration
	VectorSearchTimeout time.Duration
}

// New wires an Engine over st, starting the vector index's background
// preload immediately (C11).
func New(ctx context.Context, st *store.Store, embedder Embedder, opts Options) *Engine {
	aliasR := alias.New(st, st.AliasCache())
	conceptR := concept.New(st, st.ConceptCache())
	planner := ftsplan.New(st)
	vecIdx := vectorindex.New(storeLoaderAdapter{st}, embedder, opts.Boost)
	enricher := enrich.New(storeEnrichAdapter{st})
	gate := readiness.NewGate()

	e := &Engine{
		store: st, aliasR: aliasR, conceptR: conceptR, planner: planner,
		vecIdx: vecIdx, enricher: enricher, gate: gate,
		fusionWeights: opts.FusionWeights, rrfK: opts.RRFK,
		vectorWaitTimeout: opts.VectorWaitTimeout, vectorSearchTimeout: opts.VectorSearchTimeout,
	}

	st.OnClearCaches(func() {
		reloadCtx, cancel := context.WithTimeout(context.Background(), opts.VectorWaitTimeout)
		defer cancel()
		if err := vecIdx.Reload(reloadCtx); err != nil {
			logger.Warn("engine: vector index reload failed", "error", err.Error())
		}
	})

	readiness.StartPreload(ctx, gate, vecIdx)
	return e
}

// storeLoaderAdapter adapts *store.Store to vectorindex.Loader, since
// the two packages define their own row types to avoid a reverse
// dependency.
type storeLoaderAdapter struct{ s *store.Store }

func (a storeLoaderAdapter) LoadAllEmbeddings(ctx context.Context) ([]vectorindex.Row, error) {
	rows, err := a.s.LoadAllEmbeddings(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]vectorindex.Row, len(rows))
	for i, r := range rows {
		out[i] = vectorindex.Row{ArticleID: r.ArticleID, Embedding: r.Embedding, ArticleLength: r.ArticleLength, LawTitle: r.LawTitle}
	}
	return out, nil
}

// storeEnrichAdapter adapts *store.Store to enrich.Store.
type storeEnrichAdapter struct{ s *store.Store }

func (a storeEnrichAdapter) GetSiblingArticles(ctx context.Context, lawID int64, chapterPath string, targetNumber, limit int) ([]core.Article, error) {
	return a.s.GetSiblingArticles(ctx, lawID, chapterPath, targetNumber, limit)
}

func (a storeEnrichAdapter) GetCrossReferences(ctx context.Context, lawID int64, articleInt int) ([]enrich.CrossReferenceRow, error) {
	rows, err := a.s.GetCrossReferences(ctx, lawID, articleInt)
	if err != nil {
		return nil, err
	}
	out := make([]enrich.CrossReferenceRow, len(rows))
	for i, r := range rows {
		out[i] = enrich.CrossReferenceRow{
			CrossReference: core.CrossReference{
				SourceLawID:      r.SourceLawID,
				SourceArticleInt: r.SourceArticleInt,
				TargetLawID:      r.TargetLawID,
				TargetArticleInt: r.TargetArticleInt,
				RefType:          r.RefType,
			},
			TargetLawTitle: r.TargetLawTitle,
			TargetContent:  r.TargetContent,
		}
	}
	return out, nil
}

// resolveLaw resolves title via alias -> exact title -> substring,
// selecting the best by the duplicate-law tie-break (in_force first,
// then latest publish_date).
func (e *Engine) resolveLaw(ctx context.Context, title string) (*core.Law, error) {
	if match, ok := e.aliasR.Resolve(ctx, title); ok {
		law, err := e.store.GetLawByID(ctx, match.LawID)
		if err == nil && law != nil {
			return law, nil
		}
	}

	laws, err := e.store.FindLawsByTitle(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("resolveLaw: %w", err)
	}
	if len(laws) > 0 {
		return &laws[0], nil
	}

	laws, err = e.store.FindLawsByTitleSubstring(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("resolveLaw: %w", err)
	}
	if len(laws) == 0 {
		return nil, ErrNotFound
	}
	return &laws[0], nil
}

// articleNumberRe strips an optional 第…条 wrapper and an optional
// 之-suffix off a caller-supplied article number, accepting either
// Arabic digits or Chinese numerals for both parts: "1023",
// "第1023条", "第一百二十条之一" all match.
var articleNumberRe = regexp.MustCompile(`^第?(\d+|[一二三四五六七八九十百千万零]+)条?(之(\d+|[一二三四五六七八九十百千万零]+))?$`)

// parseArticleNumber splits a caller-supplied article number into its
// raw base and raw suffix (both still in whatever numeral system the
// caller used). If the input doesn't match the wrapper/suffix shape
// at all, it is returned verbatim as the base with no suffix.
func parseArticleNumber(s string) (base, suffix string) {
	m := articleNumberRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return strings.TrimSpace(s), ""
	}
	return m[1], m[3]
}

// canonicalArticleNumber renders base/suffix in the same form
// internal/splitter assigns to Article.NumberStr: the base converted
// to Arabic digits, the suffix preserved verbatim, since the splitter
// never converts the 之-suffix itself (only the base number).
func canonicalArticleNumber(base, suffix string) string {
	numStr := strconv.Itoa(numeral.ToInt(base))
	if suffix != "" {
		numStr += "之" + suffix
	}
	return numStr
}

// lookupArticleByNumStr resolves an article from a canonical number
// string. An exact article_number_int lookup is only attempted when
// numStr carries no 之-suffix, since article_number_int alone cannot
// distinguish "120" from "120之一" once a law has both; the
// number_str LIKE fallback handles suffixed numbers and anything the
// int lookup misses.
func (e *Engine) lookupArticleByNumStr(ctx context.Context, lawID int64, numStr string) (*core.Article, error) {
	if !strings.Contains(numStr, "之") {
		if n, err := strconv.Atoi(numStr); err == nil {
			article, err := e.store.GetArticleByNumber(ctx, lawID, n)
			if err != nil {
				return nil, err
			}
			if article != nil {
				return article, nil
			}
		}
	}
	return e.store.GetArticleByNumberStr(ctx, lawID, numStr)
}

// GetArticle resolves lawTitle and articleNumber and returns a
// formatted article with status, siblings, and cross-references.
func (e *Engine) GetArticle(ctx context.Context, lawTitle, articleNumber string) (string, error) {
	law, err := e.resolveLaw(ctx, lawTitle)
	if err != nil {
		return "", err
	}

	base, suffix := parseArticleNumber(articleNumber)
	article, err := e.lookupArticleByNumStr(ctx, law.ID, canonicalArticleNumber(base, suffix))
	if err != nil {
		return "", fmt.Errorf("GetArticle: %w", err)
	}
	if article == nil {
		return "", ErrNotFound
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📄 %s 第%s条\n\n%s\n\n", law.Title, article.NumberStr, article.Content)
	fmt.Fprintf(&b, "%s\n", statusLine(law))

	siblings, err := e.enricher.Siblings(ctx, *article)
	if err != nil {
		logger.Warn("GetArticle: siblings lookup failed", "error", err.Error())
	}
	if len(siblings) > 0 {
		b.WriteString("\n📂 同章节条文：")
		for _, s := range siblings {
			fmt.Fprintf(&b, " 第%s条", s.NumberStr)
		}
		b.WriteString("\n")
	}

	xrefs, err := e.enricher.CrossReferences(ctx, *article)
	if err != nil {
		logger.Warn("GetArticle: cross-reference lookup failed", "error", err.Error())
	}
	for _, line := range xrefs {
		fmt.Fprintf(&b, "\n🔗 %s", line)
	}

	return b.String(), nil
}

func statusLine(law *core.Law) string {
	switch law.Status {
	case core.StatusInForce:
		return "✅ 现行有效"
	case core.StatusRepealed:
		return "❌ 已废止"
	case core.StatusAmended:
		return "⚠️ 已修订"
	case core.StatusNotYetEffective:
		return "⚠️ 尚未生效"
	default:
		return "⚠️ 状态未知"
	}
}

// CheckLawValidity reports a law's status and, if repealed, suggests a
// successor.
func (e *Engine) CheckLawValidity(ctx context.Context, lawTitle string) (string, error) {
	law, err := e.resolveLaw(ctx, lawTitle)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📌 %s\n%s（施行日期：%s）\n", law.Title, statusLine(law), law.PublishDate)
	if law.IsAmendment && law.BaseLawTitle != "" {
		fmt.Fprintf(&b, "（修订自 %s）\n", law.BaseLawTitle)
	}

	if law.Status == core.StatusRepealed {
		successor, err := e.store.FindSuccessorLaw(ctx, law.Title, 4, law.PublishDate)
		if err == nil && successor != nil {
			fmt.Fprintf(&b, "\n➡️ 可能的后续法律：%s（%s）\n", successor.Title, successor.PublishDate)
		}
	}
	return b.String(), nil
}

// GetLawStructure parses a statute's hierarchy into a nested tree
// without inlining article content.
func (e *Engine) GetLawStructure(ctx context.Context, lawTitle string) (string, error) {
	law, err := e.resolveLaw(ctx, lawTitle)
	if err != nil {
		return "", err
	}

	roots := splitter.Hierarchy(law.Content)
	var b strings.Builder
	fmt.Fprintf(&b, "📂 %s\n", law.Title)
	for _, r := range roots {
		writeHierarchy(&b, r, 0)
	}
	return b.String(), nil
}

func writeHierarchy(b *strings.Builder, n *splitter.HierarchyNode, depth int) {
	fmt.Fprintf(b, "%s%s %s\n", strings.Repeat("  ", depth), n.Name, n.Title)
	for _, c := range n.Children {
		writeHierarchy(b, c, depth+1)
	}
}

// SearchLaws combines alias, concept, FTS, and vector search.
func (e *Engine) SearchLaws(ctx context.Context, query, category, status string, limit int) (string, error) {
	if status == "" {
		status = string(core.StatusInForce)
	}
	if limit <= 0 {
		limit = 15
	}

	var b strings.Builder
	filled := 0

	if match, ok := e.aliasR.Resolve(ctx, query); ok {
		fmt.Fprintf(&b, "📌 %s（别名匹配，置信度 %.2f）\n\n", match.CanonicalTitle, match.EffectiveConfidence)
		filled++
	}

	concepts, err := e.conceptR.Resolve(ctx, query)
	if err != nil {
		logger.Warn("SearchLaws: concept resolve failed", "error", err.Error())
	}
	for _, c := range concepts {
		fmt.Fprintf(&b, "📌 %s · %s\n", c.Topic, c.LawTitle)
		if len(c.Hints) > 0 {
			if a, err := e.store.GetArticleByNumber(ctx, c.LawID, c.Hints[0]); err == nil && a != nil {
				fmt.Fprintf(&b, "  📄 第%s条：%s\n", a.NumberStr, preview(a.Content, 120))
			}
		}
		filled++
	}

	ftsHits, err := e.planner.SearchLaws(ctx, query, category, status, limit-filled)
	if err != nil {
		logger.Warn("SearchLaws: fts ladder failed", "error", err.Error())
	}
	for _, h := range ftsHits {
		fmt.Fprintf(&b, "📄 %s\n", h.LawTitle)
		filled++
	}

	if filled < limit {
		waitCtx, cancel := context.WithTimeout(ctx, e.vectorWaitTimeout)
		_, ok := e.gate.Wait(waitCtx)
		cancel()
		if ok {
			searchCtx, cancel := context.WithTimeout(ctx, e.vectorSearchTimeout)
			hits, err := e.vecIdx.Search(searchCtx, query, limit-filled)
			cancel()
			if err != nil {
				logger.Warn("SearchLaws: vector search failed", "error", err.Error())
			}
			for _, h := range hits {
				article, err := articleByID(ctx, e.store, h.ArticleID)
				if err == nil && article != nil {
					fmt.Fprintf(&b, "🔎 第%s条（语义相关，score=%.3f）\n", article.NumberStr, h.Score)
				}
			}
		}
	}

	if filled == 0 && b.Len() == 0 {
		return "", ErrNotFound
	}
	return b.String(), nil
}

// articleByID resolves a vector hit, which carries only article_id,
// to its article through the store's primary-key lookup GetArticleByID.
func articleByID(ctx context.Context, st *store.Store, id int64) (*core.Article, error) {
	return st.GetArticleByID(ctx, id)
}

// SearchArticleContent runs concept, FTS, and vector paths and fuses
// them via RRF.
func (e *Engine) SearchArticleContent(ctx context.Context, keywords string, limit int) (string, error) {
	if limit <= 0 {
		limit = 10
	}

	var conceptItems, ftsItems, vectorItems []fusion.Item
	articleByKey := map[string]core.FTSResult{}

	concepts, _ := e.conceptR.Resolve(ctx, keywords)
	for _, c := range concepts {
		for _, hint := range c.Hints {
			if a, err := e.store.GetArticleByNumber(ctx, c.LawID, hint); err == nil && a != nil {
				key := fusionKey(c.LawTitle, a.NumberStr)
				conceptItems = append(conceptItems, fusion.Item{Key: key})
				articleByKey[key] = core.FTSResult{LawTitle: c.LawTitle, ArticleNum: a.NumberStr, ChapterPath: a.ChapterPath, Content: a.Content}
			}
		}
	}

	ftsHits, _ := e.planner.SearchArticles(ctx, keywords, limit*3)
	for _, h := range ftsHits {
		key := fusionKey(h.LawTitle, h.ArticleNum)
		ftsItems = append(ftsItems, fusion.Item{Key: key})
		articleByKey[key] = h
	}

	waitCtx, cancel := context.WithTimeout(ctx, e.vectorWaitTimeout)
	_, ok := e.gate.Wait(waitCtx)
	cancel()
	if ok {
		searchCtx, cancel := context.WithTimeout(ctx, e.vectorSearchTimeout)
		hits, _ := e.vecIdx.Search(searchCtx, keywords, limit*3)
		cancel()
		for _, h := range hits {
			a, err := articleByID(ctx, e.store, h.ArticleID)
			if err != nil || a == nil {
				continue
			}
			law, err := e.store.GetLawByID(ctx, a.LawID)
			if err != nil || law == nil {
				continue
			}
			key := fusionKey(law.Title, a.NumberStr)
			vectorItems = append(vectorItems, fusion.Item{Key: key})
			articleByKey[key] = core.FTSResult{LawTitle: law.Title, ArticleNum: a.NumberStr, ChapterPath: a.ChapterPath, Content: a.Content}
		}
	}

	ranked := fusion.Fuse(conceptItems, ftsItems, vectorItems, e.fusionWeights, e.rrfK, nil, limit)

	var b strings.Builder
	for _, r := range ranked {
		art := articleByKey[r.Item.Key]
		fmt.Fprintf(&b, "📄 %s › %s · 第%s条\n%s\n\n", art.LawTitle, art.ChapterPath, art.ArticleNum, preview(art.Content, 200))
	}
	if b.Len() == 0 {
		return "", ErrNotFound
	}
	return b.String(), nil
}

func fusionKey(lawTitle, articleNumStr string) string {
	return lawTitle + "|" + articleNumStr
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// legal stopwords for GetLegalBasis's keyword extraction.
var legalStopwords = map[string]bool{
	"的": true, "了": true, "和": true, "是": true, "在": true, "与": true,
	"或": true, "及": true, "对": true, "为": true, "之": true, "其": true,
}

// GetLegalBasis extracts up to 8 keyword tokens from caseDescription
// (filtered against a fixed legal-stopword set, frequency-ranked as a
// stand-in for TF-IDF since there is no such scoring library anywhere
// in the retrieval pack) and delegates to SearchLaws.
func (e *Engine) GetLegalBasis(ctx context.Context, caseDescription string, limit int) (string, error) {
	if limit <= 0 {
		limit = 5
	}
	keywords := extractKeywords(caseDescription, 8)
	return e.SearchLaws(ctx, strings.Join(keywords, " "), "", string(core.StatusInForce), limit)
}

func extractKeywords(text string, max int) []string {
	freq := map[string]int{}
	runes := []rune(text)
	for i := 0; i+1 < len(runes); i++ {
		bigram := string(runes[i : i+2])
		if legalStopwords[string(runes[i])] || legalStopwords[string(runes[i+1])] {
			continue
		}
		freq[bigram]++
	}

	type kv struct {
		k string
		v int
	}
	var sorted []kv
	for k, v := range freq {
		sorted = append(sorted, kv{k, v})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].v != sorted[j].v {
			return sorted[i].v > sorted[j].v
		}
		return sorted[i].k < sorted[j].k
	})

	var out []string
	for _, e := range sorted {
		if len(out) >= max {
			break
		}
		out = append(out, e.k)
	}
	return out
}

var (
	quotedCitationRe = regexp.MustCompile(`《([^》]+)》第(\d+|[一二三四五六七八九十百千万零]+)条(之(\d+|[一二三四五六七八九十百千万零]+))?`)
	bareCitationRe   = regexp.MustCompile(`([^\s《》，。；：、]{2,20}(?:法|典|条例|规定|办法))第(\d+|[一二三四五六七八九十百千万零]+)条(之(\d+|[一二三四五六七八九十百千万零]+))?`)
)

// BatchVerifyCitations scans text for statute citations of either
// form, resolves each unique one with the same law and article lookups
// GetArticle uses (resolveLaw, lookupArticleByNumStr), and reports its
// status.
func (e *Engine) BatchVerifyCitations(ctx context.Context, text string) (string, error) {
	type citation struct {
		law, number string
	}
	seen := map[citation]bool{}
	var citations []citation

	for _, m := range quotedCitationRe.FindAllStringSubmatch(text, -1) {
		c := citation{law: m[1], number: canonicalArticleNumber(m[2], m[4])}
		if !seen[c] {
			seen[c] = true
			citations = append(citations, c)
		}
	}
	for _, m := range bareCitationRe.FindAllStringSubmatch(text, -1) {
		c := citation{law: m[1], number: canonicalArticleNumber(m[2], m[4])}
		if !seen[c] {
			seen[c] = true
			citations = append(citations, c)
		}
	}

	if len(citations) == 0 {
		return "未发现法律引用。", nil
	}

	var b strings.Builder
	for _, c := range citations {
		law, err := e.resolveLaw(ctx, c.law)
		if err != nil {
			fmt.Fprintf(&b, "❓ %s第%s条：未找到\n", c.law, c.number)
			continue
		}
		article, _ := e.lookupArticleByNumStr(ctx, law.ID, c.number)
		switch {
		case article == nil:
			fmt.Fprintf(&b, "❓ %s第%s条：条文未找到\n", law.Title, c.number)
		case law.Status == core.StatusInForce:
			fmt.Fprintf(&b, "✅ %s第%s条：现行有效\n", law.Title, c.number)
		case law.Status == core.StatusRepealed:
			fmt.Fprintf(&b, "❌ %s第%s条：已废止\n", law.Title, c.number)
		default:
			fmt.Fprintf(&b, "⚠️ %s第%s条：%s\n", law.Title, c.number, statusLine(law))
		}
	}
	return b.String(), nil
}

// ClearCaches empties the LRU caches and reloads the vector index.
func (e *Engine) ClearCaches() {
	e.store.ClearCaches()
}

// GetStatistics reports law/article counts by category, a supplemented
// diagnostic operation grounded on original_source/database/db_manager.py.
func (e *Engine) GetStatistics(ctx context.Context) (string, error) {
	stats, err := e.store.GetStatistics(ctx)
	if err != nil {
		return "", fmt.Errorf("GetStatistics: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 法律：%d 部，条文：%d 条\n", stats.TotalLaws, stats.TotalArticles)
	var categories []string
	for cat := range stats.ByCategory {
		categories = append(categories, cat)
	}
	sort.Strings(categories)
	for _, cat := range categories {
		fmt.Fprintf(&b, "  · %s：%d\n", cat, stats.ByCategory[cat])
	}
	return b.String(), nil
}
