// Package store is the persistence adapter (C3): a pooled SQLite
// connection to the legal corpus, its FTS5 virtual tables, and the
// three bounded LRU caches (alias, law, concept) that sit in front of
// the hottest read paths.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/mattn/go-sqlite3"

	"lawretrieval/internal/core"
	"lawretrieval/internal/logger"
)

// Store wraps a pooled *sql.DB plus the three LRU caches sitting in
// front of alias, law, and concept lookups.
type Store struct {
	db   *sql.DB
	path string

	aliasCache   *lru.Cache[string, []core.AliasMatch]
	lawCache     *lru.Cache[string, []core.Law]
	conceptCache *lru.Cache[string, []core.ConceptMatch]

	onClearCaches func()
}

// NewStore opens (creating if necessary) the SQLite database at
// dataDir/legal_database.db, applies the pragmas from §4.3, creates
// the schema if absent, and sizes the three LRU caches per cacheSizes.
func NewStore(dataDir string, poolSize int, cacheSizes [3]int) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "legal_database.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(poolSize)

	s := &Store{db: db, path: dbPath}

	if err := s.applyPragmas(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	aliasCache, err := lru.New[string, []core.AliasMatch](cacheSizes[0])
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create alias cache: %w", err)
	}
	lawCache, err := lru.New[string, []core.Law](cacheSizes[1])
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create law cache: %w", err)
	}
	conceptCache, err := lru.New[string, []core.ConceptMatch](cacheSizes[2])
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create concept cache: %w", err)
	}
	s.aliasCache = aliasCache
	s.lawCache = lawCache
	s.conceptCache = conceptCache

	return s, nil
}

// applyPragmas sets write-ahead logging, normal sync, a 64MB page
// cache, and an in-memory temp store, per §4.3.
func (s *Store) applyPragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func (s *Store) initialize() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS laws (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			publish_date TEXT NOT NULL,
			category TEXT,
			status TEXT NOT NULL DEFAULT 'in_force',
			content TEXT,
			is_amendment BOOLEAN DEFAULT FALSE,
			base_law_title TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_laws_title ON laws(title)`,
		`CREATE INDEX IF NOT EXISTS idx_laws_status ON laws(status)`,

		`CREATE TABLE IF NOT EXISTS law_articles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			law_id INTEGER NOT NULL REFERENCES laws(id),
			article_number_int INTEGER NOT NULL,
			article_number_str TEXT NOT NULL,
			content TEXT,
			chapter_path TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_law_number ON law_articles(law_id, article_number_int)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_chapter_path ON law_articles(law_id, chapter_path)`,

		`CREATE TABLE IF NOT EXISTS law_aliases (
			alias TEXT NOT NULL,
			law_id INTEGER NOT NULL REFERENCES laws(id),
			alias_type TEXT,
			confidence REAL DEFAULT 1.0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_aliases_alias ON law_aliases(alias)`,

		`CREATE TABLE IF NOT EXISTS law_topics (
			topic TEXT NOT NULL,
			law_id INTEGER NOT NULL REFERENCES laws(id),
			article_hints TEXT,
			relevance REAL DEFAULT 1.0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_topics_topic ON law_topics(topic)`,

		`CREATE TABLE IF NOT EXISTS concept_synonyms (
			term TEXT NOT NULL,
			canonical_term TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_concept_synonyms_term ON concept_synonyms(term)`,

		`CREATE TABLE IF NOT EXISTS search_synonyms (
			word TEXT NOT NULL,
			group_id INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_search_synonyms_word ON search_synonyms(word)`,
		`CREATE INDEX IF NOT EXISTS idx_search_synonyms_group ON search_synonyms(group_id)`,

		`CREATE TABLE IF NOT EXISTS article_cross_references (
			source_law_id INTEGER NOT NULL,
			source_article_int INTEGER NOT NULL,
			target_law_id INTEGER NOT NULL,
			target_article_int INTEGER NOT NULL,
			ref_type TEXT NOT NULL DEFAULT 'related',
			UNIQUE(source_law_id, source_article_int, target_law_id, target_article_int)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_xref_source ON article_cross_references(source_law_id, source_article_int)`,

		`CREATE TABLE IF NOT EXISTS article_embeddings (
			article_id INTEGER PRIMARY KEY REFERENCES law_articles(id),
			embedding BLOB NOT NULL
		)`,

		`CREATE VIRTUAL TABLE IF NOT EXISTS laws_fts USING fts5(
			title, content, content='laws', content_rowid='id'
		)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS law_articles_fts USING fts5(
			content, content='law_articles', content_rowid='id'
		)`,

		`CREATE TRIGGER IF NOT EXISTS laws_ai AFTER INSERT ON laws BEGIN
			INSERT INTO laws_fts(rowid, title, content) VALUES (new.id, new.title, new.content);
		END`,
		`CREATE TRIGGER IF NOT EXISTS laws_ad AFTER DELETE ON laws BEGIN
			INSERT INTO laws_fts(laws_fts, rowid, title, content) VALUES ('delete', old.id, old.title, old.content);
		END`,
		`CREATE TRIGGER IF NOT EXISTS laws_au AFTER UPDATE ON laws BEGIN
			INSERT INTO laws_fts(laws_fts, rowid, title, content) VALUES ('delete', old.id, old.title, old.content);
			INSERT INTO laws_fts(rowid, title, content) VALUES (new.id, new.title, new.content);
		END`,

		`CREATE TRIGGER IF NOT EXISTS law_articles_ai AFTER INSERT ON law_articles BEGIN
			INSERT INTO law_articles_fts(rowid, content) VALUES (new.id, new.content);
		END`,
		`CREATE TRIGGER IF NOT EXISTS law_articles_ad AFTER DELETE ON law_articles BEGIN
			INSERT INTO law_articles_fts(law_articles_fts, rowid, content) VALUES ('delete', old.id, old.content);
		END`,
		`CREATE TRIGGER IF NOT EXISTS law_articles_au AFTER UPDATE ON law_articles BEGIN
			INSERT INTO law_articles_fts(law_articles_fts, rowid, content) VALUES ('delete', old.id, old.content);
			INSERT INTO law_articles_fts(rowid, content) VALUES (new.id, new.content);
		END`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w\n%s", err, stmt)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// OnClearCaches registers a callback invoked by ClearCaches after the
// three LRU caches are emptied. The orchestrator uses this to signal
// the vector index to reload, keeping C3 unaware of C7.
func (s *Store) OnClearCaches(fn func()) {
	s.onClearCaches = fn
}

// ClearCaches empties all three LRU caches and, if registered,
// signals the vector index to reload (C3's half of `clear_caches`).
func (s *Store) ClearCaches() {
	s.aliasCache.Purge()
	s.lawCache.Purge()
	s.conceptCache.Purge()
	if s.onClearCaches != nil {
		s.onClearCaches()
	}
}

// AliasCache, LawCache, and ConceptCache expose the three bounded LRU
// caches for the resolvers that sit directly in front of this store
// (internal/alias, internal/concept, and law-by-title lookups).
func (s *Store) AliasCache() *lru.Cache[string, []core.AliasMatch]     { return s.aliasCache }
func (s *Store) LawCache() *lru.Cache[string, []core.Law]              { return s.lawCache }
func (s *Store) ConceptCache() *lru.Cache[string, []core.ConceptMatch] { return s.conceptCache }

// InsertLaw inserts a law and returns its assigned id. Ingestion is an
// external concern; this and the other Insert* helpers exist so tests
// (and any future ingestion tool) can seed the schema through the same
// path the FTS sync triggers observe.
func (s *Store) InsertLaw(ctx context.Context, l core.Law) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO laws (title, publish_date, category, status, content, is_amendment, base_law_title)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.Title, l.PublishDate, l.Category, l.Status, l.Content, l.IsAmendment, l.BaseLawTitle)
	if err != nil {
		return 0, fmt.Errorf("InsertLaw: %w", err)
	}
	return res.LastInsertId()
}

// InsertArticle inserts an article and returns its assigned id.
func (s *Store) InsertArticle(ctx context.Context, a core.Article) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO law_articles (law_id, article_number_int, article_number_str, content, chapter_path)
		VALUES (?, ?, ?, ?, ?)`,
		a.LawID, a.NumberInt, a.NumberStr, a.Content, a.ChapterPath)
	if err != nil {
		return 0, fmt.Errorf("InsertArticle: %w", err)
	}
	return res.LastInsertId()
}

// InsertAlias inserts a law_aliases row.
func (s *Store) InsertAlias(ctx context.Context, a core.Alias) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO law_aliases (alias, law_id, alias_type, confidence) VALUES (?, ?, ?, ?)`,
		a.Alias, a.LawID, a.Type, a.Confidence)
	return err
}

// InsertTopic inserts a law_topics row.
func (s *Store) InsertTopic(ctx context.Context, t core.Topic) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO law_topics (topic, law_id, article_hints, relevance) VALUES (?, ?, ?, ?)`,
		t.Topic, t.LawID, t.ArticleHints, t.Relevance)
	return err
}

// InsertConceptSynonym inserts a concept_synonyms row.
func (s *Store) InsertConceptSynonym(ctx context.Context, syn core.Synonym) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO concept_synonyms (term, canonical_term) VALUES (?, ?)`, syn.Term, syn.CanonicalTerm)
	return err
}

// InsertSearchSynonym adds word to groupID's synonym group.
func (s *Store) InsertSearchSynonym(ctx context.Context, word string, groupID int) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO search_synonyms (word, group_id) VALUES (?, ?)`, word, groupID)
	return err
}

// InsertCrossReference inserts an article_cross_references row.
func (s *Store) InsertCrossReference(ctx context.Context, x core.CrossReference) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO article_cross_references
		(source_law_id, source_article_int, target_law_id, target_article_int, ref_type)
		VALUES (?, ?, ?, ?, ?)`,
		x.SourceLawID, x.SourceArticleInt, x.TargetLawID, x.TargetArticleInt, x.RefType)
	return err
}

// GetLawByID fetches a single law by primary key.
func (s *Store) GetLawByID(ctx context.Context, id int64) (*core.Law, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, publish_date, category, status, content, is_amendment, COALESCE(base_law_title, '')
		FROM laws WHERE id = ?`, id)
	var l core.Law
	err := row.Scan(&l.ID, &l.Title, &l.PublishDate, &l.Category, &l.Status, &l.Content, &l.IsAmendment, &l.BaseLawTitle)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetLawByID: %w", err)
	}
	return &l, nil
}

// FindLawsByTitle returns every law whose title matches exactly, ordered
// by status (in_force first) then publish_date DESC — the duplicate-law
// tie-break decided in DESIGN.md.
func (s *Store) FindLawsByTitle(ctx context.Context, title string) ([]core.Law, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, publish_date, category, status, content, is_amendment, COALESCE(base_law_title, '')
		FROM laws WHERE title = ?
		ORDER BY (status = 'in_force') DESC, publish_date DESC`, title)
	if err != nil {
		return nil, fmt.Errorf("FindLawsByTitle: %w", err)
	}
	defer rows.Close()
	return scanLaws(rows)
}

// FindLawsByTitleSubstring returns laws whose title contains the query,
// same ordering as FindLawsByTitle.
func (s *Store) FindLawsByTitleSubstring(ctx context.Context, query string) ([]core.Law, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, publish_date, category, status, content, is_amendment, COALESCE(base_law_title, '')
		FROM laws WHERE title LIKE '%' || ? || '%'
		ORDER BY (status = 'in_force') DESC, publish_date DESC`, query)
	if err != nil {
		return nil, fmt.Errorf("FindLawsByTitleSubstring: %w", err)
	}
	defer rows.Close()
	return scanLaws(rows)
}

// FindSuccessorLaw looks for an in_force law whose title shares the
// first runeCount characters of repealedTitle and is later-dated,
// supporting check_law_validity's successor suggestion.
func (s *Store) FindSuccessorLaw(ctx context.Context, repealedTitle string, runeCount int, afterDate string) (*core.Law, error) {
	runes := []rune(repealedTitle)
	if runeCount > len(runes) {
		runeCount = len(runes)
	}
	prefix := string(runes[:runeCount])

	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, publish_date, category, status, content, is_amendment, COALESCE(base_law_title, '')
		FROM laws
		WHERE status = 'in_force' AND title LIKE ? || '%' AND title != ? AND publish_date > ?
		ORDER BY publish_date DESC LIMIT 1`, prefix, repealedTitle, afterDate)
	var l core.Law
	err := row.Scan(&l.ID, &l.Title, &l.PublishDate, &l.Category, &l.Status, &l.Content, &l.IsAmendment, &l.BaseLawTitle)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindSuccessorLaw: %w", err)
	}
	return &l, nil
}

func scanLaws(rows *sql.Rows) ([]core.Law, error) {
	var laws []core.Law
	for rows.Next() {
		var l core.Law
		if err := rows.Scan(&l.ID, &l.Title, &l.PublishDate, &l.Category, &l.Status, &l.Content, &l.IsAmendment, &l.BaseLawTitle); err != nil {
			return nil, fmt.Errorf("scanLaws: %w", err)
		}
		laws = append(laws, l)
	}
	return laws, rows.Err()
}

// GetArticleByNumber fetches an article by law and exact number_int.
func (s *Store) GetArticleByNumber(ctx context.Context, lawID int64, numberInt int) (*core.Article, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, law_id, article_number_int, article_number_str, content, chapter_path
		FROM law_articles WHERE law_id = ? AND article_number_int = ?`, lawID, numberInt)
	return scanArticle(row)
}

// GetArticleByNumberStr falls back to a LIKE match on number_str when
// the exact integer lookup misses (covers 之-suffixed identifiers).
func (s *Store) GetArticleByNumberStr(ctx context.Context, lawID int64, cleaned string) (*core.Article, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, law_id, article_number_int, article_number_str, content, chapter_path
		FROM law_articles WHERE law_id = ? AND article_number_str LIKE '%' || ? || '%'
		LIMIT 1`, lawID, cleaned)
	return scanArticle(row)
}

func scanArticle(row *sql.Row) (*core.Article, error) {
	var a core.Article
	err := row.Scan(&a.ID, &a.LawID, &a.NumberInt, &a.NumberStr, &a.Content, &a.ChapterPath)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanArticle: %w", err)
	}
	return &a, nil
}

// GetArticleByID fetches an article by primary key, used to resolve
// the bare article ids the vector index's Search returns.
func (s *Store) GetArticleByID(ctx context.Context, id int64) (*core.Article, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, law_id, article_number_int, article_number_str, content, chapter_path
		FROM law_articles WHERE id = ?`, id)
	return scanArticle(row)
}

// GetSiblingArticles returns up to limit articles sharing chapterPath in
// lawID, ordered by minimum absolute distance to targetNumber; the
// caller (internal/enrich) re-sorts ascending for presentation.
func (s *Store) GetSiblingArticles(ctx context.Context, lawID int64, chapterPath string, targetNumber, limit int) ([]core.Article, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, law_id, article_number_int, article_number_str, content, chapter_path
		FROM law_articles
		WHERE law_id = ? AND chapter_path = ?
		ORDER BY ABS(article_number_int - ?) ASC
		LIMIT ?`, lawID, chapterPath, targetNumber, limit)
	if err != nil {
		return nil, fmt.Errorf("GetSiblingArticles: %w", err)
	}
	defer rows.Close()

	var articles []core.Article
	for rows.Next() {
		var a core.Article
		if err := rows.Scan(&a.ID, &a.LawID, &a.NumberInt, &a.NumberStr, &a.Content, &a.ChapterPath); err != nil {
			return nil, fmt.Errorf("GetSiblingArticles scan: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// GetCrossReferences returns cross-reference rows from a source article,
// joined with the target law's title and article content for rendering.
type CrossReferenceRow struct {
	core.CrossReference
	TargetLawTitle string
	TargetContent  string
}

func (s *Store) GetCrossReferences(ctx context.Context, lawID int64, articleInt int) ([]CrossReferenceRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT x.source_law_id, x.source_article_int, x.target_law_id, x.target_article_int, x.ref_type,
		       l.title, COALESCE(a.content, '')
		FROM article_cross_references x
		JOIN laws l ON l.id = x.target_law_id
		LEFT JOIN law_articles a ON a.law_id = x.target_law_id AND a.article_number_int = x.target_article_int
		WHERE x.source_law_id = ? AND x.source_article_int = ?`, lawID, articleInt)
	if err != nil {
		return nil, fmt.Errorf("GetCrossReferences: %w", err)
	}
	defer rows.Close()

	var refs []CrossReferenceRow
	for rows.Next() {
		var r CrossReferenceRow
		if err := rows.Scan(&r.SourceLawID, &r.SourceArticleInt, &r.TargetLawID, &r.TargetArticleInt, &r.RefType,
			&r.TargetLawTitle, &r.TargetContent); err != nil {
			return nil, fmt.Errorf("GetCrossReferences scan: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// FindAliasesExact resolves exact alias matches, restricted to in-force
// laws, ordered by confidence DESC then publish_date DESC (C4 rung 1).
func (s *Store) FindAliasesExact(ctx context.Context, query string) ([]core.AliasMatch, error) {
	return s.queryAliases(ctx, `
		SELECT la.law_id, l.title, la.confidence
		FROM law_aliases la JOIN laws l ON l.id = la.law_id
		WHERE la.alias = ? AND l.status = 'in_force'
		ORDER BY la.confidence DESC, l.publish_date DESC`, query)
}

// FindAliasesSubstring resolves substring alias matches (C4 rung 2). The
// caller applies the 0.9 confidence multiplier.
func (s *Store) FindAliasesSubstring(ctx context.Context, query string) ([]core.AliasMatch, error) {
	return s.queryAliases(ctx, `
		SELECT la.law_id, l.title, la.confidence
		FROM law_aliases la JOIN laws l ON l.id = la.law_id
		WHERE la.alias LIKE '%' || ? || '%' AND l.status = 'in_force'
		ORDER BY la.confidence DESC, l.publish_date DESC`, query)
}

func (s *Store) queryAliases(ctx context.Context, query, arg string) ([]core.AliasMatch, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("queryAliases: %w", err)
	}
	defer rows.Close()

	var matches []core.AliasMatch
	for rows.Next() {
		var m core.AliasMatch
		if err := rows.Scan(&m.LawID, &m.CanonicalTitle, &m.EffectiveConfidence); err != nil {
			return nil, fmt.Errorf("queryAliases scan: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// FindTopicsExact resolves an exact law_topics lookup (C5 rung 1).
func (s *Store) FindTopicsExact(ctx context.Context, candidate string) ([]core.ConceptMatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.topic, l.title, t.law_id, COALESCE(t.article_hints, ''), t.relevance
		FROM law_topics t JOIN laws l ON l.id = t.law_id
		WHERE t.topic = ?
		ORDER BY t.relevance DESC`, candidate)
	if err != nil {
		return nil, fmt.Errorf("FindTopicsExact: %w", err)
	}
	defer rows.Close()
	return scanConceptMatches(rows)
}

// FindTopicsFuzzy performs the LIKE fallback (C5, limited to 10 rows).
func (s *Store) FindTopicsFuzzy(ctx context.Context, query string) ([]core.ConceptMatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.topic, l.title, t.law_id, COALESCE(t.article_hints, ''), t.relevance
		FROM law_topics t JOIN laws l ON l.id = t.law_id
		WHERE t.topic LIKE '%' || ? || '%'
		ORDER BY t.relevance DESC
		LIMIT 10`, query)
	if err != nil {
		return nil, fmt.Errorf("FindTopicsFuzzy: %w", err)
	}
	defer rows.Close()
	return scanConceptMatches(rows)
}

func scanConceptMatches(rows *sql.Rows) ([]core.ConceptMatch, error) {
	var matches []core.ConceptMatch
	for rows.Next() {
		var m core.ConceptMatch
		var hints string
		if err := rows.Scan(&m.Topic, &m.LawTitle, &m.LawID, &hints, &m.Relevance); err != nil {
			return nil, fmt.Errorf("scanConceptMatches: %w", err)
		}
		m.Hints = parseArticleHints(hints)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// parseArticleHints parses the §9(i) article_hints grammar: comma
// (ASCII or full-width) separated list of numbers and inclusive ranges,
// e.g. "535,537-539" -> [535 537 538 539].
func parseArticleHints(raw string) []int {
	var hints []int
	raw = normalizeSeparators(raw)
	for _, tok := range splitAndTrim(raw) {
		if tok == "" {
			continue
		}
		if lo, hi, ok := parseRange(tok); ok {
			for n := lo; n <= hi; n++ {
				hints = append(hints, n)
			}
			continue
		}
		if n, ok := parseIntTrim(tok); ok {
			hints = append(hints, n)
		}
	}
	return hints
}

// ConceptSynonym looks up a concept_synonyms mapping: term -> canonical_term.
func (s *Store) ConceptSynonym(ctx context.Context, term string) (string, bool) {
	row := s.db.QueryRowContext(ctx, `SELECT canonical_term FROM concept_synonyms WHERE term = ? LIMIT 1`, term)
	var canonical string
	if err := row.Scan(&canonical); err != nil {
		return "", false
	}
	return canonical, true
}

// SearchSynonymGroup returns every word sharing word's synonym group_id,
// including word itself (C6 rung 3/5).
func (s *Store) SearchSynonymGroup(ctx context.Context, word string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.word FROM search_synonyms w
		WHERE w.group_id IN (SELECT group_id FROM search_synonyms WHERE word = ?)`, word)
	if err != nil {
		return nil, fmt.Errorf("SearchSynonymGroup: %w", err)
	}
	defer rows.Close()

	words := map[string]struct{}{word: {}}
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("SearchSynonymGroup scan: %w", err)
		}
		words[w] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(words))
	for w := range words {
		out = append(out, w)
	}
	return out, nil
}

// SearchLawsFTS runs an FTS5 MATCH against laws_fts and returns ranked
// hits, filtered by category/status.
func (s *Store) SearchLawsFTS(ctx context.Context, matchExpr, category, status string, limit int) ([]core.FTSResult, error) {
	query := `
		SELECT l.id, l.title, bm25(laws_fts) AS rank
		FROM laws_fts JOIN laws l ON l.id = laws_fts.rowid
		WHERE laws_fts MATCH ?`
	args := []any{matchExpr}
	if category != "" {
		query += " AND l.category = ?"
		args = append(args, category)
	}
	if status != "" {
		query += " AND l.status = ?"
		args = append(args, status)
	}
	query += " ORDER BY rank LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("SearchLawsFTS: %w", err)
	}
	defer rows.Close()

	var results []core.FTSResult
	for rows.Next() {
		var r core.FTSResult
		if err := rows.Scan(&r.LawID, &r.LawTitle, &r.Rank); err != nil {
			return nil, fmt.Errorf("SearchLawsFTS scan: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// SearchArticlesFTS runs an FTS5 MATCH against law_articles_fts,
// returning ranked hits with a highlighted snippet.
func (s *Store) SearchArticlesFTS(ctx context.Context, matchExpr string, limit int) ([]core.FTSResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.law_id, l.title, a.article_number_str, a.chapter_path, a.content,
		       snippet(law_articles_fts, 0, '【', '】', '...', 32) AS snip,
		       bm25(law_articles_fts) AS rank
		FROM law_articles_fts
		JOIN law_articles a ON a.id = law_articles_fts.rowid
		JOIN laws l ON l.id = a.law_id
		WHERE law_articles_fts MATCH ?
		ORDER BY rank LIMIT ?`, matchExpr, limit)
	if err != nil {
		return nil, fmt.Errorf("SearchArticlesFTS: %w", err)
	}
	defer rows.Close()

	var results []core.FTSResult
	for rows.Next() {
		var r core.FTSResult
		if err := rows.Scan(&r.ArticleID, &r.LawID, &r.LawTitle, &r.ArticleNum, &r.ChapterPath, &r.Content, &r.Snippet, &r.Rank); err != nil {
			return nil, fmt.Errorf("SearchArticlesFTS scan: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// SearchArticlesLike is the C6 rung-6 fallback: a pure LIKE scan ANDing
// each token against content, title-preference ordered.
func (s *Store) SearchArticlesLike(ctx context.Context, tokens []string, limit int) ([]core.FTSResult, error) {
	query := `
		SELECT a.id, a.law_id, l.title, a.article_number_str, a.chapter_path, a.content
		FROM law_articles a JOIN laws l ON l.id = a.law_id
		WHERE 1=1`
	var args []any
	for _, t := range tokens {
		if len([]rune(t)) < 2 {
			continue
		}
		query += " AND a.content LIKE '%' || ? || '%'"
		args = append(args, t)
	}
	query += ` ORDER BY
		(l.title LIKE '%民法典%') DESC,
		(l.title LIKE '%刑法%') DESC
		LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("SearchArticlesLike: %w", err)
	}
	defer rows.Close()

	var results []core.FTSResult
	for rows.Next() {
		var r core.FTSResult
		if err := rows.Scan(&r.ArticleID, &r.LawID, &r.LawTitle, &r.ArticleNum, &r.ChapterPath, &r.Content); err != nil {
			return nil, fmt.Errorf("SearchArticlesLike scan: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// SearchLawsLike is the law-level rung-6 fallback: a LIKE scan ANDing
// each token against title or content.
func (s *Store) SearchLawsLike(ctx context.Context, tokens []string, category, status string, limit int) ([]core.FTSResult, error) {
	query := `SELECT l.id, l.title FROM laws l WHERE 1=1`
	var args []any
	for _, t := range tokens {
		if len([]rune(t)) < 2 {
			continue
		}
		query += " AND (l.title LIKE '%' || ? || '%' OR l.content LIKE '%' || ? || '%')"
		args = append(args, t, t)
	}
	if category != "" {
		query += " AND l.category = ?"
		args = append(args, category)
	}
	if status != "" {
		query += " AND l.status = ?"
		args = append(args, status)
	}
	query += ` ORDER BY
		(l.title LIKE '%民法典%') DESC,
		(l.title LIKE '%刑法%') DESC
		LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("SearchLawsLike: %w", err)
	}
	defer rows.Close()

	var results []core.FTSResult
	for rows.Next() {
		var r core.FTSResult
		if err := rows.Scan(&r.LawID, &r.LawTitle); err != nil {
			return nil, fmt.Errorf("SearchLawsLike scan: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ArticleEmbeddingRow is one row loaded by the vector index preload.
type ArticleEmbeddingRow struct {
	ArticleID     int64
	Embedding     []float32
	ArticleLength int
	LawTitle      string
}

// LoadAllEmbeddings streams every (article_id, embedding, length, law
// title) row for the vector index's one-time load (C7).
func (s *Store) LoadAllEmbeddings(ctx context.Context) ([]ArticleEmbeddingRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.article_id, e.embedding, LENGTH(a.content), l.title
		FROM article_embeddings e
		JOIN law_articles a ON a.id = e.article_id
		JOIN laws l ON l.id = a.law_id`)
	if err != nil {
		return nil, fmt.Errorf("LoadAllEmbeddings: %w", err)
	}
	defer rows.Close()

	var out []ArticleEmbeddingRow
	for rows.Next() {
		var r ArticleEmbeddingRow
		var blob []byte
		if err := rows.Scan(&r.ArticleID, &blob, &r.ArticleLength, &r.LawTitle); err != nil {
			return nil, fmt.Errorf("LoadAllEmbeddings scan: %w", err)
		}
		vec, err := deserializeEmbedding(blob)
		if err != nil {
			logger.Warn("store: failed to deserialize embedding", "article_id", r.ArticleID, "error", err.Error())
			continue
		}
		r.Embedding = vec
		out = append(out, r)
	}
	return out, rows.Err()
}

// PutArticleEmbedding stores or replaces an article's embedding vector.
func (s *Store) PutArticleEmbedding(ctx context.Context, articleID int64, vec []float32) error {
	blob, err := serializeEmbedding(vec)
	if err != nil {
		return fmt.Errorf("PutArticleEmbedding: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO article_embeddings (article_id, embedding) VALUES (?, ?)
		ON CONFLICT(article_id) DO UPDATE SET embedding = excluded.embedding`, articleID, blob)
	return err
}

// serializeEmbedding packs a float32 vector as little-endian bytes, the
// §6 wire format for article_embeddings.embedding.
func serializeEmbedding(vec []float32) ([]byte, error) {
	if vec == nil {
		return nil, nil
	}
	buf := new(bytes.Buffer)
	for _, v := range vec {
		if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("serializeEmbedding: %w", err)
		}
	}
	return buf.Bytes(), nil
}

func deserializeEmbedding(data []byte) ([]float32, error) {
	if data == nil {
		return nil, nil
	}
	buf := bytes.NewReader(data)
	var vec []float32
	for buf.Len() > 0 {
		var v float32
		if err := binary.Read(buf, binary.LittleEndian, &v); err != nil {
			return nil, fmt.Errorf("deserializeEmbedding: %w", err)
		}
		vec = append(vec, v)
	}
	return vec, nil
}

// GetStatistics reports law/article counts by category, the supplemented
// diagnostic operation grounded on original_source/database/db_manager.py.
type Statistics struct {
	TotalLaws     int
	TotalArticles int
	ByCategory    map[string]int
}

func (s *Store) GetStatistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{ByCategory: map[string]int{}}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM laws`).Scan(&stats.TotalLaws); err != nil {
		return nil, fmt.Errorf("GetStatistics laws: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM law_articles`).Scan(&stats.TotalArticles); err != nil {
		return nil, fmt.Errorf("GetStatistics articles: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT COALESCE(category, 'uncategorized'), COUNT(*) FROM laws GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("GetStatistics by-category: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, fmt.Errorf("GetStatistics by-category scan: %w", err)
		}
		stats.ByCategory[cat] = n
	}
	return stats, rows.Err()
}

// normalizeSeparators maps full-width commas to ASCII commas, per the
// §9(i) article_hints grammar decision.
func normalizeSeparators(raw string) string {
	return strings.ReplaceAll(raw, "，", ",")
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// parseRange parses "537-539" into (537, 539, true).
func parseRange(tok string) (lo, hi int, ok bool) {
	i := strings.Index(tok, "-")
	if i <= 0 || i == len(tok)-1 {
		return 0, 0, false
	}
	lo, errLo := strconv.Atoi(strings.TrimSpace(tok[:i]))
	hi, errHi := strconv.Atoi(strings.TrimSpace(tok[i+1:]))
	if errLo != nil || errHi != nil || hi < lo {
		return 0, 0, false
	}
	return lo, hi, true
}

func parseIntTrim(tok string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(tok))
	if err != nil {
		return 0, false
	}
	return n, true
}
