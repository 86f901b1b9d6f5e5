// Package core holds the entity types shared across the retrieval
// engine: laws, articles, aliases, concepts, synonyms, and
// cross-references, as read from the persistence adapter (internal/store).
package core

// Status is a law's lifecycle label.
type Status string

const (
	StatusInForce         Status = "in_force"
	StatusAmended         Status = "amended"
	StatusNotYetEffective Status = "not_yet_effective"
	StatusRepealed        Status = "repealed"
)

// Law is a single dated version of a statute, regulation, or judicial
// interpretation. Title is not unique: the same law may have multiple
// dated versions in the corpus.
type Law struct {
	ID           int64
	Title        string
	PublishDate  string // ISO-8601
	Category     string
	Status       Status
	Content      string
	IsAmendment  bool
	BaseLawTitle string
}

// Article is a single numbered clause within a Law. NumberInt is the
// canonical sort key; NumberStr preserves suffix-extended identifiers
// such as "120之一".
type Article struct {
	ID          int64
	LawID       int64
	NumberInt   int
	NumberStr   string
	Content     string
	ChapterPath string
}

// AliasType classifies how an Alias maps to its law.
type AliasType string

const (
	AliasShortName    AliasType = "short_name"
	AliasAbbreviation AliasType = "abbreviation"
	AliasColloquial   AliasType = "colloquial"
)

// Alias is a short or colloquial name for a law.
type Alias struct {
	Alias      string
	LawID      int64
	Type       AliasType
	Confidence float64
}

// RefType classifies a CrossReference.
type RefType string

const (
	RefInterpretation RefType = "interpretation"
	RefConflicting    RefType = "conflicting"
	RefRelated        RefType = "related"
)

// Topic is a legal concept mapped to a law and a set of article-number
// hints.
type Topic struct {
	Topic        string
	LawID        int64
	LawTitle     string
	ArticleHints string // raw comma-separated hints, e.g. "535,537-539"
	Relevance    float64
}

// Synonym maps a literal concept term to its canonical form.
type Synonym struct {
	Term          string
	CanonicalTerm string
}

// CrossReference links a source statute article to a target
// interpretation (or conflicting/related) article.
type CrossReference struct {
	SourceLawID      int64
	SourceArticleInt int
	TargetLawID      int64
	TargetArticleInt int
	RefType          RefType
}

// AliasMatch is the resolved outcome of an alias lookup (C4).
type AliasMatch struct {
	LawID               int64
	CanonicalTitle      string
	EffectiveConfidence float64
}

// ConceptMatch is a single row returned by the concept resolver (C5).
type ConceptMatch struct {
	Topic     string
	LawTitle  string
	LawID     int64
	Hints     []int
	Relevance float64
}

// FTSResult is a single hit from the FTS query planner (C6), covering
// both law-level and article-level results.
type FTSResult struct {
	LawID       int64
	LawTitle    string
	ArticleID   int64
	ArticleNum  string
	ChapterPath string
	Content     string
	Snippet     string
	Rank        float64
}

// VectorHit is a single hit from the vector index (C7).
type VectorHit struct {
	ArticleID int64
	Score     float64
	RawScore  float64
}
