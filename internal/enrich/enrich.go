// Package enrich defines the optional enrichment provider contracts the
// pipeline binds at construction time. Every provider is independently
// optional; a nil binding means the matching stage is skipped.
package enrich

import (
	"context"

	"longform/internal/core"
)

// KeywordOverview is one keyword's difficulty and demand metrics.
type KeywordOverview struct {
	Keyword      string  `json:"keyword"`
	Difficulty   float64 `json:"difficulty"` // 0-100
	SearchVolume int     `json:"search_volume"`
	CPC          float64 `json:"cpc"`
}

// CompetitorAnalysis summarizes the SERP for a single keyword.
type CompetitorAnalysis struct {
	Keyword      string          `json:"keyword"`
	TopDomains   []string        `json:"top_domains"`
	SERPFeatures map[string]bool `json:"serp_features"` // e.g. featured_snippet, people_also_ask
	AvgWordCount int             `json:"avg_word_count"`
}

// IntentResult is a search-intent classification over a keyword list.
type IntentResult struct {
	Primary       string             `json:"primary"` // informational, commercial, transactional, navigational
	Probabilities map[string]float64 `json:"probabilities"`
}

// LengthRecommendation is the competition-derived word count advice.
type LengthRecommendation struct {
	RecommendedWords int     `json:"recommended_words"`
	DepthScore       float64 `json:"depth_score"` // 0-1, how exhaustive top results are
}

// Example is one ranked few-shot example summary.
type Example struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Rank    int    `json:"rank"`
}

// SemanticResult is an augmented document plus the keyword clusters used.
type SemanticResult struct {
	Document string              `json:"document"`
	Clusters map[string][]string `json:"clusters"`
}

// EntityResult holds extracted named entities and schema-compatible data.
type EntityResult struct {
	Entities       []string             `json:"entities"`
	StructuredData *core.StructuredData `json:"structured_data"`
}

// KeywordAnalyzer looks up keyword difficulty and demand metrics.
type KeywordAnalyzer interface {
	AnalyzeKeywords(ctx context.Context, keywords []string, location, language string) ([]KeywordOverview, error)
}

// CompetitorAnalyzer inspects the SERP for a single keyword.
type CompetitorAnalyzer interface {
	AnalyzeSERP(ctx context.Context, keyword string) (*CompetitorAnalysis, error)
}

// IntentClassifier labels the dominant search intent of a keyword list.
type IntentClassifier interface {
	ClassifyIntent(ctx context.Context, keywords []string) (*IntentResult, error)
}

// LengthAnalyzer recommends a word count from content competition.
type LengthAnalyzer interface {
	RecommendLength(ctx context.Context, keyword string) (*LengthRecommendation, error)
}

// ExampleExtractor returns ranked few-shot example summaries for a keyword.
type ExampleExtractor interface {
	ExtractExamples(ctx context.Context, keyword string) ([]Example, error)
}

// SemanticIntegrator weaves semantically related keywords into a document.
type SemanticIntegrator interface {
	IntegrateKeywords(ctx context.Context, document string, keywords []string) (*SemanticResult, error)
}

// EntityLinker extracts named entities and structured data from a document.
type EntityLinker interface {
	ExtractEntities(ctx context.Context, document string) (*EntityResult, error)
}

// SourceFinder discovers ranked citation sources for a topic.
type SourceFinder interface {
	FindSources(ctx context.Context, topic string, keywords []string) ([]core.Citation, error)
}
