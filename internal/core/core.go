package core

import "time"

// Stage identifies one discrete unit of the generation pipeline.
type Stage string

const (
	StageInit                Stage = "init"
	StageKeywordAnalysis     Stage = "keyword_analysis"
	StageCompetitorAnalysis  Stage = "competitor_analysis"
	StageIntentAnalysis      Stage = "intent_analysis"
	StageLengthOptimization  Stage = "length_optimization"
	StageSemanticIntegration Stage = "semantic_integration"
	StageResearch            Stage = "research"
	StageDraft               Stage = "draft"
	StageEnhancement         Stage = "enhancement"
	StageSEOPolish           Stage = "seo_polish"
	StageQualityScoring      Stage = "quality_scoring"
	StageFinalize            Stage = "finalize"
)

// Tone describes the requested writing voice.
type Tone string

const (
	ToneProfessional   Tone = "professional"
	ToneConversational Tone = "conversational"
	ToneAuthoritative  Tone = "authoritative"
	ToneCasual         Tone = "casual"
)

// Length is the requested article size class.
type Length string

const (
	LengthShort   Length = "short"    // ~800 words
	LengthMedium  Length = "medium"   // ~1500 words
	LengthLong    Length = "long"     // ~2500 words
	LengthInDepth Length = "in_depth" // ~4000 words
)

// TargetWords maps a length class to its default word target.
func (l Length) TargetWords() int {
	switch l {
	case LengthShort:
		return 800
	case LengthMedium:
		return 1500
	case LengthLong:
		return 2500
	case LengthInDepth:
		return 4000
	default:
		return 1500
	}
}

// Request is the caller-facing input to one pipeline run.
type Request struct {
	Topic    string         `json:"topic"`    // Subject of the article
	Keywords []string       `json:"keywords"` // Target keywords, first is primary
	Tone     Tone           `json:"tone"`     // Requested writing voice
	Length   Length         `json:"length"`   // Requested size class
	Template string         `json:"template"` // Optional template selector (e.g., "how_to", "listicle")
	Context  map[string]any `json:"context"`  // Free-form options: audience, instructions, link targets, site domain, max links
}

// Context keys recognized in Request.Context.
const (
	CtxAudience           = "target_audience"
	CtxCustomInstructions = "custom_instructions"
	CtxLinkTargets        = "link_targets"
	CtxSiteDomain         = "site_domain"
	CtxMaxInternalLinks   = "max_internal_links"
	CtxProductResearch    = "product_research"
)

// StageResult captures the output of a single completed stage.
// Immutable once produced; appended to the run's ordered result list.
type StageResult struct {
	StageName    Stage          `json:"stage_name"`
	Content      string         `json:"content"`
	Metadata     map[string]any `json:"metadata"`
	ProviderUsed string         `json:"provider_used"`
	TokensUsed   int            `json:"tokens_used"`
	Cost         float64        `json:"cost"`
}

// ProgressUpdate is one event delivered to the progress sink.
// StageNumber is monotonically non-decreasing within a run and never
// exceeds TotalStages; TotalStages is fixed for the life of the run.
type ProgressUpdate struct {
	Stage              Stage          `json:"stage"`
	StageNumber        int            `json:"stage_number"`
	TotalStages        int            `json:"total_stages"`
	ProgressPercentage float64        `json:"progress_percentage"`
	Status             string         `json:"status"`
	Details            string         `json:"details,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	Timestamp          float64        `json:"timestamp"`
}

// QualityDimension names one axis of content quality evaluation.
type QualityDimension string

const (
	DimensionReadability   QualityDimension = "readability"
	DimensionSEO           QualityDimension = "seo"
	DimensionStructure     QualityDimension = "structure"
	DimensionFactual       QualityDimension = "factual"
	DimensionUniqueness    QualityDimension = "uniqueness"
	DimensionEngagement    QualityDimension = "engagement"
	DimensionTrust         QualityDimension = "trust"
	DimensionAccessibility QualityDimension = "accessibility"
)

// QualityScore is the evaluation result for a single dimension.
type QualityScore struct {
	Dimension       QualityDimension `json:"dimension"`
	Score           float64          `json:"score"`  // 0-100
	Weight          float64          `json:"weight"` // 0-1, dimension weights sum to 1.0
	Issues          []string         `json:"issues"`
	Recommendations []string         `json:"recommendations"`
	Metadata        map[string]any   `json:"metadata,omitempty"`
}

// QualityReport aggregates all dimension scores into a weighted overall score.
type QualityReport struct {
	OverallScore    float64        `json:"overall_score"` // Weighted 0-100
	PassedThreshold bool           `json:"passed_threshold"`
	Scores          []QualityScore `json:"scores"`
	TopIssues       []string       `json:"top_issues"`      // Deduplicated, worst dimensions first
	Recommendations []string       `json:"recommendations"` // Deduplicated
}

// LinkTargetKind distinguishes externally supplied targets from ones
// synthesized out of keywords.
type LinkTargetKind string

const (
	LinkTargetProvided  LinkTargetKind = "provided"
	LinkTargetGenerated LinkTargetKind = "generated"
)

// LinkTarget is a candidate destination for an internal link.
type LinkTarget struct {
	AnchorCandidate string         `json:"anchor_candidate"` // Preferred anchor text
	URL             string         `json:"url"`
	Title           string         `json:"title"`
	Keywords        []string       `json:"keywords"`
	Kind            LinkTargetKind `json:"kind"`
}

// DocumentSection is the positional region an inserted link landed in.
type DocumentSection string

const (
	SectionIntroduction DocumentSection = "introduction"
	SectionBody         DocumentSection = "body"
	SectionConclusion   DocumentSection = "conclusion"
)

// InsertedLink records one internal link written into the document.
type InsertedLink struct {
	AnchorText      string          `json:"anchor_text"`
	URL             string          `json:"url"`
	TargetTitle     string          `json:"target_title"`
	PositionSection DocumentSection `json:"position_section"`
	RelevanceScore  float64         `json:"relevance_score"` // 0-1 confidence of semantic match
}

// Citation is a discovered source supporting the generated content.
type Citation struct {
	ID              string  `json:"id"`
	URL             string  `json:"url"`
	Title           string  `json:"title"`
	Publisher       string  `json:"publisher"`
	Snippet         string  `json:"snippet,omitempty"`
	DomainAuthority float64 `json:"domain_authority,omitempty"` // 0-100, 0 when unknown
}

// StructuredData is a schema.org-compatible object produced by the
// knowledge-graph entity linker, when that collaborator is present.
type StructuredData struct {
	Type       string         `json:"@type"`
	Properties map[string]any `json:"properties"`
	Entities   []string       `json:"entities,omitempty"`
}

// PipelineResult is the terminal, immutable aggregate of one run.
type PipelineResult struct {
	ID               string          `json:"id"`
	Content          string          `json:"content"` // Final reconciled document
	Title            string          `json:"title"`
	MetaDescription  string          `json:"meta_description"`
	StageResults     []StageResult   `json:"stage_results"` // In execution order
	ReadabilityScore float64         `json:"readability_score"`
	QualityReport    *QualityReport  `json:"quality_report,omitempty"`
	StructuredData   *StructuredData `json:"structured_data,omitempty"`
	Citations        []Citation      `json:"citations"`
	InsertedLinks    []InsertedLink  `json:"inserted_links"`
	TotalTokens      int             `json:"total_tokens"`
	TotalCost        float64         `json:"total_cost"`
	ElapsedTime      time.Duration   `json:"elapsed_time"`
	Warnings         []string        `json:"warnings"` // Ordered, deduplicated, non-fatal
	GeneratedAt      time.Time       `json:"generated_at"`
}

// WordCount counts whitespace-separated words in text.
func WordCount(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		switch r {
		case ' ', '\t', '\n', '\r':
			inWord = false
		default:
			if !inWord {
				inWord = true
				count++
			}
		}
	}
	return count
}
