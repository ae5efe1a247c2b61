// Package pipeline orchestrates the staged article generation run: optional
// enrichment, the four mandatory generation stages, post-processing repair,
// internal linking, quality scoring, and final aggregation.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"longform/internal/core"
	"longform/internal/enrich"
	"longform/internal/links"
	"longform/internal/llm"
	"longform/internal/logger"
	"longform/internal/quality"
	"longform/internal/reconcile"
)

// mandatoryStages counts init, research, draft, enhancement, seo_polish and
// finalize. Optional providers each add one stage when bound.
const mandatoryStages = 6

// Collaborators bundles everything a Generator may call. TextGen is the only
// required binding; every other field may be nil, which excludes the matching
// stage from the run.
type Collaborators struct {
	TextGen    TextGenerator
	Keyword    enrich.KeywordAnalyzer
	Competitor enrich.CompetitorAnalyzer
	Intent     enrich.IntentClassifier
	Length     enrich.LengthAnalyzer
	Examples   enrich.ExampleExtractor
	Semantic   enrich.SemanticIntegrator
	Entities   enrich.EntityLinker
	Sources    enrich.SourceFinder
	Quality    QualityScorer
	Reconciler Reconciler
	Progress   ProgressSink
}

// Options tunes a Generator's behavior across runs.
type Options struct {
	ConsensusEnabled     bool
	ConsensusVariants    int
	ReadabilityThreshold float64
	MaxInternalLinks     int
	ExperienceInjection  bool
	SiteDomain           string
	SectionScorer        SectionScorer // nil selects the default merge policy
}

// Generator runs the staged pipeline. Safe for concurrent use; each run owns
// its own enrichment context and progress tracker.
type Generator struct {
	textGen       TextGenerator
	collab        Collaborators
	opts          Options
	sectionScorer SectionScorer
}

// New creates a Generator. The reconciler defaults to the standard pass
// sequence backed by the text generator's fast profile.
func New(collab Collaborators, opts Options) (*Generator, error) {
	if collab.TextGen == nil {
		return nil, fmt.Errorf("pipeline: text generator is required")
	}
	if collab.Reconciler == nil {
		collab.Reconciler = reconcile.New(&aiSimplifier{gen: collab.TextGen}, reconcile.Options{
			ReadabilityThreshold: opts.ReadabilityThreshold,
			InjectExperience:     opts.ExperienceInjection,
		})
	}
	return &Generator{
		textGen:       collab.TextGen,
		collab:        collab,
		opts:          opts,
		sectionScorer: opts.SectionScorer,
	}, nil
}

// TotalStages reports how many stages a run will execute given the bound
// collaborators. Fixed for the life of the Generator.
func (g *Generator) TotalStages() int {
	total := mandatoryStages
	for _, present := range []bool{
		g.collab.Keyword != nil,
		g.collab.Competitor != nil,
		g.collab.Intent != nil,
		g.collab.Length != nil,
		g.collab.Semantic != nil,
		g.collab.Quality != nil,
	} {
		if present {
			total++
		}
	}
	return total
}

// Generate runs the full pipeline for one request. Enrichment failures
// degrade into warnings; mandatory stage failures abort with a StageError
// and no partial result.
func (g *Generator) Generate(ctx context.Context, req core.Request) (*core.PipelineResult, error) {
	return g.GenerateWithProgress(ctx, req, g.collab.Progress)
}

// GenerateWithProgress is Generate with a per-run progress sink replacing
// the one bound at construction.
func (g *Generator) GenerateWithProgress(ctx context.Context, req core.Request, sink ProgressSink) (*core.PipelineResult, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return nil, fmt.Errorf("pipeline: topic is required")
	}
	if req.Tone == "" {
		req.Tone = core.ToneProfessional
	}
	if req.Length == "" {
		req.Length = core.LengthMedium
	}
	if len(req.Keywords) == 0 {
		req.Keywords = []string{req.Topic}
	}

	started := time.Now()
	runID := uuid.NewString()
	ectx := core.EnrichmentContext{}
	tracker := newProgressTracker(sink, g.TotalStages())
	var warnings []string
	var stageResults []core.StageResult

	logger.Info("Pipeline run started", "run_id", runID, "topic", req.Topic, "length", string(req.Length))

	tracker.advance(core.StageInit, "running", "Initializing pipeline", map[string]any{"run_id": runID})
	warnings = append(warnings, g.absenceWarnings()...)

	// Optional enrichment. Keyword and competitor analysis are independent
	// and run concurrently; progress updates stay on this goroutine.
	warnings = append(warnings, g.runKeywordCompetitor(ctx, req, ectx, tracker)...)

	if g.collab.Intent != nil {
		tracker.advance(core.StageIntentAnalysis, "running", "Classifying search intent", nil)
		if res, err := g.collab.Intent.ClassifyIntent(ctx, req.Keywords); err != nil {
			msg := enrichWarning("intent analysis", err)
			warnings = append(warnings, msg)
			tracker.degrade(core.StageIntentAnalysis, msg)
		} else if label := intentLabel(res); label != "" {
			ectx.Set(core.EnrichSearchIntent, label)
		}
	}

	if g.collab.Length != nil {
		tracker.advance(core.StageLengthOptimization, "running", "Optimizing target length", nil)
		if rec, err := g.collab.Length.RecommendLength(ctx, primaryKeyword(req)); err != nil {
			msg := enrichWarning("length optimization", err)
			warnings = append(warnings, msg)
			tracker.degrade(core.StageLengthOptimization, msg)
		} else if rec != nil && rec.RecommendedWords > req.Length.TargetWords() {
			ectx.Set(core.EnrichAdjustedWordCount, rec.RecommendedWords)
		}
	}

	// Research preparation: few-shot examples and citation sources feed the
	// outline prompt but add no stage of their own.
	citations := g.gatherCitations(ctx, req, ectx, &warnings)

	tracker.advance(core.StageResearch, "running", "Building research outline", nil)
	researchRes, err := g.runResearch(ctx, req, ectx, citations)
	if err != nil {
		return nil, err
	}
	stageResults = append(stageResults, *researchRes)

	targetWords := targetWordCount(req, ectx)
	tracker.advance(core.StageDraft, "running", fmt.Sprintf("Drafting %d-word article", targetWords), nil)
	var draftRes *core.StageResult
	var draftWarnings []string
	if g.opts.ConsensusEnabled {
		draftRes, draftWarnings, err = g.runConsensusDraft(ctx, req, ectx, researchRes.Content, targetWords, g.opts.ConsensusVariants)
	} else {
		draftRes, draftWarnings, err = g.runDraft(ctx, req, ectx, researchRes.Content, targetWords)
	}
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, draftWarnings...)
	stageResults = append(stageResults, *draftRes)

	tracker.advance(core.StageEnhancement, "running", "Enhancing draft depth", nil)
	enhanceRes, err := g.runEnhancement(ctx, req, ectx, draftRes.Content)
	if err != nil {
		return nil, err
	}
	stageResults = append(stageResults, *enhanceRes)
	document := enhanceRes.Content

	if g.collab.Semantic != nil {
		tracker.advance(core.StageSemanticIntegration, "running", "Integrating semantic keywords", nil)
		if res, err := g.collab.Semantic.IntegrateKeywords(ctx, document, req.Keywords); err != nil {
			msg := enrichWarning("semantic integration", err)
			warnings = append(warnings, msg)
			tracker.degrade(core.StageSemanticIntegration, msg)
		} else if res != nil && res.Document != "" {
			document = res.Document
			if kws := flattenClusters(res.Clusters); len(kws) > 0 {
				ectx.Set(core.EnrichSemanticKeywords, kws)
			}
			stageResults = append(stageResults, core.StageResult{
				StageName:    core.StageSemanticIntegration,
				Content:      res.Document,
				Metadata:     map[string]any{"clusters": len(res.Clusters)},
				ProviderUsed: "semantic-integrator",
			})
		}
	}

	tracker.advance(core.StageSEOPolish, "running", "Generating SEO metadata", nil)
	seoRes, title, description, seoWarnings, err := g.runSEOPolish(ctx, req, document)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, seoWarnings...)
	stageResults = append(stageResults, *seoRes)

	// Post-processing repair, then internal links, both before scoring so
	// quality evaluates the document readers will actually get.
	recResult, err := g.collab.Reconciler.Apply(ctx, document, req.Topic, targetWords)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("reconcile: %v", err))
		recResult = &reconcile.Result{Content: document}
	}
	warnings = append(warnings, recResult.Warnings...)
	document = recResult.Content

	linkResult := g.insertInternalLinks(req, document)
	warnings = append(warnings, linkResult.Warnings...)
	document = linkResult.Content

	var report *core.QualityReport
	if g.collab.Quality != nil {
		tracker.advance(core.StageQualityScoring, "running", "Scoring content quality", nil)
		report = g.collab.Quality.Score(quality.Input{
			Document:        document,
			Title:           title,
			MetaDescription: description,
			Keywords:        req.Keywords,
			Citations:       citations,
			TargetWords:     targetWords,
		})
		if report != nil && !report.PassedThreshold {
			warnings = append(warnings, fmt.Sprintf("quality: overall score %.1f below pass threshold", report.OverallScore))
		}
	}

	tracker.advance(core.StageFinalize, "running", "Finalizing result", nil)
	var structured *core.StructuredData
	if g.collab.Entities != nil {
		if res, err := g.collab.Entities.ExtractEntities(ctx, document); err != nil {
			warnings = append(warnings, enrichWarning("entity extraction", err))
		} else if res != nil {
			structured = res.StructuredData
			if len(res.Entities) > 0 {
				ectx.Set(core.EnrichEntities, res.Entities)
			}
		}
	}

	totalTokens := 0
	totalCost := 0.0
	for _, sr := range stageResults {
		totalTokens += sr.TokensUsed
		totalCost += sr.Cost
	}

	result := &core.PipelineResult{
		ID:               runID,
		Content:          document,
		Title:            title,
		MetaDescription:  description,
		StageResults:     stageResults,
		ReadabilityScore: recResult.ReadabilityScore,
		QualityReport:    report,
		StructuredData:   structured,
		Citations:        citations,
		InsertedLinks:    linkResult.Inserted,
		TotalTokens:      totalTokens,
		TotalCost:        totalCost,
		ElapsedTime:      time.Since(started),
		Warnings:         dedupeWarnings(warnings),
		GeneratedAt:      time.Now(),
	}
	tracker.emit(core.StageFinalize, "completed", "Run complete", map[string]any{
		"total_tokens": totalTokens,
		"word_count":   core.WordCount(document),
	})
	logger.Info("Pipeline run completed", "run_id", runID, "elapsed", result.ElapsedTime.String(), "warnings", len(result.Warnings))
	return result, nil
}

// runKeywordCompetitor executes the two SERP-independent analyses
// concurrently and joins before touching the progress tracker or the
// enrichment context, both of which stay on the caller's goroutine.
func (g *Generator) runKeywordCompetitor(ctx context.Context, req core.Request, ectx core.EnrichmentContext, tracker *progressTracker) []string {
	var (
		wg            sync.WaitGroup
		overviews     []enrich.KeywordOverview
		keywordErr    error
		serp          *enrich.CompetitorAnalysis
		competitorErr error
		warnings      []string
	)

	if g.collab.Keyword != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			overviews, keywordErr = g.collab.Keyword.AnalyzeKeywords(ctx, req.Keywords, "", "")
		}()
	}
	if g.collab.Competitor != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serp, competitorErr = g.collab.Competitor.AnalyzeSERP(ctx, primaryKeyword(req))
		}()
	}
	wg.Wait()

	if g.collab.Keyword != nil {
		tracker.advance(core.StageKeywordAnalysis, "running", "Analyzing keyword metrics", nil)
		if keywordErr != nil {
			msg := enrichWarning("keyword analysis", keywordErr)
			warnings = append(warnings, msg)
			tracker.degrade(core.StageKeywordAnalysis, msg)
		} else if len(overviews) > 0 {
			ectx.Set(core.EnrichKeywordOverview, overviews)
		}
	}
	if g.collab.Competitor != nil {
		tracker.advance(core.StageCompetitorAnalysis, "running", "Analyzing SERP competitors", nil)
		if competitorErr != nil {
			msg := enrichWarning("competitor analysis", competitorErr)
			warnings = append(warnings, msg)
			tracker.degrade(core.StageCompetitorAnalysis, msg)
		} else if serp != nil {
			if len(serp.TopDomains) > 0 {
				ectx.Set(core.EnrichCompetitorAnalysis, serp.TopDomains)
			}
			if serp.AvgWordCount > req.Length.TargetWords() && !ectx.Has(core.EnrichAdjustedWordCount) {
				ectx.Set(core.EnrichAdjustedWordCount, serp.AvgWordCount)
			}
		}
	}
	return warnings
}

// gatherCitations runs example extraction and source discovery as research
// preparation.
func (g *Generator) gatherCitations(ctx context.Context, req core.Request, ectx core.EnrichmentContext, warnings *[]string) []core.Citation {
	if g.collab.Examples != nil {
		if examples, err := g.collab.Examples.ExtractExamples(ctx, primaryKeyword(req)); err != nil {
			*warnings = append(*warnings, enrichWarning("example extraction", err))
		} else if len(examples) > 0 {
			formatted := make([]string, 0, len(examples))
			for _, ex := range examples {
				formatted = append(formatted, fmt.Sprintf("%s: %s", ex.Title, ex.Summary))
			}
			ectx.Set(core.EnrichFewShotExamples, formatted)
		}
	}

	if g.collab.Sources == nil {
		return nil
	}
	citations, err := g.collab.Sources.FindSources(ctx, req.Topic, req.Keywords)
	if err != nil {
		*warnings = append(*warnings, enrichWarning("source discovery", err))
		return nil
	}
	return citations
}

// insertInternalLinks resolves link targets from the request context,
// falling back to keyword-synthesized targets.
func (g *Generator) insertInternalLinks(req core.Request, document string) *links.Result {
	opts := links.Options{SiteDomain: g.opts.SiteDomain, MaxLinks: g.opts.MaxInternalLinks}
	if req.Context != nil {
		if domain, ok := req.Context[core.CtxSiteDomain].(string); ok && domain != "" {
			opts.SiteDomain = domain
		}
		if n, ok := req.Context[core.CtxMaxInternalLinks].(int); ok && n >= 0 {
			opts.MaxLinks = n
		}
	}

	targets := linkTargetsFromContext(req.Context)
	if len(targets) == 0 {
		targets = links.SynthesizeTargets(req.Keywords)
	}
	return links.Insert(document, targets, opts)
}

func linkTargetsFromContext(reqCtx map[string]any) []core.LinkTarget {
	if reqCtx == nil {
		return nil
	}
	targets, _ := reqCtx[core.CtxLinkTargets].([]core.LinkTarget)
	for i := range targets {
		if targets[i].Kind == "" {
			targets[i].Kind = core.LinkTargetProvided
		}
	}
	return targets
}

// absenceWarnings records which optional stages this run excludes.
func (g *Generator) absenceWarnings() []string {
	var warnings []string
	absent := []struct {
		name    string
		missing bool
	}{
		{"keyword analysis", g.collab.Keyword == nil},
		{"competitor analysis", g.collab.Competitor == nil},
		{"intent analysis", g.collab.Intent == nil},
		{"length optimization", g.collab.Length == nil},
		{"semantic integration", g.collab.Semantic == nil},
		{"quality scoring", g.collab.Quality == nil},
	}
	for _, a := range absent {
		if a.missing {
			warnings = append(warnings, fmt.Sprintf("%s provider not configured; stage excluded", a.name))
		}
	}
	return warnings
}

// enrichWarning formats a degraded-stage warning with its error kind.
func enrichWarning(stage string, err error) string {
	kind := enrich.KindOf(err)
	logger.Warn("Enrichment stage degraded", "stage", stage, "kind", kind.String(), "error", err.Error())
	return fmt.Sprintf("%s failed (%s): %v", stage, kind, err)
}

func flattenClusters(clusters map[string][]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, kws := range clusters {
		for _, kw := range kws {
			key := strings.ToLower(kw)
			if kw == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, kw)
		}
	}
	return out
}

// dedupeWarnings preserves first-occurrence order.
func dedupeWarnings(warnings []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range warnings {
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// aiSimplifier adapts the text generator to the reconciler's Simplify pass.
type aiSimplifier struct {
	gen TextGenerator
}

func (s *aiSimplifier) Simplify(ctx context.Context, text string) (string, error) {
	res, err := s.gen.Generate(ctx, llm.GenerateRequest{
		Prompt:          "Rewrite the following article to be easier to read: shorter sentences, simpler words, active voice. Keep all markdown headings, links, and code blocks exactly as they are. Return the full article.\n\n" + text,
		Profile:         llm.ProfileFast,
		MaxOutputTokens: int32(core.WordCount(text) * tokensPerWordBudget),
		Temperature:     0.3,
	})
	if err != nil {
		return "", err
	}
	return res.Content, nil
}
