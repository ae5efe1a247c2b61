package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"longform/internal/core"
	"longform/internal/enrich"
	"longform/internal/llm"
	"longform/internal/quality"
)

const sampleOutline = `# Practical Unit Testing in Go

## Getting Started
- install the toolchain
- write the first test

## Table-Driven Tests
- structure
- naming

## Wrapping Up
- recap`

const sampleDraft = `# Practical Unit Testing in Go

Testing keeps code honest. It is worth learning well. Start small and build up.

## Getting Started

Install the toolchain first. Then write one small test. Run it often. For example, test a pure function before anything else.

## Table-Driven Tests

Use a slice of cases. Name each case clearly. Loop over them in one test. This keeps tests short and easy to extend.

## Wrapping Up

Practice daily. Review failures carefully. Try writing one new test today.`

const sampleSEO = "TITLE: A Practical Guide to Go Testing\nDESCRIPTION: Learn how to write clear, table-driven unit tests in Go with practical steps, naming advice, and examples for beginners."

// scriptedGen routes canned responses by prompt shape, mirroring the four
// mandatory stages plus the simplify pass.
type scriptedGen struct {
	mu    sync.Mutex
	calls []llm.GenerateRequest
	fail  func(req llm.GenerateRequest) error
}

func (s *scriptedGen) Generate(_ context.Context, req llm.GenerateRequest) (*llm.GenerateResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()

	if s.fail != nil {
		if err := s.fail(req); err != nil {
			return nil, err
		}
	}

	switch {
	case strings.HasPrefix(req.Prompt, "Create a detailed outline"):
		return &llm.GenerateResult{Content: sampleOutline, Provider: "gemini-2.5-pro", TokensUsed: 100, Cost: 0.01}, nil
	case strings.HasPrefix(req.Prompt, "Write a complete"):
		return &llm.GenerateResult{Content: sampleDraft, Provider: "gemini-2.5-flash", TokensUsed: 400, Cost: 0.02}, nil
	case strings.HasPrefix(req.Prompt, "Improve the following"):
		return &llm.GenerateResult{Content: sampleDraft, Provider: "gemini-2.5-pro", TokensUsed: 500, Cost: 0.03}, nil
	case strings.HasPrefix(req.Prompt, "Generate SEO metadata"):
		return &llm.GenerateResult{Content: sampleSEO, Provider: "gemini-flash-lite-latest", TokensUsed: 50, Cost: 0.001}, nil
	case strings.HasPrefix(req.Prompt, "Rewrite the following"):
		return &llm.GenerateResult{Content: sampleDraft, Provider: "gemini-flash-lite-latest", TokensUsed: 200, Cost: 0.001}, nil
	}
	return nil, fmt.Errorf("unexpected prompt: %.40s", req.Prompt)
}

type stubKeyword struct{ err error }

func (s *stubKeyword) AnalyzeKeywords(context.Context, []string, string, string) ([]enrich.KeywordOverview, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []enrich.KeywordOverview{{Keyword: "go testing", Difficulty: 42, SearchVolume: 900}}, nil
}

type stubCompetitor struct{ err error }

func (s *stubCompetitor) AnalyzeSERP(context.Context, string) (*enrich.CompetitorAnalysis, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &enrich.CompetitorAnalysis{Keyword: "go testing", TopDomains: []string{"example.com", "docs.example.org"}}, nil
}

type stubIntent struct{}

func (stubIntent) ClassifyIntent(context.Context, []string) (*enrich.IntentResult, error) {
	return &enrich.IntentResult{Primary: "informational"}, nil
}

type stubLength struct{ words int }

func (s stubLength) RecommendLength(context.Context, string) (*enrich.LengthRecommendation, error) {
	return &enrich.LengthRecommendation{RecommendedWords: s.words, DepthScore: 0.8}, nil
}

type stubSemantic struct{}

func (stubSemantic) IntegrateKeywords(_ context.Context, document string, _ []string) (*enrich.SemanticResult, error) {
	return &enrich.SemanticResult{Document: document, Clusters: map[string][]string{"testing": {"unit tests", "assertions"}}}, nil
}

type passingScorer struct{}

func (passingScorer) Score(quality.Input) *core.QualityReport {
	return &core.QualityReport{OverallScore: 85, PassedThreshold: true}
}

func fullCollaborators(gen TextGenerator) Collaborators {
	return Collaborators{
		TextGen:    gen,
		Keyword:    &stubKeyword{},
		Competitor: &stubCompetitor{},
		Intent:     stubIntent{},
		Length:     stubLength{words: 900},
		Semantic:   stubSemantic{},
		Quality:    passingScorer{},
	}
}

func TestTotalStages(t *testing.T) {
	gen := &scriptedGen{}

	minimal, err := New(Collaborators{TextGen: gen}, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := minimal.TotalStages(); got != 6 {
		t.Errorf("minimal TotalStages = %d, want 6", got)
	}

	full, err := New(fullCollaborators(gen), Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := full.TotalStages(); got != 12 {
		t.Errorf("full TotalStages = %d, want 12", got)
	}
}

func TestGenerateProgressMonotonic(t *testing.T) {
	gen := &scriptedGen{}
	var updates []core.ProgressUpdate
	collab := fullCollaborators(gen)
	collab.Progress = ProgressFunc(func(u core.ProgressUpdate) { updates = append(updates, u) })

	g, err := New(collab, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := g.Generate(context.Background(), core.Request{
		Topic:    "unit testing in Go",
		Keywords: []string{"go testing"},
		Tone:     core.ToneProfessional,
		Length:   core.LengthShort,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(updates) == 0 {
		t.Fatal("no progress updates delivered")
	}
	total := g.TotalStages()
	prev := 0
	for i, u := range updates {
		if u.TotalStages != total {
			t.Errorf("update %d: TotalStages = %d, want %d", i, u.TotalStages, total)
		}
		if u.StageNumber < prev {
			t.Errorf("update %d: stage number went backward (%d after %d)", i, u.StageNumber, prev)
		}
		if u.StageNumber > u.TotalStages {
			t.Errorf("update %d: stage number %d exceeds total %d", i, u.StageNumber, u.TotalStages)
		}
		prev = u.StageNumber
	}
	last := updates[len(updates)-1]
	if last.Status != "completed" || last.ProgressPercentage != 100 {
		t.Errorf("final update = %q at %.1f%%, want completed at 100%%", last.Status, last.ProgressPercentage)
	}

	if result.ID == "" {
		t.Error("result ID is empty")
	}
	if result.Title != "A Practical Guide to Go Testing" {
		t.Errorf("Title = %q", result.Title)
	}
	if result.TotalTokens == 0 {
		t.Error("TotalTokens not aggregated")
	}
}

func TestGenerateAbsentProviderWarnings(t *testing.T) {
	gen := &scriptedGen{}
	g, err := New(Collaborators{TextGen: gen}, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := g.Generate(context.Background(), core.Request{Topic: "unit testing in Go"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for _, name := range []string{"keyword analysis", "competitor analysis", "intent analysis", "length optimization", "semantic integration", "quality scoring"} {
		want := name + " provider not configured; stage excluded"
		if !containsWarning(result.Warnings, want) {
			t.Errorf("warnings missing %q; got %v", want, result.Warnings)
		}
	}
}

func TestGenerateEnrichmentFailureIsolated(t *testing.T) {
	gen := &scriptedGen{}
	collab := fullCollaborators(gen)
	collab.Keyword = &stubKeyword{err: enrich.Transient("dataforseo", errors.New("request timed out"))}

	g, err := New(collab, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := g.Generate(context.Background(), core.Request{Topic: "unit testing in Go", Keywords: []string{"go testing"}})
	if err != nil {
		t.Fatalf("Generate should not fail on enrichment errors: %v", err)
	}

	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "keyword analysis failed (transient)") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected degraded keyword-analysis warning, got %v", result.Warnings)
	}
	if result.Content == "" {
		t.Error("run degraded instead of completing")
	}
}

func TestGenerateDegradedStatusReachesSink(t *testing.T) {
	gen := &scriptedGen{}
	collab := fullCollaborators(gen)
	collab.Keyword = &stubKeyword{err: enrich.Transient("dataforseo", errors.New("request timed out"))}

	var updates []core.ProgressUpdate
	collab.Progress = ProgressFunc(func(u core.ProgressUpdate) { updates = append(updates, u) })

	g, err := New(collab, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := g.Generate(context.Background(), core.Request{Topic: "unit testing in Go", Keywords: []string{"go testing"}}); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var startNum, degradedNum int
	var degraded *core.ProgressUpdate
	for i, u := range updates {
		if u.Stage != core.StageKeywordAnalysis {
			continue
		}
		switch u.Status {
		case "running":
			startNum = u.StageNumber
		case "degraded":
			degraded = &updates[i]
			degradedNum = u.StageNumber
		}
	}
	if degraded == nil {
		t.Fatal("failing keyword stage never reported a degraded status to the sink")
	}
	if !strings.Contains(degraded.Details, "keyword analysis failed (transient)") {
		t.Errorf("degraded details = %q", degraded.Details)
	}
	if degradedNum != startNum {
		t.Errorf("degraded update moved the stage number: start %d, degraded %d", startNum, degradedNum)
	}
}

func TestGenerateMandatoryStageFatal(t *testing.T) {
	gen := &scriptedGen{fail: func(req llm.GenerateRequest) error {
		if strings.HasPrefix(req.Prompt, "Create a detailed outline") {
			return errors.New("provider unavailable")
		}
		return nil
	}}
	g, err := New(Collaborators{TextGen: gen}, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := g.Generate(context.Background(), core.Request{Topic: "unit testing in Go"})
	if result != nil {
		t.Error("expected no partial result on mandatory stage failure")
	}
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if stageErr.Stage != core.StageResearch {
		t.Errorf("Stage = %s, want %s", stageErr.Stage, core.StageResearch)
	}
}

func TestGenerateProgressSinkPanicIsolated(t *testing.T) {
	gen := &scriptedGen{}
	collab := Collaborators{
		TextGen:  gen,
		Progress: ProgressFunc(func(core.ProgressUpdate) { panic("broken observer") }),
	}
	g, err := New(collab, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := g.Generate(context.Background(), core.Request{Topic: "unit testing in Go"}); err != nil {
		t.Fatalf("Generate failed because of a panicking sink: %v", err)
	}
}

func TestResolveTitle(t *testing.T) {
	doc := "# Heading From Document\n\nBody text."
	tests := []struct {
		name   string
		parsed string
		doc    string
		want   string
	}{
		{"valid parsed title wins", "A Valid Title", doc, "A Valid Title"},
		{"placeholder falls back to heading", TitlePlaceholder, doc, "Heading From Document"},
		{"short title falls back to heading", "Hi", doc, "Heading From Document"},
		{"empty title falls back to heading", "", doc, "Heading From Document"},
		{"no heading falls back to topic", "", "plain text only", "the topic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveTitle(tt.parsed, tt.doc, "the topic"); got != tt.want {
				t.Errorf("resolveTitle(%q) = %q, want %q", tt.parsed, got, tt.want)
			}
		})
	}
}

func TestParseSEOResponse(t *testing.T) {
	title, desc := parseSEOResponse("some preamble\nTITLE: \"Quoted Title\"\nDESCRIPTION: A description line.\ntrailing")
	if title != "Quoted Title" {
		t.Errorf("title = %q", title)
	}
	if desc != "A description line." {
		t.Errorf("description = %q", desc)
	}
}

func TestTargetWordCount(t *testing.T) {
	req := core.Request{Length: core.LengthShort}

	ectx := core.EnrichmentContext{}
	if got := targetWordCount(req, ectx); got != 800 {
		t.Errorf("base target = %d, want 800", got)
	}

	ectx.Set(core.EnrichAdjustedWordCount, 1200)
	if got := targetWordCount(req, ectx); got != 1200 {
		t.Errorf("adjusted target = %d, want 1200", got)
	}

	ectx.Set(core.EnrichAdjustedWordCount, 500)
	if got := targetWordCount(req, ectx); got != 800 {
		t.Errorf("downward adjustment applied: got %d, want 800", got)
	}
}

func TestRunDraftShortfallWarning(t *testing.T) {
	gen := &scriptedGen{}
	g, err := New(Collaborators{TextGen: gen}, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// sampleDraft is far below 4000 words.
	_, warnings, err := g.runDraft(context.Background(), core.Request{Topic: "t", Length: core.LengthInDepth}, core.EnrichmentContext{}, sampleOutline, 4000)
	if err != nil {
		t.Fatalf("runDraft: %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "word target") {
		t.Errorf("expected a shortfall warning, got %v", warnings)
	}
}

func TestConsensusTokenAggregation(t *testing.T) {
	var call atomic.Int32
	tokens := []int{1000, 2000, 1500}
	costs := []float64{0.10, 0.20, 0.15}

	gen := &fnGen{fn: func(req llm.GenerateRequest) (*llm.GenerateResult, error) {
		i := int(call.Add(1)) - 1
		return &llm.GenerateResult{
			Content:    fmt.Sprintf("## Section\n\nVariant %d body with several words of content.", i),
			Provider:   "gemini-2.5-flash",
			TokensUsed: tokens[i%len(tokens)],
			Cost:       costs[i%len(costs)],
		}, nil
	}}
	g, err := New(Collaborators{TextGen: gen}, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, _, err := g.runConsensusDraft(context.Background(), core.Request{Topic: "t", Length: core.LengthShort}, core.EnrichmentContext{}, sampleOutline, 800, 3)
	if err != nil {
		t.Fatalf("runConsensusDraft: %v", err)
	}
	if res.ProviderUsed != "multi-model" {
		t.Errorf("ProviderUsed = %q, want multi-model", res.ProviderUsed)
	}
	if res.TokensUsed != 4500 {
		t.Errorf("TokensUsed = %d, want 4500", res.TokensUsed)
	}
	if diff := res.Cost - 0.45; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Cost = %f, want 0.45", res.Cost)
	}
}

func TestConsensusAllVariantsFailFatal(t *testing.T) {
	gen := &fnGen{fn: func(llm.GenerateRequest) (*llm.GenerateResult, error) {
		return nil, errors.New("quota exhausted")
	}}
	g, err := New(Collaborators{TextGen: gen}, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, _, err = g.runConsensusDraft(context.Background(), core.Request{Topic: "t"}, core.EnrichmentContext{}, sampleOutline, 800, 3)
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if stageErr.Stage != core.StageDraft {
		t.Errorf("Stage = %s, want %s", stageErr.Stage, core.StageDraft)
	}
}

func TestMergeVariantsPicksRicherSection(t *testing.T) {
	rich := "Detailed explanation. " + strings.Repeat("More useful detail here. ", 20) + "\n\n### Subtopic\n\n- point one\n- point two"
	variants := []variantResult{
		{index: 0, content: "# Title\n\nIntro.\n\n## Alpha\n\nThin body.\n\n## Beta\n\nBeta body stays."},
		{index: 1, content: "## Alpha\n\n" + rich + "\n\n## Gamma\n\n" + strings.Repeat("Unique gamma content words. ", 15)},
	}

	merged := mergeVariants(variants, nil)
	if !strings.Contains(merged, "### Subtopic") {
		t.Error("merge did not pick the richer Alpha rendering")
	}
	if !strings.Contains(merged, "Beta body stays.") {
		t.Error("merge dropped a base section")
	}
	if !strings.Contains(merged, "## Gamma") {
		t.Error("merge dropped a substantial unique section")
	}
}

func TestEnrichmentContextIsolatedPerRun(t *testing.T) {
	gen := &scriptedGen{}
	collab := fullCollaborators(gen)
	g, err := New(collab, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]*core.PipelineResult, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = g.Generate(context.Background(), core.Request{
				Topic:    fmt.Sprintf("topic %d", i),
				Keywords: []string{fmt.Sprintf("keyword-%d", i)},
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Fatalf("run %d: %v", i, errs[i])
		}
		if results[i].ID == "" {
			t.Errorf("run %d has no ID", i)
		}
	}
	if results[0].ID == results[1].ID {
		t.Error("concurrent runs shared a run ID")
	}
}

// fnGen is the minimal TextGenerator for direct stage tests.
type fnGen struct {
	fn func(req llm.GenerateRequest) (*llm.GenerateResult, error)
}

func (f *fnGen) Generate(_ context.Context, req llm.GenerateRequest) (*llm.GenerateResult, error) {
	return f.fn(req)
}

func containsWarning(warnings []string, want string) bool {
	for _, w := range warnings {
		if w == want {
			return true
		}
	}
	return false
}
