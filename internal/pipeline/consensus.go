package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"longform/internal/core"
	"longform/internal/llm"
	"longform/internal/logger"
)

// consensusProvider labels a draft stitched together from multiple variants.
const consensusProvider = "multi-model"

// SectionScorer ranks one candidate rendering of a section; the highest
// score wins during the merge. The default policy favors substance and
// structural richness.
type SectionScorer func(heading, body string) float64

// variantProfiles cycles generation profiles across variants so drafts come
// from differently-tuned models.
var variantProfiles = []llm.Profile{llm.ProfileThroughput, llm.ProfileReasoning, llm.ProfileFast}

type variantResult struct {
	index   int
	content string
	tokens  int
	cost    float64
	err     error
}

// runConsensusDraft generates K draft variants concurrently and merges them
// section by section. The merged result reports the summed token and cost
// totals of every successful variant. All variants failing is fatal.
func (g *Generator) runConsensusDraft(ctx context.Context, req core.Request, ectx core.EnrichmentContext, outline string, targetWords, variants int) (*core.StageResult, []string, error) {
	if variants < 2 {
		variants = 2
	}

	results := make([]variantResult, variants)
	var wg sync.WaitGroup
	for i := 0; i < variants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			prompt := buildDraftPrompt(req, ectx, outline, targetWords)
			res, err := g.textGen.Generate(ctx, llm.GenerateRequest{
				Prompt:          prompt,
				Profile:         variantProfiles[i%len(variantProfiles)],
				MaxOutputTokens: int32(targetWords * tokensPerWordBudget),
				Temperature:     0.6 + 0.15*float32(i%3),
				TopP:            0.95,
			})
			if err != nil {
				results[i] = variantResult{index: i, err: err}
				return
			}
			results[i] = variantResult{index: i, content: res.Content, tokens: res.TokensUsed, cost: res.Cost}
		}(i)
	}
	wg.Wait()

	var (
		succeeded []variantResult
		warnings  []string
		lastErr   error
	)
	for _, r := range results {
		if r.err != nil {
			lastErr = r.err
			warnings = append(warnings, fmt.Sprintf("consensus: variant %d failed: %v", r.index+1, r.err))
			continue
		}
		succeeded = append(succeeded, r)
	}
	if len(succeeded) == 0 {
		return nil, nil, &StageError{Stage: core.StageDraft, Err: fmt.Errorf("all %d consensus variants failed: %w", variants, lastErr)}
	}

	merged := mergeVariants(succeeded, g.sectionScorer)
	totalTokens := 0
	totalCost := 0.0
	for _, r := range succeeded {
		totalTokens += r.tokens
		totalCost += r.cost
	}
	logger.Info("Consensus draft merged", "variants_succeeded", len(succeeded), "variants_requested", variants, "tokens", totalTokens)

	actual := core.WordCount(merged)
	if float64(actual) < draftShortfallRatio*float64(targetWords) {
		warnings = append(warnings, fmt.Sprintf("draft: generated %d words against a %d-word target", actual, targetWords))
	}

	return &core.StageResult{
		StageName: core.StageDraft,
		Content:   merged,
		Metadata: map[string]any{
			"variants_requested": variants,
			"variants_succeeded": len(succeeded),
			"target_words":       targetWords,
			"actual_words":       actual,
		},
		ProviderUsed: consensusProvider,
		TokensUsed:   totalTokens,
		Cost:         totalCost,
	}, warnings, nil
}

// draftSection is one H2-delimited slice of a variant, plus the preamble
// before the first H2 (heading "").
type draftSection struct {
	heading string
	body    string
}

// mergeVariants picks, for each section heading present in the first
// successful variant, the best-scoring rendering across all variants.
// Sections unique to later variants are appended in their original order.
func mergeVariants(variants []variantResult, score SectionScorer) string {
	if len(variants) == 1 {
		return variants[0].content
	}
	if score == nil {
		score = defaultSectionScore
	}

	base := splitSections(variants[0].content)
	others := make([][]draftSection, 0, len(variants)-1)
	for _, v := range variants[1:] {
		others = append(others, splitSections(v.content))
	}

	var b strings.Builder
	seen := make(map[string]bool)
	for _, sec := range base {
		best := sec
		bestScore := score(sec.heading, sec.body)
		for _, alt := range others {
			if cand, ok := findSection(alt, sec.heading); ok {
				if s := score(cand.heading, cand.body); s > bestScore {
					best, bestScore = cand, s
				}
			}
		}
		seen[normalizeHeading(sec.heading)] = true
		writeSection(&b, best)
	}

	// Carry over substantial sections the base variant lacks.
	for _, alt := range others {
		for _, sec := range alt {
			key := normalizeHeading(sec.heading)
			if sec.heading == "" || seen[key] {
				continue
			}
			if core.WordCount(sec.body) < 40 {
				continue
			}
			seen[key] = true
			writeSection(&b, sec)
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// splitSections partitions a markdown draft at its H2 headings.
func splitSections(doc string) []draftSection {
	var sections []draftSection
	current := draftSection{}
	var body []string
	inCode := false

	flush := func() {
		current.body = strings.TrimSpace(strings.Join(body, "\n"))
		if current.heading != "" || current.body != "" {
			sections = append(sections, current)
		}
		body = nil
	}

	for _, line := range strings.Split(doc, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inCode = !inCode
		}
		if !inCode && strings.HasPrefix(trimmed, "## ") {
			flush()
			current = draftSection{heading: strings.TrimSpace(strings.TrimPrefix(trimmed, "## "))}
			continue
		}
		body = append(body, line)
	}
	flush()
	return sections
}

func findSection(sections []draftSection, heading string) (draftSection, bool) {
	key := normalizeHeading(heading)
	for _, s := range sections {
		if normalizeHeading(s.heading) == key {
			return s, true
		}
	}
	return draftSection{}, false
}

func normalizeHeading(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

func writeSection(b *strings.Builder, sec draftSection) {
	if sec.heading != "" {
		b.WriteString("## " + sec.heading + "\n\n")
	}
	if sec.body != "" {
		b.WriteString(sec.body + "\n\n")
	}
}

// defaultSectionScore rewards length with a bonus for structural cues:
// subheadings, lists, and code blocks signal a more developed section.
func defaultSectionScore(heading, body string) float64 {
	score := float64(core.WordCount(body))
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "### "):
			score += 25
		case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "):
			score += 5
		case strings.HasPrefix(trimmed, "```"):
			score += 15
		}
	}
	return score
}
