package pipeline

import (
	"context"
	"fmt"
	"strings"

	"longform/internal/core"
	"longform/internal/enrich"
	"longform/internal/llm"
	"longform/internal/sources"
)

// TitlePlaceholder is the token models sometimes echo back instead of a
// real title. It is rejected by the fallback chain.
const TitlePlaceholder = "[TITLE]"

const minTitleLength = 5

// Word targets below this ratio of the request record a warning.
const draftShortfallRatio = 0.8

// tokensPerWordBudget sizes the generation budget generously above the word
// target to avoid truncation.
const tokensPerWordBudget = 2

// runResearch executes the mandatory Research/Outline stage.
func (g *Generator) runResearch(ctx context.Context, req core.Request, ectx core.EnrichmentContext, citations []core.Citation) (*core.StageResult, error) {
	prompt := buildResearchPrompt(req, ectx, citations)

	result, err := g.textGen.Generate(ctx, llm.GenerateRequest{
		Prompt:          prompt,
		Profile:         llm.ProfileReasoning,
		MaxOutputTokens: 2048,
		Temperature:     0.7,
	})
	if err != nil {
		return nil, &StageError{Stage: core.StageResearch, Err: err}
	}

	return &core.StageResult{
		StageName:    core.StageResearch,
		Content:      result.Content,
		Metadata:     map[string]any{"prompt_chars": len(prompt)},
		ProviderUsed: result.Provider,
		TokensUsed:   result.TokensUsed,
		Cost:         result.Cost,
	}, nil
}

// runDraft executes the mandatory Draft stage with the word-count contract.
func (g *Generator) runDraft(ctx context.Context, req core.Request, ectx core.EnrichmentContext, outline string, targetWords int) (*core.StageResult, []string, error) {
	prompt := buildDraftPrompt(req, ectx, outline, targetWords)

	result, err := g.textGen.Generate(ctx, llm.GenerateRequest{
		Prompt:          prompt,
		Profile:         llm.ProfileThroughput,
		MaxOutputTokens: int32(targetWords * tokensPerWordBudget),
		Temperature:     0.8,
		TopP:            0.95,
	})
	if err != nil {
		return nil, nil, &StageError{Stage: core.StageDraft, Err: err}
	}

	var warnings []string
	actual := core.WordCount(result.Content)
	if float64(actual) < draftShortfallRatio*float64(targetWords) {
		warnings = append(warnings, fmt.Sprintf("draft: generated %d words against a %d-word target", actual, targetWords))
	}

	return &core.StageResult{
		StageName:    core.StageDraft,
		Content:      result.Content,
		Metadata:     map[string]any{"target_words": targetWords, "actual_words": actual},
		ProviderUsed: result.Provider,
		TokensUsed:   result.TokensUsed,
		Cost:         result.Cost,
	}, warnings, nil
}

// runEnhancement executes the mandatory Enhancement stage on the draft.
func (g *Generator) runEnhancement(ctx context.Context, req core.Request, ectx core.EnrichmentContext, draft string) (*core.StageResult, error) {
	prompt := buildEnhancementPrompt(req, ectx, draft)

	result, err := g.textGen.Generate(ctx, llm.GenerateRequest{
		Prompt:          prompt,
		Profile:         llm.ProfileReasoning,
		MaxOutputTokens: int32(core.WordCount(draft) * tokensPerWordBudget),
		Temperature:     0.6,
	})
	if err != nil {
		return nil, &StageError{Stage: core.StageEnhancement, Err: err}
	}

	return &core.StageResult{
		StageName:    core.StageEnhancement,
		Content:      result.Content,
		Metadata:     map[string]any{},
		ProviderUsed: result.Provider,
		TokensUsed:   result.TokensUsed,
		Cost:         result.Cost,
	}, nil
}

// runSEOPolish executes the mandatory SEO-Polish stage and resolves title
// and description through the fallback chain.
func (g *Generator) runSEOPolish(ctx context.Context, req core.Request, document string) (*core.StageResult, string, string, []string, error) {
	prompt := buildSEOPrompt(req, document)

	result, err := g.textGen.Generate(ctx, llm.GenerateRequest{
		Prompt:          prompt,
		Profile:         llm.ProfileFast,
		MaxOutputTokens: 256,
		Temperature:     0.4,
	})
	if err != nil {
		return nil, "", "", nil, &StageError{Stage: core.StageSEOPolish, Err: err}
	}

	var warnings []string
	title, description := parseSEOResponse(result.Content)
	resolved := resolveTitle(title, document, req.Topic)
	if resolved != title {
		warnings = append(warnings, fmt.Sprintf("seo: generated title rejected, fell back to %q", resolved))
	}
	if description == "" {
		description = fmt.Sprintf("A practical guide to %s.", req.Topic)
		warnings = append(warnings, "seo: no meta description parsed, synthesized one from the topic")
	}

	stageResult := &core.StageResult{
		StageName:    core.StageSEOPolish,
		Content:      result.Content,
		Metadata:     map[string]any{"title": resolved, "description": description},
		ProviderUsed: result.Provider,
		TokensUsed:   result.TokensUsed,
		Cost:         result.Cost,
	}
	return stageResult, resolved, description, warnings, nil
}

// targetWordCount derives the draft word target: the request's length class,
// adjusted upward when the length-competition analyzer recommended more.
func targetWordCount(req core.Request, ectx core.EnrichmentContext) int {
	target := req.Length.TargetWords()
	if adjusted, ok := ectx.Int(core.EnrichAdjustedWordCount); ok && adjusted > target {
		target = adjusted
	}
	return target
}

// buildResearchPrompt assembles the outline instruction, embedding every
// present enrichment key relevant to research.
func buildResearchPrompt(req core.Request, ectx core.EnrichmentContext, citations []core.Citation) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Create a detailed outline for a %s article about %q.\n\n", req.Tone, req.Topic))
	b.WriteString(fmt.Sprintf("Target keywords: %s\n", strings.Join(req.Keywords, ", ")))

	if req.Template != "" {
		b.WriteString(fmt.Sprintf("Article template: %s\n", req.Template))
	}
	if audience, ok := stringFromContext(req.Context, core.CtxAudience); ok {
		b.WriteString(fmt.Sprintf("Target audience: %s\n", audience))
	}
	if intent, ok := ectx.String(core.EnrichSearchIntent); ok {
		b.WriteString(fmt.Sprintf("Dominant search intent: %s. Structure the outline to satisfy it.\n", intent))
	}
	if competitors, ok := ectx.Strings(core.EnrichCompetitorAnalysis); ok {
		b.WriteString(fmt.Sprintf("Top competing domains: %s. Plan sections that go deeper than they do.\n", strings.Join(competitors, ", ")))
	}
	if examples, ok := ectx.Strings(core.EnrichFewShotExamples); ok {
		b.WriteString("Reference examples of strong coverage:\n")
		for _, ex := range examples {
			b.WriteString("- " + ex + "\n")
		}
	}
	if len(citations) > 0 {
		b.WriteString("Authoritative sources to plan citations around:\n")
		for _, c := range citations {
			b.WriteString("- " + sources.FormatCitation(c) + "\n")
		}
		ectx.Set(core.EnrichCitationPatterns, len(citations))
	}
	if instructions, ok := stringFromContext(req.Context, core.CtxCustomInstructions); ok {
		b.WriteString("Additional instructions: " + instructions + "\n")
	}

	b.WriteString("\nReturn a markdown outline with one # title, 4-7 ## section headings, and bullet points under each section.")
	return b.String()
}

// buildDraftPrompt assembles the full-draft instruction from the outline.
func buildDraftPrompt(req core.Request, ectx core.EnrichmentContext, outline string, targetWords int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Write a complete %s article in markdown following this outline. Aim for %d words.\n\n", req.Tone, targetWords))
	b.WriteString("OUTLINE:\n" + outline + "\n\n")

	if semantic, ok := ectx.Strings(core.EnrichSemanticKeywords); ok {
		b.WriteString(fmt.Sprintf("Weave in these related terms naturally: %s\n", strings.Join(semantic, ", ")))
	}
	if intent, ok := ectx.String(core.EnrichSearchIntent); ok {
		b.WriteString(fmt.Sprintf("Write for %s search intent.\n", intent))
	}
	if audience, ok := stringFromContext(req.Context, core.CtxAudience); ok {
		b.WriteString(fmt.Sprintf("Audience: %s\n", audience))
	}

	b.WriteString("\nUse short paragraphs, concrete examples, and keep every heading from the outline.")
	return b.String()
}

// buildEnhancementPrompt assembles the depth/quality improvement instruction.
func buildEnhancementPrompt(req core.Request, ectx core.EnrichmentContext, draft string) string {
	var b strings.Builder
	b.WriteString("Improve the following article draft: deepen thin sections, add concrete detail, fix transitions, and remove repetition. Keep the markdown structure and all headings. Return the full revised article.\n\n")
	if intent, ok := ectx.String(core.EnrichSearchIntent); ok {
		b.WriteString(fmt.Sprintf("Keep the content aligned with %s search intent.\n", intent))
	}
	b.WriteString(fmt.Sprintf("Maintain a %s tone throughout.\n\n", req.Tone))
	b.WriteString("DRAFT:\n" + draft)
	return b.String()
}

// buildSEOPrompt asks for metadata in a parseable two-line format.
func buildSEOPrompt(req core.Request, document string) string {
	excerpt := document
	if len(excerpt) > 4000 {
		excerpt = excerpt[:4000]
	}
	return fmt.Sprintf(`Generate SEO metadata for the article below. The primary keyword is %q.

Respond with EXACTLY this format:
TITLE: [an engaging title under 60 characters]
DESCRIPTION: [a meta description between 120 and 160 characters]

ARTICLE:
%s`, primaryKeyword(req), excerpt)
}

// parseSEOResponse extracts title and description from the semi-structured
// model response.
func parseSEOResponse(response string) (title, description string) {
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "TITLE:") {
			title = strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, "TITLE:")), "\"'")
		} else if strings.HasPrefix(line, "DESCRIPTION:") {
			description = strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, "DESCRIPTION:")), "\"'")
		}
	}
	return title, description
}

// resolveTitle applies the fallback chain: a valid parsed title, then the
// document's first top-level heading, then the raw topic.
func resolveTitle(parsed, document, topic string) string {
	if isValidTitle(parsed) {
		return parsed
	}
	if heading := firstTopHeading(document); isValidTitle(heading) {
		return heading
	}
	return topic
}

// isValidTitle rejects empty titles, the placeholder token, and anything
// shorter than the minimum length.
func isValidTitle(title string) bool {
	title = strings.TrimSpace(title)
	return title != "" && title != TitlePlaceholder && len(title) >= minTitleLength
}

// firstTopHeading returns the text of the document's first # heading.
func firstTopHeading(document string) string {
	for _, line := range strings.Split(document, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
		}
	}
	return ""
}

func primaryKeyword(req core.Request) string {
	if len(req.Keywords) > 0 {
		return req.Keywords[0]
	}
	return req.Topic
}

func stringFromContext(ctx map[string]any, key string) (string, bool) {
	if ctx == nil {
		return "", false
	}
	s, ok := ctx[key].(string)
	return s, ok && s != ""
}

// intentLabel formats the classifier result for the enrichment context.
func intentLabel(res *enrich.IntentResult) string {
	if res == nil {
		return ""
	}
	return res.Primary
}
