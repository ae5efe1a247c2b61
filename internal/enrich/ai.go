package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"longform/internal/core"
	"longform/internal/llm"
)

// TextGenerator is the slice of the LLM client the AI-backed providers use.
type TextGenerator interface {
	Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResult, error)
}

// AISemanticIntegrator weaves related keywords into a finished document
// using the fast model profile.
type AISemanticIntegrator struct {
	gen TextGenerator
}

// NewAISemanticIntegrator creates the integrator.
func NewAISemanticIntegrator(gen TextGenerator) *AISemanticIntegrator {
	return &AISemanticIntegrator{gen: gen}
}

// IntegrateKeywords rewrites the document so the given keywords and close
// variants appear naturally. The document's structure must survive intact.
func (s *AISemanticIntegrator) IntegrateKeywords(ctx context.Context, document string, keywords []string) (*SemanticResult, error) {
	if len(keywords) == 0 {
		return &SemanticResult{Document: document}, nil
	}

	prompt := fmt.Sprintf(`Revise the article below so these keywords and natural variations of them appear where they fit: %s.
Do not force keywords where they read awkwardly. Keep every heading, link, and code block unchanged. Return the full revised article.

ARTICLE:
%s`, strings.Join(keywords, ", "), document)

	res, err := s.gen.Generate(ctx, llm.GenerateRequest{
		Prompt:          prompt,
		Profile:         llm.ProfileFast,
		MaxOutputTokens: int32(core.WordCount(document) * 2),
		Temperature:     0.3,
	})
	if err != nil {
		return nil, Transient("semantic-integrator", err)
	}
	if core.WordCount(res.Content) < core.WordCount(document)/2 {
		return nil, Permanent("semantic-integrator", fmt.Errorf("rewrite lost most of the document"))
	}

	clusters := map[string][]string{}
	if len(keywords) > 0 {
		clusters[keywords[0]] = keywords
	}
	return &SemanticResult{Document: res.Content, Clusters: clusters}, nil
}

// AIEntityLinker extracts named entities and builds schema.org Article data.
type AIEntityLinker struct {
	gen TextGenerator
}

// NewAIEntityLinker creates the linker.
func NewAIEntityLinker(gen TextGenerator) *AIEntityLinker {
	return &AIEntityLinker{gen: gen}
}

// ExtractEntities asks for a JSON array of entity names and wraps them in a
// structured-data object.
func (l *AIEntityLinker) ExtractEntities(ctx context.Context, document string) (*EntityResult, error) {
	excerpt := document
	if len(excerpt) > 6000 {
		excerpt = excerpt[:6000]
	}
	prompt := fmt.Sprintf(`List the named entities (people, organizations, products, places, technologies) mentioned in the article below.
Respond with ONLY a JSON array of strings, most important first, at most 15 entries.

ARTICLE:
%s`, excerpt)

	res, err := l.gen.Generate(ctx, llm.GenerateRequest{
		Prompt:          prompt,
		Profile:         llm.ProfileFast,
		MaxOutputTokens: 512,
		Temperature:     0.1,
	})
	if err != nil {
		return nil, Transient("entity-linker", err)
	}

	entities, err := parseEntityList(res.Content)
	if err != nil {
		return nil, Permanent("entity-linker", err)
	}
	if len(entities) == 0 {
		return &EntityResult{}, nil
	}

	return &EntityResult{
		Entities: entities,
		StructuredData: &core.StructuredData{
			Type: "Article",
			Properties: map[string]any{
				"about": entities,
			},
			Entities: entities,
		},
	}, nil
}

// parseEntityList tolerates markdown code fences around the JSON array.
func parseEntityList(response string) ([]string, error) {
	trimmed := strings.TrimSpace(response)
	if start := strings.Index(trimmed, "["); start >= 0 {
		if end := strings.LastIndex(trimmed, "]"); end > start {
			trimmed = trimmed[start : end+1]
		}
	}

	var entities []string
	if err := json.Unmarshal([]byte(trimmed), &entities); err != nil {
		return nil, fmt.Errorf("parsing entity list: %w", err)
	}

	out := entities[:0]
	for _, e := range entities {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out, nil
}
