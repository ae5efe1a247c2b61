package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"

	"longform/internal/llm"
)

type cannedGen struct {
	content string
	err     error
	lastReq llm.GenerateRequest
}

func (c *cannedGen) Generate(_ context.Context, req llm.GenerateRequest) (*llm.GenerateResult, error) {
	c.lastReq = req
	if c.err != nil {
		return nil, c.err
	}
	return &llm.GenerateResult{Content: c.content, Provider: "test", TokensUsed: 10}, nil
}

func TestIntegrateKeywords(t *testing.T) {
	doc := "# Title\n\nA paragraph about compilers and tooling with enough words to count."
	gen := &cannedGen{content: doc + " Now it also mentions static analysis."}
	integrator := NewAISemanticIntegrator(gen)

	res, err := integrator.IntegrateKeywords(context.Background(), doc, []string{"static analysis", "linters"})
	if err != nil {
		t.Fatalf("IntegrateKeywords: %v", err)
	}
	if !strings.Contains(res.Document, "static analysis") {
		t.Error("integrated document lost the keyword")
	}
	if len(res.Clusters) == 0 {
		t.Error("no clusters recorded")
	}
	if !strings.Contains(gen.lastReq.Prompt, "static analysis, linters") {
		t.Error("prompt missing keyword list")
	}
}

func TestIntegrateKeywordsNoKeywords(t *testing.T) {
	integrator := NewAISemanticIntegrator(&cannedGen{})
	res, err := integrator.IntegrateKeywords(context.Background(), "unchanged", nil)
	if err != nil {
		t.Fatalf("IntegrateKeywords: %v", err)
	}
	if res.Document != "unchanged" {
		t.Errorf("Document = %q", res.Document)
	}
}

func TestIntegrateKeywordsRejectsTruncation(t *testing.T) {
	doc := strings.Repeat("many words in the source document. ", 40)
	gen := &cannedGen{content: "tiny"}
	integrator := NewAISemanticIntegrator(gen)

	_, err := integrator.IntegrateKeywords(context.Background(), doc, []string{"kw"})
	if KindOf(err) != KindPermanent {
		t.Errorf("kind = %s, want permanent", KindOf(err))
	}
}

func TestExtractEntities(t *testing.T) {
	gen := &cannedGen{content: "```json\n[\"Go\", \"Google\", \" \", \"Kubernetes\"]\n```"}
	linker := NewAIEntityLinker(gen)

	res, err := linker.ExtractEntities(context.Background(), "An article about Go at Google.")
	if err != nil {
		t.Fatalf("ExtractEntities: %v", err)
	}
	if len(res.Entities) != 3 {
		t.Fatalf("Entities = %v, want 3 after blank filtering", res.Entities)
	}
	if res.StructuredData == nil || res.StructuredData.Type != "Article" {
		t.Fatalf("StructuredData = %+v", res.StructuredData)
	}
}

func TestExtractEntitiesBadJSON(t *testing.T) {
	linker := NewAIEntityLinker(&cannedGen{content: "not json at all"})
	_, err := linker.ExtractEntities(context.Background(), "doc")
	if KindOf(err) != KindPermanent {
		t.Errorf("kind = %s, want permanent", KindOf(err))
	}
}

func TestExtractEntitiesProviderError(t *testing.T) {
	linker := NewAIEntityLinker(&cannedGen{err: errors.New("rate limited")})
	_, err := linker.ExtractEntities(context.Background(), "doc")
	if KindOf(err) != KindTransient {
		t.Errorf("kind = %s, want transient", KindOf(err))
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(NotConfigured("p")) != KindNotConfigured {
		t.Error("NotConfigured kind lost")
	}
	if KindOf(Transient("p", errors.New("timeout"))) != KindTransient {
		t.Error("Transient kind lost")
	}
	if KindOf(errors.New("plain")) != KindPermanent {
		t.Error("unclassified errors should default to permanent")
	}
}
