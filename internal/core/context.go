package core

// EnrichmentContext is the append-only key/value store accumulated across
// the stages of a single run. It is owned exclusively by that run and is
// never shared between concurrent runs. Later stages read keys written by
// earlier stages and must tolerate absence.
type EnrichmentContext map[string]any

// Keys written by the optional enrichment stages.
const (
	EnrichKeywordOverview    = "keyword_overview"
	EnrichCompetitorAnalysis = "competitor_analysis"
	EnrichSearchIntent       = "search_intent"
	EnrichAdjustedWordCount  = "adjusted_word_count"
	EnrichSemanticKeywords   = "semantic_keywords"
	EnrichFewShotExamples    = "few_shot_examples"
	EnrichCitationPatterns   = "citation_patterns"
	EnrichEntities           = "entities"
)

// Set records a value. Values are written once per key; the context grows
// monotonically as stages complete.
func (c EnrichmentContext) Set(key string, value any) {
	c[key] = value
}

// Has reports whether a key is present.
func (c EnrichmentContext) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// String returns the value for key when it is a non-empty string.
func (c EnrichmentContext) String(key string) (string, bool) {
	v, ok := c[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Int returns the value for key when it is an int.
func (c EnrichmentContext) Int(key string) (int, bool) {
	v, ok := c[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}

// Strings returns the value for key when it is a non-empty string slice.
func (c EnrichmentContext) Strings(key string) ([]string, bool) {
	v, ok := c[key]
	if !ok {
		return nil, false
	}
	s, ok := v.([]string)
	if !ok || len(s) == 0 {
		return nil, false
	}
	return s, true
}
