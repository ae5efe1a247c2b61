package serp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"longform/internal/core"
	"longform/internal/enrich"
	"longform/internal/logger"
)

// Authority domains used when estimating keyword difficulty.
var authorityDomains = map[string]bool{
	"wikipedia.org":     true,
	"britannica.com":    true,
	"nih.gov":           true,
	"harvard.edu":       true,
	"mit.edu":           true,
	"forbes.com":        true,
	"nytimes.com":       true,
	"bbc.com":           true,
	"github.com":        true,
	"stackoverflow.com": true,
}

// Intent signal phrases, checked in order of specificity.
var (
	transactionalSignals = []string{"buy", "price", "pricing", "discount", "coupon", "cheap", "deal", "order"}
	commercialSignals    = []string{"best", "top", "review", "vs", "versus", "compare", "comparison", "alternative"}
	navigationalSignals  = []string{"login", "sign in", "download", "official", "website", "app"}
)

// Analyzer derives enrichment results from SERP data. It implements the
// competitor, length, intent, keyword, and example provider contracts.
type Analyzer struct {
	provider   Provider
	client     *http.Client
	maxResults int
}

// NewAnalyzer creates an analyzer over the given search provider.
func NewAnalyzer(provider Provider, maxResults int) *Analyzer {
	if maxResults <= 0 {
		maxResults = 10
	}
	return &Analyzer{
		provider:   provider,
		client:     &http.Client{Timeout: 20 * time.Second},
		maxResults: maxResults,
	}
}

// AnalyzeSERP summarizes the top results for one keyword.
func (a *Analyzer) AnalyzeSERP(ctx context.Context, keyword string) (*enrich.CompetitorAnalysis, error) {
	results, err := a.search(ctx, keyword)
	if err != nil {
		return nil, err
	}

	analysis := &enrich.CompetitorAnalysis{
		Keyword:      keyword,
		SERPFeatures: map[string]bool{},
	}
	seen := make(map[string]bool)
	for _, r := range results {
		if r.Domain == "" || seen[r.Domain] {
			continue
		}
		seen[r.Domain] = true
		analysis.TopDomains = append(analysis.TopDomains, r.Domain)
		if strings.HasSuffix(r.Domain, "wikipedia.org") {
			analysis.SERPFeatures["knowledge_panel"] = true
		}
		if strings.Contains(strings.ToLower(r.Title), "?") {
			analysis.SERPFeatures["people_also_ask"] = true
		}
	}
	return analysis, nil
}

// RecommendLength fetches the top-ranked pages and recommends a word count
// slightly above their average.
func (a *Analyzer) RecommendLength(ctx context.Context, keyword string) (*enrich.LengthRecommendation, error) {
	results, err := a.search(ctx, keyword)
	if err != nil {
		return nil, err
	}

	var counts []int
	for _, r := range results {
		if len(counts) >= 3 {
			break
		}
		words, err := a.pageWordCount(ctx, r.URL)
		if err != nil {
			logger.Debug("Skipping competitor page", "url", r.URL, "error", err.Error())
			continue
		}
		if words > 100 {
			counts = append(counts, words)
		}
	}
	if len(counts) == 0 {
		return nil, enrich.Transient(a.provider.Name(), fmt.Errorf("no competitor pages readable for %q", keyword))
	}

	sum := 0
	for _, c := range counts {
		sum += c
	}
	avg := sum / len(counts)
	return &enrich.LengthRecommendation{
		// 10% above the competition average, rounded to the nearest 50.
		RecommendedWords: (avg + avg/10 + 25) / 50 * 50,
		DepthScore:       clamp01(float64(avg) / 3000),
	}, nil
}

// ClassifyIntent labels the dominant search intent from keyword phrasing.
func (a *Analyzer) ClassifyIntent(_ context.Context, keywords []string) (*enrich.IntentResult, error) {
	counts := map[string]int{"informational": 0, "commercial": 0, "transactional": 0, "navigational": 0}
	for _, kw := range keywords {
		lower := strings.ToLower(kw)
		switch {
		case containsAnySignal(lower, transactionalSignals):
			counts["transactional"]++
		case containsAnySignal(lower, commercialSignals):
			counts["commercial"]++
		case containsAnySignal(lower, navigationalSignals):
			counts["navigational"]++
		default:
			counts["informational"]++
		}
	}

	total := len(keywords)
	if total == 0 {
		total = 1
	}
	primary := "informational"
	best := -1
	probabilities := make(map[string]float64, len(counts))
	for _, label := range []string{"informational", "commercial", "transactional", "navigational"} {
		probabilities[label] = float64(counts[label]) / float64(total)
		if counts[label] > best {
			primary, best = label, counts[label]
		}
	}
	return &enrich.IntentResult{Primary: primary, Probabilities: probabilities}, nil
}

// AnalyzeKeywords estimates difficulty from the share of authority domains
// holding the SERP. Volume and CPC need a paid data source and stay zero.
func (a *Analyzer) AnalyzeKeywords(ctx context.Context, keywords []string, _, _ string) ([]enrich.KeywordOverview, error) {
	overviews := make([]enrich.KeywordOverview, 0, len(keywords))
	for _, kw := range keywords {
		results, err := a.search(ctx, kw)
		if err != nil {
			return nil, err
		}
		authority := 0
		for _, r := range results {
			if isAuthorityDomain(r.Domain) {
				authority++
			}
		}
		difficulty := 20.0
		if len(results) > 0 {
			difficulty = 20 + 80*float64(authority)/float64(len(results))
		}
		overviews = append(overviews, enrich.KeywordOverview{Keyword: kw, Difficulty: difficulty})
	}
	return overviews, nil
}

// ExtractExamples returns the top results as ranked few-shot summaries.
func (a *Analyzer) ExtractExamples(ctx context.Context, keyword string) ([]enrich.Example, error) {
	results, err := a.search(ctx, keyword)
	if err != nil {
		return nil, err
	}
	examples := make([]enrich.Example, 0, len(results))
	for _, r := range results {
		if r.Snippet == "" {
			continue
		}
		examples = append(examples, enrich.Example{Title: r.Title, Summary: r.Snippet, Rank: r.Rank})
		if len(examples) >= 5 {
			break
		}
	}
	return examples, nil
}

func (a *Analyzer) search(ctx context.Context, query string) ([]Result, error) {
	results, err := a.provider.Search(ctx, query, a.maxResults)
	if err != nil {
		if enrich.KindOf(err) != enrich.KindNotConfigured && !isEnrichError(err) {
			return nil, enrich.Transient(a.provider.Name(), err)
		}
		return nil, err
	}
	if len(results) == 0 {
		return nil, enrich.Transient(a.provider.Name(), fmt.Errorf("no results for %q", query))
	}
	return results, nil
}

// pageWordCount fetches one page and counts words in its paragraph text.
func (a *Analyzer) pageWordCount(ctx context.Context, pageURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "longform/1.0 (content research)")

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return 0, err
	}
	doc.Find("script, style, nav, footer, aside").Remove()
	var text strings.Builder
	doc.Find("p, li, h1, h2, h3").Each(func(_ int, sel *goquery.Selection) {
		text.WriteString(sel.Text())
		text.WriteString(" ")
	})
	return core.WordCount(text.String()), nil
}

func isAuthorityDomain(domain string) bool {
	if authorityDomains[domain] {
		return true
	}
	for suffix := range authorityDomains {
		if strings.HasSuffix(domain, "."+suffix) {
			return true
		}
	}
	return strings.HasSuffix(domain, ".gov") || strings.HasSuffix(domain, ".edu")
}

func containsAnySignal(phrase string, signals []string) bool {
	for _, s := range signals {
		if strings.Contains(phrase, s) {
			return true
		}
	}
	return false
}

func isEnrichError(err error) bool {
	var e *enrich.Error
	return errors.As(err, &e)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
