// Package serp provides search-engine-results-page backed enrichment
// providers: competitor analysis, length recommendation, intent
// classification, keyword metrics, and few-shot example extraction.
package serp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"longform/internal/enrich"
	"longform/internal/logger"
)

// Provider is the minimal search contract the analyzer consumes.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
	Name() string
}

// Result is one organic search result.
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Domain  string `json:"domain"`
	Rank    int    `json:"rank"`
}

// DuckDuckGoProvider scrapes the HTML endpoint. No API key required, so it
// is the default provider when nothing else is configured. One instance may
// back several analyzer roles, so request pacing is synchronized.
type DuckDuckGoProvider struct {
	client    *http.Client
	userAgent string
	rateLimit time.Duration

	mu       sync.Mutex
	lastCall time.Time
}

// NewDuckDuckGoProvider creates the provider with respectful rate limiting.
func NewDuckDuckGoProvider() *DuckDuckGoProvider {
	return &DuckDuckGoProvider{
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		rateLimit: 2 * time.Second,
	}
}

// Name returns the provider identifier.
func (d *DuckDuckGoProvider) Name() string { return "duckduckgo" }

// throttle holds callers so consecutive requests stay at least rateLimit
// apart, even when several analyzer roles search concurrently.
func (d *DuckDuckGoProvider) throttle() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if elapsed := time.Since(d.lastCall); elapsed < d.rateLimit {
		time.Sleep(d.rateLimit - elapsed)
	}
	d.lastCall = time.Now()
}

// Search queries the HTML endpoint and parses the organic results.
func (d *DuckDuckGoProvider) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	d.throttle()

	params := url.Values{}
	params.Set("q", query)
	params.Set("kl", "us-en")
	searchURL := "https://html.duckduckgo.com/html/?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, enrich.Permanent(d.Name(), fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, enrich.Transient(d.Name(), fmt.Errorf("search request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, enrich.Transient(d.Name(), fmt.Errorf("search returned status %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, enrich.Permanent(d.Name(), fmt.Errorf("parsing results page: %w", err))
	}
	if doc.Find("form#captcha, .anomaly-modal").Length() > 0 {
		return nil, enrich.Transient(d.Name(), fmt.Errorf("search blocked by CAPTCHA"))
	}

	results := parseOrganicResults(doc, maxResults)
	logger.Debug("SERP search completed", "provider", d.Name(), "query", query, "results", len(results))
	return results, nil
}

func parseOrganicResults(doc *goquery.Document, maxResults int) []Result {
	var results []Result
	doc.Find("div.result").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if maxResults > 0 && len(results) >= maxResults {
			return false
		}
		link := sel.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		finalURL := extractFinalURL(href)
		if finalURL == "" {
			return true
		}
		results = append(results, Result{
			URL:     finalURL,
			Title:   strings.TrimSpace(link.Text()),
			Snippet: strings.TrimSpace(sel.Find("a.result__snippet").First().Text()),
			Domain:  extractDomain(finalURL),
			Rank:    len(results) + 1,
		})
		return true
	})
	return results
}

// extractFinalURL unwraps DuckDuckGo's /l/?uddg= redirect URLs.
func extractFinalURL(redirectURL string) string {
	if strings.HasPrefix(redirectURL, "/l/?") || strings.HasPrefix(redirectURL, "//duckduckgo.com/l/?") {
		parsed, err := url.Parse(redirectURL)
		if err != nil {
			return ""
		}
		if uddg := parsed.Query().Get("uddg"); uddg != "" {
			if decoded, err := url.QueryUnescape(uddg); err == nil {
				return decoded
			}
		}
		return ""
	}
	if strings.HasPrefix(redirectURL, "http") {
		return redirectURL
	}
	return ""
}

func extractDomain(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}
