// Package sources discovers citation sources for a topic by fetching
// candidate reference pages and extracting their metadata.
package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"longform/internal/core"
	"longform/internal/enrich"
	"longform/internal/logger"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
)

const providerName = "source_finder"

// seedAuthority maps well-known reference hosts to a domain-authority score.
var seedAuthority = map[string]float64{
	"en.wikipedia.org":      93,
	"www.britannica.com":    88,
	"scholar.google.com":    90,
	"www.sciencedirect.com": 87,
}

// Finder implements enrich.SourceFinder over plain HTTP fetches.
type Finder struct {
	client     *http.Client
	userAgent  string
	maxSources int
	seedURLs   []string // Additional caller-supplied candidate pages
}

// NewFinder creates a source finder. seedURLs may be empty; candidates are
// then synthesized from well-known reference sites per keyword.
func NewFinder(timeout time.Duration, userAgent string, maxSources int, seedURLs []string) *Finder {
	if maxSources <= 0 {
		maxSources = 5
	}
	return &Finder{
		client:     &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		maxSources: maxSources,
		seedURLs:   seedURLs,
	}
}

// FindSources fetches candidate pages and returns ranked citations.
// Individual fetch failures degrade the result set, they never fail the call;
// only a fully empty candidate set is an error.
func (f *Finder) FindSources(ctx context.Context, topic string, keywords []string) ([]core.Citation, error) {
	candidates := f.candidateURLs(topic, keywords)
	if len(candidates) == 0 {
		return nil, enrich.Permanent(providerName, fmt.Errorf("no candidate sources for topic %q", topic))
	}

	var citations []core.Citation
	for _, candidate := range candidates {
		if len(citations) >= f.maxSources {
			break
		}
		citation, err := f.fetchCitation(ctx, candidate)
		if err != nil {
			logger.Debug("Source candidate fetch failed", "url", candidate, "error", err.Error())
			continue
		}
		citations = append(citations, *citation)
	}

	if len(citations) == 0 {
		return nil, enrich.Transient(providerName, fmt.Errorf("all %d candidate fetches failed", len(candidates)))
	}

	rankCitations(citations, topic, keywords)
	return citations, nil
}

// candidateURLs builds the ordered list of pages worth fetching.
func (f *Finder) candidateURLs(topic string, keywords []string) []string {
	seen := make(map[string]bool)
	var candidates []string

	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			candidates = append(candidates, u)
		}
	}

	for _, u := range f.seedURLs {
		add(u)
	}

	terms := append([]string{topic}, keywords...)
	for _, term := range terms {
		slug := wikiSlug(term)
		if slug == "" {
			continue
		}
		add("https://en.wikipedia.org/wiki/" + slug)
	}

	return candidates
}

// fetchCitation retrieves one page and extracts title and description.
func (f *Finder) fetchCitation(ctx context.Context, pageURL string) (*core.Citation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", pageURL, err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if title == "" {
		return nil, fmt.Errorf("no title found at %s", pageURL)
	}

	snippet, _ := doc.Find(`meta[name="description"]`).Attr("content")
	if snippet == "" {
		snippet = strings.TrimSpace(doc.Find("p").First().Text())
	}
	if len(snippet) > 300 {
		snippet = snippet[:300]
	}

	return &core.Citation{
		ID:              uuid.NewString(),
		URL:             pageURL,
		Title:           title,
		Publisher:       ExtractPublisher(pageURL),
		Snippet:         snippet,
		DomainAuthority: authorityFor(pageURL),
	}, nil
}

// rankCitations orders citations by keyword overlap, then authority.
func rankCitations(citations []core.Citation, topic string, keywords []string) {
	terms := append([]string{topic}, keywords...)
	score := func(c core.Citation) float64 {
		text := strings.ToLower(c.Title + " " + c.Snippet)
		s := 0.0
		for _, term := range terms {
			if term != "" && strings.Contains(text, strings.ToLower(term)) {
				s += 1.0
			}
		}
		return s*100 + c.DomainAuthority
	}
	sort.SliceStable(citations, func(i, j int) bool {
		return score(citations[i]) > score(citations[j])
	})
}

// authorityFor returns the seed authority score for a URL's host, 0 if unknown.
func authorityFor(rawURL string) float64 {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}
	return seedAuthority[parsed.Hostname()]
}

// ExtractPublisher extracts the publisher/domain name from a URL.
func ExtractPublisher(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	host := parsedURL.Hostname()
	host = strings.TrimPrefix(host, "www.")

	// Base domain only (e.g. "example.com" from "blog.example.com")
	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		return strings.Join(parts[len(parts)-2:], ".")
	}

	return host
}

// FormatCitation renders a citation in a simple reference style.
func FormatCitation(c core.Citation) string {
	parts := []string{}
	if c.Title != "" {
		parts = append(parts, fmt.Sprintf("%q", c.Title))
	}
	if c.Publisher != "" {
		parts = append(parts, c.Publisher)
	}
	parts = append(parts, c.URL)
	return strings.Join(parts, ". ")
}

// wikiSlug converts a term into a Wikipedia-style path segment.
func wikiSlug(term string) string {
	term = strings.TrimSpace(term)
	if term == "" {
		return ""
	}
	words := strings.Fields(term)
	if len(words) > 0 {
		r, size := utf8.DecodeRuneInString(words[0])
		words[0] = strings.ToUpper(string(r)) + words[0][size:]
	}
	return url.PathEscape(strings.Join(words, "_"))
}
