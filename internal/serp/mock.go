package serp

import (
	"context"
	"fmt"
)

// MockProvider returns canned results for tests and offline development.
type MockProvider struct {
	name    string
	results []Result
	err     error
}

// NewMockProvider creates a mock with three generic results.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		name: "mock",
		results: []Result{
			{URL: "https://example.com/article1", Title: "Example Article 1", Snippet: "A complete guide covering the basics step by step.", Domain: "example.com", Rank: 1},
			{URL: "https://test.org/article2", Title: "Test Article 2", Snippet: "An in-depth comparison of the best available options.", Domain: "test.org", Rank: 2},
			{URL: "https://demo.net/article3", Title: "Demo Article 3", Snippet: "Practical tips and common mistakes to avoid.", Domain: "demo.net", Rank: 3},
		},
	}
}

// Name returns the provider identifier.
func (m *MockProvider) Name() string { return m.name }

// Search returns the configured results, annotated with the query.
func (m *MockProvider) Search(_ context.Context, query string, maxResults int) ([]Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	n := len(m.results)
	if maxResults > 0 && maxResults < n {
		n = maxResults
	}
	out := make([]Result, n)
	for i := 0; i < n; i++ {
		out[i] = m.results[i]
		out[i].Title = fmt.Sprintf("%s (for query: %s)", out[i].Title, query)
	}
	return out, nil
}

// SetResults customizes the canned results.
func (m *MockProvider) SetResults(results []Result) { m.results = results }

// SetError makes every Search call fail.
func (m *MockProvider) SetError(err error) { m.err = err }
