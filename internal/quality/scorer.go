// Package quality evaluates generated documents across weighted dimensions
// and produces an aggregate report with deduplicated issues.
package quality

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"longform/internal/core"
	"longform/internal/readability"
)

// dimensionWeights are fixed constants of the scorer and sum to 1.0.
var dimensionWeights = map[core.QualityDimension]float64{
	core.DimensionReadability:   0.15,
	core.DimensionSEO:           0.15,
	core.DimensionStructure:     0.15,
	core.DimensionFactual:       0.10,
	core.DimensionUniqueness:    0.10,
	core.DimensionEngagement:    0.15,
	core.DimensionTrust:         0.10,
	core.DimensionAccessibility: 0.10,
}

// Input bundles everything the scorer inspects.
type Input struct {
	Document        string
	Title           string
	MetaDescription string
	Keywords        []string
	Citations       []core.Citation
	TargetWords     int
}

// Scorer computes weighted multi-dimension quality reports.
type Scorer struct {
	passThreshold float64
}

// NewScorer creates a scorer with the given pass threshold (0-100).
func NewScorer(passThreshold float64) *Scorer {
	return &Scorer{passThreshold: passThreshold}
}

// Score evaluates all dimensions and aggregates the weighted report.
func (s *Scorer) Score(in Input) *core.QualityReport {
	scores := []core.QualityScore{
		s.scoreReadability(in),
		s.scoreSEO(in),
		s.scoreStructure(in),
		s.scoreFactual(in),
		s.scoreUniqueness(in),
		s.scoreEngagement(in),
		s.scoreTrust(in),
		s.scoreAccessibility(in),
	}

	overall := 0.0
	for _, sc := range scores {
		overall += sc.Score * sc.Weight
	}

	report := &core.QualityReport{
		OverallScore:    overall,
		PassedThreshold: overall >= s.passThreshold,
		Scores:          scores,
	}

	// Worst dimensions contribute issues first.
	ordered := make([]core.QualityScore, len(scores))
	copy(ordered, scores)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Score < ordered[j].Score })

	seenIssue := make(map[string]bool)
	seenRec := make(map[string]bool)
	for _, sc := range ordered {
		for _, issue := range sc.Issues {
			if !seenIssue[issue] {
				seenIssue[issue] = true
				report.TopIssues = append(report.TopIssues, issue)
			}
		}
		for _, rec := range sc.Recommendations {
			if !seenRec[rec] {
				seenRec[rec] = true
				report.Recommendations = append(report.Recommendations, rec)
			}
		}
	}
	if len(report.TopIssues) > 10 {
		report.TopIssues = report.TopIssues[:10]
	}

	return report
}

func newScore(dim core.QualityDimension, score float64) core.QualityScore {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return core.QualityScore{
		Dimension: dim,
		Score:     score,
		Weight:    dimensionWeights[dim],
	}
}

func (s *Scorer) scoreReadability(in Input) core.QualityScore {
	assessment := readability.Analyze(in.Document)
	sc := newScore(core.DimensionReadability, assessment.Score)
	sc.Issues = append(sc.Issues, assessment.Issues...)
	if assessment.Score < 60 {
		sc.Recommendations = append(sc.Recommendations, "Shorten sentences and prefer common words")
	}
	sc.Metadata = map[string]any{"avg_sentence_length": assessment.AvgSentenceLen}
	return sc
}

func (s *Scorer) scoreSEO(in Input) core.QualityScore {
	score := 100.0
	sc := newScore(core.DimensionSEO, score)
	lower := strings.ToLower(in.Document)

	if in.Title == "" {
		score -= 30
		sc.Issues = append(sc.Issues, "Missing SEO title")
	} else if len(in.Title) > 60 {
		score -= 10
		sc.Issues = append(sc.Issues, fmt.Sprintf("Title is %d characters (60 max recommended)", len(in.Title)))
	}

	if in.MetaDescription == "" {
		score -= 20
		sc.Issues = append(sc.Issues, "Missing meta description")
		sc.Recommendations = append(sc.Recommendations, "Add a 120-160 character meta description")
	} else if len(in.MetaDescription) > 160 {
		score -= 10
		sc.Issues = append(sc.Issues, "Meta description exceeds 160 characters")
	}

	missing := 0
	for _, kw := range in.Keywords {
		if kw != "" && !strings.Contains(lower, strings.ToLower(kw)) {
			missing++
		}
	}
	if missing > 0 {
		score -= float64(missing) * 10
		sc.Issues = append(sc.Issues, fmt.Sprintf("%d target keywords absent from the document", missing))
		sc.Recommendations = append(sc.Recommendations, "Work missing keywords into headings or early paragraphs")
	}

	sc.Score = clamp(score)
	return sc
}

func (s *Scorer) scoreStructure(in Input) core.QualityScore {
	score := 100.0
	sc := newScore(core.DimensionStructure, score)

	h1, h2, h3 := countHeadings(in.Document)
	if h1 == 0 {
		score -= 25
		sc.Issues = append(sc.Issues, "No top-level heading")
	}
	if h2 < 3 {
		score -= 20
		sc.Issues = append(sc.Issues, fmt.Sprintf("Only %d section headings (3+ recommended)", h2))
		sc.Recommendations = append(sc.Recommendations, "Break the document into more sections")
	}
	if h3 > 0 && h2 == 0 {
		score -= 10
		sc.Issues = append(sc.Issues, "Subsections exist without any parent sections")
	}

	if in.TargetWords > 0 {
		actual := core.WordCount(in.Document)
		ratio := float64(actual) / float64(in.TargetWords)
		if ratio < 0.7 {
			score -= 20
			sc.Issues = append(sc.Issues, fmt.Sprintf("Document is %d words against a %d-word target", actual, in.TargetWords))
		}
	}

	sc.Score = clamp(score)
	return sc
}

var numberPattern = regexp.MustCompile(`\b\d[\d,.]*%?`)

func (s *Scorer) scoreFactual(in Input) core.QualityScore {
	score := 50.0
	sc := newScore(core.DimensionFactual, score)

	numbers := len(numberPattern.FindAllString(in.Document, -1))
	score += float64(min(numbers, 10)) * 3

	if len(in.Citations) > 0 {
		score += 20
	} else {
		sc.Issues = append(sc.Issues, "No supporting citations")
		sc.Recommendations = append(sc.Recommendations, "Cite authoritative sources for factual claims")
	}

	sc.Score = clamp(score)
	sc.Metadata = map[string]any{"number_count": numbers, "citation_count": len(in.Citations)}
	return sc
}

var vaguePhrases = []string{
	"in today's world", "in this day and age", "at the end of the day",
	"it goes without saying", "needless to say", "as we all know",
	"in conclusion, it is clear",
}

func (s *Scorer) scoreUniqueness(in Input) core.QualityScore {
	score := 100.0
	sc := newScore(core.DimensionUniqueness, score)
	lower := strings.ToLower(in.Document)

	found := 0
	for _, phrase := range vaguePhrases {
		found += strings.Count(lower, phrase)
	}
	if found > 0 {
		score -= float64(found) * 10
		sc.Issues = append(sc.Issues, fmt.Sprintf("%d boilerplate phrases found", found))
		sc.Recommendations = append(sc.Recommendations, "Replace generic phrasing with specific claims")
	}

	sc.Score = clamp(score)
	return sc
}

func (s *Scorer) scoreEngagement(in Input) core.QualityScore {
	score := 40.0
	sc := newScore(core.DimensionEngagement, score)

	questions := strings.Count(in.Document, "?")
	examples := countMarkers(in.Document, []string{"for example", "such as", "for instance"})
	lists := strings.Count("\n"+in.Document, "\n- ") + strings.Count("\n"+in.Document, "\n* ")

	score += float64(min(questions, 5)) * 6
	score += float64(min(examples, 5)) * 4
	score += float64(min(lists, 5)) * 2

	if questions == 0 {
		sc.Issues = append(sc.Issues, "No rhetorical questions to engage the reader")
	}
	if examples == 0 {
		sc.Issues = append(sc.Issues, "No concrete examples")
		sc.Recommendations = append(sc.Recommendations, "Illustrate key points with examples")
	}

	sc.Score = clamp(score)
	return sc
}

func (s *Scorer) scoreTrust(in Input) core.QualityScore {
	score := 50.0
	sc := newScore(core.DimensionTrust, score)

	authoritative := 0
	for _, c := range in.Citations {
		if c.DomainAuthority >= 70 {
			authoritative++
		}
	}
	score += float64(min(len(in.Citations), 5)) * 6
	score += float64(min(authoritative, 3)) * 5

	experience := countMarkers(in.Document, []string{"in my experience", "we tested", "i found", "in our testing", "we observed"})
	if experience > 0 {
		score += 10
	} else {
		sc.Recommendations = append(sc.Recommendations, "Add first-hand experience signals")
	}

	sc.Score = clamp(score)
	return sc
}

func (s *Scorer) scoreAccessibility(in Input) core.QualityScore {
	score := 100.0
	sc := newScore(core.DimensionAccessibility, score)

	for _, line := range strings.Split(in.Document, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "![](") || strings.HasPrefix(trimmed, "![ ]") {
			score -= 15
			sc.Issues = append(sc.Issues, "Image without alt text")
			sc.Recommendations = append(sc.Recommendations, "Describe every image in its alt text")
			break
		}
	}

	// Walls of text are an accessibility problem too.
	for _, p := range strings.Split(in.Document, "\n\n") {
		if len(strings.Fields(p)) > 200 {
			score -= 10
			sc.Issues = append(sc.Issues, "Very long unbroken paragraph")
			break
		}
	}

	sc.Score = clamp(score)
	return sc
}

func countHeadings(doc string) (h1, h2, h3 int) {
	for _, line := range strings.Split(doc, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "### "):
			h3++
		case strings.HasPrefix(trimmed, "## "):
			h2++
		case strings.HasPrefix(trimmed, "# "):
			h1++
		}
	}
	return
}

func countMarkers(doc string, markers []string) int {
	lower := strings.ToLower(doc)
	count := 0
	for _, m := range markers {
		count += strings.Count(lower, m)
	}
	return count
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
