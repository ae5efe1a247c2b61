package quality

import (
	"strings"
	"testing"

	"longform/internal/core"
)

const goodDoc = `# A Clear Guide to Widgets

Widgets are simple tools. They save time. In our testing, 9 out of 10 teams kept using them after 30 days.

## Why Widgets Help

Widgets cut setup time by 40%. For example, one team shipped 3 days early.

- fast setup
- low cost

## Choosing a Widget

Ask one question first: what problem does it solve? Such as narrowing by price or size.

## Getting Started

Pick one widget. Try it for a week. What did you learn?`

func goodInput() Input {
	return Input{
		Document:        goodDoc,
		Title:           "A Clear Guide to Widgets",
		MetaDescription: "Learn how widgets save setup time, how to choose one, and how to get started in a week, with numbers from real team testing.",
		Keywords:        []string{"widgets"},
		Citations:       []core.Citation{{URL: "https://example.edu/study", Title: "Widget Study", DomainAuthority: 80}},
		TargetWords:     80,
	}
}

func TestScoreWeightsSumToOne(t *testing.T) {
	sum := 0.0
	for _, w := range dimensionWeights {
		sum += w
	}
	if diff := sum - 1.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("dimension weights sum to %f, want 1.0", sum)
	}
}

func TestScoreAllDimensionsPresent(t *testing.T) {
	report := NewScorer(70).Score(goodInput())
	if len(report.Scores) != 8 {
		t.Fatalf("got %d dimension scores, want 8", len(report.Scores))
	}
	seen := map[core.QualityDimension]bool{}
	for _, sc := range report.Scores {
		seen[sc.Dimension] = true
		if sc.Score < 0 || sc.Score > 100 {
			t.Errorf("%s score %f out of range", sc.Dimension, sc.Score)
		}
		if sc.Weight <= 0 {
			t.Errorf("%s has no weight", sc.Dimension)
		}
	}
	if len(seen) != 8 {
		t.Errorf("duplicate dimensions in report: %v", seen)
	}
}

func TestScoreGoodContentPasses(t *testing.T) {
	report := NewScorer(70).Score(goodInput())
	if !report.PassedThreshold {
		t.Errorf("good content failed: overall %.1f, issues %v", report.OverallScore, report.TopIssues)
	}
}

func TestScorePoorContentFails(t *testing.T) {
	in := Input{
		Document:    strings.Repeat("In today's world it goes without saying that organizational multidisciplinary considerations necessitate comprehensive recalibration. ", 20),
		TargetWords: 5000,
	}
	report := NewScorer(70).Score(in)
	if report.PassedThreshold {
		t.Errorf("poor content passed: overall %.1f", report.OverallScore)
	}
	if len(report.TopIssues) == 0 {
		t.Error("no issues reported for poor content")
	}
	if len(report.TopIssues) > 10 {
		t.Errorf("TopIssues = %d entries, want at most 10", len(report.TopIssues))
	}
}

func TestScoreTopIssuesWorstFirst(t *testing.T) {
	// Missing title and description hurt SEO; structure is fine.
	in := goodInput()
	in.Title = ""
	in.MetaDescription = ""
	in.Citations = nil

	report := NewScorer(70).Score(in)

	var worst core.QualityScore
	worst.Score = 101
	for _, sc := range report.Scores {
		if sc.Score < worst.Score {
			worst = sc
		}
	}
	if len(worst.Issues) > 0 && len(report.TopIssues) > 0 && report.TopIssues[0] != worst.Issues[0] {
		t.Errorf("TopIssues[0] = %q, want the worst dimension's first issue %q", report.TopIssues[0], worst.Issues[0])
	}
}

func TestScoreSEOMissingKeyword(t *testing.T) {
	in := goodInput()
	in.Keywords = []string{"widgets", "completely absent phrase"}
	report := NewScorer(70).Score(in)

	for _, sc := range report.Scores {
		if sc.Dimension != core.DimensionSEO {
			continue
		}
		found := false
		for _, issue := range sc.Issues {
			if strings.Contains(issue, "1 target keywords absent") {
				found = true
			}
		}
		if !found {
			t.Errorf("SEO issues = %v, missing keyword-absence issue", sc.Issues)
		}
	}
}

func TestScoreStructureIssues(t *testing.T) {
	in := Input{Document: "No headings here. Just prose."}
	report := NewScorer(0).Score(in)

	for _, sc := range report.Scores {
		if sc.Dimension != core.DimensionStructure {
			continue
		}
		if sc.Score == 100 {
			t.Error("structure score not penalized for missing headings")
		}
		joined := strings.Join(sc.Issues, "; ")
		if !strings.Contains(joined, "No top-level heading") {
			t.Errorf("structure issues = %v", sc.Issues)
		}
	}
}

func TestScoreAccessibilityAltText(t *testing.T) {
	in := goodInput()
	in.Document += "\n\n![](/images/widget.png)\n"
	report := NewScorer(0).Score(in)

	for _, sc := range report.Scores {
		if sc.Dimension != core.DimensionAccessibility {
			continue
		}
		if sc.Score != 85 {
			t.Errorf("accessibility score = %.1f, want 85 after alt-text penalty", sc.Score)
		}
	}
}
