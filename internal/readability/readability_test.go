package readability

import (
	"strings"
	"testing"
)

func TestAnalyzeSimpleProse(t *testing.T) {
	a := Analyze("The cat sat on the mat. The dog ran to the park. We like short words.")
	if a.Score < 80 {
		t.Errorf("Score = %.1f, want high score for simple prose", a.Score)
	}
	if a.SentenceCount != 3 {
		t.Errorf("SentenceCount = %d, want 3", a.SentenceCount)
	}
	if len(a.Issues) != 0 {
		t.Errorf("Issues = %v, want none", a.Issues)
	}
}

func TestAnalyzeDenseProse(t *testing.T) {
	dense := strings.Repeat("Organizational multidisciplinary considerations necessitate comprehensive institutional recalibration throughout contemporary collaborative infrastructures everywhere. ", 5)
	a := Analyze(dense)
	if a.Score > 30 {
		t.Errorf("Score = %.1f, want low score for dense prose", a.Score)
	}
	foundComplex := false
	for _, issue := range a.Issues {
		if strings.Contains(issue, "complex words") {
			foundComplex = true
		}
	}
	if !foundComplex {
		t.Errorf("Issues = %v, missing complex-word issue", a.Issues)
	}
}

func TestAnalyzeLongSentenceIssue(t *testing.T) {
	long := "This single sentence keeps going with word after word after word piled up well past the threshold that marks a sentence as too long for comfortable reading by most people."
	a := Analyze(long)
	found := false
	for _, issue := range a.Issues {
		if strings.Contains(issue, "sentence exceeds 25 words") {
			found = true
		}
	}
	if !found {
		t.Errorf("Issues = %v, missing long-sentence issue", a.Issues)
	}
}

func TestAnalyzeIgnoresMarkup(t *testing.T) {
	withMarkup := "# A Heading Full Of Extraordinarily Complicated Multisyllabic Terminology\n\n```\nincomprehensible_identifier := complicatedFunctionInvocation()\n```\n\nThe cat sat. The dog ran."
	a := Analyze(withMarkup)
	plain := Analyze("A Heading Full Of Extraordinarily Complicated Multisyllabic Terminology\n\nThe cat sat. The dog ran.")
	if a.Score != plain.Score {
		t.Errorf("markup affected the score: %.1f vs %.1f", a.Score, plain.Score)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	a := Analyze("")
	if a.Score != 100 {
		t.Errorf("Score = %.1f, want 100 for empty input", a.Score)
	}
}

func TestOptimizeSplitsLongSentence(t *testing.T) {
	long := "The team spent months refining the deployment process across every region and environment they supported, and the result was a pipeline that nobody on the original project would recognize today."
	out := Optimize(long)
	if strings.Contains(out, ", and the result") {
		t.Errorf("sentence not split at coordinating marker:\n%s", out)
	}
	if !strings.Contains(out, "supported.") {
		t.Errorf("head sentence not terminated:\n%s", out)
	}
	if !strings.Contains(out, "The result was") {
		t.Errorf("tail not capitalized:\n%s", out)
	}
}

func TestBreakSentenceMultibyteTail(t *testing.T) {
	parts := breakSentence("We compared the approaches carefully, and études like this confirmed the result.")
	if len(parts) != 2 {
		t.Fatalf("sentence not split: %v", parts)
	}
	if parts[1] != "Études like this confirmed the result." {
		t.Errorf("tail = %q, want the leading rune capitalized intact", parts[1])
	}
}

func TestOptimizeSplitsLongParagraph(t *testing.T) {
	paragraph := strings.Repeat("Each of these sentences adds a handful of words to the paragraph total. ", 20)
	out := Optimize(paragraph)
	if !strings.Contains(out, "\n\n") {
		t.Error("long paragraph not split")
	}
}

func TestOptimizeLeavesMarkupAlone(t *testing.T) {
	doc := "# Heading stays\n\n```\ncode block stays exactly as written no matter how long this line gets because code must never be reflowed by a prose optimizer\n```\n\n- list item stays"
	if got := Optimize(doc); got != doc {
		t.Errorf("markup modified:\n%s", got)
	}
}

func TestCountSyllables(t *testing.T) {
	tests := []struct {
		word string
		want int
	}{
		{"cat", 1},
		{"table", 1}, // the vowel-group approximation drops the silent e
		{"plenty", 2},
		{"banana", 3},
		{"organizational", 6},
		{"rhythm", 1},
	}
	for _, tt := range tests {
		if got := countSyllables(tt.word); got != tt.want {
			t.Errorf("countSyllables(%q) = %d, want %d", tt.word, got, tt.want)
		}
	}
}
