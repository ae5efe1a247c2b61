// Package readability computes a deterministic textual complexity score
// and provides the sentence/paragraph splitting optimizer used by the
// post-processing pass when a rewrite is needed without another model call.
package readability

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Thresholds used when enumerating issues.
const (
	longSentenceWords  = 25
	longParagraphWords = 120
	bigWordSyllables   = 4
)

// Assessment is the result of analyzing a document.
type Assessment struct {
	Score          float64  // 0-100, higher is easier to read
	SentenceCount  int
	WordCount      int
	AvgSentenceLen float64
	Issues         []string
}

// Analyze scores text on a 0-100 ease scale (Flesch-style) and lists issues.
// Markdown heading markers, code fences, and link syntax are ignored so the
// score reflects prose, not markup.
func Analyze(text string) Assessment {
	prose := stripMarkup(text)
	sentences := splitSentences(prose)
	words := 0
	syllables := 0
	bigWords := 0

	for _, s := range sentences {
		for _, w := range strings.Fields(s) {
			w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
			if w == "" {
				continue
			}
			words++
			sy := countSyllables(w)
			syllables += sy
			if sy >= bigWordSyllables {
				bigWords++
			}
		}
	}

	a := Assessment{
		SentenceCount: len(sentences),
		WordCount:     words,
	}
	if len(sentences) == 0 || words == 0 {
		a.Score = 100
		return a
	}

	a.AvgSentenceLen = float64(words) / float64(len(sentences))
	wordsPerSentence := a.AvgSentenceLen
	syllablesPerWord := float64(syllables) / float64(words)

	// Flesch reading ease, clamped to 0-100.
	score := 206.835 - 1.015*wordsPerSentence - 84.6*syllablesPerWord
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	a.Score = score

	longSentences := 0
	for _, s := range sentences {
		if len(strings.Fields(s)) > longSentenceWords {
			longSentences++
		}
	}
	if longSentences > 0 {
		a.Issues = append(a.Issues, pluralIssue(longSentences, "sentence exceeds", "sentences exceed", longSentenceWords, "words"))
	}

	longParagraphs := 0
	for _, p := range strings.Split(prose, "\n\n") {
		if len(strings.Fields(p)) > longParagraphWords {
			longParagraphs++
		}
	}
	if longParagraphs > 0 {
		a.Issues = append(a.Issues, pluralIssue(longParagraphs, "paragraph exceeds", "paragraphs exceed", longParagraphWords, "words"))
	}

	if words > 0 && float64(bigWords)/float64(words) > 0.15 {
		a.Issues = append(a.Issues, "heavy use of complex words (4+ syllables)")
	}

	passive := countPassiveMarkers(prose)
	if len(sentences) > 0 && float64(passive)/float64(len(sentences)) > 0.3 {
		a.Issues = append(a.Issues, "frequent passive voice constructions")
	}

	return a
}

// Optimize deterministically splits long sentences and paragraphs.
// It is the fallback applied when an AI simplification pass changed nothing.
func Optimize(text string) string {
	paragraphs := strings.Split(text, "\n\n")
	for i, p := range paragraphs {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" || isMarkupBlock(trimmed) {
			continue
		}
		paragraphs[i] = splitLongParagraph(splitLongSentences(p))
	}
	return strings.Join(paragraphs, "\n\n")
}

// splitLongSentences breaks sentences over the word limit at the first
// coordinating break point (semicolon, then ", and"/", but"/", which").
func splitLongSentences(paragraph string) string {
	sentences := splitSentences(paragraph)
	if len(sentences) == 0 {
		return paragraph
	}

	var out []string
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if len(strings.Fields(s)) <= longSentenceWords {
			out = append(out, s)
			continue
		}
		out = append(out, breakSentence(s)...)
	}
	return strings.Join(out, " ")
}

var breakMarkers = []string{"; ", ", and ", ", but ", ", which ", ", so "}

func breakSentence(s string) []string {
	for _, marker := range breakMarkers {
		idx := strings.Index(s, marker)
		if idx <= 0 {
			continue
		}
		head := strings.TrimSpace(s[:idx])
		tail := strings.TrimSpace(strings.TrimPrefix(s[idx:], marker))
		if head == "" || tail == "" {
			continue
		}
		if !strings.HasSuffix(head, ".") {
			head += "."
		}
		r, size := utf8.DecodeRuneInString(tail)
		tail = strings.ToUpper(string(r)) + tail[size:]
		if !strings.HasSuffix(tail, ".") && !strings.HasSuffix(tail, "!") && !strings.HasSuffix(tail, "?") {
			tail += "."
		}
		return []string{head, tail}
	}
	return []string{s}
}

// splitLongParagraph inserts a paragraph break near the midpoint sentence
// of any paragraph over the word limit.
func splitLongParagraph(paragraph string) string {
	if len(strings.Fields(paragraph)) <= longParagraphWords {
		return paragraph
	}
	sentences := splitSentences(paragraph)
	if len(sentences) < 2 {
		return paragraph
	}
	mid := len(sentences) / 2
	first := strings.TrimSpace(strings.Join(sentences[:mid], " "))
	second := strings.TrimSpace(strings.Join(sentences[mid:], " "))
	return first + "\n\n" + second
}

// splitSentences splits prose on terminal punctuation.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			s := strings.TrimSpace(current.String())
			if s != "" && len(strings.Fields(s)) > 0 {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if tail := strings.TrimSpace(current.String()); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// countSyllables approximates syllables by counting vowel groups.
func countSyllables(word string) int {
	word = strings.ToLower(word)
	count := 0
	prevVowel := false
	for _, r := range word {
		isVowel := strings.ContainsRune("aeiouy", r)
		if isVowel && !prevVowel {
			count++
		}
		prevVowel = isVowel
	}
	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}

var passiveMarkers = []string{" is being ", " was being ", " has been ", " have been ", " had been ", " will be ", " is done ", " was made "}

func countPassiveMarkers(text string) int {
	lower := " " + strings.ToLower(text) + " "
	count := 0
	for _, m := range passiveMarkers {
		count += strings.Count(lower, m)
	}
	return count
}

// stripMarkup removes markdown structure so scoring sees only prose.
func stripMarkup(text string) string {
	var out []string
	inCode := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inCode = !inCode
			continue
		}
		if inCode || trimmed == "" {
			if trimmed == "" {
				out = append(out, "")
			}
			continue
		}
		trimmed = strings.TrimLeft(trimmed, "#")
		trimmed = strings.TrimLeft(trimmed, "->*- ")
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n")
}

func isMarkupBlock(block string) bool {
	return strings.HasPrefix(block, "#") ||
		strings.HasPrefix(block, "```") ||
		strings.HasPrefix(block, "|") ||
		strings.HasPrefix(block, "- ") ||
		strings.HasPrefix(block, "* ") ||
		strings.HasPrefix(block, "![")
}

func pluralIssue(n int, singular, plural string, limit int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s %d %s", singular, limit, unit)
	}
	return fmt.Sprintf("%d %s %d %s", n, plural, limit, unit)
}
