// Package links implements the two-phase internal-link algorithm: repair of
// provider-emitted placeholder links, then positional insertion of new links
// with per-URL uniqueness and section exclusion rules.
package links

import (
	"fmt"
	"regexp"
	"strings"

	"longform/internal/core"
	"longform/internal/logger"
)

// Relevance scores for inserted links.
const (
	relevanceAnchorMatch  = 0.8
	relevancePrimaryMatch = 0.7
	relevanceKeywordMatch = 0.6
)

// Fraction of trailing lines treated as the conclusion region.
const conclusionTailFraction = 0.2

// Options configures one insertion run.
type Options struct {
	SiteDomain string // When set, relative URLs are rewritten to absolute
	MaxLinks   int    // Maximum number of links Phase B may insert
}

// Result is the rewritten document plus the ordered insertion records.
type Result struct {
	Content  string
	Inserted []core.InsertedLink
	Warnings []string
}

var markdownLinkPattern = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`)

// SynthesizeTargets builds one generated target per keyword with a
// slugified relative URL, used when the caller supplies no targets.
func SynthesizeTargets(keywords []string) []core.LinkTarget {
	var targets []core.LinkTarget
	seen := make(map[string]bool)
	for _, kw := range keywords {
		slug := Slugify(kw)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		targets = append(targets, core.LinkTarget{
			AnchorCandidate: kw,
			URL:             "/" + slug,
			Title:           kw,
			Keywords:        []string{kw},
			Kind:            core.LinkTargetGenerated,
		})
	}
	return targets
}

// Insert runs both phases over the document.
func Insert(doc string, targets []core.LinkTarget, opts Options) *Result {
	result := &Result{}
	usedURLs := make(map[string]bool)

	doc = repairPlaceholders(doc, targets, opts, usedURLs)
	doc = insertLinks(doc, targets, opts, usedURLs, result)

	result.Content = doc
	if len(result.Inserted) == 0 && opts.MaxLinks > 0 && len(targets) > 0 {
		result.Warnings = append(result.Warnings, "links: no eligible insertion points found")
	}
	return result
}

// repairPlaceholders resolves provider-style relative links against real
// targets and absolutizes what it can. It never adds links and leaves
// image links alone.
func repairPlaceholders(doc string, targets []core.LinkTarget, opts Options, usedURLs map[string]bool) string {
	matches := markdownLinkPattern.FindAllStringSubmatchIndex(doc, -1)
	if len(matches) == 0 {
		return doc
	}

	var b strings.Builder
	prev := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		anchor := doc[m[2]:m[3]]
		href := doc[m[4]:m[5]]

		b.WriteString(doc[prev:start])
		prev = end

		isImage := start > 0 && doc[start-1] == '!'
		if isImage || !strings.HasPrefix(href, "/") {
			b.WriteString(doc[start:end]) // Only relative text links are placeholder candidates
			continue
		}

		if target := resolveTarget(anchor, href, targets); target != nil {
			resolved := absolutize(target.URL, opts.SiteDomain)
			usedURLs[resolved] = true
			logger.Debug("Resolved placeholder link", "anchor", anchor, "url", resolved)
			b.WriteString(fmt.Sprintf("[%s](%s)", anchor, resolved))
			continue
		}

		if opts.SiteDomain != "" {
			b.WriteString(fmt.Sprintf("[%s](%s)", anchor, absolutize(href, opts.SiteDomain)))
			continue
		}
		b.WriteString(doc[start:end])
	}
	b.WriteString(doc[prev:])
	return b.String()
}

// resolveTarget matches a placeholder link to a target by slug or anchor
// text similarity.
func resolveTarget(anchor, href string, targets []core.LinkTarget) *core.LinkTarget {
	hrefSlug := strings.Trim(strings.TrimPrefix(href, "/"), "/")
	anchorSlug := Slugify(anchor)

	for i := range targets {
		t := &targets[i]
		targetSlug := Slugify(t.AnchorCandidate)
		urlSlug := strings.Trim(t.URL[strings.LastIndex(t.URL, "/")+1:], "/")

		if hrefSlug == targetSlug || hrefSlug == urlSlug || anchorSlug == targetSlug {
			return t
		}
		if slugContains(hrefSlug, targetSlug) || slugContains(targetSlug, hrefSlug) {
			return t
		}
	}
	return nil
}

// sectionTracker is the introduction→body→conclusion state machine.
type sectionTracker struct {
	section     core.DocumentSection
	inResources bool
	totalLines  int
}

var conclusionHeadings = []string{"conclusion", "final thoughts", "wrapping up", "wrap-up", "summary", "key takeaways"}
var resourceHeadings = []string{"resources", "references", "further reading", "sources"}

func (t *sectionTracker) observe(lineNum int, trimmed string) {
	if strings.HasPrefix(trimmed, "## ") {
		heading := strings.ToLower(strings.TrimPrefix(trimmed, "## "))
		t.inResources = matchesAny(heading, resourceHeadings)
		if matchesAny(heading, conclusionHeadings) {
			t.section = core.SectionConclusion
			return
		}
		if t.section == core.SectionIntroduction {
			t.section = core.SectionBody
		}
	}
	if t.section != core.SectionConclusion &&
		float64(lineNum) >= float64(t.totalLines)*(1-conclusionTailFraction) {
		t.section = core.SectionConclusion
	}
}

// insertLinks is Phase B: a line-ordered scan that wraps the first eligible
// occurrence of each unused target's anchor text or keyword.
func insertLinks(doc string, targets []core.LinkTarget, opts Options, usedURLs map[string]bool, result *Result) string {
	if opts.MaxLinks <= 0 {
		return doc
	}

	lines := strings.Split(doc, "\n")
	tracker := &sectionTracker{section: core.SectionIntroduction, totalLines: len(lines)}
	usedTargets := make(map[int]bool)
	inCode := false

	for lineNum, line := range lines {
		if len(result.Inserted) >= opts.MaxLinks {
			break
		}

		trimmed := strings.TrimSpace(line)
		tracker.observe(lineNum, trimmed)

		if strings.HasPrefix(trimmed, "```") {
			inCode = !inCode
			continue
		}
		if inCode || trimmed == "" ||
			strings.HasPrefix(trimmed, "#") ||
			strings.HasPrefix(trimmed, "![") ||
			strings.HasPrefix(trimmed, "|") {
			continue
		}
		// New links never land in the conclusion or a resources section.
		if tracker.section == core.SectionConclusion || tracker.inResources {
			continue
		}

		for ti := range targets {
			if len(result.Inserted) >= opts.MaxLinks {
				break
			}
			if usedTargets[ti] {
				continue
			}
			target := &targets[ti]
			url := absolutize(target.URL, opts.SiteDomain)
			if usedURLs[url] {
				usedTargets[ti] = true
				continue
			}

			anchor, relevance := matchLine(line, target)
			if anchor == "" {
				continue
			}

			rewritten, ok := wrapOccurrence(line, anchor, url)
			if !ok {
				continue
			}
			line = rewritten
			lines[lineNum] = rewritten
			usedTargets[ti] = true
			usedURLs[url] = true

			result.Inserted = append(result.Inserted, core.InsertedLink{
				AnchorText:      anchor,
				URL:             url,
				TargetTitle:     target.Title,
				PositionSection: tracker.section,
				RelevanceScore:  relevance,
			})
		}
	}

	return strings.Join(lines, "\n")
}

// matchLine finds the best anchor for a target within a line. Anchor-text
// matches outrank keyword matches.
func matchLine(line string, target *core.LinkTarget) (string, float64) {
	if target.AnchorCandidate != "" && containsOutsideLinks(line, target.AnchorCandidate) {
		return target.AnchorCandidate, relevanceAnchorMatch
	}
	for i, kw := range target.Keywords {
		if kw == "" || strings.EqualFold(kw, target.AnchorCandidate) {
			continue
		}
		if containsOutsideLinks(line, kw) {
			if i == 0 {
				return kw, relevancePrimaryMatch
			}
			return kw, relevanceKeywordMatch
		}
	}
	return "", 0
}

// containsOutsideLinks reports whether needle occurs in line, case
// insensitively, outside any existing markdown link span.
func containsOutsideLinks(line, needle string) bool {
	_, ok := findOutsideLinks(line, needle)
	return ok
}

func findOutsideLinks(line, needle string) (int, bool) {
	lowerLine := strings.ToLower(line)
	lowerNeedle := strings.ToLower(needle)
	spans := markdownLinkPattern.FindAllStringIndex(line, -1)

	from := 0
	for {
		idx := strings.Index(lowerLine[from:], lowerNeedle)
		if idx < 0 {
			return 0, false
		}
		start := from + idx
		end := start + len(needle)
		if !overlapsSpan(start, end, spans) {
			return start, true
		}
		from = start + 1
	}
}

func overlapsSpan(start, end int, spans [][]int) bool {
	for _, span := range spans {
		if start < span[1] && end > span[0] {
			return true
		}
	}
	return false
}

// wrapOccurrence wraps the first eligible occurrence of anchor in a
// markdown link, preserving the original casing of the matched text.
func wrapOccurrence(line, anchor, url string) (string, bool) {
	start, ok := findOutsideLinks(line, anchor)
	if !ok {
		return line, false
	}
	end := start + len(anchor)
	return line[:start] + "[" + line[start:end] + "](" + url + ")" + line[end:], true
}

func absolutize(url, siteDomain string) string {
	if siteDomain == "" || !strings.HasPrefix(url, "/") {
		return url
	}
	return strings.TrimRight(siteDomain, "/") + url
}

func slugContains(a, b string) bool {
	return a != "" && b != "" && strings.Contains(a, b)
}

func matchesAny(heading string, candidates []string) bool {
	for _, c := range candidates {
		if strings.Contains(heading, c) {
			return true
		}
	}
	return false
}

// Slugify lowercases a phrase and joins its alphanumeric runs with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteRune('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
