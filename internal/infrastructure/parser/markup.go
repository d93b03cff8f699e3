package parser

import (
	"html"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const excerptLimit = 200

var (
	markupTagExpr       = regexp.MustCompile(`<[^>]*>`)
	bracketPrefixExpr   = regexp.MustCompile(`^\[.*?\]\s*`)
	subredditPrefixExpr = regexp.MustCompile(`^/r/\w+\s*[-–—]\s*`)
	linkTagExpr         = regexp.MustCompile(`(?i)<link\b[^>]*>`)
	entryOpenExpr       = regexp.MustCompile(`(?i)<(item|entry)\b`)
	angleReplacer       = strings.NewReplacer("<", " ", ">", " ")

	tagExprCache sync.Map // name -> *tagExpr
)

// dateLayouts lists the timestamp shapes seen in the wild, most common first.
var dateLayouts = []string{
	time.RFC3339Nano,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04 -0700",
	"Mon, 2 Jan 2006 15:04 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
	time.RFC850,
	time.ANSIC,
	time.UnixDate,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type tagExpr struct {
	cdata *regexp.Regexp
	plain *regexp.Regexp
}

func tagPattern(name string) *tagExpr {
	if cached, ok := tagExprCache.Load(name); ok {
		return cached.(*tagExpr)
	}
	quoted := regexp.QuoteMeta(name)
	// The opening tag may carry attributes but must not be self-closing.
	open := `<` + quoted + `(?:\s[^>]*[^/>])?\s*>`
	closing := `</` + quoted + `\s*>`
	expr := &tagExpr{
		cdata: regexp.MustCompile(`(?is)` + open + `\s*<!\[CDATA\[(.*?)\]\]>\s*` + closing),
		plain: regexp.MustCompile(`(?is)` + open + `(.*?)` + closing),
	}
	actual, _ := tagExprCache.LoadOrStore(name, expr)
	return actual.(*tagExpr)
}

// blocks slices every complete <name>...</name> element out of doc.
// Unterminated elements never match and are silently skipped.
func blocks(doc, name string) []string {
	matches := tagPattern(name).plain.FindAllStringSubmatch(doc, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// extractTag returns the trimmed inner text of the first name element,
// preferring a CDATA section over plain content.
func extractTag(block, name string) (string, bool) {
	expr := tagPattern(name)
	if m := expr.cdata.FindStringSubmatch(block); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := expr.plain.FindStringSubmatch(block); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}

// firstTag returns the first non-empty value among the given element names.
func firstTag(block string, names ...string) string {
	for _, name := range names {
		if v, ok := extractTag(block, name); ok && v != "" {
			return v
		}
	}
	return ""
}

// decodeEntities resolves named, decimal and hexadecimal character references.
func decodeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return html.UnescapeString(s)
}

// stripMarkup replaces every tag with a space, drops stray angle brackets
// and collapses whitespace runs.
func stripMarkup(s string) string {
	s = markupTagExpr.ReplaceAllString(s, " ")
	s = angleReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:n]), " ")
}

func excerpt(body string) string {
	return truncateRunes(stripMarkup(decodeEntities(body)), excerptLimit)
}

// cleanTitle removes cross-post noise such as "[tag] " and "/r/sub - "
// prefixes. Prefixes are stripped until none remain, so cleaning twice
// yields the same title.
func cleanTitle(title string) string {
	title = strings.TrimSpace(title)
	for {
		next := bracketPrefixExpr.ReplaceAllString(title, "")
		next = subredditPrefixExpr.ReplaceAllString(next, "")
		next = strings.TrimSpace(next)
		if next == title {
			return title
		}
		title = next
	}
}

// parseDate coerces a feed timestamp into UTC, falling back to now.
func parseDate(value string, now time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return now.UTC()
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil && t.Year() > 0 {
			return t.UTC()
		}
	}
	return now.UTC()
}

func parseBase(sourceURL string) *url.URL {
	if sourceURL == "" {
		return nil
	}
	base, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil || !base.IsAbs() {
		return nil
	}
	return base
}

// resolveLink makes relative item links absolute against the feed URL.
func resolveLink(link string, base *url.URL) string {
	link = strings.TrimSpace(link)
	if link == "" || base == nil {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil || ref.IsAbs() {
		return link
	}
	return base.ResolveReference(ref).String()
}
