package parser

import (
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"NoiseGate/internal/domain"
	"NoiseGate/internal/ports"
)

// FeedParser extracts candidate items from RSS 2.0 and Atom documents.
// It scans markup leniently and never fails: malformed input yields fewer items.
type FeedParser struct {
	now    func() time.Time
	logger *slog.Logger
}

var _ ports.FeedParser = (*FeedParser)(nil)

// NewFeedParser builds a parser; log may be nil.
func NewFeedParser(log *slog.Logger) *FeedParser {
	return &FeedParser{now: time.Now, logger: log}
}

// Parse detects the feed flavour and returns every entry that carries both
// a title and a link, in document order.
func (p *FeedParser) Parse(raw, sourceURL string) []domain.CandidateItem {
	items := []domain.CandidateItem{}
	if strings.TrimSpace(raw) == "" {
		return items
	}
	base := parseBase(sourceURL)

	var entries []string
	atom := isAtom(raw)
	if atom {
		entries = blocks(raw, "entry")
	} else {
		entries = blocks(raw, "item")
	}

	if len(entries) == 0 {
		if entryOpenExpr.MatchString(raw) {
			p.debug("feed has only unterminated entries", "source", sourceURL)
			return items
		}
		return p.parseFallback(raw, base)
	}

	for _, entry := range entries {
		var item domain.CandidateItem
		var ok bool
		if atom {
			item, ok = p.atomItem(entry, base)
		} else {
			item, ok = p.rssItem(entry, base)
		}
		if ok {
			items = append(items, item)
		}
	}
	p.debug("feed parsed", "source", sourceURL, "atom", atom, "entries", len(entries), "items", len(items))
	return items
}

func isAtom(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.Contains(lower, "<feed") && strings.Contains(lower, "<entry")
}

func (p *FeedParser) rssItem(block string, base *url.URL) (domain.CandidateItem, bool) {
	return p.candidate(
		firstTag(block, "title"),
		decodeEntities(firstTag(block, "link")),
		firstTag(block, "content:encoded", "description"),
		firstTag(block, "pubDate", "dc:date"),
		base,
	)
}

func (p *FeedParser) atomItem(block string, base *url.URL) (domain.CandidateItem, bool) {
	return p.candidate(
		firstTag(block, "title"),
		atomLink(block),
		firstTag(block, "content", "summary"),
		firstTag(block, "updated", "published"),
		base,
	)
}

func (p *FeedParser) candidate(title, link, body, date string, base *url.URL) (domain.CandidateItem, bool) {
	title = cleanTitle(decodeEntities(title))
	link = resolveLink(link, base)
	if title == "" || link == "" {
		return domain.CandidateItem{}, false
	}
	return domain.CandidateItem{
		Title:       title,
		URL:         link,
		PublishedAt: parseDate(date, p.now()),
		Excerpt:     excerpt(body),
	}, true
}

// atomLink prefers the rel="alternate" href, then any href, then the text
// content of a plain <link> element.
func atomLink(entry string) string {
	if tags := linkTagExpr.FindAllString(entry, -1); len(tags) > 0 {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(strings.Join(tags, "\n")))
		if err == nil {
			var alternate, first string
			doc.Find("link").EachWithBreak(func(_ int, s *goquery.Selection) bool {
				href := strings.TrimSpace(s.AttrOr("href", ""))
				if href == "" {
					return true
				}
				if first == "" {
					first = href
				}
				if strings.EqualFold(strings.TrimSpace(s.AttrOr("rel", "")), "alternate") {
					alternate = href
					return false
				}
				return true
			})
			if alternate != "" {
				return alternate
			}
			if first != "" {
				return first
			}
		}
	}
	if text, ok := extractTag(entry, "link"); ok {
		return decodeEntities(text)
	}
	return ""
}

// parseFallback hands documents without recognisable entry blocks (JSON Feed,
// RDF with unusual prefixes) to gofeed. Parse errors produce no items.
func (p *FeedParser) parseFallback(raw string, base *url.URL) []domain.CandidateItem {
	items := []domain.CandidateItem{}
	feed, err := gofeed.NewParser().ParseString(raw)
	if err != nil {
		p.debug("fallback parse failed", "error", err)
		return items
	}
	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}
		body := entry.Content
		if body == "" {
			body = entry.Description
		}
		item, ok := p.candidate(entry.Title, entry.Link, body, "", base)
		if !ok {
			continue
		}
		switch {
		case entry.UpdatedParsed != nil:
			item.PublishedAt = entry.UpdatedParsed.UTC()
		case entry.PublishedParsed != nil:
			item.PublishedAt = entry.PublishedParsed.UTC()
		}
		items = append(items, item)
	}
	p.debug("fallback parsed", "format", feed.FeedType, "items", len(items))
	return items
}

func (p *FeedParser) debug(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
