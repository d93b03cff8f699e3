package parser

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestParser() *FeedParser {
	p := NewFeedParser(nil)
	p.now = func() time.Time { return fixedNow }
	return p
}

func TestParseRSS(t *testing.T) {
	t.Parallel()

	raw := `<?xml version="1.0"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel>
  <title>Channel</title>
  <link>https://example.com</link>
  <item>
    <title><![CDATA[[Breaking] Markets &amp; rally]]></title>
    <link>https://example.com/posts/1?a=1&amp;b=2</link>
    <description>ignored when content is present</description>
    <content:encoded><![CDATA[<p>Full <em>story</em></p>]]></content:encoded>
    <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
  </item>
  <item>
    <title>No link here</title>
    <description>dropped</description>
  </item>
  <item>
    <title>Relative</title>
    <link>/posts/3</link>
    <description>&lt;p&gt;Hello &lt;b&gt;world&lt;/b&gt;&lt;/p&gt;</description>
  </item>
</channel>
</rss>`

	items := newTestParser().Parse(raw, "https://example.com/feed.xml")
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(items), items)
	}

	first := items[0]
	if first.Title != "Markets & rally" {
		t.Fatalf("unexpected title: %q", first.Title)
	}
	if first.URL != "https://example.com/posts/1?a=1&b=2" {
		t.Fatalf("unexpected url: %q", first.URL)
	}
	if first.Excerpt != "Full story" {
		t.Fatalf("unexpected excerpt: %q", first.Excerpt)
	}
	if !first.PublishedAt.Equal(time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)) {
		t.Fatalf("unexpected date: %s", first.PublishedAt)
	}

	second := items[1]
	if second.URL != "https://example.com/posts/3" {
		t.Fatalf("relative link not resolved: %q", second.URL)
	}
	if second.Excerpt != "Hello world" {
		t.Fatalf("unexpected excerpt: %q", second.Excerpt)
	}
	if !second.PublishedAt.Equal(fixedNow) {
		t.Fatalf("expected fallback to now, got %s", second.PublishedAt)
	}
}

func TestParseAtom(t *testing.T) {
	t.Parallel()

	raw := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Example</title>
  <link href="https://example.com/"/>
  <entry>
    <title type="html">/r/golang - Go 1.30 released</title>
    <link rel="self" href="https://example.com/self/1"/>
    <link rel="alternate" type="text/html" href="https://example.com/posts/1"/>
    <summary>Short summary</summary>
    <content type="html">&lt;p&gt;Full body&lt;/p&gt;</content>
    <updated>2024-05-01T10:00:00Z</updated>
    <published>2024-04-30T10:00:00Z</published>
  </entry>
  <entry>
    <title>Second</title>
    <link href="https://example.com/posts/2"/>
    <summary>Only summary</summary>
    <published>2024-04-29T08:30:00+02:00</published>
  </entry>
</feed>`

	items := newTestParser().Parse(raw, "https://example.com/atom.xml")
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	if items[0].Title != "Go 1.30 released" {
		t.Fatalf("unexpected title: %q", items[0].Title)
	}
	if items[0].URL != "https://example.com/posts/1" {
		t.Fatalf("expected alternate link, got %q", items[0].URL)
	}
	if items[0].Excerpt != "Full body" {
		t.Fatalf("unexpected excerpt: %q", items[0].Excerpt)
	}
	if !items[0].PublishedAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected updated date, got %s", items[0].PublishedAt)
	}

	if items[1].URL != "https://example.com/posts/2" {
		t.Fatalf("unexpected url: %q", items[1].URL)
	}
	if items[1].Excerpt != "Only summary" {
		t.Fatalf("unexpected excerpt: %q", items[1].Excerpt)
	}
	if !items[1].PublishedAt.Equal(time.Date(2024, 4, 29, 6, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date: %s", items[1].PublishedAt)
	}
	if items[1].PublishedAt.Location() != time.UTC {
		t.Fatalf("expected UTC, got %s", items[1].PublishedAt.Location())
	}
}

func TestParseSkipsUnterminatedItem(t *testing.T) {
	t.Parallel()

	raw := `<rss><channel>
<item><title>A</title><link>https://a.example/1</link></item>
<item><title>B</title><link>https://a.example/2</link>`

	items := newTestParser().Parse(raw, "")
	if len(items) != 1 || items[0].Title != "A" {
		t.Fatalf("expected only the complete item, got %+v", items)
	}

	lone := []string{
		`<rss version="2.0"><channel><item><title>Only</title><link>https://a.example/1</link></channel></rss>`,
		`<feed xmlns="http://www.w3.org/2005/Atom"><entry><title>Only</title><link href="https://a.example/1"/></feed>`,
	}
	for _, raw := range lone {
		items := newTestParser().Parse(raw, "")
		if items == nil || len(items) != 0 {
			t.Fatalf("expected unterminated entry to be dropped for %q, got %+v", raw, items)
		}
	}
}

func TestParseGarbageReturnsEmpty(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   ", "this is not a feed", "<html><body>hi</body></html>"} {
		items := newTestParser().Parse(raw, "https://example.com")
		if items == nil || len(items) != 0 {
			t.Fatalf("expected empty non-nil slice for %q, got %#v", raw, items)
		}
	}
}

func TestParseJSONFeedFallback(t *testing.T) {
	t.Parallel()

	raw := `{
  "version": "https://jsonfeed.org/version/1.1",
  "title": "JSON",
  "items": [
    {"id": "1", "title": "[meta] Json item", "url": "https://example.com/j/1", "content_html": "<p>Hi there</p>", "date_published": "2024-01-02T03:04:05Z"},
    {"id": "2", "content_text": "untitled"}
  ]
}`

	items := newTestParser().Parse(raw, "https://example.com/feed.json")
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Title != "Json item" || items[0].URL != "https://example.com/j/1" {
		t.Fatalf("unexpected item: %+v", items[0])
	}
	if !items[0].PublishedAt.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Fatalf("unexpected date: %s", items[0].PublishedAt)
	}
}

func TestExcerptIsBounded(t *testing.T) {
	t.Parallel()

	body := "<div>" + strings.Repeat("word &amp; ", 100) + "</div>"
	raw := `<rss><channel><item><title>Long</title><link>https://example.com/l</link><description><![CDATA[` +
		body + `]]></description></item></channel></rss>`

	items := newTestParser().Parse(raw, "")
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	got := items[0].Excerpt
	if utf8.RuneCountInString(got) > excerptLimit {
		t.Fatalf("excerpt too long: %d", utf8.RuneCountInString(got))
	}
	if strings.ContainsAny(got, "<>") {
		t.Fatalf("excerpt contains markup: %q", got)
	}
	if strings.HasSuffix(got, " ") {
		t.Fatalf("excerpt has trailing space: %q", got)
	}
}
