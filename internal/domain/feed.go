package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"
)

// CandidateItem is a normalized entry produced by parsing a raw feed document.
type CandidateItem struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
	Excerpt     string    `json:"excerpt"`
}

// FeedItem is a persisted item awaiting (or past) classification.
type FeedItem struct {
	ID           string
	StoryGroupID string
	Source       string
	Title        string
	URL          string
	Excerpt      string
	PublishedAt  time.Time
}

// StoryGroup clusters items from different sources describing the same story.
type StoryGroup struct {
	ID         string
	StoryKey   string
	Title      string
	Category   Category
	Sentiment  Sentiment
	Importance int
	ItemCount  int
}

// StoryKey fingerprints a title so that the same headline syndicated by
// several sources lands in one story group.
func StoryKey(title string) string {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	sum := sha256.Sum256([]byte(strings.Join(words, " ")))
	return hex.EncodeToString(sum[:16])
}
