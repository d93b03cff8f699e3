package domain

import "strings"

// Category is the topic bucket assigned by the classification provider.
type Category string

const (
	CategoryWorld         Category = "world"
	CategoryPolitics      Category = "politics"
	CategoryLocal         Category = "local"
	CategoryTech          Category = "tech"
	CategoryProgramming   Category = "programming"
	CategoryGaming        Category = "gaming"
	CategoryScience       Category = "science"
	CategoryHealth        Category = "health"
	CategoryBusiness      Category = "business"
	CategoryEntertainment Category = "entertainment"
	CategoryHumor         Category = "humor"
	CategorySports        Category = "sports"
	CategoryOther         Category = "other"
)

// AllCategories returns every category in display order.
func AllCategories() []Category {
	return []Category{
		CategoryWorld, CategoryPolitics, CategoryLocal, CategoryTech,
		CategoryProgramming, CategoryGaming, CategoryScience, CategoryHealth,
		CategoryBusiness, CategoryEntertainment, CategoryHumor, CategorySports,
		CategoryOther,
	}
}

// ParseCategory maps free-form provider output onto a known category.
// Unknown values become CategoryOther.
func ParseCategory(value string) Category {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, c := range AllCategories() {
		if string(c) == value {
			return c
		}
	}
	return CategoryOther
}

// Sentiment is the overall tone of an item.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ParseSentiment maps provider output onto a known sentiment, defaulting to neutral.
func ParseSentiment(value string) Sentiment {
	switch Sentiment(strings.ToLower(strings.TrimSpace(value))) {
	case SentimentPositive:
		return SentimentPositive
	case SentimentNegative:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

const (
	MinImportance = 1
	MaxImportance = 10
)

// ClampImportance keeps a provider score inside [MinImportance, MaxImportance].
func ClampImportance(v int) int {
	if v < MinImportance {
		return MinImportance
	}
	if v > MaxImportance {
		return MaxImportance
	}
	return v
}

// Classification is the provider's verdict for a single feed item.
// Only ID is used to route persistence.
type Classification struct {
	ID         string    `json:"id"`
	Category   Category  `json:"category"`
	Sentiment  Sentiment `json:"sentiment"`
	Importance int       `json:"importance"`
}

// ProcessResult summarizes one classification run.
type ProcessResult struct {
	ItemsProcessed  int      `json:"itemsProcessed"`
	ItemsClassified int      `json:"itemsClassified"`
	Errors          []string `json:"errors"`
}

// NewProcessResult returns an empty summary whose Errors marshals as [].
func NewProcessResult() ProcessResult {
	return ProcessResult{Errors: []string{}}
}

// AddError appends a human-readable failure description.
func (r *ProcessResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}
