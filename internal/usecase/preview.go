package usecase

import (
	"context"
	"log/slog"
	"strings"

	"NoiseGate/internal/domain"
	"NoiseGate/internal/logging"
	"NoiseGate/internal/ports"
)

// PreviewLimit caps how many parsed items a preview returns.
const PreviewLimit = 20

// PreviewRequest names the feed to preview. FeedURL wins over URL.
type PreviewRequest struct {
	FeedURL string `json:"feedUrl"`
	URL     string `json:"url"`
}

// PreviewResponse is the outcome of a preview. ItemCount is the number of
// items parsed before the limit was applied.
type PreviewResponse struct {
	Success   bool                   `json:"success"`
	Items     []domain.CandidateItem `json:"items"`
	ItemCount int                    `json:"itemCount"`
	Error     string                 `json:"error,omitempty"`
}

// Previewer fetches and parses a feed without persisting anything.
type Previewer struct {
	fetcher ports.FeedFetcher
	parser  ports.FeedParser
	logger  *slog.Logger
}

// NewPreviewer wires the fetch and parse adapters.
func NewPreviewer(fetcher ports.FeedFetcher, parser ports.FeedParser, log *slog.Logger) *Previewer {
	return &Previewer{fetcher: fetcher, parser: parser, logger: logging.Component(log, "preview")}
}

// Preview reports parse results for the requested feed. Failures are carried
// in the response rather than returned as errors.
func (p *Previewer) Preview(ctx context.Context, req PreviewRequest) PreviewResponse {
	feedURL := strings.TrimSpace(req.FeedURL)
	if feedURL == "" {
		feedURL = strings.TrimSpace(req.URL)
	}
	if feedURL == "" {
		return failedPreview(ErrMissingFeedURL.Error())
	}

	raw, err := p.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		p.logger.Warn("feed preview failed", "url", feedURL, "error", err)
		return failedPreview(err.Error())
	}

	items := p.parser.Parse(raw, feedURL)
	total := len(items)
	if total > PreviewLimit {
		items = items[:PreviewLimit]
	}
	if items == nil {
		items = []domain.CandidateItem{}
	}
	p.logger.Debug("feed previewed", "url", feedURL, "items", total)

	return PreviewResponse{Success: true, Items: items, ItemCount: total}
}

func failedPreview(msg string) PreviewResponse {
	return PreviewResponse{Success: false, Items: []domain.CandidateItem{}, Error: msg}
}
