package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"NoiseGate/internal/config"
	"NoiseGate/internal/domain"
	"NoiseGate/internal/ports"
)

// Client talks to a self-hosted inference service that classifies feed items.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.Classifier = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.MLConfig) *Client {
	return &Client{
		endpoint: strings.TrimRight(cfg.InferenceURL, "/"),
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

type classifyRequest struct {
	Items []classifyItem `json:"items"`
}

type classifyItem struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Source  string `json:"source,omitempty"`
}

type classifyResponse struct {
	Results []struct {
		ID         string `json:"id"`
		Category   string `json:"category"`
		Sentiment  string `json:"sentiment"`
		Importance int    `json:"importance"`
	} `json:"results"`
}

// ClassifyBatch posts the batch to /classify.
func (c *Client) ClassifyBatch(ctx context.Context, items []domain.FeedItem) ([]domain.Classification, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("ml inference url is not configured")
	}

	payload := classifyRequest{Items: make([]classifyItem, 0, len(items))}
	for _, item := range items {
		payload.Items = append(payload.Items, classifyItem{
			ID:      item.ID,
			Title:   item.Title,
			Content: item.Excerpt,
			Source:  item.Source,
		})
	}

	var resp classifyResponse
	if err := c.post(ctx, "/classify", payload, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.Classification, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, domain.Classification{
			ID:         r.ID,
			Category:   domain.ParseCategory(r.Category),
			Sentiment:  domain.ParseSentiment(r.Sentiment),
			Importance: domain.ClampImportance(r.Importance),
		})
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
