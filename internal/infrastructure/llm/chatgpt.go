package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"NoiseGate/internal/config"
	"NoiseGate/internal/domain"
	"NoiseGate/internal/ports"
)

// ChatGPTClassifier implements ports.Classifier on top of an OpenAI-compatible
// chat completions endpoint.
type ChatGPTClassifier struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.Classifier = (*ChatGPTClassifier)(nil)

// NewChatGPTClassifier builds a classifier from configuration.
func NewChatGPTClassifier(cfg config.OpenAIConfig) *ChatGPTClassifier {
	return &ChatGPTClassifier{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type promptItem struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type rawClassification struct {
	ID         string  `json:"id"`
	Category   string  `json:"category"`
	Sentiment  string  `json:"sentiment"`
	Importance float64 `json:"importance"`
}

// ClassifyBatch sends every item in one request and returns the normalized verdicts.
func (c *ChatGPTClassifier) ClassifyBatch(ctx context.Context, items []domain.FeedItem) ([]domain.Classification, error) {
	if c == nil {
		return nil, fmt.Errorf("chatgpt classifier is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return nil, fmt.Errorf("chatgpt classifier misconfigured")
	}
	if len(items) == 0 {
		return nil, nil
	}

	prompt := make([]promptItem, 0, len(items))
	for _, item := range items {
		content := item.Excerpt
		if content == "" {
			content = item.Title
		}
		prompt = append(prompt, promptItem{ID: item.ID, Title: item.Title, Content: content})
	}
	userContent, err := json.Marshal(map[string]any{"items": prompt})
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}

	body, err := json.Marshal(map[string]any{
		"model":           c.model,
		"temperature":     0.2,
		"response_format": map[string]string{"type": "json_object"},
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(c.systemPrompt)},
			{"role": "user", "content": string(userContent)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var completion chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("decode chatgpt response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("chatgpt returned no choices")
	}

	raw, err := decodeClassifications(completion.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	return normalize(raw), nil
}

// decodeClassifications accepts {"classifications":[...]} or a bare array.
func decodeClassifications(content string) ([]rawClassification, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "[") {
		var list []rawClassification
		if err := json.Unmarshal([]byte(content), &list); err != nil {
			return nil, fmt.Errorf("parse classifications: %w", err)
		}
		return list, nil
	}
	var wrapped struct {
		Classifications []rawClassification `json:"classifications"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
		return nil, fmt.Errorf("parse classifications: %w", err)
	}
	if wrapped.Classifications == nil {
		return nil, fmt.Errorf("parse classifications: missing classifications field")
	}
	return wrapped.Classifications, nil
}

// normalize maps provider output onto the domain enums and clamps importance.
func normalize(raw []rawClassification) []domain.Classification {
	out := make([]domain.Classification, 0, len(raw))
	for _, r := range raw {
		out = append(out, domain.Classification{
			ID:         strings.TrimSpace(r.ID),
			Category:   domain.ParseCategory(r.Category),
			Sentiment:  domain.ParseSentiment(r.Sentiment),
			Importance: domain.ClampImportance(int(math.Round(r.Importance))),
		})
	}
	return out
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt != "" {
		return prompt
	}
	categories := make([]string, 0, len(domain.AllCategories()))
	for _, c := range domain.AllCategories() {
		categories = append(categories, string(c))
	}
	return "You classify news items. For every item in the user message return an object with " +
		`"id" (copied verbatim), "category" (one of: ` + strings.Join(categories, ", ") + `), ` +
		`"sentiment" (positive, neutral or negative) and "importance" (integer 1-10, 10 = major world event). ` +
		`Respond with JSON of the form {"classifications":[...]} and nothing else.`
}
