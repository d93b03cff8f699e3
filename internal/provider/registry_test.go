package provider

import (
	"context"
	"strings"
	"testing"

	"NoiseGate/internal/domain"
)

type namedClassifier string

func (namedClassifier) ClassifyBatch(context.Context, []domain.FeedItem) ([]domain.Classification, error) {
	return nil, nil
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register("openai", namedClassifier("a"))
	reg.Register("ml", namedClassifier("b"))
	reg.Register("ml", namedClassifier("c"))

	got, err := reg.Resolve("ml")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.(namedClassifier) != "c" {
		t.Fatalf("expected replacement to win, got %v", got)
	}

	_, err = reg.Resolve("claude")
	if err == nil || !strings.Contains(err.Error(), "[ml openai]") {
		t.Fatalf("expected error listing known providers, got %v", err)
	}
}
