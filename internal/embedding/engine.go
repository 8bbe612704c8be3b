// Package embedding generates vector embeddings for semantic memory.
//
// Three providers: a local Ollama server, any OpenAI-compatible API, and
// a deterministic hash fallback for offline use. All providers implement
// Engine so the memory store never cares which one is active.
package embedding

import (
	"context"
	"fmt"
	"math"
)

// Engine generates vector embeddings for text.
type Engine interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimensions returns the dimensionality of produced embeddings.
	Dimensions() int
	// Name identifies the engine (for logs and stats).
	Name() string
}

// Config selects and configures a provider.
type Config struct {
	// Provider: "ollama", "openai", or "hash".
	Provider       string
	OllamaEndpoint string
	OllamaModel    string
	OpenAIBaseURL  string
	OpenAIAPIKey   string
	OpenAIModel    string
}

// NewEngine creates an embedding engine from configuration.
func NewEngine(cfg Config) (Engine, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllamaEngine(cfg.OllamaEndpoint, cfg.OllamaModel), nil
	case "openai":
		return NewOpenAIEngine(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)
	case "hash", "":
		return NewHashEngine(), nil
	default:
		return nil, fmt.Errorf("embedding: unsupported provider %q (use ollama, openai, or hash)", cfg.Provider)
	}
}

// CosineSimilarity computes the cosine similarity of two vectors.
// Returns an error on dimension mismatch; zero-magnitude vectors score 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding: dimension mismatch: %d != %d", len(a), len(b))
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB)), nil
}
