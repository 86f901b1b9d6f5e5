// Package embedder is the external embedder collaborator (§6): it
// turns text into an L2-normalized, fixed-dimension vector via
// Gemini's embedding model, the same generative-ai-go SDK the teacher
// uses for text generation (internal/research/research.go), not the
// newer google.golang.org/genai path used elsewhere in the teacher.
package embedder

import (
	"context"
	"fmt"
	"math"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Embedder encodes text into unit-norm D-dimension vectors.
type Embedder struct {
	client *genai.Client
	model  string
	dim    int
}

// New constructs an Embedder backed by Gemini's embedding API.
func New(ctx context.Context, apiKey, model string, dim int) (*Embedder, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("embedder: failed to create genai client: %w", err)
	}
	return &Embedder{client: client, model: model, dim: dim}, nil
}

// Close releases the underlying client.
func (e *Embedder) Close() error {
	return e.client.Close()
}

// Encode embeds a single text and L2-normalizes the result.
func (e *Embedder) Encode(ctx context.Context, text string) ([]float32, error) {
	em := e.client.EmbeddingModel(e.model)
	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("embedder: EmbedContent failed: %w", err)
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("embedder: empty embedding response")
	}
	return normalize(resp.Embedding.Values), nil
}

// EncodeBatch embeds multiple texts. The old generative-ai-go SDK has
// no first-class batch-embed call on EmbeddingModel, so this issues
// one request per text, same as the teacher's per-call usage style.
func (e *Embedder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := e.Encode(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embedder: EncodeBatch[%d]: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

// normalize returns v scaled to unit L2 norm. A zero vector is
// returned unchanged rather than dividing by zero.
func normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := float32(math.Sqrt(sumSq))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
