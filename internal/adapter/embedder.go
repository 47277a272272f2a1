package adapter

import (
	"context"
	"fmt"

	"github.com/voxrun/assistant/pkg/provider/embeddings"
)

// Embedder implements nlu.Embedder over an embeddings.Provider.
type Embedder struct {
	provider embeddings.Provider
}

// NewEmbedder builds an Embedder backed by provider.
func NewEmbedder(provider embeddings.Provider) *Embedder {
	return &Embedder{provider: provider}
}

// Embed delegates to the wrapped provider.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.provider.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("adapter: embedder: %w", err)
	}
	return vec, nil
}
