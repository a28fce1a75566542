// Package embedding provides text embedding for query and ingest paths.
package embedding

import (
	"context"
	"fmt"
)

// ModelMock selects the deterministic hash embedder (tests, development).
const ModelMock = "mock"

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// New creates an embedder for the configured model identifier. "mock" (or
// empty) yields the deterministic embedder; anything else is treated as an
// ONNX model path, which requires a CGO build with onnxruntime installed.
func New(model string, dimensions, maxTokens, cacheSize int) (Embedder, error) {
	switch model {
	case "", ModelMock:
		return NewMockEmbedder(dimensions), nil
	default:
		emb, err := NewONNXEmbedder(model, dimensions, maxTokens, cacheSize)
		if err != nil {
			return nil, fmt.Errorf("load embedding model %q: %w", model, err)
		}
		return emb, nil
	}
}
