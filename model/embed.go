package model

import (
	"context"
	"errors"
)

// ErrEmbedding marks any failure of the upstream embedding service. A chunk
// is never stored with a missing or zero vector; the owning document's
// ingestion fails instead.
var ErrEmbedding = errors.New("embedding service failure")

// EmbedderInterface maps text to a fixed-length vector. Vectors are stable
// within one model version; mixing versions is undefined.
type EmbedderInterface interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
