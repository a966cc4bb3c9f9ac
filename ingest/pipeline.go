package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"docchat/chunker"
	"docchat/model"
	"docchat/store"
	"docchat/types"

	"github.com/google/uuid"
)

// ErrEmptyDocument means the extracted text produced no chunks.
var ErrEmptyDocument = errors.New("document contains no chunkable text")

// Pipeline runs one document through chunking, embedding and persistence.
// Chunk embeddings are computed by a bounded worker pool since chunks are
// independent; storage order always follows chunk order, not completion
// order.
type Pipeline struct {
	splitter *chunker.Splitter
	embedder model.EmbedderInterface
	store    store.ChunkStorer
	workers  int
	logger   *slog.Logger
}

func New(splitter *chunker.Splitter, embedder model.EmbedderInterface, s store.ChunkStorer, workers int, logger *slog.Logger) *Pipeline {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		splitter: splitter,
		embedder: embedder,
		store:    s,
		workers:  workers,
		logger:   logger,
	}
}

// IngestText chunks text, embeds every chunk and persists the batch under
// docID. Metadata is attached to every chunk. On any embedding failure the
// document is not stored at all; the chunk count is returned on success.
func (p *Pipeline) IngestText(ctx context.Context, docID, text string, metadata map[string]string) (int, error) {
	contents := p.splitter.Split(text)
	if len(contents) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrEmptyDocument, docID)
	}

	embeddings, err := p.embedChunks(ctx, contents)
	if err != nil {
		return 0, err
	}

	chunks := make([]types.Chunk, len(contents))
	for i := range contents {
		chunks[i] = types.Chunk{
			ID:        uuid.New(),
			DocID:     docID,
			Position:  i,
			Content:   contents[i],
			Embedding: embeddings[i],
			Metadata:  cloneMetadata(metadata),
		}
	}

	if err := p.store.SaveChunks(ctx, docID, chunks); err != nil {
		return 0, fmt.Errorf("persisting %s: %w", docID, err)
	}

	p.logger.Info("document ingested", "doc_id", docID, "chunks", len(chunks))
	return len(chunks), nil
}

// embedChunks fans chunk texts out over the worker pool. The result slice is
// index-addressed so a slow worker can never reorder chunks.
func (p *Pipeline) embedChunks(ctx context.Context, contents []string) ([][]float32, error) {
	embeddings := make([][]float32, len(contents))
	errs := make([]error, len(contents))

	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := p.workers
	if workers > len(contents) {
		workers = len(contents)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				embeddings[i], errs[i] = p.embedder.Embed(ctx, contents[i])
			}
		}()
	}

	for i := range contents {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %d of %d: %w", i+1, len(contents), err)
		}
	}
	return embeddings, nil
}

func cloneMetadata(metadata map[string]string) map[string]string {
	clone := make(map[string]string, len(metadata))
	for k, v := range metadata {
		clone[k] = v
	}
	return clone
}
