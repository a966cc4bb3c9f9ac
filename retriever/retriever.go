package retriever

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"docchat/model"
	"docchat/store"
	"docchat/types"
)

// ErrNoDocuments means the caller requested retrieval without naming any
// documents. Distinct from ErrNoContext: here nothing was even searched.
var ErrNoDocuments = errors.New("no documents requested")

// ErrNoContext means every requested document turned out to be unknown or
// empty, so there is nothing to ground an answer on.
var ErrNoContext = errors.New("no relevant context in requested documents")

// Result is the merged retrieval outcome for one question.
type Result struct {
	// Context is the chunk contents joined by paragraph separators, ordered
	// by requested document and, within a document, by similarity rank.
	Context string
	// Chunks backs Context in the same order.
	Chunks []types.Chunk
	// Skipped lists requested docIDs that had no stored chunks.
	Skipped []string
}

// Retriever embeds a question once and gathers the top-K most similar chunks
// from each requested document.
type Retriever struct {
	store    store.ChunkStorer
	embedder model.EmbedderInterface
	logger   *slog.Logger
}

func New(s store.ChunkStorer, e model.EmbedderInterface, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		store:    s,
		embedder: e,
		logger:   logger,
	}
}

// Retrieve fans out one similarity search per docID and merges the results in
// the order the docIDs were given, so the assembled context is reproducible
// regardless of which search finishes first. Duplicated docIDs are searched
// (and merged) as given. A document with no stored chunks is skipped and
// recorded, not failed; a store error fails the whole request.
func (r *Retriever) Retrieve(ctx context.Context, question string, docIDs []string, k int) (*Result, error) {
	if len(docIDs) == 0 {
		return nil, ErrNoDocuments
	}

	queryEmbedding, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	perDoc := make([][]types.Chunk, len(docIDs))
	errs := make([]error, len(docIDs))

	var wg sync.WaitGroup
	for i, docID := range docIDs {
		wg.Add(1)
		go func(i int, docID string) {
			defer wg.Done()
			chunks, err := r.store.NearestNeighbors(ctx, docID, queryEmbedding, k)
			if err != nil {
				errs[i] = fmt.Errorf("searching %s: %w", docID, err)
				return
			}
			perDoc[i] = chunks
		}(i, docID)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	result := &Result{}
	var parts []string
	for i, docID := range docIDs {
		if len(perDoc[i]) == 0 {
			r.logger.Warn("document has no stored chunks, skipping", "doc_id", docID)
			result.Skipped = append(result.Skipped, docID)
			continue
		}
		for _, c := range perDoc[i] {
			parts = append(parts, c.Content)
			result.Chunks = append(result.Chunks, c)
		}
	}

	if len(result.Chunks) == 0 {
		return nil, ErrNoContext
	}

	result.Context = strings.Join(parts, "\n\n")
	return result, nil
}
