package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"docchat/chunker"
	"docchat/store"

	"github.com/stretchr/testify/require"
)

// countingEmbedder returns a vector derived from chunk text so tests can
// check that embeddings land on the right chunk.
type countingEmbedder struct {
	mu       sync.Mutex
	calls    int
	inflight int
	maxSeen  int
	failOn   string
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.inflight++
	if e.inflight > e.maxSeen {
		e.maxSeen = e.inflight
	}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.inflight--
		e.mu.Unlock()
	}()

	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, errors.New("embedding service unavailable")
	}
	return []float32{float32(len(text)), 1}, nil
}

func (e *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v, err := e.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func newPipeline(t *testing.T, e *countingEmbedder, s *store.MemoryStore, size, overlap, workers int) *Pipeline {
	t.Helper()
	split, err := chunker.New(size, overlap)
	require.NoError(t, err)
	return New(split, e, s, workers, nil)
}

func TestIngestTextStoresOrderedChunks(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	e := &countingEmbedder{}
	p := newPipeline(t, e, s, 20, 5, 4)

	text := strings.Repeat("abcdefghij", 10)
	count, err := p.IngestText(ctx, "doc_1", text, map[string]string{"source": "x.pdf"})
	require.NoError(t, err)
	require.Greater(t, count, 1)

	chunks, err := s.FetchByDoc(ctx, "doc_1")
	require.NoError(t, err)
	require.Len(t, chunks, count)

	for i, c := range chunks {
		require.Equal(t, i, c.Position)
		require.Equal(t, "doc_1", c.DocID)
		require.Equal(t, "x.pdf", c.Metadata["source"])
		// embedding derived from content length proves vectors were not
		// shuffled by the worker pool
		require.Equal(t, float32(len([]rune(c.Content))), c.Embedding[0])
	}
	require.Equal(t, count, e.calls)
}

func TestIngestTextEmpty(t *testing.T) {
	s := store.NewMemoryStore()
	p := newPipeline(t, &countingEmbedder{}, s, 1000, 200, 4)

	_, err := p.IngestText(context.Background(), "doc_1", "   ", nil)
	require.ErrorIs(t, err, ErrEmptyDocument)

	chunks, _ := s.FetchByDoc(context.Background(), "doc_1")
	require.Empty(t, chunks)
}

func TestIngestTextEmbeddingFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	e := &countingEmbedder{failOn: "klmno"}
	p := newPipeline(t, e, s, 10, 2, 2)

	_, err := p.IngestText(ctx, "doc_1", "abcdefghijklmnopqrstuvwxyz", nil)
	require.Error(t, err)

	chunks, _ := s.FetchByDoc(ctx, "doc_1")
	require.Empty(t, chunks, "a document with a failed embedding must not be partially stored")
}

func TestIngestTextBoundedParallelism(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	e := &countingEmbedder{}
	p := newPipeline(t, e, s, 10, 2, 3)

	_, err := p.IngestText(ctx, "doc_1", strings.Repeat("0123456789", 30), nil)
	require.NoError(t, err)
	require.LessOrEqual(t, e.maxSeen, 3, "worker pool must not exceed its bound")
}

func TestIngestIdenticalTextIdenticalBoundaries(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	p := newPipeline(t, &countingEmbedder{}, s, 15, 4, 4)

	text := strings.Repeat("repeatable input text ", 12)

	first, err := p.IngestText(ctx, "doc_a", text, nil)
	require.NoError(t, err)
	second, err := p.IngestText(ctx, "doc_b", text, nil)
	require.NoError(t, err)
	require.Equal(t, first, second)

	a, _ := s.FetchByDoc(ctx, "doc_a")
	b, _ := s.FetchByDoc(ctx, "doc_b")
	require.Equal(t, len(a), len(b))
	for i := range a {
		require.Equal(t, a[i].Content, b[i].Content)
	}
}
