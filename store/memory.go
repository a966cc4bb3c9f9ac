package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"docchat/types"
)

// MemoryStore is a brute-force cosine-similarity store keyed by docID. It
// backs tests and database-less runs; the RWMutex gives the same concurrent
// reader/writer guarantees the Postgres store gets from its pool.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]types.Chunk
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string][]types.Chunk),
	}
}

func (m *MemoryStore) SaveChunks(ctx context.Context, docID string, chunks []types.Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("%w: no chunks to save for %s", ErrWrite, docID)
	}
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("%w: chunk %d of %s has no embedding", ErrWrite, c.Position, docID)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[docID] = append(m.docs[docID], chunks...)
	return nil
}

func (m *MemoryStore) FetchByDoc(ctx context.Context, docID string) ([]types.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.docs[docID]
	chunks := make([]types.Chunk, len(stored))
	copy(chunks, stored)
	return chunks, nil
}

func (m *MemoryStore) NearestNeighbors(ctx context.Context, docID string, queryEmbedding []float32, k int) ([]types.Chunk, error) {
	if len(queryEmbedding) == 0 {
		return nil, fmt.Errorf("empty query embedding")
	}
	if k <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.docs[docID]
	if len(stored) == 0 {
		return nil, nil
	}

	scored := make([]types.Chunk, len(stored))
	copy(scored, stored)
	for i := range scored {
		scored[i].Similarity = cosine(queryEmbedding, scored[i].Embedding)
	}

	// chunks are stored in position order, so the stable sort breaks
	// similarity ties by original chunk order
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
