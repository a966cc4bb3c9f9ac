package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"docchat/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ErrWrite marks a persistence failure during ingestion.
var ErrWrite = errors.New("chunk store write failure")

// ChunkStorer owns chunk persistence. Similarity search is scoped to a single
// document so multi-document queries can apply a fair per-document quota.
type ChunkStorer interface {
	// SaveChunks bulk-inserts one document's chunk set. When any insert in
	// the batch fails, chunks already written for that docID are removed
	// before the error is returned, so a failed ingestion never leaves a
	// partial chunk set behind.
	SaveChunks(ctx context.Context, docID string, chunks []types.Chunk) error
	// FetchByDoc returns the document's chunks in original order, or an
	// empty slice for an unknown docID.
	FetchByDoc(ctx context.Context, docID string) ([]types.Chunk, error)
	// NearestNeighbors returns up to k chunks of docID ordered most similar
	// first, ties broken by original chunk position. Unknown docID yields an
	// empty result, not an error.
	NearestNeighbors(ctx context.Context, docID string, queryEmbedding []float32, k int) ([]types.Chunk, error)
}

type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresStore(ctx context.Context, connStr string, logger *slog.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{
		pool:   pool,
		logger: logger,
	}, nil
}

func (p *PostgresStore) SaveChunks(ctx context.Context, docID string, chunks []types.Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("%w: no chunks to save for %s", ErrWrite, docID)
	}

	query := `
    INSERT INTO chunks (id, doc_id, position, content, embedding, metadata)
    VALUES ($1, $2, $3, $4, $5, $6)
    `
	batch := &pgx.Batch{}
	for _, c := range chunks {
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("%w: metadata for chunk %d: %v", ErrWrite, c.Position, err)
		}
		batch.Queue(query, c.ID, docID, c.Position, c.Content, pgvector.NewVector(c.Embedding), meta)
	}

	results := p.pool.SendBatch(ctx, batch)
	var execErr error
	for range chunks {
		if _, err := results.Exec(); err != nil && execErr == nil {
			execErr = err
		}
	}
	if err := results.Close(); err != nil && execErr == nil {
		execErr = err
	}

	if execErr != nil {
		// remove whatever part of the batch landed, so the document is
		// either fully ingested or absent
		if err := p.deleteByDoc(ctx, docID); err != nil {
			p.logger.Error("failed to clean up partial chunk set", "doc_id", docID, "error", err)
		}
		return fmt.Errorf("%w: %v", ErrWrite, execErr)
	}
	return nil
}

func (p *PostgresStore) FetchByDoc(ctx context.Context, docID string) ([]types.Chunk, error) {
	query := `
	SELECT id, doc_id, position, content, embedding, metadata
	FROM chunks
	WHERE doc_id = $1
	ORDER BY position
	`
	rows, err := p.pool.Query(ctx, query, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []types.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (p *PostgresStore) NearestNeighbors(ctx context.Context, docID string, queryEmbedding []float32, k int) ([]types.Chunk, error) {
	if len(queryEmbedding) == 0 {
		return nil, fmt.Errorf("empty query embedding")
	}
	if k <= 0 {
		return nil, nil
	}

	vector := pgvector.NewVector(queryEmbedding)

	query := `
	SELECT id, doc_id, position, content, metadata,
	       1 - (embedding <=> $2) AS similarity
	FROM chunks
	WHERE doc_id = $1
	ORDER BY embedding <=> $2, position
	LIMIT $3
	`
	rows, err := p.pool.Query(ctx, query, docID, vector, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []types.Chunk
	for rows.Next() {
		var chunk types.Chunk
		var meta []byte
		if err := rows.Scan(
			&chunk.ID,
			&chunk.DocID,
			&chunk.Position,
			&chunk.Content,
			&meta,
			&chunk.Similarity); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(meta, &chunk.Metadata); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (p *PostgresStore) deleteByDoc(ctx context.Context, docID string) error {
	_, err := p.pool.Exec(ctx, "DELETE FROM chunks WHERE doc_id = $1", docID)
	return err
}

func scanChunk(rows pgx.Rows) (types.Chunk, error) {
	var chunk types.Chunk
	var meta []byte
	var embedding pgvector.Vector
	if err := rows.Scan(
		&chunk.ID,
		&chunk.DocID,
		&chunk.Position,
		&chunk.Content,
		&embedding,
		&meta); err != nil {
		return types.Chunk{}, err
	}
	chunk.Embedding = embedding.Slice()
	if err := json.Unmarshal(meta, &chunk.Metadata); err != nil {
		return types.Chunk{}, err
	}
	return chunk, nil
}

func (p *PostgresStore) createChunkTable(ctx context.Context) error {
	query := `
    CREATE EXTENSION IF NOT EXISTS vector;

    CREATE TABLE IF NOT EXISTS chunks (
        id UUID PRIMARY KEY,
        doc_id TEXT NOT NULL,
        position INT NOT NULL,
        content TEXT NOT NULL,
        embedding vector(768) NOT NULL,
        metadata JSONB NOT NULL DEFAULT '{}'
    );

	CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING ivfflat (embedding vector_cosine_ops)
	WITH (lists = 100);

	CREATE INDEX IF NOT EXISTS idx_chunks_doc_id ON chunks(doc_id);
    `
	_, err := p.pool.Exec(ctx, query)
	return err
}

func (p *PostgresStore) Init(ctx context.Context) error {
	return p.createChunkTable(ctx)
}

func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
		p.logger.Info("Postgres connection pool is closed")
	}
	return nil
}
