package types

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Chunk is the unit of retrieval: a bounded slice of document text together
// with its embedding. Position keeps the original text order within the
// owning document.
type Chunk struct {
	ID        uuid.UUID
	DocID     string
	Position  int
	Content   string
	Embedding []float32
	Metadata  map[string]string
	// Similarity is filled on the search path only: cosine similarity of
	// this chunk's embedding to the query embedding.
	Similarity float64
}

// NewDocID generates a document identifier at ingestion time. The timestamp
// prefix keeps ids sortable by upload time, the uuid suffix keeps concurrent
// uploads within the same nanosecond apart.
func NewDocID() string {
	return fmt.Sprintf("doc_%d_%s", time.Now().UnixNano(), uuid.NewString()[:8])
}

type Config struct {
	ListenAddr      string
	ChunkSize       int
	ChunkOverlap    int
	TopK            int
	EmbedWorkers    int
	EmbedURL        string
	GenerateURL     string
	GeminiAPIKey    string
	EmbeddingModel  string
	GenerationModel string
	MaxPromptTokens int
	UploadDir       string
}

const (
	defaultChunkSize       = 1000
	defaultChunkOverlap    = 200
	defaultTopK            = 5
	defaultEmbedWorkers    = 4
	defaultMaxPromptTokens = 6000
)

// ConfigFromEnv reads the runtime configuration from environment variables,
// falling back to defaults where a variable is unset.
func ConfigFromEnv() Config {
	return Config{
		ListenAddr:      envOr("SERVER_ADDR", ":8080"),
		ChunkSize:       envInt("CHUNK_SIZE", defaultChunkSize),
		ChunkOverlap:    envInt("CHUNK_OVERLAP", defaultChunkOverlap),
		TopK:            envInt("TOP_K", defaultTopK),
		EmbedWorkers:    envInt("EMBED_WORKERS", defaultEmbedWorkers),
		EmbedURL:        os.Getenv("GEMINI_EMBED_URL"),
		GenerateURL:     os.Getenv("GEMINI_GENERATE_URL"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		EmbeddingModel:  envOr("GEMINI_EMBEDDING_MODEL", "embedding-001"),
		GenerationModel: envOr("GEMINI_GENERATION_MODEL", "gemini-2.0-flash"),
		MaxPromptTokens: envInt("MAX_PROMPT_TOKENS", defaultMaxPromptTokens),
		UploadDir:       envOr("UPLOAD_DIR", os.TempDir()),
	}
}

// PostgresDSN assembles the connection string from the PG_* environment
// variables.
func PostgresDSN() string {
	port, _ := strconv.Atoi(os.Getenv("PG_PORT"))
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		os.Getenv("PG_HOST"), port, os.Getenv("PG_USER"), os.Getenv("PG_PASS"), os.Getenv("PG_DB_NAME"))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
