package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChatParamsValidation(t *testing.T) {
	ok := &ChatParams{Question: "q", DocIDs: []string{"doc_1"}}
	require.Empty(t, Validate(ok))

	missingQuestion := &ChatParams{DocIDs: []string{"doc_1"}}
	errs := Validate(missingQuestion)
	require.Contains(t, errs, "Question")

	emptyDocs := &ChatParams{Question: "q", DocIDs: []string{}}
	require.Contains(t, Validate(emptyDocs), "DocIDs")

	blankDocID := &ChatParams{Question: "q", DocIDs: []string{""}}
	require.NotEmpty(t, Validate(blankDocID))
}

func TestAskParamsValidation(t *testing.T) {
	require.Empty(t, Validate(&AskParams{Question: "q"}))
	require.Contains(t, Validate(&AskParams{}), "Question")
}

func TestNewDocID(t *testing.T) {
	a := NewDocID()
	b := NewDocID()

	require.True(t, strings.HasPrefix(a, "doc_"))
	require.NotEqual(t, a, b)
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "")
	t.Setenv("CHUNK_OVERLAP", "")
	t.Setenv("TOP_K", "")

	cfg := ConfigFromEnv()
	require.Equal(t, 1000, cfg.ChunkSize)
	require.Equal(t, 200, cfg.ChunkOverlap)
	require.Equal(t, 5, cfg.TopK)
	require.Equal(t, 4, cfg.EmbedWorkers)
}

func TestConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("CHUNK_OVERLAP", "50")
	t.Setenv("TOP_K", "3")

	cfg := ConfigFromEnv()
	require.Equal(t, 500, cfg.ChunkSize)
	require.Equal(t, 50, cfg.ChunkOverlap)
	require.Equal(t, 3, cfg.TopK)
}
