package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroundedPromptFraming(t *testing.T) {
	p := GroundedPrompt("Go was announced in 2009.", "When was Go announced?")

	require.Contains(t, p, "based ONLY on the following context")
	require.Contains(t, p, "Go was announced in 2009.")
	require.Contains(t, p, "Question: When was Go announced?")
	require.Contains(t, p, "do not make up an answer")
}

func TestOpenPromptHasNoContextFraming(t *testing.T) {
	p := OpenPrompt("What is the capital of France?")

	require.Contains(t, p, "Question: What is the capital of France?")
	require.NotContains(t, p, "context")
	require.NotContains(t, p, "ONLY")
}

func TestCountTokens(t *testing.T) {
	n, err := CountTokens("hello world, this is a prompt")
	if err != nil {
		// the encoding is fetched on first use; offline runs can't have it
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}
	require.Greater(t, n, 0)

	longer, err := CountTokens(strings.Repeat("hello world ", 100))
	require.NoError(t, err)
	require.Greater(t, longer, n)
}

func TestGenerateFirstCandidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "secret", r.URL.Query().Get("key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Contains(t, req.Contents[0].Parts[0].Text, "the question")

		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "the answer"}}}},
				{"content": map[string]any{"parts": []map[string]any{{"text": "second choice"}}}},
			},
		})
	}))
	defer srv.Close()

	g := NewGeminiGenerator(srv.URL, "gemini-2.0-flash", "secret", 0, nil)
	answer, err := g.Generate(context.Background(), "the question")
	require.NoError(t, err)
	require.Equal(t, "the answer", answer)
}

func TestGenerateNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()

	g := NewGeminiGenerator(srv.URL, "gemini-2.0-flash", "secret", 0, nil)
	_, err := g.Generate(context.Background(), "q")
	require.ErrorIs(t, err, ErrNoGeneration)
}

func TestGenerateEmptyCandidateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": ""}}}},
			},
		})
	}))
	defer srv.Close()

	g := NewGeminiGenerator(srv.URL, "gemini-2.0-flash", "secret", 0, nil)
	_, err := g.Generate(context.Background(), "q")
	require.ErrorIs(t, err, ErrNoGeneration)
}

func TestGenerateRejectsOversizedPrompt(t *testing.T) {
	if _, err := CountTokens("probe encoding availability"); err != nil {
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}

	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	g := NewGeminiGenerator(srv.URL, "gemini-2.0-flash", "secret", 10, nil)
	_, err := g.Generate(context.Background(), strings.Repeat("far too many words for the budget ", 50))
	require.ErrorIs(t, err, ErrPromptTooLarge)
	require.False(t, called, "oversized prompt must never reach the upstream service")
}

func TestGenerateWithinBudget(t *testing.T) {
	if _, err := CountTokens("probe encoding availability"); err != nil {
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "short answer"}}}},
			},
		})
	}))
	defer srv.Close()

	g := NewGeminiGenerator(srv.URL, "gemini-2.0-flash", "secret", 1000, nil)
	answer, err := g.Generate(context.Background(), "a small prompt")
	require.NoError(t, err)
	require.Equal(t, "short answer", answer)
}

func TestGenerateUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewGeminiGenerator(srv.URL, "gemini-2.0-flash", "secret", 0, nil)
	_, err := g.Generate(context.Background(), "q")
	require.ErrorIs(t, err, ErrGeneration)
}
