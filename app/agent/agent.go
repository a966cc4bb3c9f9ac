package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrGeneration marks an upstream generation-service failure.
var ErrGeneration = errors.New("generation service failure")

// ErrNoGeneration marks a well-formed upstream response with no candidate
// text. It is surfaced as a failure, never turned into an empty answer.
var ErrNoGeneration = errors.New("generation service returned no candidates")

// ErrPromptTooLarge marks a prompt that exceeds the configured token budget.
// It is raised before the upstream call, so an oversized context never burns
// quota on a request the model would truncate.
var ErrPromptTooLarge = errors.New("prompt exceeds token budget")

// Generator forwards a finished prompt to the generative service and returns
// the first candidate's text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator calls the Google Generative Language generateContent
// endpoint.
type GeminiGenerator struct {
	apiURL    string
	model     string
	apiKey    string
	maxTokens int
	client    *http.Client
	logger    *slog.Logger
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generatePart struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []generatePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// NewGeminiGenerator builds the adapter. apiURL is the model base URL without
// the method suffix; when empty the public endpoint for the model is used.
// maxTokens caps the prompt size; zero disables the budget check.
func NewGeminiGenerator(apiURL, model, apiKey string, maxTokens int, logger *slog.Logger) *GeminiGenerator {
	if apiURL == "" {
		apiURL = fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s", model)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiGenerator{
		apiURL:    apiURL,
		model:     model,
		apiKey:    apiKey,
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: 2 * time.Minute},
		logger:    logger,
	}
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	if count, err := CountTokens(prompt); err == nil {
		g.logger.Info("sending prompt to LLM", "tokens", count, "chars", len(prompt))
		if g.maxTokens > 0 && count > g.maxTokens {
			return "", fmt.Errorf("%w: %d > %d", ErrPromptTooLarge, count, g.maxTokens)
		}
	} else if g.maxTokens > 0 {
		g.logger.Warn("token budget check skipped, encoding unavailable", "error", err)
	}

	reqBody, err := json.Marshal(generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := g.apiURL + ":generateContent?key=" + g.apiKey
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", ErrGeneration, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d, body: %s", ErrGeneration, resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", fmt.Errorf("%w: failed to unmarshal response: %v", ErrGeneration, err)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 ||
		genResp.Candidates[0].Content.Parts[0].Text == "" {
		g.logger.Error("no candidate in generation response",
			"payload_bytes", len(body), "candidates", len(genResp.Candidates))
		return "", ErrNoGeneration
	}

	g.logger.Info("LLM answer received", "took", time.Since(start))
	return genResp.Candidates[0].Content.Parts[0].Text, nil
}
