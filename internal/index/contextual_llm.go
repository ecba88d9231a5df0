package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/knowledgeengine/core/internal/chunk"
)

// Default LLM context generator configuration.
const (
	DefaultContextModel   = "qwen3:0.6b"
	DefaultContextTimeout = 5 * time.Second
	DefaultContextHost    = "http://localhost:11434"
)

// LLMContextGenerator generates context using an Ollama-compatible
// /api/generate endpoint, with a small fast model optimized for short,
// low-latency completions.
type LLMContextGenerator struct {
	client *http.Client
	config ContextGeneratorConfig
}

type llmGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type llmGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

const contextPromptTemplate = `You are analyzing a multilingual document. Generate a 1-2 sentence context for this passage.

Source: %s

Document context:
%s

Passage:
%s

Instructions:
- Describe what this passage is about and where it sits in the document
- Respond in the same language as the passage
- Keep it under 100 tokens
- Output ONLY the context, no preamble

Context:`

// NewLLMContextGenerator creates a new LLM-based context generator.
func NewLLMContextGenerator(config ContextGeneratorConfig) (*LLMContextGenerator, error) {
	if config.Host == "" {
		config.Host = DefaultContextHost
	}
	if config.Model == "" {
		config.Model = DefaultContextModel
	}

	timeout := DefaultContextTimeout
	if config.Timeout != "" {
		if parsed, err := time.ParseDuration(config.Timeout); err == nil {
			timeout = parsed
		}
	}

	return &LLMContextGenerator{
		client: &http.Client{Timeout: timeout},
		config: config,
	}, nil
}

// GenerateContext generates context for a single chunk.
func (l *LLMContextGenerator) GenerateContext(ctx context.Context, c *chunk.Chunk, docContext string) (string, error) {
	if c == nil {
		return "", nil
	}

	prompt := fmt.Sprintf(contextPromptTemplate, c.SourceDoc, docContext, truncateContent(c.Content, 1500))

	response, err := l.generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "Context:")
	return strings.TrimSpace(response), nil
}

// GenerateBatch generates context for multiple chunks from the same
// document, reusing docContext across the batch.
func (l *LLMContextGenerator) GenerateBatch(ctx context.Context, chunks []*chunk.Chunk, docContext string) ([]string, error) {
	results := make([]string, len(chunks))

	for i, c := range chunks {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		generated, err := l.GenerateContext(ctx, c, docContext)
		if err != nil {
			slog.Debug("LLM context generation failed, using empty",
				slog.String("chunk_hash", c.Hash),
				slog.String("error", err.Error()))
			results[i] = ""
			continue
		}
		results[i] = generated
	}

	return results, nil
}

func (l *LLMContextGenerator) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := llmGenerateRequest{Model: l.config.Model, Prompt: prompt, Stream: false}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := l.config.Host + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var genResp llmGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return genResp.Response, nil
}

// Available checks if the backend is reachable.
func (l *LLMContextGenerator) Available(ctx context.Context) bool {
	url := l.config.Host + "/api/tags"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req = req.WithContext(ctx)

	resp, err := l.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// ModelName returns the model being used.
func (l *LLMContextGenerator) ModelName() string {
	return l.config.Model
}

// Close is a no-op for the LLM generator; it holds no long-lived resources.
func (l *LLMContextGenerator) Close() error {
	return nil
}

func truncateContent(content string, maxLen int) string {
	if len(content) <= maxLen {
		return content
	}
	return content[:maxLen] + "\n... [truncated]"
}
