package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// DefaultHTTPHost is the default vectorizer endpoint.
const DefaultHTTPHost = "http://localhost:8001"

// HTTPPoolSize is the default HTTP connection pool size.
const HTTPPoolSize = 8

// HTTPConnectTimeout bounds the initial self-test embed used to verify the
// backend is reachable and to auto-detect dimensions.
const HTTPConnectTimeout = 10 * time.Second

// HTTPConfig configures the HTTPEmbedder.
type HTTPConfig struct {
	// Endpoint is the base URL of the embedding service, e.g.
	// "http://localhost:8001". Requests are POSTed to Endpoint+"/embed".
	Endpoint string

	// ModelID identifies the model served at Endpoint; it is sent with
	// every request and used in the cache key.
	ModelID string

	// Dimensions can be set to skip auto-detection (0 = auto-detect from
	// a self-test embed during construction).
	Dimensions int

	// MaxSeqLength is the maximum token sequence length the backend
	// accepts before truncation.
	MaxSeqLength int

	// Normalize makes HTTPEmbedder scale each returned vector to unit
	// length after the response is decoded. The flag is not sent to the
	// backend.
	Normalize bool

	// BatchSize caps how many texts are sent in a single request.
	BatchSize int

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// MaxRetries bounds transient-failure retry attempts.
	MaxRetries int

	// PoolSize sizes the HTTP connection pool.
	PoolSize int

	// SkipHealthCheck skips the constructor's self-test embed, for tests
	// and for backends that are not yet reachable at construction time.
	SkipHealthCheck bool
}

// DefaultHTTPConfig returns sensible defaults.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Endpoint:     DefaultHTTPHost,
		ModelID:      "multilingual-e5-base",
		Dimensions:   0,
		MaxSeqLength: DefaultMaxSeqLength,
		Normalize:    true,
		BatchSize:    DefaultBatchSize,
		Timeout:      DefaultTimeout,
		MaxRetries:   DefaultMaxRetries,
		PoolSize:     HTTPPoolSize,
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// HTTPEmbedder generates embeddings by calling a remote vectorizer over
// HTTP. It implements Embedder and is the production backend for the
// multilingual model configured in EmbeddingConfig.
type HTTPEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    HTTPConfig
	dims      int

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*HTTPEmbedder)(nil)

// NewHTTPEmbedder creates an HTTPEmbedder. Unless cfg.SkipHealthCheck is
// set, it performs a self-test embed to confirm the backend is reachable
// and, if cfg.Dimensions is 0, to auto-detect the embedding dimension.
func NewHTTPEmbedder(ctx context.Context, cfg HTTPConfig) (*HTTPEmbedder, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultHTTPHost
	}
	if cfg.ModelID == "" {
		cfg.ModelID = DefaultHTTPConfig().ModelID
	}
	if cfg.MaxSeqLength <= 0 {
		cfg.MaxSeqLength = DefaultMaxSeqLength
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = HTTPPoolSize
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.PoolSize,
		MaxIdleConnsPerHost: cfg.PoolSize,
		MaxConnsPerHost:     cfg.PoolSize * 2,
		IdleConnTimeout:     30 * time.Second,
	}

	// Client.Timeout is intentionally left unset; per-request timeouts
	// are applied via context so callers can bound overall search/index
	// operations independently of this embedder's own retry loop.
	client := &http.Client{Transport: transport}

	e := &HTTPEmbedder{
		client:    client,
		transport: transport,
		config:    cfg,
		dims:      cfg.Dimensions,
	}

	if !cfg.SkipHealthCheck {
		checkCtx, cancel := context.WithTimeout(ctx, HTTPConnectTimeout)
		defer cancel()

		vectors, err := e.doEmbed(checkCtx, []string{"self-test"})
		if err != nil {
			transport.CloseIdleConnections()
			return nil, fmt.Errorf("vectorizer self-test embed failed: %w", err)
		}
		if len(vectors) == 0 || len(vectors[0]) == 0 {
			transport.CloseIdleConnections()
			return nil, fmt.Errorf("vectorizer self-test returned an empty embedding")
		}
		if e.dims == 0 {
			e.dims = len(vectors[0])
		}
	}

	if e.dims == 0 {
		e.dims = DefaultDimensions
	}

	return e, nil
}

// Embed generates an embedding for a single text.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	if strings.TrimSpace(text) == "" {
		return make([]float32, e.dims), nil
	}

	vectors, err := e.doEmbedWithRetry(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts, chunking the request
// into config.BatchSize pieces and preserving input order.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	type indexedText struct {
		idx  int
		text string
	}
	var nonEmpty []indexedText
	results := make([][]float32, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			results[i] = make([]float32, e.dims)
		} else {
			nonEmpty = append(nonEmpty, indexedText{i, text})
		}
	}
	if len(nonEmpty) == 0 {
		return results, nil
	}

	for start := 0; start < len(nonEmpty); start += e.config.BatchSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		end := start + e.config.BatchSize
		if end > len(nonEmpty) {
			end = len(nonEmpty)
		}
		batch := nonEmpty[start:end]
		batchTexts := make([]string, len(batch))
		for i, it := range batch {
			batchTexts[i] = it.text
		}

		vectors, err := e.doEmbedWithRetry(ctx, batchTexts)
		if err != nil {
			return nil, fmt.Errorf("embed batch: %w", err)
		}
		for i, vec := range vectors {
			results[batch[i].idx] = vec
		}
	}

	return results, nil
}

// doEmbedWithRetry retries transient failures with exponential backoff,
// returning immediately on context cancellation.
func (e *HTTPEmbedder) doEmbedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error

	for attempt := 0; attempt < e.config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if attempt > 0 {
			backoff := time.Duration(100<<uint(attempt)) * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
		vectors, err := e.doEmbed(timeoutCtx, texts)
		cancel()

		if err == nil {
			return vectors, nil
		}
		lastErr = err

		slog.Debug("embedding_attempt_failed",
			slog.Int("attempt", attempt+1),
			slog.Int("max_retries", e.config.MaxRetries),
			slog.String("error", err.Error()))

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("embed failed after %d attempts: %w", e.config.MaxRetries, lastErr)
}

// doEmbed performs a single request, running the HTTP call in a goroutine
// so parent-context cancellation can abort the wait without waiting for the
// transport's own deadline.
func (e *HTTPEmbedder) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := embedRequest{Model: e.config.ModelID, Input: texts}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.Endpoint+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	type result struct {
		vectors [][]float32
		err     error
	}
	resultCh := make(chan result, 1)

	go func() {
		resp, err := e.client.Do(req)
		if err != nil {
			resultCh <- result{nil, err}
			return
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			resultCh <- result{nil, fmt.Errorf("vectorizer returned status %d: %s", resp.StatusCode, string(respBody))}
			return
		}

		var decoded embedResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			resultCh <- result{nil, fmt.Errorf("decode embed response: %w", err)}
			return
		}

		vectors := decoded.Embeddings
		if e.config.Normalize {
			for i, v := range vectors {
				vectors[i] = normalizeVector(v)
			}
		}
		resultCh <- result{vectors, nil}
	}()

	select {
	case <-ctx.Done():
		e.transport.CloseIdleConnections()
		select {
		case <-resultCh:
		case <-time.After(100 * time.Millisecond):
		}
		return nil, ctx.Err()
	case r := <-resultCh:
		return r.vectors, r.err
	}
}

// Dimensions returns the embedding dimension.
func (e *HTTPEmbedder) Dimensions() int { return e.dims }

// ModelID returns the configured model identifier.
func (e *HTTPEmbedder) ModelID() string { return e.config.ModelID }

// MaxSeqLength returns the configured maximum sequence length.
func (e *HTTPEmbedder) MaxSeqLength() int { return e.config.MaxSeqLength }

// Available reports whether the vectorizer backend responds to a self-test
// embed within a short timeout.
func (e *HTTPEmbedder) Available(ctx context.Context) bool {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return false
	}
	e.mu.RUnlock()

	checkCtx, cancel := context.WithTimeout(ctx, HTTPConnectTimeout)
	defer cancel()

	_, err := e.doEmbed(checkCtx, []string{"health-check"})
	return err == nil
}

// Close releases the connection pool.
func (e *HTTPEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.transport.CloseIdleConnections()
	return nil
}
