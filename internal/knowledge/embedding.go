package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// RetryConfig configures retry behavior for embedding calls.
type RetryConfig struct {
	MaxRetries      int           // Maximum number of retry attempts
	InitialInterval time.Duration // Initial backoff interval
	MaxInterval     time.Duration // Maximum backoff interval
}

// DefaultRetryConfig returns sensible defaults for embedding API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryablePatterns groups error substrings by category.
// Matched case-insensitively against err.Error().
//
// String matching is used because Genkit and provider SDKs do not expose
// typed errors for transient failures. Re-evaluate if Genkit adds
// structured error types in a future version.
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},      // rate limiting
	{"500", "502", "503", "504", "unavailable"},  // transient server errors
	{"connection reset", "timeout", "temporary"}, // network errors
}

// retryableError reports whether err is transient and should trigger a retry.
func retryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	errStr := err.Error()
	for _, group := range retryablePatterns {
		if containsAny(errStr, group...) {
			return true
		}
	}
	return false
}

// containsAny checks if s contains any of the substrings (case-insensitive).
func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// EmbeddingConfig configures the embedding client. Zero fields take package
// defaults; BatchSize is clamped to MaxBatchSize.
type EmbeddingConfig struct {
	Model             string
	BatchSize         int
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	Retry             RetryConfig

	// Dimensions truncates vectors to this length on providers that
	// support it (Gemini embedding models). Zero keeps the model's
	// native dimensionality.
	Dimensions int
}

// EmbeddingClient turns text into vectors through an ai.Embedder, adding
// batching, per-call timeouts, rate limiting and retry on top of the raw
// provider call.
type EmbeddingClient struct {
	embedder   ai.Embedder
	model      string
	batchSize  int
	timeout    time.Duration
	limiter    *rate.Limiter
	retry      RetryConfig
	dimensions int
	logger     *slog.Logger
}

// NewEmbeddingClient creates a client around embedder.
func NewEmbeddingClient(embedder ai.Embedder, cfg EmbeddingConfig, logger *slog.Logger) (*EmbeddingClient, error) {
	if embedder == nil {
		return nil, ErrNilEmbedder
	}
	if logger == nil {
		logger = slog.Default()
	}

	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultEmbedTimeout
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultEmbedRequestsPerSecond
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = DefaultEmbedBurst
	}

	retry := cfg.Retry
	if retry.MaxRetries <= 0 && retry.InitialInterval <= 0 {
		retry = DefaultRetryConfig()
	}

	return &EmbeddingClient{
		embedder:   embedder,
		model:      cfg.Model,
		batchSize:  batchSize,
		timeout:    timeout,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		retry:      retry,
		dimensions: cfg.Dimensions,
		logger:     logger,
	}, nil
}

// Model returns the configured embedding model identifier.
func (c *EmbeddingClient) Model() string {
	return c.model
}

// BatchSize returns the effective batch size.
func (c *EmbeddingClient) BatchSize() int {
	return c.batchSize
}

// EmbedAll embeds texts in sequential batches and returns one vector per
// input, index-aligned. When a whole batch fails, each of its texts is
// retried alone; texts that still fail get a nil vector and count toward
// skipped rather than failing the run. Only context cancellation aborts.
func (c *EmbeddingClient) EmbedAll(ctx context.Context, texts []string) ([][]float32, int, error) {
	if len(texts) == 0 {
		return nil, 0, nil
	}

	out := make([][]float32, len(texts))
	skipped := 0

	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		batch := texts[start:end]

		vectors, err := c.embedBatch(ctx, batch)
		if err == nil {
			copy(out[start:end], vectors)
			continue
		}
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}

		// Whole batch failed. Retry items one at a time so a single
		// poisoned text cannot sink its batch mates.
		c.logger.Warn("embedding batch failed, retrying items individually",
			"batch_size", len(batch),
			"error", err,
		)
		for i, text := range batch {
			single, singleErr := c.embedBatch(ctx, []string{text})
			if singleErr != nil {
				if ctx.Err() != nil {
					return nil, 0, ctx.Err()
				}
				skipped++
				c.logger.Warn("skipping chunk after failed embedding",
					"index", start+i,
					"error", singleErr,
				)
				continue
			}
			out[start+i] = single[0]
		}
	}

	return out, skipped, nil
}

// EmbedQuery embeds a single text that must succeed, such as the original
// search query.
func (c *EmbeddingClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// embedBatch embeds one batch through the provider, with retry. All errors
// come back as a *BatchError carrying the batch size.
func (c *EmbeddingClient) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	docs := make([]*ai.Document, len(texts))
	for i, text := range texts {
		docs[i] = ai.DocumentFromText(text, nil)
	}
	req := &ai.EmbedRequest{Input: docs}
	if c.dimensions > 0 {
		dim := int32(c.dimensions)
		req.Options = &genai.EmbedContentConfig{OutputDimensionality: &dim}
	}

	var resp *ai.EmbedResponse
	err := c.withRetry(ctx, func(callCtx context.Context) error {
		r, embedErr := c.embedder.Embed(callCtx, req)
		if embedErr != nil {
			return embedErr
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, &BatchError{Size: len(texts), Err: err}
	}

	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, &BatchError{
			Size: len(texts),
			Err:  fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmptyEmbedding, got, len(texts)),
		}
	}

	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Embedding) == 0 {
			return nil, &BatchError{
				Size: len(texts),
				Err:  fmt.Errorf("%w: index %d", ErrEmptyEmbedding, i),
			}
		}
		out[i] = emb.Embedding
	}
	return out, nil
}

// withRetry runs op with exponential backoff. Each attempt waits on the rate
// limiter and gets its own timeout derived from ctx.
func (c *EmbeddingClient) withRetry(ctx context.Context, op func(context.Context) error) error {
	var lastErr error
	delay := c.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := op(callCtx)
		cancel()
		if err == nil {
			if attempt > 0 {
				c.logger.Debug("embedding succeeded after retry",
					"attempts", attempt+1,
					"elapsed", time.Since(start),
				)
			}
			return nil
		}

		lastErr = err

		// The parent context going away is final even when the error
		// itself looks transient.
		if ctx.Err() != nil {
			return fmt.Errorf("embed: %w", err)
		}
		if !retryableError(err) {
			return fmt.Errorf("embed: %w", err)
		}
		if attempt == c.retry.MaxRetries {
			break
		}

		c.logger.Debug("retrying embedding after error",
			"attempt", attempt+1,
			"delay", delay,
			"elapsed", time.Since(start),
			"error", err,
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, c.retry.MaxInterval)
		}
	}

	return fmt.Errorf("embed after %d retries (elapsed: %v): %w",
		c.retry.MaxRetries, time.Since(start), lastErr)
}
