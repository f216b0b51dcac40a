// Package ratelimit wraps an embedding service with a token bucket so bulk
// ingestion stays under a provider's request quota.
package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultBackoff is how long requests pause after the provider reports 429.
const DefaultBackoff = 20 * time.Second

// Config holds rate limiting configuration.
type Config struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64

	// BurstSize is the maximum burst size (default: 1).
	BurstSize int

	// Backoff is the pause after a rate limit response (default: 20s).
	Backoff time.Duration
}

// EmbeddingService limits the request rate of an inner embedding service.
type EmbeddingService struct {
	inner   driven.EmbeddingService
	limiter *rate.Limiter
	backoff time.Duration

	mu      sync.Mutex
	retryAt time.Time
}

// Wrap returns inner unchanged when cfg sets no rate, otherwise a limited
// service.
func Wrap(inner driven.EmbeddingService, cfg Config) driven.EmbeddingService {
	if cfg.RequestsPerSecond <= 0 {
		return inner
	}
	return New(inner, cfg)
}

// New creates a rate limited embedding service.
func New(inner driven.EmbeddingService, cfg Config) *EmbeddingService {
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	return &EmbeddingService{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		backoff: cfg.Backoff,
	}
}

// wait blocks until a request may be sent. It honours any backoff set by
// a previous rate limit response.
func (s *EmbeddingService) wait(ctx context.Context) error {
	s.mu.Lock()
	retryAt := s.retryAt
	s.mu.Unlock()

	if time.Now().Before(retryAt) {
		timer := time.NewTimer(time.Until(retryAt))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return s.limiter.Wait(ctx)
}

func (s *EmbeddingService) observe(err error) {
	if !isRateLimited(err) {
		return
	}
	s.mu.Lock()
	s.retryAt = time.Now().Add(s.backoff)
	s.mu.Unlock()
}

// Embed waits for a token, then embeds text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	v, err := s.inner.Embed(ctx, text)
	s.observe(err)
	return v, err
}

// EmbedBatch waits for a single token per batch request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	v, err := s.inner.EmbedBatch(ctx, texts)
	s.observe(err)
	return v, err
}

// Dimensions returns the inner service's vector size.
func (s *EmbeddingService) Dimensions() int { return s.inner.Dimensions() }

// ModelName returns the inner service's model.
func (s *EmbeddingService) ModelName() string { return s.inner.ModelName() }

// Ping is not rate limited.
func (s *EmbeddingService) Ping(ctx context.Context) error { return s.inner.Ping(ctx) }

// Close closes the inner service.
func (s *EmbeddingService) Close() error { return s.inner.Close() }

func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
