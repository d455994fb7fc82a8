package ai

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"chatdocs-rag/internal/logger"
	"chatdocs-rag/models"
)

// Embedder computes a fixed-length vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GeminiEmbedder calls the Google Generative AI embeddings API behind a
// circuit breaker and the provider tier's request, token, and daily limits.
type GeminiEmbedder struct {
	client       *genai.Client
	model        string
	breaker      *gobreaker.CircuitBreaker
	limiter      *rate.Limiter
	tokenLimiter *rate.Limiter

	mu       sync.Mutex
	dayStart time.Time
	dayCount int
	dailyCap int
}

type RateLimits struct {
	RPM int // Requests per minute
	TPM int // Tokens per minute
	RPD int // Requests per day
}

func getRateLimits(tier string) RateLimits {
	switch tier {
	case "free":
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	case "tier1":
		return RateLimits{RPM: 1000, TPM: 1000000, RPD: 10000}
	case "tier2":
		return RateLimits{RPM: 2000, TPM: 4000000, RPD: 50000}
	default:
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	}
}

// NewGeminiEmbedder creates an embedder for the given API key and tier.
func NewGeminiEmbedder(ctx context.Context, apiKey, model, tier string) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing GEMINI_API_KEY for embeddings", models.ErrConfiguration)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = "text-embedding-004"
	}

	limits := getRateLimits(tier)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiEmbeddings",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	// Request and token limits with some buffer
	limiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), limits.RPM/10)
	tokenLimiter := rate.NewLimiter(rate.Limit(float64(limits.TPM)*0.9/60.0), limits.TPM/60)

	return &GeminiEmbedder{
		client:       client,
		model:        model,
		breaker:      breaker,
		limiter:      limiter,
		tokenLimiter: tokenLimiter,
		dailyCap:     limits.RPD,
	}, nil
}

// estimateTokens approximates the provider's token count from the byte
// length. Close enough for rate limiting, not for billing.
func estimateTokens(text string) int {
	return len(text)/4 + 1
}

// checkDailyQuota enforces the tier's requests-per-day cap, resetting the
// counter on UTC day rollover.
func (e *GeminiEmbedder) checkDailyQuota() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	today := time.Now().UTC().Truncate(24 * time.Hour)
	if e.dayStart.Before(today) {
		e.dayStart = today
		e.dayCount = 0
	}
	if e.dayCount >= e.dailyCap {
		return fmt.Errorf("%w: daily request quota exhausted (%d)", models.ErrEmbedding, e.dailyCap)
	}
	e.dayCount++
	return nil
}

// Embed returns the embedding vector for the given text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	tracer := otel.Tracer("gemini-embedder")
	ctx, span := tracer.Start(ctx, "gemini.embed_content")
	defer span.End()
	span.SetAttributes(
		attribute.String("gemini.model", e.model),
		attribute.Int("gemini.text_chars", len(text)),
	)

	if err := e.checkDailyQuota(); err != nil {
		return nil, err
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", models.ErrEmbedding, err)
	}
	tokens := estimateTokens(text)
	if burst := e.tokenLimiter.Burst(); tokens > burst {
		tokens = burst
	}
	if err := e.tokenLimiter.WaitN(ctx, tokens); err != nil {
		return nil, fmt.Errorf("%w: token rate limiter: %v", models.ErrEmbedding, err)
	}

	result, err := e.breaker.Execute(func() (interface{}, error) {
		model := e.client.EmbeddingModel(e.model)
		resp, err := model.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, err
		}
		if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
			return nil, fmt.Errorf("no embedding returned")
		}
		return resp.Embedding.Values, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return nil, fmt.Errorf("%w: embeddings backend unavailable (circuit open)", models.ErrEmbedding)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrEmbedding, err)
	}

	return result.([]float32), nil
}

// Close releases the underlying API client.
func (e *GeminiEmbedder) Close() error {
	return e.client.Close()
}
