package ai

import (
	"context"
	"errors"
	"time"

	"rag-chat-backend/internal/config"
	"rag-chat-backend/internal/logger"

	"github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// Completer generates an answer for a fully assembled prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// GeminiCompleter wraps the Gemini generation endpoint with a circuit
// breaker and a client-side rate limiter.
type GeminiCompleter struct {
	client      *genai.Client
	model       string
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
}

func NewGeminiCompleter(ctx context.Context, cfg *config.Config) (*GeminiCompleter, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, &CompletionError{Reason: "client init failed", Err: err}
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiCompletion",
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

	// 10 rpm free tier with some buffer
	rateLimiter := rate.NewLimiter(rate.Limit(9.0/60.0), 2)

	return &GeminiCompleter{
		client:      client,
		model:       cfg.CompletionModel,
		breaker:     breaker,
		rateLimiter: rateLimiter,
	}, nil
}

func (c *GeminiCompleter) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", &CompletionError{Reason: "rate limiter interrupted", Err: err}
	}

	var answer string
	err := withRetry(ctx, func() error {
		result, err := c.breaker.Execute(func() (interface{}, error) {
			model := c.client.GenerativeModel(c.model)
			model.SetTemperature(float32(temperature))
			model.SetMaxOutputTokens(int32(maxTokens))

			resp, err := model.GenerateContent(ctx, genai.Text(prompt))
			if err != nil {
				return nil, err
			}
			return resp, nil
		})
		if err != nil {
			return err
		}

		text := extractText(result.(*genai.GenerateContentResponse))
		if text == "" {
			return &CompletionError{Reason: "empty completion", Retryable: true}
		}
		answer = text
		return nil
	}, func(err error) bool {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return false
		}
		var compErr *CompletionError
		if errors.As(err, &compErr) {
			return compErr.Retryable
		}
		return isTransient(err)
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", &CompletionError{Reason: "circuit breaker open", Retryable: false, Err: err}
		}
		var compErr *CompletionError
		if errors.As(err, &compErr) {
			return "", compErr
		}
		return "", &CompletionError{Reason: "generate content failed", Retryable: isTransient(err), Err: err}
	}

	return answer, nil
}

func (c *GeminiCompleter) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractText flattens the candidate parts of a generation response.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	text := ""
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text += string(t)
			}
		}
	}
	return text
}
