// Package recommender implements the upstream recommendation function on top
// of the ChatGPT chat completions API.
package recommender

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/animuse/animuse/internal/domain/recommend"
	"github.com/animuse/animuse/internal/infra/llm/chatgpt"
	apperrors "github.com/animuse/animuse/pkg/errors"
	"github.com/animuse/animuse/pkg/metrics"
)

const breakerName = "chatgpt.recommendations"

// ChatClient is the subset of the ChatGPT client used here.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}

// Config tunes prompts and resilience.
type Config struct {
	Model             string
	Temperature       float32
	Prompt            string
	PromptTokenBudget int
	MaxTokens         int

	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerTimeout <= 0 {
		c.BreakerTimeout = 30 * time.Second
	}
	return c
}

// Fetcher satisfies recommend.Fetcher.
type Fetcher struct {
	cfg     Config
	client  ChatClient
	counter TokenCounter
	breaker *gobreaker.CircuitBreaker[chatgpt.ChatCompletionResponse]
	logger  *slog.Logger
}

// NewFetcher builds a Fetcher. A nil client yields the configuration warning
// on every call instead of failing.
func NewFetcher(cfg Config, client ChatClient, counter TokenCounter, logger *slog.Logger) *Fetcher {
	cfg = cfg.withDefaults()
	logger = logger.With("component", "recommender")
	if counter == nil {
		counter = NewTiktokenCounter(cfg.Model, logger)
	}
	f := &Fetcher{
		cfg:     cfg,
		client:  client,
		counter: counter,
		logger:  logger,
	}
	f.breaker = gobreaker.NewCircuitBreaker[chatgpt.ChatCompletionResponse](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			// client errors say nothing about upstream health
			var statusErr *chatgpt.StatusError
			if errors.As(err, &statusErr) {
				return !statusErr.Retryable()
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpstreamBreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	metrics.UpstreamBreakerState.WithLabelValues(breakerName).Set(float64(gobreaker.StateClosed))
	return f
}

// FetchRecommendations asks the model for req.Count recommendations.
func (f *Fetcher) FetchRecommendations(ctx context.Context, req recommend.FetchRequest) (recommend.FetchResult, error) {
	if f.client == nil {
		return recommend.FetchResult{
			Recommendations: []recommend.RawItem{},
			Error:           recommend.ConfigurationWarning,
		}, nil
	}

	prompt, promptTokens := userPrompt(req, f.counter, f.cfg.PromptTokenBudget)
	chatReq := chatgpt.ChatCompletionRequest{
		Model: f.cfg.Model,
		Messages: []chatgpt.Message{
			{Role: "system", Content: systemPrompt(f.cfg.Prompt)},
			{Role: "user", Content: prompt},
		},
		Temperature:    f.cfg.Temperature,
		MaxTokens:      f.cfg.MaxTokens,
		ResponseFormat: chatgpt.JSONObject,
	}

	resp, err := f.breaker.Execute(func() (chatgpt.ChatCompletionResponse, error) {
		return f.client.CreateChatCompletion(ctx, chatReq)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return recommend.FetchResult{}, apperrors.Wrap(apperrors.CodeLLMError, "recommendation service is temporarily unavailable", err)
		}
		return recommend.FetchResult{}, apperrors.Wrap(apperrors.CodeLLMError, "failed to call recommendation model", err)
	}
	metrics.ObserveUsage(metrics.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	})

	items, err := parseRecommendations(resp.Content())
	if err != nil {
		f.logger.Warn("unparseable recommendation response", "message_id", req.MessageID, "error", err)
		return recommend.FetchResult{}, apperrors.Wrap(apperrors.CodeLLMError, "recommendation model returned an invalid response", err)
	}
	if len(items) > req.Count && req.Count > 0 {
		items = items[:req.Count]
	}
	f.logger.Debug("recommendations received",
		"message_id", req.MessageID,
		"count", len(items),
		"prompt_tokens_estimate", promptTokens,
		"prompt_tokens", resp.Usage.PromptTokens,
	)
	return recommend.FetchResult{
		Recommendations: items,
		Debug: map[string]any{
			"model":                resp.Model,
			"messageId":            req.MessageID,
			"promptTokensEstimate": promptTokens,
			"usage":                resp.Usage,
		},
	}, nil
}

var _ recommend.Fetcher = (*Fetcher)(nil)
