package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const explainSystemPrompt = "You are a concise career assistant. In one or two sentences, " +
	"explain why the given job posting matches the candidate's search. " +
	"Mention the strongest overlap (title, skills, or location). Do not invent details."

// ExplainerConfig holds the chat completion settings for match explanations.
type ExplainerConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	RequestsPerSec float64
	Timeout        time.Duration
	Logger         *zap.Logger
}

// Explainer generates one-line match explanations via an OpenAI-compatible
// chat API. Calls are rate limited and go through a circuit breaker so a
// degraded LLM provider cannot stall the search path.
type Explainer struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[string]
	timeout time.Duration
	logger  *zap.Logger
}

// NewExplainer creates a chat-based explanation provider.
func NewExplainer(cfg *ExplainerConfig) *Explainer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	logger := cfg.Logger
	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:    "explain",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Explainer circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Explainer{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		breaker: breaker,
		timeout: timeout,
		logger:  logger,
	}
}

// Explain returns a short natural-language reason why the posting matches
// the query.
func (e *Explainer) Explain(ctx context.Context, query, jobSummary string) (string, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("explain rate limit: %w", err)
	}

	return e.breaker.Execute(func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		resp, err := e.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model:       e.model,
			MaxTokens:   120,
			Temperature: 0.2,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: explainSystemPrompt},
				{
					Role: openai.ChatMessageRoleUser,
					Content: fmt.Sprintf("Search query: %s\n\nJob posting:\n%s",
						query, jobSummary),
				},
			},
		})
		if err != nil {
			return "", fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("empty chat completion response")
		}

		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	})
}
