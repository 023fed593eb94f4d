// Package llm asks an OpenAI-compatible chat model for reasoning steps.
// Gemini is reached through its OpenAI-compatible endpoint (see GeminiBaseURL).
package llm

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/aretw0/cartography/internal/logging"
	"github.com/aretw0/cartography/pkg/domain"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	// GeminiBaseURL is Google's OpenAI-compatible endpoint.
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

	DefaultGeminiModel = "gemini-2.0-flash"
	DefaultOpenAIModel = "gpt-4o-mini"

	defaultSystemPrompt = "You are a careful thinker who explains how you reach conclusions."
)

// PromptTemplate receives the desired step count and the query.
const PromptTemplate = `Break down your reasoning about this query into %d distinct thinking steps.
Query: %s

Provide each step as a separate line in the form 'Step N: [kind] title - detail',
where kind is one of reasoning, retrieval, data or decision.
Focus on showing your cognitive process.`

// Completer is the subset of *openai.Client used by the source.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Source generates steps with one chat completion per run.
type Source struct {
	client      Completer
	baseURL     string
	model       string
	system      string
	temperature float32
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// Option configures the source.
type Option func(*Source)

// WithBaseURL targets an OpenAI-compatible endpoint other than OpenAI itself.
func WithBaseURL(url string) Option {
	return func(s *Source) {
		s.baseURL = url
	}
}

// WithModel selects the chat model.
func WithModel(model string) Option {
	return func(s *Source) {
		if model != "" {
			s.model = model
		}
	}
}

// WithSystemPrompt replaces the system persona.
func WithSystemPrompt(prompt string) Option {
	return func(s *Source) {
		s.system = prompt
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(s *Source) {
		s.temperature = t
	}
}

// WithRateLimit bounds how often the model is called.
func WithRateLimit(every rate.Limit, burst int) Option {
	return func(s *Source) {
		s.limiter = rate.NewLimiter(every, burst)
	}
}

// WithClient injects a preconfigured client, mostly for tests.
func WithClient(c Completer) Option {
	return func(s *Source) {
		s.client = c
	}
}

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// New creates a source authenticated with apiKey.
func New(apiKey string, opts ...Option) *Source {
	s := &Source{
		model:       DefaultOpenAIModel,
		system:      defaultSystemPrompt,
		temperature: 0.7,
		limiter:     rate.NewLimiter(rate.Inf, 1),
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		cfg := openai.DefaultConfig(apiKey)
		if s.baseURL != "" {
			cfg.BaseURL = s.baseURL
		}
		s.client = openai.NewClientWithConfig(cfg)
	}
	return s
}

// NewGemini creates a source that talks to Gemini.
func NewGemini(apiKey string, opts ...Option) *Source {
	base := []Option{WithBaseURL(GeminiBaseURL), WithModel(DefaultGeminiModel)}
	return New(apiKey, append(base, opts...)...)
}

// Name implements ports.Named.
func (s *Source) Name() string {
	return "llm:" + s.model
}

// GenerateSteps implements ports.StepSource. The model is called once, lazily,
// when the first step is pulled.
func (s *Source) GenerateSteps(ctx context.Context, query string, desired int) iter.Seq2[domain.Step, error] {
	return func(yield func(domain.Step, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(domain.Step{}, err)
			return
		}
		steps, err := s.complete(ctx, query, desired)
		if err != nil {
			yield(domain.Step{}, err)
			return
		}
		for _, step := range steps {
			if err := ctx.Err(); err != nil {
				yield(domain.Step{}, err)
				return
			}
			if !yield(step, nil) {
				return
			}
		}
	}
}

func (s *Source) complete(ctx context.Context, query string, desired int) ([]domain.Step, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit: %w", domain.ErrSourceUnavailable, err)
	}

	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: s.system},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(PromptTemplate, desired, query)},
		},
		Temperature: s.temperature,
	}

	s.logger.Debug("requesting reasoning steps", "model", s.model, "desired", desired)
	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		s.logger.Error("chat completion failed", "model", s.model, "error", err)
		return nil, fmt.Errorf("%w: chat completion: %w", domain.ErrSourceUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: model returned no choices", domain.ErrSourceUnavailable)
	}

	steps := ParseSteps(resp.Choices[0].Message.Content, desired)
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: model returned no steps", domain.ErrSourceUnavailable)
	}
	s.logger.Debug("received reasoning steps", "count", len(steps), "finish_reason", resp.Choices[0].FinishReason)
	return steps, nil
}
