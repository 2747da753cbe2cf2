// Package openai implements the text generation gateway over the
// OpenAI-compatible chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/cvk03/-Market-intelligence-agent/internal/domain"
	"github.com/cvk03/-Market-intelligence-agent/internal/metrics"
)

const systemPrompt = "You are an insurance market analyst. Answer using only the market data provided in the prompt."

// Gateway generates analysis text with an OpenAI-compatible chat model.
type Gateway struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	logger      *zap.Logger
}

// Config holds the generation gateway settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	Logger      *zap.Logger
}

// NewGateway creates an OpenAI-compatible generation gateway.
func NewGateway(cfg *Config) *Gateway {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Gateway{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		logger:      cfg.Logger,
	}
}

// Generate implements domain.Generator. The call is bounded by the configured
// timeout in addition to any deadline already on ctx.
func (g *Gateway) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return "", classifyError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return "", domain.NewGenerationError(domain.GenerationTransient,
			errors.New("completion response has no choices"))
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.model).Observe(duration.Seconds())

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", domain.NewGenerationError(domain.GenerationRejected,
			errors.New("completion stopped by content filter"))
	}

	g.logger.Debug("generation complete",
		zap.String("model", g.model),
		zap.Duration("duration", duration),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return choice.Message.Content, nil
}

// classifyError maps API failures onto the generation error taxonomy.
// Rate limits, server errors, timeouts and network faults are transient;
// content-policy rejections are not.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		kind := kindForStatus(apiErr.HTTPStatusCode, apiErr.Type, apiErr.Message)
		return domain.NewGenerationError(kind,
			fmt.Errorf("completion API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message))
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		kind := kindForStatus(reqErr.HTTPStatusCode, "", string(reqErr.Body))
		return domain.NewGenerationError(kind,
			fmt.Errorf("completion API error %d: %s", reqErr.HTTPStatusCode, string(reqErr.Body)))
	}

	return domain.NewGenerationError(domain.GenerationTransient,
		fmt.Errorf("completion request failed: %w", err))
}

func kindForStatus(status int, errType, message string) domain.GenerationKind {
	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		return domain.GenerationTransient
	}
	if isPolicyRejection(errType, message) {
		return domain.GenerationRejected
	}
	if status == http.StatusBadRequest || status == http.StatusForbidden {
		return domain.GenerationRejected
	}
	return domain.GenerationTransient
}

func isPolicyRejection(errType, message string) bool {
	msg := strings.ToLower(message)
	return errType == "invalid_request_error" &&
		(strings.Contains(msg, "content") || strings.Contains(msg, "policy") ||
			strings.Contains(msg, "filter"))
}
