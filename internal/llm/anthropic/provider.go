package anthropic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"cadence/internal/llm"
)

const defaultMaxTokens = 2048

// Provider implements the llm.Client interface for Anthropic (Claude) models.
type Provider struct {
	client *anthropic.Client
	model  string
	logger *slog.Logger
}

// NewProvider creates a new Anthropic provider with the given API key.
func NewProvider(apiKey, model string, logger *slog.Logger) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &Provider{
		client: &client,
		model:  model,
		logger: logger,
	}, nil
}

// Complete sends the conversation window to the model and returns the
// deserialized completion.
func (p *Provider) Complete(ctx context.Context, req *llm.Request) (*llm.Completion, error) {
	messages, system, err := convertTurns(req.Turns)
	if err != nil {
		return nil, fmt.Errorf("convert turns: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: defaultMaxTokens,
		Messages:  messages,
	}

	// Mid-history system instructions (the follow-up nudge) join the
	// top-level system prompt.
	if req.System != "" {
		system = append([]string{req.System}, system...)
	}
	if len(system) > 0 {
		blocks := make([]anthropic.TextBlockParam, 0, len(system))
		for _, text := range system {
			blocks = append(blocks, anthropic.TextBlockParam{
				Type: "text",
				Text: text,
			})
		}
		params.System = blocks
	}

	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, p.classifyError(err)
	}

	return convertMessage(message), nil
}

// classifyError maps SDK errors into the single classified error type
// the orchestration loop handles.
func (p *Provider) classifyError(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		kind := llm.FailureAPI
		if apierr.StatusCode == http.StatusTooManyRequests {
			kind = llm.FailureRateLimited
		}
		p.logger.Warn("anthropic API error", "status", apierr.StatusCode, "kind", kind)
		return &llm.ProviderError{
			Kind:    kind,
			Message: fmt.Sprintf("anthropic returned status %d", apierr.StatusCode),
			Err:     err,
		}
	}

	p.logger.Warn("anthropic transport error", "error", err)
	return &llm.ProviderError{
		Kind:    llm.FailureTransport,
		Message: "anthropic API unreachable",
		Err:     err,
	}
}
