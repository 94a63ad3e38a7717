package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

const (
	// DefaultAnthropicModel is used when a call names no model
	DefaultAnthropicModel = "claude-sonnet-4-5-20250929"

	anthropicMaxTokens = 8192
)

// Anthropic generates text through the Messages API. Thinking budgets are
// ignored.
type Anthropic struct {
	client anthropic.Client
	model  string
	logger *zap.Logger
}

// NewAnthropic creates an Anthropic backend. The key is required.
func NewAnthropic(apiKey, model string, logger *zap.Logger, opts ...option.RequestOption) (*Anthropic, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic API key is required (set llm.api_key or ANTHROPIC_API_KEY)")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Anthropic{
		client: anthropic.NewClient(opts...),
		model:  anthropicModel(model, DefaultAnthropicModel),
		logger: logger,
	}, nil
}

func (a *Anthropic) Generate(ctx context.Context, system, prompt, model string, opts *Options) (string, error) {
	model = anthropicModel(model, a.model)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	a.logger.Debug("anthropic generate", zap.String("model", model), zap.Int("prompt_bytes", len(prompt)))
	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", wrap("anthropic", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", wrap("anthropic", fmt.Errorf("no text in response (stop reason %s)", resp.StopReason))
	}
	return text.String(), nil
}

// anthropicModel returns model when it names a Claude model and fallback
// otherwise. The configured default is usually a Gemini id.
func anthropicModel(model, fallback string) string {
	model = strings.TrimSpace(model)
	if strings.HasPrefix(model, "claude") {
		return model
	}
	return fallback
}

func (a *Anthropic) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	return "", fmt.Errorf("anthropic transcription: %w", ErrUnsupported)
}

func (a *Anthropic) GenerateDiagram(ctx context.Context, source, model string) (string, error) {
	return generateDiagram(ctx, a, source, model)
}
