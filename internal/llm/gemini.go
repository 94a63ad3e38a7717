package llm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	// DefaultGeminiModel is used when a call names no model
	DefaultGeminiModel = "gemini-3-flash-preview"

	transcribeInstruction = "Transcribe this audio exactly as heard."
)

// Gemini generates text through the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGemini creates a Gemini backend. The key is required.
func NewGemini(ctx context.Context, apiKey, model string, logger *zap.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required (set llm.api_key or GEMINI_API_KEY)")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gemini{client: client, model: pickModel(model, DefaultGeminiModel), logger: logger}, nil
}

func (g *Gemini) Generate(ctx context.Context, system, prompt, model string, opts *Options) (string, error) {
	model = pickModel(model, g.model)

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if opts != nil && opts.ThinkingBudget > 0 {
		config.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(opts.ThinkingBudget)}
	}

	g.logger.Debug("gemini generate", zap.String("model", model), zap.Int("prompt_bytes", len(prompt)))
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return "", wrap("gemini", err)
	}
	return resp.Text(), nil
}

func (g *Gemini) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "audio/wav"
	}
	parts := []*genai.Part{
		genai.NewPartFromBytes(audio, mimeType),
		genai.NewPartFromText(transcribeInstruction),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", wrap("gemini", err)
	}
	return resp.Text(), nil
}

func (g *Gemini) GenerateDiagram(ctx context.Context, source, model string) (string, error) {
	return generateDiagram(ctx, g, source, model)
}
