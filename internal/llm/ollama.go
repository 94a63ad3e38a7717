package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

const (
	// DefaultOllamaModel is used when a call names no model
	DefaultOllamaModel = "llama3.2"
	// DefaultOllamaURL is the default Ollama API endpoint
	DefaultOllamaURL = "http://localhost:11434"
	// DefaultEmbeddingModel is the recommended embedding model
	DefaultEmbeddingModel = "nomic-embed-text"
)

// Ollama generates text with a local Ollama server.
type Ollama struct {
	client *api.Client
	base   string
	model  string
	logger *zap.Logger
}

// NewOllama creates an Ollama backend for baseURL. A nil httpClient uses
// http.DefaultClient.
func NewOllama(baseURL, model string, httpClient *http.Client, logger *zap.Logger) (*Ollama, error) {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ollama{
		client: api.NewClient(u, httpClient),
		base:   baseURL,
		model:  pickModel(model, DefaultOllamaModel),
		logger: logger,
	}, nil
}

// Model returns the default model
func (o *Ollama) Model() string {
	return o.model
}

// IsAvailable checks if Ollama is running and accessible
func IsAvailable(baseURL string) bool {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// CheckModel checks if model has been pulled
func (o *Ollama) CheckModel(ctx context.Context, model string) error {
	model = pickModel(model, o.model)

	listResp, err := o.client.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	for _, m := range listResp.Models {
		if m.Name == model || strings.TrimSuffix(m.Name, ":latest") == model {
			return nil
		}
	}
	return fmt.Errorf("model '%s' not found - run: ollama pull %s", model, model)
}

func (o *Ollama) Generate(ctx context.Context, system, prompt, model string, opts *Options) (string, error) {
	model = pickModel(model, o.model)
	// Gemini model ids are meaningless to a local server
	if strings.HasPrefix(model, "gemini") {
		model = o.model
	}

	messages := make([]api.Message, 0, 2)
	if system != "" {
		messages = append(messages, api.Message{Role: "system", Content: system})
	}
	messages = append(messages, api.Message{Role: "user", Content: prompt})

	stream := false
	req := &api.ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   &stream,
	}

	o.logger.Debug("ollama chat", zap.String("model", model), zap.Int("prompt_bytes", len(prompt)))

	var out strings.Builder
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		out.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", wrap("ollama", err)
	}
	return out.String(), nil
}

func (o *Ollama) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	return "", fmt.Errorf("ollama transcription: %w", ErrUnsupported)
}

func (o *Ollama) GenerateDiagram(ctx context.Context, source, model string) (string, error) {
	return generateDiagram(ctx, o, source, model)
}

// Embed returns one embedding per input using model.
func (o *Ollama) Embed(ctx context.Context, model string, inputs []string) ([][]float64, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("inputs cannot be empty")
	}
	model = pickModel(model, DefaultEmbeddingModel)

	resp, err := o.client.Embed(ctx, &api.EmbedRequest{Model: model, Input: inputs})
	if err != nil {
		return nil, wrap("ollama", fmt.Errorf("failed to generate embedding: %w", err))
	}
	if len(resp.Embeddings) != len(inputs) {
		return nil, wrap("ollama", fmt.Errorf("expected %d embeddings, got %d", len(inputs), len(resp.Embeddings)))
	}

	// Convert from []float32 to []float64
	out := make([][]float64, len(resp.Embeddings))
	for i, e32 := range resp.Embeddings {
		e64 := make([]float64, len(e32))
		for j, v := range e32 {
			e64[j] = float64(v)
		}
		out[i] = e64
	}
	return out, nil
}
