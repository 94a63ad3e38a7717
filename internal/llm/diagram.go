package llm

import (
	"context"
	"strings"
)

const diagramSystemPrompt = `You convert technical explanations into Mermaid diagrams.
Return ONLY Mermaid source. Do not wrap it in markdown fences and do not add commentary.
Prefer "graph TD" for structure and "sequenceDiagram" for interactions.
Quote node labels that contain punctuation. Keep the diagram under 40 nodes.`

type textGenerator interface {
	Generate(ctx context.Context, system, prompt, model string, opts *Options) (string, error)
}

func generateDiagram(ctx context.Context, g textGenerator, source, model string) (string, error) {
	prompt := "Create a diagram of the mechanisms described below.\n\n" + source
	out, err := g.Generate(ctx, diagramSystemPrompt, prompt, model, nil)
	if err != nil {
		return "", err
	}
	return ExtractDiagram(out), nil
}

// ExtractDiagram returns the Mermaid source in text, removing a surrounding
// code fence and any chatter before it.
func ExtractDiagram(text string) string {
	text = strings.TrimSpace(text)

	start := strings.Index(text, "```")
	if start < 0 {
		return text
	}
	body := text[start+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// drop the info string, e.g. ```mermaid
		body = body[nl+1:]
	} else {
		body = ""
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}
