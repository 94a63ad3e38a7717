package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/pders01/repo-mechanic/internal/llm"
)

// Call records one request made to a FakeGenerator
type Call struct {
	System  string
	Prompt  string
	Model   string
	Options *llm.Options
}

// Reply is one scripted answer. A non-nil Err is wrapped in llm.ErrCollaborator.
type Reply struct {
	Text string
	Err  error
}

// FakeGenerator answers Generate calls from a script, in order. When the
// script runs out, Default is returned.
type FakeGenerator struct {
	mu      sync.Mutex
	Script  []Reply
	Default Reply
	// Transcript is returned by Transcribe
	Transcript string
	// Diagram and DiagramErr are returned by GenerateDiagram
	Diagram    string
	DiagramErr error
	calls      []Call
	diagrams   []string
	// Block, when set, makes Generate wait for ctx cancellation
	Block bool
}

var _ llm.Generator = (*FakeGenerator)(nil)

// NewFakeGenerator returns a generator answering texts in order.
func NewFakeGenerator(texts ...string) *FakeGenerator {
	g := &FakeGenerator{Default: Reply{Text: "ok"}}
	for _, t := range texts {
		g.Script = append(g.Script, Reply{Text: t})
	}
	return g
}

func (g *FakeGenerator) Generate(ctx context.Context, system, prompt, model string, opts *llm.Options) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, Call{System: system, Prompt: prompt, Model: model, Options: opts})
	reply := g.Default
	if len(g.Script) > 0 {
		reply = g.Script[0]
		g.Script = g.Script[1:]
	}
	block := g.Block
	g.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", fmt.Errorf("%w: fake: %w", llm.ErrCollaborator, ctx.Err())
	}
	if reply.Err != nil {
		return "", fmt.Errorf("%w: fake: %w", llm.ErrCollaborator, reply.Err)
	}
	return reply.Text, nil
}

func (g *FakeGenerator) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: fake: empty audio", llm.ErrCollaborator)
	}
	return g.Transcript, nil
}

func (g *FakeGenerator) GenerateDiagram(ctx context.Context, source, model string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.diagrams = append(g.diagrams, source)
	if g.DiagramErr != nil {
		return "", fmt.Errorf("%w: fake: %w", llm.ErrCollaborator, g.DiagramErr)
	}
	return g.Diagram, nil
}

// DiagramSources returns the source of every GenerateDiagram call
func (g *FakeGenerator) DiagramSources() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.diagrams...)
}

// Calls returns every recorded call
func (g *FakeGenerator) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Call(nil), g.calls...)
}
