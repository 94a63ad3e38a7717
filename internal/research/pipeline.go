// Package research runs the multi-phase deep research loop: plan, map,
// analyze and synthesize, each phase seeing the findings of the earlier ones.
package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pders01/repo-mechanic/internal/llm"
	"github.com/pders01/repo-mechanic/internal/models"
	"github.com/pders01/repo-mechanic/internal/prompts"
)

// FailureMessage is appended to the history when a phase fails.
const FailureMessage = "Mechanism failure in reasoning engine. Research pipeline terminated."

const (
	DefaultPhases         = 4
	DefaultPhaseDelay     = 800 * time.Millisecond
	DefaultThinkingBudget = 32768
)

// State is the pipeline lifecycle state
type State int

const (
	StateIdle State = iota
	StateRunning
	StateComplete
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateComplete:
		return "complete"
	case StateAborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// HistoryStore is the part of the session store the pipeline writes to.
type HistoryStore interface {
	SetHistory(m models.Mode, history []models.ChatMessage) error
	Append(m models.Mode, msgs ...models.ChatMessage) error
	SetProgress(m models.Mode, progress int) error
}

// Config tunes a pipeline run
type Config struct {
	Phases         int
	PhaseDelay     time.Duration
	Model          string
	ThinkingBudget int32
}

// Pipeline drives research phases against a generator and records every
// step in the deep_research history of a store.
type Pipeline struct {
	gen    llm.Generator
	store  HistoryStore
	cfg    Config
	logger *zap.Logger

	// Sleep pauses between phases. It is not interrupted by cancellation.
	Sleep func(time.Duration)

	// OnPhase, when set, is called after each completed phase.
	OnPhase func(phase int, name, text string)

	state State
}

// New returns an idle pipeline. Zero config values take the defaults.
func New(gen llm.Generator, store HistoryStore, cfg Config, logger *zap.Logger) *Pipeline {
	if cfg.Phases <= 0 {
		cfg.Phases = DefaultPhases
	}
	if cfg.PhaseDelay < 0 {
		cfg.PhaseDelay = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		gen:    gen,
		store:  store,
		cfg:    cfg,
		logger: logger,
		Sleep:  time.Sleep,
	}
}

// State returns the lifecycle state of the last run
func (p *Pipeline) State() State {
	return p.state
}

// Phases returns the configured phase count
func (p *Pipeline) Phases() int {
	return p.cfg.Phases
}

// Run restarts research on objective. The history is replaced with the
// objective and progress is reset before the first phase. On a phase
// failure the completed phases stay in the history, a failure entry is
// appended and the error is returned.
func (p *Pipeline) Run(ctx context.Context, repo *models.RepositoryContext, objective string) error {
	if repo == nil || len(repo.Files) == 0 {
		return errors.New("no repository files to research")
	}
	objective = strings.TrimSpace(objective)
	if objective == "" {
		return errors.New("research objective must not be empty")
	}

	if err := p.store.SetHistory(models.ModeResearch, []models.ChatMessage{models.UserMessage(objective)}); err != nil {
		return fmt.Errorf("failed to start research: %w", err)
	}
	if err := p.store.SetProgress(models.ModeResearch, 0); err != nil {
		return fmt.Errorf("failed to start research: %w", err)
	}
	p.state = StateRunning

	n := p.cfg.Phases
	var findings strings.Builder
	opts := &llm.Options{ThinkingBudget: p.cfg.ThinkingBudget}

	for i := 1; i <= n; i++ {
		name := prompts.PhaseName(i, n)
		p.logger.Debug("research phase", zap.Int("phase", i), zap.Int("of", n), zap.String("name", name))

		text, err := p.gen.Generate(ctx,
			prompts.ResearchSystem(repo, i, n),
			prompts.ResearchPrompt(repo, objective, i, n, findings.String()),
			p.cfg.Model, opts)
		if err != nil {
			p.state = StateAborted
			p.logger.Warn("research phase failed", zap.Int("phase", i), zap.String("name", name), zap.Error(err))
			if aerr := p.store.Append(models.ModeResearch, models.AssistantMessage(FailureMessage)); aerr != nil {
				return errors.Join(fmt.Errorf("phase %d (%s) failed: %w", i, name, err), aerr)
			}
			return fmt.Errorf("phase %d (%s) failed: %w", i, name, err)
		}

		if err := p.store.Append(models.ModeResearch, models.PhaseMessage(i, text)); err != nil {
			p.state = StateAborted
			return fmt.Errorf("failed to record phase %d: %w", i, err)
		}
		fmt.Fprintf(&findings, "\n\nPhase %d Results:\n%s", i, text)
		if err := p.store.SetProgress(models.ModeResearch, i); err != nil {
			p.state = StateAborted
			return fmt.Errorf("failed to record phase %d: %w", i, err)
		}
		if p.OnPhase != nil {
			p.OnPhase(i, name, text)
		}

		if i < n && p.cfg.PhaseDelay > 0 {
			p.Sleep(p.cfg.PhaseDelay)
		}
	}

	p.state = StateComplete
	return nil
}
