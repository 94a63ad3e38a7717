// Package analysis runs the chat modes, wiki synthesis and diagram
// generation on top of an llm.Generator and the session store.
package analysis

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

// FailureMessage is appended to a chat history when the collaborator fails.
const FailureMessage = "Mechanism failure in reasoning engine. Connection lost."

// ErrNotChatMode is returned when a turn is sent to a mode that does not chat.
var ErrNotChatMode = errors.New("mode does not accept chat turns")

// ErrEmptyContext is returned when the derived context has no files.
var ErrEmptyContext = errors.New("no files match the current filter")

// Store is the part of the session store the services use.
type Store interface {
	History(m models.Mode) []models.ChatMessage
	Append(m models.Mode, msgs ...models.ChatMessage) error
	SetWiki(w *models.WikiStructure) error
}

// Service answers chat turns and produces wiki and diagram output.
type Service struct {
	gen    llm.Generator
	store  Store
	model  string
	logger *zap.Logger

	// DiagramConcurrency bounds concurrent diagram requests
	DiagramConcurrency int
	// Now stamps persona prompts
	Now func() time.Time
}

// New returns a Service generating with model.
func New(gen llm.Generator, store Store, model string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		gen:                gen,
		store:              store,
		model:              model,
		logger:             logger,
		DiagramConcurrency: 4,
		Now:                time.Now,
	}
}

func checkContext(repo *models.RepositoryContext) error {
	if repo == nil || len(repo.Files) == 0 {
		return ErrEmptyContext
	}
	return nil
}

// Chat sends one turn of mode against repo. The user entry is appended
// first; the reply, or FailureMessage when the collaborator fails, follows
// it. A collaborator failure is returned after the history is updated.
func (s *Service) Chat(ctx context.Context, mode models.Mode, repo *models.RepositoryContext, query string) (string, error) {
	if !mode.IsChat() {
		return "", fmt.Errorf("%w: %s", ErrNotChatMode, mode)
	}
	if err := checkContext(repo); err != nil {
		return "", err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return "", errors.New("message must not be empty")
	}

	prior := s.store.History(mode)
	if err := s.store.Append(mode, models.UserMessage(query)); err != nil {
		return "", err
	}

	var system, prompt string
	switch mode {
	case models.ModeRAG:
		system, prompt = prompts.RAGSystem, prompts.ContextPrompt(repo, prior, query)
	case models.ModeSimple:
		system, prompt = prompts.SimpleChatSystem(repo), prompts.SimplePrompt(repo, query)
	case models.ModePersona:
		system, prompt = prompts.PersonaSystem(s.Now()), prompts.ContextPrompt(repo, prior, query)
	}

	s.logger.Debug("chat turn", zap.String("mode", mode.String()), zap.Int("files", len(repo.Files)), zap.Int("history", len(prior)))
	reply, err := s.gen.Generate(ctx, system, prompt, s.model, nil)
	if err != nil {
		s.logger.Warn("chat turn failed", zap.String("mode", mode.String()), zap.Error(err))
		if aerr := s.store.Append(mode, models.AssistantMessage(FailureMessage)); aerr != nil {
			return "", errors.Join(err, aerr)
		}
		return "", err
	}

	if err := s.store.Append(mode, models.AssistantMessage(reply)); err != nil {
		return "", err
	}
	return reply, nil
}

// SeedPersona greets an empty backlog chat. It reports whether a greeting
// was added.
func SeedPersona(store Store) (bool, error) {
	if len(store.History(models.ModePersona)) > 0 {
		return false, nil
	}
	if err := store.Append(models.ModePersona, models.AssistantMessage(prompts.PersonaGreeting)); err != nil {
		return false, err
	}
	return true, nil
}

// Transcribe converts recorded audio to text
func (s *Service) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("audio is empty")
	}
	text, err := s.gen.Transcribe(ctx, audio, mimeType)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
