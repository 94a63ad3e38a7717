package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pders01/repo-mechanic/internal/llm"
	"github.com/pders01/repo-mechanic/internal/models"
	"github.com/pders01/repo-mechanic/internal/prompts"
	"github.com/pders01/repo-mechanic/internal/session"
	"github.com/pders01/repo-mechanic/internal/testutil"
)

func testRepo() *models.RepositoryContext {
	return &models.RepositoryContext{
		Name:            "widgets",
		OriginReference: "https://github.com/acme/widgets",
		Kind:            models.KindGitHub,
		Files: []models.RepoFile{
			{Path: "main.go", Content: "package main"},
			{Path: "auth/token.go", Content: "package auth"},
		},
	}
}

func newService(t *testing.T, gen llm.Generator) (*Service, *session.Store) {
	t.Helper()
	store := session.Open(afero.NewMemMapFs(), "/state/session.json", zaptest.NewLogger(t))
	svc := New(gen, store, "test-model", zaptest.NewLogger(t))
	svc.Now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }
	return svc, store
}

func TestChatAppendsTurn(t *testing.T) {
	gen := testutil.NewFakeGenerator("first answer", "second answer")
	svc, store := newService(t, gen)

	reply, err := svc.Chat(context.Background(), models.ModeRAG, testRepo(), "what is this?")
	require.NoError(t, err)
	assert.Equal(t, "first answer", reply)

	_, err = svc.Chat(context.Background(), models.ModeRAG, testRepo(), "and auth?")
	require.NoError(t, err)

	assert.Equal(t, []models.ChatMessage{
		models.UserMessage("what is this?"),
		models.AssistantMessage("first answer"),
		models.UserMessage("and auth?"),
		models.AssistantMessage("second answer"),
	}, store.History(models.ModeRAG))

	calls := gen.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, prompts.RAGSystem, calls[0].System)
	assert.Equal(t, "test-model", calls[0].Model)
	assert.NotContains(t, calls[0].Prompt, "what is this?\n<END_OF_CONVERSATION_HISTORY>")
	assert.Contains(t, calls[1].Prompt, "1.\nUser: what is this?\n2.\nYou: first answer\n<END_OF_CONVERSATION_HISTORY>")
}

func TestChatModesUseTheirPrompts(t *testing.T) {
	gen := testutil.NewFakeGenerator()
	svc, _ := newService(t, gen)

	_, err := svc.Chat(context.Background(), models.ModeSimple, testRepo(), "hi")
	require.NoError(t, err)
	_, err = svc.Chat(context.Background(), models.ModePersona, testRepo(), "notes")
	require.NoError(t, err)

	calls := gen.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0].System, "GitHub Repository: https://github.com/acme/widgets (widgets)")
	assert.Equal(t, "Files in scope: main.go, auth/token.go\n\nhi", calls[0].Prompt)
	assert.Contains(t, calls[1].System, "**Generated 2026-03-14.**")
	assert.Contains(t, calls[1].Prompt, "<START_OF_CONTEXT>")
}

func TestChatFailureAppendsSyntheticEntry(t *testing.T) {
	gen := &testutil.FakeGenerator{Script: []testutil.Reply{{Err: errors.New("503")}}}
	svc, store := newService(t, gen)

	_, err := svc.Chat(context.Background(), models.ModeSimple, testRepo(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrCollaborator)

	assert.Equal(t, []models.ChatMessage{
		models.UserMessage("hello"),
		models.AssistantMessage(FailureMessage),
	}, store.History(models.ModeSimple))
}

func TestChatRejects(t *testing.T) {
	gen := testutil.NewFakeGenerator()
	svc, store := newService(t, gen)

	_, err := svc.Chat(context.Background(), models.ModeResearch, testRepo(), "x")
	assert.ErrorIs(t, err, ErrNotChatMode)
	_, err = svc.Chat(context.Background(), models.ModeWiki, testRepo(), "x")
	assert.ErrorIs(t, err, ErrNotChatMode)
	_, err = svc.Chat(context.Background(), models.ModeRAG, testRepo().WithFiles(nil), "x")
	assert.ErrorIs(t, err, ErrEmptyContext)
	_, err = svc.Chat(context.Background(), models.ModeRAG, testRepo(), "  ")
	assert.Error(t, err)

	assert.Empty(t, gen.Calls())
	assert.Empty(t, store.History(models.ModeRAG))
}

func TestSeedPersona(t *testing.T) {
	_, store := newService(t, testutil.NewFakeGenerator())

	seeded, err := SeedPersona(store)
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = SeedPersona(store)
	require.NoError(t, err)
	assert.False(t, seeded)

	assert.Equal(t, []models.ChatMessage{models.AssistantMessage(prompts.PersonaGreeting)}, store.History(models.ModePersona))
}

func TestTranscribe(t *testing.T) {
	gen := testutil.NewFakeGenerator()
	gen.Transcript = "  walk the parser \n"
	svc, _ := newService(t, gen)

	text, err := svc.Transcribe(context.Background(), []byte("RIFF"), "audio/wav")
	require.NoError(t, err)
	assert.Equal(t, "walk the parser", text)

	_, err = svc.Transcribe(context.Background(), nil, "audio/wav")
	assert.Error(t, err)
}
