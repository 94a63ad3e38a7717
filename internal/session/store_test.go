package session

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pders01/repo-mechanic/internal/models"
)

const testPath = "/state/session.json"

func testRepo(name string) *models.RepositoryContext {
	return &models.RepositoryContext{
		Name:            name,
		OriginReference: "https://github.com/acme/" + name,
		Kind:            models.KindGitHub,
		Files:           []models.RepoFile{{Path: "main.go", Content: "package main"}},
	}
}

func TestOpenEmpty(t *testing.T) {
	s := Open(afero.NewMemMapFs(), testPath, zaptest.NewLogger(t))

	assert.NotEmpty(t, s.ID())
	assert.Equal(t, models.ModeWiki, s.ActiveMode())
	assert.Nil(t, s.Repository())
	for _, m := range models.Modes() {
		assert.NotNil(t, s.History(m))
		assert.Empty(t, s.History(m))
		assert.Zero(t, s.Progress(m))
	}
}

func TestOpenMalformedSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "{{{"},
		{name: "unknown mode", content: `{"activeMode": "karaoke"}`},
		{name: "wrong types", content: `{"modeStates": {"rag_chat": {"history": "nope"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, testPath, []byte(tt.content), 0600))

			s := Open(fs, testPath, zaptest.NewLogger(t))
			assert.Equal(t, models.ModeWiki, s.ActiveMode())
			assert.Nil(t, s.Repository())
			assert.Empty(t, s.History(models.ModeRAG))
		})
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := Open(fs, testPath, nil)

	require.NoError(t, s.InstallRepository(testRepo("widgets")))
	require.NoError(t, s.SetActiveMode(models.ModeRAG))
	require.NoError(t, s.Append(models.ModeRAG, models.UserMessage("q1"), models.AssistantMessage("a1")))
	require.NoError(t, s.Append(models.ModeSimple, models.UserMessage("hello")))
	require.NoError(t, s.SetHistory(models.ModeResearch, []models.ChatMessage{models.UserMessage("objective")}))
	require.NoError(t, s.Append(models.ModeResearch, models.PhaseMessage(1, "plan")))
	require.NoError(t, s.SetProgress(models.ModeResearch, 1))
	require.NoError(t, s.UpdateHistory(models.ModeRAG, func(h []models.ChatMessage) []models.ChatMessage {
		return append(h, models.UserMessage("q2"))
	}))
	require.NoError(t, s.SetWiki(&models.WikiStructure{Title: "Widgets Wiki", Pages: []models.WikiPage{{ID: "page-1"}}}))

	reloaded := Open(fs, testPath, nil)

	want := s.Snapshot()
	got := reloaded.Snapshot()
	if diff := cmp.Diff(want.ModeStates, got.ModeStates); diff != "" {
		t.Errorf("mode states differ after reload (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("snapshot differs after reload (-want +got):\n%s", diff)
	}
	assert.Equal(t, s.ID(), reloaded.ID())
	assert.Equal(t, models.ModeRAG, reloaded.ActiveMode())
	assert.Equal(t, 1, reloaded.Progress(models.ModeResearch))
	assert.Len(t, reloaded.History(models.ModeRAG), 3)

	exists, err := afero.Exists(fs, testPath+".tmp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestInstallRepositoryResetsModes(t *testing.T) {
	s := Open(afero.NewMemMapFs(), testPath, nil)
	require.NoError(t, s.InstallRepository(testRepo("first")))
	require.NoError(t, s.SetActiveMode(models.ModeResearch))
	require.NoError(t, s.Append(models.ModeRAG, models.UserMessage("q")))
	require.NoError(t, s.SetProgress(models.ModeResearch, 3))
	require.NoError(t, s.SetWiki(&models.WikiStructure{Title: "old"}))

	require.NoError(t, s.InstallRepository(testRepo("second")))

	assert.Equal(t, "second", s.Repository().Name)
	assert.Nil(t, s.Wiki())
	assert.Equal(t, models.ModeResearch, s.ActiveMode())
	for _, m := range models.Modes() {
		assert.Empty(t, s.History(m))
		assert.Zero(t, s.Progress(m))
	}
}

func TestReplaceModeStates(t *testing.T) {
	s := Open(afero.NewMemMapFs(), testPath, nil)
	require.NoError(t, s.Append(models.ModeRAG, models.UserMessage("old")))

	states := models.NewModeStates()
	states[models.ModeSimple] = models.ModeState{History: []models.ChatMessage{models.UserMessage("q")}, Progress: 0}
	states[models.ModeResearch] = models.ModeState{History: nil, Progress: 2}
	require.NoError(t, s.ReplaceModeStates(states))

	assert.Empty(t, s.History(models.ModeRAG))
	assert.Len(t, s.History(models.ModeSimple), 1)
	assert.NotNil(t, s.History(models.ModeResearch))
	assert.Equal(t, 2, s.Progress(models.ModeResearch))

	// the store owns its copy
	states[models.ModeSimple].History[0].Content = "mutated"
	assert.Equal(t, "q", s.History(models.ModeSimple)[0].Content)
}

func TestHistoryIsACopy(t *testing.T) {
	s := Open(afero.NewMemMapFs(), testPath, nil)
	require.NoError(t, s.Append(models.ModeSimple, models.UserMessage("original")))

	h := s.History(models.ModeSimple)
	h[0].Content = "mutated"

	assert.Equal(t, "original", s.History(models.ModeSimple)[0].Content)
}

func TestPersistFailureLeavesStateUnchanged(t *testing.T) {
	base := afero.NewMemMapFs()
	s := Open(afero.NewReadOnlyFs(base), testPath, nil)

	err := s.Append(models.ModeRAG, models.UserMessage("lost"))
	require.Error(t, err)
	assert.Empty(t, s.History(models.ModeRAG))

	err = s.InstallRepository(testRepo("widgets"))
	require.Error(t, err)
	assert.Nil(t, s.Repository())
}

func TestInvalidArguments(t *testing.T) {
	s := Open(afero.NewMemMapFs(), testPath, nil)

	assert.Error(t, s.SetProgress(models.ModeResearch, -1))
	assert.Error(t, s.SetActiveMode(models.Mode(99)))
	assert.Error(t, s.Append(models.Mode(99), models.UserMessage("x")))
	assert.Error(t, s.InstallRepository(nil))
}

func TestRestoreKeepsSessionID(t *testing.T) {
	s := Open(afero.NewMemMapFs(), testPath, nil)
	id := s.ID()

	snap := models.NewSnapshot("other")
	snap.ActiveMode = models.ModePersona
	snap.RepositoryContext = testRepo("imported")
	snap.ModeStates[models.ModePersona].History = []models.ChatMessage{models.AssistantMessage("sigh")}

	require.NoError(t, s.Restore(snap))
	assert.Equal(t, id, s.ID())
	assert.Equal(t, models.ModePersona, s.ActiveMode())
	assert.Equal(t, "imported", s.Repository().Name)
	assert.Len(t, s.History(models.ModePersona), 1)
}

func TestReset(t *testing.T) {
	s := Open(afero.NewMemMapFs(), testPath, nil)
	id := s.ID()
	require.NoError(t, s.InstallRepository(testRepo("widgets")))
	require.NoError(t, s.Append(models.ModeRAG, models.UserMessage("q")))

	require.NoError(t, s.Reset())

	assert.NotEqual(t, id, s.ID())
	assert.Nil(t, s.Repository())
	assert.Empty(t, s.History(models.ModeRAG))
}

func TestConcurrentAppendsAreSerialized(t *testing.T) {
	s := Open(afero.NewMemMapFs(), testPath, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Append(models.ModeSimple, models.UserMessage("x")))
		}()
	}
	wg.Wait()

	assert.Len(t, s.History(models.ModeSimple), 20)
}
