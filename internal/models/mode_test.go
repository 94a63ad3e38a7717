package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"wiki_gen", ModeWiki, false},
		{"rag_chat", ModeRAG, false},
		{" Deep_Research ", ModeResearch, false},
		{"simple_chat", ModeSimple, false},
		{"backlog_steve", ModePersona, false},
		{"", 0, true},
		{"chat", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModeMethods(t *testing.T) {
	assert.Len(t, Modes(), 5)
	assert.True(t, ModeRAG.IsChat())
	assert.True(t, ModePersona.IsChat())
	assert.False(t, ModeResearch.IsChat())
	assert.False(t, ModeWiki.IsChat())
	assert.Equal(t, "Deep Research", ModeResearch.Label())
	assert.False(t, Mode(42).Valid())
	assert.Equal(t, "mode(42)", Mode(42).String())

	_, err := Mode(-1).MarshalText()
	assert.Error(t, err)
}

func TestModeStatesJSON(t *testing.T) {
	states := NewModeStates()
	states[ModeRAG].History = append(states[ModeRAG].History, UserMessage("hi"), AssistantMessage("hello"))
	states[ModeResearch].History = append(states[ModeResearch].History, PhaseMessage(1, "plan"))
	states[ModeResearch].Progress = 1

	data, err := json.Marshal(states)
	require.NoError(t, err)

	var obj map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &obj))
	assert.Len(t, obj, 5)
	for _, m := range Modes() {
		assert.Contains(t, obj, m.String())
	}

	var decoded ModeStates
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, states, decoded)
}

func TestModeStatesTolerantDecode(t *testing.T) {
	input := `{
		"rag_chat": {"history": [{"role": "user", "content": "q"}], "progress": 0},
		"deep_research": {"progress": -3},
		"legacy_mode": {"history": [{"role": "user", "content": "ignored"}]}
	}`

	var states ModeStates
	require.NoError(t, json.Unmarshal([]byte(input), &states))

	assert.Equal(t, []ChatMessage{UserMessage("q")}, states[ModeRAG].History)
	assert.Equal(t, 0, states[ModeResearch].Progress)
	for _, m := range []Mode{ModeWiki, ModeResearch, ModeSimple, ModePersona} {
		assert.NotNil(t, states[m].History, m.String())
		assert.Empty(t, states[m].History, m.String())
	}
}

func TestModeStatesClone(t *testing.T) {
	states := NewModeStates()
	states[ModeSimple].History = append(states[ModeSimple].History, UserMessage("a"))

	clone := states.Clone()
	clone[ModeSimple].History[0].Content = "changed"

	assert.Equal(t, "a", states[ModeSimple].History[0].Content)
}

func TestSnapshotJSON(t *testing.T) {
	snap := NewSnapshot("abc")
	snap.RepositoryContext = &RepositoryContext{
		Name:  "widgets",
		Kind:  KindGitHub,
		Files: []RepoFile{{Path: "a.go", Content: "package a"}},
	}
	snap.ActiveMode = ModePersona

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"activeMode":"backlog_steve"`)

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ModePersona, decoded.ActiveMode)
	assert.Equal(t, []string{"a.go"}, decoded.RepositoryContext.Paths())
}
