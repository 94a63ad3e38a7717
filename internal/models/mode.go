package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Mode is one of the fixed analysis workflows. Each mode owns an
// independent conversation history and progress counter.
type Mode int

const (
	ModeWiki Mode = iota
	ModeRAG
	ModeResearch
	ModeSimple
	ModePersona

	modeCount
)

var modeNames = [modeCount]string{
	ModeWiki:     "wiki_gen",
	ModeRAG:      "rag_chat",
	ModeResearch: "deep_research",
	ModeSimple:   "simple_chat",
	ModePersona:  "backlog_steve",
}

var modeLabels = [modeCount]string{
	ModeWiki:     "Wiki Generator",
	ModeRAG:      "RAG Chat",
	ModeResearch: "Deep Research",
	ModeSimple:   "Simple Chat",
	ModePersona:  "Backlog Interrogator",
}

// Modes returns every mode in enumeration order
func Modes() []Mode {
	modes := make([]Mode, modeCount)
	for i := range modes {
		modes[i] = Mode(i)
	}
	return modes
}

// ParseMode resolves a wire name such as "rag_chat" into a Mode
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == name {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q (must be one of: %s)", s, strings.Join(modeNames[:], ", "))
}

// Valid reports whether m is a member of the enumeration
func (m Mode) Valid() bool {
	return m >= 0 && m < modeCount
}

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

// Label returns a human-readable name
func (m Mode) Label() string {
	if !m.Valid() {
		return m.String()
	}
	return modeLabels[m]
}

// IsChat reports whether the mode is a turn-by-turn chat mode.
func (m Mode) IsChat() bool {
	return m == ModeRAG || m == ModeSimple || m == ModePersona
}

func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid mode %d", int(m))
	}
	return []byte(modeNames[m]), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ModeState is the conversation state of a single mode.
type ModeState struct {
	History  []ChatMessage `json:"history"`
	Progress int           `json:"progress"`
}

// Clone returns a deep copy
func (s ModeState) Clone() ModeState {
	out := ModeState{Progress: s.Progress, History: make([]ChatMessage, len(s.History))}
	copy(out.History, s.History)
	return out
}

// ModeStates holds one ModeState per mode. Being an array indexed by Mode,
// an entry for every mode is always present.
type ModeStates [modeCount]ModeState

// NewModeStates returns a mapping with every mode empty and idle.
func NewModeStates() ModeStates {
	var s ModeStates
	for i := range s {
		s[i].History = []ChatMessage{}
	}
	return s
}

// Get returns a copy of the state for m
func (s *ModeStates) Get(m Mode) ModeState {
	return s[m].Clone()
}

// Clone returns a deep copy of every mode state
func (s ModeStates) Clone() ModeStates {
	var out ModeStates
	for i := range s {
		out[i] = s[i].Clone()
	}
	return out
}

// MarshalJSON encodes the states as an object keyed by mode name.
func (s ModeStates) MarshalJSON() ([]byte, error) {
	obj := make(map[string]ModeState, modeCount)
	for i, st := range s {
		if st.History == nil {
			st.History = []ChatMessage{}
		}
		obj[modeNames[i]] = st
	}
	return json.Marshal(obj)
}

// UnmarshalJSON decodes an object keyed by mode name. Missing modes decode
// as empty states and unknown keys are ignored.
func (s *ModeStates) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	out := NewModeStates()
	for key, raw := range obj {
		m, err := ParseMode(key)
		if err != nil {
			continue
		}
		var st ModeState
		if err := json.Unmarshal(raw, &st); err != nil {
			return fmt.Errorf("mode %s: %w", key, err)
		}
		if st.History == nil {
			st.History = []ChatMessage{}
		}
		if st.Progress < 0 {
			st.Progress = 0
		}
		out[m] = st
	}
	*s = out
	return nil
}
