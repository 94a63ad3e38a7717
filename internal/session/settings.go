package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// SettingsFile is the name of the settings file inside the session directory.
const SettingsFile = "settings.json"

// Settings are user choices that survive session resets.
type Settings struct {
	SelectedModel string `json:"selectedModel"`
	GitHubToken   string `json:"githubToken"`
}

// Redacted returns a copy without the token
func (s Settings) Redacted() Settings {
	s.GitHubToken = ""
	return s
}

// SettingsStore persists Settings separately from the session snapshot.
type SettingsStore struct {
	mu       sync.Mutex
	fs       afero.Fs
	path     string
	settings Settings
}

// LoadSettings reads the settings at path. Missing or malformed files
// yield zero settings.
func LoadSettings(fs afero.Fs, path string, logger *zap.Logger) *SettingsStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	st := &SettingsStore{fs: fs, path: path}

	data, err := readFile(fs, path)
	if err != nil {
		logger.Warn("failed to read settings", zap.String("path", path), zap.Error(err))
		return st
	}
	if data != nil {
		if err := json.Unmarshal(data, &st.settings); err != nil {
			logger.Warn("malformed settings, using defaults", zap.String("path", path), zap.Error(err))
			st.settings = Settings{}
		}
	}
	return st
}

// Get returns the current settings
func (st *SettingsStore) Get() Settings {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.settings
}

// Save persists s and makes it current
func (st *SettingsStore) Save(s Settings) error {
	s.SelectedModel = strings.TrimSpace(s.SelectedModel)
	s.GitHubToken = strings.TrimSpace(s.GitHubToken)

	st.mu.Lock()
	defer st.mu.Unlock()
	if err := writeJSON(st.fs, st.path, s); err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}
	st.settings = s
	return nil
}
