// Package session holds the per-mode conversation state of the single local
// session and mirrors it to disk on every change.
package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/pders01/repo-mechanic/internal/models"
)

// SnapshotFile is the name of the recoverable snapshot inside the session directory.
const SnapshotFile = "session.json"

// Store is the session state store. It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	fs     afero.Fs
	path   string
	logger *zap.Logger
	now    func() time.Time
	snap   models.Snapshot
}

// Open loads the snapshot at path before anything else. A missing file
// starts a new session. Unreadable or malformed content is logged and the
// store starts empty; Open never fails.
func Open(fs afero.Fs, path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		fs:     fs,
		path:   path,
		logger: logger,
		now:    time.Now,
		snap:   models.NewSnapshot(uuid.NewString()),
	}

	data, err := readFile(fs, path)
	switch {
	case err != nil:
		logger.Warn("failed to read session snapshot, starting empty", zap.String("path", path), zap.Error(err))
	case data == nil:
		logger.Debug("no session snapshot, starting empty", zap.String("path", path))
	default:
		var snap models.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			logger.Warn("malformed session snapshot, starting empty", zap.String("path", path), zap.Error(err))
			break
		}
		if snap.ID == "" {
			snap.ID = s.snap.ID
		}
		for i := range snap.ModeStates {
			if snap.ModeStates[i].History == nil {
				snap.ModeStates[i].History = []models.ChatMessage{}
			}
		}
		s.snap = snap
		logger.Debug("restored session", zap.String("id", snap.ID), zap.String("mode", snap.ActiveMode.String()))
	}
	return s
}

// mutate applies fn to a copy of the state, persists the copy and only
// then makes it current. On error the state is unchanged.
func (s *Store) mutate(fn func(next *models.Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snap.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	next.Version = models.SnapshotVersion
	next.Timestamp = s.now().UTC()

	if err := writeJSON(s.fs, s.path, next); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	s.snap = next
	return nil
}

func checkMode(m models.Mode) error {
	if !m.Valid() {
		return fmt.Errorf("invalid mode %d", int(m))
	}
	return nil
}

// ID returns the session id
func (s *Store) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.ID
}

// Snapshot returns a copy of the full state
func (s *Store) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

// ActiveMode returns the active mode
func (s *Store) ActiveMode() models.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.ActiveMode
}

// SetActiveMode switches the active mode
func (s *Store) SetActiveMode(m models.Mode) error {
	if err := checkMode(m); err != nil {
		return err
	}
	return s.mutate(func(next *models.Snapshot) error {
		next.ActiveMode = m
		return nil
	})
}

// Repository returns the installed repository, or nil
func (s *Store) Repository() *models.RepositoryContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.RepositoryContext
}

// Wiki returns the generated wiki, or nil
func (s *Store) Wiki() *models.WikiStructure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.WikiStructure
}

// State returns a copy of the state of m
func (s *Store) State(m models.Mode) models.ModeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !m.Valid() {
		return models.ModeState{History: []models.ChatMessage{}}
	}
	return s.snap.ModeStates.Get(m)
}

// History returns a copy of the history of m
func (s *Store) History(m models.Mode) []models.ChatMessage {
	return s.State(m).History
}

// Progress returns the progress counter of m
func (s *Store) Progress(m models.Mode) int {
	return s.State(m).Progress
}

// SetHistory replaces the history of m
func (s *Store) SetHistory(m models.Mode, history []models.ChatMessage) error {
	return s.UpdateHistory(m, func([]models.ChatMessage) []models.ChatMessage {
		return history
	})
}

// UpdateHistory replaces the history of m with fn applied to a copy of it.
func (s *Store) UpdateHistory(m models.Mode, fn func([]models.ChatMessage) []models.ChatMessage) error {
	if err := checkMode(m); err != nil {
		return err
	}
	return s.mutate(func(next *models.Snapshot) error {
		history := fn(next.ModeStates[m].History)
		next.ModeStates[m].History = append([]models.ChatMessage{}, history...)
		return nil
	})
}

// Append adds messages to the end of the history of m
func (s *Store) Append(m models.Mode, msgs ...models.ChatMessage) error {
	return s.UpdateHistory(m, func(h []models.ChatMessage) []models.ChatMessage {
		return append(h, msgs...)
	})
}

// SetProgress sets the progress counter of m
func (s *Store) SetProgress(m models.Mode, progress int) error {
	if err := checkMode(m); err != nil {
		return err
	}
	if progress < 0 {
		return fmt.Errorf("progress must not be negative: %d", progress)
	}
	return s.mutate(func(next *models.Snapshot) error {
		next.ModeStates[m].Progress = progress
		return nil
	})
}

// ReplaceModeStates replaces every mode state at once
func (s *Store) ReplaceModeStates(states models.ModeStates) error {
	return s.mutate(func(next *models.Snapshot) error {
		next.ModeStates = states.Clone()
		return nil
	})
}

// InstallRepository replaces the repository, clears the wiki and resets
// every mode in one mutation. The active mode is kept.
func (s *Store) InstallRepository(repo *models.RepositoryContext) error {
	if repo == nil {
		return fmt.Errorf("repository must not be nil")
	}
	return s.mutate(func(next *models.Snapshot) error {
		next.RepositoryContext = repo
		next.WikiStructure = nil
		next.ModeStates = models.NewModeStates()
		return nil
	})
}

// SetWiki replaces the generated wiki
func (s *Store) SetWiki(w *models.WikiStructure) error {
	return s.mutate(func(next *models.Snapshot) error {
		next.WikiStructure = w
		return nil
	})
}

// Restore replaces the whole state with snap, keeping the session id.
func (s *Store) Restore(snap models.Snapshot) error {
	if err := checkMode(snap.ActiveMode); err != nil {
		return err
	}
	return s.mutate(func(next *models.Snapshot) error {
		id := next.ID
		*next = snap.Clone()
		next.ID = id
		return nil
	})
}

// Reset discards the repository, wiki and every history. A new session id
// is assigned.
func (s *Store) Reset() error {
	return s.mutate(func(next *models.Snapshot) error {
		*next = models.NewSnapshot(uuid.NewString())
		return nil
	})
}
