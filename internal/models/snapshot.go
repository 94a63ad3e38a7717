package models

import "time"

// SnapshotVersion is written into every session snapshot and archive
const SnapshotVersion = "2.0.0"

// Snapshot is the unit of crash recovery and of export/import.
type Snapshot struct {
	ID                string             `json:"id"`
	Version           string             `json:"version"`
	Timestamp         time.Time          `json:"timestamp"`
	ActiveMode        Mode               `json:"activeMode"`
	RepositoryContext *RepositoryContext `json:"repositoryContext"`
	WikiStructure     *WikiStructure     `json:"wikiStructure"`
	ModeStates        ModeStates         `json:"modeStates"`
}

// NewSnapshot returns an empty snapshot with every mode idle
func NewSnapshot(id string) Snapshot {
	return Snapshot{
		ID:         id,
		Version:    SnapshotVersion,
		ActiveMode: ModeWiki,
		ModeStates: NewModeStates(),
	}
}

// Clone returns a copy that shares the immutable repository context and wiki
// but owns its mode histories.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.ModeStates = s.ModeStates.Clone()
	return out
}
