// Package reroot implements the conflict-preserving stack rebase: every
// branch of a stack is rebased onto updated trunk state, pausing on
// conflicts with resumable on-disk state.
package reroot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"workstack.dev/workstack/internal/config"
)

const (
	stateFileName      = "workstack_reroot.json"
	stateSchemaVersion = 1
)

// State is the persisted record of an in-progress reroot. It is the single
// source of truth for resume: if the process dies at any point, a later
// continue picks up from this file.
type State struct {
	SchemaVersion int    `json:"schemaVersion"`
	Trunk         string `json:"trunk"`
	// Remaining lists the branches still to be rebased, in chain order.
	// The paused branch, if any, is Remaining[0].
	Remaining []string `json:"remaining"`
	// PausedBranch is the branch currently paused on conflict, if any
	PausedBranch string `json:"pausedBranch,omitempty"`
	// ConflictCommitted reports whether a conflict commit was created for
	// the current pause; it determines whether continue creates a matching
	// resolution commit.
	ConflictCommitted bool `json:"conflictCommitted,omitempty"`
}

func statePath(repoRoot string) string {
	return filepath.Join(repoRoot, ".git", stateFileName)
}

// LoadState reads the persisted reroot state. A missing file means no
// reroot is in progress and returns (nil, nil), never an error.
func LoadState(repoRoot string) (*State, error) {
	data, err := os.ReadFile(statePath(repoRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read reroot state: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse reroot state: %w", err)
	}
	if st.SchemaVersion != stateSchemaVersion {
		return nil, fmt.Errorf("reroot state has schema version %d, expected %d", st.SchemaVersion, stateSchemaVersion)
	}
	return &st, nil
}

// SaveState atomically persists the reroot state
func SaveState(repoRoot string, st *State) error {
	st.SchemaVersion = stateSchemaVersion
	return config.WriteJSONAtomic(statePath(repoRoot), st)
}

// ClearState deletes the persisted reroot state; a missing file is fine
func ClearState(repoRoot string) error {
	err := os.Remove(statePath(repoRoot))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear reroot state: %w", err)
	}
	return nil
}
