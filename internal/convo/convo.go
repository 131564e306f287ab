// Package convo holds per-user conversation state: which multi-turn flow a
// user is in and the scratch values that flow has collected so far.
//
// Every entry carries a TTL. Lookups on absent or expired entries report
// "nothing stored"; callers treat that as no flow in progress, never as an
// error.
package convo

import (
	"context"
	"time"
)

// DefaultTTL is how long an abandoned flow survives.
const DefaultTTL = 10 * time.Minute

// State tags the flow a user is in.
type State string

const (
	StateNone                 State = ""
	StateAwaitingTaskTitle    State = "awaiting_task_title"
	StateAwaitingTaskDesc     State = "awaiting_task_description"
	StateAwaitingSearchQuery  State = "awaiting_search_query"
	StateAwaitingAttachTaskID State = "awaiting_attach_task_id"
	StateAwaitingFileUpload   State = "awaiting_file_upload"
	StateAwaitingEditTitle    State = "awaiting_edit_title"
	StateAwaitingEditDesc     State = "awaiting_edit_description"
)

// Valid reports whether s belongs to the state vocabulary.
func (s State) Valid() bool {
	switch s {
	case StateNone, StateAwaitingTaskTitle, StateAwaitingTaskDesc,
		StateAwaitingSearchQuery, StateAwaitingAttachTaskID,
		StateAwaitingFileUpload, StateAwaitingEditTitle, StateAwaitingEditDesc:
		return true
	}
	return false
}

// Reserved and scratch keys.
const (
	KeyState = "state"

	ScratchTitle        = "title"
	ScratchAttachTaskID = "attach_task_id"
	ScratchEditTaskID   = "edit_task_id"
)

// scratchKeys lists every scratch key any flow writes.
var scratchKeys = []string{ScratchTitle, ScratchAttachTaskID, ScratchEditTaskID}

// Store is a TTL key/value store scoped by user. Latest write wins per
// (user, key).
type Store interface {
	// Set records the user's current flow state.
	Set(ctx context.Context, userID int64, state State, ttl time.Duration) error

	// Get returns the user's flow state, or StateNone when nothing is
	// stored or the entry expired.
	Get(ctx context.Context, userID int64) (State, error)

	// SetScratch stores an auxiliary value for the current flow.
	SetScratch(ctx context.Context, userID int64, key, value string, ttl time.Duration) error

	// GetScratch returns the value and whether it was present and live.
	GetScratch(ctx context.Context, userID int64, key string) (string, bool, error)

	// Clear removes a single key. KeyState clears the flow state itself.
	Clear(ctx context.Context, userID int64, key string) error
}

// Begin starts a new flow for userID, discarding any stale state and
// scratch values left by an earlier one.
func Begin(ctx context.Context, s Store, userID int64, state State, ttl time.Duration) error {
	for _, key := range scratchKeys {
		if err := s.Clear(ctx, userID, key); err != nil {
			return err
		}
	}
	return s.Set(ctx, userID, state, ttl)
}

// Reset returns userID to StateNone and drops all scratch values.
func Reset(ctx context.Context, s Store, userID int64) error {
	if err := s.Clear(ctx, userID, KeyState); err != nil {
		return err
	}
	for _, key := range scratchKeys {
		if err := s.Clear(ctx, userID, key); err != nil {
			return err
		}
	}
	return nil
}
