package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/taskbot/internal/convo"
)

// StateStore persists conversation state in the conversation_state table.
// It shares the SQLiteStore connection.
type StateStore struct {
	s   *SQLiteStore
	now func() time.Time
}

var _ convo.Store = (*StateStore)(nil)

// NewStateStore returns a convo.Store backed by s. now may be nil, in
// which case time.Now is used.
func NewStateStore(s *SQLiteStore, now func() time.Time) *StateStore {
	if now == nil {
		now = time.Now
	}
	return &StateStore{s: s, now: now}
}

// Set records the user's flow state. StateNone clears it.
func (st *StateStore) Set(ctx context.Context, userID int64, state convo.State, ttl time.Duration) error {
	if state == convo.StateNone {
		return st.Clear(ctx, userID, convo.KeyState)
	}
	return st.SetScratch(ctx, userID, convo.KeyState, string(state), ttl)
}

// Get returns the user's live flow state or StateNone.
func (st *StateStore) Get(ctx context.Context, userID int64) (convo.State, error) {
	v, ok, err := st.GetScratch(ctx, userID, convo.KeyState)
	if err != nil || !ok {
		return convo.StateNone, err
	}
	return convo.State(v), nil
}

// SetScratch writes key for userID, replacing any previous value.
func (st *StateStore) SetScratch(ctx context.Context, userID int64, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = convo.DefaultTTL
	}
	expiresAt := st.now().Add(ttl).UnixNano()

	_, err := st.s.db.ExecContext(ctx, `
		INSERT INTO conversation_state (user_id, key, value, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at`,
		userID, key, value, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("writing state %q for user %d: %w", key, userID, err)
	}
	return nil
}

// GetScratch returns a live value for key.
func (st *StateStore) GetScratch(ctx context.Context, userID int64, key string) (string, bool, error) {
	var value string
	err := st.s.db.GetContext(ctx, &value, `
		SELECT value FROM conversation_state
		WHERE user_id = ? AND key = ? AND expires_at > ?`,
		userID, key, st.now().UnixNano(),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading state %q for user %d: %w", key, userID, err)
	}
	return value, true, nil
}

// Clear removes key for userID.
func (st *StateStore) Clear(ctx context.Context, userID int64, key string) error {
	_, err := st.s.db.ExecContext(ctx,
		"DELETE FROM conversation_state WHERE user_id = ? AND key = ?", userID, key)
	if err != nil {
		return fmt.Errorf("clearing state %q for user %d: %w", key, userID, err)
	}
	return nil
}

// Sweep deletes every expired row and returns how many were removed.
func (st *StateStore) Sweep(ctx context.Context) (int64, error) {
	result, err := st.s.db.ExecContext(ctx,
		"DELETE FROM conversation_state WHERE expires_at <= ?", st.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sweeping expired state: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
