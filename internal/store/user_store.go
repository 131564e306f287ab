package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/taskbot/internal/model"
)

const userColumns = "id, username, first_name, last_name, created_at, updated_at"

// UpsertUser inserts a user or refreshes the handle and names of an
// existing one. It returns the stored row.
func (s *SQLiteStore) UpsertUser(ctx context.Context, u model.User) (*model.User, error) {
	if u.ID == 0 {
		return nil, fmt.Errorf("user id must not be zero")
	}
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bot_users (id, username, first_name, last_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			updated_at = excluded.updated_at`,
		u.ID, u.Username, u.FirstName, u.LastName, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting user %d: %w", u.ID, err)
	}

	return s.GetUser(ctx, u.ID)
}

// GetUser retrieves a user by platform id.
func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u,
		"SELECT "+userColumns+" FROM bot_users WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %d: %w", id, err)
	}
	return &u, nil
}
