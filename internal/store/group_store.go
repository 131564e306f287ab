package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/taskbot/internal/model"
)

const groupColumns = "chat_id, title, type, is_active, created_at, updated_at"

// UpsertGroup creates the group or refreshes its title and type. Either
// way the group is marked active.
func (s *SQLiteStore) UpsertGroup(ctx context.Context, g model.Group) (*model.Group, error) {
	if g.ChatID == 0 {
		return nil, fmt.Errorf("group chat id must not be zero")
	}
	if g.Type == "" {
		g.Type = "group"
	}
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_groups (chat_id, title, type, is_active, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			title = excluded.title,
			type = excluded.type,
			is_active = 1,
			updated_at = excluded.updated_at`,
		g.ChatID, g.Title, g.Type, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting group %d: %w", g.ChatID, err)
	}

	return s.GetGroup(ctx, g.ChatID)
}

// GetGroup retrieves a group by chat id.
func (s *SQLiteStore) GetGroup(ctx context.Context, chatID int64) (*model.Group, error) {
	var g model.Group
	err := s.db.GetContext(ctx, &g,
		"SELECT "+groupColumns+" FROM chat_groups WHERE chat_id = ?", chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting group %d: %w", chatID, err)
	}
	return &g, nil
}

// LinkUserToGroup records membership of userID in chatID. An existing
// membership keeps its role and notification flag.
func (s *SQLiteStore) LinkUserToGroup(ctx context.Context, userID, chatID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO group_members (group_id, user_id, joined_at, role, is_active)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(group_id, user_id) DO NOTHING`,
		chatID, userID, time.Now().UTC(), model.RoleMember,
	)
	if err != nil {
		return fmt.Errorf("linking user %d to group %d: %w", userID, chatID, err)
	}
	return nil
}

// GetMembership retrieves the membership of userID in chatID.
func (s *SQLiteStore) GetMembership(ctx context.Context, userID, chatID int64) (*model.Membership, error) {
	var m model.Membership
	err := s.db.GetContext(ctx, &m, `
		SELECT group_id, user_id, notifications_enabled, joined_at, role, is_active
		FROM group_members
		WHERE group_id = ? AND user_id = ?`, chatID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting membership of user %d in group %d: %w", userID, chatID, err)
	}
	return &m, nil
}

// ToggleNotifications flips the member's notification flag and returns
// the new value. An unset flag counts as enabled, so its first toggle
// disables notifications.
func (s *SQLiteStore) ToggleNotifications(ctx context.Context, userID, chatID int64) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var current *bool
	err = tx.GetContext(ctx, &current, `
		SELECT notifications_enabled FROM group_members
		WHERE group_id = ? AND user_id = ?`, chatID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("reading notification flag: %w", err)
	}

	enabled := !(current == nil || *current)

	_, err = tx.ExecContext(ctx, `
		UPDATE group_members SET notifications_enabled = ?
		WHERE group_id = ? AND user_id = ?`,
		boolToInt(enabled), chatID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("updating notification flag: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing notification toggle: %w", err)
	}
	return enabled, nil
}

// ResolveNotifyAudience returns the active members of chatID whose
// notification flag is enabled or unset.
func (s *SQLiteStore) ResolveNotifyAudience(ctx context.Context, chatID int64) ([]model.User, error) {
	var users []model.User
	err := s.db.SelectContext(ctx, &users, `
		SELECT u.id, u.username, u.first_name, u.last_name, u.created_at, u.updated_at
		FROM bot_users u
		INNER JOIN group_members m ON m.user_id = u.id
		WHERE m.group_id = ?
			AND m.is_active = 1
			AND (m.notifications_enabled IS NULL OR m.notifications_enabled = 1)
		ORDER BY u.id`, chatID)
	if err != nil {
		return nil, fmt.Errorf("resolving audience for group %d: %w", chatID, err)
	}
	return users, nil
}

// ActiveGroupsForUser returns the active groups in which userID is an
// active member.
func (s *SQLiteStore) ActiveGroupsForUser(ctx context.Context, userID int64) ([]model.Group, error) {
	var groups []model.Group
	err := s.db.SelectContext(ctx, &groups, `
		SELECT g.chat_id, g.title, g.type, g.is_active, g.created_at, g.updated_at
		FROM chat_groups g
		INNER JOIN group_members m ON m.group_id = g.chat_id
		WHERE m.user_id = ? AND m.is_active = 1 AND g.is_active = 1
		ORDER BY g.chat_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing groups for user %d: %w", userID, err)
	}
	return groups, nil
}

// CountGroupMembers returns the number of active members in chatID.
func (s *SQLiteStore) CountGroupMembers(ctx context.Context, chatID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM group_members WHERE group_id = ? AND is_active = 1", chatID)
	if err != nil {
		return 0, fmt.Errorf("counting members of group %d: %w", chatID, err)
	}
	return n, nil
}
