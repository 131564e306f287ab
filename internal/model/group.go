package model

import "time"

// Group is a chat-platform group the bot has observed.
// ChatID is the platform chat id.
type Group struct {
	ChatID    int64     `json:"chat_id" db:"chat_id"`
	Title     string    `json:"title" db:"title"`
	Type      string    `json:"type" db:"type"`
	Active    bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Membership role values.
const (
	RoleMember = "member"
)

// Membership links a user to a group.
type Membership struct {
	GroupID int64 `json:"group_id" db:"group_id"`
	UserID  int64 `json:"user_id" db:"user_id"`

	// NotificationsEnabled is tri-state; nil means never set and is
	// treated as enabled.
	NotificationsEnabled *bool     `json:"notifications_enabled,omitempty" db:"notifications_enabled"`
	JoinedAt             time.Time `json:"joined_at" db:"joined_at"`
	Role                 string    `json:"role" db:"role"`
	Active               bool      `json:"is_active" db:"is_active"`
}

// Notified reports whether the member receives group notifications.
func (m Membership) Notified() bool {
	return m.NotificationsEnabled == nil || *m.NotificationsEnabled
}
