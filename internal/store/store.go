package store

import (
	"context"
	"errors"

	"github.com/nhle/taskbot/internal/model"
)

// ErrNotFound is returned when a row does not exist, is soft-deleted, or
// is not visible to the requesting owner.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for users, groups, memberships,
// tasks, and attachments.
type Store interface {
	// === Users ===

	UpsertUser(ctx context.Context, u model.User) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)

	// === Groups and memberships ===

	UpsertGroup(ctx context.Context, g model.Group) (*model.Group, error)
	GetGroup(ctx context.Context, chatID int64) (*model.Group, error)
	LinkUserToGroup(ctx context.Context, userID, chatID int64) error
	GetMembership(ctx context.Context, userID, chatID int64) (*model.Membership, error)
	ToggleNotifications(ctx context.Context, userID, chatID int64) (bool, error)
	ResolveNotifyAudience(ctx context.Context, chatID int64) ([]model.User, error)
	ActiveGroupsForUser(ctx context.Context, userID int64) ([]model.Group, error)
	CountGroupMembers(ctx context.Context, chatID int64) (int, error)

	// === Tasks ===

	CreateTask(ctx context.Context, t model.Task) (*model.Task, error)
	GetTaskForOwner(ctx context.Context, ownerID, taskID int64) (*model.Task, error)
	ListTasks(ctx context.Context, ownerID int64, limit int) ([]model.Task, error)
	SearchTasks(ctx context.Context, ownerID int64, query string, limit int) ([]model.Task, error)
	ListGroupTasks(ctx context.Context, chatID int64, limit int) ([]model.Task, error)
	SearchGroupTasks(ctx context.Context, chatID int64, query string, limit int) ([]model.Task, error)
	UpdateTaskTitle(ctx context.Context, taskID int64, title string) (*model.Task, error)
	UpdateTaskDescription(ctx context.Context, taskID int64, description *string) (*model.Task, error)
	UpdateTaskStatus(ctx context.Context, taskID int64, status model.TaskStatus) (*model.Task, error)
	DeleteTask(ctx context.Context, taskID int64) error
	TaskStats(ctx context.Context, ownerID int64) (model.TaskStats, error)
	GroupTaskStats(ctx context.Context, chatID int64) (model.TaskStats, error)

	// === Attachments ===

	CreateAttachment(ctx context.Context, a model.Attachment) (*model.Attachment, error)
	GetAttachments(ctx context.Context, taskID int64) ([]model.Attachment, error)
}
