// Package notify fans task events out to the groups the acting user
// belongs to.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nhle/taskbot/internal/model"
	"github.com/nhle/taskbot/internal/telegram"
)

// Sender delivers one outbound chat message.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error
}

// Registry resolves groups and their opted-in members.
type Registry interface {
	ActiveGroupsForUser(ctx context.Context, userID int64) ([]model.Group, error)
	ResolveNotifyAudience(ctx context.Context, chatID int64) ([]model.User, error)
}

// Event is a task change worth telling a group about.
type Event struct {
	Actor model.User
	Task  *model.Task
	Text  string
}

// Notifier sends one message per group with a non-empty audience.
type Notifier struct {
	registry Registry
	sender   Sender
	log      *zap.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(r Registry, s Sender, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{registry: r, sender: s, log: log}
}

// Notify delivers ev to every active group of the actor and returns how
// many groups were told. Failures are logged, never returned.
func (n *Notifier) Notify(ctx context.Context, ev Event) int {
	log := n.log.With(zap.Int64("user_id", ev.Actor.ID))
	if ev.Task != nil {
		log = log.With(zap.Int64("task_id", ev.Task.ID))
	}

	groups, err := n.registry.ActiveGroupsForUser(ctx, ev.Actor.ID)
	if err != nil {
		log.Error("loading groups for notification failed", zap.Error(err))
		return 0
	}

	text := Compose(ev)
	sent := 0
	for _, g := range groups {
		audience, err := n.registry.ResolveNotifyAudience(ctx, g.ChatID)
		if err != nil {
			log.Error("resolving audience failed", zap.Int64("chat_id", g.ChatID), zap.Error(err))
			continue
		}
		if len(audience) == 0 {
			continue
		}
		if err := n.sender.SendMessage(ctx, g.ChatID, text, nil); err != nil {
			log.Warn("group notification failed", zap.Int64("chat_id", g.ChatID), zap.Error(err))
			continue
		}
		sent++
		log.Info("group notified", zap.Int64("chat_id", g.ChatID), zap.Int("audience", len(audience)))
	}
	return sent
}

// Compose renders the group message for ev.
func Compose(ev Event) string {
	msg := fmt.Sprintf("🔔 Task Notification\n\n%s\n\n👤 By: %s", ev.Text, ev.Actor.DisplayName())
	if ev.Task != nil {
		msg += fmt.Sprintf("\n🆔 Task ID: #%d", ev.Task.ID)
	}
	return msg
}

// TaskCreated describes a new task.
func TaskCreated(t *model.Task) string {
	return "📝 New task created: " + t.Title
}

// TitleUpdated describes a rename.
func TitleUpdated(from, to string) string {
	return fmt.Sprintf("✏️ Task title updated\n\nFrom: %s\nTo: %s", from, to)
}

// DescriptionUpdated describes a description change.
func DescriptionUpdated(t *model.Task) string {
	return "📄 Task description updated\n\nTask: " + t.Title
}

// StatusUpdated describes a status change.
func StatusUpdated(t *model.Task, from, to model.TaskStatus) string {
	return fmt.Sprintf("🔄 Task status updated\n\nTask: %s\nFrom: %s → To: %s", t.Title, from, to)
}

// FileAttached describes a new attachment.
func FileAttached(t *model.Task) string {
	return "📎 File attached to task: " + t.Title
}

// TaskDeleted describes a deletion.
func TaskDeleted(t *model.Task) string {
	return "🗑 Task deleted: " + t.Title
}
