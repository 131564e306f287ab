// Package bot is the command dispatcher. It classifies each update,
// applies the group address filter and registration check, and drives
// the per-user conversation state machine.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/taskbot/internal/convo"
	"github.com/nhle/taskbot/internal/model"
	"github.com/nhle/taskbot/internal/notify"
	"github.com/nhle/taskbot/internal/store"
	"github.com/nhle/taskbot/internal/tasks"
	"github.com/nhle/taskbot/internal/telegram"
)

// Transport is the outbound side of the chat platform.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
}

// Registry tracks users, groups, and memberships.
type Registry interface {
	UpsertUser(ctx context.Context, u model.User) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	UpsertGroup(ctx context.Context, g model.Group) (*model.Group, error)
	LinkUserToGroup(ctx context.Context, userID, chatID int64) error
	ToggleNotifications(ctx context.Context, userID, chatID int64) (bool, error)
}

// Notifier fans task events out to groups.
type Notifier interface {
	Notify(ctx context.Context, ev notify.Event) int
}

// Deps are the collaborators of a Dispatcher.
type Deps struct {
	Transport   Transport
	Registry    Registry
	Tasks       *tasks.Service
	States      convo.Store
	Notifier    Notifier
	BotUsername string
	StateTTL    time.Duration
	Log         *zap.Logger
}

// Dispatcher handles inbound updates.
type Dispatcher struct {
	transport   Transport
	registry    Registry
	tasks       *tasks.Service
	states      convo.Store
	notifier    Notifier
	botUsername string
	ttl         time.Duration
	log         *zap.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(d Deps) *Dispatcher {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.StateTTL <= 0 {
		d.StateTTL = convo.DefaultTTL
	}
	return &Dispatcher{
		transport:   d.Transport,
		registry:    d.Registry,
		tasks:       d.Tasks,
		states:      d.States,
		notifier:    d.Notifier,
		botUsername: d.BotUsername,
		ttl:         d.StateTTL,
		log:         d.Log,
	}
}

// delivery is the context of one update.
type delivery struct {
	chat  telegram.Chat
	from  telegram.User
	group bool
	user  *model.User // nil until registered
	log   *zap.Logger
}

// Handle processes one update. It never fails: errors and panics are
// logged so the transport can always be acknowledged.
func (d *Dispatcher) Handle(ctx context.Context, u telegram.Update) {
	log := d.log.With(
		zap.String("delivery_id", uuid.NewString()),
		zap.Int64("update_id", u.UpdateID),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while handling update", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	switch {
	case u.Message != nil:
		d.handleMessage(ctx, u.Message, log)
	case u.CallbackQuery != nil:
		d.handleCallback(ctx, u.CallbackQuery, log)
	default:
		log.Debug("ignoring update without message or callback")
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, msg *telegram.Message, log *zap.Logger) {
	if msg.From == nil || msg.From.IsBot {
		return
	}
	dv := &delivery{
		chat:  msg.Chat,
		from:  *msg.From,
		group: msg.IsGroup(),
		log:   log.With(zap.Int64("chat_id", msg.Chat.ID), zap.Int64("user_id", msg.From.ID)),
	}

	if dv.group {
		d.observeGroup(ctx, dv)
	}

	in, ok := ClassifyMessage(msg, d.botUsername)
	if !ok {
		return
	}

	if err := d.authorize(ctx, dv, in); err != nil {
		d.fail(ctx, dv, err)
		return
	}

	var err error
	switch in := in.(type) {
	case Command:
		dv.log.Info("command", zap.String("command", in.Name))
		err = d.runCommand(ctx, dv, in)
	case Text:
		err = d.resumeFlow(ctx, dv, in)
	case FileUpload:
		err = d.receiveFile(ctx, dv, in)
	}
	if err != nil {
		d.fail(ctx, dv, err)
	}
}

func (d *Dispatcher) handleCallback(ctx context.Context, cb *telegram.CallbackQuery, log *zap.Logger) {
	if err := d.transport.AnswerCallbackQuery(ctx, cb.ID, ""); err != nil {
		log.Warn("answering callback failed", zap.Error(err))
	}

	chat := telegram.Chat{ID: cb.From.ID, Type: telegram.ChatPrivate}
	if cb.Message != nil {
		chat = cb.Message.Chat
	}
	dv := &delivery{
		chat:  chat,
		from:  cb.From,
		group: chat.Type == telegram.ChatGroup || chat.Type == telegram.ChatSupergroup,
		log:   log.With(zap.Int64("chat_id", chat.ID), zap.Int64("user_id", cb.From.ID)),
	}

	in := Callback{ID: cb.ID, Data: cb.Data}
	if err := d.authorize(ctx, dv, in); err != nil {
		d.fail(ctx, dv, err)
		return
	}
	if err := d.runAction(ctx, dv, in); err != nil {
		d.fail(ctx, dv, err)
	}
}

// observeGroup records the group, the sender, and their membership for
// every group message, addressed to the bot or not.
func (d *Dispatcher) observeGroup(ctx context.Context, dv *delivery) {
	if _, err := d.registry.UpsertGroup(ctx, model.Group{
		ChatID: dv.chat.ID,
		Title:  dv.chat.Title,
		Type:   dv.chat.Type,
	}); err != nil {
		dv.log.Error("recording group failed", zap.Error(err))
		return
	}
	user, err := d.registry.UpsertUser(ctx, userFromTelegram(dv.from))
	if err != nil {
		dv.log.Error("recording group member failed", zap.Error(err))
		return
	}
	dv.user = user
	if err := d.registry.LinkUserToGroup(ctx, dv.from.ID, dv.chat.ID); err != nil {
		dv.log.Error("linking member to group failed", zap.Error(err))
	}
}

// authorize loads the caller. Unregistered users may only use /start
// and /help.
func (d *Dispatcher) authorize(ctx context.Context, dv *delivery, in Input) error {
	if dv.user != nil {
		return nil
	}
	user, err := d.registry.GetUser(ctx, dv.from.ID)
	if err == nil {
		dv.user = user
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("loading user %d: %w", dv.from.ID, err)
	}
	if cmd, ok := in.(Command); ok && (cmd.Name == CmdStart || cmd.Name == CmdHelp) {
		return nil
	}
	return &AuthorizationError{UserID: dv.from.ID}
}

// fail turns a handler error into the matching user-facing reply.
// Anything unclassified is logged only.
func (d *Dispatcher) fail(ctx context.Context, dv *delivery, err error) {
	var (
		inputErr *UserInputError
		authErr  *AuthorizationError
		nfErr    *NotFoundError
	)
	switch {
	case errors.As(err, &inputErr):
		d.reply(ctx, dv, inputErr.Reply, nil)
	case errors.As(err, &authErr):
		dv.log.Info("rejected unregistered user")
		d.reply(ctx, dv, replyUnauthorized, nil)
	case errors.As(err, &nfErr):
		dv.log.Info("task not found", zap.Int64("task_id", nfErr.TaskID))
		d.reply(ctx, dv, nfErr.Reply, nil)
	default:
		dv.log.Error("handling update failed", zap.Error(err))
	}
}

// reply sends text to the delivery's chat. Transport failures are logged
// and swallowed.
func (d *Dispatcher) reply(ctx context.Context, dv *delivery, text string, markup *telegram.InlineKeyboardMarkup) {
	if err := d.transport.SendMessage(ctx, dv.chat.ID, text, markup); err != nil {
		dv.log.Warn("sending reply failed", zap.Error(err))
	}
}

// emit tells the caller's groups about a mutation that already happened.
func (d *Dispatcher) emit(ctx context.Context, dv *delivery, task *model.Task, text string) {
	if d.notifier == nil || dv.user == nil {
		return
	}
	d.notifier.Notify(ctx, notify.Event{Actor: *dv.user, Task: task, Text: text})
}

// taskErr maps a repository error for taskID to the dispatcher taxonomy.
func taskErr(taskID int64, err error, reply string) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound(taskID, reply)
	}
	return err
}
