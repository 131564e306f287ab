package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/taskbot/internal/convo"
	"github.com/nhle/taskbot/internal/store"
)

func (d *Dispatcher) runCommand(ctx context.Context, dv *delivery, cmd Command) error {
	switch cmd.Name {
	case CmdStart:
		return d.cmdStart(ctx, dv)
	case CmdHelp:
		if dv.group {
			d.reply(ctx, dv, groupHelpText(d.botUsername), nil)
		} else {
			d.reply(ctx, dv, helpText(), nil)
		}
		return nil
	case CmdNewTask:
		return d.beginFlow(ctx, dv, convo.StateAwaitingTaskTitle, replyAskTitle)
	case CmdSearchTasks:
		return d.beginFlow(ctx, dv, convo.StateAwaitingSearchQuery, replyAskQuery)
	case CmdAttachFile:
		return d.beginFlow(ctx, dv, convo.StateAwaitingAttachTaskID, replyAskTaskID)
	case CmdMyTasks:
		return d.cmdMyTasks(ctx, dv)
	case CmdGroupTasks:
		return d.cmdGroupTasks(ctx, dv)
	case CmdTaskNotify:
		return d.cmdTaskNotify(ctx, dv)
	case CmdStats:
		return d.cmdStats(ctx, dv)
	}
	return fmt.Errorf("unhandled command %q", cmd.Name)
}

// cmdStart registers or refreshes the caller.
func (d *Dispatcher) cmdStart(ctx context.Context, dv *delivery) error {
	user, err := d.registry.UpsertUser(ctx, userFromTelegram(dv.from))
	if err != nil {
		return fmt.Errorf("registering user: %w", err)
	}
	dv.user = user

	if dv.group {
		d.reply(ctx, dv, groupStartText(*user, d.botUsername), nil)
	} else {
		d.reply(ctx, dv, startText(*user), nil)
	}
	return nil
}

// beginFlow replaces whatever flow the caller was in.
func (d *Dispatcher) beginFlow(ctx context.Context, dv *delivery, state convo.State, prompt string) error {
	if err := convo.Begin(ctx, d.states, dv.from.ID, state, d.ttl); err != nil {
		return fmt.Errorf("starting %s: %w", state, err)
	}
	d.reply(ctx, dv, prompt, nil)
	return nil
}

func (d *Dispatcher) cmdMyTasks(ctx context.Context, dv *delivery) error {
	list, err := d.tasks.List(ctx, dv.from.ID)
	if err != nil {
		return fmt.Errorf("listing tasks: %w", err)
	}
	if len(list) == 0 {
		d.reply(ctx, dv, replyNoTasks, nil)
		return nil
	}
	for _, t := range list {
		d.reply(ctx, dv, taskText(t), taskKeyboard(t.ID))
	}
	return nil
}

func (d *Dispatcher) cmdGroupTasks(ctx context.Context, dv *delivery) error {
	if !dv.group {
		return &UserInputError{Reply: replyGroupOnly}
	}
	list, err := d.tasks.ListForGroup(ctx, dv.chat.ID)
	if err != nil {
		return fmt.Errorf("listing group tasks: %w", err)
	}
	if len(list) == 0 {
		d.reply(ctx, dv, replyNoGroupTasks, nil)
		return nil
	}
	for _, t := range list {
		d.reply(ctx, dv, groupTaskText(t), nil)
	}
	return nil
}

func (d *Dispatcher) cmdTaskNotify(ctx context.Context, dv *delivery) error {
	if !dv.group {
		return &UserInputError{Reply: replyGroupOnly}
	}
	enabled, err := d.registry.ToggleNotifications(ctx, dv.from.ID, dv.chat.ID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("toggling notifications: membership of %d in %d missing", dv.from.ID, dv.chat.ID)
	}
	if err != nil {
		return fmt.Errorf("toggling notifications: %w", err)
	}
	d.reply(ctx, dv, notifyToggledText(enabled), nil)
	return nil
}

func (d *Dispatcher) cmdStats(ctx context.Context, dv *delivery) error {
	if dv.group {
		st, err := d.tasks.GroupStats(ctx, dv.chat.ID)
		if err != nil {
			return fmt.Errorf("counting group tasks: %w", err)
		}
		d.reply(ctx, dv, statsText(st, true), nil)
		return nil
	}
	st, err := d.tasks.Stats(ctx, dv.from.ID)
	if err != nil {
		return fmt.Errorf("counting tasks: %w", err)
	}
	d.reply(ctx, dv, statsText(st, false), nil)
	return nil
}
