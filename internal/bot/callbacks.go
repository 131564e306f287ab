package bot

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/nhle/taskbot/internal/convo"
	"github.com/nhle/taskbot/internal/notify"
)

// runAction executes an inline button press. Every action re-checks that
// the presser owns the task.
func (d *Dispatcher) runAction(ctx context.Context, dv *delivery, in Callback) error {
	action, err := ParseAction(in.Data)
	if err != nil {
		dv.log.Info("ignoring malformed callback", zap.String("data", in.Data), zap.Error(err))
		return nil
	}
	dv.log.Info("callback", zap.String("action", string(action.Kind)), zap.Int64("task_id", action.TaskID))

	switch action.Kind {
	case ActionEditTask:
		if _, err := d.tasks.Get(ctx, dv.from.ID, action.TaskID); err != nil {
			return taskErr(action.TaskID, err, "")
		}
		d.reply(ctx, dv, replyAskEdit, editKeyboard(action.TaskID))

	case ActionEditTitle:
		return d.beginEdit(ctx, dv, action.TaskID, convo.StateAwaitingEditTitle, replyAskNewTitle)

	case ActionEditDesc:
		return d.beginEdit(ctx, dv, action.TaskID, convo.StateAwaitingEditDesc, replyAskNewDesc)

	case ActionDelete:
		task, err := d.tasks.Delete(ctx, dv.from.ID, action.TaskID)
		if err != nil {
			return taskErr(action.TaskID, err, "")
		}
		d.reply(ctx, dv, deletedText(task), nil)
		d.emit(ctx, dv, task, notify.TaskDeleted(task))

	case ActionStatus:
		if _, err := d.tasks.Get(ctx, dv.from.ID, action.TaskID); err != nil {
			return taskErr(action.TaskID, err, "")
		}
		d.reply(ctx, dv, replyAskStatus, statusKeyboard(action.TaskID))

	case ActionSetStatus:
		before, after, err := d.tasks.UpdateStatus(ctx, dv.from.ID, action.TaskID, action.Status)
		if err != nil {
			return taskErr(action.TaskID, err, "")
		}
		d.reply(ctx, dv, statusUpdatedText(after.Status), nil)
		d.emit(ctx, dv, after, notify.StatusUpdated(after, before.Status, after.Status))

	default:
		return fmt.Errorf("unhandled action %q", action.Kind)
	}
	return nil
}

// beginEdit starts an edit flow for an owned task.
func (d *Dispatcher) beginEdit(ctx context.Context, dv *delivery, taskID int64, state convo.State, prompt string) error {
	if _, err := d.tasks.Get(ctx, dv.from.ID, taskID); err != nil {
		return taskErr(taskID, err, "")
	}
	if err := convo.Begin(ctx, d.states, dv.from.ID, state, d.ttl); err != nil {
		return fmt.Errorf("starting %s: %w", state, err)
	}
	if err := d.states.SetScratch(ctx, dv.from.ID, convo.ScratchEditTaskID, strconv.FormatInt(taskID, 10), d.ttl); err != nil {
		return fmt.Errorf("storing edit target: %w", err)
	}
	d.reply(ctx, dv, prompt, nil)
	return nil
}
