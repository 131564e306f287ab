package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/taskbot/internal/convo"
	"github.com/nhle/taskbot/internal/notify"
	"github.com/nhle/taskbot/internal/tasks"
)

const stateWriteTimeout = 5 * time.Second

// resumeFlow feeds free text to the caller's current flow.
func (d *Dispatcher) resumeFlow(ctx context.Context, dv *delivery, in Text) error {
	state, err := d.states.Get(ctx, dv.from.ID)
	if err != nil {
		return fmt.Errorf("reading state: %w", err)
	}

	switch state {
	case convo.StateAwaitingTaskTitle:
		return d.onTaskTitle(ctx, dv, in.Body)
	case convo.StateAwaitingTaskDesc:
		return d.onTaskDescription(ctx, dv, in.Body)
	case convo.StateAwaitingSearchQuery:
		return d.onSearchQuery(ctx, dv, in.Body)
	case convo.StateAwaitingAttachTaskID:
		return d.onAttachTaskID(ctx, dv, in.Body)
	case convo.StateAwaitingFileUpload:
		return &UserInputError{Reply: replyNeedFile}
	case convo.StateAwaitingEditTitle:
		return d.onEditTitle(ctx, dv, in.Body)
	case convo.StateAwaitingEditDesc:
		return d.onEditDescription(ctx, dv, in.Body)
	}

	// No flow. Groups stay quiet; private chats get a hint.
	if !dv.group {
		d.reply(ctx, dv, replyExpired, nil)
	}
	return nil
}

func (d *Dispatcher) onTaskTitle(ctx context.Context, dv *delivery, text string) error {
	title := strings.TrimSpace(text)
	if title == "" {
		return &UserInputError{Reply: replyAskTitle}
	}
	if err := d.states.SetScratch(ctx, dv.from.ID, convo.ScratchTitle, title, d.ttl); err != nil {
		return fmt.Errorf("storing title: %w", err)
	}
	if err := d.states.Set(ctx, dv.from.ID, convo.StateAwaitingTaskDesc, d.ttl); err != nil {
		return fmt.Errorf("advancing to description: %w", err)
	}
	d.reply(ctx, dv, replyAskDescription, nil)
	return nil
}

func (d *Dispatcher) onTaskDescription(ctx context.Context, dv *delivery, text string) error {
	title, ok, err := d.states.GetScratch(ctx, dv.from.ID, convo.ScratchTitle)
	if err != nil {
		return fmt.Errorf("reading title: %w", err)
	}
	defer d.finish(ctx, dv)

	if !ok || strings.TrimSpace(title) == "" {
		return &UserInputError{Reply: replyCreateFailed}
	}

	task, err := d.tasks.Create(ctx, dv.from.ID, title, text)
	if err != nil {
		dv.log.Error("creating task failed", zap.Error(err))
		return &UserInputError{Reply: replyCreateFailed}
	}

	d.reply(ctx, dv, createdText(task), nil)
	d.emit(ctx, dv, task, notify.TaskCreated(task))
	return nil
}

func (d *Dispatcher) onSearchQuery(ctx context.Context, dv *delivery, text string) error {
	query := strings.TrimSpace(text)
	if query == "" {
		return &UserInputError{Reply: replyAskQuery}
	}
	defer d.finish(ctx, dv)

	if dv.group {
		results, err := d.tasks.SearchForGroup(ctx, dv.chat.ID, query)
		if err != nil {
			return fmt.Errorf("searching group tasks: %w", err)
		}
		if len(results) == 0 {
			d.reply(ctx, dv, replyNoResults, nil)
			return nil
		}
		for _, t := range results {
			d.reply(ctx, dv, groupTaskText(t), nil)
		}
		return nil
	}

	results, err := d.tasks.Search(ctx, dv.from.ID, query)
	if err != nil {
		return fmt.Errorf("searching tasks: %w", err)
	}
	if len(results) == 0 {
		d.reply(ctx, dv, replyNoResults, nil)
		return nil
	}
	for _, t := range results {
		d.reply(ctx, dv, searchResultText(t), taskKeyboard(t.ID))
	}
	return nil
}

func (d *Dispatcher) onAttachTaskID(ctx context.Context, dv *delivery, text string) error {
	id, err := parseTaskID(text)
	if err != nil {
		d.finish(ctx, dv)
		return notFound(0, "")
	}
	task, err := d.tasks.Get(ctx, dv.from.ID, id)
	if err != nil {
		d.finish(ctx, dv)
		return taskErr(id, err, "")
	}

	if err := d.states.SetScratch(ctx, dv.from.ID, convo.ScratchAttachTaskID, strconv.FormatInt(task.ID, 10), d.ttl); err != nil {
		return fmt.Errorf("storing attach target: %w", err)
	}
	if err := d.states.Set(ctx, dv.from.ID, convo.StateAwaitingFileUpload, d.ttl); err != nil {
		return fmt.Errorf("advancing to file upload: %w", err)
	}
	d.reply(ctx, dv, replyAskFile, nil)
	return nil
}

// receiveFile handles a document or photo. Outside the attach flow it is
// treated like text with no flow.
func (d *Dispatcher) receiveFile(ctx context.Context, dv *delivery, in FileUpload) error {
	state, err := d.states.Get(ctx, dv.from.ID)
	if err != nil {
		return fmt.Errorf("reading state: %w", err)
	}
	if state != convo.StateAwaitingFileUpload {
		if !dv.group && state == convo.StateNone {
			d.reply(ctx, dv, replyExpired, nil)
		}
		return nil
	}

	defer d.finish(ctx, dv)
	id, err := d.scratchTaskID(ctx, dv, convo.ScratchAttachTaskID)
	if err != nil {
		return err
	}

	_, task, err := d.tasks.Attach(ctx, dv.from.ID, id, in.Ref)
	if err != nil {
		return taskErr(id, err, "")
	}

	d.reply(ctx, dv, replyAttached, nil)
	d.emit(ctx, dv, task, notify.FileAttached(task))
	return nil
}

func (d *Dispatcher) onEditTitle(ctx context.Context, dv *delivery, text string) error {
	if strings.TrimSpace(text) == "" {
		return &UserInputError{Reply: replyAskNewTitle}
	}
	defer d.finish(ctx, dv)

	id, err := d.scratchTaskID(ctx, dv, convo.ScratchEditTaskID)
	if err != nil {
		return &UserInputError{Reply: replyTitleFailed}
	}
	before, after, err := d.tasks.UpdateTitle(ctx, dv.from.ID, id, text)
	if errors.Is(err, tasks.ErrEmptyTitle) {
		return &UserInputError{Reply: replyTitleFailed}
	}
	if err != nil {
		return taskErr(id, err, replyTitleFailed)
	}

	d.reply(ctx, dv, titleUpdatedText(after), nil)
	d.emit(ctx, dv, after, notify.TitleUpdated(before.Title, after.Title))
	return nil
}

func (d *Dispatcher) onEditDescription(ctx context.Context, dv *delivery, text string) error {
	defer d.finish(ctx, dv)

	id, err := d.scratchTaskID(ctx, dv, convo.ScratchEditTaskID)
	if err != nil {
		return &UserInputError{Reply: replyDescFailed}
	}
	_, after, err := d.tasks.UpdateDescription(ctx, dv.from.ID, id, text)
	if err != nil {
		return taskErr(id, err, replyDescFailed)
	}

	d.reply(ctx, dv, replyDescUpdated, nil)
	d.emit(ctx, dv, after, notify.DescriptionUpdated(after))
	return nil
}

// scratchTaskID reads a task id stored earlier in the flow. A missing or
// expired value is a NotFoundError.
func (d *Dispatcher) scratchTaskID(ctx context.Context, dv *delivery, key string) (int64, error) {
	raw, ok, err := d.states.GetScratch(ctx, dv.from.ID, key)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", key, err)
	}
	if !ok {
		return 0, notFound(0, "")
	}
	id, err := parseTaskID(raw)
	if err != nil {
		return 0, notFound(0, "")
	}
	return id, nil
}

// finish returns the caller to no flow, even after the delivery's
// deadline has passed.
func (d *Dispatcher) finish(ctx context.Context, dv *delivery) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stateWriteTimeout)
	defer cancel()
	if err := convo.Reset(ctx, d.states, dv.from.ID); err != nil {
		dv.log.Warn("clearing conversation state failed", zap.Error(err))
	}
}
