package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nhle/taskbot/internal/model"
)

// ActionKind is the effect an inline button requests.
type ActionKind string

const (
	ActionEditTask  ActionKind = "edit_task"
	ActionEditTitle ActionKind = "edit_title"
	ActionEditDesc  ActionKind = "edit_desc"
	ActionDelete    ActionKind = "delete_task"
	ActionStatus    ActionKind = "status_task"
	ActionSetStatus ActionKind = "setstatus"
)

// Action is a decoded action token.
type Action struct {
	Kind   ActionKind
	TaskID int64
	Status model.TaskStatus // only for ActionSetStatus
}

// Token encodes a as "<kind>_<id>" or "setstatus_<id>_<STATUS>".
func (a Action) Token() string {
	if a.Kind == ActionSetStatus {
		return fmt.Sprintf("%s_%d_%s", a.Kind, a.TaskID, a.Status)
	}
	return fmt.Sprintf("%s_%d", a.Kind, a.TaskID)
}

// ParseAction decodes an action token.
func ParseAction(token string) (Action, error) {
	for _, kind := range []ActionKind{ActionEditTask, ActionEditTitle, ActionEditDesc, ActionDelete, ActionStatus} {
		if rest, ok := strings.CutPrefix(token, string(kind)+"_"); ok {
			id, err := parseTaskID(rest)
			if err != nil {
				return Action{}, fmt.Errorf("action %q: %w", token, err)
			}
			return Action{Kind: kind, TaskID: id}, nil
		}
	}

	if rest, ok := strings.CutPrefix(token, string(ActionSetStatus)+"_"); ok {
		idPart, statusPart, found := strings.Cut(rest, "_")
		if !found {
			return Action{}, fmt.Errorf("action %q: missing status", token)
		}
		id, err := parseTaskID(idPart)
		if err != nil {
			return Action{}, fmt.Errorf("action %q: %w", token, err)
		}
		status, err := model.ParseTaskStatus(statusPart)
		if err != nil {
			return Action{}, fmt.Errorf("action %q: %w", token, err)
		}
		return Action{Kind: ActionSetStatus, TaskID: id, Status: status}, nil
	}

	return Action{}, fmt.Errorf("unknown action %q", token)
}

func parseTaskID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}
