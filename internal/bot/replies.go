package bot

import (
	"fmt"
	"strings"

	"github.com/nhle/taskbot/internal/model"
	"github.com/nhle/taskbot/internal/telegram"
)

const (
	replyUnauthorized   = "You are not authorized. Please use /start to register."
	replyAskTitle       = "Please enter the task title."
	replyAskDescription = "Please send the task description."
	replyCreateFailed   = "Could not create task. Please try again."
	replyAskQuery       = "Please enter your search query."
	replyNoResults      = "No tasks found for your search."
	replyAskTaskID      = "Please enter the Task ID you want to attach a file to."
	replyAskFile        = "Please send the file you want to attach to this task."
	replyNeedFile       = "Please send a file (document, photo, etc.) to attach."
	replyAttached       = "File uploaded has been attached to task."
	replyNotFound       = "Task not found or not authorized."
	replyNoTasks        = "You have no tasks. Use /newtask to create one."
	replyNoGroupTasks   = "No tasks found in this group."
	replyGroupOnly      = "This command only works in group chats."
	replyAskEdit        = "What do you want to edit?"
	replyAskNewTitle    = "Enter new title for the task."
	replyAskNewDesc     = "Enter new description for the task."
	replyTitleFailed    = "Could not update task title."
	replyDescFailed     = "Could not update task description."
	replyDescUpdated    = "Task description updated."
	replyAskStatus      = "Choose new status:"
	replyExpired        = "I'm not waiting for anything from you right now. " +
		"Your last action may have expired. Type /help to see available commands."
)

const descriptionPreview = 100

func greetingName(u model.User) string {
	if name := strings.ToUpper(strings.TrimSpace(u.FirstName)); name != "" {
		return name
	}
	return "There"
}

func startText(u model.User) string {
	return fmt.Sprintf("Hello, %s! Welcome to the task bot.\nType /help to see available commands.", greetingName(u))
}

func groupStartText(u model.User, botUsername string) string {
	return fmt.Sprintf("Hello, %s! I'm now active in this group.\nUse /help@%s to see available commands.",
		greetingName(u), botUsername)
}

func helpText() string {
	return "Here are the commands you can use:\n\n" +
		"/start - Greet the bot and save your info.\n" +
		"/help - Display this help message.\n" +
		"/newtask - Create a new task.\n" +
		"/mytasks - List your tasks.\n" +
		"/searchtasks - Search for your tasks.\n" +
		"/attachfile - Attach a file to one of your tasks.\n" +
		"/stats - Show your task statistics.\n"
}

func groupHelpText(botUsername string) string {
	at := "@" + botUsername
	return "Group Commands:\n\n" +
		"/newtask" + at + " - Create a new task\n" +
		"/mytasks" + at + " - List your tasks\n" +
		"/grouptasks" + at + " - List all group tasks\n" +
		"/searchtasks" + at + " - Search for tasks\n" +
		"/attachfile" + at + " - Attach file to task\n" +
		"/tasknotify" + at + " - Toggle task notifications\n" +
		"/stats" + at + " - Show group task statistics\n"
}

func createdText(t *model.Task) string {
	return fmt.Sprintf("Task '%s' created!\n\nUse /mytasks to see all your tasks or /newtask to create a new one.", t.Title)
}

func titleUpdatedText(t *model.Task) string {
	return fmt.Sprintf("Task title updated to '%s'.", t.Title)
}

func deletedText(t *model.Task) string {
	return fmt.Sprintf("Task %q deleted.", t.Title)
}

func statusUpdatedText(s model.TaskStatus) string {
	return fmt.Sprintf("Task status updated to %s.", s)
}

func notifyToggledText(enabled bool) string {
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	return fmt.Sprintf("Task notifications %s for you in this group.", state)
}

func taskText(t model.Task) string {
	return fmt.Sprintf("TASK DATA\n\nID: %d\nTitle: %s\nStatus: %s\nDescription: %s",
		t.ID, t.Title, t.Status, t.DescriptionText())
}

func searchResultText(t model.Task) string {
	return fmt.Sprintf("Task: %s\nID: %d\nStatus: %s\n%s", t.Title, t.ID, t.Status, t.DescriptionText())
}

func groupTaskText(t model.Task) string {
	owner := "Unknown"
	if t.Owner != nil {
		owner = t.Owner.DisplayName()
	}
	return fmt.Sprintf("TASK: %s\nOwner: %s\nStatus: %s\nDescription: %s",
		t.Title, owner, t.Status, preview(t.DescriptionText(), descriptionPreview))
}

// preview truncates s to n runes, marking the cut with "...".
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func statsText(st model.TaskStats, group bool) string {
	var b strings.Builder
	if group {
		b.WriteString("📊 Group tasks\n\n")
		fmt.Fprintf(&b, "Members: %d\n", st.Members)
	} else {
		b.WriteString("📊 Your tasks\n\n")
	}
	fmt.Fprintf(&b, "Total: %d\n", st.Total)
	fmt.Fprintf(&b, "%s: %d\n", model.StatusPending.Label(), st.Pending)
	fmt.Fprintf(&b, "%s: %d\n", model.StatusInProgress.Label(), st.InProgress)
	fmt.Fprintf(&b, "%s: %d", model.StatusCompleted.Label(), st.Completed)
	return b.String()
}

func button(label string, a Action) telegram.InlineKeyboardButton {
	return telegram.InlineKeyboardButton{Text: label, CallbackData: a.Token()}
}

// taskKeyboard is attached to every task the caller owns.
func taskKeyboard(taskID int64) *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{{
		button("Edit", Action{Kind: ActionEditTask, TaskID: taskID}),
		button("Delete", Action{Kind: ActionDelete, TaskID: taskID}),
		button("Status", Action{Kind: ActionStatus, TaskID: taskID}),
	}}}
}

func editKeyboard(taskID int64) *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{{
		button("Edit Title", Action{Kind: ActionEditTitle, TaskID: taskID}),
		button("Edit Description", Action{Kind: ActionEditDesc, TaskID: taskID}),
	}}}
}

func statusKeyboard(taskID int64) *telegram.InlineKeyboardMarkup {
	row := make([]telegram.InlineKeyboardButton, 0, len(model.AllStatuses))
	for _, s := range model.AllStatuses {
		row = append(row, button(s.Label(), Action{Kind: ActionSetStatus, TaskID: taskID, Status: s}))
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{row}}
}
