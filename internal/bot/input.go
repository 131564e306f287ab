package bot

import (
	"strings"

	"github.com/nhle/taskbot/internal/model"
	"github.com/nhle/taskbot/internal/tasks"
	"github.com/nhle/taskbot/internal/telegram"
)

// Input is one classified inbound event: Command, Text, Callback, or
// FileUpload.
type Input interface {
	isInput()
}

// Command is a recognised slash command addressed to this bot.
type Command struct {
	Name string // without the leading slash, lower-case
	Args string
}

// Text is free text, including slash commands the bot does not know.
type Text struct {
	Body string
}

// Callback is an inline keyboard press.
type Callback struct {
	ID   string
	Data string
}

// FileUpload is a document or photo.
type FileUpload struct {
	Ref tasks.FileRef
}

func (Command) isInput()    {}
func (Text) isInput()       {}
func (Callback) isInput()   {}
func (FileUpload) isInput() {}

// Known commands.
const (
	CmdStart       = "start"
	CmdHelp        = "help"
	CmdNewTask     = "newtask"
	CmdMyTasks     = "mytasks"
	CmdGroupTasks  = "grouptasks"
	CmdSearchTasks = "searchtasks"
	CmdAttachFile  = "attachfile"
	CmdTaskNotify  = "tasknotify"
	CmdStats       = "stats"
)

var knownCommands = map[string]bool{
	CmdStart:       true,
	CmdHelp:        true,
	CmdNewTask:     true,
	CmdMyTasks:     true,
	CmdGroupTasks:  true,
	CmdSearchTasks: true,
	CmdAttachFile:  true,
	CmdTaskNotify:  true,
	CmdStats:       true,
}

// ClassifyMessage turns a message into an Input. It reports false when
// the message carries nothing the bot handles or, in a group, when a
// command is addressed to another bot.
func ClassifyMessage(msg *telegram.Message, botUsername string) (Input, bool) {
	if ref, ok := fileRef(msg); ok {
		return FileUpload{Ref: ref}, true
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil, false
	}
	if !strings.HasPrefix(text, "/") {
		return Text{Body: text}, true
	}

	token, args, _ := strings.Cut(text, " ")
	name, handle, addressed := strings.Cut(strings.TrimPrefix(token, "/"), "@")
	if addressed && msg.IsGroup() && !strings.EqualFold(handle, botUsername) {
		return nil, false
	}

	name = strings.ToLower(name)
	if !knownCommands[name] {
		return Text{Body: stripHandle(text, botUsername)}, true
	}
	return Command{Name: name, Args: strings.TrimSpace(args)}, true
}

// stripHandle removes "@botUsername" from an unknown command so it reads
// as the user typed it.
func stripHandle(text, botUsername string) string {
	if botUsername == "" {
		return text
	}
	return strings.TrimSpace(strings.ReplaceAll(text, "@"+botUsername, ""))
}

// fileRef extracts the attachment of msg. For photos the largest size,
// sent last by Telegram, is used.
func fileRef(msg *telegram.Message) (tasks.FileRef, bool) {
	if d := msg.Document; d != nil && d.FileID != "" {
		return tasks.FileRef{FileID: d.FileID, FileType: d.MimeType, FileName: d.FileName}, true
	}
	if n := len(msg.Photo); n > 0 && msg.Photo[n-1].FileID != "" {
		return tasks.FileRef{FileID: msg.Photo[n-1].FileID, FileType: model.FileTypePhoto}, true
	}
	return tasks.FileRef{}, false
}

// userFromTelegram maps a platform account to the stored user shape.
func userFromTelegram(u telegram.User) model.User {
	return model.User{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
