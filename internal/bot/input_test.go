package bot_test

import (
	"testing"

	"github.com/nhle/taskbot/internal/bot"
	"github.com/nhle/taskbot/internal/model"
	"github.com/nhle/taskbot/internal/telegram"
)

func TestClassifyMessage(t *testing.T) {
	group := telegram.Chat{ID: -1, Type: telegram.ChatGroup}
	private := telegram.Chat{ID: 1, Type: telegram.ChatPrivate}

	tests := []struct {
		name string
		chat telegram.Chat
		text string
		want bot.Input
		ok   bool
	}{
		{"bare command", private, "/newtask", bot.Command{Name: "newtask"}, true},
		{"command with args", private, "/tasknotify on", bot.Command{Name: "tasknotify", Args: "on"}, true},
		{"upper-case command", private, "/MyTasks", bot.Command{Name: "mytasks"}, true},
		{"group bare command", group, "/grouptasks", bot.Command{Name: "grouptasks"}, true},
		{"group addressed to us", group, "/grouptasks@TaskBot", bot.Command{Name: "grouptasks"}, true},
		{"group addressed elsewhere", group, "/grouptasks@otherbot", nil, false},
		{"private ignores suffix", private, "/help@otherbot", bot.Command{Name: "help"}, true},
		{"unknown command is text", group, "/lunch@taskbot now", bot.Text{Body: "/lunch now"}, true},
		{"plain text", group, "Report", bot.Text{Body: "Report"}, true},
		{"blank", private, "  ", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := bot.ClassifyMessage(&telegram.Message{Chat: tt.chat, Text: tt.text}, "taskbot")
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Fatalf("input = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestClassifyFiles(t *testing.T) {
	msg := &telegram.Message{
		Chat:     telegram.Chat{ID: 1, Type: telegram.ChatPrivate},
		Document: &telegram.Document{FileID: "D1", FileName: "plan.pdf", MimeType: "application/pdf"},
	}
	in, ok := bot.ClassifyMessage(msg, "taskbot")
	up, isFile := in.(bot.FileUpload)
	if !ok || !isFile || up.Ref.FileID != "D1" || up.Ref.FileName != "plan.pdf" || up.Ref.FileType != "application/pdf" {
		t.Fatalf("document classified as %#v", in)
	}

	msg = &telegram.Message{
		Chat:  telegram.Chat{ID: 1, Type: telegram.ChatPrivate},
		Photo: []telegram.PhotoSize{{FileID: "s", Width: 90}, {FileID: "m", Width: 320}, {FileID: "l", Width: 1280}},
	}
	in, _ = bot.ClassifyMessage(msg, "taskbot")
	up, isFile = in.(bot.FileUpload)
	if !isFile || up.Ref.FileID != "l" || up.Ref.FileType != model.FileTypePhoto {
		t.Fatalf("photo classified as %#v", in)
	}
}
