package notify_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/nhle/taskbot/internal/model"
	"github.com/nhle/taskbot/internal/notify"
	"github.com/nhle/taskbot/internal/store"
	"github.com/nhle/taskbot/tests/testutil"
)

func seedGroup(t *testing.T, s *store.SQLiteStore, chatID int64, members ...int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := s.UpsertGroup(ctx, model.Group{ChatID: chatID, Title: "Team"}); err != nil {
		t.Fatalf("UpsertGroup: %v", err)
	}
	for _, id := range members {
		if _, err := s.UpsertUser(ctx, model.User{ID: id, FirstName: "User"}); err != nil {
			t.Fatalf("UpsertUser: %v", err)
		}
		if err := s.LinkUserToGroup(ctx, id, chatID); err != nil {
			t.Fatalf("LinkUserToGroup: %v", err)
		}
	}
}

func TestNotifySendsOneMessagePerGroup(t *testing.T) {
	s := testutil.NewTestStore(t)
	seedGroup(t, s, -100, 1, 2)
	transport := &testutil.Transport{}
	n := notify.NewNotifier(s, transport, zap.NewNop())

	actor := model.User{ID: 1, FirstName: "Ann", LastName: "Bee"}
	task := &model.Task{ID: 7, Title: "Report"}
	sent := n.Notify(context.Background(), notify.Event{Actor: actor, Task: task, Text: notify.TaskCreated(task)})

	if sent != 1 {
		t.Fatalf("sent = %d, want 1", sent)
	}
	msgs := transport.MessagesTo(-100)
	if len(msgs) != 1 {
		t.Fatalf("got %d group messages, want 1", len(msgs))
	}
	for _, want := range []string{"🔔 Task Notification", "📝 New task created: Report", "👤 By: Ann Bee", "🆔 Task ID: #7"} {
		if !strings.Contains(msgs[0].Text, want) {
			t.Errorf("message missing %q:\n%s", want, msgs[0].Text)
		}
	}
}

func TestNotifySkipsGroupsWithEmptyAudience(t *testing.T) {
	s := testutil.NewTestStore(t)
	seedGroup(t, s, -100, 1)
	if _, err := s.ToggleNotifications(context.Background(), 1, -100); err != nil {
		t.Fatalf("ToggleNotifications: %v", err)
	}
	transport := &testutil.Transport{}
	n := notify.NewNotifier(s, transport, zap.NewNop())

	sent := n.Notify(context.Background(), notify.Event{Actor: model.User{ID: 1}, Text: "x"})
	if sent != 0 || len(transport.Messages()) != 0 {
		t.Fatalf("sent %d messages to an opted-out group", sent)
	}
}

func TestNotifySwallowsTransportErrors(t *testing.T) {
	s := testutil.NewTestStore(t)
	seedGroup(t, s, -100, 1)
	seedGroup(t, s, -200, 1)
	transport := &testutil.Transport{Err: errors.New("network down")}
	n := notify.NewNotifier(s, transport, zap.NewNop())

	if sent := n.Notify(context.Background(), notify.Event{Actor: model.User{ID: 1}, Text: "x"}); sent != 0 {
		t.Fatalf("sent = %d, want 0", sent)
	}
}

func TestComposeWithoutTask(t *testing.T) {
	got := notify.Compose(notify.Event{Actor: model.User{Username: "ann"}, Text: "hello"})
	want := "🔔 Task Notification\n\nhello\n\n👤 By: @ann"
	if got != want {
		t.Fatalf("Compose = %q, want %q", got, want)
	}
}
