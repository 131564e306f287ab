package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nhle/taskbot/internal/model"
	"github.com/nhle/taskbot/internal/store"
	"github.com/nhle/taskbot/tests/testutil"
)

func strPtr(s string) *string { return &s }

func seedUser(t *testing.T, s *store.SQLiteStore, id int64, first string) {
	t.Helper()
	if _, err := s.UpsertUser(context.Background(), model.User{ID: id, FirstName: first}); err != nil {
		t.Fatalf("seeding user %d: %v", id, err)
	}
}

func TestCreateTaskDefaultsToPending(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	seedUser(t, s, 1, "Ann")

	task, err := s.CreateTask(ctx, model.Task{UserID: 1, Title: "Report", Description: strPtr("Finish the Q3 report")})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.ID == 0 || task.Status != model.StatusPending {
		t.Fatalf("unexpected task: %+v", task)
	}
	if task.DescriptionText() != "Finish the Q3 report" {
		t.Fatalf("description = %q", task.DescriptionText())
	}
}

func TestCreateTaskRejectsEmptyTitle(t *testing.T) {
	s := testutil.NewTestStore(t)
	seedUser(t, s, 1, "Ann")

	if _, err := s.CreateTask(context.Background(), model.Task{UserID: 1, Title: "   "}); err == nil {
		t.Fatal("expected error for blank title")
	}
}

func TestGetTaskForOwnerScopesByOwner(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	seedUser(t, s, 1, "Ann")
	seedUser(t, s, 2, "Bob")

	task, _ := s.CreateTask(ctx, model.Task{UserID: 1, Title: "Mine"})

	if _, err := s.GetTaskForOwner(ctx, 2, task.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("other owner lookup: got %v, want ErrNotFound", err)
	}
	got, err := s.GetTaskForOwner(ctx, 1, task.ID)
	if err != nil || got.Title != "Mine" {
		t.Fatalf("owner lookup = %+v, %v", got, err)
	}
}

func TestListTasksNewestFirstWithLimit(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	seedUser(t, s, 1, "Ann")

	for _, title := range []string{"one", "two", "three"} {
		if _, err := s.CreateTask(ctx, model.Task{UserID: 1, Title: title}); err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
	}

	tasks, err := s.ListTasks(ctx, 1, 2)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 2 || tasks[0].Title != "three" || tasks[1].Title != "two" {
		t.Fatalf("unexpected order: %+v", tasks)
	}
}

func TestSearchTasksCaseInsensitive(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	seedUser(t, s, 1, "Ann")

	milk, _ := s.CreateTask(ctx, model.Task{UserID: 1, Title: "Buy milk"})
	_, _ = s.CreateTask(ctx, model.Task{UserID: 1, Title: "Call mom", Description: strPtr("about the 50% discount")})
	_, _ = s.CreateTask(ctx, model.Task{UserID: 1, Title: "Купить Молоко"})
	_, _ = s.CreateTask(ctx, model.Task{UserID: 1, Title: "Lunch", Description: strPtr("Über Café at noon")})

	tests := []struct {
		query string
		want  int
	}{
		{"MILK", 1},
		{"milk", 1},
		{"молоко", 1},
		{"МОЛОКО", 1},
		{"über", 1},
		{"CAFÉ", 1},
		{"pending", 4},
		{"50%", 1},
		{"_", 0},
		{"nothing", 0},
	}
	for _, tt := range tests {
		got, err := s.SearchTasks(ctx, 1, tt.query, 0)
		if err != nil {
			t.Fatalf("SearchTasks(%q): %v", tt.query, err)
		}
		if len(got) != tt.want {
			t.Errorf("SearchTasks(%q) returned %d tasks, want %d", tt.query, len(got), tt.want)
		}
	}

	got, _ := s.SearchTasks(ctx, 1, "MILK", 0)
	if len(got) == 1 && got[0].ID != milk.ID {
		t.Fatalf("wrong task matched: %+v", got[0])
	}
}

func TestUpdateTaskStatusRejectsFreeForm(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	seedUser(t, s, 1, "Ann")
	task, _ := s.CreateTask(ctx, model.Task{UserID: 1, Title: "x"})

	if _, err := s.UpdateTaskStatus(ctx, task.ID, model.TaskStatus("DONE")); err == nil {
		t.Fatal("expected invalid status error")
	}
	updated, err := s.UpdateTaskStatus(ctx, task.ID, model.StatusCompleted)
	if err != nil || updated.Status != model.StatusCompleted {
		t.Fatalf("UpdateTaskStatus = %+v, %v", updated, err)
	}
}

func TestUpdateTaskDescriptionNilClears(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	seedUser(t, s, 1, "Ann")
	desc := "first"
	task, _ := s.CreateTask(ctx, model.Task{UserID: 1, Title: "notes", Description: &desc})

	next := "second"
	updated, err := s.UpdateTaskDescription(ctx, task.ID, &next)
	if err != nil {
		t.Fatalf("UpdateTaskDescription: %v", err)
	}
	if updated.Description == nil || *updated.Description != "second" {
		t.Fatalf("description = %v, want second", updated.Description)
	}

	cleared, err := s.UpdateTaskDescription(ctx, task.ID, nil)
	if err != nil {
		t.Fatalf("UpdateTaskDescription(nil): %v", err)
	}
	if cleared.Description != nil {
		t.Fatalf("description = %q, want null", *cleared.Description)
	}
}

func TestDeleteTaskIsIdempotentSoftDelete(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	seedUser(t, s, 1, "Ann")
	task, _ := s.CreateTask(ctx, model.Task{UserID: 1, Title: "gone"})

	for i := 0; i < 2; i++ {
		if err := s.DeleteTask(ctx, task.ID); err != nil {
			t.Fatalf("DeleteTask #%d: %v", i+1, err)
		}
	}
	if _, err := s.GetTaskForOwner(ctx, 1, task.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("deleted task still visible: %v", err)
	}
	if _, err := s.UpdateTaskTitle(ctx, task.ID, "back"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("update of deleted task: got %v, want ErrNotFound", err)
	}
}

func TestGroupTasksUnionMembers(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	seedUser(t, s, 1, "Ann")
	seedUser(t, s, 2, "Bob")
	seedUser(t, s, 3, "Cid")
	_, _ = s.UpsertGroup(ctx, model.Group{ChatID: -100, Title: "Team"})
	_ = s.LinkUserToGroup(ctx, 1, -100)
	_ = s.LinkUserToGroup(ctx, 2, -100)

	_, _ = s.CreateTask(ctx, model.Task{UserID: 1, Title: "Ann task"})
	_, _ = s.CreateTask(ctx, model.Task{UserID: 2, Title: "Bob task"})
	_, _ = s.CreateTask(ctx, model.Task{UserID: 3, Title: "Outsider task"})

	tasks, err := s.ListGroupTasks(ctx, -100, 10)
	if err != nil {
		t.Fatalf("ListGroupTasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d group tasks, want 2", len(tasks))
	}
	if tasks[0].Owner == nil || tasks[0].Owner.DisplayName() != "Bob" {
		t.Fatalf("owner not populated: %+v", tasks[0].Owner)
	}

	found, err := s.SearchGroupTasks(ctx, -100, "ANN", 10)
	if err != nil || len(found) != 1 || found[0].Title != "Ann task" {
		t.Fatalf("SearchGroupTasks = %+v, %v", found, err)
	}
}

func TestTaskStats(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	seedUser(t, s, 1, "Ann")
	_, _ = s.UpsertGroup(ctx, model.Group{ChatID: -100, Title: "Team"})
	_ = s.LinkUserToGroup(ctx, 1, -100)

	a, _ := s.CreateTask(ctx, model.Task{UserID: 1, Title: "a"})
	_, _ = s.CreateTask(ctx, model.Task{UserID: 1, Title: "b"})
	c, _ := s.CreateTask(ctx, model.Task{UserID: 1, Title: "c"})
	_, _ = s.UpdateTaskStatus(ctx, a.ID, model.StatusInProgress)
	_ = s.DeleteTask(ctx, c.ID)

	st, err := s.TaskStats(ctx, 1)
	if err != nil {
		t.Fatalf("TaskStats: %v", err)
	}
	if st.Total != 2 || st.Pending != 1 || st.InProgress != 1 || st.Completed != 0 {
		t.Fatalf("unexpected stats: %+v", st)
	}

	gst, err := s.GroupTaskStats(ctx, -100)
	if err != nil {
		t.Fatalf("GroupTaskStats: %v", err)
	}
	if gst.Total != 2 || gst.Members != 1 {
		t.Fatalf("unexpected group stats: %+v", gst)
	}
}

func TestAttachmentsCascadeWithTask(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	seedUser(t, s, 1, "Ann")
	task, _ := s.CreateTask(ctx, model.Task{UserID: 1, Title: "with file"})

	a, err := s.CreateAttachment(ctx, model.Attachment{
		TaskID:   task.ID,
		FileID:   "F1",
		FileType: strPtr("application/pdf"),
		FileName: strPtr("q3.pdf"),
	})
	if err != nil {
		t.Fatalf("CreateAttachment: %v", err)
	}
	if a.ID == 0 || a.FileURL != nil {
		t.Fatalf("unexpected attachment: %+v", a)
	}

	list, err := s.GetAttachments(ctx, task.ID)
	if err != nil || len(list) != 1 || *list[0].FileName != "q3.pdf" {
		t.Fatalf("GetAttachments = %+v, %v", list, err)
	}
}
