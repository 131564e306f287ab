package tasks_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/taskbot/internal/model"
	"github.com/nhle/taskbot/internal/store"
	"github.com/nhle/taskbot/internal/tasks"
	"github.com/nhle/taskbot/tests/testutil"
)

type stubResolver struct {
	url string
	err error
}

func (r stubResolver) Resolve(context.Context, tasks.FileRef) (string, error) {
	return r.url, r.err
}

func newService(t *testing.T, resolver tasks.FileResolver) (*tasks.Service, *store.SQLiteStore) {
	t.Helper()
	s := testutil.NewTestStore(t)
	for _, id := range []int64{1, 2} {
		if _, err := s.UpsertUser(context.Background(), model.User{ID: id, FirstName: "U"}); err != nil {
			t.Fatalf("seeding user: %v", err)
		}
	}
	return tasks.NewService(s, resolver, zap.NewNop(), model.TasksConfig{ListLimit: 20, GroupListLimit: 10}), s
}

func TestCreateStoresNullDescriptionWhenBlank(t *testing.T) {
	svc, _ := newService(t, nil)

	task, err := svc.Create(context.Background(), 1, "  Report ", "   ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.Title != "Report" || task.Description != nil || task.Status != model.StatusPending {
		t.Fatalf("unexpected task: %+v", task)
	}

	if _, err := svc.Create(context.Background(), 1, " ", "x"); !errors.Is(err, tasks.ErrEmptyTitle) {
		t.Fatalf("got %v, want ErrEmptyTitle", err)
	}
}

func TestUpdateDescriptionNormalizesLikeCreate(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()
	task, _ := svc.Create(ctx, 1, "Report", "draft")

	_, after, err := svc.UpdateDescription(ctx, 1, task.ID, "  final numbers \n")
	if err != nil {
		t.Fatalf("UpdateDescription: %v", err)
	}
	if after.Description == nil || *after.Description != "final numbers" {
		t.Fatalf("description = %v, want trimmed text", after.Description)
	}

	_, after, err = svc.UpdateDescription(ctx, 1, task.ID, "   ")
	if err != nil {
		t.Fatalf("UpdateDescription blank: %v", err)
	}
	if after.Description != nil {
		t.Fatalf("description = %q, want null", *after.Description)
	}
}

func TestUpdatesAreOwnerScoped(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()
	task, _ := svc.Create(ctx, 1, "Mine", "")

	if _, _, err := svc.UpdateTitle(ctx, 2, task.ID, "Stolen"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("UpdateTitle by non-owner: got %v", err)
	}
	if _, err := svc.Delete(ctx, 2, task.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Delete by non-owner: got %v", err)
	}

	before, after, err := svc.UpdateStatus(ctx, 1, task.ID, model.StatusInProgress)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if before.Status != model.StatusPending || after.Status != model.StatusInProgress {
		t.Fatalf("before=%s after=%s", before.Status, after.Status)
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	svc, _ := newService(t, nil)
	if _, err := svc.Search(context.Background(), 1, "  "); !errors.Is(err, tasks.ErrEmptyQuery) {
		t.Fatalf("got %v, want ErrEmptyQuery", err)
	}
}

func TestAttachSurvivesResolverFailure(t *testing.T) {
	svc, s := newService(t, stubResolver{err: errors.New("download failed")})
	ctx := context.Background()
	task, _ := svc.Create(ctx, 1, "With file", "")

	a, _, err := svc.Attach(ctx, 1, task.ID, tasks.FileRef{FileID: "F1", FileType: "application/pdf", FileName: "q3.pdf"})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if a.FileURL != nil {
		t.Fatalf("file_url = %q, want null", *a.FileURL)
	}

	stored, _ := s.GetAttachments(ctx, task.ID)
	if len(stored) != 1 {
		t.Fatalf("got %d stored attachments, want 1", len(stored))
	}
}

func TestAttachRecordsResolvedURL(t *testing.T) {
	svc, _ := newService(t, stubResolver{url: "https://bot.example.com/attachments/tg_1.jpg"})
	ctx := context.Background()
	task, _ := svc.Create(ctx, 1, "Photo", "")

	a, _, err := svc.Attach(ctx, 1, task.ID, tasks.FileRef{FileID: "P1", FileType: model.FileTypePhoto})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if a.FileURL == nil || *a.FileURL != "https://bot.example.com/attachments/tg_1.jpg" {
		t.Fatalf("unexpected url: %v", a.FileURL)
	}

	if _, _, err := svc.Attach(ctx, 2, task.ID, tasks.FileRef{FileID: "P2"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Attach by non-owner: got %v", err)
	}
}

type stalledResolver struct{}

func (stalledResolver) Resolve(ctx context.Context, _ tasks.FileRef) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestAttachStoresRecordWhenResolverStalls(t *testing.T) {
	svc, s := newService(t, stalledResolver{})
	task, _ := svc.Create(context.Background(), 1, "Slow file", "")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	a, _, err := svc.Attach(ctx, 1, task.ID, tasks.FileRef{FileID: "F1", FileName: "big.zip"})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if a.FileURL != nil {
		t.Fatalf("file_url = %q, want null", *a.FileURL)
	}

	stored, err := s.GetAttachments(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("GetAttachments: %v", err)
	}
	if len(stored) != 1 || stored[0].FileID != "F1" {
		t.Fatalf("unexpected stored attachments: %+v", stored)
	}
}

func TestAttachBoundsResolverWithOwnTimeout(t *testing.T) {
	s := testutil.NewTestStore(t)
	if _, err := s.UpsertUser(context.Background(), model.User{ID: 1, FirstName: "U"}); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	svc := tasks.NewService(s, stalledResolver{}, zap.NewNop(),
		model.TasksConfig{ListLimit: 20, GroupListLimit: 10, AttachTimeout: 20 * time.Millisecond})
	task, _ := svc.Create(context.Background(), 1, "Slow file", "")

	done := make(chan error, 1)
	go func() {
		_, _, err := svc.Attach(context.Background(), 1, task.ID, tasks.FileRef{FileID: "F2"})
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Attach: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Attach did not return after the attach timeout")
	}
}
