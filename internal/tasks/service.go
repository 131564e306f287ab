// Package tasks is the task repository used by the bot: owner-scoped
// CRUD and search, group-wide listings, and file attachments.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/taskbot/internal/model"
	"github.com/nhle/taskbot/internal/store"
)

var (
	// ErrEmptyTitle is returned when a title is blank.
	ErrEmptyTitle = errors.New("task title must not be empty")

	// ErrEmptyQuery is returned when a search query is blank.
	ErrEmptyQuery = errors.New("search query must not be empty")
)

// FileRef identifies an uploaded file on the chat platform.
type FileRef struct {
	FileID   string
	FileType string
	FileName string
}

// FileResolver turns a platform file reference into a public download
// URL, typically by fetching and storing the body.
type FileResolver interface {
	Resolve(ctx context.Context, ref FileRef) (string, error)
}

const (
	defaultAttachTimeout = 15 * time.Second

	// writeTimeout bounds storing an attachment once resolution is over,
	// whatever is left of the caller's deadline.
	writeTimeout = 5 * time.Second
)

// Service wraps the store with validation, owner scoping, and listing
// limits.
type Service struct {
	store          store.Store
	resolver       FileResolver
	log            *zap.Logger
	listLimit      int
	groupListLimit int
	attachTimeout  time.Duration
}

// NewService creates a task Service. resolver may be nil, in which case
// attachments are stored without a URL.
func NewService(s store.Store, resolver FileResolver, log *zap.Logger, cfg model.TasksConfig) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 20
	}
	if cfg.GroupListLimit <= 0 {
		cfg.GroupListLimit = 10
	}
	if cfg.AttachTimeout <= 0 {
		cfg.AttachTimeout = defaultAttachTimeout
	}
	return &Service{
		store:          s,
		resolver:       resolver,
		log:            log,
		listLimit:      cfg.ListLimit,
		groupListLimit: cfg.GroupListLimit,
		attachTimeout:  cfg.AttachTimeout,
	}
}

// Create adds a PENDING task for ownerID. A blank description is stored
// as null.
func (s *Service) Create(ctx context.Context, ownerID int64, title, description string) (*model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	t := model.Task{UserID: ownerID, Title: title, Status: model.StatusPending, Description: normalizeDescription(description)}
	return s.store.CreateTask(ctx, t)
}

// normalizeDescription trims d; blank descriptions become nil.
func normalizeDescription(d string) *string {
	d = strings.TrimSpace(d)
	if d == "" {
		return nil
	}
	return &d
}

// Get returns the task only if ownerID owns it; anything else is
// store.ErrNotFound.
func (s *Service) Get(ctx context.Context, ownerID, taskID int64) (*model.Task, error) {
	return s.store.GetTaskForOwner(ctx, ownerID, taskID)
}

// List returns the owner's newest tasks.
func (s *Service) List(ctx context.Context, ownerID int64) ([]model.Task, error) {
	return s.store.ListTasks(ctx, ownerID, s.listLimit)
}

// Search matches query against title, description, and status.
func (s *Service) Search(ctx context.Context, ownerID int64, query string) ([]model.Task, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	return s.store.SearchTasks(ctx, ownerID, query, s.listLimit)
}

// ListForGroup returns the newest tasks of every active member of chatID.
func (s *Service) ListForGroup(ctx context.Context, chatID int64) ([]model.Task, error) {
	return s.store.ListGroupTasks(ctx, chatID, s.groupListLimit)
}

// SearchForGroup is Search across every active member of chatID.
func (s *Service) SearchForGroup(ctx context.Context, chatID int64, query string) ([]model.Task, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	return s.store.SearchGroupTasks(ctx, chatID, query, s.groupListLimit)
}

// UpdateTitle renames an owned task and returns it before and after.
func (s *Service) UpdateTitle(ctx context.Context, ownerID, taskID int64, title string) (before, after *model.Task, err error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, nil, ErrEmptyTitle
	}
	before, err = s.Get(ctx, ownerID, taskID)
	if err != nil {
		return nil, nil, err
	}
	after, err = s.store.UpdateTaskTitle(ctx, taskID, title)
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

// UpdateDescription replaces the description of an owned task. Like
// Create, it trims the text and clears the description when blank.
func (s *Service) UpdateDescription(ctx context.Context, ownerID, taskID int64, description string) (before, after *model.Task, err error) {
	before, err = s.Get(ctx, ownerID, taskID)
	if err != nil {
		return nil, nil, err
	}
	after, err = s.store.UpdateTaskDescription(ctx, taskID, normalizeDescription(description))
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

// UpdateStatus moves an owned task to status.
func (s *Service) UpdateStatus(ctx context.Context, ownerID, taskID int64, status model.TaskStatus) (before, after *model.Task, err error) {
	status, err = model.ParseTaskStatus(string(status))
	if err != nil {
		return nil, nil, err
	}
	before, err = s.Get(ctx, ownerID, taskID)
	if err != nil {
		return nil, nil, err
	}
	after, err = s.store.UpdateTaskStatus(ctx, taskID, status)
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

// Delete soft-deletes an owned task and returns its last state.
func (s *Service) Delete(ctx context.Context, ownerID, taskID int64) (*model.Task, error) {
	t, err := s.Get(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteTask(ctx, taskID); err != nil {
		return nil, err
	}
	return t, nil
}

// Attach links a file to an owned task. URL resolution is best effort: it
// gets its own timeout, and on failure the attachment is stored with a
// null URL. The record is written even if ctx ran out while resolving.
func (s *Service) Attach(ctx context.Context, ownerID, taskID int64, ref FileRef) (*model.Attachment, *model.Task, error) {
	if strings.TrimSpace(ref.FileID) == "" {
		return nil, nil, fmt.Errorf("attachment file id must not be empty")
	}
	t, err := s.Get(ctx, ownerID, taskID)
	if err != nil {
		return nil, nil, err
	}

	a := model.Attachment{TaskID: t.ID, FileID: ref.FileID}
	if ref.FileType != "" {
		a.FileType = &ref.FileType
	}
	if ref.FileName != "" {
		a.FileName = &ref.FileName
	}

	if s.resolver != nil {
		if url, err := s.resolve(ctx, ref); err != nil {
			s.log.Warn("resolving attachment url failed",
				zap.Int64("task_id", t.ID),
				zap.String("file_id", ref.FileID),
				zap.Error(err))
		} else if url != "" {
			a.FileURL = &url
		}
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	created, err := s.store.CreateAttachment(wctx, a)
	if err != nil {
		return nil, nil, err
	}
	return created, t, nil
}

func (s *Service) resolve(ctx context.Context, ref FileRef) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.attachTimeout)
	defer cancel()
	return s.resolver.Resolve(ctx, ref)
}

// Attachments returns the files linked to an owned task.
func (s *Service) Attachments(ctx context.Context, ownerID, taskID int64) ([]model.Attachment, error) {
	if _, err := s.Get(ctx, ownerID, taskID); err != nil {
		return nil, err
	}
	return s.store.GetAttachments(ctx, taskID)
}

// Stats counts the owner's tasks by status.
func (s *Service) Stats(ctx context.Context, ownerID int64) (model.TaskStats, error) {
	return s.store.TaskStats(ctx, ownerID)
}

// GroupStats counts tasks across a group and reports its member count.
func (s *Service) GroupStats(ctx context.Context, chatID int64) (model.TaskStats, error) {
	return s.store.GroupTaskStats(ctx, chatID)
}
