package store

import (
	"context"
	"fmt"
	"time"

	"github.com/nhle/taskbot/internal/model"
)

// CreateAttachment inserts an attachment for a task. FileURL may be nil.
func (s *SQLiteStore) CreateAttachment(ctx context.Context, a model.Attachment) (*model.Attachment, error) {
	if a.FileID == "" {
		return nil, fmt.Errorf("attachment file id must not be empty")
	}
	a.CreatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO task_attachments (task_id, file_id, file_type, file_name, file_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.TaskID, a.FileID, a.FileType, a.FileName, a.FileURL, a.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating attachment for task %d: %w", a.TaskID, err)
	}

	a.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading new attachment id: %w", err)
	}
	return &a, nil
}

// GetAttachments returns every attachment of a task, oldest first.
func (s *SQLiteStore) GetAttachments(ctx context.Context, taskID int64) ([]model.Attachment, error) {
	var attachments []model.Attachment
	err := s.db.SelectContext(ctx, &attachments, `
		SELECT id, task_id, file_id, file_type, file_name, file_url, created_at
		FROM task_attachments
		WHERE task_id = ?
		ORDER BY id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("querying attachments for task %d: %w", taskID, err)
	}
	return attachments, nil
}
