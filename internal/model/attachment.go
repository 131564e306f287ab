package model

import "time"

// Attachment categories that are not MIME types.
const (
	FileTypePhoto = "photo"
)

// Attachment is a file linked to a task. Its lifecycle is bound to the
// parent task (CASCADE delete).
type Attachment struct {
	ID        int64     `json:"id" db:"id"`
	TaskID    int64     `json:"task_id" db:"task_id"`
	FileID    string    `json:"file_id" db:"file_id"`
	FileType  *string   `json:"file_type,omitempty" db:"file_type"`
	FileName  *string   `json:"file_name,omitempty" db:"file_name"`
	FileURL   *string   `json:"file_url,omitempty" db:"file_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
