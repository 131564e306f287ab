package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/taskbot/internal/model"
)

const taskColumns = "t.id, t.user_id, t.title, t.description, t.status, t.due_date, " +
	"t.created_at, t.updated_at, t.deleted_at"

// taskOwnerRow scans a task joined with its owning user.
type taskOwnerRow struct {
	model.Task
	OwnerUsername  string    `db:"owner_username"`
	OwnerFirstName string    `db:"owner_first_name"`
	OwnerLastName  string    `db:"owner_last_name"`
	OwnerCreatedAt time.Time `db:"owner_created_at"`
	OwnerUpdatedAt time.Time `db:"owner_updated_at"`
}

func (r taskOwnerRow) task() model.Task {
	t := r.Task
	t.Owner = &model.User{
		ID:        r.UserID,
		Username:  r.OwnerUsername,
		FirstName: r.OwnerFirstName,
		LastName:  r.OwnerLastName,
		CreatedAt: r.OwnerCreatedAt,
		UpdatedAt: r.OwnerUpdatedAt,
	}
	return t
}

const ownerColumns = "u.username AS owner_username, u.first_name AS owner_first_name, " +
	"u.last_name AS owner_last_name, u.created_at AS owner_created_at, " +
	"u.updated_at AS owner_updated_at"

// CreateTask inserts a new task. Status defaults to PENDING.
func (s *SQLiteStore) CreateTask(ctx context.Context, t model.Task) (*model.Task, error) {
	if strings.TrimSpace(t.Title) == "" {
		return nil, fmt.Errorf("task title must not be empty")
	}
	if t.Status == "" {
		t.Status = model.StatusPending
	}
	now := time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (user_id, title, description, status, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Title, t.Description, string(t.Status), t.DueDate, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading new task id: %w", err)
	}
	return s.getTask(ctx, id)
}

// getTask retrieves a live task by id regardless of owner.
func (s *SQLiteStore) getTask(ctx context.Context, id int64) (*model.Task, error) {
	var t model.Task
	err := s.db.GetContext(ctx, &t,
		"SELECT "+taskColumns+" FROM tasks t WHERE t.id = ? AND t.deleted_at IS NULL", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %d: %w", id, err)
	}
	return &t, nil
}

// GetTaskForOwner retrieves a live task only if ownerID owns it.
func (s *SQLiteStore) GetTaskForOwner(ctx context.Context, ownerID, taskID int64) (*model.Task, error) {
	var t model.Task
	err := s.db.GetContext(ctx, &t, "SELECT "+taskColumns+` FROM tasks t
		WHERE t.id = ? AND t.user_id = ? AND t.deleted_at IS NULL`, taskID, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %d for user %d: %w", taskID, ownerID, err)
	}
	return &t, nil
}

// ListTasks returns the owner's live tasks, newest first.
func (s *SQLiteStore) ListTasks(ctx context.Context, ownerID int64, limit int) ([]model.Task, error) {
	query := "SELECT " + taskColumns + ` FROM tasks t
		WHERE t.user_id = ? AND t.deleted_at IS NULL
		ORDER BY t.created_at DESC, t.id DESC`
	args := []interface{}{ownerID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var tasks []model.Task
	if err := s.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("listing tasks for user %d: %w", ownerID, err)
	}
	return tasks, nil
}

// searchClause matches one lowered pattern against title, description,
// and status. It takes the pattern three times.
const searchClause = `(utf8_lower(t.title) LIKE ? ESCAPE '\'
	OR utf8_lower(COALESCE(t.description, '')) LIKE ? ESCAPE '\'
	OR utf8_lower(t.status) LIKE ? ESCAPE '\')`

// SearchTasks returns the owner's live tasks whose title, description, or
// status contains query, case-insensitively, newest first.
func (s *SQLiteStore) SearchTasks(ctx context.Context, ownerID int64, query string, limit int) ([]model.Task, error) {
	q := likePattern(query)
	stmt := "SELECT " + taskColumns + ` FROM tasks t
		WHERE t.user_id = ? AND t.deleted_at IS NULL AND ` + searchClause + `
		ORDER BY t.created_at DESC, t.id DESC`
	args := []interface{}{ownerID, q, q, q}
	if limit > 0 {
		stmt += " LIMIT ?"
		args = append(args, limit)
	}

	var tasks []model.Task
	if err := s.db.SelectContext(ctx, &tasks, stmt, args...); err != nil {
		return nil, fmt.Errorf("searching tasks for user %d: %w", ownerID, err)
	}
	return tasks, nil
}

// ListGroupTasks returns live tasks owned by any active member of chatID,
// newest first, with Owner populated.
func (s *SQLiteStore) ListGroupTasks(ctx context.Context, chatID int64, limit int) ([]model.Task, error) {
	return s.selectGroupTasks(ctx, chatID, "", limit)
}

// SearchGroupTasks is SearchTasks across every active member of chatID.
func (s *SQLiteStore) SearchGroupTasks(ctx context.Context, chatID int64, query string, limit int) ([]model.Task, error) {
	return s.selectGroupTasks(ctx, chatID, query, limit)
}

func (s *SQLiteStore) selectGroupTasks(ctx context.Context, chatID int64, query string, limit int) ([]model.Task, error) {
	stmt := "SELECT " + taskColumns + ", " + ownerColumns + ` FROM tasks t
		INNER JOIN bot_users u ON u.id = t.user_id
		INNER JOIN group_members m ON m.user_id = t.user_id
		WHERE m.group_id = ? AND m.is_active = 1 AND t.deleted_at IS NULL`
	args := []interface{}{chatID}

	if query != "" {
		q := likePattern(query)
		stmt += " AND " + searchClause
		args = append(args, q, q, q)
	}

	stmt += " ORDER BY t.created_at DESC, t.id DESC"
	if limit > 0 {
		stmt += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []taskOwnerRow
	if err := s.db.SelectContext(ctx, &rows, stmt, args...); err != nil {
		return nil, fmt.Errorf("querying tasks for group %d: %w", chatID, err)
	}

	tasks := make([]model.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.task())
	}
	return tasks, nil
}

// UpdateTaskTitle sets the title of a live task.
func (s *SQLiteStore) UpdateTaskTitle(ctx context.Context, taskID int64, title string) (*model.Task, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("task title must not be empty")
	}
	return s.updateTask(ctx, taskID, "title", title)
}

// UpdateTaskDescription sets the description of a live task. A nil
// description is stored as NULL.
func (s *SQLiteStore) UpdateTaskDescription(ctx context.Context, taskID int64, description *string) (*model.Task, error) {
	var value interface{}
	if description != nil {
		value = *description
	}
	return s.updateTask(ctx, taskID, "description", value)
}

// UpdateTaskStatus sets the status of a live task.
func (s *SQLiteStore) UpdateTaskStatus(ctx context.Context, taskID int64, status model.TaskStatus) (*model.Task, error) {
	if _, err := model.ParseTaskStatus(string(status)); err != nil {
		return nil, err
	}
	return s.updateTask(ctx, taskID, "status", string(status))
}

// updateTask writes one column. column is always a constant supplied by
// the callers above.
func (s *SQLiteStore) updateTask(ctx context.Context, taskID int64, column string, value interface{}) (*model.Task, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET "+column+" = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		value, time.Now().UTC(), taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating %s of task %d: %w", column, taskID, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, ErrNotFound
	}
	return s.getTask(ctx, taskID)
}

// DeleteTask soft-deletes a task. Deleting an already deleted or missing
// task is not an error.
func (s *SQLiteStore) DeleteTask(ctx context.Context, taskID int64) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		now, now, taskID,
	)
	if err != nil {
		return fmt.Errorf("deleting task %d: %w", taskID, err)
	}
	return nil
}

const statsColumns = `
	COUNT(*) AS total,
	COALESCE(SUM(CASE WHEN t.status = 'PENDING' THEN 1 ELSE 0 END), 0) AS pending,
	COALESCE(SUM(CASE WHEN t.status = 'IN_PROGRESS' THEN 1 ELSE 0 END), 0) AS in_progress,
	COALESCE(SUM(CASE WHEN t.status = 'COMPLETED' THEN 1 ELSE 0 END), 0) AS completed`

// TaskStats counts the owner's live tasks by status.
func (s *SQLiteStore) TaskStats(ctx context.Context, ownerID int64) (model.TaskStats, error) {
	var st model.TaskStats
	err := s.db.GetContext(ctx, &st, "SELECT "+statsColumns+
		" FROM tasks t WHERE t.user_id = ? AND t.deleted_at IS NULL", ownerID)
	if err != nil {
		return model.TaskStats{}, fmt.Errorf("counting tasks for user %d: %w", ownerID, err)
	}
	return st, nil
}

// GroupTaskStats counts live tasks across the active members of chatID
// and reports the member count.
func (s *SQLiteStore) GroupTaskStats(ctx context.Context, chatID int64) (model.TaskStats, error) {
	var st model.TaskStats
	err := s.db.GetContext(ctx, &st, "SELECT "+statsColumns+` FROM tasks t
		INNER JOIN group_members m ON m.user_id = t.user_id
		WHERE m.group_id = ? AND m.is_active = 1 AND t.deleted_at IS NULL`, chatID)
	if err != nil {
		return model.TaskStats{}, fmt.Errorf("counting tasks for group %d: %w", chatID, err)
	}

	members, err := s.CountGroupMembers(ctx, chatID)
	if err != nil {
		return model.TaskStats{}, err
	}
	st.Members = members
	return st, nil
}
