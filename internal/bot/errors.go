package bot

import "fmt"

// UserInputError is a problem the user can fix; Reply tells them how.
type UserInputError struct {
	Reply string
}

func (e *UserInputError) Error() string {
	return "user input: " + e.Reply
}

// AuthorizationError rejects an unregistered user.
type AuthorizationError struct {
	UserID int64
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("user %d is not registered", e.UserID)
}

// NotFoundError is a task id that does not exist, was deleted, or
// belongs to someone else.
type NotFoundError struct {
	TaskID int64
	Reply  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task %d not found", e.TaskID)
}

func notFound(taskID int64, reply string) error {
	if reply == "" {
		reply = replyNotFound
	}
	return &NotFoundError{TaskID: taskID, Reply: reply}
}
