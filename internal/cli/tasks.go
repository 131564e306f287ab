package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/taskbot/internal/model"
	"github.com/nhle/taskbot/internal/store"
	"github.com/nhle/taskbot/internal/tasks"
	"github.com/nhle/taskbot/internal/theme"
)

var (
	tasksUserID int64
	tasksQuery  string
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Print a user's tasks from the local database",
	RunE:  runTasks,
}

func init() {
	tasksCmd.Flags().Int64Var(&tasksUserID, "user", 0, "telegram user id")
	tasksCmd.Flags().StringVar(&tasksQuery, "query", "", "only tasks matching this text")
}

func runTasks(cmd *cobra.Command, args []string) error {
	if tasksUserID == 0 {
		return errors.New("--user is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := tasks.NewService(db, nil, zap.NewNop(), cfg.Tasks)

	var list []model.Task
	if strings.TrimSpace(tasksQuery) != "" {
		list, err = svc.Search(cmd.Context(), tasksUserID, tasksQuery)
	} else {
		list, err = svc.List(cmd.Context(), tasksUserID)
	}
	if err != nil {
		return fmt.Errorf("loading tasks: %w", err)
	}

	files := make(map[int64][]model.Attachment, len(list))
	for _, t := range list {
		atts, err := svc.Attachments(cmd.Context(), tasksUserID, t.ID)
		if err != nil {
			return fmt.Errorf("loading attachments of task %d: %w", t.ID, err)
		}
		files[t.ID] = atts
	}

	printTasks(cmd.OutOrStdout(), tasksUserID, list, files)
	return nil
}

// printTasks renders one card per task, listing the attachments in files
// keyed by task id.
func printTasks(w io.Writer, userID int64, list []model.Task, files map[int64][]model.Attachment) {
	fmt.Fprintln(w, theme.HeaderStyle.Render(fmt.Sprintf("Tasks for user %d", userID)))
	if len(list) == 0 {
		fmt.Fprintln(w, theme.MutedStyle.Render("No tasks found."))
		return
	}
	for _, t := range list {
		fmt.Fprintln(w, renderTask(t, files[t.ID]))
	}
}

func renderTask(t model.Task, atts []model.Attachment) string {
	var b strings.Builder
	b.WriteString(theme.MutedStyle.Render(fmt.Sprintf("#%d", t.ID)))
	b.WriteString(" ")
	b.WriteString(t.Title)
	b.WriteString(" ")
	b.WriteString(theme.StatusStyle(t.Status).Render(t.Status.Label()))
	if desc := t.DescriptionText(); desc != "" {
		b.WriteString("\n")
		b.WriteString(desc)
	}
	for _, a := range atts {
		b.WriteString("\n📎 ")
		b.WriteString(attachmentLabel(a))
	}
	b.WriteString("\n")
	b.WriteString(theme.MutedStyle.Render("created " + t.CreatedAt.Format("2006-01-02 15:04")))
	return theme.CardStyle.Render(b.String())
}

func attachmentLabel(a model.Attachment) string {
	label := a.FileID
	if a.FileName != nil && *a.FileName != "" {
		label = *a.FileName
	}
	if a.FileURL != nil {
		label += " " + theme.MutedStyle.Render(*a.FileURL)
	}
	return label
}
