package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/taskbot/internal/theme"
)

var (
	sendChatID int64
	sendText   string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a message as the bot",
	RunE:  runSend,
}

func init() {
	sendCmd.Flags().Int64Var(&sendChatID, "chat", 0, "target chat id")
	sendCmd.Flags().StringVar(&sendText, "text", "", "message text")
}

func runSend(cmd *cobra.Command, args []string) error {
	text := strings.TrimSpace(sendText)
	if sendChatID == 0 || text == "" {
		return errors.New("chat id and message text are required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	if err := client.SendMessage(cmd.Context(), sendChatID, text, nil); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), theme.SuccessStyle.Render("Message sent successfully!"))
	return nil
}
