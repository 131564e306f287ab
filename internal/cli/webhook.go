package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/taskbot/internal/theme"
)

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Manage the Telegram webhook registration",
}

var webhookSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Register <telegram.public_url>/telegram/webhook with Telegram",
	RunE:  runWebhookSet,
}

var webhookRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the webhook registration",
	RunE:  runWebhookRemove,
}

func init() {
	webhookCmd.AddCommand(webhookSetCmd)
	webhookCmd.AddCommand(webhookRemoveCmd)
}

func runWebhookSet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	url := webhookURL(cfg)
	if url == "" {
		return errors.New("telegram.public_url is not configured")
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	if err := client.SetWebhook(cmd.Context(), url, cfg.Telegram.WebhookSecret); err != nil {
		return fmt.Errorf("setting webhook: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), theme.SuccessStyle.Render("Webhook set successfully!"), url)
	return nil
}

func runWebhookRemove(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	if err := client.DeleteWebhook(cmd.Context()); err != nil {
		return fmt.Errorf("removing webhook: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), theme.SuccessStyle.Render("Webhook removed successfully!"))
	return nil
}
