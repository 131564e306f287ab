// Package cli wires configuration, storage, and the Telegram client into
// the taskbot commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/taskbot/internal/model"
)

var (
	configPath string
	rootCmd    *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "taskbot",
		Short: "Telegram task management bot",
		Long: `taskbot manages personal tasks through a Telegram bot and posts task
activity to the groups its users belong to.

Run "taskbot serve" behind a public URL for webhooks, or "taskbot poll"
for local development.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath(), "path to the config file")
}

// Execute runs the root command.
func Execute(version string) error {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(webhookCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(setupCmd)

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
