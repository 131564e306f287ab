package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nhle/taskbot/internal/poller"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Run the bot with getUpdates long polling",
	Long: `Removes any registered webhook and feeds getUpdates results to the
dispatcher. Useful when the bot has no public URL.`,
	RunE: runPoll,
}

func runPoll(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	p := poller.New(rt.client, rt.dispatcher, log.Named("poller"), poller.Options{
		HandlerTimeout: cfg.Server.HandlerTimeout,
	})
	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("starting poller: %w", err)
	}

	rt.sweeper.Start()
	defer rt.sweeper.Stop()

	select {
	case <-ctx.Done():
		p.Stop()
		return nil
	case <-p.Done():
		st := p.Status()
		if st.Error != nil {
			return fmt.Errorf("poller exited: %w", st.Error)
		}
		return nil
	}
}
