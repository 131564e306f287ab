package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/taskbot/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the webhook and HTTP endpoints",
	Long: `Starts the HTTP server. Telegram delivers updates to
<telegram.public_url>/telegram/webhook once "taskbot webhook set" (or
GET /telegram/set-webhook) has registered it.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
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

	h := server.NewHandler(rt.dispatcher, rt.client, rt.store, log.Named("http"))
	h.WebhookURL = webhookURL(cfg)
	h.WebhookSecret = cfg.Telegram.WebhookSecret
	h.AttachmentsDir = rt.downloader.Dir()
	h.HandlerTimeout = cfg.Server.HandlerTimeout

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.Routes(h),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	rt.sweeper.Start()
	defer rt.sweeper.Stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown failed", zap.Error(err))
		}
	}()

	log.Info("listening", zap.String("addr", cfg.Server.Addr), zap.String("webhook", h.WebhookURL))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	log.Info("server stopped")
	return nil
}
