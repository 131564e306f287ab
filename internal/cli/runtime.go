package cli

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nhle/taskbot/internal/bot"
	"github.com/nhle/taskbot/internal/convo"
	"github.com/nhle/taskbot/internal/credential"
	"github.com/nhle/taskbot/internal/files"
	"github.com/nhle/taskbot/internal/model"
	"github.com/nhle/taskbot/internal/notify"
	"github.com/nhle/taskbot/internal/store"
	"github.com/nhle/taskbot/internal/tasks"
	"github.com/nhle/taskbot/internal/telegram"
	"github.com/nhle/taskbot/internal/worker"
)

// runtime holds everything a long-running command needs.
type runtime struct {
	cfg        *model.AppConfig
	log        *zap.Logger
	store      *store.SQLiteStore
	client     *telegram.Client
	states     convo.Store
	sweeper    *worker.StateSweeper
	downloader *files.Downloader
	dispatcher *bot.Dispatcher
}

// loadConfig reads the config file named by --config.
func loadConfig() (*model.AppConfig, error) {
	return model.LoadConfig(configPath)
}

// newClient builds a Bot API client with the token from config or the
// keyring.
func newClient(cfg *model.AppConfig) (*telegram.Client, error) {
	token, err := credential.ResolveToken(cfg.Telegram.Token, credential.Open)
	if err != nil {
		return nil, err
	}
	return telegram.NewClient(cfg.Telegram.APIRoot, token, cfg.Telegram.RequestTimeout), nil
}

// openRuntime opens the database, builds the client, and assembles the
// dispatcher. Callers must Close the result.
func openRuntime(ctx context.Context, cfg *model.AppConfig, log *zap.Logger) (*runtime, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	botUsername := cfg.Telegram.BotUsername
	if botUsername == "" {
		me, err := client.GetMe(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolving bot username: %w", err)
		}
		botUsername = me.Username
	}

	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	var states interface {
		convo.Store
		worker.Sweeper
	}
	switch cfg.State.Backend {
	case model.StateBackendMemory:
		states = convo.NewMemoryStore(nil)
	default:
		states = store.NewStateStore(db, nil)
	}

	downloader := files.NewDownloader(client, cfg.Attachments, log.Named("files"))
	svc := tasks.NewService(db, downloader, log.Named("tasks"), cfg.Tasks)
	notifier := notify.NewNotifier(db, client, log.Named("notify"))

	dispatcher := bot.NewDispatcher(bot.Deps{
		Transport:   client,
		Registry:    db,
		Tasks:       svc,
		States:      states,
		Notifier:    notifier,
		BotUsername: strings.TrimPrefix(botUsername, "@"),
		StateTTL:    cfg.State.TTL,
		Log:         log.Named("bot"),
	})

	log.Info("runtime ready",
		zap.String("bot", botUsername),
		zap.String("database", cfg.Database.Path),
		zap.String("state_backend", cfg.State.Backend))

	return &runtime{
		cfg:        cfg,
		log:        log,
		store:      db,
		client:     client,
		states:     states,
		sweeper:    worker.NewStateSweeper(states, log.Named("sweeper"), cfg.State.SweepInterval),
		downloader: downloader,
		dispatcher: dispatcher,
	}, nil
}

// Close releases the database.
func (r *runtime) Close() {
	if err := r.store.Close(); err != nil {
		r.log.Warn("closing database failed", zap.Error(err))
	}
}

// webhookURL is where Telegram should deliver updates, or "" when no
// public URL is configured.
func webhookURL(cfg *model.AppConfig) string {
	if cfg.Telegram.PublicURL == "" {
		return ""
	}
	return cfg.Telegram.PublicURL + "/telegram/webhook"
}
