package model_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nhle/taskbot/internal/model"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := model.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Telegram.APIRoot != "https://api.telegram.org" {
		t.Errorf("api root = %q", cfg.Telegram.APIRoot)
	}
	if cfg.State.Backend != model.StateBackendSQLite {
		t.Errorf("state backend = %q", cfg.State.Backend)
	}
	if cfg.State.TTL != 10*time.Minute {
		t.Errorf("state ttl = %v", cfg.State.TTL)
	}
	if cfg.Tasks.ListLimit != 20 || cfg.Tasks.GroupListLimit != 10 {
		t.Errorf("limits = %d/%d", cfg.Tasks.ListLimit, cfg.Tasks.GroupListLimit)
	}
	if cfg.Attachments.MaxBytes != 20*1024*1024 {
		t.Errorf("max bytes = %d", cfg.Attachments.MaxBytes)
	}
	if cfg.Tasks.AttachTimeout != 15*time.Second || cfg.Telegram.RequestTimeout != 10*time.Second {
		t.Errorf("attach/request timeout = %v/%v", cfg.Tasks.AttachTimeout, cfg.Telegram.RequestTimeout)
	}
	if cfg.Tasks.AttachTimeout >= cfg.Server.HandlerTimeout {
		t.Errorf("attach timeout %v not below handler timeout %v", cfg.Tasks.AttachTimeout, cfg.Server.HandlerTimeout)
	}
}

func TestLoadConfigReadsFileAndNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
telegram:
  bot_username: "@my_task_bot"
  public_url: "https://bot.example.com/"
state:
  backend: memory
  ttl: 5m
tasks:
  list_limit: 3
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := model.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Telegram.BotUsername != "my_task_bot" {
		t.Errorf("bot username = %q", cfg.Telegram.BotUsername)
	}
	if cfg.Telegram.PublicURL != "https://bot.example.com" {
		t.Errorf("public url = %q", cfg.Telegram.PublicURL)
	}
	if cfg.Attachments.PublicURL != "https://bot.example.com/attachments" {
		t.Errorf("attachments url = %q", cfg.Attachments.PublicURL)
	}
	if cfg.State.Backend != model.StateBackendMemory || cfg.State.TTL != 5*time.Minute {
		t.Errorf("state = %+v", cfg.State)
	}
	if cfg.Tasks.ListLimit != 3 || cfg.Tasks.GroupListLimit != 10 {
		t.Errorf("limits = %d/%d", cfg.Tasks.ListLimit, cfg.Tasks.GroupListLimit)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("TASKBOT_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("TASKBOT_SERVER_ADDR", ":9999")

	cfg, err := model.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("state:\n  backend: redis\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := model.LoadConfig(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadConfigRejectsAttachTimeoutAboveHandlerTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "server:\n  handler_timeout: 10s\ntasks:\n  attach_timeout: 30s\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := model.LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "attach_timeout") {
		t.Fatalf("expected attach_timeout validation error, got %v", err)
	}
}

func TestSaveConfigOmitsToken(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg, err := model.LoadConfig(filepath.Join(dir, "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	cfg.Telegram.Token = "123:secret"
	cfg.Telegram.BotUsername = "my_task_bot"

	if err := model.SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(raw); strings.Contains(got, "123:secret") {
		t.Errorf("token written to config:\n%s", got)
	}

	reloaded, err := model.LoadConfig(path)
	if err != nil {
		t.Fatalf("reloading: %v", err)
	}
	if reloaded.Telegram.BotUsername != "my_task_bot" {
		t.Errorf("bot username = %q", reloaded.Telegram.BotUsername)
	}
}
