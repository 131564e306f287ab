// Package credential keeps the bot token in the OS keyring so it never
// has to live in the config file.
package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "taskbot"

// TokenKey is the keyring entry holding the Telegram bot token.
const TokenKey = "telegram-bot-token"

// ErrNoToken is returned when neither the config nor the keyring holds a
// bot token.
var ErrNoToken = errors.New("no telegram bot token configured; run `taskbot setup` or set TASKBOT_TELEGRAM_TOKEN")

// Ring is the subset of keyring.Keyring used here.
type Ring interface {
	Get(key string) (keyring.Item, error)
	Set(item keyring.Item) error
	Remove(key string) error
}

// Open returns the system keyring for this application.
func Open() (Ring, error) {
	dir := "~/.config/taskbot/credentials"
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".config", "taskbot", "credentials")
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  dir,
		FilePasswordFunc:         keyring.FixedStringPrompt("taskbot-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key.
func Get(ring Ring, key string) (string, error) {
	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores a credential value by key.
func Set(ring Ring, key, value string) error {
	err := ring.Set(keyring.Item{
		Key:         key,
		Data:        []byte(value),
		Label:       "taskbot " + key,
		Description: "Telegram task bot credential",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a credential by key. Removing a missing key is not an
// error.
func Delete(ring Ring, key string) error {
	err := ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// ResolveToken returns configured when it is set, and otherwise falls
// back to the keyring entry. open is only called when needed.
func ResolveToken(configured string, open func() (Ring, error)) (string, error) {
	if token := strings.TrimSpace(configured); token != "" {
		return token, nil
	}

	ring, err := open()
	if err != nil {
		return "", err
	}
	token, err := Get(ring, TokenKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", err
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", ErrNoToken
	}
	return token, nil
}
