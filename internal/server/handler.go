// Package server is the HTTP surface of the bot: the Telegram webhook,
// webhook management, a send-message endpoint, health, and attachment
// downloads.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/taskbot/internal/telegram"
)

// SecretHeader carries the webhook secret on every Telegram delivery.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Updates consumes inbound updates.
type Updates interface {
	Handle(ctx context.Context, u telegram.Update)
}

// BotAPI is the subset of the Bot API client the handlers call.
type BotAPI interface {
	SetWebhook(ctx context.Context, url, secret string) error
	DeleteWebhook(ctx context.Context) error
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error
}

// Pinger reports database health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler owns all HTTP handlers.
type Handler struct {
	Updates        Updates
	Bot            BotAPI
	DB             Pinger
	WebhookURL     string
	WebhookSecret  string
	AttachmentsDir string
	HandlerTimeout time.Duration
	Log            *zap.Logger
}

// NewHandler constructs a Handler.
func NewHandler(updates Updates, bot BotAPI, db Pinger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Updates:        updates,
		Bot:            bot,
		DB:             db,
		HandlerTimeout: 25 * time.Second,
		Log:            logger,
	}
}

// envelope is the JSON body of every non-webhook response.
type envelope struct {
	Status  bool        `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.Log.Warn("writing response failed", zap.Error(err))
	}
}

func (h *Handler) success(w http.ResponseWriter, message string, data interface{}) {
	h.writeJSON(w, http.StatusOK, envelope{Status: true, Message: message, Data: data})
}

func (h *Handler) failure(w http.ResponseWriter, code int, message string, errs interface{}) {
	h.writeJSON(w, code, envelope{Status: false, Message: message, Errors: errs})
}

// HandleWebhook accepts one Telegram update. It answers 200 for anything
// that passed the secret check, whatever happens inside.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if h.WebhookSecret != "" {
		got := r.Header.Get(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.WebhookSecret)) != 1 {
			h.Log.Warn("webhook secret mismatch", zap.String("remote", r.RemoteAddr))
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	var update telegram.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&update); err != nil {
		h.Log.Warn("decoding webhook update failed", zap.Error(err))
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.HandlerTimeout)
	defer cancel()
	h.Updates.Handle(ctx, update)

	w.WriteHeader(http.StatusOK)
}

// HandleSetWebhook registers WebhookURL with Telegram.
func (h *Handler) HandleSetWebhook(w http.ResponseWriter, r *http.Request) {
	if h.WebhookURL == "" {
		h.failure(w, http.StatusBadRequest, "telegram.public_url is not configured.", nil)
		return
	}
	if err := h.Bot.SetWebhook(r.Context(), h.WebhookURL, h.WebhookSecret); err != nil {
		h.Log.Error("setting webhook failed", zap.Error(err))
		h.failure(w, http.StatusBadGateway, "Failed to set webhook.", nil)
		return
	}
	h.Log.Info("webhook set", zap.String("url", h.WebhookURL))
	h.success(w, "Webhook set successfully!", map[string]string{"url": h.WebhookURL})
}

// HandleRemoveWebhook unregisters the webhook.
func (h *Handler) HandleRemoveWebhook(w http.ResponseWriter, r *http.Request) {
	if err := h.Bot.DeleteWebhook(r.Context()); err != nil {
		h.Log.Error("removing webhook failed", zap.Error(err))
		h.failure(w, http.StatusBadGateway, "Failed to remove webhook.", nil)
		return
	}
	h.Log.Info("webhook removed")
	h.success(w, "Webhook removed successfully!", nil)
}

type sendMessageRequest struct {
	ChatID json.RawMessage `json:"chat_id"`
	Text   string          `json:"text"`
}

// HandleSendMessage posts {chat_id, text} as a bot message. It accepts a
// JSON or form body.
func (h *Handler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	rawChatID, text, err := readSendMessage(r)
	if err != nil {
		h.failure(w, http.StatusBadRequest, "Request body could not be parsed.", []string{err.Error()})
		return
	}

	text = strings.TrimSpace(text)
	chatID, idErr := strconv.ParseInt(strings.TrimSpace(rawChatID), 10, 64)
	if rawChatID == "" || idErr != nil || text == "" {
		h.failure(w, http.StatusBadRequest, "Chat ID and message text are required.", nil)
		return
	}

	if err := h.Bot.SendMessage(r.Context(), chatID, text, nil); err != nil {
		h.Log.Error("sending message failed", zap.Int64("chat_id", chatID), zap.Error(err))
		h.failure(w, http.StatusBadGateway, "Failed to send message.", nil)
		return
	}
	h.success(w, "Message sent successfully!", nil)
}

func readSendMessage(r *http.Request) (chatID, text string, err error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct != "application/json" {
		if err := r.ParseForm(); err != nil {
			return "", "", err
		}
		return r.FormValue("chat_id"), r.FormValue("text"), nil
	}

	var req sendMessageRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		return "", "", err
	}
	id := strings.Trim(strings.TrimSpace(string(req.ChatID)), `"`)
	if id == "null" {
		id = ""
	}
	return id, req.Text, nil
}

// HandleHealth reports liveness and database reachability.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		if err := h.DB.Ping(r.Context()); err != nil {
			h.Log.Error("health check failed", zap.Error(err))
			h.failure(w, http.StatusServiceUnavailable, "database unavailable", nil)
			return
		}
	}
	h.success(w, "ok", nil)
}
