package testutil

import (
	"context"
	"sync"

	"github.com/nhle/taskbot/internal/telegram"
)

// SentMessage is one outbound message captured by Transport.
type SentMessage struct {
	ChatID int64
	Text   string
	Markup *telegram.InlineKeyboardMarkup
}

// Transport records outbound messages instead of calling the Bot API.
// When Err is set, SendMessage records nothing and returns it.
type Transport struct {
	mu       sync.Mutex
	Err      error
	messages []SentMessage
	answers  []string
}

func (t *Transport) SendMessage(_ context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	t.messages = append(t.messages, SentMessage{ChatID: chatID, Text: text, Markup: markup})
	return nil
}

func (t *Transport) AnswerCallbackQuery(_ context.Context, callbackID, _ string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.answers = append(t.answers, callbackID)
	return nil
}

// Messages returns a copy of everything sent so far.
func (t *Transport) Messages() []SentMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]SentMessage(nil), t.messages...)
}

// MessagesTo returns the messages sent to chatID.
func (t *Transport) MessagesTo(chatID int64) []SentMessage {
	var out []SentMessage
	for _, m := range t.Messages() {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

// Last returns the most recent message, or a zero value when none was sent.
func (t *Transport) Last() SentMessage {
	msgs := t.Messages()
	if len(msgs) == 0 {
		return SentMessage{}
	}
	return msgs[len(msgs)-1]
}

// Answers returns the ids of answered callback queries.
func (t *Transport) Answers() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.answers...)
}

// Reset forgets everything recorded.
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = nil
	t.answers = nil
}
