// Package telegram is a thin client for the Telegram Bot API covering the
// methods the bot needs: messages, callback answers, file download,
// webhook management, and long polling.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultAPIRoot is the public Bot API endpoint.
const DefaultAPIRoot = "https://api.telegram.org"

// Client calls the Bot API over HTTPS. It retries on HTTP 429 using the
// retry_after hint, falling back to exponential backoff.
type Client struct {
	apiRoot    string
	token      string
	httpClient *http.Client
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
}

// NewClient creates a Bot API client. timeout bounds every call except
// the long-poll window of GetUpdates, which is added on top.
func NewClient(apiRoot, token string, timeout time.Duration) *Client {
	if apiRoot == "" {
		apiRoot = DefaultAPIRoot
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiRoot:    strings.TrimRight(apiRoot, "/"),
		token:      token,
		httpClient: &http.Client{},
		timeout:    timeout,
		maxRetries: 3,
		backoff:    time.Second,
	}
}

// GetMe returns the bot's own account.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := c.call(ctx, "getMe", c.timeout, nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// SendMessage posts text to chatID with an optional inline keyboard.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) error {
	req := sendMessageRequest{ChatID: chatID, Text: text, ReplyMarkup: markup}
	return c.call(ctx, "sendMessage", c.timeout, req, nil)
}

// AnswerCallbackQuery acknowledges a button press. text is shown as a
// toast when non-empty.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	req := answerCallbackRequest{CallbackQueryID: callbackID, Text: text}
	return c.call(ctx, "answerCallbackQuery", c.timeout, req, nil)
}

// GetFile resolves a file reference to a downloadable path.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return nil, fmt.Errorf("missing file_id")
	}
	var f File
	if err := c.call(ctx, "getFile", c.timeout, getFileRequest{FileID: fileID}, &f); err != nil {
		return nil, err
	}
	if strings.TrimSpace(f.FilePath) == "" {
		return nil, fmt.Errorf("telegram getFile: missing file_path for %s", fileID)
	}
	return &f, nil
}

// DownloadFile streams the body at filePath (as returned by GetFile)
// into w. Bodies over maxBytes yield ErrFileTooLarge; maxBytes <= 0
// disables the limit.
func (c *Client) DownloadFile(ctx context.Context, filePath string, w io.Writer, maxBytes int64) (int64, error) {
	filePath = strings.TrimLeft(strings.TrimSpace(filePath), "/")
	if filePath == "" {
		return 0, fmt.Errorf("missing file_path")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/file/bot%s/%s", c.apiRoot, c.token, filePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, c.scrub("creating download request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, c.scrub("downloading "+filePath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, &APIError{
			Method:      "download",
			StatusCode:  resp.StatusCode,
			Description: strings.TrimSpace(string(raw)),
		}
	}

	var body io.Reader = resp.Body
	if maxBytes > 0 {
		body = io.LimitReader(resp.Body, maxBytes+1)
	}
	n, err := io.Copy(w, body)
	if err != nil {
		return n, fmt.Errorf("reading download body: %w", err)
	}
	if maxBytes > 0 && n > maxBytes {
		return n, fmt.Errorf("%w (>%d bytes)", ErrFileTooLarge, maxBytes)
	}
	return n, nil
}

// SetWebhook points Telegram at webhookURL. A non-empty secret is echoed back in
// the X-Telegram-Bot-Api-Secret-Token header of every delivery.
func (c *Client) SetWebhook(ctx context.Context, webhookURL, secret string) error {
	req := setWebhookRequest{URL: webhookURL, SecretToken: secret, AllowedUpdates: allowedUpdates}
	return c.call(ctx, "setWebhook", c.timeout, req, nil)
}

// DeleteWebhook removes the webhook so GetUpdates can be used.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", c.timeout, deleteWebhookRequest{}, nil)
}

// GetUpdates long-polls for updates with id >= offset, waiting up to wait
// for at least one to arrive.
func (c *Client) GetUpdates(ctx context.Context, offset int64, wait time.Duration) ([]Update, error) {
	secs := int(wait.Seconds())
	if secs < 0 {
		secs = 0
	}
	req := getUpdatesRequest{Offset: offset, Timeout: secs, AllowedUpdates: allowedUpdates}

	var updates []Update
	if err := c.call(ctx, "getUpdates", c.timeout+wait, req, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// call posts body as JSON to method, unwraps the response envelope, and
// decodes its result into out when out is non-nil.
func (c *Client) call(ctx context.Context, method string, timeout time.Duration, body, out interface{}) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling %s request: %w", method, err)
		}
		payload = data
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.apiRoot, c.token, method)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		env, resp, err := c.post(ctx, endpoint, timeout, payload)
		if err != nil {
			return c.scrub("executing "+method, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = &APIError{
				Method:      method,
				StatusCode:  resp.StatusCode,
				ErrorCode:   env.ErrorCode,
				Description: env.Description,
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryAfter(resp, env, attempt)):
				continue
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.OK {
			return &APIError{
				Method:      method,
				StatusCode:  resp.StatusCode,
				ErrorCode:   env.ErrorCode,
				Description: env.Description,
			}
		}

		if out == nil || len(env.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("unmarshaling %s result: %w", method, err)
		}
		return nil
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

func (c *Client) post(ctx context.Context, endpoint string, timeout time.Duration, payload []byte) (*apiResponse, *http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bodyReader)
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return nil, nil, fmt.Errorf("reading response body: %w", readErr)
	}

	env := &apiResponse{}
	if err := json.Unmarshal(raw, env); err != nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil, nil, fmt.Errorf("decoding response envelope: %w", err)
		}
		env.Description = strings.TrimSpace(string(raw))
	}
	return env, resp, nil
}

// scrub drops the request URL from a transport error, since the URL
// carries the bot token, and redacts the token if it still appears.
func (c *Client) scrub(op string, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	if c.token != "" && strings.Contains(err.Error(), c.token) {
		return fmt.Errorf("%s: %s", op, strings.ReplaceAll(err.Error(), c.token, "<redacted>"))
	}
	return fmt.Errorf("%s: %w", op, err)
}

// retryAfter prefers the envelope's retry_after, then the Retry-After
// header, then exponential backoff capped at 30s.
func (c *Client) retryAfter(resp *http.Response, env *apiResponse, attempt int) time.Duration {
	if env.Parameters != nil && env.Parameters.RetryAfter > 0 {
		return time.Duration(env.Parameters.RetryAfter) * time.Second
	}
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	backoff := c.backoff * time.Duration(1<<uint(attempt))
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
