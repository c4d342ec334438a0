package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	autherrors "github.com/Tarquiniy/telegram-auth-bridge/internal/errors"
)

const apiBase = "https://api.telegram.org"

// Bot is a minimal outbound Bot API client. The bridge only ever sends
// short best-effort confirmation messages with it.
type Bot struct {
	token   string
	apiBase string
	http    *http.Client
}

type BotOption func(*Bot)

// WithAPIBase overrides the Bot API host (for tests).
func WithAPIBase(base string) BotOption {
	return func(b *Bot) {
		b.apiBase = base
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) BotOption {
	return func(b *Bot) {
		b.http = client
	}
}

func NewBot(token string, options ...BotOption) *Bot {
	b := &Bot{
		token:   token,
		apiBase: apiBase,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// Configured reports whether a bot token is present.
func (b *Bot) Configured() bool {
	return b.token != ""
}

// SendMessage posts a text message to a chat.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	if b.token == "" {
		return autherrors.ErrBotNotConfigured
	}

	payload, err := json.Marshal(map[string]any{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return errors.Wrap(err, "[Bot.SendMessage] marshal payload")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", b.apiBase, b.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "[Bot.SendMessage] build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "[Bot.SendMessage] do request")
	}
	defer resp.Body.Close()

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return errors.Wrap(err, "[Bot.SendMessage] decode response")
	}
	if !result.OK {
		return errors.Errorf("[Bot.SendMessage] telegram api: %s", result.Description)
	}
	return nil
}
