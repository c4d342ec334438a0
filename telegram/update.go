package telegram

import (
	"fmt"
	"net/url"
	"strings"
)

const botOpenBase = "https://t.me"

// Update is the subset of the Bot API webhook payload the bridge reads.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      *Chat  `json:"chat,omitempty"`
	Text      string `json:"text,omitempty"`
}

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

type Chat struct {
	ID int64 `json:"id"`
}

// SenderID returns the platform user id of the update's sender,
// or 0 when the update carries no sender.
func (u *Update) SenderID() int64 {
	if u == nil || u.Message == nil || u.Message.From == nil {
		return 0
	}
	return u.Message.From.ID
}

// ChatID returns the chat to reply into, falling back to the sender id
// when the chat is absent.
func (u *Update) ChatID() int64 {
	if u == nil || u.Message == nil {
		return 0
	}
	if u.Message.Chat != nil {
		return u.Message.Chat.ID
	}
	return u.SenderID()
}

// StartNonce extracts the correlation nonce from a "/start" command.
// Supported forms: "/start <nonce>" and "/start_<nonce>". The second
// return value reports whether the update is a start command at all;
// a bare "/start" is a start command with an empty nonce.
func StartNonce(u *Update) (string, bool) {
	if u == nil || u.Message == nil {
		return "", false
	}
	text := strings.TrimSpace(u.Message.Text)
	if !strings.HasPrefix(text, "/start") {
		return "", false
	}
	fields := strings.Fields(text)
	if fields[0] == "/start" {
		if len(fields) >= 2 {
			return fields[1], true
		}
		return "", true
	}
	if rest, ok := strings.CutPrefix(fields[0], "/start_"); ok {
		return rest, true
	}
	return "", false
}

// DeepLink builds the t.me link that opens the bot with the nonce as the
// /start payload. Without a bot username it degrades to the generic open
// URL; the nonce is still usable by the webhook correlator.
func DeepLink(botUsername, nonce string) string {
	botUsername = strings.TrimPrefix(botUsername, "@")
	if botUsername == "" {
		return botOpenBase
	}
	return fmt.Sprintf("%s/%s?start=%s", botOpenBase, url.PathEscape(botUsername), url.QueryEscape(nonce))
}
