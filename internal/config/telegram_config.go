package config

import "time"

// TelegramConfig exposes the messaging-platform side of the bridge:
// the bot credentials, the deep-link identity, and the correlation
// ticket lifetime.
type TelegramConfig interface {
	GetBotToken() string
	GetBotUsername() string
	GetWebhookSecret() string
	GetIdentityDomain() string
	GetLoginRedirectURL() string
	GetTicketTTL() time.Duration
}

const defaultTicketTTL = 10 * time.Minute

type Telegram struct{}

var _ TelegramConfig = Telegram{}

func (Telegram) GetBotToken() string {
	return GetEnv("TELEGRAM_BOT_TOKEN", "")
}

func (Telegram) GetBotUsername() string {
	return GetEnv("TELEGRAM_BOT_USERNAME", "")
}

// GetWebhookSecret returns the shared secret the platform echoes back in
// the X-Telegram-Bot-Api-Secret-Token header. Empty disables the check.
func (Telegram) GetWebhookSecret() string {
	return GetEnv("TELEGRAM_WEBHOOK_SECRET", "")
}

// GetIdentityDomain is the email domain suffix for synthetic identities
// (tg_<id>@<domain>).
func (Telegram) GetIdentityDomain() string {
	return GetEnv("IDENTITY_EMAIL_DOMAIN", "telegram.local")
}

// GetLoginRedirectURL is where the provider sends the browser after the
// one-time login link is consumed.
func (Telegram) GetLoginRedirectURL() string {
	return GetEnv("LOGIN_REDIRECT_URL", EnvVars{}.GetBaseURL())
}

// GetTicketTTL bounds how long an unresolved ticket stays claimable.
// Older pending tickets are treated as failed.
func (Telegram) GetTicketTTL() time.Duration {
	ttl, err := time.ParseDuration(GetEnv("TICKET_TTL", "10m"))
	if err != nil || ttl <= 0 {
		return defaultTicketTTL
	}
	return ttl
}
