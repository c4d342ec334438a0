// Package identity derives the email-shaped synthetic identifiers that
// stand in for Telegram's numeric user ids when talking to the external
// identity provider.
package identity

import (
	"fmt"
	"strings"
)

// DefaultDomain is used when no identity email domain is configured.
const DefaultDomain = "telegram.local"

// Synthetic builds the deterministic identifier tg_<id>@<domain> that
// keys the provider's user records for a Telegram account.
func Synthetic(telegramID int64, domain string) string {
	if domain == "" {
		domain = DefaultDomain
	}
	return fmt.Sprintf("tg_%d@%s", telegramID, domain)
}

// DisplayName joins the widget's first/last name claims, tolerating
// either being empty.
func DisplayName(firstName, lastName string) string {
	return strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))
}
