package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Deep-link flow: start issues the ticket/nonce pair, status is the
	// client-driven completion poll
	RouteTelegramStart  = "/auth/telegram/start"
	RouteTelegramStatus = "/auth/telegram/status"

	// Widget flow
	RouteTelegramVerify = "/auth/telegram/verify"
	RouteTelegram       = "/auth/telegram" // legacy dual-mode endpoint

	// Inbound bot updates
	RouteBotWebhook = "/bot/webhook"

	RouteHealthz = "/healthz"
)
