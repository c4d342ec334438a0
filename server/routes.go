package server

func (s *Server) initRoutes() {
	// Browser-facing API routes
	s.RegisterRouteHandler("POST "+RouteTelegramStart, ChainMiddleware(s.StartHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteTelegramStatus, ChainMiddleware(s.StatusHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteTelegramVerify, ChainMiddleware(s.VerifyHandler(), s.APIMiddleware()...))

	// Legacy dual-mode widget endpoint: GET redirects to the action link,
	// POST returns the same result as /auth/telegram/verify
	s.RegisterRouteHandler("GET "+RouteTelegram, ChainMiddleware(s.WidgetRedirectHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteTelegram, ChainMiddleware(s.VerifyHandler(), s.APIMiddleware()...))

	// Method-qualified patterns would 405 preflights before any middleware
	// runs, so OPTIONS gets its own registration on the browser-facing API
	for _, route := range []string{RouteTelegramStart, RouteTelegramStatus, RouteTelegramVerify, RouteTelegram} {
		s.RegisterRouteHandler("OPTIONS "+route, ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))
	}

	// Platform-to-server; no CORS
	s.RegisterRouteHandler("POST "+RouteBotWebhook, ChainMiddleware(s.WebhookHandler(), s.LoggingMiddleware, s.RecoverMiddleware))

	s.RegisterRouteFunc("GET "+RouteHealthz, s.HealthzHandler())
}
