package server

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/Tarquiniy/telegram-auth-bridge/telegram"
)

const (
	secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"
	maxWebhookBytes   = 1 << 20
)

// WebhookHandler consumes inbound platform updates. When a webhook
// secret is configured the platform must echo it in the secret token
// header; past that check the handler always acknowledges with
// {"ok":true} - the platform retries on anything else, and the
// correlator is idempotent anyway.
func (s *Server) WebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if secret := s.config.GetWebhookSecret(); secret != "" {
			header := r.Header.Get(secretTokenHeader)
			if subtle.ConstantTimeCompare([]byte(header), []byte(secret)) != 1 {
				log.Warn().Str("remote", r.RemoteAddr).Msg("webhook rejected: bad secret token")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		var update telegram.Update
		if err := json.NewDecoder(io.LimitReader(r.Body, maxWebhookBytes)).Decode(&update); err != nil {
			log.Warn().Err(err).Msg("webhook payload did not parse")
		} else {
			s.bridge.HandleUpdate(r.Context(), &update)
		}

		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}
