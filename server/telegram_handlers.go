package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	autherrors "github.com/Tarquiniy/telegram-auth-bridge/internal/errors"
	"github.com/Tarquiniy/telegram-auth-bridge/internal/utils"
)

const contentTypeJSON = "application/json; charset=utf-8"

// Error tags carried in error-redirect query strings.
const (
	errTagInvalidSignature = "invalid_signature"
	errTagNotConfigured    = "not_configured"
	errTagIssuanceFailed   = "issuance_failed"
	errTagInvalidRequest   = "invalid_request"
)

// StartHandler issues a fresh ticket/nonce pair and the bot deep link.
func (s *Server) StartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := s.bridge.Start(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("start flow failed")
			writeJSONError(w, http.StatusInternalServerError, "failed to start authentication")
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// StatusHandler is the client-driven completion poll. It answers with a
// null action_link until the webhook correlator has resolved the ticket.
func (s *Server) StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticket := r.URL.Query().Get("ticket")
		writeJSON(w, http.StatusOK, s.bridge.Status(r.Context(), ticket))
	}
}

// VerifyHandler runs the synchronous widget flow and returns the action
// link as JSON.
func (s *Server) VerifyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := parseClaims(r)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := s.bridge.VerifyWidget(r.Context(), claims)
		if err != nil {
			status, message := verifyErrorResponse(err)
			writeJSONError(w, status, message)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// WidgetRedirectHandler is the GET binding of the widget flow: identical
// verify-and-issue logic, but the browser is redirected to the action
// link, or back to the site with an error tag.
func (s *Server) WidgetRedirectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromValues(r.URL.Query())

		result, err := s.bridge.VerifyWidget(r.Context(), claims)
		if err != nil {
			http.Redirect(w, r, s.errorRedirect(err), http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, result.ActionLink, http.StatusSeeOther)
	}
}

// PreflightHandler terminates OPTIONS requests that carry no Origin
// header; cross-origin preflights are answered by the CORS middleware
// before the chain reaches this handler.
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func (s *Server) errorRedirect(err error) string {
	tag := errTagInvalidRequest
	switch {
	case autherrors.Is(err, autherrors.ErrInvalidSignature):
		tag = errTagInvalidSignature
	case autherrors.Is(err, autherrors.ErrBotNotConfigured),
		autherrors.Is(err, autherrors.ErrProviderNotConfigured):
		tag = errTagNotConfigured
	case autherrors.Is(err, autherrors.ErrLinkIssuance):
		tag = errTagIssuanceFailed
	}
	return s.config.GetBaseURL() + "?error=" + url.QueryEscape(tag)
}

func verifyErrorResponse(err error) (int, string) {
	switch {
	case autherrors.Is(err, autherrors.ErrInvalidSignature):
		return http.StatusUnauthorized, "invalid signature"
	case autherrors.Is(err, autherrors.ErrBotNotConfigured),
		autherrors.Is(err, autherrors.ErrProviderNotConfigured):
		return http.StatusServiceUnavailable, "authentication is not configured"
	case autherrors.Is(err, autherrors.ErrLinkIssuance):
		return http.StatusBadGateway, "failed to issue login link"
	}
	return http.StatusBadRequest, "invalid request"
}

// parseClaims accepts the widget payload either as a flat JSON object or
// as form/query values.
func parseClaims(r *http.Request) (map[string]string, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, err
		}
		return utils.ToStringMap(body), nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return claimsFromValues(r.Form), nil
}

func claimsFromValues(values url.Values) map[string]string {
	claims := make(map[string]string, len(values))
	for key := range values {
		claims[key] = values.Get(key)
	}
	return claims
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
