// Package bridge implements the Telegram identity-bridge flows: ticket
// issuance, webhook correlation, status polling and the synchronous
// widget flow. It proves control of a Telegram account and hands off to
// the external provider's own session mechanism via a one-time login
// link; it is not an OAuth implementation and manages no cookies.
package bridge

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/Tarquiniy/telegram-auth-bridge/identity"
	"github.com/Tarquiniy/telegram-auth-bridge/internal/config"
	autherrors "github.com/Tarquiniy/telegram-auth-bridge/internal/errors"
	"github.com/Tarquiniy/telegram-auth-bridge/internal/utils"
	"github.com/Tarquiniy/telegram-auth-bridge/telegram"
)

const nonceGenerationLength = 16

// Confirmation texts sent back through the bot. Best-effort only.
const (
	msgLinkReady = "You're verified. Head back to the site - your login link is ready."
	msgReceived  = "We received your request but couldn't finish sign-in. Please start again from the site."
)

// SignatureVerifier validates that widget claims originated from the
// platform and are fresh.
type SignatureVerifier interface {
	Configured() bool
	Verify(claims map[string]string) bool
}

// LinkIssuer mints a one-time login link for a synthetic identity.
// An empty return means issuance failed; the issuer logs the cause.
type LinkIssuer interface {
	GenerateLink(ctx context.Context, email, redirectTo string) string
}

// Notifier sends a short message back to the user's chat.
type Notifier interface {
	Configured() bool
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Service wires the bridge's entry points together. All methods are
// stateless request handlers: concurrency correctness rests entirely on
// the session store's per-row atomicity.
type Service struct {
	repos    Repos
	verifier SignatureVerifier
	issuer   LinkIssuer
	notifier Notifier
	config   config.TelegramConfig
	nowTime  func() time.Time // nowTime function (injectable for testing)
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// NewService initializes the bridge service. The issuer, notifier and
// repos may be nil for degraded configurations; each operation detects
// the missing dependency and returns a typed error instead of calling it.
func NewService(
	repos Repos,
	verifier SignatureVerifier,
	issuer LinkIssuer,
	notifier Notifier,
	cfg config.TelegramConfig,
	options ...ServiceOption,
) (*Service, error) {
	if verifier == nil {
		return nil, errors.New("[NewService] verifier is required")
	}
	if cfg == nil {
		return nil, errors.New("[NewService] config is required")
	}

	service := &Service{
		repos:    repos,
		verifier: verifier,
		issuer:   issuer,
		notifier: notifier,
		config:   cfg,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(service)
	}
	return service, nil
}

// StartResult is the correlation pair handed to the browser. Ticket and
// nonce are independent random values: one is never derivable from the
// other.
type StartResult struct {
	Ticket   string `json:"ticket"`
	Nonce    string `json:"nonce"`
	DeepLink string `json:"deepLink"`
	Inserted bool   `json:"inserted"`
	Error    string `json:"error,omitempty"`
}

// Start creates a pending auth session and the deep link that carries
// its nonce into the messaging client. With an unconfigured store the
// pair is still returned for diagnostics, flagged Inserted=false.
func (s *Service) Start(ctx context.Context) (*StartResult, error) {
	nonce, err := randomToken(nonceGenerationLength)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Start] generate nonce")
	}
	ticket := uuid.New().String()

	result := &StartResult{
		Ticket:   ticket,
		Nonce:    nonce,
		DeepLink: telegram.DeepLink(s.config.GetBotUsername(), nonce),
	}

	if s.repos.Sessions == nil {
		result.Error = autherrors.ErrStoreNotConfigured.Error()
		return result, nil
	}

	now := s.nowTime()
	session := &Session{
		Ticket:    ticket,
		Nonce:     nonce,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repos.Sessions.Insert(ctx, session); err != nil {
		log.Error().Err(err).Str("ticket", ticket).Msg("failed to persist pending auth session")
		result.Error = "failed to persist auth session"
		return result, nil
	}

	result.Inserted = true
	return result, nil
}

// HandleUpdate consumes one inbound bot update. It never returns an
// error: the webhook must always be acknowledged, so every failure mode
// is logged and absorbed here. Repeated deliveries of the same nonce are
// safe because resolution is an upsert keyed by the original ticket.
func (s *Service) HandleUpdate(ctx context.Context, update *telegram.Update) {
	nonce, ok := telegram.StartNonce(update)
	if !ok {
		return // not a /start command - a filter, not an error
	}
	if s.repos.Sessions == nil {
		log.Error().Msg("webhook update dropped: session store is not configured")
		return
	}

	telegramID := update.SenderID()
	payload, err := json.Marshal(update)
	if err != nil {
		log.Warn().Err(err).Msg("failed to preserve raw update payload")
	}

	session, err := s.lookupPending(ctx, nonce)
	if err != nil {
		// Unknown, stale or already-consumed nonce. Record an orphan row
		// for the forensic trail; the user may have started the bot out
		// of order or retried an old link.
		now := s.nowTime()
		orphan := &Session{
			Nonce:      nonce,
			TelegramID: telegramID,
			Payload:    string(payload),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if insertErr := s.repos.Sessions.Insert(ctx, orphan); insertErr != nil {
			log.Error().Err(insertErr).Str("nonce", nonce).Msg("failed to record orphan session")
		}
		s.notify(ctx, update.ChatID(), msgReceived)
		return
	}

	email := identity.Synthetic(telegramID, s.config.GetIdentityDomain())

	var link string
	if s.issuer != nil {
		link = s.issuer.GenerateLink(ctx, email, s.config.GetLoginRedirectURL())
	} else {
		log.Error().Str("ticket", session.Ticket).Msg("cannot issue link: identity provider is not configured")
	}

	// ActionLink may legitimately stay empty - the row still records the
	// attempt, and presence of the link is the completion signal.
	session.TelegramID = telegramID
	session.Payload = string(payload)
	session.ActionLink = link
	session.UpdatedAt = s.nowTime()
	if err := s.repos.Sessions.Upsert(ctx, session); err != nil {
		log.Error().Err(err).Str("ticket", session.Ticket).Msg("failed to resolve auth session")
	}

	if link != "" {
		s.notify(ctx, update.ChatID(), msgLinkReady)
	} else {
		s.notify(ctx, update.ChatID(), msgReceived)
	}
}

// StatusResult reports a ticket's resolution. A null action link means
// "keep polling" whether the ticket is unknown, pending or expired -
// ticket existence is deliberately not leaked.
type StatusResult struct {
	ActionLink *string `json:"action_link"`
}

// Status is a pure read by ticket. It never mutates the row and never
// surfaces storage errors to the caller.
func (s *Service) Status(ctx context.Context, ticket string) *StatusResult {
	unresolved := &StatusResult{}
	if ticket == "" || s.repos.Sessions == nil {
		return unresolved
	}

	session, err := s.repos.Sessions.GetByTicket(ctx, ticket)
	if err != nil {
		if !autherrors.Is(err, autherrors.ErrSessionNotFound) {
			log.Warn().Err(err).Str("ticket", ticket).Msg("status lookup failed")
		}
		return unresolved
	}
	if !session.Resolved() {
		return unresolved
	}
	return &StatusResult{ActionLink: utils.Ptr(session.ActionLink)}
}

type VerifyResult struct {
	ActionLink string `json:"action_link"`
}

// VerifyWidget runs the synchronous widget flow: verify first with no
// side effects, then derive the synthetic identity and issue a link.
// The profile upsert is a best-effort convenience projection and never
// blocks a login.
func (s *Service) VerifyWidget(ctx context.Context, claims map[string]string) (*VerifyResult, error) {
	if !s.verifier.Configured() {
		return nil, autherrors.ErrBotNotConfigured
	}
	if !s.verifier.Verify(claims) {
		return nil, autherrors.ErrInvalidSignature
	}

	telegramID, err := telegram.TelegramID(claims)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.VerifyWidget] extract telegram id")
	}

	if s.issuer == nil {
		return nil, autherrors.ErrProviderNotConfigured
	}

	email := identity.Synthetic(telegramID, s.config.GetIdentityDomain())
	link := s.issuer.GenerateLink(ctx, email, s.config.GetLoginRedirectURL())
	if link == "" {
		return nil, autherrors.ErrLinkIssuance
	}

	if s.repos.Profiles != nil {
		profile := &Profile{
			Email:      email,
			TelegramID: telegramID,
			Name:       identity.DisplayName(claims[telegram.ClaimFirstName], claims[telegram.ClaimLastName]),
			Username:   claims[telegram.ClaimUsername],
			UpdatedAt:  s.nowTime(),
		}
		if err := s.repos.Profiles.Upsert(ctx, profile); err != nil {
			log.Warn().Err(err).Str("email", email).Msg("profile upsert failed")
		}
	}

	return &VerifyResult{ActionLink: link}, nil
}

// lookupPending finds the pending session for a nonce, treating expired
// tickets as unknown.
func (s *Service) lookupPending(ctx context.Context, nonce string) (*Session, error) {
	if nonce == "" {
		return nil, autherrors.ErrSessionNotFound
	}
	session, err := s.repos.Sessions.GetByNonce(ctx, nonce)
	if err != nil {
		return nil, err
	}
	if s.expired(session) {
		return nil, autherrors.ErrTicketExpired
	}
	return session, nil
}

// expired applies the ticket TTL to unresolved rows only; a resolved row
// keeps returning its link.
func (s *Service) expired(session *Session) bool {
	if session.Resolved() {
		return false
	}
	return s.nowTime().Sub(session.CreatedAt) > s.config.GetTicketTTL()
}

func (s *Service) notify(ctx context.Context, chatID int64, text string) {
	if s.notifier == nil || !s.notifier.Configured() || chatID == 0 {
		return
	}
	if err := s.notifier.SendMessage(ctx, chatID, text); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("confirmation message failed")
	}
}

func randomToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
