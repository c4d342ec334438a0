package bridge

import (
	"context"
	"time"
)

// Session is the single persisted entity of the bridge. A row is pending
// (ticket+nonce only) until the webhook correlator attaches the Telegram
// id and, when issuance succeeds, the action link. Presence of ActionLink
// is the completion signal. Orphan rows - inbound /start payloads whose
// nonce matched nothing - carry no ticket.
type Session struct {
	Ticket     string
	Nonce      string
	TelegramID int64
	Payload    string // raw inbound update, kept for audit
	ActionLink string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Resolved reports whether issuance has completed for this session.
func (s *Session) Resolved() bool {
	return s.ActionLink != ""
}

// Profile is the denormalized widget-path projection keyed by the
// synthetic email. Not authoritative identity storage.
type Profile struct {
	Email      string
	TelegramID int64
	Name       string
	Username   string
	UpdatedAt  time.Time
}

// SessionRepo is a thin typed accessor over the opaque session table.
// Implementations must make a single-row Insert/Upsert atomic; the
// bridge never requires a multi-row transaction. Lookups that find
// nothing return autherrors.ErrSessionNotFound.
type SessionRepo interface {
	Insert(ctx context.Context, session *Session) error
	Upsert(ctx context.Context, session *Session) error
	GetByTicket(ctx context.Context, ticket string) (*Session, error)
	GetByNonce(ctx context.Context, nonce string) (*Session, error)
}

type ProfileRepo interface {
	Upsert(ctx context.Context, profile *Profile) error
}

// Repos holds the storage dependencies of the Service. Either repo may
// be nil when the store is unconfigured; every operation detects that
// explicitly instead of failing deep inside a call.
type Repos struct {
	Sessions SessionRepo
	Profiles ProfileRepo
}
