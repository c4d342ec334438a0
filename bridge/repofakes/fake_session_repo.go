package repofakes

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/Tarquiniy/telegram-auth-bridge/bridge"
	autherrors "github.com/Tarquiniy/telegram-auth-bridge/internal/errors"
)

var _ bridge.SessionRepo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	lock     sync.RWMutex
	byTicket map[string]bridge.Session
	byNonce  map[string]bridge.Session
	orphans  []bridge.Session

	// Error injection for failure-path tests
	InsertErr error
	UpsertErr error
	GetErr    error
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		byTicket: make(map[string]bridge.Session),
		byNonce:  make(map[string]bridge.Session),
	}
}

func (r *FakeSessionRepo) Insert(ctx context.Context, session *bridge.Session) error {
	if r.InsertErr != nil {
		return r.InsertErr
	}
	r.lock.Lock()
	defer r.lock.Unlock()

	s := *session
	if s.Ticket != "" {
		if _, ok := r.byTicket[s.Ticket]; ok {
			return errors.New("ticket already exists")
		}
		r.byTicket[s.Ticket] = s
		r.byNonce[s.Nonce] = s
		return nil
	}
	r.orphans = append(r.orphans, s)
	return nil
}

func (r *FakeSessionRepo) Upsert(ctx context.Context, session *bridge.Session) error {
	if r.UpsertErr != nil {
		return r.UpsertErr
	}
	r.lock.Lock()
	defer r.lock.Unlock()

	s := *session
	if s.Ticket == "" {
		r.orphans = append(r.orphans, s)
		return nil
	}
	r.byTicket[s.Ticket] = s
	if s.Nonce != "" {
		r.byNonce[s.Nonce] = s
	}
	return nil
}

func (r *FakeSessionRepo) GetByTicket(ctx context.Context, ticket string) (*bridge.Session, error) {
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	r.lock.RLock()
	defer r.lock.RUnlock()

	s, ok := r.byTicket[ticket]
	if !ok {
		return nil, autherrors.ErrSessionNotFound
	}
	return &s, nil
}

func (r *FakeSessionRepo) GetByNonce(ctx context.Context, nonce string) (*bridge.Session, error) {
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	r.lock.RLock()
	defer r.lock.RUnlock()

	s, ok := r.byNonce[nonce]
	if !ok {
		return nil, autherrors.ErrSessionNotFound
	}
	return &s, nil
}

// Orphans returns the rows recorded for unmatched nonces.
func (r *FakeSessionRepo) Orphans() []bridge.Session {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return append([]bridge.Session(nil), r.orphans...)
}

// TicketCount returns the number of ticket-addressable rows.
func (r *FakeSessionRepo) TicketCount() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.byTicket)
}
