package sessionrepo

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/Tarquiniy/telegram-auth-bridge/bridge"
	autherrors "github.com/Tarquiniy/telegram-auth-bridge/internal/errors"
)

const (
	ticketKeyPrefix = "t:"
	nonceKeyPrefix  = "n:"
	orphanKeyPrefix = "o:"
)

// InMemory is a go-cache backed session store. Ticket-addressable rows
// are indexed by both ticket and nonce and share the ticket TTL, which
// doubles as the pruning policy a durable store would need operationally.
// Orphan rows (no ticket) live under a separate key space so nonce
// lookups never see them; a redelivered unknown nonce must stay unknown.
type InMemory struct {
	cache *gocache.Cache
}

var _ bridge.SessionRepo = (*InMemory)(nil)

func NewInMemory(ttl time.Duration) *InMemory {
	return &InMemory{
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (r *InMemory) Insert(ctx context.Context, session *bridge.Session) error {
	s := *session
	if s.Ticket == "" {
		r.cache.Set(orphanKeyPrefix+s.Nonce, s, gocache.DefaultExpiration)
		return nil
	}
	if err := r.cache.Add(ticketKeyPrefix+s.Ticket, s, gocache.DefaultExpiration); err != nil {
		return errors.Wrap(err, "[InMemory.Insert] ticket already exists")
	}
	r.cache.Set(nonceKeyPrefix+s.Nonce, s, gocache.DefaultExpiration)
	return nil
}

func (r *InMemory) Upsert(ctx context.Context, session *bridge.Session) error {
	s := *session
	if s.Ticket == "" {
		r.cache.Set(orphanKeyPrefix+s.Nonce, s, gocache.DefaultExpiration)
		return nil
	}
	r.cache.Set(ticketKeyPrefix+s.Ticket, s, gocache.DefaultExpiration)
	if s.Nonce != "" {
		r.cache.Set(nonceKeyPrefix+s.Nonce, s, gocache.DefaultExpiration)
	}
	return nil
}

func (r *InMemory) GetByTicket(ctx context.Context, ticket string) (*bridge.Session, error) {
	return r.get(ticketKeyPrefix + ticket)
}

func (r *InMemory) GetByNonce(ctx context.Context, nonce string) (*bridge.Session, error) {
	return r.get(nonceKeyPrefix + nonce)
}

func (r *InMemory) get(key string) (*bridge.Session, error) {
	v, ok := r.cache.Get(key)
	if !ok {
		return nil, autherrors.ErrSessionNotFound
	}
	s, ok := v.(bridge.Session)
	if !ok {
		return nil, autherrors.ErrInternal
	}
	return &s, nil
}

// InMemoryProfiles keeps the widget-path projection in a plain map;
// profiles do not expire.
type InMemoryProfiles struct {
	mu       sync.RWMutex
	profiles map[string]bridge.Profile
}

var _ bridge.ProfileRepo = (*InMemoryProfiles)(nil)

func NewInMemoryProfiles() *InMemoryProfiles {
	return &InMemoryProfiles{
		profiles: make(map[string]bridge.Profile),
	}
}

func (r *InMemoryProfiles) Upsert(ctx context.Context, profile *bridge.Profile) error {
	if profile.Email == "" {
		return errors.New("[InMemoryProfiles.Upsert] email is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[profile.Email] = *profile
	return nil
}
