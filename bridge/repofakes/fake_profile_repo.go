package repofakes

import (
	"context"
	"sync"

	"github.com/Tarquiniy/telegram-auth-bridge/bridge"
)

var _ bridge.ProfileRepo = (*FakeProfileRepo)(nil)

type FakeProfileRepo struct {
	lock     sync.RWMutex
	profiles map[string]bridge.Profile

	UpsertErr error
}

func NewFakeProfileRepo() *FakeProfileRepo {
	return &FakeProfileRepo{
		profiles: make(map[string]bridge.Profile),
	}
}

func (r *FakeProfileRepo) Upsert(ctx context.Context, profile *bridge.Profile) error {
	if r.UpsertErr != nil {
		return r.UpsertErr
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	r.profiles[profile.Email] = *profile
	return nil
}

// Get returns the stored profile for an email, if any.
func (r *FakeProfileRepo) Get(email string) (bridge.Profile, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	p, ok := r.profiles[email]
	return p, ok
}
