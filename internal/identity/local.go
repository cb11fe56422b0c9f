package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// LocalProvider issues random uids and remembers them in a CredentialStore.
// It backs the single-user local mode where no remote identity service exists.
type LocalProvider struct {
	Feed
	store CredentialStore
}

// NewLocalProvider creates a LocalProvider persisting to store.
func NewLocalProvider(store CredentialStore) *LocalProvider {
	return &LocalProvider{store: store}
}

// AuthState recovers a stored session, if any, then streams the uid.
func (p *LocalProvider) AuthState(ctx context.Context) (<-chan string, error) {
	creds, err := p.store.Load()
	switch {
	case err == nil:
		p.Set(creds.UID)
	case !errors.Is(err, ErrNoCredentials):
		return nil, fmt.Errorf("failed to recover session: %w", err)
	}
	return p.Subscribe(ctx), nil
}

// SignInAnonymously issues a new random uid and persists it.
func (p *LocalProvider) SignInAnonymously(ctx context.Context) error {
	uid := uuid.NewString()
	if err := p.store.Save(Credentials{UID: uid}); err != nil {
		return err
	}
	p.Set(uid)
	return nil
}

// SignOut forgets the stored uid and publishes the empty identity.
func (p *LocalProvider) SignOut(ctx context.Context) error {
	if err := p.store.Clear(); err != nil {
		return err
	}
	p.Set("")
	return nil
}
