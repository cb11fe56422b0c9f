package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
)

var (
	// ErrNoCredentials is returned by a CredentialStore holding nothing.
	ErrNoCredentials = errors.New("no stored credentials")
	// ErrKeyringUnavailable is returned when the OS keyring cannot be used.
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Credentials is what a provider needs to resume a session.
type Credentials struct {
	UID          string `json:"uid"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// CredentialStore persists the credentials of the single local user.
type CredentialStore interface {
	Load() (Credentials, error)
	Save(Credentials) error
	Clear() error
}

// KeyringStore keeps credentials in the OS keyring as a JSON value.
type KeyringStore struct {
	Service string
	User    string
}

// NewKeyringStore returns a KeyringStore for service, using the default account name.
func NewKeyringStore(service string) *KeyringStore {
	return &KeyringStore{Service: service, User: "default"}
}

// Load reads the credentials stored under Service/User.
func (k *KeyringStore) Load() (Credentials, error) {
	raw, err := keyring.Get(k.Service, k.User)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return Credentials{}, ErrNoCredentials
		}
		return Credentials{}, fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	var c Credentials
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return Credentials{}, fmt.Errorf("failed to decode keyring credentials: %w", err)
	}
	if c.UID == "" {
		return Credentials{}, ErrNoCredentials
	}
	return c, nil
}

// Save stores c as JSON in the keyring entry.
func (k *KeyringStore) Save(c Credentials) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := keyring.Set(k.Service, k.User, string(raw)); err != nil {
		return fmt.Errorf("failed to store credentials in keyring: %w", err)
	}
	return nil
}

// Clear removes the keyring entry. A missing entry is not an error.
func (k *KeyringStore) Clear() error {
	err := keyring.Delete(k.Service, k.User)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete credentials from keyring: %w", err)
	}
	return nil
}

// FileStore keeps credentials in a JSON file readable only by the owner.
type FileStore struct {
	Path string
}

// Load reads the credentials file. A missing file yields ErrNoCredentials.
func (f *FileStore) Load() (Credentials, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return Credentials{}, ErrNoCredentials
		}
		return Credentials{}, fmt.Errorf("failed to read credentials: %w", err)
	}
	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return Credentials{}, fmt.Errorf("failed to decode credentials file: %w", err)
	}
	if c.UID == "" {
		return Credentials{}, ErrNoCredentials
	}
	return c, nil
}

// Save writes the file atomically via a temp file and rename.
func (f *FileStore) Save(c Credentials) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create credentials dir: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		return fmt.Errorf("failed to replace credentials: %w", err)
	}
	return nil
}

// Clear removes the credentials file. A missing file is not an error.
func (f *FileStore) Clear() error {
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}
