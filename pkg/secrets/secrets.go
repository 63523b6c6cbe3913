// Package secrets keeps credentials out of the configuration file.
//
// A Manager consults the system keychain first, then an encrypted file in
// the XDG config directory, then TMSCRAPER_SECRET_* environment variables.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// TorControlPassword is the secret used to authenticate on the Tor control port
const TorControlPassword = "tor-control-password"

// Secret is one named credential
type Secret struct {
	Name         string    `json:"name"`
	Value        string    `json:"value"`
	LastModified time.Time `json:"last_modified"`
}

// Store is a backend that can hold secrets
type Store interface {
	// Set saves a secret, replacing any previous value
	Set(secret *Secret) error

	// Get returns the secret with the given name
	Get(name string) (*Secret, error)

	// List returns the names of all stored secrets
	List() ([]string, error)

	// Delete removes the secret with the given name
	Delete(name string) error
}

// Errors
var (
	ErrNotFound         = errors.New("secret not found")
	ErrInvalidSecret    = errors.New("invalid secret")
	ErrStoreUnavailable = errors.New("secret store unavailable")
)

// Manager handles secret storage with fallback stores
type Manager struct {
	stores []Store
}

// NewManager creates a manager over the keychain, the encrypted file and the environment
func NewManager() (*Manager, error) {
	var stores []Store

	// Try keyring first (system keychain)
	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	dir := filepath.Join(xdg.ConfigHome, "tmscraper")
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(dir, "secrets.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over the given stores, in priority order
func NewManagerWithStores(stores ...Store) *Manager {
	return &Manager{stores: stores}
}

// Set saves the secret in the first store that accepts it
func (m *Manager) Set(name, value string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSecret)
	}
	if value == "" {
		return fmt.Errorf("%w: value is required", ErrInvalidSecret)
	}

	secret := &Secret{Name: name, Value: value, LastModified: time.Now()}

	var lastErr error
	for _, store := range m.stores {
		err := store.Set(secret)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store secret: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Get returns the value from the first store that has it
func (m *Manager) Get(name string) (string, error) {
	for _, store := range m.stores {
		if secret, err := store.Get(name); err == nil && secret != nil {
			return secret.Value, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Lookup returns the value or "" when no store has it
func (m *Manager) Lookup(name string) string {
	value, err := m.Get(name)
	if err != nil {
		return ""
	}
	return value
}

// List returns the names held by any store, without duplicates
func (m *Manager) List() []string {
	seen := make(map[string]bool)
	var names []string
	for _, store := range m.stores {
		stored, err := store.List()
		if err != nil {
			continue
		}
		for _, name := range stored {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// Delete removes the secret from every store that has it
func (m *Manager) Delete(name string) error {
	var deleted bool
	for _, store := range m.stores {
		if err := store.Delete(name); err == nil {
			deleted = true
		}
	}

	if !deleted {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// Mask hides all but the first and last two characters
func Mask(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:2] + "..." + s[len(s)-2:]
}

// envName maps a secret name to its environment variable
func envName(name string) string {
	return "TMSCRAPER_SECRET_" + strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
}

func lookupEnv(name string) (string, bool) {
	value, ok := os.LookupEnv(envName(name))
	return value, ok && value != ""
}
