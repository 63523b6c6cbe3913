package secrets

import (
	"time"
)

// EnvironmentStore reads secrets from TMSCRAPER_SECRET_<NAME> variables.
// It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Set is not supported for environment variables
func (e *EnvironmentStore) Set(secret *Secret) error {
	return ErrStoreUnavailable
}

// Get reads the secret from its environment variable
func (e *EnvironmentStore) Get(name string) (*Secret, error) {
	value, ok := lookupEnv(name)
	if !ok {
		return nil, ErrNotFound
	}
	return &Secret{Name: name, Value: value, LastModified: time.Now()}, nil
}

// List reports the well-known secrets that are set
func (e *EnvironmentStore) List() ([]string, error) {
	if _, ok := lookupEnv(TorControlPassword); ok {
		return []string{TorControlPassword}, nil
	}
	return nil, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}
