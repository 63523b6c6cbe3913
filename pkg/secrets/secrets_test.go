package secrets

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(PassphraseEnv, "test_passphrase_123")
	path := filepath.Join(t.TempDir(), "secrets.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Set(&Secret{Name: TorControlPassword, Value: "hunter2-control"}))
	require.NoError(t, store.Set(&Secret{Name: "other", Value: "x"}))

	got, err := store.Get(TorControlPassword)
	require.NoError(t, err)
	assert.Equal(t, "hunter2-control", got.Value)

	names, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"other", TorControlPassword}, names)

	// The file must not contain the plaintext
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(content, []byte("hunter2-control")))

	// A different passphrase cannot read it
	t.Setenv(PassphraseEnv, "wrong")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Get(TorControlPassword)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))

	t.Setenv(PassphraseEnv, "test_passphrase_123")
	require.NoError(t, store.Delete("other"))
	require.NoError(t, store.Delete(TorControlPassword))
	assert.NoFileExists(t, path)
	assert.ErrorIs(t, store.Delete(TorControlPassword), ErrNotFound)
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	dir := t.TempDir()

	store, err := NewEncryptedFileStore(filepath.Join(dir, "secrets.enc"))
	require.NoError(t, err)
	require.NoError(t, store.Set(&Secret{Name: "a", Value: "b"}))
	assert.FileExists(t, filepath.Join(dir, ".passphrase"))

	// A second store in the same directory reuses the passphrase
	again, err := NewEncryptedFileStore(filepath.Join(dir, "secrets.enc"))
	require.NoError(t, err)
	got, err := again.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Value)
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("TMSCRAPER_SECRET_TOR_CONTROL_PASSWORD", "from-env")
	store := NewEnvironmentStore()

	got, err := store.Get(TorControlPassword)
	require.NoError(t, err)
	assert.Equal(t, "from-env", got.Value)

	names, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{TorControlPassword}, names)

	assert.ErrorIs(t, store.Set(&Secret{Name: "x", Value: "y"}), ErrStoreUnavailable)
	_, err = store.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	require.NoError(t, store.Set(&Secret{Name: TorControlPassword, Value: "kc"}))
	got, err := store.Get(TorControlPassword)
	require.NoError(t, err)
	assert.Equal(t, "kc", got.Value)

	require.NoError(t, store.Delete(TorControlPassword))
	_, err = store.Get(TorControlPassword)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManagerFallback(t *testing.T) {
	t.Setenv(PassphraseEnv, "pw")
	t.Setenv("TMSCRAPER_SECRET_TOR_CONTROL_PASSWORD", "env-value")

	file, err := NewEncryptedFileStore(filepath.Join(t.TempDir(), "secrets.enc"))
	require.NoError(t, err)
	m := NewManagerWithStores(file, NewEnvironmentStore())

	// Only the environment has it
	assert.Equal(t, "env-value", m.Lookup(TorControlPassword))

	// The file store takes priority once set
	require.NoError(t, m.Set(TorControlPassword, "file-value"))
	assert.Equal(t, "file-value", m.Lookup(TorControlPassword))
	assert.Equal(t, []string{TorControlPassword}, m.List())

	require.NoError(t, m.Delete(TorControlPassword))
	assert.Equal(t, "env-value", m.Lookup(TorControlPassword))

	assert.Equal(t, "", m.Lookup("unknown"))
	assert.ErrorIs(t, m.Delete("unknown"), ErrNotFound)
	assert.ErrorIs(t, m.Set("", "v"), ErrInvalidSecret)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "********", Mask("short"))
	assert.Equal(t, "lo...rd", Mask("longpassword"))
}
