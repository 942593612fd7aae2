package credentials

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestStores(t *testing.T) {
	tests := []struct {
		name  string
		store func(t *testing.T) Store
	}{
		{
			name:  "memory",
			store: func(t *testing.T) Store { return NewMemoryStore() },
		},
		{
			name: "file",
			store: func(t *testing.T) Store {
				return NewFileStore(filepath.Join(t.TempDir(), "nested", "credentials.json"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := tt.store(t)

			_, err := store.Get("missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Set("k", "v"))
			value, err := store.Get("k")
			require.NoError(t, err)
			assert.Equal(t, "v", value)

			require.NoError(t, store.Delete("k"))
			_, err = store.Get("k")
			assert.ErrorIs(t, err, ErrNotFound)

			assert.NoError(t, store.Delete("never-set"))
		})
	}
}

func TestFileStorePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	store := NewFileStore(path)
	require.NoError(t, store.Set("access_token", "secret"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reopened := NewFileStore(path)
	value, err := reopened.Get("access_token")
	require.NoError(t, err)
	assert.Equal(t, "secret", value)
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewFileStore(path).Get("access_token")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestTokenRoundTrip(t *testing.T) {
	store := NewMemoryStore()

	tok, err := LoadToken(store)
	require.NoError(t, err)
	assert.Nil(t, tok)

	expiry := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, SaveToken(store, &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: expiry}))

	tok, err = LoadToken(store)
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, "a", tok.AccessToken)
	assert.Equal(t, "r", tok.RefreshToken)
	assert.True(t, expiry.Equal(tok.Expiry))

	require.NoError(t, ClearToken(store))
	tok, err = LoadToken(store)
	require.NoError(t, err)
	assert.Nil(t, tok)
}
