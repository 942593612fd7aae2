package credentials

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyExpiry       = "token_expiry"
)

// SaveToken persists the access/refresh pair of tok
func SaveToken(store Store, tok *oauth2.Token) error {
	if err := store.Set(keyAccessToken, tok.AccessToken); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	if err := store.Set(keyRefreshToken, tok.RefreshToken); err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	expiry := ""
	if !tok.Expiry.IsZero() {
		expiry = tok.Expiry.UTC().Format(time.RFC3339)
	}
	if err := store.Set(keyExpiry, expiry); err != nil {
		return fmt.Errorf("failed to save token expiry: %w", err)
	}
	return nil
}

// LoadToken returns the persisted credential pair, or nil when none is stored
// or the stored pair is incomplete
func LoadToken(store Store) (*oauth2.Token, error) {
	access, err := get(store, keyAccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := get(store, keyRefreshToken)
	if err != nil {
		return nil, err
	}
	if access == "" && refresh == "" {
		return nil, nil
	}

	tok := &oauth2.Token{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer"}
	if expiry, err := get(store, keyExpiry); err == nil && expiry != "" {
		if t, err := time.Parse(time.RFC3339, expiry); err == nil {
			tok.Expiry = t
		}
	}
	return tok, nil
}

// ClearToken removes the persisted credential pair
func ClearToken(store Store) error {
	var errs []error
	for _, key := range []string{keyAccessToken, keyRefreshToken, keyExpiry} {
		if err := store.Delete(key); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to clear credentials: %w", errors.Join(errs...))
	}
	return nil
}

func get(store Store, key string) (string, error) {
	value, err := store.Get(key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", key, err)
	}
	return value, nil
}
