package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"puzzlepals/internal/clock"
	"puzzlepals/internal/models"
	"puzzlepals/internal/repository"
	"puzzlepals/internal/security"
)

// LocalConfig holds the token settings of the local backend
type LocalConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// DefaultLocalConfig returns a configuration with standard token lifetimes
func DefaultLocalConfig(secret string) LocalConfig {
	return LocalConfig{
		Secret:     []byte(secret),
		Issuer:     "puzzlepals",
		AccessTTL:  time.Hour,
		RefreshTTL: 30 * 24 * time.Hour,
	}
}

// LocalBackend authenticates guardian accounts stored in the device database
// and issues HS256 signed access/refresh tokens
type LocalBackend struct {
	accounts *repository.AccountRepository
	config   LocalConfig
	clock    clock.Clock
	logger   *slog.Logger

	mu     sync.Mutex
	cached *Session
}

var _ Backend = (*LocalBackend)(nil)

// NewLocalBackend creates a backend over the account repository
func NewLocalBackend(accounts *repository.AccountRepository, config LocalConfig, clk clock.Clock, logger *slog.Logger) *LocalBackend {
	if clk == nil {
		clk = clock.Real{}
	}
	return &LocalBackend{
		accounts: accounts,
		config:   config,
		clock:    clk,
		logger:   logger,
	}
}

// SignIn checks the password and issues a new credential pair
func (b *LocalBackend) SignIn(ctx context.Context, email, password string) (*Session, error) {
	account, err := b.accounts.GetByEmail(normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil || !security.CheckPassword(password, account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return b.newSession(account)
}

// SignUp creates an account and signs it in
func (b *LocalBackend) SignUp(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	existing, err := b.accounts.GetByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	account, err := b.accounts.Create(email, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return b.newSession(account)
}

// SignOut revokes tok and forgets the cached session
func (b *LocalBackend) SignOut(ctx context.Context, tok *oauth2.Token) error {
	b.mu.Lock()
	b.cached = nil
	b.mu.Unlock()

	if tok == nil {
		return nil
	}
	if err := b.revoke(tok); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	if n, err := b.accounts.DeleteExpiredRevocations(); err != nil {
		b.logger.Warn("failed to purge expired revocations", slog.Any("error", err))
	} else if n > 0 {
		b.logger.Debug("purged expired revocations", slog.Int64("count", n))
	}
	return nil
}

// RestoreSession accepts a valid access token as is; otherwise it rotates the
// refresh token into a new pair
func (b *LocalBackend) RestoreSession(ctx context.Context, tok *oauth2.Token) (*Session, error) {
	if tok == nil {
		return nil, ErrNoSession
	}

	if claims, err := b.parse(tok.AccessToken, tokenKindAccess); err == nil {
		account, err := b.account(claims)
		if err != nil {
			return nil, err
		}
		session := &Session{Identity: account.Identity(), Token: tok}
		b.cache(session)
		return session, nil
	}

	claims, err := b.parse(tok.RefreshToken, tokenKindRefresh)
	if err != nil {
		return nil, err
	}
	account, err := b.account(claims)
	if err != nil {
		return nil, err
	}

	err = b.accounts.RevokeToken(models.RevokedToken{
		TokenID:   claims.ID,
		AccountID: account.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	return b.newSession(account)
}

// CachedSession returns the last session established by this backend while its
// refresh token remains valid
func (b *LocalBackend) CachedSession(ctx context.Context) (*Session, error) {
	b.mu.Lock()
	session := b.cached
	b.mu.Unlock()

	if session == nil {
		return nil, ErrNoSession
	}
	if _, err := b.parse(session.Token.RefreshToken, tokenKindRefresh); err != nil {
		b.mu.Lock()
		b.cached = nil
		b.mu.Unlock()
		return nil, ErrNoSession
	}
	return session, nil
}

// UpdatePassword changes the password of the account owning tok
func (b *LocalBackend) UpdatePassword(ctx context.Context, tok *oauth2.Token, oldPassword, newPassword string) error {
	account, err := b.authorize(tok)
	if err != nil {
		return err
	}
	if !security.CheckPassword(oldPassword, account.PasswordHash) {
		return ErrInvalidCredentials
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := b.accounts.UpdatePassword(account.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// DeleteAccount removes the account owning tok
func (b *LocalBackend) DeleteAccount(ctx context.Context, tok *oauth2.Token) error {
	account, err := b.authorize(tok)
	if err != nil {
		return err
	}
	if err := b.accounts.Delete(account.ID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	b.mu.Lock()
	b.cached = nil
	b.mu.Unlock()
	return nil
}

func (b *LocalBackend) authorize(tok *oauth2.Token) (*models.Account, error) {
	if tok == nil {
		return nil, ErrNoSession
	}
	claims, err := b.parse(tok.AccessToken, tokenKindAccess)
	if err != nil {
		return nil, err
	}
	return b.account(claims)
}

func (b *LocalBackend) account(claims *sessionClaims) (*models.Account, error) {
	account, err := b.accounts.GetByID(models.IdentityID(claims.Subject))
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrInvalidToken
	}
	return account, nil
}

func (b *LocalBackend) newSession(account *models.Account) (*Session, error) {
	tok, err := b.issueToken(account)
	if err != nil {
		return nil, err
	}
	session := &Session{Identity: account.Identity(), Token: tok}
	b.cache(session)
	return session, nil
}

func (b *LocalBackend) cache(session *Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cached = session
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsAuthError reports whether err is a rejection by the backend rather than a local failure
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrEmailTaken) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrNoSession)
}
