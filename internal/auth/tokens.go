package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"puzzlepals/internal/models"
)

const (
	tokenKindAccess  = "access"
	tokenKindRefresh = "refresh"
)

type sessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Kind  string `json:"kind"`
}

// issueToken signs a new access/refresh pair for account
func (b *LocalBackend) issueToken(account *models.Account) (*oauth2.Token, error) {
	now := b.clock.Now()

	access, err := b.sign(account, tokenKindAccess, now, b.config.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := b.sign(account, tokenKindRefresh, now, b.config.RefreshTTL)
	if err != nil {
		return nil, err
	}

	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		Expiry:       now.Add(b.config.AccessTTL),
	}, nil
}

func (b *LocalBackend) sign(account *models.Account, kind string, now time.Time, ttl time.Duration) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    b.config.Issuer,
			Subject:   string(account.ID),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: account.Email,
		Kind:  kind,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.config.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return signed, nil
}

// parse validates a token of the given kind and rejects revoked token ids
func (b *LocalBackend) parse(raw, kind string) (*sessionClaims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(b.config.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(b.clock.Now),
	)
	claims := &sessionClaims{}
	parsed, err := parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return b.config.Secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	revoked, err := b.accounts.IsTokenRevoked(claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// revoke records the ids of every still-parseable token in tok
func (b *LocalBackend) revoke(tok *oauth2.Token) error {
	for _, pair := range []struct{ raw, kind string }{
		{tok.AccessToken, tokenKindAccess},
		{tok.RefreshToken, tokenKindRefresh},
	} {
		claims, err := b.parse(pair.raw, pair.kind)
		if err != nil {
			continue
		}
		err = b.accounts.RevokeToken(models.RevokedToken{
			TokenID:   claims.ID,
			AccountID: models.IdentityID(claims.Subject),
			ExpiresAt: claims.ExpiresAt.Time,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
