package service

import (
	"fmt"
	"time"

	"storefront-service/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	viewerAudience = "viewer"
	sellerAudience = "seller"
)

// ViewerTokens signs short-lived tokens that let an unlocked session fetch
// view-only content for a single reference.
type ViewerTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewViewerTokens creates a viewer token signer
func NewViewerTokens(secret string, ttl time.Duration) *ViewerTokens {
	return &ViewerTokens{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token bound to reference
func (v *ViewerTokens) Issue(reference string) (string, time.Time, error) {
	now := v.now()
	expiresAt := now.Add(v.ttl)

	claims := jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		Subject:   reference,
		Audience:  jwt.ClaimStrings{viewerAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign viewer token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the token signature, expiry and that it was issued for
// reference
func (v *ViewerTokens) Verify(token, reference string) error {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, v.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(viewerAudience),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidViewerToken, err)
	}
	if claims.Subject != reference {
		return fmt.Errorf("%w: issued for another reference", ErrInvalidViewerToken)
	}
	return nil
}

func (v *ViewerTokens) keyFunc(*jwt.Token) (interface{}, error) {
	return v.secret, nil
}

// SellerClaims identify an authenticated seller
type SellerClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SellerAuthenticator verifies seller bearer tokens issued by the auth
// provider and turns them into an explicit Identity.
type SellerAuthenticator struct {
	secret []byte
}

// NewSellerAuthenticator creates an authenticator for HS256 seller tokens
func NewSellerAuthenticator(secret string) *SellerAuthenticator {
	return &SellerAuthenticator{secret: []byte(secret)}
}

// Issue signs a seller token. The hosted auth provider normally does this;
// it is used by local tooling and tests.
func (a *SellerAuthenticator) Issue(identity models.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SellerClaims{
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.SellerID,
			Audience:  jwt.ClaimStrings{sellerAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Authenticate parses a seller token into an Identity
func (a *SellerAuthenticator) Authenticate(token string) (models.Identity, error) {
	claims := &SellerClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(sellerAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return models.Identity{}, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	return models.Identity{SellerID: claims.Subject, Email: claims.Email}, nil
}
