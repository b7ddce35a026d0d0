package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer   = "storefront"
	audience = "order-draft"
)

// DraftClaims binds a browser session to one order draft.
type DraftClaims struct {
	DraftID string `json:"draft_id"`
	Flow    string `json:"flow"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies draft tokens.
type TokenManager struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewTokenManager creates a token manager. Tokens live as long as the
// draft they belong to, so expiry should match the session TTL.
func NewTokenManager(secret string, expiry time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}
}

// Issue creates a signed HS256 token for draftID.
func (m *TokenManager) Issue(draftID, flow string) (string, error) {
	now := m.now().UTC()
	claims := &DraftClaims{
		DraftID: draftID,
		Flow:    flow,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   draftID,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign draft token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns its claims.
func (m *TokenManager) Verify(tokenString string) (*DraftClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &DraftClaims{}, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse draft token: %w", err)
	}

	claims, ok := token.Claims.(*DraftClaims)
	if !ok || !token.Valid || claims.DraftID == "" {
		return nil, fmt.Errorf("invalid draft token claims")
	}
	return claims, nil
}

// DraftID verifies a token and returns the draft it grants access to. Its
// signature matches middleware.TokenVerifier.
func (m *TokenManager) DraftID(tokenString string) (string, error) {
	claims, err := m.Verify(tokenString)
	if err != nil {
		return "", err
	}
	return claims.DraftID, nil
}
