package auth

import (
	"context"
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

// ClaimsKey is the request-context key under which verified claims are stored
// by the authentication middleware.
const ClaimsKey ctxKey = 1

// Roles recognised by the service. The backend that issues the tokens owns
// the role assignment; we only check membership.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Claims is the JWT payload issued by the user service. Subject carries the
// user id, which doubles as the cart session key.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

// SetClaims stores verified claims on the context.
func SetClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetClaims retrieves claims stored by the authentication middleware.
func GetClaims(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(Claims)
	return claims, ok
}

// HasRole reports whether the claims carry the required role.
func (c Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Keys holds the public key used to verify tokens. The private counterpart
// lives with the user service; this service never signs anything.
type Keys struct {
	publicKey *rsa.PublicKey
}

func NewKeys(publicPEM []byte) (*Keys, error) {
	if len(publicPEM) == 0 {
		return nil, fmt.Errorf("public key pem is empty")
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing rsa public key: %w", err)
	}
	return &Keys{publicKey: pub}, nil
}

// VerifyToken parses and validates a bearer token, returning its claims.
func (k *Keys) VerifyToken(token string) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return k.publicKey, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("parsing token: %w", err)
	}
	if !parsed.Valid {
		return Claims{}, fmt.Errorf("invalid token")
	}
	return claims, nil
}
