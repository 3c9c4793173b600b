package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated covers a missing, malformed, expired or badly signed bearer token.
var ErrUnauthenticated = errors.New("unauthenticated")

// Claims accepts the standard subject and the legacy "_id" user claim.
type Claims struct {
	UserID string `json:"_id,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 bearer tokens issued by the identity provider.
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// Verify returns the authenticated subject of a bearer token.
func (v *Verifier) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrUnauthenticated
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	subject := claims.Subject
	if subject == "" {
		subject = claims.UserID
	}
	if subject == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	return subject, nil
}

// Issue signs a token for subject. Used by local tooling and tests.
func (v *Verifier) Issue(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
