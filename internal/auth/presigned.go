// Package auth verifies caller identity and signs the tokens embedded in retrieval routes.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidToken is returned when a token is malformed
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned when a token has expired
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidSignature is returned when a token's signature is invalid
	ErrInvalidSignature = errors.New("invalid signature")
)

// Signer creates and verifies retrieval tokens.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a new Signer with the given secret key
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// GenerateToken binds a document, the grant that authorizes it and an expiry.
// Format: documentID.grantID.expiresUnix.signature
func (s *Signer) GenerateToken(documentID, grantID string, expiresAt time.Time) string {
	data := fmt.Sprintf("%s.%s.%d", documentID, grantID, expiresAt.Unix())
	return data + "." + s.sign(data)
}

// VerifyToken validates a token and returns the document and grant it was issued for.
func (s *Signer) VerifyToken(token string) (documentID, grantID string, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrInvalidToken
	}

	documentID, grantID = parts[0], parts[1]
	expiresAt, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", "", ErrInvalidToken
	}

	data := fmt.Sprintf("%s.%s.%d", documentID, grantID, expiresAt)
	if !hmac.Equal([]byte(s.sign(data)), []byte(parts[3])) {
		return "", "", ErrInvalidSignature
	}

	if s.now().Unix() > expiresAt {
		return "", "", ErrTokenExpired
	}

	return documentID, grantID, nil
}

// sign creates an HMAC-SHA256 signature of the data
func (s *Signer) sign(data string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
