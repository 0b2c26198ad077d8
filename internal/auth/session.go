// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid session token")

// Issuer signs and verifies seat tokens. A token binds one player ID to one
// room code; "sub" carries the player and "room" the code.
type Issuer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// ttl of zero means tokens never expire.
	ttl time.Duration
	now func() time.Time
}

// NewIssuer generates a fresh ed25519 key pair at runtime.
func NewIssuer(ttl time.Duration) (*Issuer, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Issuer{privateKey: privateKey, publicKey: publicKey, ttl: ttl, now: time.Now}, nil
}

// NewIssuerFromPath reads a raw ed25519 key pair from disk, so tokens survive
// a restart of the server process.
func NewIssuerFromPath(privatePath, publicPath string, ttl time.Duration) (*Issuer, error) {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("unexpected ed25519 key sizes %d/%d", len(privateKeyData), len(publicKeyData))
	}
	return &Issuer{
		privateKey: ed25519.PrivateKey(privateKeyData),
		publicKey:  ed25519.PublicKey(publicKeyData),
		ttl:        ttl,
		now:        time.Now,
	}, nil
}

// Issue creates a signed token for playerID's seat in roomCode.
func (i *Issuer) Issue(roomCode string, playerID uuid.UUID) (string, error) {
	now := i.now()
	claims := jwt.MapClaims{
		"sub":  playerID.String(),
		"room": roomCode,
		"iat":  now.Unix(),
	}
	if i.ttl > 0 {
		claims["exp"] = now.Add(i.ttl).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(i.privateKey)
}

// Verify checks a token and returns the room code and player ID it names.
func (i *Issuer) Verify(tokenString string) (string, uuid.UUID, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.publicKey, nil
	})
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid {
		return "", uuid.Nil, ErrInvalidToken
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", uuid.Nil, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}
	sub, _ := claims["sub"].(string)
	playerID, err := uuid.Parse(sub)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("%w: bad sub", ErrInvalidToken)
	}
	roomCode, ok := claims["room"].(string)
	if !ok || roomCode == "" {
		return "", uuid.Nil, fmt.Errorf("%w: missing room", ErrInvalidToken)
	}
	return roomCode, playerID, nil
}
