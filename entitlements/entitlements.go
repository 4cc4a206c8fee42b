package entitlements

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

// Token grants time-limited read access to exactly one content item.
// The ID is the only thing callers ever hold; the record itself belongs
// to the Store.
type Token struct {
	ID        string    `json:"id"`
	ContentID string    `json:"content_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

var (
	// ErrNotFound means the token was never issued or has been evicted.
	ErrNotFound = errors.New("entitlements: token not found")
	// ErrExpired means the token's validity window has passed.
	ErrExpired = errors.New("entitlements: token expired")
	// ErrContentMismatch means the token is bound to a different content item.
	ErrContentMismatch = errors.New("entitlements: token bound to different content")
)

// Store issues and validates access tokens. Implementations must be safe
// for concurrent use.
type Store interface {
	// Issue mints a fresh token bound to contentID, valid for ttl from now,
	// and returns its ID.
	Issue(ctx context.Context, contentID string, ttl time.Duration) (string, error)

	// Validate returns nil if tokenID exists, is unexpired, and is bound to
	// contentID. Otherwise it returns ErrNotFound, ErrExpired, or
	// ErrContentMismatch. Observing an expired token evicts it.
	Validate(ctx context.Context, tokenID, contentID string) error

	// Sweep removes expired records and reports how many were evicted.
	// Backends that expire server-side may treat this as a no-op.
	Sweep(ctx context.Context) (int, error)
}

const tokenBytes = 32

// NewTokenID returns a fresh 64-character hex token identifier. IDs are
// generated here and nowhere else; stores never accept caller-supplied IDs.
func NewTokenID() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
