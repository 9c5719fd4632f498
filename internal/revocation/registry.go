package revocation

import (
	"context"
	"time"
)

type Reason string

const (
	ReasonLogout      Reason = "logout"
	ReasonRotated     Reason = "rotated"
	ReasonCompromised Reason = "compromised"
)

// Entry records a revoked token id. ExpiresAt is the token's natural expiry;
// once that passes the entry may be dropped without reintroducing risk.
type Entry struct {
	TokenID   string
	Reason    Reason
	RevokedAt time.Time
	ExpiresAt time.Time
}

// Registry is consulted on every authenticated request, so IsRevoked must be
// a cheap point lookup. Revoke is atomic per key: when two callers race on
// the same id, exactly one observes prior == nil.
type Registry interface {
	// Revoke marks the token id revoked. If an entry already existed it is
	// returned unchanged and nothing is written.
	Revoke(ctx context.Context, tokenID string, reason Reason, expiresAt time.Time) (prior *Entry, err error)

	IsRevoked(ctx context.Context, tokenID string) (bool, error)

	// RevokeChain invalidates every token carrying the chain id.
	RevokeChain(ctx context.Context, chainID string, expiresAt time.Time) error

	IsChainRevoked(ctx context.Context, chainID string) (bool, error)

	// PurgeExpired drops entries whose underlying tokens expired before the
	// given time and reports how many were removed.
	PurgeExpired(ctx context.Context, before time.Time) (int, error)
}
