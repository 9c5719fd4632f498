package models

import (
	"time"

	"github.com/google/uuid"
)

type AccountStatus string

const (
	StatusActive   AccountStatus = "active"
	StatusDisabled AccountStatus = "disabled"
	StatusLocked   AccountStatus = "locked"
)

// User is the identity record the core authenticates against. The core never
// mutates it except for status transitions.
type User struct {
	ID           uuid.UUID     `gorm:"type:uuid;primaryKey"      json:"id"`
	Username     string        `gorm:"uniqueIndex;not null"      json:"username"`
	PasswordHash string        `gorm:"not null"                  json:"-"`
	Scopes       string        `gorm:"not null;default:''"       json:"scopes"`
	Status       AccountStatus `gorm:"not null;default:'active'" json:"status"`
	CreatedAt    time.Time     `                                 json:"created_at"`
}

// RevocationEntry marks a token id invalid before its natural expiry.
// ExpiresAt is the token's own expiry; entries past it are safe to purge.
type RevocationEntry struct {
	TokenID   string    `gorm:"primaryKey"     json:"token_id"`
	Reason    string    `gorm:"not null"       json:"reason"`
	RevokedAt time.Time `gorm:"not null"       json:"revoked_at"`
	ExpiresAt int64     `gorm:"index;not null" json:"expires_at"`
}

// RevokedChain invalidates every token carrying the chain id, whatever its
// individual jti. Written only on compromise detection.
type RevokedChain struct {
	ChainID   string    `gorm:"primaryKey"     json:"chain_id"`
	RevokedAt time.Time `gorm:"not null"       json:"revoked_at"`
	ExpiresAt int64     `gorm:"index;not null" json:"expires_at"`
}
