package events

import (
	"context"
	"time"
)

const (
	TypeUserRegistered     = "user_registered"
	TypeLoginSucceeded     = "login_succeeded"
	TypeLoginFailed        = "login_failed"
	TypeAccountLocked      = "account_locked"
	TypeTokenRefreshed     = "token_refreshed"
	TypeCompromiseDetected = "compromise_detected"
	TypeLoggedOut          = "logged_out"
)

// Event is the security event emitted on auth state changes. Credentials and
// raw tokens never appear here.
type Event struct {
	Type     string    `json:"type"`
	Username string    `json:"username,omitempty"`
	Subject  string    `json:"subject,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	At       time.Time `json:"at"`
}

type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// Multi fans an event out to every sink; the first error wins but all sinks
// still receive the event.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, e Event) error {
	var first error
	for _, s := range m {
		if err := s.Publish(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
