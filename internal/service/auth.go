package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nvoronchev/platform-auth/internal/events"
	"github.com/nvoronchev/platform-auth/internal/lockout"
	"github.com/nvoronchev/platform-auth/internal/models"
	"github.com/nvoronchev/platform-auth/internal/repo"
	"github.com/nvoronchev/platform-auth/internal/revocation"
	"github.com/nvoronchev/platform-auth/pkg/hash"
	"github.com/nvoronchev/platform-auth/pkg/logging"
	"github.com/nvoronchev/platform-auth/pkg/tokens"
)

// CredentialStore is what the lifecycle manager needs from identity
// persistence. repo.GormRepo implements it.
type CredentialStore interface {
	FindIdentity(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	CreateUserIfNotExists(ctx context.Context, u *models.User) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error
	DeleteUser(ctx context.Context, username string) error
}

// AuthService orchestrates the token lifecycle: login, request
// authentication, refresh rotation and logout.
type AuthService struct {
	Repo     CredentialStore
	Codec    *tokens.Codec
	Registry revocation.Registry
	Guard    *lockout.Guard
	Hasher   *hash.Hasher
	Events   events.Sink

	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	Subject      string
	Scopes       string
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	user, err := s.verifyCredentials(ctx, l, username, password)
	if err != nil {
		return nil, err
	}

	res, err := s.mintPair(user, "")
	if err != nil {
		l.Error("login failed", "reason", "cannot mint tokens", "error", err)
		return nil, err
	}

	s.emit(ctx, l, events.Event{
		Type:     events.TypeLoginSucceeded,
		Username: username,
		Subject:  res.Subject,
		At:       time.Now().UTC(),
	})
	l.Info("login successful")
	return res, nil
}

// Authenticate validates an access token and checks it against the
// revocation registry. A revoked token fails with an expired-class error.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*tokens.Claims, error) {
	claims, err := s.Codec.ParseAndVerify(accessToken, tokens.TypeAccess)
	if err != nil {
		return nil, err
	}

	if revoked, err := s.Registry.IsRevoked(ctx, claims.ID); err != nil {
		return nil, err
	} else if revoked {
		return nil, fmt.Errorf("token revoked: %w", tokens.ErrExpired)
	}

	if revoked, err := s.Registry.IsChainRevoked(ctx, claims.ChainID); err != nil {
		return nil, err
	} else if revoked {
		return nil, fmt.Errorf("token chain revoked: %w", tokens.ErrExpired)
	}

	return claims, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair carrying the same chain id is minted. Presenting an already-rotated
// token is treated as theft, the whole chain dies.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := s.Codec.ParseAndVerify(refreshToken, tokens.TypeRefresh)
	if err != nil {
		return nil, err
	}
	l = l.With("subject", claims.Subject)

	if revoked, err := s.Registry.IsChainRevoked(ctx, claims.ChainID); err != nil {
		return nil, err
	} else if revoked {
		l.Warn("refresh rejected", "reason", "chain already revoked")
		return nil, ErrCompromiseDetected
	}

	now := time.Now().UTC()

	// Per-key CAS: of two racing refreshes exactly one sees prior == nil.
	prior, err := s.Registry.Revoke(ctx, claims.ID, revocation.ReasonRotated, claims.ExpiresAt.Time)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		if prior.Reason == revocation.ReasonRotated {
			// No successor can outlive this horizon, so the chain entry may
			// be purged after it.
			chainExp := now.Add(s.RefreshTTL)
			if err := s.Registry.RevokeChain(ctx, claims.ChainID, chainExp); err != nil {
				return nil, err
			}
			s.emit(ctx, l, events.Event{
				Type:    events.TypeCompromiseDetected,
				Subject: claims.Subject,
				Reason:  "rotated refresh token reused",
				At:      now,
			})
			l.Warn("refresh token reuse detected, chain revoked")
			return nil, ErrCompromiseDetected
		}
		return nil, fmt.Errorf("token revoked: %w", tokens.ErrExpired)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, tokens.ErrMalformed
	}
	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAuthenticationFailed
		}
		return nil, err
	}
	switch user.Status {
	case models.StatusDisabled:
		return nil, ErrAccountDisabled
	case models.StatusLocked:
		return nil, ErrAccountLocked
	}

	res, err := s.mintPair(user, claims.ChainID)
	if err != nil {
		l.Error("refresh failed", "reason", "cannot mint tokens", "error", err)
		return nil, err
	}

	s.emit(ctx, l, events.Event{
		Type:    events.TypeTokenRefreshed,
		Subject: res.Subject,
		At:      now,
	})
	return res, nil
}

// LogOut revokes both token ids. Revoking an already-revoked or already
// expired token is a no-op success.
func (s *AuthService) LogOut(ctx context.Context, accessToken, refreshToken string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	subject := ""
	for _, t := range []struct {
		raw string
		typ tokens.Type
	}{
		{accessToken, tokens.TypeAccess},
		{refreshToken, tokens.TypeRefresh},
	} {
		if t.raw == "" {
			continue
		}
		claims, err := s.Codec.ParseAndVerify(t.raw, t.typ)
		if err != nil {
			continue
		}
		subject = claims.Subject
		if _, err := s.Registry.Revoke(ctx, claims.ID, revocation.ReasonLogout, claims.ExpiresAt.Time); err != nil {
			l.Error("logout failed", "reason", "cannot revoke token", "error", err)
			return err
		}
	}

	if subject != "" {
		s.emit(ctx, l, events.Event{
			Type:    events.TypeLoggedOut,
			Subject: subject,
			At:      time.Now().UTC(),
		})
	}
	l.Info("logout successful")
	return nil
}

func (s *AuthService) Register(ctx context.Context, username, password, scopes string) error {
	l := logging.FromContext(ctx).With("svc", "auth.register", "username", username)

	if username == "" || password == "" {
		return ErrValidation
	}

	pwHash, err := s.Hasher.HashPassword(password)
	if err != nil {
		l.Error("register failed", "reason", "cannot hash the password", "error", err)
		return err
	}

	user := models.User{
		Username:     username,
		PasswordHash: pwHash,
		Scopes:       scopes,
		Status:       models.StatusActive,
	}
	if err := s.Repo.CreateUserIfNotExists(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			return ErrConflict
		}
		l.Error("register failed", "error", err)
		return err
	}

	s.emit(ctx, l, events.Event{
		Type:     events.TypeUserRegistered,
		Username: username,
		Subject:  user.ID.String(),
		At:       time.Now().UTC(),
	})
	return nil
}

// Bootstrap creates the admin identity on first start. Idempotent.
func (s *AuthService) Bootstrap(ctx context.Context, adminPassword string) error {
	if adminPassword == "" {
		return nil
	}
	err := s.Register(ctx, "admin", adminPassword, "admin")
	if errors.Is(err, ErrConflict) {
		logging.FromContext(ctx).Info("admin user already exists, skipping bootstrap")
		return nil
	}
	return err
}

func (s *AuthService) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	l := logging.FromContext(ctx).With("svc", "auth.change_password", "username", username)

	if newPassword == "" {
		return ErrValidation
	}
	user, err := s.verifyCredentials(ctx, l, username, oldPassword)
	if err != nil {
		return err
	}

	pwHash, err := s.Hasher.HashPassword(newPassword)
	if err != nil {
		l.Error("change password failed", "reason", "cannot hash the password", "error", err)
		return err
	}
	return s.Repo.UpdatePasswordHash(ctx, user.ID, pwHash)
}

func (s *AuthService) DeleteUser(ctx context.Context, username, password string) error {
	l := logging.FromContext(ctx).With("svc", "auth.delete_user", "username", username)

	if username == "admin" {
		return ErrForbidden
	}
	if _, err := s.verifyCredentials(ctx, l, username, password); err != nil {
		return err
	}
	return s.Repo.DeleteUser(ctx, username)
}

// verifyCredentials runs the guard first, then the identity lookup, then the
// password check. Password hashing happens outside any shared lock.
func (s *AuthService) verifyCredentials(ctx context.Context, l *slog.Logger, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, ErrValidation
	}

	now := time.Now().UTC()
	if ok, retryAfter := s.Guard.Allow(username, now); !ok {
		l.Warn("authentication rejected", "reason", "locked out", "retry_after_s", int(retryAfter.Seconds()))
		return nil, ErrAccountLocked
	}

	user, err := s.Repo.FindIdentity(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.recordFailure(ctx, l, username, now)
			return nil, ErrAuthenticationFailed
		}
		l.Error("authentication failed", "error", err)
		return nil, err
	}

	switch user.Status {
	case models.StatusDisabled:
		l.Warn("authentication rejected", "reason", "account disabled")
		return nil, ErrAccountDisabled
	case models.StatusLocked:
		l.Warn("authentication rejected", "reason", "account locked")
		return nil, ErrAccountLocked
	}

	if !s.Hasher.CheckPassword(user.PasswordHash, password) {
		s.recordFailure(ctx, l, username, now)
		return nil, ErrAuthenticationFailed
	}

	s.Guard.RecordSuccess(username, now)
	return user, nil
}

func (s *AuthService) recordFailure(ctx context.Context, l *slog.Logger, username string, now time.Time) {
	state := s.Guard.RecordFailure(username, now)
	s.emit(ctx, l, events.Event{
		Type:     events.TypeLoginFailed,
		Username: username,
		At:       now,
	})
	if state == lockout.StateLocked {
		l.Warn("authentication failures exceeded threshold, identity locked out")
		s.emit(ctx, l, events.Event{
			Type:     events.TypeAccountLocked,
			Username: username,
			Reason:   "failed attempt threshold reached",
			At:       now,
		})
	}
}

// mintPair issues a refresh token first so the access token can carry the
// same chain id. An empty chainID starts a new chain.
func (s *AuthService) mintPair(user *models.User, chainID string) (*LoginResult, error) {
	refreshRaw, refreshClaims, err := s.Codec.Mint(user.ID.String(), tokens.TypeRefresh, chainID, "", s.RefreshTTL)
	if err != nil {
		return nil, err
	}

	accessRaw, accessClaims, err := s.Codec.Mint(user.ID.String(), tokens.TypeAccess, refreshClaims.ChainID, user.Scopes, s.AccessTTL)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:  accessRaw,
		RefreshToken: refreshRaw,
		AccessExp:    accessClaims.ExpiresAt.Time,
		RefreshExp:   refreshClaims.ExpiresAt.Time,
		Subject:      user.ID.String(),
		Scopes:       user.Scopes,
	}, nil
}

func (s *AuthService) emit(ctx context.Context, l *slog.Logger, e events.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, e); err != nil {
		l.Error("event publish failed", "event_type", e.Type, "error", err)
	}
}
