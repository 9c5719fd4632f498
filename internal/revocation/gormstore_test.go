package revocation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nvoronchev/platform-auth/internal/models"
)

func newGormStore(t *testing.T) *GormStore {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.RevocationEntry{}, &models.RevokedChain{}))

	return NewGormStore(db)
}

func TestGormStore_RevokeAndCheck(t *testing.T) {
	t.Parallel()

	s := newGormStore(t)
	ctx := context.Background()
	exp := time.Now().UTC().Add(time.Hour)

	revoked, err := s.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	prior, err := s.Revoke(ctx, "jti-1", ReasonLogout, exp)
	require.NoError(t, err)
	assert.Nil(t, prior)

	revoked, err = s.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestGormStore_SecondRevokeReturnsPrior(t *testing.T) {
	t.Parallel()

	s := newGormStore(t)
	ctx := context.Background()
	exp := time.Now().UTC().Add(time.Hour)

	_, err := s.Revoke(ctx, "jti-1", ReasonRotated, exp)
	require.NoError(t, err)

	prior, err := s.Revoke(ctx, "jti-1", ReasonLogout, exp)
	require.NoError(t, err)
	require.NotNil(t, prior)
	assert.Equal(t, ReasonRotated, prior.Reason)
	assert.WithinDuration(t, exp, prior.ExpiresAt, time.Second)
}

func TestGormStore_ChainRevocation(t *testing.T) {
	t.Parallel()

	s := newGormStore(t)
	ctx := context.Background()
	exp := time.Now().UTC().Add(time.Hour)

	require.NoError(t, s.RevokeChain(ctx, "chain-1", exp))
	require.NoError(t, s.RevokeChain(ctx, "chain-1", exp))

	revoked, err := s.IsChainRevoked(ctx, "chain-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = s.IsChainRevoked(ctx, "other")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestGormStore_PurgeExpired(t *testing.T) {
	t.Parallel()

	s := newGormStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := s.Revoke(ctx, "dead", ReasonLogout, now.Add(-time.Minute))
	require.NoError(t, err)
	_, err = s.Revoke(ctx, "alive", ReasonLogout, now.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.RevokeChain(ctx, "dead-chain", now.Add(-time.Minute)))

	removed, err := s.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	revoked, err := s.IsRevoked(ctx, "alive")
	require.NoError(t, err)
	assert.True(t, revoked)
}
