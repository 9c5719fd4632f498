package revocation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RevokeAndCheck(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
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

func TestMemoryStore_RevokeIsIdempotent(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	exp := time.Now().UTC().Add(time.Hour)

	_, err := s.Revoke(ctx, "jti-1", ReasonRotated, exp)
	require.NoError(t, err)

	// The second revoke reports the original entry, reason included.
	prior, err := s.Revoke(ctx, "jti-1", ReasonLogout, exp)
	require.NoError(t, err)
	require.NotNil(t, prior)
	assert.Equal(t, ReasonRotated, prior.Reason)
	assert.Equal(t, "jti-1", prior.TokenID)
}

func TestMemoryStore_ChainRevocation(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	exp := time.Now().UTC().Add(time.Hour)

	revoked, err := s.IsChainRevoked(ctx, "chain-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.RevokeChain(ctx, "chain-1", exp))

	revoked, err = s.IsChainRevoked(ctx, "chain-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = s.IsChainRevoked(ctx, "")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryStore_PurgeExpired(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
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

	revoked, err := s.IsRevoked(ctx, "dead")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = s.IsRevoked(ctx, "alive")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestMemoryStore_ConcurrentRevokeSingleWinner(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	exp := time.Now().UTC().Add(time.Hour)

	const racers = 16
	var wg sync.WaitGroup
	winners := make(chan struct{}, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prior, err := s.Revoke(ctx, "contested", ReasonRotated, exp)
			if assert.NoError(t, err) && prior == nil {
				winners <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(winners)

	count := 0
	for range winners {
		count++
	}
	assert.Equal(t, 1, count)
}
