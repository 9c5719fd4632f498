package revocation

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 64

type shard struct {
	mu      sync.Mutex
	entries map[string]Entry
	chains  map[string]time.Time
}

// MemoryStore is a sharded in-process registry. Sharding keeps revoke/check
// atomic per key without serializing unrelated identities behind one lock.
type MemoryStore struct {
	shards [shardCount]*shard
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	for i := range s.shards {
		s.shards[i] = &shard{
			entries: make(map[string]Entry),
			chains:  make(map[string]time.Time),
		}
	}
	return s
}

var _ Registry = (*MemoryStore)(nil)

func (s *MemoryStore) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return s.shards[h.Sum32()%shardCount]
}

func (s *MemoryStore) Revoke(_ context.Context, tokenID string, reason Reason, expiresAt time.Time) (*Entry, error) {
	sh := s.shardFor(tokenID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if existing, ok := sh.entries[tokenID]; ok {
		prior := existing
		return &prior, nil
	}

	sh.entries[tokenID] = Entry{
		TokenID:   tokenID,
		Reason:    reason,
		RevokedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
	return nil, nil
}

func (s *MemoryStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	sh := s.shardFor(tokenID)
	sh.mu.Lock()
	_, ok := sh.entries[tokenID]
	sh.mu.Unlock()
	return ok, nil
}

func (s *MemoryStore) RevokeChain(_ context.Context, chainID string, expiresAt time.Time) error {
	sh := s.shardFor(chainID)
	sh.mu.Lock()
	if current, ok := sh.chains[chainID]; !ok || expiresAt.After(current) {
		sh.chains[chainID] = expiresAt
	}
	sh.mu.Unlock()
	return nil
}

func (s *MemoryStore) IsChainRevoked(_ context.Context, chainID string) (bool, error) {
	if chainID == "" {
		return false, nil
	}
	sh := s.shardFor(chainID)
	sh.mu.Lock()
	_, ok := sh.chains[chainID]
	sh.mu.Unlock()
	return ok, nil
}

func (s *MemoryStore) PurgeExpired(_ context.Context, before time.Time) (int, error) {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, e := range sh.entries {
			if e.ExpiresAt.Before(before) {
				delete(sh.entries, id)
				removed++
			}
		}
		for id, exp := range sh.chains {
			if exp.Before(before) {
				delete(sh.chains, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed, nil
}
