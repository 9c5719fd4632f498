package revocation

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nvoronchev/platform-auth/internal/models"
)

// GormStore is the durable registry used when revocations must survive a
// restart. Idempotency rides on the primary key: a second revoke of the same
// id inserts nothing and returns the stored entry.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{DB: db} }

var _ Registry = (*GormStore)(nil)

func (s *GormStore) Revoke(ctx context.Context, tokenID string, reason Reason, expiresAt time.Time) (*Entry, error) {
	row := models.RevocationEntry{
		TokenID:   tokenID,
		Reason:    string(reason),
		RevokedAt: time.Now().UTC(),
		ExpiresAt: expiresAt.Unix(),
	}

	res := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected > 0 {
		return nil, nil
	}

	var existing models.RevocationEntry
	if err := s.DB.WithContext(ctx).Where("token_id = ?", tokenID).First(&existing).Error; err != nil {
		return nil, err
	}
	return &Entry{
		TokenID:   existing.TokenID,
		Reason:    Reason(existing.Reason),
		RevokedAt: existing.RevokedAt,
		ExpiresAt: time.Unix(existing.ExpiresAt, 0).UTC(),
	}, nil
}

func (s *GormStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var entry models.RevocationEntry
	err := s.DB.WithContext(ctx).Where("token_id = ?", tokenID).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *GormStore) RevokeChain(ctx context.Context, chainID string, expiresAt time.Time) error {
	row := models.RevokedChain{
		ChainID:   chainID,
		RevokedAt: time.Now().UTC(),
		ExpiresAt: expiresAt.Unix(),
	}
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

func (s *GormStore) IsChainRevoked(ctx context.Context, chainID string) (bool, error) {
	if chainID == "" {
		return false, nil
	}
	var chain models.RevokedChain
	err := s.DB.WithContext(ctx).Where("chain_id = ?", chainID).First(&chain).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *GormStore) PurgeExpired(ctx context.Context, before time.Time) (int, error) {
	cutoff := before.Unix()

	entries := s.DB.WithContext(ctx).Where("expires_at < ?", cutoff).Delete(&models.RevocationEntry{})
	if entries.Error != nil {
		return 0, entries.Error
	}
	chains := s.DB.WithContext(ctx).Where("expires_at < ?", cutoff).Delete(&models.RevokedChain{})
	if chains.Error != nil {
		return int(entries.RowsAffected), chains.Error
	}
	return int(entries.RowsAffected + chains.RowsAffected), nil
}
