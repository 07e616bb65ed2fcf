package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gomarketplace/cartstore/pkg/db"
	"github.com/gomarketplace/cartstore/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists snapshots in the cart_snapshots table, one row per key.
type Store struct {
	client *db.Client
	now    func() time.Time
}

func New(client *db.Client) (*Store, error) {
	if client == nil {
		return nil, errors.New("db client is required")
	}
	return &Store{client: client, now: time.Now}, nil
}

func (s *Store) Name() string { return "sql" }

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.client.DB().WithContext(ctx)
}

func (s *Store) GetItem(ctx context.Context, key string) (string, bool, error) {
	var snap models.CartSnapshot
	err := s.conn(ctx).Where("storage_key = ?", key).Take(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load snapshot %q: %w", key, err)
	}
	return snap.Payload, true, nil
}

func (s *Store) SetItem(ctx context.Context, key, value string) error {
	snap := models.CartSnapshot{
		StorageKey: key,
		Payload:    value,
		UpdatedAt:  s.now().UTC(),
	}
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&snap).Error
	if err != nil {
		return fmt.Errorf("upsert snapshot %q: %w", key, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}
