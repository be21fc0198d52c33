// Package database provides the SQL backed key-value store.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgtype"
	"github.com/lildude/trailcoach/internal/cache"
	"github.com/lildude/trailcoach/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// InitDB opens the database for the given backend and performs schema migration.
// backend is "postgres" or "sqlite"; dsn is the connection string or file path.
func InitDB(backend, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("DATABASE_URL environment variable is not set")
	}

	var dialector gorm.Dialector
	switch backend {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database backend %q", backend)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", backend, err)
	}

	if err := db.AutoMigrate(&model.Blob{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return db, nil
}

// BlobStore keeps JSON documents in a single table keyed by name.
// It satisfies cache.Cache so it can replace Redis.
type BlobStore struct {
	db *gorm.DB
}

var _ cache.Cache = (*BlobStore)(nil)

func NewBlobStore(db *gorm.DB) *BlobStore {
	return &BlobStore{db: db}
}

// Get returns the stored JSON as a string, or an empty string when the key is absent.
func (bs *BlobStore) Get(ctx context.Context, key string) (any, error) {
	var blob model.Blob
	err := bs.db.WithContext(ctx).First(&blob, "blob_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", key, err)
	}
	return string(blob.Value.Bytes), nil
}

// Set upserts value. Strings are stored verbatim and must already be JSON.
func (bs *BlobStore) Set(ctx context.Context, key string, value any) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		s, err := cache.Encode(key, value)
		if err != nil {
			return err
		}
		raw = s
	}

	blob := model.Blob{
		Key:       key,
		Value:     pgtype.JSONB{Bytes: []byte(raw), Status: pgtype.Present},
		UpdatedAt: time.Now().UTC(),
	}
	err := bs.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&blob).Error
	if err != nil {
		return fmt.Errorf("saving %q: %w", key, err)
	}
	return nil
}

func (bs *BlobStore) Delete(ctx context.Context, key string) error {
	if err := bs.db.WithContext(ctx).Delete(&model.Blob{}, "blob_key = ?", key).Error; err != nil {
		return fmt.Errorf("deleting %q: %w", key, err)
	}
	return nil
}

func (bs *BlobStore) GetJSON(ctx context.Context, key string, value any) error {
	v, err := bs.Get(ctx, key)
	if err != nil {
		return err
	}
	s, _ := v.(string)
	if s == "" {
		return cache.ErrMiss
	}
	if err := json.Unmarshal([]byte(s), value); err != nil {
		return &cache.DecodeError{Key: key, Err: err}
	}
	return nil
}

func (bs *BlobStore) SetJSON(ctx context.Context, key string, value any) error {
	s, err := cache.Encode(key, value)
	if err != nil {
		return err
	}
	return bs.Set(ctx, key, s)
}
