package infrastructure

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-record-service/internal/adapter/storage/filestore"
	"user-record-service/internal/adapter/storage/objectstore"
	"user-record-service/internal/adapter/storage/redisstore"
	"user-record-service/internal/adapter/storage/sqlstore"
	"user-record-service/internal/config"
	"user-record-service/internal/usecase/user"
	redisclient "user-record-service/pkg/redis"
)

// Storage is the document store selected by STORAGE_BACKEND together with
// any connection it opened.
type Storage struct {
	Backend string
	Store   user.DocumentStore
	DB      *gorm.DB
}

// NewStorage builds the configured document store. rdb must be non-nil for
// the redis backend.
func NewStorage(ctx context.Context, cfg *config.Config, rdb *redisclient.Client, l *zap.Logger) (*Storage, error) {
	s := &Storage{Backend: cfg.Storage.Backend}
	key := cfg.Storage.DocumentKey

	switch cfg.Storage.Backend {
	case config.BackendFile:
		s.Store = filestore.New(cfg.Storage.FilePath, l)

	case config.BackendRedis:
		if rdb == nil {
			return nil, errors.New("redis backend requires a Redis client")
		}
		s.Store = redisstore.New(rdb.Client, key, l)

	case config.BackendSQL:
		db, err := NewDatabase(cfg, l)
		if err != nil {
			return nil, err
		}
		store := sqlstore.New(db, key, l)
		if err := store.Migrate(ctx); err != nil {
			_ = CloseDatabase(db)
			return nil, fmt.Errorf("failed to migrate document table: %w", err)
		}
		s.DB = db
		s.Store = store

	case config.BackendObject:
		client, err := objectstore.NewClient(objectstore.Config{
			Endpoint:  cfg.Object.Endpoint,
			AccessKey: cfg.Object.AccessKey,
			SecretKey: cfg.Object.SecretKey,
			Bucket:    cfg.Object.Bucket,
			Region:    cfg.Object.Region,
			UseSSL:    cfg.Object.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create object store client: %w", err)
		}
		s.Store = objectstore.New(client, cfg.Object.Bucket, key, l)

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	l.Info("document store initialized", zap.String("backend", s.Backend))
	return s, nil
}

// Close releases the database connection, if any.
func (s *Storage) Close() error {
	return CloseDatabase(s.DB)
}
