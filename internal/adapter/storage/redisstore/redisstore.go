package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"user-record-service/internal/adapter/storage"
	domain "user-record-service/internal/domain/user"
)

// KeyPrefix namespaces document keys in a shared Redis database.
const KeyPrefix = "document:"

// Store keeps the document as a single Redis string value.
type Store struct {
	client *redis.Client
	key    string
	log    *zap.Logger
}

// New creates a Redis-backed document store under KeyPrefix+name.
func New(client *redis.Client, name string, log *zap.Logger) *Store {
	return &Store{
		client: client,
		key:    KeyPrefix + name,
		log:    log,
	}
}

// Key returns the Redis key holding the document.
func (s *Store) Key() string {
	return s.key
}

// Load reads the document value. A missing key yields an empty document.
func (s *Store) Load(ctx context.Context) (*domain.Document, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		s.log.Debug("document key not found, starting empty", zap.String("key", s.key))
		return domain.NewDocument(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", s.key, err)
	}

	return storage.DecodeDocument(data, "redis:"+s.key)
}

// Save replaces the document value with a single SET.
func (s *Store) Save(ctx context.Context, doc *domain.Document) error {
	data, err := storage.EncodeDocument(doc)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		s.log.Error("failed to set document", zap.String("key", s.key), zap.Error(err))
		return fmt.Errorf("failed to set document %s: %w", s.key, err)
	}

	s.log.Debug("document stored", zap.String("key", s.key), zap.Int("bytes", len(data)))
	return nil
}
