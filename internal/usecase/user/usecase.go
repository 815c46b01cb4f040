package user

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	domain "user-record-service/internal/domain/user"
	apperrors "user-record-service/pkg/errors"
	"user-record-service/pkg/logger"
)

// DocumentStore defines the persistence backend for the user collection.
// It abstracts the storage layer, allowing a file, Redis, SQL or object
// store to be used interchangeably.
type DocumentStore interface {
	// Load returns the stored document, or an empty one if nothing was ever
	// saved. Undecodable content is reported as *errors.CorruptDocumentError.
	Load(ctx context.Context) (*domain.Document, error)

	// Save replaces the stored document in full. Readers observe either the
	// previous or the new document.
	Save(ctx context.Context, doc *domain.Document) error
}

// RecordStore implements the business logic for user records.
// Every mutation is a full load-mutate-save cycle over the whole
// collection, serialized by an in-process mutex.
type RecordStore struct {
	store DocumentStore      // Persistence backend
	log   *zap.Logger        // Logger for structured logging
	mu    sync.Mutex         // Single-writer guard for load-mutate-save
	group singleflight.Group // Coalesces concurrent read-path loads

	// generation counts successful saves and keys the read flights, so a
	// read that starts after a save never joins a load begun before it.
	generation   atomic.Uint64
	corruptLoads atomic.Uint64
}

var _ Usecase = (*RecordStore)(nil)

// New creates a new RecordStore over the given document store.
func New(s DocumentStore, log *zap.Logger) *RecordStore {
	return &RecordStore{store: s, log: log}
}

// CorruptLoads returns how many loads found an undecodable document since
// the store was created.
func (rs *RecordStore) CorruptLoads() uint64 {
	return rs.corruptLoads.Load()
}

// Load returns the current collection in stored order. It never fails: a
// missing, corrupt or unreadable document yields an empty collection, and
// the last two are logged.
func (rs *RecordStore) Load(ctx context.Context) []domain.User {
	log := logger.WithContext(ctx, rs.log)

	doc, err := rs.store.Load(ctx)
	if err != nil {
		var corrupt *apperrors.CorruptDocumentError
		if errors.As(err, &corrupt) {
			rs.corruptLoads.Add(1)
			log.Warn("store document is corrupt, serving empty collection",
				zap.String("source", corrupt.Source),
				zap.Error(corrupt.Err),
			)
		} else {
			log.Error("failed to load store document, serving empty collection", zap.Error(err))
		}
		return []domain.User{}
	}

	if doc == nil || doc.Users == nil {
		return []domain.User{}
	}
	return doc.Users
}

// Save persists the full collection. Failures are returned as
// *errors.StorageError.
func (rs *RecordStore) Save(ctx context.Context, users []domain.User) error {
	if err := rs.store.Save(ctx, domain.NewDocument(users)); err != nil {
		logger.WithContext(ctx, rs.log).Error("failed to save store document",
			zap.Int("users", len(users)),
			zap.Error(err),
		)
		return apperrors.NewStorageError("Failed to persist users", err)
	}
	rs.generation.Add(1)
	return nil
}

// loadShared is Load for read-only callers. Concurrent calls within one
// save generation share one backend read; each caller gets its own copy of
// the slice. The shared load does not inherit the leader's cancellation,
// since the other callers still wait on its result.
func (rs *RecordStore) loadShared(ctx context.Context) []domain.User {
	key := strconv.FormatUint(rs.generation.Load(), 10)
	v, _, _ := rs.group.Do(key, func() (any, error) {
		return rs.Load(context.WithoutCancel(ctx)), nil
	})
	return slices.Clone(v.([]domain.User))
}

// CreateUser validates the payload, assigns a new random UUID and appends
// the record to the collection. The UUID is not checked against existing
// ids; a v4 collision is treated as impossible.
func (rs *RecordStore) CreateUser(ctx context.Context, in Payload) (*domain.User, error) {
	log := logger.WithContext(ctx, rs.log)

	if err := ValidateForCreate(in); err != nil {
		log.Warn("create user validation failed", zap.Error(err))
		return nil, err
	}

	age, _ := intValue(in[FieldAge])
	u := domain.User{
		ID:    uuid.New().String(),
		Name:  in[FieldName],
		Email: in[FieldEmail],
		Age:   age,
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	users := append(rs.Load(ctx), u)
	if err := rs.Save(ctx, users); err != nil {
		return nil, err
	}

	log.Info("user created", zap.String("id", u.ID), zap.Int("users", len(users)))
	return &u, nil
}

// ListUsers returns every record in stored order.
func (rs *RecordStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	users := rs.loadShared(ctx)
	logger.WithContext(ctx, rs.log).Debug("listing users", zap.Int("users", len(users)))
	return users, nil
}

// GetUser returns the record with the given id.
func (rs *RecordStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	log := logger.WithContext(ctx, rs.log)

	if err := parseID(id); err != nil {
		log.Warn("get user validation failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	users := rs.loadShared(ctx)
	i := indexOf(users, id)
	if i < 0 {
		log.Warn("user not found", zap.String("id", id))
		return nil, apperrors.ErrUserNotFound
	}

	u := users[i]
	return &u, nil
}

// UpdateUser overwrites the fields present in the payload and leaves the
// others untouched. The id never changes.
func (rs *RecordStore) UpdateUser(ctx context.Context, id string, in Payload) (*domain.User, error) {
	log := logger.WithContext(ctx, rs.log)

	if err := parseID(id); err != nil {
		log.Warn("update user validation failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if err := ValidateForUpdate(in); err != nil {
		log.Warn("update user validation failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	users := rs.Load(ctx)
	i := indexOf(users, id)
	if i < 0 {
		log.Warn("user not found", zap.String("id", id))
		return nil, apperrors.ErrUserNotFound
	}

	applyPayload(&users[i], in)
	if err := rs.Save(ctx, users); err != nil {
		return nil, err
	}

	log.Info("user updated", zap.String("id", users[i].ID))
	u := users[i]
	return &u, nil
}

// DeleteUser removes exactly the record with the given id.
func (rs *RecordStore) DeleteUser(ctx context.Context, id string) error {
	log := logger.WithContext(ctx, rs.log)

	if err := parseID(id); err != nil {
		log.Warn("delete user validation failed", zap.String("id", id), zap.Error(err))
		return err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	users := rs.Load(ctx)
	i := indexOf(users, id)
	if i < 0 {
		log.Warn("user not found", zap.String("id", id))
		return apperrors.ErrUserNotFound
	}

	deleted := users[i].ID
	users = slices.Delete(users, i, i+1)
	if err := rs.Save(ctx, users); err != nil {
		return err
	}

	log.Info("user deleted", zap.String("id", deleted), zap.Int("users", len(users)))
	return nil
}

// parseID rejects ids that are not UUIDs in any textual form uuid.Parse
// understands. It only checks syntax; lookups match the id as given.
func parseID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.ErrInvalidUUID
	}
	return nil
}

// indexOf scans users in order and returns the index of the first record
// whose id is exactly id, or -1.
func indexOf(users []domain.User, id string) int {
	for i := range users {
		if users[i].ID == id {
			return i
		}
	}
	return -1
}

// applyPayload copies the fields present in a validated payload onto u.
func applyPayload(u *domain.User, in Payload) {
	if v, ok := in[FieldName]; ok {
		u.Name = v
	}
	if v, ok := in[FieldEmail]; ok {
		u.Email = v
	}
	if v, ok := in[FieldAge]; ok {
		u.Age, _ = intValue(v)
	}
}
