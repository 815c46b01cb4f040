package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"user-record-service/internal/adapter/storage"
	domain "user-record-service/internal/domain/user"
)

// Store keeps the document as one row of the store_documents table,
// through GORM. It works with any dialect GORM supports.
type Store struct {
	db   *gorm.DB    // GORM database connection
	name string      // Row key of the document
	log  *zap.Logger // Structured logger for database operations
}

// New creates a new instance of Store for the document called name.
func New(db *gorm.DB, name string, log *zap.Logger) *Store {
	return &Store{db: db, name: name, log: log}
}

// DocumentSchema represents the database schema for the store_documents table.
type DocumentSchema struct {
	Name      string    `gorm:"primaryKey;size:128"` // Document name
	Body      string    `gorm:"type:text;not null"`  // Encoded document
	UpdatedAt time.Time // Last write time, maintained by GORM
}

// TableName specifies the table name for the DocumentSchema model.
func (DocumentSchema) TableName() string {
	return "store_documents"
}

// Migrate creates or updates the store_documents table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&DocumentSchema{}); err != nil {
		return fmt.Errorf("failed to migrate store_documents: %w", err)
	}
	return nil
}

// Load reads the document row. A missing row yields an empty document.
func (s *Store) Load(ctx context.Context) (*domain.Document, error) {
	var model DocumentSchema
	if err := s.db.WithContext(ctx).Where("name = ?", s.name).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Debug("document row not found, starting empty", zap.String("name", s.name))
			return domain.NewDocument(nil), nil
		}
		s.log.Error("failed to get document from db", zap.Error(err), zap.String("name", s.name))
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return storage.DecodeDocument([]byte(model.Body), "sql:"+s.name)
}

// Save upserts the document row in a single statement.
func (s *Store) Save(ctx context.Context, doc *domain.Document) error {
	data, err := storage.EncodeDocument(doc)
	if err != nil {
		return err
	}

	model := DocumentSchema{
		Name: s.name,
		Body: string(data),
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
		}).
		Create(&model).Error
	if err != nil {
		s.log.Error("failed to save document in db", zap.Error(err), zap.String("name", s.name))
		return fmt.Errorf("failed to save document: %w", err)
	}

	s.log.Debug("document saved in db", zap.String("name", s.name), zap.Int("bytes", len(data)))
	return nil
}
