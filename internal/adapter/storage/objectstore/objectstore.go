package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"user-record-service/internal/adapter/storage"
	domain "user-record-service/internal/domain/user"
)

// Config holds the S3-compatible endpoint settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Store keeps the document as one object in an S3-compatible bucket.
type Store struct {
	client *minio.Client
	bucket string
	object string
	log    *zap.Logger
}

// NewClient creates a minio client for cfg. No request is made until the
// store is used.
func NewClient(cfg Config) (*minio.Client, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, errors.New("object store requires endpoint, access key, secret key and bucket")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Region: cfg.Region,
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}
	return mc, nil
}

// New creates an object-backed document store. The document is kept at
// name+".json" in bucket.
func New(client *minio.Client, bucket, name string, log *zap.Logger) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		object: ObjectName(name),
		log:    log,
	}
}

// ObjectName returns the object key used for the document called name.
func ObjectName(name string) string {
	return name + ".json"
}

// Load downloads the document object. A missing object yields an empty
// document.
func (s *Store) Load(ctx context.Context) (*domain.Document, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s/%s: %w", s.bucket, s.object, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			s.log.Debug("document object not found, starting empty",
				zap.String("bucket", s.bucket), zap.String("object", s.object))
			return domain.NewDocument(nil), nil
		}
		return nil, fmt.Errorf("failed to read object %s/%s: %w", s.bucket, s.object, err)
	}

	return storage.DecodeDocument(data, "s3://"+s.bucket+"/"+s.object)
}

// Save uploads the document as a single PutObject, which replaces the
// previous object in one step.
func (s *Store) Save(ctx context.Context, doc *domain.Document) error {
	data, err := storage.EncodeDocument(doc)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, s.bucket, s.object, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: storage.ContentType})
	if err != nil {
		s.log.Error("failed to put document object",
			zap.String("bucket", s.bucket), zap.String("object", s.object), zap.Error(err))
		return fmt.Errorf("failed to put object %s/%s: %w", s.bucket, s.object, err)
	}

	s.log.Debug("document object uploaded",
		zap.String("bucket", s.bucket), zap.String("object", s.object), zap.Int("bytes", len(data)))
	return nil
}

// isNotFound reports whether err means the object is absent. A missing
// bucket is a configuration fault and is not treated as absence.
func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchBucket" {
		return false
	}
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
