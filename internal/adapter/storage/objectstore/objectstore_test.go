package objectstore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	apperrors "user-record-service/pkg/errors"
)

// fakeS3 serves GET requests for objects held in memory.
func fakeS3(t *testing.T, objects map[string]string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusNotImplemented)
			return
		}
		body, ok := objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
				`<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setupTestStore(t *testing.T, objects map[string]string) *Store {
	srv := fakeS3(t, objects)
	client, err := NewClient(Config{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "access",
		SecretKey: "secret",
		Bucket:    "docs",
		Region:    "us-east-1",
	})
	require.NoError(t, err)
	return New(client, "docs", "users", zaptest.NewLogger(t))
}

func TestNewClient_RequiresSettings(t *testing.T) {
	_, err := NewClient(Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"})
	assert.Error(t, err)

	_, err = NewClient(Config{})
	assert.Error(t, err)

	client, err := NewClient(Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "docs"})
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestObjectName(t *testing.T) {
	assert.Equal(t, "users.json", ObjectName("users"))
}

func TestStore_Load_MissingObject(t *testing.T) {
	store := setupTestStore(t, map[string]string{})

	doc, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, doc.Users)
}

func TestStore_Load_Existing(t *testing.T) {
	store := setupTestStore(t, map[string]string{
		"/docs/users.json": `{"users": [{"id": "a1", "name": "Ann", "email": "a@x.com", "age": 30}]}`,
	})

	doc, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.Users, 1)
	assert.Equal(t, "Ann", doc.Users[0].Name)
	assert.Equal(t, 30, doc.Users[0].Age)
}

func TestStore_Load_Corrupt(t *testing.T) {
	store := setupTestStore(t, map[string]string{
		"/docs/users.json": `{"users": 42}`,
	})

	_, err := store.Load(context.Background())

	var corrupt *apperrors.CorruptDocumentError
	require.True(t, errors.As(err, &corrupt))
	assert.Equal(t, "s3://docs/users.json", corrupt.Source)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: http.StatusNotFound}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}))
	assert.False(t, isNotFound(errors.New("connection refused")))
}
