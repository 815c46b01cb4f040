package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"user-record-service/internal/adapter/gin/handler"
	"user-record-service/internal/adapter/storage/filestore"
	usecase "user-record-service/internal/usecase/user"
)

type testServer struct {
	t      *testing.T
	engine *gin.Engine
}

func newTestServer(t *testing.T, path string) *testServer {
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t)

	rs := usecase.New(filestore.New(path, log), log)
	engine := SetupRouter(
		handler.NewUserHandler(rs, log),
		handler.NewHealthHandler("user-record-service", "file", rs),
		nil,
		log,
	)
	return &testServer{t: t, engine: engine}
}

func (s *testServer) do(method, target, body string) (int, map[string]any) {
	s.t.Helper()

	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func TestUserLifecycle(t *testing.T) {
	s := newTestServer(t, filepath.Join(t.TempDir(), "users.json"))

	code, body := s.do(http.MethodPost, "/users", `{"name":"Ann","email":"a@x.com","age":30}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "User created successfully", body["message"])
	created := body["user"].(map[string]any)
	id := created["id"].(string)
	assert.Len(t, id, 36)
	assert.Equal(t, "Ann", created["name"])
	assert.Equal(t, float64(30), created["age"])

	code, body = s.do(http.MethodGet, "/users/"+id, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, created, body["user"])

	code, body = s.do(http.MethodPatch, "/users/"+id, `{"age":31}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "User updated successfully", body["message"])
	updated := body["user"].(map[string]any)
	assert.Equal(t, float64(31), updated["age"])
	assert.Equal(t, "Ann", updated["name"])
	assert.Equal(t, id, updated["id"])

	code, body = s.do(http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{updated}, body["users"])

	code, body = s.do(http.MethodDelete, "/users/"+id, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"message": "User deleted successfully"}, body)

	code, body = s.do(http.MethodGet, "/users/"+id, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, map[string]any{"error": "User not found"}, body)

	code, _ = s.do(http.MethodDelete, "/users/"+id, "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestValidationResponses(t *testing.T) {
	s := newTestServer(t, filepath.Join(t.TempDir(), "users.json"))

	tests := []struct {
		method string
		target string
		body   string
		want   string
	}{
		{http.MethodPost, "/users", `{"name":"Ann","email":"a@x.com"}`, "Missing 'age' field"},
		{http.MethodPost, "/users", `{"email":"a@x.com","age":1}`, "Missing 'name' field"},
		{http.MethodPost, "/users", `{"name":"Ann","email":"a@x.com","age":"30"}`, "Age must be an integer"},
		{http.MethodPost, "/users", `{"name":"Ann","email":"a@x.com","age":30.5}`, "Age must be an integer"},
		{http.MethodPost, "/users", ``, "Request body is required"},
		{http.MethodPost, "/users", `not json`, "Request body is required"},
		{http.MethodGet, "/users/123", ``, "Invalid UUID format"},
		{http.MethodPatch, "/users/123", `{"name":"X"}`, "Invalid UUID format"},
		{http.MethodDelete, "/users/123", ``, "Invalid UUID format"},
		{http.MethodPatch, "/users/5c1f6b0e-8a47-4e0b-9d0c-1c3e5a7b9d11", `{}`, "Request body is required"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target+" "+tt.want, func(t *testing.T) {
			code, body := s.do(tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, map[string]any{"error": tt.want}, body)
		})
	}

	code, body := s.do(http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{}, body["users"])
}

func TestPersistenceAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")

	first := newTestServer(t, path)
	code, body := first.do(http.MethodPost, "/users", `{"name":"Ann","email":"a@x.com","age":30}`)
	require.Equal(t, http.StatusCreated, code)
	created := body["user"]

	second := newTestServer(t, path)
	code, body = second.do(http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{created}, body["users"])
}

func TestHealthReportsCorruptLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	s := newTestServer(t, path)

	code, body := s.do(http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{}, body["users"])

	code, body = s.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "file", body["storage_backend"])
	assert.Equal(t, float64(1), body["corrupt_loads"])
}
