package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "user-record-service/internal/domain/user"
	"user-record-service/internal/usecase/user"
	"user-record-service/pkg/logger"
)

// Response messages
const (
	MsgUserCreated = "User created successfully"
	MsgUserUpdated = "User updated successfully"
	MsgUserDeleted = "User deleted successfully"
	MsgInternal    = "Internal server error"
	MsgTooLarge    = "Request body too large"
)

// MaxBodyBytes bounds the request bodies read by the user handlers.
const MaxBodyBytes = 1 << 20

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	uc  user.Usecase
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.Usecase, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:  uc,
		log: log,
	}
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// UserResponse wraps a single record
type UserResponse struct {
	Message string       `json:"message,omitempty"`
	User    *domain.User `json:"user"`
}

// ListUsersResponse represents the HTTP response for listing users
type ListUsersResponse struct {
	Users []domain.User `json:"users"`
}

// MessageResponse carries a bare confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

// CreateUser handles POST /users
func (h *UserHandler) CreateUser(c *gin.Context) {
	ctx := c.Request.Context()

	in, err := readPayload(c)
	if err != nil {
		h.handleError(c, err)
		return
	}

	u, err := h.uc.CreateUser(ctx, in)
	if err != nil {
		h.handleError(c, err)
		return
	}

	logger.WithContext(ctx, h.log).Debug("gin CreateUser", zap.String("id", u.ID))
	c.JSON(http.StatusCreated, UserResponse{Message: MsgUserCreated, User: u})
}

// ListUsers handles GET /users
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.uc.ListUsers(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	if users == nil {
		users = []domain.User{}
	}

	c.JSON(http.StatusOK, ListUsersResponse{Users: users})
}

// GetUser handles GET /users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	u, err := h.uc.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, UserResponse{User: u})
}

// UpdateUser handles PATCH /users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	in, err := readPayload(c)
	if err != nil {
		h.handleError(c, err)
		return
	}

	u, err := h.uc.UpdateUser(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, UserResponse{Message: MsgUserUpdated, User: u})
}

// DeleteUser handles DELETE /users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.uc.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: MsgUserDeleted})
}

// readPayload decodes the body as a JSON object with numbers kept as
// json.Number. Anything that is not a single JSON object yields a nil
// payload. The only error is *http.MaxBytesError for a body over
// MaxBodyBytes.
func readPayload(c *gin.Context) (user.Payload, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, nil
	}
	if dec.More() {
		return nil, nil
	}
	return payload, nil
}

// handleError converts usecase errors to HTTP responses using the gRPC
// status each error kind carries.
func (h *UserHandler) handleError(c *gin.Context, err error) {
	log := logger.WithContext(c.Request.Context(), h.log).With(
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
	)

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		log.Warn("request body too large", zap.Int64("limit", tooLarge.Limit))
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: MsgTooLarge})
		return
	}

	st := status.Convert(err)
	switch st.Code() {
	case codes.InvalidArgument:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: st.Message()})
	case codes.NotFound:
		c.JSON(http.StatusNotFound, ErrorResponse{Error: st.Message()})
	default:
		log.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: MsgInternal})
	}
}
