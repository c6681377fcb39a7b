package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"user-mvi/internal/adapter/db/sqlstore"
	domain "user-mvi/internal/domain/user"
	"user-mvi/pkg/logger"
	"user-mvi/pkg/security"
)

// UserStore is the persistence the handler serves users from.
type UserStore interface {
	List(ctx context.Context) ([]sqlstore.UserSchema, error)
	Create(ctx context.Context, u domain.User) (sqlstore.UserSchema, error)
	Delete(ctx context.Context, id string) (sqlstore.UserSchema, error)
	Search(ctx context.Context, query string) ([]sqlstore.UserSchema, error)
}

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	store UserStore
	log   *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(store UserStore, log *zap.Logger) *UserHandler {
	return &UserHandler{
		store: store,
		log:   log,
	}
}

// CreateUserRequest represents the HTTP request body for creating a user.
// Field rules are checked by domain validation so that every violation is reported.
type CreateUserRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar"`
}

// UserResponse represents the HTTP response for user data
type UserResponse struct {
	ID        string    `json:"_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Data    []string `json:"data,omitempty"`
}

func newUserResponse(m sqlstore.UserSchema) UserResponse {
	return UserResponse{
		ID:        m.ID,
		Email:     m.Email,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Avatar:    m.Avatar,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func newUserResponses(ms []sqlstore.UserSchema) []UserResponse {
	out := make([]UserResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, newUserResponse(m))
	}
	return out
}

// ListUsers handles GET /users
func (h *UserHandler) ListUsers(c *gin.Context) {
	rows, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger(c).Error("Gin ListUsers failed", zap.Error(err))
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, newUserResponses(rows))
}

// CreateUser handles POST /users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger(c).Warn("Invalid create user request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_failed",
			Message: err.Error(),
		})
		return
	}

	h.logger(c).Info("Gin CreateUser request", zap.String("email", req.Email))

	u, err := domain.Create("", req.Email, req.FirstName, req.LastName, req.Avatar)
	if err != nil {
		h.handleError(c, err)
		return
	}

	row, err := h.store.Create(c.Request.Context(), u)
	if err != nil {
		h.logger(c).Error("Gin CreateUser failed", zap.Error(err))
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newUserResponse(row))
}

// DeleteUser handles DELETE /users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		h.logger(c).Warn("Invalid user ID", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "User ID must be a valid UUID",
		})
		return
	}

	h.logger(c).Info("Gin DeleteUser request", zap.String("id", id))

	row, err := h.store.Delete(c.Request.Context(), id)
	if err != nil {
		h.logger(c).Warn("Gin DeleteUser failed", zap.String("id", id), zap.Error(err))
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(row))
}

// SearchUsers handles GET /users/search?q=
func (h *UserHandler) SearchUsers(c *gin.Context) {
	query := c.Query("q")
	h.logger(c).Info("Gin SearchUsers request", zap.String("query", query))

	rows, err := h.store.Search(c.Request.Context(), query)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, newUserResponses(rows))
}

func (h *UserHandler) logger(c *gin.Context) *zap.Logger {
	return logger.WithContext(c.Request.Context(), h.log)
}

// handleError converts store and validation errors to HTTP responses
func (h *UserHandler) handleError(c *gin.Context, err error) {
	var verrs domain.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation_failed",
			Message: verrs.Error(),
			Data:    verrs.Codes(),
		})
	case errors.Is(err, sqlstore.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "user_not_found",
			Message: err.Error(),
		})
	case errors.Is(err, security.ErrQueryInvalid), errors.Is(err, security.ErrQueryTooLong):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_query",
			Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}
