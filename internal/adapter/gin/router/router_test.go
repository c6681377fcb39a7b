package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"user-mvi/internal/adapter/db/sqlstore"
	"user-mvi/internal/adapter/gin/handler"
	domain "user-mvi/internal/domain/user"
	"user-mvi/pkg/logger"
)

type fakeStore struct{}

func (fakeStore) List(context.Context) ([]sqlstore.UserSchema, error) {
	return []sqlstore.UserSchema{}, nil
}

func (fakeStore) Create(context.Context, domain.User) (sqlstore.UserSchema, error) {
	return sqlstore.UserSchema{}, nil
}

func (fakeStore) Delete(context.Context, string) (sqlstore.UserSchema, error) {
	return sqlstore.UserSchema{}, sqlstore.ErrUserNotFound
}

func (fakeStore) Search(context.Context, string) ([]sqlstore.UserSchema, error) {
	return []sqlstore.UserSchema{}, nil
}

func TestSetupRouter(t *testing.T) {
	log := zaptest.NewLogger(t)
	r := SetupRouter(handler.NewUserHandler(fakeStore{}, log), nil, log)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/users", http.StatusOK},
		{http.MethodGet, "/users/search?q=jo", http.StatusOK},
		{http.MethodDelete, "/users/00000000-0000-0000-0000-000000000000", http.StatusNotFound},
		{http.MethodGet, "/missing", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.status, w.Code)
			require.NotEmpty(t, w.Header().Get(logger.RequestIDHeader))
		})
	}
}
