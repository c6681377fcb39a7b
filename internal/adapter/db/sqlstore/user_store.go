package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	domain "user-mvi/internal/domain/user"
	"user-mvi/pkg/logger"
	"user-mvi/pkg/security"
)

// ErrUserNotFound is returned when no user has the requested id.
var ErrUserNotFound = errors.New("user not found")

// UserStore persists the users served by the development service using GORM.
// It works with any GORM dialect; sqlite and postgres are wired in.
type UserStore struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserStore creates a new instance of UserStore.
func NewUserStore(db *gorm.DB, log *zap.Logger) *UserStore {
	return &UserStore{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID        string    `gorm:"primaryKey;size:36"` // UUID assigned on creation
	Email     string    `gorm:"not null;index"`     // User's email address (required)
	FirstName string    `gorm:"not null"`           // User's first name (required)
	LastName  string    `gorm:"not null"`           // User's last name (required)
	Avatar    string    // Avatar image URI, possibly empty
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// Store operations, logged with every query they run.
const (
	opMigrate = "users.migrate"
	opCreate  = "users.create"
	opDelete  = "users.delete"
	opList    = "users.list"
	opSearch  = "users.search"
	opCount   = "users.count"
)

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

// Migrate creates or updates the users table.
func (s *UserStore) Migrate(ctx context.Context) error {
	if err := s.conn(ctx, opMigrate).AutoMigrate(&UserSchema{}); err != nil {
		return fmt.Errorf("failed to migrate users table: %w", err)
	}
	return nil
}

// Create inserts u with a new id and returns the stored row.
func (s *UserStore) Create(ctx context.Context, u domain.User) (UserSchema, error) {
	model := UserSchema{
		ID:        uuid.NewString(),
		Email:     u.Email.String(),
		FirstName: u.FirstName.String(),
		LastName:  u.LastName.String(),
		Avatar:    u.Avatar,
	}

	if err := s.conn(ctx, opCreate).Create(&model).Error; err != nil {
		s.log.Error("failed to create user in db", zap.Error(err), zap.String("email", model.Email))
		return UserSchema{}, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("user created in db", zap.String("id", model.ID))
	return model, nil
}

// Delete removes the user with id and returns the removed row.
func (s *UserStore) Delete(ctx context.Context, id string) (UserSchema, error) {
	var model UserSchema
	err := s.conn(ctx, opDelete).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&UserSchema{}, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("user not found", zap.String("id", id))
			return UserSchema{}, fmt.Errorf("%w: id=%s", ErrUserNotFound, id)
		}
		s.log.Error("failed to delete user in db", zap.Error(err), zap.String("id", id))
		return UserSchema{}, fmt.Errorf("failed to delete user: %w", err)
	}

	s.log.Info("user deleted in db", zap.String("id", id))
	return model, nil
}

// List returns every user, oldest first.
func (s *UserStore) List(ctx context.Context) ([]UserSchema, error) {
	models := []UserSchema{}
	if err := s.conn(ctx, opList).Order("created_at, id").Find(&models).Error; err != nil {
		s.log.Error("failed to list users from db", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return models, nil
}

// Search returns the users whose email or names contain query, ignoring case.
// The query is validated with security.ValidateSearchQuery; an empty query
// matches every user.
func (s *UserStore) Search(ctx context.Context, query string) ([]UserSchema, error) {
	q, err := security.ValidateSearchQuery(query)
	if err != nil {
		s.log.Warn("rejected search query", zap.String("query", query), zap.Error(err))
		return nil, fmt.Errorf("invalid search query: %w", err)
	}

	pattern := "%" + security.SanitizeSearchString(q) + "%"
	cond := "LOWER(email) LIKE LOWER(?) ESCAPE '" + security.LikeEscape + "'" +
		" OR LOWER(first_name) LIKE LOWER(?) ESCAPE '" + security.LikeEscape + "'" +
		" OR LOWER(last_name) LIKE LOWER(?) ESCAPE '" + security.LikeEscape + "'"

	models := []UserSchema{}
	if err := s.conn(ctx, opSearch).Where(cond, pattern, pattern, pattern).Order("created_at, id").Find(&models).Error; err != nil {
		s.log.Error("failed to search users in db", zap.Error(err), zap.String("query", q))
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	return models, nil
}

// Count returns the number of stored users.
func (s *UserStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.conn(ctx, opCount).Model(&UserSchema{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// conn scopes a session to ctx, naming op for the query log.
func (s *UserStore) conn(ctx context.Context, op string) *gorm.DB {
	return s.db.WithContext(logger.ContextWithStoreOp(ctx, op))
}
