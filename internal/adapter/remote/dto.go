package remote

import (
	"time"

	domain "user-mvi/internal/domain/user"
)

// UserBody is the request body of POST /users.
type UserBody struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar"`
}

// UserResponse is a user as returned by the service.
type UserResponse struct {
	ID        string    `json:"_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Data    []string `json:"data,omitempty"`
}

// Error codes sent by the service.
const (
	CodeInvalidID         = "invalid_id"
	CodeUserNotFound      = "user_not_found"
	CodeValidationFailed  = "validation_failed"
	CodeInvalidQuery      = "invalid_query"
	CodeRateLimitExceeded = "rate_limit_exceeded"
	CodeInternal          = "internal_error"
)

func newUserBody(u domain.User) UserBody {
	return UserBody{
		Email:     u.Email.String(),
		FirstName: u.FirstName.String(),
		LastName:  u.LastName.String(),
		Avatar:    u.Avatar,
	}
}

// toDomain validates r into a domain user.
func (r UserResponse) toDomain() (domain.User, error) {
	return domain.Create(r.ID, r.Email, r.FirstName, r.LastName, r.Avatar)
}

func toDomainUsers(rs []UserResponse) ([]domain.User, error) {
	users := make([]domain.User, 0, len(rs))
	for _, r := range rs {
		u, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}
