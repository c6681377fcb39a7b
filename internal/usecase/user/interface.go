package user

import (
	"context"

	domain "user-mvi/internal/domain/user"
)

// UsersResult is one element of the live users stream: either a snapshot of
// all users or the error that ended the stream.
type UsersResult struct {
	Users []domain.User
	Err   domain.Error
}

// Repository defines the remote user data source consumed by the use cases.
// Every returned error is a domain.Error.
type Repository interface {
	// Users streams snapshots of all users until ctx is done or the stream fails.
	// The channel is closed when the stream ends.
	Users(ctx context.Context) <-chan UsersResult
	// Refresh re-fetches the list and pushes it to open streams.
	Refresh(ctx context.Context) error
	Remove(ctx context.Context, u domain.User) error
	Add(ctx context.Context, u domain.User) error
	Search(ctx context.Context, query string) ([]domain.User, error)
}
