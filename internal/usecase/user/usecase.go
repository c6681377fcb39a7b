package user

import (
	"context"
	"strings"

	"go.uber.org/zap"

	domain "user-mvi/internal/domain/user"
)

// Usecase implements the user operations the screens depend on.
// It keeps the screens independent of the repository implementation and
// guarantees that every failure leaving it is a domain.Error.
type Usecase struct {
	repo Repository  // Repository for remote data access
	log  *zap.Logger // Logger for structured logging
}

// New creates a new instance of Usecase with the provided repository and logger.
func New(r Repository, log *zap.Logger) *Usecase {
	return &Usecase{repo: r, log: log}
}

// GetUsers opens the live users stream.
func (uc *Usecase) GetUsers(ctx context.Context) <-chan UsersResult {
	uc.log.Debug("subscribing to users")
	return uc.repo.Users(ctx)
}

// RefreshGetUsers asks the repository to re-fetch the users list.
func (uc *Usecase) RefreshGetUsers(ctx context.Context) domain.Error {
	uc.log.Info("refreshing users")

	if err := uc.repo.Refresh(ctx); err != nil {
		uc.log.Warn("failed to refresh users", zap.Error(err))
		return domain.AsError(err)
	}
	return nil
}

// RemoveUser deletes u. Users without an ID are rejected before any remote call.
func (uc *Usecase) RemoveUser(ctx context.Context, u domain.User) domain.Error {
	uc.log.Info("removing user", zap.String("id", u.ID))

	if strings.TrimSpace(u.ID) == "" {
		uc.log.Warn("remove user validation failed", zap.String("id", u.ID), zap.String("reason", "invalid id"))
		return domain.NewInvalidIDError(u.ID)
	}

	if err := uc.repo.Remove(ctx, u); err != nil {
		uc.log.Warn("failed to remove user", zap.String("id", u.ID), zap.Error(err))
		return domain.AsError(err)
	}
	return nil
}

// AddUser creates u remotely.
func (uc *Usecase) AddUser(ctx context.Context, u domain.User) domain.Error {
	uc.log.Info("adding user", zap.String("email", u.Email.String()))

	if err := uc.repo.Add(ctx, u); err != nil {
		uc.log.Warn("failed to add user", zap.String("email", u.Email.String()), zap.Error(err))
		return domain.AsError(err)
	}
	return nil
}

// Search returns the users matching query.
func (uc *Usecase) Search(ctx context.Context, query string) ([]domain.User, domain.Error) {
	uc.log.Info("searching users", zap.String("query", query))

	users, err := uc.repo.Search(ctx, query)
	if err != nil {
		uc.log.Warn("failed to search users", zap.String("query", query), zap.Error(err))
		return nil, domain.AsError(err)
	}
	return users, nil
}
