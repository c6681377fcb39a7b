package infrastructure

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"user-mvi/internal/adapter/db/sqlstore"
	domain "user-mvi/internal/domain/user"
)

var seedUsers = []struct {
	email, firstName, lastName, avatar string
}{
	{"ada.lovelace@example.com", "Ada", "Lovelace", "https://i.pravatar.cc/150?u=ada"},
	{"alan.turing@example.com", "Alan", "Turing", "https://i.pravatar.cc/150?u=alan"},
	{"grace.hopper@example.com", "Grace", "Hopper", "https://i.pravatar.cc/150?u=grace"},
	{"linus.torvalds@example.com", "Linus", "Torvalds", ""},
	{"margaret.hamilton@example.com", "Margaret", "Hamilton", ""},
}

// Seed fills an empty users table with a few sample users.
func Seed(ctx context.Context, store *sqlstore.UserStore, l *zap.Logger) error {
	n, err := store.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		l.Debug("users table not empty, skipping seed", zap.Int64("count", n))
		return nil
	}

	for _, s := range seedUsers {
		u, err := domain.Create("", s.email, s.firstName, s.lastName, s.avatar)
		if err != nil {
			return fmt.Errorf("invalid seed user %s: %w", s.email, err)
		}
		if _, err := store.Create(ctx, u); err != nil {
			return err
		}
	}

	l.Info("seeded users table", zap.Int("count", len(seedUsers)))
	return nil
}
