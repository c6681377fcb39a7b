package stream

import (
	"context"
	"maps"
	"slices"
	"sync"

	"go.uber.org/zap"

	"user-mvi/internal/adapter/remote"
	domain "user-mvi/internal/domain/user"
	usecase "user-mvi/internal/usecase/user"
)

// Invalidator is implemented by APIs that cache reads.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// change is a mutation pushed to every open users stream.
type change interface {
	apply(users []domain.User) []domain.User
}

type (
	refreshed struct{ users []domain.User }
	added     struct{ user domain.User }
	removed   struct{ id string }
)

func (c refreshed) apply([]domain.User) []domain.User {
	return slices.Clone(c.users)
}

// apply replaces a user with the same id, so a change racing the initial
// fetch is not applied twice.
func (c added) apply(users []domain.User) []domain.User {
	out := slices.Clone(users)
	if i := slices.IndexFunc(out, func(u domain.User) bool { return u.ID == c.user.ID }); i >= 0 {
		out[i] = c.user
		return out
	}
	return append(out, c.user)
}

func (c removed) apply(users []domain.User) []domain.User {
	return slices.DeleteFunc(slices.Clone(users), func(u domain.User) bool { return u.ID == c.id })
}

// subscriber buffers the changes of one open stream. push never blocks, so
// a stream whose reader stalls holds back no one else.
type subscriber struct {
	mu      sync.Mutex
	pending []change
	ready   chan struct{}
	done    chan struct{}
}

func (s *subscriber) push(c change) {
	select {
	case <-s.done:
		return
	default:
	}

	s.mu.Lock()
	s.pending = append(s.pending, c)
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// drain takes every change pushed since the last drain, oldest first.
func (s *subscriber) drain() []change {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}

// UserRepository implements usecase.Repository on top of the remote API.
// Every stream returned by Users reflects the writes made through the
// repository without re-fetching.
type UserRepository struct {
	api remote.API
	log *zap.Logger

	mu   sync.Mutex
	subs map[*subscriber]struct{}

	// order serializes broadcasts so every stream sees the same sequence
	order sync.Mutex
}

var _ usecase.Repository = (*UserRepository)(nil)

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(api remote.API, log *zap.Logger) *UserRepository {
	return &UserRepository{
		api:  api,
		log:  log,
		subs: make(map[*subscriber]struct{}),
	}
}

// Users fetches the users and then pushes the updated list after every
// change; changes arriving while a push is pending are folded into the next
// one. The stream is closed when ctx ends or the initial fetch fails,
// after sending the error.
func (r *UserRepository) Users(ctx context.Context) <-chan usecase.UsersResult {
	out := make(chan usecase.UsersResult)
	sub := r.subscribe()

	go func() {
		defer close(out)
		defer r.unsubscribe(sub)

		send := func(res usecase.UsersResult) bool {
			select {
			case out <- res:
				return true
			case <-ctx.Done():
				return false
			}
		}

		users, err := r.api.GetUsers(ctx)
		if err != nil {
			r.log.Warn("failed to fetch users", zap.Error(err))
			send(usecase.UsersResult{Err: domain.AsError(err)})
			return
		}
		if !send(usecase.UsersResult{Users: users}) {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.ready:
				for _, c := range sub.drain() {
					users = c.apply(users)
				}
				if !send(usecase.UsersResult{Users: users}) {
					return
				}
			}
		}
	}()

	return out
}

// Refresh re-fetches the users and pushes them to every stream.
func (r *UserRepository) Refresh(ctx context.Context) error {
	if inv, ok := r.api.(Invalidator); ok {
		if err := inv.Invalidate(ctx); err != nil {
			r.log.Warn("failed to invalidate cached users", zap.Error(err))
		}
	}

	users, err := r.api.GetUsers(ctx)
	if err != nil {
		return err
	}

	r.broadcast(refreshed{users: users})
	return nil
}

// Remove deletes u remotely and drops it from every stream.
func (r *UserRepository) Remove(ctx context.Context, u domain.User) error {
	if _, err := r.api.RemoveUser(ctx, u.ID); err != nil {
		return err
	}

	r.broadcast(removed{id: u.ID})
	return nil
}

// Add creates u remotely and appends the created user to every stream.
func (r *UserRepository) Add(ctx context.Context, u domain.User) error {
	created, err := r.api.AddUser(ctx, u)
	if err != nil {
		return err
	}

	r.broadcast(added{user: created})
	return nil
}

// Search delegates to the remote API.
func (r *UserRepository) Search(ctx context.Context, query string) ([]domain.User, error) {
	return r.api.Search(ctx, query)
}

func (r *UserRepository) subscribe() *subscriber {
	sub := &subscriber{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}

	r.mu.Lock()
	r.subs[sub] = struct{}{}
	r.mu.Unlock()
	return sub
}

func (r *UserRepository) unsubscribe(sub *subscriber) {
	close(sub.done)

	r.mu.Lock()
	delete(r.subs, sub)
	r.mu.Unlock()
}

// broadcast hands c to every open stream. The subscriber set is copied under
// the lock and nothing blocks on a stream's reader.
func (r *UserRepository) broadcast(c change) {
	r.order.Lock()
	defer r.order.Unlock()

	r.mu.Lock()
	subs := slices.Collect(maps.Keys(r.subs))
	r.mu.Unlock()

	r.log.Debug("broadcasting users change", zap.Int("subscribers", len(subs)))
	for _, sub := range subs {
		sub.push(c)
	}
}
