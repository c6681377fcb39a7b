package cached

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"user-mvi/internal/adapter/cache"
	"user-mvi/internal/adapter/remote"
	domain "user-mvi/internal/domain/user"
)

// CachedUserAPI implements remote.API with caching support.
// It wraps the remote service and caches list and search reads; any
// successful write clears the cache.
type CachedUserAPI struct {
	api   remote.API
	cache cache.UsersCache
	log   *zap.Logger
	group singleflight.Group
}

// NewCachedUserAPI creates a new instance of CachedUserAPI.
func NewCachedUserAPI(api remote.API, cache cache.UsersCache, log *zap.Logger) *CachedUserAPI {
	return &CachedUserAPI{
		api:   api,
		cache: cache,
		log:   log,
	}
}

// GetUsers retrieves all users using Cache-Aside pattern.
func (r *CachedUserAPI) GetUsers(ctx context.Context) ([]domain.User, error) {
	return r.read(ctx, cache.ListKey, r.api.GetUsers)
}

// Search retrieves the users matching query using Cache-Aside pattern.
func (r *CachedUserAPI) Search(ctx context.Context, query string) ([]domain.User, error) {
	return r.read(ctx, cache.SearchKey(query), func(ctx context.Context) ([]domain.User, error) {
		return r.api.Search(ctx, query)
	})
}

// AddUser creates the user remotely and invalidates the cache.
func (r *CachedUserAPI) AddUser(ctx context.Context, u domain.User) (domain.User, error) {
	created, err := r.api.AddUser(ctx, u)
	if err != nil {
		return domain.User{}, err
	}

	// Invalidate cache after successful creation
	r.invalidate(ctx, "add")
	return created, nil
}

// RemoveUser deletes the user remotely and invalidates the cache.
func (r *CachedUserAPI) RemoveUser(ctx context.Context, id string) (domain.User, error) {
	removed, err := r.api.RemoveUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}

	// Invalidate cache after successful deletion
	r.invalidate(ctx, "remove")
	return removed, nil
}

// Invalidate drops every cached read so the next one hits the service.
func (r *CachedUserAPI) Invalidate(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Clear(ctx)
}

func (r *CachedUserAPI) invalidate(ctx context.Context, op string) {
	if err := r.Invalidate(ctx); err != nil {
		r.log.Warn("failed to invalidate cache", zap.String("op", op), zap.Error(err))
	}
}

func (r *CachedUserAPI) read(ctx context.Context, key string, fetch func(context.Context) ([]domain.User, error)) ([]domain.User, error) {
	// Try to get from cache first
	if r.cache != nil {
		users, ok, err := r.cache.Get(ctx, key)
		if err != nil {
			r.log.Warn("cache get error, falling back to remote", zap.String("key", key), zap.Error(err))
		} else if ok {
			r.log.Debug("users retrieved from cache", zap.String("key", key))
			return users, nil
		}
	}

	// Cache miss or cache disabled - use single-flight to prevent stampede.
	// The flight outlives any one caller, so it runs detached and each
	// caller waits on its own ctx; the client timeout bounds the fetch.
	flight := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		// Double-check cache in case another request populated it while we were waiting
		if r.cache != nil {
			users, ok, err := r.cache.Get(flight, key)
			if err == nil && ok {
				r.log.Debug("users retrieved from cache after single-flight wait", zap.String("key", key))
				return users, nil
			}
		}

		// Only one request hits the remote service
		users, err := fetch(flight)
		if err != nil {
			return nil, err
		}

		// Store in cache for future requests
		if r.cache != nil {
			if err := r.cache.Set(flight, key, users); err != nil {
				r.log.Warn("failed to cache users", zap.String("key", key), zap.Error(err))
			}
		}

		return users, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.User), nil
	}
}
