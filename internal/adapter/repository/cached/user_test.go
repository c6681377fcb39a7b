package cached

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"user-mvi/internal/adapter/cache"
	domain "user-mvi/internal/domain/user"
)

// MockAPI is a mock implementation of the remote.API interface
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) GetUsers(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockAPI) AddUser(ctx context.Context, u domain.User) (domain.User, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockAPI) RemoveUser(ctx context.Context, id string) (domain.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockAPI) Search(ctx context.Context, query string) ([]domain.User, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func setupTestAPI(t *testing.T) (*CachedUserAPI, *MockAPI, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := zaptest.NewLogger(t)
	mockAPI := new(MockAPI)
	api := NewCachedUserAPI(mockAPI, cache.NewRedisUsersCache(client, time.Minute, log), log)
	return api, mockAPI, mr
}

func mustUser(t *testing.T, id string) domain.User {
	t.Helper()
	u, err := domain.Create(id, "john@example.com", "John", "Doe", "")
	require.NoError(t, err)
	return u
}

func TestGetUsers_CacheAside(t *testing.T) {
	api, mockAPI, mr := setupTestAPI(t)
	ctx := context.Background()
	users := []domain.User{mustUser(t, "1")}
	mockAPI.On("GetUsers", mock.Anything).Return(users, nil).Once()

	got, err := api.GetUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, users, got)
	assert.True(t, mr.Exists(cache.ListKey))

	got, err = api.GetUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, users, got)
	mockAPI.AssertNumberOfCalls(t, "GetUsers", 1)
}

func TestGetUsers_ErrorIsNotCached(t *testing.T) {
	api, mockAPI, mr := setupTestAPI(t)
	netErr := domain.NewNetworkError(errors.New("refused"))
	mockAPI.On("GetUsers", mock.Anything).Return(nil, netErr).Once()

	_, err := api.GetUsers(context.Background())

	assert.Equal(t, netErr, err)
	assert.False(t, mr.Exists(cache.ListKey))
}

func TestGetUsers_SingleFlight(t *testing.T) {
	api, mockAPI, _ := setupTestAPI(t)
	release := make(chan time.Time)
	mockAPI.On("GetUsers", mock.Anything).Return([]domain.User{mustUser(t, "1")}, nil).WaitUntil(release).Once()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			users, err := api.GetUsers(context.Background())
			assert.NoError(t, err)
			assert.Len(t, users, 1)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	mockAPI.AssertNumberOfCalls(t, "GetUsers", 1)
}

func TestGetUsers_SharedFetchOutlivesCanceledCaller(t *testing.T) {
	api, mockAPI, mr := setupTestAPI(t)
	started, release := make(chan struct{}), make(chan struct{})
	var fetchCtx context.Context
	mockAPI.On("GetUsers", mock.Anything).Return([]domain.User{mustUser(t, "1")}, nil).Run(func(args mock.Arguments) {
		fetchCtx = args.Get(0).(context.Context)
		close(started)
		<-release
	}).Once()

	firstCtx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := api.GetUsers(firstCtx)
		first <- err
	}()
	<-started

	second := make(chan []domain.User, 1)
	go func() {
		users, err := api.GetUsers(context.Background())
		assert.NoError(t, err)
		second <- users
	}()
	time.Sleep(20 * time.Millisecond)

	// the caller that started the flight gives up
	cancel()
	select {
	case err := <-first:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("canceled caller kept waiting")
	}
	assert.NoError(t, fetchCtx.Err(), "fetch is detached from the first caller")

	close(release)
	select {
	case users := <-second:
		assert.Len(t, users, 1)
	case <-time.After(time.Second):
		t.Fatal("joined caller never got the users")
	}
	assert.Eventually(t, func() bool { return mr.Exists(cache.ListKey) }, time.Second, time.Millisecond)
	mockAPI.AssertNumberOfCalls(t, "GetUsers", 1)
}

func TestSearch_CachedPerQuery(t *testing.T) {
	api, mockAPI, _ := setupTestAPI(t)
	ctx := context.Background()
	mockAPI.On("Search", mock.Anything, "jo").Return([]domain.User{mustUser(t, "1")}, nil).Once()
	mockAPI.On("Search", mock.Anything, "ja").Return([]domain.User{}, nil).Once()

	for range 2 {
		_, err := api.Search(ctx, "jo")
		require.NoError(t, err)
		users, err := api.Search(ctx, "ja")
		require.NoError(t, err)
		assert.Empty(t, users)
	}

	mockAPI.AssertExpectations(t)
}

func TestWrites_InvalidateCache(t *testing.T) {
	api, mockAPI, mr := setupTestAPI(t)
	ctx := context.Background()
	u := mustUser(t, "1")

	mockAPI.On("GetUsers", mock.Anything).Return([]domain.User{u}, nil).Twice()
	mockAPI.On("Search", mock.Anything, "jo").Return([]domain.User{u}, nil).Once()
	mockAPI.On("RemoveUser", mock.Anything, "1").Return(u, nil).Once()

	_, err := api.GetUsers(ctx)
	require.NoError(t, err)
	_, err = api.Search(ctx, "jo")
	require.NoError(t, err)

	removed, err := api.RemoveUser(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, u, removed)
	assert.False(t, mr.Exists(cache.ListKey))
	assert.False(t, mr.Exists(cache.SearchKey("jo")))

	_, err = api.GetUsers(ctx)
	require.NoError(t, err)
	mockAPI.AssertExpectations(t)
}

func TestAddUser_FailureKeepsCache(t *testing.T) {
	api, mockAPI, mr := setupTestAPI(t)
	ctx := context.Background()
	u := mustUser(t, "1")

	mockAPI.On("GetUsers", mock.Anything).Return([]domain.User{u}, nil).Once()
	mockAPI.On("AddUser", mock.Anything, u).Return(domain.User{}, domain.NewServerError(500, "")).Once()

	_, err := api.GetUsers(ctx)
	require.NoError(t, err)

	_, err = api.AddUser(ctx, u)
	assert.Error(t, err)
	assert.True(t, mr.Exists(cache.ListKey))
}

func TestCacheDown_FallsBackToRemote(t *testing.T) {
	api, mockAPI, mr := setupTestAPI(t)
	mr.Close()
	mockAPI.On("GetUsers", mock.Anything).Return([]domain.User{mustUser(t, "1")}, nil).Once()

	users, err := api.GetUsers(context.Background())

	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestNilCache(t *testing.T) {
	mockAPI := new(MockAPI)
	api := NewCachedUserAPI(mockAPI, nil, zaptest.NewLogger(t))
	mockAPI.On("GetUsers", mock.Anything).Return([]domain.User{}, nil).Twice()

	for range 2 {
		_, err := api.GetUsers(context.Background())
		require.NoError(t, err)
	}
	assert.NoError(t, api.Invalidate(context.Background()))
	mockAPI.AssertExpectations(t)
}
