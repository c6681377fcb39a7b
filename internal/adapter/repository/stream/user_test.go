package stream

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domain "user-mvi/internal/domain/user"
	usecase "user-mvi/internal/usecase/user"
)

const waitFor = 2 * time.Second

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

// MockCachingAPI also implements Invalidator
type MockCachingAPI struct {
	MockAPI
}

func (m *MockCachingAPI) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func setupTestRepository(t *testing.T) (*UserRepository, *MockAPI) {
	mockAPI := new(MockAPI)
	return NewUserRepository(mockAPI, zaptest.NewLogger(t)), mockAPI
}

func mustUser(t *testing.T, id string) domain.User {
	t.Helper()
	u, err := domain.Create(id, id+"@example.com", "First"+id, "Last"+id, "")
	require.NoError(t, err)
	return u
}

func next(t *testing.T, ch <-chan usecase.UsersResult) usecase.UsersResult {
	t.Helper()
	select {
	case r, ok := <-ch:
		require.True(t, ok, "stream closed")
		return r
	case <-time.After(waitFor):
		t.Fatal("no users pushed")
		return usecase.UsersResult{}
	}
}

func ids(users []domain.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}

func TestUsers_PushesWrites(t *testing.T) {
	repo, mockAPI := setupTestRepository(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, b, c := mustUser(t, "a"), mustUser(t, "b"), mustUser(t, "c")
	mockAPI.On("GetUsers", mock.Anything).Return([]domain.User{a, b}, nil).Once()
	mockAPI.On("AddUser", mock.Anything, mock.Anything).Return(c, nil).Once()
	mockAPI.On("RemoveUser", mock.Anything, "a").Return(a, nil).Once()

	stream := repo.Users(ctx)
	assert.Equal(t, []string{"a", "b"}, ids(next(t, stream).Users))

	require.NoError(t, repo.Add(ctx, c))
	assert.Equal(t, []string{"a", "b", "c"}, ids(next(t, stream).Users))

	require.NoError(t, repo.Remove(ctx, a))
	assert.Equal(t, []string{"b", "c"}, ids(next(t, stream).Users))

	mockAPI.AssertExpectations(t)
}

func TestUsers_RefreshReplacesList(t *testing.T) {
	repo, mockAPI := setupTestRepository(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mockAPI.On("GetUsers", mock.Anything).Return([]domain.User{mustUser(t, "a")}, nil).Once()
	mockAPI.On("GetUsers", mock.Anything).Return([]domain.User{mustUser(t, "x"), mustUser(t, "y")}, nil).Once()

	stream := repo.Users(ctx)
	assert.Equal(t, []string{"a"}, ids(next(t, stream).Users))

	require.NoError(t, repo.Refresh(ctx))
	assert.Equal(t, []string{"x", "y"}, ids(next(t, stream).Users))
}

func TestUsers_FailedWriteIsNotPushed(t *testing.T) {
	repo, mockAPI := setupTestRepository(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := mustUser(t, "a")
	nf := domain.NewNotFoundError("a")
	mockAPI.On("GetUsers", mock.Anything).Return([]domain.User{a}, nil).Once()
	mockAPI.On("RemoveUser", mock.Anything, "a").Return(domain.User{}, nf).Once()

	stream := repo.Users(ctx)
	next(t, stream)

	err := repo.Remove(ctx, a)
	assert.Equal(t, nf, err)

	select {
	case r := <-stream:
		t.Fatalf("unexpected push: %v", r)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestUsers_InitialErrorClosesStream(t *testing.T) {
	repo, mockAPI := setupTestRepository(t)
	netErr := domain.NewNetworkError(nil)
	mockAPI.On("GetUsers", mock.Anything).Return(nil, netErr).Once()

	stream := repo.Users(context.Background())

	r := next(t, stream)
	assert.Equal(t, netErr, r.Err)
	_, ok := <-stream
	assert.False(t, ok)
}

func TestUsers_ClosedOnCancel(t *testing.T) {
	repo, mockAPI := setupTestRepository(t)
	ctx, cancel := context.WithCancel(context.Background())
	mockAPI.On("GetUsers", mock.Anything).Return([]domain.User{}, nil).Once()

	stream := repo.Users(ctx)
	next(t, stream)
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-stream:
			return !ok
		default:
			return false
		}
	}, waitFor, time.Millisecond)

	// writes after the stream ended must not block
	mockAPI.On("RemoveUser", mock.Anything, "a").Return(mustUser(t, "a"), nil).Once()
	assert.NoError(t, repo.Remove(context.Background(), mustUser(t, "a")))
}

func TestUsers_StalledReaderDoesNotBlockWrites(t *testing.T) {
	repo, mockAPI := setupTestRepository(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mockAPI.On("GetUsers", mock.Anything).Return([]domain.User{}, nil)
	stalled := repo.Users(ctx)
	next(t, stalled)

	// far more writes than a reader could have buffered
	const writes = 50
	users := make([]domain.User, writes)
	for i := range users {
		users[i] = mustUser(t, fmt.Sprintf("u%02d", i))
		mockAPI.On("AddUser", mock.Anything, users[i]).Return(users[i], nil).Once()
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, u := range users {
			assert.NoError(t, repo.Add(ctx, u))
		}
	}()
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("writes blocked on a stalled stream")
	}

	fresh := repo.Users(ctx)
	assert.Empty(t, next(t, fresh).Users)

	// the stalled stream catches up with every write, in order
	var last []string
	for len(last) < writes {
		last = ids(next(t, stalled).Users)
	}
	assert.Equal(t, ids(users), last)
}

func TestRefresh_InvalidatesCachingAPI(t *testing.T) {
	mockAPI := new(MockCachingAPI)
	repo := NewUserRepository(mockAPI, zaptest.NewLogger(t))

	mockAPI.On("Invalidate", mock.Anything).Return(nil).Once()
	mockAPI.On("GetUsers", mock.Anything).Return([]domain.User{}, nil).Once()

	require.NoError(t, repo.Refresh(context.Background()))
	mockAPI.AssertExpectations(t)
}

func TestRefresh_Error(t *testing.T) {
	repo, mockAPI := setupTestRepository(t)
	srvErr := domain.NewServerError(500, "")
	mockAPI.On("GetUsers", mock.Anything).Return(nil, srvErr).Once()

	assert.Equal(t, srvErr, repo.Refresh(context.Background()))
}

func TestChanges(t *testing.T) {
	a, b := mustUser(t, "a"), mustUser(t, "b")
	users := []domain.User{a}

	assert.Equal(t, []domain.User{a, b}, added{user: b}.apply(users))
	assert.Equal(t, []domain.User{a}, added{user: a}.apply(users))
	assert.Empty(t, removed{id: "a"}.apply(users))
	assert.Equal(t, []domain.User{a}, users, "input must not be mutated")
}
