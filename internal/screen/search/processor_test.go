package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domain "user-mvi/internal/domain/user"
)

const (
	waitFor  = 2 * time.Second
	debounce = 10 * time.Millisecond
)

// MockUsecase is a mock implementation of the Usecase interface
type MockUsecase struct {
	mock.Mock
}

func (m *MockUsecase) Search(ctx context.Context, query string) ([]domain.User, domain.Error) {
	args := m.Called(ctx, query)
	var users []domain.User
	if v := args.Get(0); v != nil {
		users = v.([]domain.User)
	}
	if err, ok := args.Get(1).(domain.Error); ok {
		return users, err
	}
	return users, nil
}

func setupTestStore(t *testing.T, originalQuery string) (*Store, *MockUsecase) {
	mockUC := new(MockUsecase)
	store := NewStore(mockUC, originalQuery, debounce, zaptest.NewLogger(t))
	t.Cleanup(store.Close)
	return store, mockUC
}

func mustUser(t *testing.T, id string) domain.User {
	t.Helper()
	u, err := domain.Create(id, id+"@example.com", "First"+id, "Last"+id, "")
	require.NoError(t, err)
	return u
}

func nextEvent(t *testing.T, store *Store) SingleEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	e, err := store.SingleEvent().Receive(ctx)
	require.NoError(t, err)
	return e
}

func resultsFor(t *testing.T, store *Store, query string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		s := store.State()
		return !s.IsLoading && s.SubmittedQuery == query && len(s.Users) == n
	}, waitFor, time.Millisecond)
}

func TestSearch_DebouncesInput(t *testing.T) {
	store, mockUC := setupTestStore(t, "")
	mockUC.On("Search", mock.Anything, "abc").Return([]domain.User{mustUser(t, "1")}, nil).Once()

	store.ProcessIntent(Search{Query: "a"})
	store.ProcessIntent(Search{Query: "ab"})
	store.ProcessIntent(Search{Query: " abc "})

	require.Eventually(t, func() bool { return store.State().OriginalQuery == " abc " }, waitFor, time.Millisecond)
	resultsFor(t, store, "abc", 1)

	s := store.State()
	assert.Equal(t, []UserItem{NewUserItem(mustUser(t, "1"))}, s.Users)
	assert.Nil(t, s.Error)
	mockUC.AssertExpectations(t)
	mockUC.AssertNumberOfCalls(t, "Search", 1)
}

func TestSearch_SkipsBlankAndRepeatedQueries(t *testing.T) {
	store, mockUC := setupTestStore(t, "")
	mockUC.On("Search", mock.Anything, "jo").Return([]domain.User{}, nil).Once()

	store.ProcessIntent(Search{Query: "jo"})
	resultsFor(t, store, "jo", 0)

	store.ProcessIntent(Search{Query: "jo "})
	time.Sleep(5 * debounce)
	store.ProcessIntent(Search{Query: "   "})
	time.Sleep(5 * debounce)

	mockUC.AssertNumberOfCalls(t, "Search", 1)
	assert.Equal(t, "   ", store.State().OriginalQuery)
	assert.Equal(t, "jo", store.State().SubmittedQuery)
}

func TestSearch_FailureThenRetry(t *testing.T) {
	store, mockUC := setupTestStore(t, "")
	netErr := domain.NewNetworkError(nil)
	mockUC.On("Search", mock.Anything, "jo").Return(nil, netErr).Once()

	store.ProcessIntent(Search{Query: "jo"})

	assert.Equal(t, SearchFailed{Err: netErr}, nextEvent(t, store))
	s := store.State()
	assert.Equal(t, netErr, s.Error)
	assert.Equal(t, "jo", s.SubmittedQuery)
	assert.Empty(t, s.Users)

	mockUC.On("Search", mock.Anything, "jo").Return([]domain.User{mustUser(t, "1")}, nil).Once()
	store.ProcessIntent(Retry{})

	resultsFor(t, store, "jo", 1)
	assert.Nil(t, store.State().Error)
	mockUC.AssertExpectations(t)
}

func TestSearch_RetryIgnoredWithoutError(t *testing.T) {
	store, mockUC := setupTestStore(t, "")
	mockUC.On("Search", mock.Anything, "jo").Return([]domain.User{}, nil).Once()

	store.ProcessIntent(Search{Query: "jo"})
	resultsFor(t, store, "jo", 0)

	store.ProcessIntent(Retry{})
	time.Sleep(5 * debounce)
	mockUC.AssertNumberOfCalls(t, "Search", 1)
}

func TestSearch_NewQueryCancelsInFlight(t *testing.T) {
	store, mockUC := setupTestStore(t, "")

	started := make(chan struct{})
	mockUC.On("Search", mock.Anything, "slow").Run(func(args mock.Arguments) {
		close(started)
		<-args.Get(0).(context.Context).Done()
	}).Return([]domain.User{mustUser(t, "slow")}, nil).Once()
	mockUC.On("Search", mock.Anything, "fast").Return([]domain.User{mustUser(t, "fast")}, nil).Once()

	store.ProcessIntent(Search{Query: "slow"})
	select {
	case <-started:
	case <-time.After(waitFor):
		t.Fatal("slow search never started")
	}
	store.ProcessIntent(Search{Query: "fast"})

	resultsFor(t, store, "fast", 1)
	time.Sleep(5 * debounce)
	assert.Equal(t, "fast", store.State().Users[0].ID)
	mockUC.AssertExpectations(t)
}

func TestNewStore_RestoresOriginalQuery(t *testing.T) {
	mockUC := new(MockUsecase)
	mockUC.On("Search", mock.Anything, "jo").Return([]domain.User{mustUser(t, "1")}, nil).Once()

	store := NewStore(mockUC, "jo", debounce, zaptest.NewLogger(t))
	t.Cleanup(store.Close)

	resultsFor(t, store, "jo", 1)
	assert.Equal(t, "jo", store.State().OriginalQuery)
}

func TestReducers(t *testing.T) {
	s := InitialViewState("q")
	s.Users = []UserItem{{ID: "1"}}
	s.Error = domain.NewNetworkError(nil)

	loading := SearchLoading{}.Reduce(s)
	assert.True(t, loading.IsLoading)
	assert.Nil(t, loading.Error)
	assert.Empty(t, loading.Users)
	assert.Len(t, s.Users, 1)

	users := []UserItem{{ID: "2"}}
	ok := SearchSuccess{Users: users, Query: "q"}.Reduce(loading)
	users[0].ID = "changed"
	assert.Equal(t, "2", ok.Users[0].ID)
	assert.Equal(t, "q", ok.SubmittedQuery)

	assert.Equal(t, "new", QueryChanged{Query: "new"}.Reduce(ok).OriginalQuery)
}
