package list

import (
	"context"

	"go.uber.org/zap"

	domain "user-mvi/internal/domain/user"
	"user-mvi/internal/mvi"
	usecase "user-mvi/internal/usecase/user"
)

// Usecase is what the list screen needs from the user use cases.
type Usecase interface {
	GetUsers(ctx context.Context) <-chan usecase.UsersResult
	RefreshGetUsers(ctx context.Context) domain.Error
	RemoveUser(ctx context.Context, u domain.User) domain.Error
}

// Store is the list screen store.
type Store = mvi.Store[ViewIntent, ViewState, SingleEvent]

// NewStore creates the list screen store. It stays idle until an Initial intent.
func NewStore(uc Usecase, log *zap.Logger) *Store {
	return mvi.NewStore[ViewIntent, ViewState, SingleEvent]("users-list", InitialViewState(), newProcessor(uc, log), log)
}

type processor struct {
	uc  Usecase
	log *zap.Logger

	// users restarts the subscription on Retry, refresh ignores requests
	// while one is running and removals run side by side.
	users   *mvi.Lane
	refresh *mvi.Lane
	remove  *mvi.Lane

	initialized bool
}

func newProcessor(uc Usecase, log *zap.Logger) *processor {
	return &processor{
		uc:      uc,
		log:     log.Named("list"),
		users:   mvi.NewLane("users", mvi.Latest),
		refresh: mvi.NewLane("refresh", mvi.First),
		remove:  mvi.NewLane("remove", mvi.Merge),
	}
}

func (p *processor) Process(sc *mvi.Scope[ViewState], intent ViewIntent) {
	switch in := intent.(type) {
	case Initial:
		if p.initialized {
			p.log.Debug("initial intent already handled")
			return
		}
		p.initialized = true
		p.subscribe(sc)

	case Retry:
		if sc.State().Error == nil {
			p.log.Debug("retry ignored: no error")
			return
		}
		p.subscribe(sc)

	case Refresh:
		if !sc.State().CanRefresh() {
			p.log.Debug("refresh ignored", zap.Bool("loading", sc.State().IsLoading), zap.Bool("error", sc.State().Error != nil))
			return
		}
		sc.Launch(p.refresh, RefreshLoading{}, p.refreshUsers)

	case RemoveUser:
		sc.Launch(p.remove, RemoveLoading{User: in.User}, p.removeUser(in.User))
	}
}

func (p *processor) subscribe(sc *mvi.Scope[ViewState]) {
	sc.Launch(p.users, UsersLoading{}, func(ctx context.Context, emit func(mvi.Change[ViewState]) bool) {
		for r := range p.uc.GetUsers(ctx) {
			var c PartialStateChange
			if r.Err != nil {
				c = UsersError{Err: r.Err}
			} else {
				c = UsersData{Users: toItems(r.Users)}
			}
			if !emit(c) {
				return
			}
		}
	})
}

func (p *processor) refreshUsers(ctx context.Context, emit func(mvi.Change[ViewState]) bool) {
	if err := p.uc.RefreshGetUsers(ctx); err != nil {
		emit(RefreshFailure{Err: err})
		return
	}
	emit(RefreshSuccess{})
}

func (p *processor) removeUser(item UserItem) mvi.Job[ViewState] {
	return func(ctx context.Context, emit func(mvi.Change[ViewState]) bool) {
		u, err := item.ToDomain()
		if err == nil {
			err = p.uc.RemoveUser(ctx, u)
		}
		if err != nil {
			emit(RemoveFailure{User: item, Err: err})
			return
		}
		emit(RemoveSuccess{User: item})
	}
}

// Event maps error and completion changes to single events.
func (p *processor) Event(c mvi.Change[ViewState]) (SingleEvent, bool) {
	switch c := c.(type) {
	case UsersError:
		return GetUsersError{Err: c.Err}, true
	case RefreshSuccess:
		return RefreshSucceeded{}, true
	case RefreshFailure:
		return RefreshFailed{Err: c.Err}, true
	case RemoveSuccess:
		return RemoveUserSucceeded{User: c.User}, true
	case RemoveFailure:
		return RemoveUserFailed{User: c.User, Err: c.Err}, true
	}
	return nil, false
}

func toItems(users []domain.User) []UserItem {
	items := make([]UserItem, 0, len(users))
	for _, u := range users {
		items = append(items, NewUserItem(u))
	}
	return items
}
