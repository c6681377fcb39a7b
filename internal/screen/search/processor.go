package search

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	domain "user-mvi/internal/domain/user"
	"user-mvi/internal/mvi"
)

// DefaultDebounce is the input pause after which a query runs.
const DefaultDebounce = 400 * time.Millisecond

// Usecase is what the search screen needs from the user use cases.
type Usecase interface {
	Search(ctx context.Context, query string) ([]domain.User, domain.Error)
}

// Store is the search screen store.
type Store = mvi.Store[ViewIntent, ViewState, SingleEvent]

// NewStore creates the search screen store with originalQuery restored into
// the query field. A non-blank originalQuery is searched right away.
func NewStore(uc Usecase, originalQuery string, debounce time.Duration, log *zap.Logger) *Store {
	p := newProcessor(uc, originalQuery, debounce, log)
	return mvi.NewStore[ViewIntent, ViewState, SingleEvent]("search", InitialViewState(originalQuery), p, log)
}

type processor struct {
	uc       Usecase
	log      *zap.Logger
	debounce time.Duration
	search   *mvi.Lane

	restore string

	// pending identifies the latest Search intent; older debounce timers
	// see a different value and do nothing.
	pending  uint64
	executed string
}

func newProcessor(uc Usecase, restore string, debounce time.Duration, log *zap.Logger) *processor {
	return &processor{
		uc:       uc,
		log:      log.Named("search"),
		debounce: debounce,
		search:   mvi.NewLane("search", mvi.Latest),
		restore:  restore,
	}
}

func (p *processor) Start(sc *mvi.Scope[ViewState]) {
	if q := strings.TrimSpace(p.restore); q != "" {
		p.execute(sc, q)
	}
}

func (p *processor) Process(sc *mvi.Scope[ViewState], intent ViewIntent) {
	switch in := intent.(type) {
	case Search:
		if sc.State().OriginalQuery != in.Query {
			sc.Emit(QueryChanged{Query: in.Query})
		}

		p.pending++
		token := p.pending
		sc.After(p.debounce, func(sc *mvi.Scope[ViewState]) {
			if token != p.pending {
				return
			}
			q := strings.TrimSpace(in.Query)
			if q == "" || q == p.executed {
				return
			}
			p.execute(sc, q)
		})

	case Retry:
		s := sc.State()
		if s.Error == nil {
			p.log.Debug("retry ignored: no error")
			return
		}
		p.execute(sc, s.SubmittedQuery)
	}
}

func (p *processor) execute(sc *mvi.Scope[ViewState], query string) {
	p.executed = query
	sc.Launch(p.search, SearchLoading{}, func(ctx context.Context, emit func(mvi.Change[ViewState]) bool) {
		users, err := p.uc.Search(ctx, query)
		if err != nil {
			emit(SearchFailure{Err: err, Query: query})
			return
		}

		items := make([]UserItem, 0, len(users))
		for _, u := range users {
			items = append(items, NewUserItem(u))
		}
		emit(SearchSuccess{Users: items, Query: query})
	})
}

func (p *processor) Event(c mvi.Change[ViewState]) (SingleEvent, bool) {
	if c, ok := c.(SearchFailure); ok {
		return SearchFailed{Err: c.Err}, true
	}
	return nil, false
}
