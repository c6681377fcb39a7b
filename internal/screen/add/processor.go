package add

import (
	"context"

	"go.uber.org/zap"

	domain "user-mvi/internal/domain/user"
	"user-mvi/internal/mvi"
)

// Usecase is what the add screen needs from the user use cases.
type Usecase interface {
	AddUser(ctx context.Context, u domain.User) domain.Error
}

// Store is the add screen store.
type Store = mvi.Store[ViewIntent, ViewState, SingleEvent]

// NewStore creates the add screen store. The form is validated once on start,
// so Errors reflects the empty fields before any input.
func NewStore(uc Usecase, log *zap.Logger) *Store {
	return mvi.NewStore[ViewIntent, ViewState, SingleEvent]("add-user", InitialViewState(), newProcessor(uc, log), log)
}

type processor struct {
	uc  Usecase
	log *zap.Logger
	add *mvi.Lane
}

func newProcessor(uc Usecase, log *zap.Logger) *processor {
	return &processor{
		uc:  uc,
		log: log.Named("add"),
		add: mvi.NewLane("add", mvi.First),
	}
}

func (p *processor) Start(sc *mvi.Scope[ViewState]) {
	p.validate(sc)
}

func (p *processor) Process(sc *mvi.Scope[ViewState], intent ViewIntent) {
	switch in := intent.(type) {
	case EmailChanged:
		p.change(sc, EmailField, in.Email)
	case FirstNameChanged:
		p.change(sc, FirstNameField, in.FirstName)
	case LastNameChanged:
		p.change(sc, LastNameField, in.LastName)
	case Submit:
		p.submit(sc)
	}
}

func (p *processor) change(sc *mvi.Scope[ViewState], f Field, value string) {
	s := sc.State()
	if s.Touched(f) && s.Value(f) == value {
		return
	}

	sc.Emit(FormValueChanged{Field: f, Value: value})
	if !s.Touched(f) {
		sc.Emit(FieldTouched{Field: f})
	}
	p.validate(sc)
}

func (p *processor) validate(sc *mvi.Scope[ViewState]) {
	s := sc.State()
	sc.Emit(ErrorsChanged{Errors: domain.Validate(s.Email, s.FirstName, s.LastName)})
}

func (p *processor) submit(sc *mvi.Scope[ViewState]) {
	s := sc.State()
	u, err := domain.Create("", s.Email, s.FirstName, s.LastName, "")
	if err != nil {
		p.log.Debug("submit ignored: invalid form", zap.Error(err))
		return
	}

	started := sc.Launch(p.add, AddLoading{}, func(ctx context.Context, emit func(mvi.Change[ViewState]) bool) {
		if err := p.uc.AddUser(ctx, u); err != nil {
			emit(AddFailure{User: u, Err: err})
			return
		}
		emit(AddSuccess{User: u})
	})
	if !started {
		p.log.Debug("submit ignored: add in progress")
	}
}

func (p *processor) Event(c mvi.Change[ViewState]) (SingleEvent, bool) {
	switch c := c.(type) {
	case AddSuccess:
		return AddUserSucceeded{User: c.User}, true
	case AddFailure:
		return AddUserFailed{User: c.User, Err: c.Err}, true
	}
	return nil, false
}
