package search

import (
	"slices"

	domain "user-mvi/internal/domain/user"
	"user-mvi/internal/mvi"
)

// UserItem is a search result row.
type UserItem struct {
	ID       string
	Email    string
	Avatar   string
	FullName string
}

// NewUserItem builds a result row from a domain user.
func NewUserItem(u domain.User) UserItem {
	return UserItem{
		ID:       u.ID,
		Email:    u.Email.String(),
		Avatar:   u.Avatar,
		FullName: u.FullName(),
	}
}

// ViewIntent is the closed set of search screen intents.
type ViewIntent interface {
	viewIntent()
}

type (
	// Search updates the query field and, once input pauses, runs the query.
	Search struct{ Query string }
	// Retry re-runs the last submitted query after a failure.
	Retry struct{}
)

func (Search) viewIntent() {}
func (Retry) viewIntent()  {}

// ViewState is the search screen state. OriginalQuery mirrors the text
// field; SubmittedQuery is the query the results belong to.
type ViewState struct {
	Users          []UserItem
	IsLoading      bool
	Error          domain.Error
	SubmittedQuery string
	OriginalQuery  string
}

// InitialViewState returns the state restored with originalQuery in the field.
func InitialViewState(originalQuery string) ViewState {
	return ViewState{
		Users:         []UserItem{},
		OriginalQuery: originalQuery,
	}
}

// PartialStateChange is the closed set of search screen state changes.
type PartialStateChange interface {
	mvi.Change[ViewState]
	partialStateChange()
}

type (
	SearchLoading struct{}
	SearchSuccess struct {
		Users []UserItem
		Query string
	}
	SearchFailure struct {
		Err   domain.Error
		Query string
	}
	QueryChanged struct{ Query string }
)

func (SearchLoading) partialStateChange() {}
func (SearchSuccess) partialStateChange() {}
func (SearchFailure) partialStateChange() {}
func (QueryChanged) partialStateChange()  {}

func (SearchLoading) Reduce(s ViewState) ViewState {
	s.IsLoading = true
	s.Error = nil
	s.Users = []UserItem{}
	return s
}

func (c SearchSuccess) Reduce(s ViewState) ViewState {
	s.IsLoading = false
	s.Error = nil
	s.Users = slices.Clone(c.Users)
	if s.Users == nil {
		s.Users = []UserItem{}
	}
	s.SubmittedQuery = c.Query
	return s
}

func (c SearchFailure) Reduce(s ViewState) ViewState {
	s.IsLoading = false
	s.Error = c.Err
	s.Users = []UserItem{}
	s.SubmittedQuery = c.Query
	return s
}

func (c QueryChanged) Reduce(s ViewState) ViewState {
	s.OriginalQuery = c.Query
	return s
}

// SingleEvent is the closed set of search screen notifications.
type SingleEvent interface {
	singleEvent()
}

type SearchFailed struct{ Err domain.Error }

func (SearchFailed) singleEvent() {}
