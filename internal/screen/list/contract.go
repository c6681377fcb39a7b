package list

import (
	"slices"

	domain "user-mvi/internal/domain/user"
	"user-mvi/internal/mvi"
)

// UserItem is the list row model of a user.
type UserItem struct {
	ID         string
	Email      string
	Avatar     string
	FirstName  string
	LastName   string
	IsDeleting bool // IsDeleting is set while a remove request is in flight
}

// NewUserItem builds a row from a domain user.
func NewUserItem(u domain.User) UserItem {
	return UserItem{
		ID:        u.ID,
		Email:     u.Email.String(),
		Avatar:    u.Avatar,
		FirstName: u.FirstName.String(),
		LastName:  u.LastName.String(),
	}
}

// FullName returns "first last".
func (i UserItem) FullName() string {
	return i.FirstName + " " + i.LastName
}

// ToDomain validates the row back into a domain user.
func (i UserItem) ToDomain() (domain.User, domain.Error) {
	u, err := domain.Create(i.ID, i.Email, i.FirstName, i.LastName, i.Avatar)
	if err != nil {
		return domain.User{}, domain.AsError(err)
	}
	return u, nil
}

// ViewIntent is the closed set of list screen intents:
// Initial, Refresh, Retry and RemoveUser.
type ViewIntent interface {
	viewIntent()
}

// Initial starts loading users. Only the first one is honoured.
type Initial struct{}

// Refresh re-fetches users when the list is neither loading nor failed.
type Refresh struct{}

// Retry re-subscribes to users after a failure.
type Retry struct{}

// RemoveUser deletes a user, optimistically flagging its row.
type RemoveUser struct {
	User UserItem
}

func (Initial) viewIntent()    {}
func (Refresh) viewIntent()    {}
func (Retry) viewIntent()      {}
func (RemoveUser) viewIntent() {}

// ViewState is the list screen state.
type ViewState struct {
	Items        []UserItem
	IsLoading    bool
	Error        domain.Error
	IsRefreshing bool
}

// InitialViewState returns the state before the first intent.
func InitialViewState() ViewState {
	return ViewState{
		Items:     []UserItem{},
		IsLoading: true,
	}
}

// CanRefresh reports whether a Refresh intent is accepted.
func (s ViewState) CanRefresh() bool {
	return !s.IsLoading && s.Error == nil
}

// PartialStateChange is the closed set of list state changes.
type PartialStateChange interface {
	mvi.Change[ViewState]
	partialStateChange()
}

type (
	// UsersLoading marks the start of a users subscription.
	UsersLoading struct{}
	// UsersData replaces the list with a pushed snapshot.
	UsersData struct{ Users []UserItem }
	// UsersError reports a failed users subscription.
	UsersError struct{ Err domain.Error }

	RefreshLoading struct{}
	RefreshSuccess struct{}
	RefreshFailure struct{ Err domain.Error }

	// RemoveLoading flags User as deleting before the remote call completes.
	RemoveLoading struct{ User UserItem }
	// RemoveSuccess drops User from the list.
	RemoveSuccess struct{ User UserItem }
	// RemoveFailure restores User, or drops it when the remote side no longer has it.
	RemoveFailure struct {
		User UserItem
		Err  domain.Error
	}
)

func (UsersLoading) partialStateChange()   {}
func (UsersData) partialStateChange()      {}
func (UsersError) partialStateChange()     {}
func (RefreshLoading) partialStateChange() {}
func (RefreshSuccess) partialStateChange() {}
func (RefreshFailure) partialStateChange() {}
func (RemoveLoading) partialStateChange()  {}
func (RemoveSuccess) partialStateChange()  {}
func (RemoveFailure) partialStateChange()  {}

func (UsersLoading) Reduce(s ViewState) ViewState {
	s.IsLoading = true
	s.Error = nil
	return s
}

// Reduce keeps the deleting flag of rows whose removal is still in flight.
func (c UsersData) Reduce(s ViewState) ViewState {
	items := slices.Clone(c.Users)
	if items == nil {
		items = []UserItem{}
	}
	for i := range items {
		if j := indexOf(s.Items, items[i].ID); j >= 0 && s.Items[j].IsDeleting {
			items[i].IsDeleting = true
		}
	}

	s.Items = items
	s.IsLoading = false
	s.Error = nil
	return s
}

func (c UsersError) Reduce(s ViewState) ViewState {
	s.IsLoading = false
	s.Error = c.Err
	return s
}

func (RefreshLoading) Reduce(s ViewState) ViewState {
	s.IsRefreshing = true
	return s
}

func (RefreshSuccess) Reduce(s ViewState) ViewState {
	s.IsRefreshing = false
	return s
}

func (RefreshFailure) Reduce(s ViewState) ViewState {
	s.IsRefreshing = false
	return s
}

func (c RemoveLoading) Reduce(s ViewState) ViewState {
	s.Items = setDeleting(s.Items, c.User.ID, true)
	return s
}

func (c RemoveSuccess) Reduce(s ViewState) ViewState {
	s.Items = removeByID(s.Items, c.User.ID)
	return s
}

func (c RemoveFailure) Reduce(s ViewState) ViewState {
	if domain.IsNotFound(c.Err, c.User.ID) {
		s.Items = removeByID(s.Items, c.User.ID)
		return s
	}
	s.Items = setDeleting(s.Items, c.User.ID, false)
	return s
}

func indexOf(items []UserItem, id string) int {
	return slices.IndexFunc(items, func(it UserItem) bool { return it.ID == id })
}

// setDeleting returns items itself when no row changes, a modified copy otherwise.
func setDeleting(items []UserItem, id string, deleting bool) []UserItem {
	i := indexOf(items, id)
	if i < 0 || items[i].IsDeleting == deleting {
		return items
	}
	out := slices.Clone(items)
	out[i].IsDeleting = deleting
	return out
}

// removeByID returns items itself when id is absent, a copy without it otherwise.
func removeByID(items []UserItem, id string) []UserItem {
	if indexOf(items, id) < 0 {
		return items
	}
	return slices.DeleteFunc(slices.Clone(items), func(it UserItem) bool { return it.ID == id })
}

// SingleEvent is the closed set of list screen notifications.
type SingleEvent interface {
	singleEvent()
}

type (
	GetUsersError    struct{ Err domain.Error }
	RefreshSucceeded struct{}
	RefreshFailed    struct{ Err domain.Error }

	RemoveUserSucceeded struct{ User UserItem }
	RemoveUserFailed    struct {
		User UserItem
		Err  domain.Error
	}
)

func (GetUsersError) singleEvent()       {}
func (RefreshSucceeded) singleEvent()    {}
func (RefreshFailed) singleEvent()       {}
func (RemoveUserSucceeded) singleEvent() {}
func (RemoveUserFailed) singleEvent()    {}
