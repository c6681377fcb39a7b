package add

import (
	domain "user-mvi/internal/domain/user"
	"user-mvi/internal/mvi"
)

// Field identifies a form input.
type Field int

const (
	EmailField Field = iota
	FirstNameField
	LastNameField
)

func (f Field) String() string {
	switch f {
	case EmailField:
		return "email"
	case FirstNameField:
		return "first_name"
	case LastNameField:
		return "last_name"
	}
	return "unknown"
}

// violation is the validation error reported for the field.
func (f Field) violation() domain.ValidationError {
	switch f {
	case EmailField:
		return domain.InvalidEmailAddress
	case FirstNameField:
		return domain.TooShortFirstName
	default:
		return domain.TooShortLastName
	}
}

// ViewIntent is the closed set of add screen intents.
type ViewIntent interface {
	viewIntent()
}

type (
	EmailChanged     struct{ Email string }
	FirstNameChanged struct{ FirstName string }
	LastNameChanged  struct{ LastName string }

	// Submit creates the user from the latest form values when they are valid.
	Submit struct{}
)

func (EmailChanged) viewIntent()     {}
func (FirstNameChanged) viewIntent() {}
func (LastNameChanged) viewIntent()  {}
func (Submit) viewIntent()           {}

// ViewState is the add screen state.
type ViewState struct {
	Errors    domain.ValidationErrors
	IsLoading bool

	// set once the matching field has been edited
	EmailChanged     bool
	FirstNameChanged bool
	LastNameChanged  bool

	Email     string
	FirstName string
	LastName  string
}

// InitialViewState returns an empty, untouched form.
func InitialViewState() ViewState {
	return ViewState{}
}

// Value returns the current input of f.
func (s ViewState) Value(f Field) string {
	switch f {
	case EmailField:
		return s.Email
	case FirstNameField:
		return s.FirstName
	default:
		return s.LastName
	}
}

// Touched reports whether f has been edited.
func (s ViewState) Touched(f Field) bool {
	switch f {
	case EmailField:
		return s.EmailChanged
	case FirstNameField:
		return s.FirstNameChanged
	default:
		return s.LastNameChanged
	}
}

// ShowError reports whether the error of f should be displayed.
func (s ViewState) ShowError(f Field) bool {
	return s.Touched(f) && s.Errors.Has(f.violation())
}

// IsValid reports whether the form values passed the last validation.
func (s ViewState) IsValid() bool {
	return len(s.Errors) == 0
}

// PartialStateChange is the closed set of add screen state changes.
type PartialStateChange interface {
	mvi.Change[ViewState]
	partialStateChange()
}

type (
	ErrorsChanged struct{ Errors domain.ValidationErrors }

	AddLoading struct{}
	AddSuccess struct{ User domain.User }
	AddFailure struct {
		User domain.User
		Err  domain.Error
	}

	FieldTouched     struct{ Field Field }
	FormValueChanged struct {
		Field Field
		Value string
	}
)

func (ErrorsChanged) partialStateChange()    {}
func (AddLoading) partialStateChange()       {}
func (AddSuccess) partialStateChange()       {}
func (AddFailure) partialStateChange()       {}
func (FieldTouched) partialStateChange()     {}
func (FormValueChanged) partialStateChange() {}

func (c ErrorsChanged) Reduce(s ViewState) ViewState {
	s.Errors = c.Errors
	return s
}

func (AddLoading) Reduce(s ViewState) ViewState {
	s.IsLoading = true
	return s
}

func (AddSuccess) Reduce(s ViewState) ViewState {
	s.IsLoading = false
	return s
}

func (AddFailure) Reduce(s ViewState) ViewState {
	s.IsLoading = false
	return s
}

func (c FieldTouched) Reduce(s ViewState) ViewState {
	switch c.Field {
	case EmailField:
		s.EmailChanged = true
	case FirstNameField:
		s.FirstNameChanged = true
	case LastNameField:
		s.LastNameChanged = true
	}
	return s
}

func (c FormValueChanged) Reduce(s ViewState) ViewState {
	switch c.Field {
	case EmailField:
		s.Email = c.Value
	case FirstNameField:
		s.FirstName = c.Value
	case LastNameField:
		s.LastName = c.Value
	}
	return s
}

// SingleEvent is the closed set of add screen notifications.
type SingleEvent interface {
	singleEvent()
}

type (
	AddUserSucceeded struct{ User domain.User }
	AddUserFailed    struct {
		User domain.User
		Err  domain.Error
	}
)

func (AddUserSucceeded) singleEvent() {}
func (AddUserFailed) singleEvent()    {}
