package user

import (
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MinNameLength is the minimum number of characters of a first or last name.
const MinNameLength = 3

// ValidationError identifies a single invalid field.
type ValidationError int

const (
	InvalidEmailAddress ValidationError = iota + 1
	TooShortFirstName
	TooShortLastName
)

var validationCodes = map[ValidationError]string{
	InvalidEmailAddress: "invalid_email_address",
	TooShortFirstName:   "too_short_first_name",
	TooShortLastName:    "too_short_last_name",
}

// Code returns the wire code of the violation.
func (e ValidationError) Code() string {
	if code, ok := validationCodes[e]; ok {
		return code
	}
	return "unknown_" + strconv.Itoa(int(e))
}

// String returns a human-readable message.
func (e ValidationError) String() string {
	switch e {
	case InvalidEmailAddress:
		return "invalid email address"
	case TooShortFirstName:
		return "first name must be at least " + strconv.Itoa(MinNameLength) + " characters"
	case TooShortLastName:
		return "last name must be at least " + strconv.Itoa(MinNameLength) + " characters"
	default:
		return e.Code()
	}
}

// ParseValidationError converts a wire code back into a ValidationError.
func ParseValidationError(code string) (ValidationError, bool) {
	for e, c := range validationCodes {
		if c == code {
			return e, true
		}
	}
	return 0, false
}

// ValidationErrors is a sorted set of violations. A non-nil value returned by
// Create always holds at least one element.
type ValidationErrors []ValidationError

// NewValidationErrors builds a set, dropping duplicates.
func NewValidationErrors(errs ...ValidationError) ValidationErrors {
	if len(errs) == 0 {
		return nil
	}
	set := slices.Clone(errs)
	slices.Sort(set)
	return slices.Compact(set)
}

// Has reports whether e is part of the set.
func (v ValidationErrors) Has(e ValidationError) bool {
	_, found := slices.BinarySearch(v, e)
	return found
}

// Equal reports whether both sets hold the same violations.
func (v ValidationErrors) Equal(other ValidationErrors) bool {
	return slices.Equal(v, other)
}

// Codes returns the wire codes in set order.
func (v ValidationErrors) Codes() []string {
	codes := make([]string, len(v))
	for i, e := range v {
		codes[i] = e.Code()
	}
	return codes
}

// Error implements the error interface.
func (v ValidationErrors) Error() string {
	messages := make([]string, len(v))
	for i, e := range v {
		messages[i] = e.String()
	}
	return "validation failed: " + strings.Join(messages, ", ")
}

// fields mirrors the raw user input for struct validation.
type fields struct {
	Email     string `validate:"required,email"`
	FirstName string `validate:"min=3"`
	LastName  string `validate:"min=3"`
}

var (
	validate = validator.New()

	fieldViolations = map[string]ValidationError{
		"Email":     InvalidEmailAddress,
		"FirstName": TooShortFirstName,
		"LastName":  TooShortLastName,
	}
)

// Create validates raw input and builds a User. Every invalid field is reported
// in the returned ValidationErrors, not only the first one.
func Create(id, email, firstName, lastName, avatar string) (User, error) {
	if errs := validateFields(fields{Email: email, FirstName: firstName, LastName: lastName}); errs != nil {
		return User{}, errs
	}

	return User{
		ID:        id,
		Email:     Email{value: email},
		FirstName: FirstName{value: firstName},
		LastName:  LastName{value: lastName},
		Avatar:    avatar,
	}, nil
}

// Validate runs the same checks as Create and returns the violations, or nil.
func Validate(email, firstName, lastName string) ValidationErrors {
	return validateFields(fields{Email: email, FirstName: firstName, LastName: lastName})
}

func validateFields(f fields) ValidationErrors {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// only returned for a non-struct argument
		panic(err)
	}

	found := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		if v, ok := fieldViolations[fe.Field()]; ok {
			found = append(found, v)
		}
	}
	return NewValidationErrors(found...)
}
