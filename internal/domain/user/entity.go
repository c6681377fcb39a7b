package user

// Email is a validated email address.
type Email struct{ value string }

// String returns the raw address.
func (e Email) String() string { return e.value }

// FirstName is a validated first name.
type FirstName struct{ value string }

// String returns the raw name.
func (n FirstName) String() string { return n.value }

// LastName is a validated last name.
type LastName struct{ value string }

// String returns the raw name.
func (n LastName) String() string { return n.value }

// User represents a user record of the remote service.
// Values are immutable and can only be obtained through Create.
type User struct {
	ID        string    // ID is empty for a user that has not been created yet
	Email     Email     // Email is the user's validated address
	FirstName FirstName // FirstName has at least MinNameLength characters
	LastName  LastName  // LastName has at least MinNameLength characters
	Avatar    string    // Avatar is an image URI, possibly empty
}

// FullName returns "first last".
func (u User) FullName() string {
	return u.FirstName.value + " " + u.LastName.value
}
