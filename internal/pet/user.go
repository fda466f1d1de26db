package pet

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrInvalidName is returned by ValidateName.
var ErrInvalidName = errors.New("invalid name")

// User owns a collection of pets. Identity is the name; users are immutable.
type User struct {
	Name string `json:"name"`
}

// EmptyUser is the "absent" sentinel returned by user lookups that miss.
var EmptyUser = User{}

// IsEmpty reports whether u is the absent sentinel.
func (u User) IsEmpty() bool {
	return u.Name == ""
}

func (u User) String() string {
	return fmt.Sprintf("<User Name='%s'>", u.Name)
}

// ValidateName checks the length rules shared by user and pet names.
// Length is measured in characters, not bytes.
func ValidateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < NameMinLength || n > NameMaxLength {
		return fmt.Errorf("%w: length must be between %d and %d characters, got %d",
			ErrInvalidName, NameMinLength, NameMaxLength, n)
	}
	return nil
}
