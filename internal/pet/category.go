package pet

import (
	"fmt"
	"strings"
)

// Category is the closed set of supported pet kinds.
// The zero value is Dog, mirroring the order the categories were introduced.
type Category int

const (
	CategoryDog Category = iota
	CategoryCat
	CategoryParrot
)

// Categories lists every supported category in declaration order.
var Categories = []Category{CategoryDog, CategoryCat, CategoryParrot}

var categoryNames = map[Category]string{
	CategoryDog:    "Dog",
	CategoryCat:    "Cat",
	CategoryParrot: "Parrot",
}

// String returns the canonical name ("Dog", "Cat", "Parrot").
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// ParseCategory converts a name into a Category. Matching is case-insensitive
// and ignores surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	needle := strings.TrimSpace(s)
	for c, name := range categoryNames {
		if strings.EqualFold(name, needle) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown pet category %q", s)
}

// MarshalText encodes the category by name so JSON payloads read "Dog" instead of 0.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid pet category %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes a category name.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
