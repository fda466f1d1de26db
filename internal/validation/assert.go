// Package validation holds constructor-time contract checks.
// A failed check is a programmer error, so it panics instead of returning an error.
package validation

import (
	"fmt"
	"reflect"
)

// AssertNotNil panics if ptr is nil.
//
// Usage:
//
//	validation.AssertNotNil(cfg, "lifetime config")
func AssertNotNil[T any](ptr *T, name string) {
	if ptr == nil {
		panic(fmt.Sprintf("critical error: %s cannot be nil", name))
	}
}

// AssertNotNilInterface panics if v is nil or an interface wrapping a nil pointer,
// map, slice, func or channel. Use it for dependencies typed as interfaces
// (repositories, rules, publishers).
func AssertNotNilInterface(v any, name string) {
	if v == nil {
		panic(fmt.Sprintf("critical error: %s cannot be nil", name))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		if rv.IsNil() {
			panic(fmt.Sprintf("critical error: %s cannot be nil", name))
		}
	}
}

// AssertPositive panics if d is not strictly positive.
func AssertPositive[T ~int | ~int64 | ~float64](d T, name string) {
	if d <= 0 {
		panic(fmt.Sprintf("critical error: %s must be positive, got %v", name, d))
	}
}
