package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type greeter interface{ Greet() string }

type english struct{}

func (*english) Greet() string { return "hi" }

func TestAssertNotNil(t *testing.T) {
	assert.PanicsWithValue(t, "critical error: config cannot be nil", func() {
		AssertNotNil[int](nil, "config")
	})

	n := 1
	assert.NotPanics(t, func() { AssertNotNil(&n, "config") })
}

func TestAssertNotNilInterface(t *testing.T) {
	var typedNil *english
	var g greeter = typedNil

	assert.Panics(t, func() { AssertNotNilInterface(nil, "greeter") })
	assert.Panics(t, func() { AssertNotNilInterface(g, "greeter") }, "typed nil behind an interface")
	assert.NotPanics(t, func() { AssertNotNilInterface(greeter(&english{}), "greeter") })
	assert.NotPanics(t, func() { AssertNotNilInterface(42, "answer") })
}

func TestAssertPositive(t *testing.T) {
	assert.Panics(t, func() { AssertPositive(time.Duration(0), "period") })
	assert.Panics(t, func() { AssertPositive(-1, "shards") })
	assert.NotPanics(t, func() { AssertPositive(time.Second, "period") })
}
