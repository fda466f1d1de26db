// Package attributes implements the rate table that turns interactions and
// elapsed time into attribute deltas for each pet category.
//
// The engine is pure: it holds an immutable copy of the rate table and never
// validates its inputs beyond the category lookup. Validation of durations and
// food quantities belongs to the pet entity.
package attributes

import (
	"fmt"
	"time"

	"github.com/rafaeljc/petlife/internal/pet"
)

// Compile-time check that Engine satisfies the contract used by the entity.
var _ pet.Rules = (*Engine)(nil)

// Rate holds the per-minute speeds for one category.
type Rate struct {
	// Happiness is gained per minute of petting and lost per minute without it.
	Happiness int

	// Hunger is gained per minute without food. One food unit removes the
	// same amount (one unit of food == one minute of not being fed).
	Hunger int
}

// Table maps every category to its rates.
type Table map[pet.Category]Rate

// DefaultTable returns the reference rate table.
func DefaultTable() Table {
	return Table{
		pet.CategoryDog:    {Happiness: 10, Hunger: 25},
		pet.CategoryCat:    {Happiness: 3, Hunger: 2},
		pet.CategoryParrot: {Happiness: 1, Hunger: 3},
	}
}

// Engine computes attribute deltas from a fixed rate table.
type Engine struct {
	rates Table
}

// NewEngine builds an engine from the given table.
// Every category must be present and every rate must lie in [0, pet.MaxAttribute].
func NewEngine(table Table) (*Engine, error) {
	rates := make(Table, len(pet.Categories))
	for _, c := range pet.Categories {
		r, ok := table[c]
		if !ok {
			return nil, fmt.Errorf("attributes: missing rates for category %s", c)
		}
		if r.Happiness < 0 || r.Hunger < 0 {
			return nil, fmt.Errorf("attributes: rates for category %s must be non-negative", c)
		}
		if r.Happiness > pet.MaxAttribute || r.Hunger > pet.MaxAttribute {
			return nil, fmt.Errorf("attributes: rates for category %s must not exceed %d", c, pet.MaxAttribute)
		}
		rates[c] = r
	}
	return &Engine{rates: rates}, nil
}

// MustNewEngine is like NewEngine but panics on an invalid table.
func MustNewEngine(table Table) *Engine {
	e, err := NewEngine(table)
	if err != nil {
		panic(err)
	}
	return e
}

// Rate returns the rates configured for c.
func (e *Engine) Rate(c pet.Category) Rate {
	return e.rates[c]
}

// Deltas saturate: an attribute spans at most pet.MaxAttribute, so minutes
// and food are capped there before multiplying and the product cannot overflow.

// HappinessDelta returns the happiness change for petting (or not petting) during d.
func (e *Engine) HappinessDelta(c pet.Category, d time.Duration) int {
	return e.rates[c].Happiness * wholeMinutes(d)
}

// HungerDeltaByTime returns the hunger gained by not being fed during d.
func (e *Engine) HungerDeltaByTime(c pet.Category, d time.Duration) int {
	return e.rates[c].Hunger * wholeMinutes(d)
}

// HungerDeltaByFood returns the hunger removed by the given food quantity.
func (e *Engine) HungerDeltaByFood(c pet.Category, food uint) int {
	return e.rates[c].Hunger * int(min(food, uint(pet.MaxAttribute)))
}

// wholeMinutes truncates d to whole minutes, capped at pet.MaxAttribute.
// Negative durations count as zero.
func wholeMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(min(d/time.Minute, time.Duration(pet.MaxAttribute)))
}
