// Package pet holds the domain model of the virtual pet service: users, pets
// and the state transitions that petting, feeding and the passage of time
// apply to a pet's bounded attributes.
//
// Pets are plain values. Callers get copies from the store, mutate the copy
// through the Apply* methods and write it back explicitly.
package pet

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultHappiness is assigned to every newly created pet.
	DefaultHappiness = 50
	// DefaultHunger is assigned to every newly created pet.
	DefaultHunger = 50

	// MinAttribute and MaxAttribute bound happiness and hunger.
	MinAttribute = 0
	MaxAttribute = 100

	// NameMinLength and NameMaxLength bound user and pet names.
	NameMinLength = 2
	NameMaxLength = 50
)

// ErrInvalidArgument is returned when a state transition receives a
// non-positive duration or a zero food quantity. It signals a caller bug:
// input must be validated before it reaches the entity.
var ErrInvalidArgument = errors.New("invalid argument")

// Rules computes attribute deltas for a category.
// Implementations must be pure and return non-negative values.
type Rules interface {
	// HappinessDelta is the happiness gained by petting (or lost by not petting) for d.
	HappinessDelta(c Category, d time.Duration) int

	// HungerDeltaByTime is the hunger gained by not being fed for d.
	HungerDeltaByTime(c Category, d time.Duration) int

	// HungerDeltaByFood is the hunger removed by the given amount of food.
	HungerDeltaByFood(c Category, food uint) int
}

// Pet is a virtual pet owned by a user. Its identity is (owner, Name).
type Pet struct {
	Name      string   `json:"name"`
	Category  Category `json:"type"`
	Happiness int      `json:"happiness"`
	Hunger    int      `json:"hunger"`
}

// Empty is the "absent" sentinel returned by lookups that miss.
// It is never stored.
var Empty = Pet{}

// New creates a pet with the default attribute values.
func New(name string, category Category) Pet {
	return Pet{
		Name:      name,
		Category:  category,
		Happiness: DefaultHappiness,
		Hunger:    DefaultHunger,
	}
}

// IsEmpty reports whether p is the absent sentinel.
func (p Pet) IsEmpty() bool {
	return p.Name == ""
}

// Equal compares every field.
func (p Pet) Equal(other Pet) bool {
	return p == other
}

func (p Pet) String() string {
	return fmt.Sprintf("<Pet Name='%s' Type='%s' Happiness='%d' Hunger='%d'>",
		p.Name, p.Category, p.Happiness, p.Hunger)
}

// ApplyPetting raises happiness for being petted during d, capped at MaxAttribute.
func (p *Pet) ApplyPetting(d time.Duration, rules Rules) error {
	if err := validateDuration(d); err != nil {
		return err
	}
	p.Happiness = clamp(p.Happiness + rules.HappinessDelta(p.Category, d))
	return nil
}

// ApplyNotPetted lowers happiness for going without petting during d, floored at MinAttribute.
func (p *Pet) ApplyNotPetted(d time.Duration, rules Rules) error {
	if err := validateDuration(d); err != nil {
		return err
	}
	p.Happiness = clamp(p.Happiness - rules.HappinessDelta(p.Category, d))
	return nil
}

// ApplyFeeding lowers hunger by the given amount of food, floored at MinAttribute.
func (p *Pet) ApplyFeeding(food uint, rules Rules) error {
	if food == 0 {
		return fmt.Errorf("%w: food quantity must be positive", ErrInvalidArgument)
	}
	p.Hunger = clamp(p.Hunger - rules.HungerDeltaByFood(p.Category, food))
	return nil
}

// ApplyNotFed raises hunger for going without food during d, capped at MaxAttribute.
func (p *Pet) ApplyNotFed(d time.Duration, rules Rules) error {
	if err := validateDuration(d); err != nil {
		return err
	}
	p.Hunger = clamp(p.Hunger + rules.HungerDeltaByTime(p.Category, d))
	return nil
}

func validateDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %s", ErrInvalidArgument, d)
	}
	return nil
}

// clamp saturates v into [MinAttribute, MaxAttribute].
func clamp(v int) int {
	return max(MinAttribute, min(MaxAttribute, v))
}
