// Package events publishes petlife domain events to Redis Pub/Sub.
//
// Events are notifications, not a source of truth: nothing in petlife reads
// them back, and a lost event never affects the in-memory state.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/rafaeljc/petlife/internal/pet"
)

// Type names a domain event on the wire.
type Type string

const (
	UserRegistered Type = "user.registered"
	UserRemoved    Type = "user.removed"
	PetCreated     Type = "pet.created"
	PetPetted      Type = "pet.petted"
	PetFed         Type = "pet.fed"
	PetDecayed     Type = "pet.decayed"
	PetRemoved     Type = "pet.removed"
)

// Event is the JSON document published for every successful mutation.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       Type      `json:"type"`
	User       string    `json:"user"`
	Pet        string    `json:"pet,omitempty"`
	State      *pet.Pet  `json:"state,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewUserEvent builds an event about a user.
func NewUserEvent(t Type, user string) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		User:       user,
		OccurredAt: time.Now().UTC(),
	}
}

// NewPetEvent builds an event about a pet. state is the pet after the
// mutation; pass pet.Empty for removals.
func NewPetEvent(t Type, user string, state pet.Pet) Event {
	e := NewUserEvent(t, user)
	e.Pet = state.Name
	if t != PetRemoved {
		e.State = &state
	}
	return e
}
