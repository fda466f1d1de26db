package config

import (
	"fmt"
	"time"
)

// LifetimeConfig contains configuration for the background decay worker and
// the per-category attribute rates it shares with the API.
type LifetimeConfig struct {
	Enabled bool          `envconfig:"ENABLED" default:"true"`
	Period  time.Duration `envconfig:"PERIOD" default:"1m" validate:"gt=0"`

	// Rates are expressed per minute (petting, decay) or per food unit. A rate of
	// 100 already moves an attribute across its whole range in one step.
	DogHappiness    int `envconfig:"DOG_HAPPINESS" default:"10" validate:"min=0,max=100"`
	DogHunger       int `envconfig:"DOG_HUNGER" default:"25" validate:"min=0,max=100"`
	CatHappiness    int `envconfig:"CAT_HAPPINESS" default:"3" validate:"min=0,max=100"`
	CatHunger       int `envconfig:"CAT_HUNGER" default:"2" validate:"min=0,max=100"`
	ParrotHappiness int `envconfig:"PARROT_HAPPINESS" default:"1" validate:"min=0,max=100"`
	ParrotHunger    int `envconfig:"PARROT_HUNGER" default:"3" validate:"min=0,max=100"`
}

// Validate checks cross-field rules that struct tags cannot express.
func (l *LifetimeConfig) Validate() error {
	// Decay is applied in whole minutes; a shorter period would never change anything.
	if l.Enabled && l.Period < time.Minute {
		return fmt.Errorf("lifetime period must be at least 1m when enabled, got %s", l.Period)
	}
	return nil
}

// StoreConfig tunes the in-memory pet store.
type StoreConfig struct {
	Shards         int `envconfig:"SHARDS" default:"16" validate:"min=1,max=1024"`
	MaxPetsPerUser int `envconfig:"MAX_PETS_PER_USER" default:"0" validate:"min=0,max=100"`
}

// IdempotencyConfig configures replay protection for petting and feeding requests.
type IdempotencyConfig struct {
	Enabled  bool          `envconfig:"ENABLED" default:"true"`
	Capacity int           `envconfig:"CAPACITY" default:"10000" validate:"min=1"`
	TTL      time.Duration `envconfig:"TTL" default:"10m" validate:"gt=0"`
}
