package attributes

import (
	"github.com/rafaeljc/petlife/internal/config"
	"github.com/rafaeljc/petlife/internal/pet"
)

// TableFromConfig builds the rate table from the PETLIFE_LIFETIME_* settings.
func TableFromConfig(cfg *config.LifetimeConfig) Table {
	return Table{
		pet.CategoryDog:    {Happiness: cfg.DogHappiness, Hunger: cfg.DogHunger},
		pet.CategoryCat:    {Happiness: cfg.CatHappiness, Hunger: cfg.CatHunger},
		pet.CategoryParrot: {Happiness: cfg.ParrotHappiness, Hunger: cfg.ParrotHunger},
	}
}
