package lifetime_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/petlife/internal/attributes"
	"github.com/rafaeljc/petlife/internal/lifetime"
	"github.com/rafaeljc/petlife/internal/pet"
	"github.com/rafaeljc/petlife/internal/store"
)

// assertStoreInvariants checks every attribute range and name uniqueness.
func assertStoreInvariants(t *testing.T, pets *store.MemoryPetStore) {
	t.Helper()

	for _, up := range pets.ListAllPets() {
		seen := make(map[string]bool, len(up.Pets))
		for _, p := range up.Pets {
			assert.False(t, seen[p.Name], "user %s owns %s twice", up.UserName, p.Name)
			seen[p.Name] = true

			assert.GreaterOrEqual(t, p.Happiness, pet.MinAttribute, p.String())
			assert.LessOrEqual(t, p.Happiness, pet.MaxAttribute, p.String())
			assert.GreaterOrEqual(t, p.Hunger, pet.MinAttribute, p.String())
			assert.LessOrEqual(t, p.Hunger, pet.MaxAttribute, p.String())
		}
	}
}

func TestService_TickConcurrentWithWriters(t *testing.T) {
	const (
		ticks   = 10
		writers = 8
	)

	engine := attributes.MustNewEngine(attributes.DefaultTable())
	pets := store.NewMemoryPetStore(store.PetStoreOptions{Shards: 4})

	// Nobody but the ticker writes to this owner's pets.
	require.NoError(t, pets.UpsertPet("Quiet", pet.New("Tom", pet.CategoryCat)))
	require.NoError(t, pets.UpsertPet("Quiet", pet.New("Polly", pet.CategoryParrot)))

	for w := range writers {
		user := fmt.Sprintf("Busy%d", w)
		require.NoError(t, pets.UpsertPet(user, pet.New("Buddy", pet.CategoryDog)))
		require.NoError(t, pets.UpsertPet(user, pet.New("Kiwi", pet.CategoryParrot)))
	}

	svc := newService(pets, engine, &recordingNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var (
		wg         sync.WaitGroup
		operations atomic.Int64
	)
	for w := range writers {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			for i := 0; ctx.Err() == nil; i++ {
				switch i % 4 {
				case 0:
					if p, ok := pets.GetPet(user, "Buddy"); ok {
						_ = p.ApplyPetting(time.Minute, engine)
						_ = pets.UpsertPet(user, p)
					}
				case 1:
					if p, ok := pets.GetPet(user, "Kiwi"); ok {
						_ = p.ApplyFeeding(3, engine)
						_ = pets.UpsertPet(user, p)
					}
				case 2:
					pets.RemovePet(user, "Kiwi")
				case 3:
					if _, ok := pets.GetPet(user, "Kiwi"); !ok {
						_ = pets.UpsertPet(user, pet.New("Kiwi", pet.CategoryParrot))
					}
				}
				operations.Add(1)
			}
		}(fmt.Sprintf("Busy%d", w))
	}

	for range ticks {
		_, err := svc.Tick(ctx)
		require.NoError(t, err)
		assertStoreInvariants(t, pets)
	}

	cancel()
	wg.Wait()
	assertStoreInvariants(t, pets)
	assert.Positive(t, operations.Load(), "writers never ran")

	t.Run("Should apply every tick exactly once to untouched pets", func(t *testing.T) {
		tom, ok := pets.GetPet("Quiet", "Tom")
		require.True(t, ok)
		assert.Equal(t, pet.DefaultHappiness-3*ticks, tom.Happiness)
		assert.Equal(t, pet.DefaultHunger+2*ticks, tom.Hunger)

		polly, ok := pets.GetPet("Quiet", "Polly")
		require.True(t, ok)
		assert.Equal(t, pet.DefaultHappiness-1*ticks, polly.Happiness)
		assert.Equal(t, pet.DefaultHunger+3*ticks, polly.Hunger)
	})

	t.Run("Should keep one pet per name for contested owners", func(t *testing.T) {
		for w := range writers {
			user := fmt.Sprintf("Busy%d", w)
			names := make(map[string]int)
			for _, p := range pets.ListPets(user) {
				names[p.Name]++
			}
			assert.Equal(t, 1, names["Buddy"], user)
			assert.LessOrEqual(t, names["Kiwi"], 1, user)
		}
	})
}

func TestService_ConcurrentTicksStayInRange(t *testing.T) {
	engine := attributes.MustNewEngine(attributes.DefaultTable())
	pets := store.NewMemoryPetStore(store.PetStoreOptions{Shards: 2})
	for i := range 20 {
		require.NoError(t, pets.UpsertPet(fmt.Sprintf("User%d", i%5), pet.New(fmt.Sprintf("Pet%d", i), pet.CategoryDog)))
	}

	svc := lifetime.New(quietLogger(), lifetime.Config{Period: time.Minute}, pets, engine, &recordingNotifier{})

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 5 {
				_, err := svc.Tick(context.Background())
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assertStoreInvariants(t, pets)
	assert.Equal(t, 20, pets.Count())
}
