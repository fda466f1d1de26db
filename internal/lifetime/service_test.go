package lifetime_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/petlife/internal/attributes"
	"github.com/rafaeljc/petlife/internal/events"
	"github.com/rafaeljc/petlife/internal/lifetime"
	"github.com/rafaeljc/petlife/internal/observability"
	"github.com/rafaeljc/petlife/internal/pet"
	"github.com/rafaeljc/petlife/internal/store"
	"github.com/rafaeljc/petlife/internal/testsupport"
)

// recordingNotifier keeps every event it receives.
type recordingNotifier struct {
	mu  sync.Mutex
	got []events.Event
}

func (n *recordingNotifier) Notify(e events.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, e)
}

func (n *recordingNotifier) events() []events.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]events.Event(nil), n.got...)
}

// failingStore rejects writes for one pet name.
type failingStore struct {
	*store.MemoryPetStore
	failFor string
}

func (s *failingStore) UpsertPet(user string, p pet.Pet) error {
	if p.Name == s.failFor {
		return errors.New("disk on fire")
	}
	return s.MemoryPetStore.UpsertPet(user, p)
}

// panickyRules panics for parrots and delegates everything else.
type panickyRules struct {
	pet.Rules
}

func (r panickyRules) HungerDeltaByTime(c pet.Category, d time.Duration) int {
	if c == pet.CategoryParrot {
		panic("parrot overflow")
	}
	return r.Rules.HungerDeltaByTime(c, d)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(pets store.PetRepository, rules pet.Rules, n lifetime.Notifier) *lifetime.Service {
	return lifetime.New(quietLogger(), lifetime.Config{Period: time.Minute}, pets, rules, n)
}

func TestService_Tick(t *testing.T) {
	ctx := context.Background()
	engine := attributes.MustNewEngine(attributes.DefaultTable())

	t.Run("Should decay a cat by one minute", func(t *testing.T) {
		pets := store.NewMemoryPetStore(store.PetStoreOptions{Shards: 4})
		require.NoError(t, pets.UpsertPet("Alex", pet.New("Tom", pet.CategoryCat)))
		n := &recordingNotifier{}

		res, err := newService(pets, engine, n).Tick(ctx)
		require.NoError(t, err)

		assert.Equal(t, lifetime.TickResult{Decayed: 1}, res)
		got, ok := pets.GetPet("Alex", "Tom")
		require.True(t, ok)
		assert.Equal(t, 47, got.Happiness)
		assert.Equal(t, 52, got.Hunger)

		evs := n.events()
		require.Len(t, evs, 1)
		assert.Equal(t, events.PetDecayed, evs[0].Type)
		assert.Equal(t, got, *evs[0].State)
	})

	t.Run("Should clamp at the bounds after repeated ticks", func(t *testing.T) {
		pets := store.NewMemoryPetStore(store.PetStoreOptions{Shards: 1})
		require.NoError(t, pets.UpsertPet("Alex", pet.New("Rex", pet.CategoryDog)))
		svc := newService(pets, engine, &recordingNotifier{})

		for range 5 {
			_, err := svc.Tick(ctx)
			require.NoError(t, err)
		}

		got, _ := pets.GetPet("Alex", "Rex")
		assert.Equal(t, pet.MinAttribute, got.Happiness)
		assert.Equal(t, pet.MaxAttribute, got.Hunger)
	})

	t.Run("Should be a no-op on an empty store", func(t *testing.T) {
		pets := store.NewMemoryPetStore(store.PetStoreOptions{Shards: 1})
		n := &recordingNotifier{}
		svc := newService(pets, engine, n)

		res, err := svc.Tick(ctx)
		require.NoError(t, err)

		assert.Equal(t, lifetime.TickResult{}, res)
		assert.Empty(t, n.events())
		assert.False(t, svc.LastTick().IsZero(), "an empty tick still counts as completed")
	})

	t.Run("Should isolate a failing write", func(t *testing.T) {
		pets := &failingStore{MemoryPetStore: store.NewMemoryPetStore(store.PetStoreOptions{Shards: 2}), failFor: "Tom"}
		require.NoError(t, pets.MemoryPetStore.UpsertPet("Alex", pet.New("Tom", pet.CategoryCat)))
		require.NoError(t, pets.MemoryPetStore.UpsertPet("Sam", pet.New("Kiwi", pet.CategoryCat)))

		var res lifetime.TickResult
		testsupport.AssertDecayed(t, observability.StatusFailure, 1, func() {
			var err error
			res, err = newService(pets, engine, &recordingNotifier{}).Tick(ctx)
			require.NoError(t, err)
		})

		assert.Equal(t, lifetime.TickResult{Decayed: 1, Failed: 1}, res)
		tom, _ := pets.GetPet("Alex", "Tom")
		assert.Equal(t, pet.DefaultHunger, tom.Hunger, "failed pet keeps its previous state")
		kiwi, _ := pets.GetPet("Sam", "Kiwi")
		assert.Equal(t, 52, kiwi.Hunger)
	})

	t.Run("Should recover from a panic in the rules", func(t *testing.T) {
		pets := store.NewMemoryPetStore(store.PetStoreOptions{Shards: 1})
		require.NoError(t, pets.UpsertPet("Alex", pet.New("Polly", pet.CategoryParrot)))
		require.NoError(t, pets.UpsertPet("Alex", pet.New("Tom", pet.CategoryCat)))

		res, err := newService(pets, panickyRules{Rules: engine}, &recordingNotifier{}).Tick(ctx)
		require.NoError(t, err)

		assert.Equal(t, lifetime.TickResult{Decayed: 1, Failed: 1}, res)
		polly, _ := pets.GetPet("Alex", "Polly")
		assert.Equal(t, pet.New("Polly", pet.CategoryParrot), polly)
	})

	t.Run("Should stop between pets when cancelled", func(t *testing.T) {
		pets := store.NewMemoryPetStore(store.PetStoreOptions{Shards: 1})
		require.NoError(t, pets.UpsertPet("Alex", pet.New("Tom", pet.CategoryCat)))

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		res, err := newService(pets, engine, &recordingNotifier{}).Tick(cancelled)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, res.Decayed)

		tom, _ := pets.GetPet("Alex", "Tom")
		assert.Equal(t, pet.DefaultHunger, tom.Hunger)
	})

	t.Run("Should record the tick duration", func(t *testing.T) {
		pets := store.NewMemoryPetStore(store.PetStoreOptions{Shards: 1})
		_, err := newService(pets, engine, &recordingNotifier{}).Tick(ctx)
		require.NoError(t, err)

		testsupport.AssertHistogramRecorded(t, testsupport.MetricTickDuration, nil)
	})
}

func TestService_Run(t *testing.T) {
	t.Run("Should return when the context is cancelled", func(t *testing.T) {
		pets := store.NewMemoryPetStore(store.PetStoreOptions{Shards: 1})
		require.NoError(t, pets.UpsertPet("Alex", pet.New("Tom", pet.CategoryCat)))
		svc := newService(pets, attributes.MustNewEngine(attributes.DefaultTable()), &recordingNotifier{})

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Run(ctx) }()

		require.Eventually(t, func() bool { return svc.Check(ctx) == nil }, time.Second, 5*time.Millisecond)
		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not return after cancellation")
		}

		tom, _ := pets.GetPet("Alex", "Tom")
		assert.Equal(t, pet.DefaultHunger, tom.Hunger, "no decay before the first period elapsed")
		assert.True(t, svc.LastTick().IsZero())
	})
}

func TestService_RunTicks(t *testing.T) {
	pets := store.NewMemoryPetStore(store.PetStoreOptions{Shards: 1})
	require.NoError(t, pets.UpsertPet("Alex", pet.New("Tom", pet.CategoryCat)))
	n := &recordingNotifier{}

	// Sub-minute periods tick without changing attributes.
	svc := lifetime.New(quietLogger(), lifetime.Config{Period: 10 * time.Millisecond}, pets,
		attributes.MustNewEngine(attributes.DefaultTable()), n)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool { return len(n.events()) >= 3 }, 2*time.Second, 5*time.Millisecond,
		"Run should tick once per period")
	assert.False(t, svc.LastTick().IsZero())

	for _, e := range n.events() {
		assert.Equal(t, events.PetDecayed, e.Type)
		assert.Equal(t, "Alex", e.User)
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	tom, _ := pets.GetPet("Alex", "Tom")
	assert.Equal(t, pet.New("Tom", pet.CategoryCat), tom)
}

func TestNew_Panics(t *testing.T) {
	engine := attributes.MustNewEngine(attributes.DefaultTable())
	pets := store.NewMemoryPetStore(store.PetStoreOptions{Shards: 1})

	assert.Panics(t, func() { lifetime.New(nil, lifetime.Config{}, nil, engine, &recordingNotifier{}) })
	assert.Panics(t, func() { lifetime.New(nil, lifetime.Config{}, pets, nil, &recordingNotifier{}) })
	assert.Panics(t, func() { lifetime.New(nil, lifetime.Config{}, pets, engine, nil) })
}
