package store_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/petlife/internal/pet"
	"github.com/rafaeljc/petlife/internal/store"
)

func TestMemoryUserStore(t *testing.T) {
	t.Run("Should round-trip and overwrite by name", func(t *testing.T) {
		s := store.NewMemoryUserStore()

		require.NoError(t, s.UpsertUser(pet.User{Name: "Alex"}))
		require.NoError(t, s.UpsertUser(pet.User{Name: "Alex"}))

		got, ok := s.GetUser("Alex")
		assert.True(t, ok)
		assert.Equal(t, pet.User{Name: "Alex"}, got)
		assert.Len(t, s.ListUsers(), 1)
	})

	t.Run("Should return the empty sentinel on a miss", func(t *testing.T) {
		s := store.NewMemoryUserStore()

		got, ok := s.GetUser("Nobody")
		assert.False(t, ok)
		assert.True(t, got.IsEmpty())
	})

	t.Run("Should reject the empty sentinel", func(t *testing.T) {
		s := store.NewMemoryUserStore()

		assert.ErrorIs(t, s.UpsertUser(pet.EmptyUser), store.ErrEmptyName)
		assert.Zero(t, s.Count())
	})

	t.Run("Should report whether a removal happened", func(t *testing.T) {
		s := store.NewMemoryUserStore()
		require.NoError(t, s.UpsertUser(pet.User{Name: "Alex"}))

		assert.True(t, s.RemoveUser("Alex"))
		assert.False(t, s.RemoveUser("Alex"))
		assert.Empty(t, s.ListUsers())
	})

	t.Run("Should be safe for concurrent callers", func(t *testing.T) {
		s := store.NewMemoryUserStore()

		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(2)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, s.UpsertUser(pet.User{Name: fmt.Sprintf("user-%02d", i)}))
			}(i)
			go func() {
				defer wg.Done()
				_ = s.ListUsers()
			}()
		}
		wg.Wait()

		assert.Equal(t, 50, s.Count())
	})
}
