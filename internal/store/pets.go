package store

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/spaolacci/murmur3"

	"github.com/rafaeljc/petlife/internal/pet"
)

// Compile-time check to verify that MemoryPetStore implements PetRepository.
var _ PetRepository = (*MemoryPetStore)(nil)

// UserPets groups the pets of a single owner inside a snapshot.
type UserPets struct {
	UserName string
	Pets     []pet.Pet
}

// PetRepository defines the registry mapping owners to their pet collections.
//
// Read-modify-write sequences (GetPet, mutate, UpsertPet) are last-writer-wins:
// two writers that read the same pet before either writes lose one update.
// Since UpsertPet appends unknown names, a pet removed between another
// writer's read and its UpsertPet comes back.
type PetRepository interface {
	// ListAllPets returns a consistent point-in-time snapshot grouped by owner.
	// The returned slices never alias internal storage.
	ListAllPets() []UserPets

	// ListPets returns a copy of the owner's pets. Unknown owners yield an empty slice.
	ListPets(userName string) []pet.Pet

	// GetPet returns the pet and true, or pet.Empty and false.
	GetPet(userName, petName string) (pet.Pet, bool)

	// UpsertPet replaces the owner's pet with the same name, or appends it.
	UpsertPet(userName string, p pet.Pet) error

	// RemovePet deletes the named pet and reports whether it existed.
	RemovePet(userName, petName string) bool
}

// PetStoreOptions tunes MemoryPetStore.
type PetStoreOptions struct {
	// Shards is the number of independently locked partitions.
	// One shard is a single global lock.
	Shards int

	// MaxPetsPerUser bounds each collection. Zero disables the bound.
	MaxPetsPerUser int
}

// petShard is one lock-protected partition of the store.
type petShard struct {
	mu     sync.RWMutex
	byUser map[string][]pet.Pet
}

// MemoryPetStore keeps every collection in memory, partitioned by a hash of
// the owner's name. A user's collection always lives in exactly one shard.
type MemoryPetStore struct {
	shards  []*petShard
	maxPets int
}

// NewMemoryPetStore creates an empty pet registry.
func NewMemoryPetStore(opts PetStoreOptions) *MemoryPetStore {
	n := opts.Shards
	if n < 1 {
		n = 1
	}

	shards := make([]*petShard, n)
	for i := range shards {
		shards[i] = &petShard{byUser: make(map[string][]pet.Pet)}
	}

	return &MemoryPetStore{
		shards:  shards,
		maxPets: max(0, opts.MaxPetsPerUser),
	}
}

// shardFor selects the partition holding userName's collection.
func (s *MemoryPetStore) shardFor(userName string) *petShard {
	if len(s.shards) == 1 {
		return s.shards[0]
	}
	h := murmur3.Sum32([]byte(userName))
	return s.shards[h%uint32(len(s.shards))]
}

func (s *MemoryPetStore) ListAllPets() []UserPets {
	// Read-lock every shard, always in index order, so the result reflects a
	// single instant. Writers only ever hold one shard lock.
	for _, sh := range s.shards {
		sh.mu.RLock()
	}

	var out []UserPets
	for _, sh := range s.shards {
		for user, pets := range sh.byUser {
			out = append(out, UserPets{UserName: user, Pets: slices.Clone(pets)})
		}
	}

	for i := len(s.shards) - 1; i >= 0; i-- {
		s.shards[i].mu.RUnlock()
	}

	slices.SortFunc(out, func(a, b UserPets) int {
		return strings.Compare(a.UserName, b.UserName)
	})
	return out
}

func (s *MemoryPetStore) ListPets(userName string) []pet.Pet {
	sh := s.shardFor(userName)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	pets, ok := sh.byUser[userName]
	if !ok {
		return []pet.Pet{}
	}
	return slices.Clone(pets)
}

func (s *MemoryPetStore) GetPet(userName, petName string) (pet.Pet, bool) {
	sh := s.shardFor(userName)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	pets := sh.byUser[userName]
	if i := indexByName(pets, petName); i >= 0 {
		return pets[i], true
	}
	return pet.Empty, false
}

func (s *MemoryPetStore) UpsertPet(userName string, p pet.Pet) error {
	if p.IsEmpty() {
		return ErrEmptyName
	}

	sh := s.shardFor(userName)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	pets, ok := sh.byUser[userName]
	if !ok {
		sh.byUser[userName] = []pet.Pet{p}
		return nil
	}

	if i := indexByName(pets, p.Name); i >= 0 {
		pets[i] = p
		return nil
	}

	if s.maxPets > 0 && len(pets) >= s.maxPets {
		return fmt.Errorf("%w: user %q already owns %d pets", ErrResourceExhausted, userName, len(pets))
	}
	sh.byUser[userName] = append(pets, p)
	return nil
}

func (s *MemoryPetStore) RemovePet(userName, petName string) bool {
	sh := s.shardFor(userName)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	pets, ok := sh.byUser[userName]
	if !ok {
		return false
	}

	i := indexByName(pets, petName)
	if i < 0 {
		return false
	}
	sh.byUser[userName] = slices.Delete(pets, i, i+1)
	return true
}

// Count returns the total number of stored pets.
func (s *MemoryPetStore) Count() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, pets := range sh.byUser {
			total += len(pets)
		}
		sh.mu.RUnlock()
	}
	return total
}

func indexByName(pets []pet.Pet, name string) int {
	return slices.IndexFunc(pets, func(p pet.Pet) bool { return p.Name == name })
}
