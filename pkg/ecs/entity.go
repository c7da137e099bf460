package ecs

import (
	"math"
	"sync"

	"github.com/argus-labs/erased/pkg/assert"
	"github.com/rotisserie/eris"
)

// EntityID is a unique identifier for an entity.
type EntityID uint32

// MaxEntityID is the maximum entity ID that can be created.
const MaxEntityID = math.MaxUint32 - 1

// entityManager manages entity IDs and references to their associated archetypes. This struct acts
// as an index/mapping from entity ID to its archetype to avoid iterating through all archetypes.
//
// IDs are handed out in two steps. reserve allocates an ID and may be called from systems running
// concurrently, which is why it takes the mutex. spawn places a reserved ID into an archetype and
// only runs while commands are being applied, so it has exclusive access to the world.
type entityManager struct {
	nextID     EntityID                // The next ID to allocate if no free IDs are available
	free       []EntityID              // A queue of free IDs
	entityArch map[EntityID]*archetype // Maps entity IDs to archetypes
	mu         sync.Mutex              // Guards nextID and free
}

// newEntityManager creates a new entity manager.
func newEntityManager() entityManager {
	return entityManager{
		nextID:     0,
		free:       make([]EntityID, 0),
		entityArch: make(map[EntityID]*archetype),
		mu:         sync.Mutex{},
	}
}

// reserve returns an entity ID that isn't alive and isn't handed out to anyone else.
func (em *entityManager) reserve() (EntityID, error) {
	em.mu.Lock()
	defer em.mu.Unlock()

	if len(em.free) > 0 {
		// Pop from the front of the free list (FIFO).
		id := em.free[0]
		em.free = em.free[1:]
		return id, nil
	}

	id := em.nextID
	if id > MaxEntityID {
		return 0, eris.New("max number of entities exceeded")
	}
	em.nextID++
	return id, nil
}

// release hands a reserved ID that was never spawned back to the free list.
func (em *entityManager) release(id EntityID) {
	assert.That(!em.isAlive(id), "released entity %d is alive", id)

	em.mu.Lock()
	em.free = append(em.free, id)
	em.mu.Unlock()
}

// spawn places a reserved entity ID in the given archetype.
func (em *entityManager) spawn(id EntityID, arch *archetype) error {
	assert.That(arch != nil, "archetype must not be nil")

	if em.isAlive(id) {
		return eris.Errorf("entity %d is already alive", id)
	}
	arch.newEntity(id)
	em.entityArch[id] = arch
	return nil
}

// remove removes the entity from its archetype and marks its ID as available for reuse.
func (em *entityManager) remove(id EntityID) error {
	arch, exists := em.entityArch[id]
	if !exists {
		return eris.Wrapf(ErrEntityNotFound, "entity %d", id)
	}

	arch.removeEntity(id)
	delete(em.entityArch, id)

	em.mu.Lock()
	em.free = append(em.free, id)
	em.mu.Unlock()

	return nil
}

// move moves an entity from its current archetype to another, carrying over the component values
// the destination archetype has columns for.
func (em *entityManager) move(id EntityID, dest *archetype) error {
	current, err := em.getArchetype(id)
	if err != nil {
		return err
	}
	assert.That(current != dest, "entity moved into its existing archetype")

	current.moveEntity(dest, id)
	em.entityArch[id] = dest
	return nil
}

// isAlive checks if an entity ID is currently placed in an archetype.
func (em *entityManager) isAlive(id EntityID) bool {
	_, exists := em.entityArch[id]
	return exists
}

// getArchetype returns the archetype associated with the given entity.
// Returns ErrEntityNotFound if the entity does not exist.
func (em *entityManager) getArchetype(id EntityID) (*archetype, error) {
	arch, exists := em.entityArch[id]
	if !exists {
		return nil, eris.Wrapf(ErrEntityNotFound, "entity %d", id)
	}
	return arch, nil
}
