package ecs

import "github.com/argus-labs/erased/pkg/assert"

// sparseSet maps an entity ID to its row in an archetype. It's indexed directly by entity ID, so
// lookups are a bounds check and a load. Slots without an entity hold sparseTombstone.
type sparseSet []int

const (
	sparseCapacity  = 128 // Initial number of slots
	sparseTombstone = -1  // Marks a slot without an entity
)

// newSparseSet creates a sparse set with sparseCapacity empty slots.
func newSparseSet() sparseSet {
	var s sparseSet
	s.grow(sparseCapacity)
	return s
}

// grow extends the set to at least n slots, filling the new ones with tombstones. The set at least
// doubles so that spawning entities with increasing IDs stays amortized O(1).
func (s *sparseSet) grow(n int) {
	old := len(*s)
	if n <= old {
		return
	}
	grown := make(sparseSet, max(old*2, n))
	copy(grown, *s)
	for i := old; i < len(grown); i++ {
		grown[i] = sparseTombstone
	}
	*s = grown
}

// get returns the row of an entity and whether the entity is in the set.
func (s *sparseSet) get(eid EntityID) (int, bool) {
	if int(eid) >= len(*s) {
		return 0, false
	}
	row := (*s)[eid]
	return row, row != sparseTombstone
}

// set stores the row of an entity.
func (s *sparseSet) set(eid EntityID, row int) {
	assert.That(row >= 0, "row %d of entity %d must not be negative", row, eid)
	s.grow(int(eid) + 1)
	(*s)[eid] = row
}

// remove clears the row of an entity. Returns false if the entity wasn't in the set.
func (s *sparseSet) remove(eid EntityID) bool {
	if _, ok := s.get(eid); !ok {
		return false
	}
	(*s)[eid] = sparseTombstone
	return true
}
