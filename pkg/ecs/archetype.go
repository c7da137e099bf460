package ecs

import (
	"github.com/argus-labs/erased/pkg/assert"
	"github.com/kelindar/bitmap"
)

// archetypeID is the unique identifier for an archetype.
// It is used internally to track and manage archetypes efficiently.
type archetypeID = int

// archetype represents a collection of entities with the same component types.
// NOTE: We store the compCount instead of using Bitmap.Count() because counting bits is O(n). We
// store columns in a slice instead of a map because it's faster for small # of components. cids and
// columns are parallel slices sorted by component ID.
type archetype struct {
	id         archetypeID   // Corresponds to the index in the archetypes array
	components bitmap.Bitmap // Bitmap of components contained in this archetype
	rows       sparseSet
	entities   []EntityID       // List of entities of this archetype
	cids       []ComponentID    // Component ID of each column
	columns    []abstractColumn // List of columns containing component data
	compCount  int              // Number of component types in the archetype
}

// newArchetype creates an archetype for the given component types.
func newArchetype(
	aid archetypeID, components bitmap.Bitmap, cids []ComponentID, columns []abstractColumn,
) *archetype {
	assert.That(components.Count() == len(columns), "mismatched number of columns and components")
	assert.That(len(cids) == len(columns), "mismatched number of columns and component ids")
	return &archetype{
		id:         aid,
		components: components,
		rows:       newSparseSet(),
		entities:   make([]EntityID, 0),
		cids:       cids,
		columns:    columns,
		compCount:  len(columns),
	}
}

// exact returns true if the given components matches the archetype's exactly.
func (a *archetype) exact(components bitmap.Bitmap) bool {
	if a.compCount != components.Count() {
		return false
	}
	return a.contains(components)
}

// contains returns true if the archetype contains all of the components in the given components.
func (a *archetype) contains(components bitmap.Bitmap) bool {
	intersect := components.Clone(nil)
	intersect.And(a.components)
	return intersect.Count() == components.Count()
}

// hasComponent returns true if the archetype has a column for the component.
func (a *archetype) hasComponent(cid ComponentID) bool {
	return a.components.Contains(uint32(cid))
}

// column returns the column storing the given component.
func (a *archetype) column(cid ComponentID) (abstractColumn, bool) {
	for i, id := range a.cids {
		if id == cid {
			return a.columns[i], true
		}
	}
	return nil, false
}

// -------------------------------------------------------------------------------------------------
// Entity operations
// -------------------------------------------------------------------------------------------------

// newEntity adds the entity to the archetype. It initializes the entity's components with their
// zero values. This is done to ensure the length of each column matches the length of the entities
// slice.
func (a *archetype) newEntity(eid EntityID) {
	a.entities = append(a.entities, eid)

	for _, column := range a.columns {
		column.extend()
		assert.That(column.len() == len(a.entities), "column components length doesn't match entities")
	}

	a.rows.set(eid, len(a.entities)-1)
}

// removeEntity removes an entity from the archetype. A remove swaps the last entity in the slice
// with the entity to remove. Expects the caller to check that the entity belongs to this archetype.
func (a *archetype) removeEntity(eid EntityID) {
	row, exists := a.rows.get(eid)
	assert.That(exists, "entity is not in archetype")

	lastIndex := len(a.entities) - 1

	// Swap the entity to remove with the last entity in the array.
	a.entities[row] = a.entities[lastIndex]
	// Truncate the array to remove the last entity.
	a.entities = a.entities[:lastIndex]

	// Remove the components of the entity.
	for _, column := range a.columns {
		column.remove(row)
		assert.That(column.len() == len(a.entities), "column components length doesn't match entities")
	}

	ok := a.rows.remove(eid)
	assert.That(ok, "entity isn't removed from sparse set")

	// If the entity is the last item in the slice, nothing is swapped so we can just return.
	if row == lastIndex {
		return
	}

	// Else, we update the swapped entity metadata to point to the correct row.
	movedID := a.entities[row]
	a.rows.set(movedID, row)
}

// moveEntity moves an entity from one archetype to another. It creates a new entity in the
// destination archetype, copies the component data both archetypes have in common, and removes the
// entity from the current archetype.
func (a *archetype) moveEntity(destination *archetype, eid EntityID) {
	row, exists := a.rows.get(eid)
	assert.That(exists, "entity is not in archetype")

	destination.newEntity(eid)
	newRow, exists := destination.rows.get(eid)
	assert.That(exists, "new entity isn't created in the destination archetype")

	for i, dst := range destination.columns {
		src, ok := a.column(destination.cids[i])
		if !ok {
			continue
		}
		dst.setAbstract(newRow, src.getAbstract(row))
	}

	a.removeEntity(eid)
}
