package ecs

import (
	"github.com/argus-labs/erased/pkg/assert"
	"github.com/kelindar/bitmap"
	"github.com/rotisserie/eris"
)

// worldState holds the entity and component data of the world.
type worldState struct {
	components componentManager // Registered component types and their column factories
	entities   entityManager    // Manages entity IDs and archetype mappings
	archetypes []*archetype     // All archetypes that exist where the index is the archetype ID
}

// newWorldState creates a new world state.
func newWorldState() *worldState {
	return &worldState{
		components: newComponentManager(),
		entities:   newEntityManager(),
		archetypes: make([]*archetype, 0),
	}
}

// findOrCreateArchetype finds an existing archetype that matches the component types or creates a
// new archetype if none match.
func (ws *worldState) findOrCreateArchetype(components bitmap.Bitmap) *archetype {
	if arch := ws.archExact(components); arch != nil {
		return arch
	}

	archID := archetypeID(len(ws.archetypes)) // archID = index in archetypes array
	arch := ws.components.createArchetype(archID, components)
	ws.archetypes = append(ws.archetypes, arch)
	return arch
}

// archExact returns the archetype that exactly matches the given component types.
func (ws *worldState) archExact(components bitmap.Bitmap) *archetype {
	for _, arch := range ws.archetypes {
		if arch.exact(components) {
			return arch
		}
	}
	return nil
}

// -------------------------------------------------------------------------------------------------
// Entity Operations
// -------------------------------------------------------------------------------------------------

// spawnEntity places an already reserved entity ID in the world with the given components.
func (ws *worldState) spawnEntity(eid EntityID, components []Component) error {
	compBitmap, err := ws.components.toComponentBitmap(components)
	if err != nil {
		return eris.Wrap(err, "failed to create component bitmap")
	}

	arch := ws.findOrCreateArchetype(compBitmap)
	if err := ws.entities.spawn(eid, arch); err != nil {
		return err
	}

	row, exists := arch.rows.get(eid)
	assert.That(exists, "spawned entity has no row")
	for _, component := range components {
		cid, err := ws.components.idOfComponent(component)
		assert.That(err == nil, "component in bitmap is not registered")
		col, ok := arch.column(cid)
		assert.That(ok, "archetype is missing column %d", cid)
		col.setAbstract(row, component)
	}
	return nil
}

// insertComponent sets a component on an entity. If the entity doesn't have the component yet, it
// is moved to the archetype that has it. The dynamic type of value must be the type cid was
// registered with.
func (ws *worldState) insertComponent(eid EntityID, cid ComponentID, value Component) error {
	arch, err := ws.entities.getArchetype(eid)
	if err != nil {
		return err
	}

	if !arch.hasComponent(cid) {
		newComps := arch.components.Clone(nil)
		newComps.Set(uint32(cid))
		dest := ws.findOrCreateArchetype(newComps)
		if err := ws.entities.move(eid, dest); err != nil {
			return err
		}
		arch = dest
	}

	row, exists := arch.rows.get(eid)
	assert.That(exists, "entity is not in its archetype")
	col, ok := arch.column(cid)
	assert.That(ok, "archetype is missing column %d", cid)
	col.setAbstract(row, value)
	return nil
}

// removeComponent removes a component from an entity by moving it to the archetype without it.
func (ws *worldState) removeComponent(eid EntityID, cid ComponentID) error {
	arch, err := ws.entities.getArchetype(eid)
	if err != nil {
		return err
	}
	if !arch.hasComponent(cid) {
		return eris.Wrapf(ErrComponentNotFound, "component %d on entity %d", cid, eid)
	}

	newComps := arch.components.Clone(nil)
	newComps.Remove(uint32(cid))
	return ws.entities.move(eid, ws.findOrCreateArchetype(newComps))
}

// getComponent returns the boxed component of an entity.
func (ws *worldState) getComponent(eid EntityID, cid ComponentID) (Component, error) {
	arch, err := ws.entities.getArchetype(eid)
	if err != nil {
		return nil, err
	}
	col, ok := arch.column(cid)
	if !ok {
		return nil, eris.Wrapf(ErrComponentNotFound, "component %d on entity %d", cid, eid)
	}
	row, exists := arch.rows.get(eid)
	assert.That(exists, "entity is not in its archetype")
	return col.getAbstract(row), nil
}

// componentIDs returns the IDs of the components of an entity in ascending order.
func (ws *worldState) componentIDs(eid EntityID) ([]ComponentID, error) {
	arch, err := ws.entities.getArchetype(eid)
	if err != nil {
		return nil, err
	}
	ids := make([]ComponentID, len(arch.cids))
	copy(ids, arch.cids)
	return ids, nil
}
