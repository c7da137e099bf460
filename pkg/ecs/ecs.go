package ecs

import (
	"fmt"
	"reflect"

	"github.com/rotisserie/eris"
)

// The functions in this file mutate the world immediately. Systems must not call the mutating ones
// while other systems may be running; they record commands instead, which are applied with these.

// Spawn creates an entity with the given components and returns its ID.
func Spawn(w *World, components ...Component) (EntityID, error) {
	eid, err := w.state.entities.reserve()
	if err != nil {
		return 0, err
	}
	if err := w.state.spawnEntity(eid, components); err != nil {
		w.state.entities.release(eid)
		return 0, err
	}
	return eid, nil
}

// Despawn deletes an entity and all its components from the world.
func Despawn(w *World, eid EntityID) error {
	return w.state.entities.remove(eid)
}

// Alive checks if an entity exists in the world.
func Alive(w *World, eid EntityID) bool {
	return w.state.entities.isAlive(eid)
}

// Insert sets a component on an entity. If the entity contains the component type, it will update
// the value. If it doesn't, it will add the component.
func Insert[T Component](w *World, eid EntityID, component T) error {
	cid, ok := w.state.components.idOfType(reflect.TypeFor[T]())
	if !ok {
		return eris.Wrapf(ErrComponentNotRegistered, "component %s", component.Name())
	}
	return w.state.insertComponent(eid, cid, component)
}

// Get gets a component from an entity.
// Returns an error if the entity doesn't exist or doesn't contain the component type.
func Get[T Component](w *World, eid EntityID) (T, error) {
	var zero T

	cid, ok := w.state.components.idOfType(reflect.TypeFor[T]())
	if !ok {
		return zero, eris.Wrapf(ErrComponentNotRegistered, "component %s", zero.Name())
	}
	arch, err := w.state.entities.getArchetype(eid)
	if err != nil {
		return zero, err
	}
	col, ok := arch.column(cid)
	if !ok {
		return zero, eris.Wrapf(ErrComponentNotFound, "component %s on entity %d", zero.Name(), eid)
	}
	row, _ := arch.rows.get(eid)
	return col.(*column[T]).get(row), nil //nolint:errcheck // columns are created from T's factory
}

// Has checks if an entity has a specific component type.
// Returns false if either the entity doesn't exist or doesn't have the component.
func Has[T Component](w *World, eid EntityID) bool {
	cid, ok := w.state.components.idOfType(reflect.TypeFor[T]())
	if !ok {
		return false
	}
	arch, err := w.state.entities.getArchetype(eid)
	if err != nil {
		return false
	}
	return arch.hasComponent(cid)
}

// Remove removes a component from an entity.
// Returns an error if the entity or the component to remove doesn't exist.
func Remove[T Component](w *World, eid EntityID) error {
	var zero T
	cid, ok := w.state.components.idOfType(reflect.TypeFor[T]())
	if !ok {
		return eris.Wrapf(ErrComponentNotRegistered, "component %s", zero.Name())
	}
	return w.state.removeComponent(eid, cid)
}

// InsertByID sets a component on an entity when only its component ID is known. It's the single
// write path for components whose type isn't known at compile time.
//
// The dynamic type of value must be exactly the type cid was registered with. An unknown cid or a
// mismatched value is a programming error and panics. Errors are only returned for conditions of
// the entity itself, e.g. when it doesn't exist.
func InsertByID(w *World, eid EntityID, cid ComponentID, value Component) error {
	want := w.state.components.typeOfID(cid)
	if want == nil {
		panic(fmt.Sprintf("ecs: component id %d is not registered", cid))
	}
	if got := reflect.TypeOf(value); got != want {
		panic(fmt.Sprintf("ecs: component id %d stores %s, got %v", cid, want, got))
	}
	return w.state.insertComponent(eid, cid, value)
}

// GetByID returns the boxed component of an entity by component ID.
func GetByID(w *World, eid EntityID, cid ComponentID) (Component, error) {
	return w.state.getComponent(eid, cid)
}

// Inspect returns the component IDs of an entity in ascending order.
func Inspect(w *World, eid EntityID) ([]ComponentID, error) {
	return w.state.componentIDs(eid)
}
