package ecs

import "github.com/rotisserie/eris"

var (
	// ErrEntityNotFound is returned when attempting to operate on a non-existent entity
	// or when an entity cannot be found in the expected location.
	ErrEntityNotFound = eris.New("entity does not exist")

	// ErrComponentNotFound is returned when an entity doesn't contain the requested component.
	ErrComponentNotFound = eris.New("component not found on entity")

	// ErrComponentNotRegistered is returned when a component type is used before it is registered
	// with the world.
	ErrComponentNotRegistered = eris.New("component is not registered")
)
