package ecs

import (
	"reflect"
	"sync"
)

// resources holds singleton values shared by the whole world, keyed by their type. Values are
// stored as pointers so callers can mutate them in place.
type resources struct {
	values map[reflect.Type]any
	mu     sync.RWMutex
}

func newResources() resources {
	return resources{values: make(map[reflect.Type]any)}
}

// SetResource inserts or replaces the resource of type T.
func SetResource[T any](w *World, value T) {
	w.resources.mu.Lock()
	defer w.resources.mu.Unlock()
	w.resources.values[reflect.TypeFor[T]()] = &value
}

// GetResource returns a pointer to the resource of type T, or false if it was never set.
func GetResource[T any](w *World) (*T, bool) {
	w.resources.mu.RLock()
	defer w.resources.mu.RUnlock()
	value, ok := w.resources.values[reflect.TypeFor[T]()]
	if !ok {
		return nil, false
	}
	return value.(*T), true //nolint:errcheck // keyed by T
}

// InitResource returns the resource of type T, inserting its zero value first if it doesn't exist.
func InitResource[T any](w *World) *T {
	w.resources.mu.Lock()
	defer w.resources.mu.Unlock()
	typ := reflect.TypeFor[T]()
	if value, ok := w.resources.values[typ]; ok {
		return value.(*T) //nolint:errcheck // keyed by T
	}
	value := new(T)
	w.resources.values[typ] = value
	return value
}

// InitResourceWith returns the resource of type T, inserting the value built by init first if it
// doesn't exist. init runs under the resource lock and is called at most once per resource, so it
// must not access the world's resources itself.
func InitResourceWith[T any](w *World, init func() T) *T {
	w.resources.mu.Lock()
	defer w.resources.mu.Unlock()
	typ := reflect.TypeFor[T]()
	if value, ok := w.resources.values[typ]; ok {
		return value.(*T) //nolint:errcheck // keyed by T
	}
	value := init()
	w.resources.values[typ] = &value
	return &value
}

// HasResource reports whether a resource of type T exists.
func HasResource[T any](w *World) bool {
	_, ok := GetResource[T](w)
	return ok
}

// SetResourceCommand returns a command that sets the resource of type T when applied.
func SetResourceCommand[T any](value T) Command {
	return CommandFunc(func(w *World) error {
		SetResource(w, value)
		return nil
	})
}
