package erased

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/argus-labs/erased/pkg/ecs"
)

// Constructor builds a fresh value of a registered component type. The dynamic type of the
// returned value must be the type it was registered under.
type Constructor func(w *ecs.World) ecs.Component

// Registry maps runtime component types to constructors, so components can be inserted when their
// type is only known at run time.
//
// A Registry isn't safe for concurrent writes. Register types while setting up the world, before
// the first tick. During ticks the registry is only read, from the command apply phase or from
// systems.
type Registry struct {
	constructors map[reflect.Type]Constructor
	byName       map[string]reflect.Type
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[reflect.Type]Constructor),
		byName:       make(map[string]reflect.Type),
	}
}

// Register associates a constructor with a type, replacing any constructor registered before. A nil
// constructor panics.
//
// Register doesn't check that the type is registered with the world's component storage. Inserting
// a type that isn't panics. Use the package level Register to do both.
func (r *Registry) Register(token reflect.Type, ctor Constructor) {
	if ctor == nil {
		panic(fmt.Sprintf("erased: nil constructor registered for %v", token))
	}
	r.lazyInit()
	r.constructors[token] = ctor
	if name, ok := componentName(token); ok {
		r.byName[name] = token
	}
}

// Constructor returns the constructor registered for the type.
func (r *Registry) Constructor(token reflect.Type) (Constructor, bool) {
	ctor, ok := r.constructors[token]
	return ctor, ok
}

// IsRegistered reports whether a constructor is registered for the type.
func (r *Registry) IsRegistered(token reflect.Type) bool {
	_, ok := r.constructors[token]
	return ok
}

// TypeByName returns the registered type whose component name is name.
func (r *Registry) TypeByName(name string) (reflect.Type, bool) {
	token, ok := r.byName[name]
	return token, ok
}

// Tokens returns the registered types sorted by their string form.
func (r *Registry) Tokens() []reflect.Type {
	tokens := make([]reflect.Type, 0, len(r.constructors))
	for token := range r.constructors {
		tokens = append(tokens, token)
	}
	slices.SortFunc(tokens, func(a, b reflect.Type) int {
		return strings.Compare(a.String(), b.String())
	})
	return tokens
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	return len(r.constructors)
}

func (r *Registry) lazyInit() {
	if r.constructors == nil {
		r.constructors = make(map[reflect.Type]Constructor)
	}
	if r.byName == nil {
		r.byName = make(map[string]reflect.Type)
	}
}

var componentType = reflect.TypeFor[ecs.Component]()

// componentName returns the Name() of the zero value of token, if token implements ecs.Component.
func componentName(token reflect.Type) (string, bool) {
	if token == nil || !token.Implements(componentType) {
		return "", false
	}
	if token.Kind() == reflect.Pointer {
		// The zero value is a nil pointer, calling Name on it may panic.
		return "", false
	}
	zero, ok := reflect.Zero(token).Interface().(ecs.Component)
	if !ok {
		return "", false
	}
	return zero.Name(), true
}

// RegistryOf returns the registry attached to the world, creating it on first use. It's safe to
// call from concurrently running systems.
func RegistryOf(w *ecs.World) *Registry {
	return ecs.InitResourceWith(w, func() Registry { return *NewRegistry() })
}

// lookupRegistry returns the registry attached to the world without creating one.
func lookupRegistry(w *ecs.World) (*Registry, bool) {
	return ecs.GetResource[Registry](w)
}
