package ecs

import (
	"reflect"

	"github.com/argus-labs/erased/pkg/assert"
	"github.com/kelindar/bitmap"
	"github.com/rotisserie/eris"
)

// Component is the interface that all components must implement.
// Components are pure data containers that can be attached to entities.
type Component interface { //nolint:iface // We may add more methods in the future.
	// Name returns a unique string identifier for the component type.
	// This should be consistent across program executions.
	Name() string
}

// ComponentID is the dense identifier the world assigns to every registered component type. It
// indexes the column factories and is the bit position in archetype component bitmaps.
type ComponentID uint32

// componentManager manages component type registration and lookup. A component type can be found
// by its name (stable across processes) or by its reflect.Type (stable within a process).
type componentManager struct {
	nextID    ComponentID                  // The next available component ID
	catalog   map[string]ComponentID       // Component name -> component ID
	types     map[reflect.Type]ComponentID // Component type -> component ID
	typeOf    []reflect.Type               // Component ID -> component type
	factories []columnFactory              // Component ID -> column factory
}

// newComponentManager creates a new component manager.
func newComponentManager() componentManager {
	return componentManager{
		nextID:    0,
		catalog:   make(map[string]ComponentID),
		types:     make(map[reflect.Type]ComponentID),
		typeOf:    make([]reflect.Type, 0),
		factories: make([]columnFactory, 0),
	}
}

// register registers a new component type and returns its ID.
// If the component is already registered, the existing ID is returned.
func (cm *componentManager) register(name string, typ reflect.Type, factory columnFactory) (ComponentID, error) {
	if name == "" {
		return 0, eris.New("component name cannot be empty")
	}

	if cid, exists := cm.types[typ]; exists {
		return cid, nil
	}
	if cid, exists := cm.catalog[name]; exists {
		return 0, eris.Errorf("component name %s is already used by %s", name, cm.typeOf[cid])
	}

	cid := cm.nextID
	cm.catalog[name] = cid
	cm.types[typ] = cid
	cm.typeOf = append(cm.typeOf, typ)
	cm.factories = append(cm.factories, factory)
	cm.nextID++
	assert.That(int(cm.nextID) == len(cm.factories), "component id doesn't match number of components")

	return cid, nil
}

// getID returns a component's ID given a name.
func (cm *componentManager) getID(name string) (ComponentID, error) {
	cid, exists := cm.catalog[name]
	if !exists {
		return 0, eris.Wrapf(ErrComponentNotRegistered, "component %s", name)
	}
	return cid, nil
}

// idOfType returns a component's ID given its reflect.Type.
func (cm *componentManager) idOfType(typ reflect.Type) (ComponentID, bool) {
	cid, exists := cm.types[typ]
	return cid, exists
}

// idOfComponent returns the ID of the component's dynamic type.
func (cm *componentManager) idOfComponent(component Component) (ComponentID, error) {
	cid, exists := cm.types[reflect.TypeOf(component)]
	if !exists {
		return 0, eris.Wrapf(ErrComponentNotRegistered, "component %T", component)
	}
	return cid, nil
}

// typeOfID returns the reflect.Type a component ID was registered with, or nil.
func (cm *componentManager) typeOfID(cid ComponentID) reflect.Type {
	if int(cid) >= len(cm.typeOf) {
		return nil
	}
	return cm.typeOf[cid]
}

// toComponentBitmap converts a list of components into a bitmap of their IDs. Duplicated
// component types are an error.
func (cm *componentManager) toComponentBitmap(components []Component) (bitmap.Bitmap, error) {
	var bm bitmap.Bitmap
	for _, component := range components {
		cid, err := cm.idOfComponent(component)
		if err != nil {
			return bitmap.Bitmap{}, err
		}
		if bm.Contains(uint32(cid)) {
			return bitmap.Bitmap{}, eris.Errorf("duplicate component %s", component.Name())
		}
		bm.Set(uint32(cid))
	}
	return bm, nil
}

// createArchetype creates an archetype with one column per component in the bitmap.
func (cm *componentManager) createArchetype(aid archetypeID, components bitmap.Bitmap) *archetype {
	cids := make([]ComponentID, 0, components.Count())
	columns := make([]abstractColumn, 0, components.Count())
	components.Range(func(x uint32) {
		cid := ComponentID(x)
		assert.That(int(cid) < len(cm.factories), "component %d has no column factory", cid)
		cids = append(cids, cid)
		columns = append(columns, cm.factories[cid]())
	})
	return newArchetype(aid, components, cids, columns)
}

// registerComponent registers T with the component manager.
func registerComponent[T Component](cm *componentManager) (ComponentID, error) {
	var zero T
	return cm.register(zero.Name(), reflect.TypeFor[T](), newColumnFactory[T]())
}
