// Package erased inserts components whose concrete type is only known at run time.
//
// Component types are registered up front together with a constructor. Later, given just the
// reflect.Type, Insert records a command that builds a fresh value with the constructor and writes
// it into the entity's column for that type.
package erased

import (
	"fmt"
	"reflect"

	"github.com/argus-labs/erased/pkg/ecs"
	"github.com/argus-labs/erased/pkg/log"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// FromWorld is implemented by component pointer types that initialize themselves from the world.
// Types registered with Register whose pointer doesn't implement it are constructed as their zero
// value.
type FromWorld interface {
	FromWorld(w *ecs.World)
}

// Register registers T with the world's component storage and with the world's registry, using the
// default constructor. Registering a type again replaces its constructor.
func Register[T ecs.Component](w *ecs.World) error {
	return register[T](w, defaultConstructor[T]())
}

// RegisterWith is like Register but builds values of T with ctor.
func RegisterWith[T ecs.Component](w *ecs.World, ctor func(w *ecs.World) T) error {
	if ctor == nil {
		return eris.Errorf("constructor for %s is nil", reflect.TypeFor[T]())
	}
	return register[T](w, func(w *ecs.World) ecs.Component { return ctor(w) })
}

func register[T ecs.Component](w *ecs.World, ctor Constructor) error {
	token := reflect.TypeFor[T]()
	cid, err := ecs.RegisterComponent[T](w)
	if err != nil {
		return eris.Wrapf(err, "failed to register %s", token)
	}
	RegistryOf(w).Register(token, ctor)

	logger := componentLogger(w)
	logger.Debug().Stringer("token", token).Uint32("component_id", uint32(cid)).Msg("registered erased component")
	return nil
}

// defaultConstructor returns a constructor that builds the zero value of T and lets it initialize
// itself if *T implements FromWorld.
func defaultConstructor[T ecs.Component]() Constructor {
	return func(w *ecs.World) ecs.Component {
		var value T
		if fw, ok := any(&value).(FromWorld); ok {
			fw.FromWorld(w)
		}
		return value
	}
}

// Insert records a command that inserts a freshly constructed component of type token on the
// entity. The entity keeps a single instance per type, inserting a type it already has replaces
// the value.
//
// If token isn't registered when the command is applied, the command does nothing. If token is
// registered but isn't a component of the world, applying the command panics.
func Insert(ec ecs.EntityCommands, token reflect.Type) ecs.EntityCommands {
	return ec.Push(func(w *ecs.World, eid ecs.EntityID) error {
		return InsertNow(w, eid, token)
	})
}

// InsertByName is like Insert but resolves the type from its component name when the command is
// applied. Unknown names are ignored the same way unregistered types are.
func InsertByName(ec ecs.EntityCommands, name string) ecs.EntityCommands {
	return ec.Push(func(w *ecs.World, eid ecs.EntityID) error {
		registry, ok := lookupRegistry(w)
		if !ok {
			skipped(w, eid).Str("name", name).Msg("no erased registry, skipping insert")
			return nil
		}
		token, ok := registry.TypeByName(name)
		if !ok {
			skipped(w, eid).Str("name", name).Msg("unregistered component name, skipping insert")
			return nil
		}
		return InsertNow(w, eid, token)
	})
}

// InsertNow inserts a freshly constructed component of type token on the entity right away. It must
// only be called with exclusive access to the world, e.g. from a command.
func InsertNow(w *ecs.World, eid ecs.EntityID, token reflect.Type) error {
	registry, ok := lookupRegistry(w)
	if !ok {
		skipped(w, eid).Stringer("token", token).Msg("no erased registry, skipping insert")
		return nil
	}
	ctor, ok := registry.Constructor(token)
	if !ok {
		skipped(w, eid).Stringer("token", token).Msg("unregistered component type, skipping insert")
		return nil
	}

	value := ctor(w)

	cid, ok := w.ComponentID(token)
	if !ok {
		panic(fmt.Sprintf("erased: %v has a constructor but isn't registered as a component", token))
	}
	if err := ecs.InsertByID(w, eid, cid, value); err != nil {
		return eris.Wrapf(err, "failed to insert %v", token)
	}

	logger := componentLogger(w).With().
		Stringer("token", token).
		Uint32("component_id", uint32(cid)).
		Logger()
	if debugEnabled(&logger) {
		log.Entity(&logger, zerolog.DebugLevel, uint32(eid), entityComponents(w, eid), "inserted erased component")
	}
	return nil
}

func debugEnabled(logger *zerolog.Logger) bool {
	return logger.GetLevel() <= zerolog.DebugLevel && zerolog.GlobalLevel() <= zerolog.DebugLevel
}

// entityComponents describes the components the entity holds, for logging.
func entityComponents(w *ecs.World, eid ecs.EntityID) []log.ComponentInfo {
	ids, err := ecs.Inspect(w, eid)
	if err != nil {
		return nil
	}
	registered := w.RegisteredComponents()
	infos := make([]log.ComponentInfo, 0, len(ids))
	for _, cid := range ids {
		infos = append(infos, registered[cid])
	}
	return infos
}

func componentLogger(w *ecs.World) zerolog.Logger {
	return log.Component(w.Logger(), "erased")
}

func skipped(w *ecs.World, eid ecs.EntityID) *zerolog.Event {
	logger := componentLogger(w)
	return logger.Debug().Uint32("entity_id", uint32(eid))
}
