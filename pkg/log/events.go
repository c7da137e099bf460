package log

import (
	"github.com/rs/zerolog"
)

// ComponentInfo is the loggable description of a registered component type.
type ComponentInfo struct {
	ID   uint32
	Name string
}

type Loggable interface {
	RegisteredComponents() []ComponentInfo
	RegisteredSystems() []string
}

func loadComponentIntoArrayLogger(component ComponentInfo, arrayLogger *zerolog.Array) *zerolog.Array {
	dictLogger := zerolog.Dict()
	dictLogger = dictLogger.Uint32("component_id", component.ID)
	dictLogger = dictLogger.Str("component_name", component.Name)
	return arrayLogger.Dict(dictLogger)
}

func loadComponentsToEvent(zeroLoggerEvent *zerolog.Event, target Loggable) *zerolog.Event {
	components := target.RegisteredComponents()
	zeroLoggerEvent.Int("total_components", len(components))
	arrayLogger := zerolog.Arr()
	for _, component := range components {
		arrayLogger = loadComponentIntoArrayLogger(component, arrayLogger)
	}
	return zeroLoggerEvent.Array("components", arrayLogger)
}

func loadSystemIntoEvent(zeroLoggerEvent *zerolog.Event, target Loggable) *zerolog.Event {
	systems := target.RegisteredSystems()
	zeroLoggerEvent.Int("total_systems", len(systems))
	arrayLogger := zerolog.Arr()
	for _, sysName := range systems {
		arrayLogger = arrayLogger.Str(sysName)
	}
	return zeroLoggerEvent.Array("systems", arrayLogger)
}

// Components logs all component info related to the world.
func Components(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	loadComponentsToEvent(zeroLoggerEvent, target).Send()
}

// Systems logs all system info related to the world.
func Systems(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	loadSystemIntoEvent(zeroLoggerEvent, target).Send()
}

// World logs everything about the world (components and systems).
func World(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent = loadComponentsToEvent(zeroLoggerEvent, target)
	loadSystemIntoEvent(zeroLoggerEvent, target).Msg("world initialized")
}

// Entity logs an entity together with the components it currently holds.
func Entity(logger *zerolog.Logger, level zerolog.Level, entityID uint32, components []ComponentInfo, msg string) {
	zeroLoggerEvent := logger.WithLevel(level)
	arrayLogger := zerolog.Arr()
	for _, component := range components {
		arrayLogger = loadComponentIntoArrayLogger(component, arrayLogger)
	}
	zeroLoggerEvent.Array("components", arrayLogger).Uint32("entity_id", entityID).Msg(msg)
}
