package ecs

import (
	"github.com/rs/zerolog"
)

// System is a function that contains game logic. Systems read the world through the context and
// record their mutations into ctx.Commands.
type System func(ctx *SystemContext) error

// SystemContext is what a system gets to work with during a tick.
type SystemContext struct {
	// World is the world the system runs in. Systems of the same hook run concurrently, so they must
	// only read from it.
	World *World
	// Commands is the system's private command buffer. It's applied after the hook completes.
	Commands *Commands
	// Logger is scoped to the system.
	Logger *zerolog.Logger
	// Tick is the number of the tick being executed, starting at 0 for the genesis tick.
	Tick uint64
}

// systemConfig holds all configurable options for system registration.
type systemConfig struct {
	// The hook that determines when the system should be executed.
	hook SystemHook
}

// newSystemConfig creates a new system config with default values.
func newSystemConfig() systemConfig {
	return systemConfig{hook: Update}
}

// SystemOption is a function that configures a SystemConfig.
type SystemOption func(*systemConfig)

// SystemHook defines when a system should be executed in the update cycle.
type SystemHook uint8

const (
	// PreUpdate runs before the main update.
	PreUpdate SystemHook = 0
	// Update runs during the main update phase.
	Update SystemHook = 1
	// PostUpdate runs after the main update.
	PostUpdate SystemHook = 2
	// Init runs once during world initialization.
	Init SystemHook = 3
)

// numHooks is the number of system hooks, including Init.
const numHooks = 4

// String returns the name of the hook.
func (h SystemHook) String() string {
	switch h {
	case PreUpdate:
		return "pre_update"
	case Update:
		return "update"
	case PostUpdate:
		return "post_update"
	case Init:
		return "init"
	default:
		return "unknown"
	}
}

// WithHook returns an option to set the system hook.
func WithHook(hook SystemHook) SystemOption {
	return func(cfg *systemConfig) { cfg.hook = hook }
}
