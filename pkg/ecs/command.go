package ecs

import (
	"sync"

	"github.com/rotisserie/eris"
)

// Command is a deferred world mutation. Commands are recorded while systems run and applied
// afterwards, in the order they were recorded, with exclusive access to the world.
type Command interface {
	Apply(w *World) error
}

// CommandFunc adapts a function to the Command interface.
type CommandFunc func(w *World) error

// Apply calls f(w).
func (f CommandFunc) Apply(w *World) error {
	return f(w)
}

// EntityCommand is a deferred mutation that targets a single entity.
type EntityCommand func(w *World, eid EntityID) error

// initialCommandsCapacity is the starting capacity of a command buffer.
const initialCommandsCapacity = 64

// Commands is an unbounded FIFO buffer of commands. It's safe to record into from multiple
// goroutines; applying is done by World.ApplyCommands.
type Commands struct {
	world    *World
	commands []Command
	mu       sync.Mutex
}

// NewCommands creates an empty command buffer for the world.
func NewCommands(w *World) *Commands {
	return &Commands{
		world:    w,
		commands: make([]Command, 0, initialCommandsCapacity),
	}
}

// Push appends a command to the buffer.
func (c *Commands) Push(command Command) {
	c.mu.Lock()
	c.commands = append(c.commands, command)
	c.mu.Unlock()
}

// Len returns the number of pending commands.
func (c *Commands) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.commands)
}

// Spawn reserves an entity ID right away and records a command that creates the entity with the
// given components. The returned handle can be used to record more commands for the entity.
func (c *Commands) Spawn(components ...Component) EntityCommands {
	eid, err := c.world.state.entities.reserve()
	if err != nil {
		c.Push(CommandFunc(func(*World) error { return err }))
		return EntityCommands{commands: c, id: eid}
	}

	c.Push(CommandFunc(func(w *World) error {
		if err := w.state.spawnEntity(eid, components); err != nil {
			w.state.entities.release(eid)
			return err
		}
		return nil
	}))
	return EntityCommands{commands: c, id: eid}
}

// Entity returns a handle to record commands for an existing entity.
func (c *Commands) Entity(eid EntityID) EntityCommands {
	return EntityCommands{commands: c, id: eid}
}

// drain moves all queued commands to the target slice and resets the buffer.
func (c *Commands) drain(target *[]Command) {
	c.mu.Lock()
	defer c.mu.Unlock()

	*target = append(*target, c.commands...)
	clear(c.commands)
	c.commands = c.commands[:0]
}

// discard drops all queued commands.
func (c *Commands) discard() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.commands)
	c.commands = c.commands[:0]
}

// EntityCommands records commands for a single entity.
type EntityCommands struct {
	commands *Commands
	id       EntityID
}

// ID returns the entity the commands target.
func (ec EntityCommands) ID() EntityID {
	return ec.id
}

// Commands returns the buffer the entity commands are recorded into.
func (ec EntityCommands) Commands() *Commands {
	return ec.commands
}

// Push records a command for the entity.
func (ec EntityCommands) Push(command EntityCommand) EntityCommands {
	eid := ec.id
	ec.commands.Push(CommandFunc(func(w *World) error {
		return command(w, eid)
	}))
	return ec
}

// Insert records the insertion of the given components. Components the entity already has are
// overwritten.
func (ec EntityCommands) Insert(components ...Component) EntityCommands {
	return ec.Push(func(w *World, eid EntityID) error {
		for _, component := range components {
			cid, err := w.state.components.idOfComponent(component)
			if err != nil {
				return err
			}
			if err := w.state.insertComponent(eid, cid, component); err != nil {
				return eris.Wrapf(err, "failed to insert %s", component.Name())
			}
		}
		return nil
	})
}

// Despawn records the removal of the entity and all its components.
func (ec EntityCommands) Despawn() {
	ec.Push(func(w *World, eid EntityID) error {
		return Despawn(w, eid)
	})
}

// RemoveComponent records the removal of component T from the entity.
func RemoveComponent[T Component](ec EntityCommands) EntityCommands {
	return ec.Push(func(w *World, eid EntityID) error {
		return Remove[T](w, eid)
	})
}
