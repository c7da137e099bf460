package ecs

import (
	"context"
	"io"
	"reflect"
	"time"

	"github.com/argus-labs/erased/pkg/log"
	"github.com/argus-labs/erased/pkg/snapshot"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// World represents the root ECS state.
type World struct {
	id        uuid.UUID
	state     *worldState
	resources resources

	// Systems.
	initDone    bool                      // Tracks if init systems have been executed
	tick        uint64                    // Number of completed ticks
	schedulers  [numHooks]systemScheduler // One scheduler per hook, indexed by SystemHook
	systemNames []string                  // Registered system names in registration order

	options   WorldOptions
	logger    zerolog.Logger
	snapshots snapshot.Storage
	closer    io.Closer // Closes resources the world created itself, may be nil
}

var _ log.Loggable = (*World)(nil)

// NewWorld creates a new World. Options are loaded from the environment first and then overridden
// by opts.
func NewWorld(opts ...Option) (*World, error) {
	cfg, err := loadWorldConfig()
	if err != nil {
		return nil, err
	}

	options := newDefaultWorldOptions()
	cfg.applyToOptions(&options)
	for _, opt := range opts {
		opt(&options)
	}
	if err := options.validate(); err != nil {
		return nil, eris.Wrap(err, "invalid world options")
	}

	world := &World{
		id:          uuid.New(),
		state:       newWorldState(),
		resources:   newResources(),
		initDone:    false,
		tick:        0,
		systemNames: make([]string, 0),
		options:     options,
	}

	if options.Logger != nil {
		world.logger = *options.Logger
	} else {
		world.logger = log.New(log.Config{Level: options.LogLevel, Format: options.LogFormat})
	}
	world.logger = world.logger.With().Str("world_id", world.id.String()).Logger()

	for i := range world.schedulers {
		world.schedulers[i] = newSystemScheduler(SystemHook(i)) //nolint:gosec // i < numHooks
	}

	if err := world.initSnapshotStorage(); err != nil {
		return nil, err
	}

	return world, nil
}

// initSnapshotStorage sets up the snapshot storage from the options.
func (w *World) initSnapshotStorage() error {
	if w.options.SnapshotStorage != nil {
		w.snapshots = w.options.SnapshotStorage
		return nil
	}

	switch w.options.SnapshotStorageType {
	case snapshot.StorageTypeNop:
		w.snapshots = snapshot.NewNopStorage()
	case snapshot.StorageTypeRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     w.options.RedisAddress,
			Password: w.options.RedisPassword,
		})
		storage, err := snapshot.NewRedisStorage(snapshot.RedisStorageOptions{Client: client})
		if err != nil {
			_ = client.Close()
			return eris.Wrap(err, "failed to create redis snapshot storage")
		}
		w.snapshots = storage
		w.closer = client
	case snapshot.StorageTypeUndefined:
		return eris.New("undefined snapshot storage type")
	default:
		return eris.Errorf("unknown snapshot storage type: %s", w.options.SnapshotStorageType)
	}
	return nil
}

// Close releases the resources the world created, e.g. its redis client.
func (w *World) Close() error {
	if w.closer == nil {
		return nil
	}
	return eris.Wrap(w.closer.Close(), "failed to close world")
}

// ID returns the unique ID of this world instance.
func (w *World) ID() uuid.UUID {
	return w.id
}

// Logger returns the world's logger.
func (w *World) Logger() *zerolog.Logger {
	return &w.logger
}

// CurrentTick returns the number of completed ticks.
func (w *World) CurrentTick() uint64 {
	return w.tick
}

// -------------------------------------------------------------------------------------------------
// Registration
// -------------------------------------------------------------------------------------------------

// RegisterComponent registers a component type with the world's storage. Registering the same type
// again returns the existing ID.
func RegisterComponent[T Component](w *World) (ComponentID, error) {
	_, existed := w.state.components.idOfType(reflect.TypeFor[T]())
	cid, err := registerComponent[T](&w.state.components)
	if err != nil {
		return 0, eris.Wrapf(err, "failed to register component %T", *new(T))
	}
	// Registrations before genesis are logged together with the systems on the first tick.
	if w.initDone && !existed {
		log.Components(&w.logger, w, zerolog.DebugLevel)
	}
	return cid, nil
}

// RegisterSystem registers a system under a unique name. Systems default to the Update hook.
func RegisterSystem(w *World, name string, system System, opts ...SystemOption) error {
	if name == "" {
		return eris.New("system name cannot be empty")
	}
	if system == nil {
		return eris.Errorf("system %s is nil", name)
	}
	for _, existing := range w.systemNames {
		if existing == name {
			return eris.Errorf("system %s is already registered", name)
		}
	}

	cfg := newSystemConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.hook >= numHooks {
		return eris.Errorf("invalid hook %d for system %s", cfg.hook, name)
	}
	if cfg.hook == Init && w.initDone {
		return eris.Errorf("init system %s registered after the genesis tick", name)
	}

	w.schedulers[cfg.hook].register(systemMetadata{
		name:     name,
		fn:       system,
		commands: NewCommands(w),
		logger:   log.CreateSystemLogger(&w.logger, name),
	})
	w.systemNames = append(w.systemNames, name)
	if w.initDone {
		log.Systems(&w.logger, w, zerolog.DebugLevel)
	}
	return nil
}

// ComponentID returns the component ID the given type was registered with.
func (w *World) ComponentID(typ reflect.Type) (ComponentID, bool) {
	return w.state.components.idOfType(typ)
}

// ComponentIDByName returns the component ID registered under the given component name.
func (w *World) ComponentIDByName(name string) (ComponentID, bool) {
	cid, err := w.state.components.getID(name)
	return cid, err == nil
}

// ComponentType returns the type the component ID was registered with, or nil if it's unknown.
func (w *World) ComponentType(cid ComponentID) reflect.Type {
	return w.state.components.typeOfID(cid)
}

// RegisteredComponents returns the registered components in ID order.
func (w *World) RegisteredComponents() []log.ComponentInfo {
	infos := make([]log.ComponentInfo, len(w.state.components.typeOf))
	for name, cid := range w.state.components.catalog {
		infos[cid] = log.ComponentInfo{ID: uint32(cid), Name: name}
	}
	return infos
}

// RegisteredSystems returns the names of the registered systems in registration order.
func (w *World) RegisteredSystems() []string {
	names := make([]string, len(w.systemNames))
	copy(names, w.systemNames)
	return names
}

// -------------------------------------------------------------------------------------------------
// Tick
// -------------------------------------------------------------------------------------------------

// Tick executes the registered systems. The first tick is the genesis tick and only runs the Init
// systems. Later ticks run the PreUpdate, Update, and PostUpdate systems in that order. The
// commands recorded by the systems of a hook are applied before the next hook starts.
//
// If any system or command fails, the tick fails and the error is returned. Commands that were
// already applied stay applied.
func (w *World) Tick(ctx context.Context) error {
	if !w.initDone {
		log.World(&w.logger, w, zerolog.DebugLevel)
		if err := w.schedulers[Init].run(ctx, w, w.tick); err != nil {
			return eris.Wrap(err, "genesis tick failed")
		}
		w.initDone = true
	} else {
		for _, hook := range []SystemHook{PreUpdate, Update, PostUpdate} {
			if err := w.schedulers[hook].run(ctx, w, w.tick); err != nil {
				return eris.Wrapf(err, "tick %d failed", w.tick)
			}
		}
	}
	w.tick++

	if freq := w.options.SnapshotFrequency; freq > 0 && w.tick%uint64(freq) == 0 {
		w.snapshot(ctx)
	}
	return nil
}

// ApplyCommands applies all commands recorded in c in FIFO order and empties it. It stops at the
// first failing command.
func (w *World) ApplyCommands(c *Commands) error {
	var pending []Command
	c.drain(&pending)
	return w.applyAll(pending)
}

// applyAll applies the commands in order.
func (w *World) applyAll(commands []Command) error {
	for i, command := range commands {
		if err := command.Apply(w); err != nil {
			return eris.Wrapf(err, "command %d of %d failed", i+1, len(commands))
		}
	}
	return nil
}

// -------------------------------------------------------------------------------------------------
// Snapshots
// -------------------------------------------------------------------------------------------------

// snapshot persists the current state. Failures are logged and don't fail the tick.
func (w *World) snapshot(ctx context.Context) {
	data, err := w.Serialize()
	if err != nil {
		w.logger.Warn().Err(err).Uint64("tick", w.tick).Msg("failed to serialize snapshot")
		return
	}

	snap := &snapshot.Snapshot{
		TickHeight: w.tick,
		Timestamp:  time.Now(),
		Data:       data,
		Version:    snapshot.CurrentVersion,
	}
	if err := w.snapshots.Store(ctx, snap); err != nil {
		w.logger.Warn().Err(err).Uint64("tick", w.tick).Msg("failed to store snapshot")
		return
	}
	w.logger.Debug().Uint64("tick", w.tick).Int("bytes", len(data)).Msg("snapshot stored")
}

// RestoreSnapshot loads the latest snapshot from storage into the world. It returns
// snapshot.ErrSnapshotNotFound if there is nothing to restore. Components must be registered before
// restoring.
func (w *World) RestoreSnapshot(ctx context.Context) error {
	snap, err := w.snapshots.Load(ctx)
	if err != nil {
		return err
	}
	if snap.Version != snapshot.CurrentVersion {
		return eris.Errorf("unsupported snapshot version %d", snap.Version)
	}
	if err := w.Deserialize(snap.Data); err != nil {
		return eris.Wrap(err, "failed to restore snapshot")
	}
	w.tick = snap.TickHeight
	w.logger.Info().Uint64("tick", w.tick).Msg("restored from snapshot")
	return nil
}
