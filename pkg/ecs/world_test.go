package ecs_test

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/argus-labs/erased/pkg/ecs"
	"github.com/argus-labs/erased/pkg/snapshot"
	. "github.com/argus-labs/erased/pkg/testutils"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterSystem_Errors(t *testing.T) {
	t.Parallel()

	noop := func(*ecs.SystemContext) error { return nil }

	w := newWorld(t)
	require.NoError(t, ecs.RegisterSystem(w, "a", noop))
	require.Error(t, ecs.RegisterSystem(w, "a", noop, ecs.WithHook(ecs.PreUpdate)), "duplicate name")
	require.Error(t, ecs.RegisterSystem(w, "", noop), "empty name")
	require.Error(t, ecs.RegisterSystem(w, "nil", nil), "nil system")
	require.Error(t, ecs.RegisterSystem(w, "bad hook", noop, ecs.WithHook(ecs.SystemHook(9))))

	require.NoError(t, w.Tick(t.Context()))
	require.Error(t, ecs.RegisterSystem(w, "late init", noop, ecs.WithHook(ecs.Init)))

	assert.Equal(t, []string{"a"}, w.RegisteredSystems())
}

func TestTick_GenesisRunsInitOnly(t *testing.T) {
	t.Parallel()

	w := newWorld(t)

	var initRuns, updateRuns atomic.Int32
	var ticks []uint64
	require.NoError(t, ecs.RegisterSystem(w, "init", func(ctx *ecs.SystemContext) error {
		initRuns.Add(1)
		return nil
	}, ecs.WithHook(ecs.Init)))
	require.NoError(t, ecs.RegisterSystem(w, "update", func(ctx *ecs.SystemContext) error {
		updateRuns.Add(1)
		ticks = append(ticks, ctx.Tick)
		return nil
	}))

	for range 3 {
		require.NoError(t, w.Tick(t.Context()))
	}

	assert.Equal(t, int32(1), initRuns.Load())
	assert.Equal(t, int32(2), updateRuns.Load())
	assert.Equal(t, []uint64{1, 2}, ticks)
	assert.Equal(t, uint64(3), w.CurrentTick())
}

func TestTick_HooksRunInOrder(t *testing.T) {
	t.Parallel()

	w := newWorld(t)

	var order []string
	record := func(name string) ecs.System {
		return func(*ecs.SystemContext) error {
			order = append(order, name)
			return nil
		}
	}
	require.NoError(t, ecs.RegisterSystem(w, "post", record("post"), ecs.WithHook(ecs.PostUpdate)))
	require.NoError(t, ecs.RegisterSystem(w, "update", record("update"), ecs.WithHook(ecs.Update)))
	require.NoError(t, ecs.RegisterSystem(w, "pre", record("pre"), ecs.WithHook(ecs.PreUpdate)))

	require.NoError(t, w.Tick(t.Context())) // genesis
	require.NoError(t, w.Tick(t.Context()))
	assert.Equal(t, []string{"pre", "update", "post"}, order)
}

func TestTick_CommandsAppliedInRegistrationOrder(t *testing.T) {
	t.Parallel()

	w := newWorld(t)

	var applied []string
	push := func(name string) ecs.System {
		return func(ctx *ecs.SystemContext) error {
			for i := range 3 {
				ctx.Commands.Push(ecs.CommandFunc(func(*ecs.World) error {
					applied = append(applied, name+string(rune('0'+i)))
					return nil
				}))
			}
			return nil
		}
	}
	require.NoError(t, ecs.RegisterSystem(w, "first", push("a"), ecs.WithHook(ecs.Init)))
	require.NoError(t, ecs.RegisterSystem(w, "second", push("b"), ecs.WithHook(ecs.Init)))

	require.NoError(t, w.Tick(t.Context()))
	assert.Equal(t, []string{"a0", "a1", "a2", "b0", "b1", "b2"}, applied)
}

func TestTick_LaterHookSeesEarlierCommands(t *testing.T) {
	t.Parallel()

	w := newWorld(t)
	registerAll(t, w)

	var spawned atomic.Uint32
	require.NoError(t, ecs.RegisterSystem(w, "spawn", func(ctx *ecs.SystemContext) error {
		ec := ctx.Commands.Spawn(Health{Value: 1})
		spawned.Store(uint32(ec.ID()))
		return nil
	}, ecs.WithHook(ecs.PreUpdate)))

	var seen bool
	require.NoError(t, ecs.RegisterSystem(w, "read", func(ctx *ecs.SystemContext) error {
		seen = ecs.Has[Health](ctx.World, ecs.EntityID(spawned.Load()))
		return nil
	}))

	require.NoError(t, w.Tick(t.Context()))
	require.NoError(t, w.Tick(t.Context()))
	assert.True(t, seen)
}

func TestTick_FailingSystemDiscardsHookCommands(t *testing.T) {
	t.Parallel()

	w := newWorld(t)
	registerAll(t, w)

	require.NoError(t, ecs.RegisterSystem(w, "spawner", func(ctx *ecs.SystemContext) error {
		ctx.Commands.Spawn(Health{})
		return nil
	}, ecs.WithHook(ecs.Init)))
	require.NoError(t, ecs.RegisterSystem(w, "broken", func(*ecs.SystemContext) error {
		return assert.AnError
	}, ecs.WithHook(ecs.Init)))

	err := w.Tick(t.Context())
	require.ErrorIs(t, err, assert.AnError)
	assert.False(t, ecs.Alive(w, 0))
	assert.Equal(t, uint64(0), w.CurrentTick())
}

func TestTick_FailingCommandFailsTick(t *testing.T) {
	t.Parallel()

	w := newWorld(t)
	require.NoError(t, ecs.RegisterSystem(w, "despawn missing", func(ctx *ecs.SystemContext) error {
		ctx.Commands.Entity(ecs.EntityID(5)).Despawn()
		return nil
	}, ecs.WithHook(ecs.Init)))

	err := w.Tick(t.Context())
	require.ErrorIs(t, err, ecs.ErrEntityNotFound)
}

// -------------------------------------------------------------------------------------------------
// Snapshots
// -------------------------------------------------------------------------------------------------

func newRedisStorage(t *testing.T) *snapshot.RedisStorage {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	storage, err := snapshot.NewRedisStorage(snapshot.RedisStorageOptions{Client: client})
	require.NoError(t, err)
	return storage
}

func TestSerialize_RoundTrip(t *testing.T) {
	t.Parallel()

	src := newWorld(t)
	registerAll(t, src)

	e0, err := ecs.Spawn(src, Health{Value: 1}, Position{X: 1, Y: 1})
	require.NoError(t, err)
	e1, err := ecs.Spawn(src, Velocity{X: 2, Y: 3})
	require.NoError(t, err)
	e2, err := ecs.Spawn(src)
	require.NoError(t, err)
	require.NoError(t, ecs.Despawn(src, e2))

	data, err := src.Serialize()
	require.NoError(t, err)

	// Register in a different order, ids differ but names match.
	dst := newWorld(t)
	_, err = ecs.RegisterComponent[Velocity](dst)
	require.NoError(t, err)
	_, err = ecs.RegisterComponent[Position](dst)
	require.NoError(t, err)
	_, err = ecs.RegisterComponent[Health](dst)
	require.NoError(t, err)
	require.NoError(t, dst.Deserialize(data))

	health, err := ecs.Get[Health](dst, e0)
	require.NoError(t, err)
	assert.Equal(t, 1, health.Value)
	pos, err := ecs.Get[Position](dst, e0)
	require.NoError(t, err)
	assert.Equal(t, Position{X: 1, Y: 1}, pos)
	vel, err := ecs.Get[Velocity](dst, e1)
	require.NoError(t, err)
	assert.Equal(t, Velocity{X: 2, Y: 3}, vel)
	assert.False(t, ecs.Alive(dst, e2))

	// The despawned id is reused first, as it would be in the source world.
	next, err := ecs.Spawn(dst)
	require.NoError(t, err)
	assert.Equal(t, e2, next)
}

func TestDeserialize_UnknownComponent(t *testing.T) {
	t.Parallel()

	src := newWorld(t)
	registerAll(t, src)
	_, err := ecs.Spawn(src, Health{Value: 1})
	require.NoError(t, err)
	data, err := src.Serialize()
	require.NoError(t, err)

	dst := newWorld(t)
	kept, err := ecs.Spawn(dst)
	require.NoError(t, err)

	require.ErrorIs(t, dst.Deserialize(data), ecs.ErrComponentNotRegistered)
	assert.True(t, ecs.Alive(dst, kept), "a failed restore leaves the world unchanged")
}

func TestSnapshot_PeriodicStoreAndRestore(t *testing.T) {
	t.Parallel()

	storage := newRedisStorage(t)
	ctx := context.Background()

	src := newWorld(t, ecs.WithSnapshotStorage(storage), ecs.WithSnapshotFrequency(2))
	registerAll(t, src)
	require.NoError(t, ecs.RegisterSystem(src, "grow", func(ctx *ecs.SystemContext) error {
		ctx.Commands.Spawn(Health{Value: int(ctx.Tick)})
		return nil
	}))

	// Genesis plus one update tick, the snapshot is taken after the second tick.
	require.NoError(t, src.Tick(ctx))
	require.NoError(t, src.Tick(ctx))

	snap, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), snap.TickHeight)

	dst := newWorld(t, ecs.WithSnapshotStorage(storage))
	registerAll(t, dst)
	require.NoError(t, dst.RestoreSnapshot(ctx))
	assert.Equal(t, uint64(2), dst.CurrentTick())

	health, err := ecs.Get[Health](dst, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, health.Value)
}

func TestRestoreSnapshot_NotFound(t *testing.T) {
	t.Parallel()

	w := newWorld(t, ecs.WithSnapshotStorage(newRedisStorage(t)))
	require.ErrorIs(t, w.RestoreSnapshot(t.Context()), snapshot.ErrSnapshotNotFound)

	nop := newWorld(t)
	require.ErrorIs(t, nop.RestoreSnapshot(t.Context()), snapshot.ErrSnapshotNotFound)
}

func TestRegistration_LoggedAfterGenesis(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	w := newWorld(t, ecs.WithLogger(zerolog.New(&logs).Level(zerolog.DebugLevel)))

	_, err := ecs.RegisterComponent[Health](w)
	require.NoError(t, err)
	assert.NotContains(t, logs.String(), "total_components", "setup registrations wait for genesis")

	require.NoError(t, w.Tick(t.Context()))
	assert.Contains(t, logs.String(), "world initialized")
	logs.Reset()

	_, err = ecs.RegisterComponent[Position](w)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), `"total_components":2`)
	assert.Contains(t, logs.String(), `"component_name":"Position"`)
	logs.Reset()

	_, err = ecs.RegisterComponent[Position](w)
	require.NoError(t, err)
	assert.Empty(t, logs.String(), "registering an existing component logs nothing")

	require.NoError(t, ecs.RegisterSystem(w, "late", func(*ecs.SystemContext) error { return nil }))
	assert.Contains(t, logs.String(), `"total_systems":1`)
	assert.Contains(t, logs.String(), `"late"`)
}
