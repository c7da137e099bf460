package ecs

import (
	"math/rand/v2"
	"slices"
	"testing"

	. "github.com/argus-labs/erased/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorldState(t *testing.T) (*worldState, []ComponentID) {
	t.Helper()

	ws := newWorldState()
	health, err := registerComponent[Health](&ws.components)
	require.NoError(t, err)
	position, err := registerComponent[Position](&ws.components)
	require.NoError(t, err)
	velocity, err := registerComponent[Velocity](&ws.components)
	require.NoError(t, err)
	return ws, []ComponentID{health, position, velocity}
}

// randComponent returns a random value of the component registered as cids[i].
func randComponent(prng *rand.Rand, i int) Component {
	switch i {
	case 0:
		return Health{Value: prng.IntN(100)}
	case 1:
		return Position{X: prng.IntN(100), Y: prng.IntN(100)}
	case 2:
		return Velocity{X: prng.IntN(100), Y: prng.IntN(100)}
	default:
		panic("unreachable")
	}
}

// -------------------------------------------------------------------------------------------------
// Model-based fuzzing world state operations
// -------------------------------------------------------------------------------------------------
// The model is a map of entity -> component ID -> value. Random spawn/despawn/insert/remove
// operations are applied to both and every entity's components are compared after each step, which
// checks that archetype moves never mix up the rows of different entities.
// -------------------------------------------------------------------------------------------------

func TestWorldState_ModelFuzz(t *testing.T) {
	t.Parallel()
	prng := NewRand(t)

	const opsMax = 1 << 12

	ws, cids := newTestWorldState(t)
	model := make(map[EntityID]map[ComponentID]Component)

	randAlive := func() (EntityID, bool) {
		if len(model) == 0 {
			return 0, false
		}
		keys := make([]EntityID, 0, len(model))
		for eid := range model {
			keys = append(keys, eid)
		}
		slices.Sort(keys)
		return keys[prng.IntN(len(keys))], true
	}

	for range opsMax {
		switch RandWeightedOp(prng, worldStateOps) {
		case ws_spawn:
			comps := make([]Component, 0, len(cids))
			values := make(map[ComponentID]Component)
			for i, cid := range cids {
				if prng.IntN(2) == 0 {
					continue
				}
				value := randComponent(prng, i)
				comps = append(comps, value)
				values[cid] = value
			}
			eid, err := ws.entities.reserve()
			require.NoError(t, err)
			require.NoError(t, ws.spawnEntity(eid, comps))
			model[eid] = values

		case ws_despawn:
			eid, ok := randAlive()
			if !ok {
				continue
			}
			require.NoError(t, ws.entities.remove(eid))
			delete(model, eid)

		case ws_insert:
			eid, ok := randAlive()
			if !ok {
				continue
			}
			i := prng.IntN(len(cids))
			value := randComponent(prng, i)
			require.NoError(t, ws.insertComponent(eid, cids[i], value))
			model[eid][cids[i]] = value

		case ws_remove:
			eid, ok := randAlive()
			if !ok {
				continue
			}
			i := prng.IntN(len(cids))
			err := ws.removeComponent(eid, cids[i])
			if _, has := model[eid][cids[i]]; has {
				require.NoError(t, err)
				delete(model[eid], cids[i])
			} else {
				assert.ErrorIs(t, err, ErrComponentNotFound)
			}

		default:
			panic("unreachable")
		}

		assertWorldStateMatches(t, ws, model)
	}
}

func assertWorldStateMatches(t *testing.T, ws *worldState, model map[EntityID]map[ComponentID]Component) {
	t.Helper()

	alive := 0
	for _, arch := range ws.archetypes {
		alive += len(arch.entities)
	}
	require.Len(t, model, alive, "number of alive entities mismatch")

	for eid, values := range model {
		ids, err := ws.componentIDs(eid)
		require.NoError(t, err)
		require.Len(t, ids, len(values), "entity %d component count mismatch", eid)
		for cid, want := range values {
			got, err := ws.getComponent(eid, cid)
			require.NoError(t, err)
			require.Equal(t, want, got, "entity %d component %d mismatch", eid, cid)
		}
	}
}

type worldStateOp uint8

const (
	ws_spawn   worldStateOp = 30
	ws_despawn worldStateOp = 10
	ws_insert  worldStateOp = 35
	ws_remove  worldStateOp = 25
)

var worldStateOps = []worldStateOp{ws_spawn, ws_despawn, ws_insert, ws_remove}

// -------------------------------------------------------------------------------------------------
// Archetype reuse
// -------------------------------------------------------------------------------------------------

func TestWorldState_ArchetypesAreShared(t *testing.T) {
	t.Parallel()

	ws, cids := newTestWorldState(t)

	e1, _ := ws.entities.reserve()
	require.NoError(t, ws.spawnEntity(e1, []Component{Health{Value: 1}}))
	e2, _ := ws.entities.reserve()
	require.NoError(t, ws.spawnEntity(e2, nil))
	require.NoError(t, ws.insertComponent(e2, cids[0], Health{Value: 2}))

	a1, err := ws.entities.getArchetype(e1)
	require.NoError(t, err)
	a2, err := ws.entities.getArchetype(e2)
	require.NoError(t, err)
	assert.Same(t, a1, a2)
	assert.Len(t, ws.archetypes, 2) // {} and {Health}
}

func TestWorldState_SpawnErrors(t *testing.T) {
	t.Parallel()

	ws, _ := newTestWorldState(t)

	eid, _ := ws.entities.reserve()
	err := ws.spawnEntity(eid, []Component{PlayerTag{Tag: "a"}})
	require.ErrorIs(t, err, ErrComponentNotRegistered)

	err = ws.spawnEntity(eid, []Component{Health{}, Health{}})
	require.Error(t, err)
	assert.False(t, ws.entities.isAlive(eid))
}

func TestWorldState_ComponentIDsSorted(t *testing.T) {
	t.Parallel()

	ws, cids := newTestWorldState(t)

	eid, _ := ws.entities.reserve()
	require.NoError(t, ws.spawnEntity(eid, []Component{Velocity{}, Health{}}))
	require.NoError(t, ws.insertComponent(eid, cids[1], Position{}))

	ids, err := ws.componentIDs(eid)
	require.NoError(t, err)
	assert.Equal(t, cids, ids)
}
