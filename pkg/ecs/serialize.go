package ecs

import (
	"github.com/goccy/go-json"
	"github.com/kelindar/bitmap"
	"github.com/rotisserie/eris"
)

// worldSnapshot is the serialized form of the world state. Components are referenced by name
// because component IDs depend on registration order.
type worldSnapshot struct {
	NextID     EntityID            `json:"next_id"`
	Free       []EntityID          `json:"free"`
	Archetypes []archetypeSnapshot `json:"archetypes"`
}

// archetypeSnapshot holds the entities of one archetype and one column of rows per component.
type archetypeSnapshot struct {
	Components []string            `json:"components"`
	Entities   []EntityID          `json:"entities"`
	Columns    [][]json.RawMessage `json:"columns"`
}

// Serialize converts the world's entities and components to JSON. Resources, systems, and
// registrations are not included; they are recreated on startup.
func (w *World) Serialize() ([]byte, error) {
	snap, err := w.state.toSnapshot()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, eris.Wrap(err, "failed to marshal world snapshot")
	}
	return data, nil
}

// Deserialize replaces the world's entities and components with the serialized state. The
// component types referenced by the data must already be registered.
func (w *World) Deserialize(data []byte) error {
	var snap worldSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return eris.Wrap(err, "failed to unmarshal world snapshot")
	}
	if err := w.state.fromSnapshot(&snap); err != nil {
		return err
	}
	// Mark init as done to prevent re-running init systems after restore.
	w.initDone = true
	return nil
}

// toSnapshot captures the world state. Empty archetypes are skipped.
func (ws *worldState) toSnapshot() (*worldSnapshot, error) {
	ws.entities.mu.Lock()
	snap := &worldSnapshot{
		NextID:     ws.entities.nextID,
		Free:       append([]EntityID(nil), ws.entities.free...),
		Archetypes: make([]archetypeSnapshot, 0, len(ws.archetypes)),
	}
	ws.entities.mu.Unlock()

	for _, arch := range ws.archetypes {
		if len(arch.entities) == 0 {
			continue
		}
		archSnap := archetypeSnapshot{
			Components: make([]string, len(arch.columns)),
			Entities:   append([]EntityID(nil), arch.entities...),
			Columns:    make([][]json.RawMessage, len(arch.columns)),
		}
		for i, col := range arch.columns {
			rows, err := col.marshal()
			if err != nil {
				return nil, err
			}
			archSnap.Components[i] = col.name()
			archSnap.Columns[i] = rows
		}
		snap.Archetypes = append(snap.Archetypes, archSnap)
	}
	return snap, nil
}

// fromSnapshot replaces the entities and archetypes with the ones in the snapshot. On error the
// world state is left unchanged.
func (ws *worldState) fromSnapshot(snap *worldSnapshot) error {
	restored := &worldState{
		components: ws.components,
		entities:   newEntityManager(),
		archetypes: make([]*archetype, 0, len(snap.Archetypes)),
	}
	restored.entities.nextID = snap.NextID
	restored.entities.free = append(restored.entities.free, snap.Free...)

	for i := range snap.Archetypes {
		if err := restored.restoreArchetype(&snap.Archetypes[i]); err != nil {
			return eris.Wrapf(err, "failed to restore archetype %d", i)
		}
	}

	ws.entities.mu.Lock()
	ws.entities.nextID = restored.entities.nextID
	ws.entities.free = restored.entities.free
	ws.entities.mu.Unlock()
	ws.entities.entityArch = restored.entities.entityArch
	ws.archetypes = restored.archetypes
	return nil
}

// restoreArchetype creates the archetype described by archSnap and places its entities in it.
func (ws *worldState) restoreArchetype(archSnap *archetypeSnapshot) error {
	if len(archSnap.Components) != len(archSnap.Columns) {
		return eris.New("number of components and columns don't match")
	}

	var components bitmap.Bitmap
	cids := make([]ComponentID, len(archSnap.Components))
	for i, name := range archSnap.Components {
		cid, err := ws.components.getID(name)
		if err != nil {
			return err
		}
		if components.Contains(uint32(cid)) {
			return eris.Errorf("duplicate component %s", name)
		}
		components.Set(uint32(cid))
		cids[i] = cid
	}
	if ws.archExact(components) != nil {
		return eris.New("duplicate archetype")
	}

	arch := ws.findOrCreateArchetype(components)
	for i, cid := range cids {
		rows := archSnap.Columns[i]
		if len(rows) != len(archSnap.Entities) {
			return eris.Errorf("column %s has %d rows for %d entities",
				archSnap.Components[i], len(rows), len(archSnap.Entities))
		}
		col, ok := arch.column(cid)
		if !ok {
			return eris.Errorf("archetype is missing column %s", archSnap.Components[i])
		}
		if err := col.unmarshal(rows); err != nil {
			return err
		}
	}

	for row, eid := range archSnap.Entities {
		if eid >= ws.entities.nextID {
			return eris.Errorf("entity %d is beyond next id %d", eid, ws.entities.nextID)
		}
		if ws.entities.isAlive(eid) {
			return eris.Errorf("entity %d appears more than once", eid)
		}
		arch.entities = append(arch.entities, eid)
		arch.rows.set(eid, row)
		ws.entities.entityArch[eid] = arch
	}
	return nil
}
