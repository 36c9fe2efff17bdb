package world

import (
	"rusteroids/internal/chunk"
	"rusteroids/internal/physics"
)

// ReconcileStats counts what one Reconcile pass did
type ReconcileStats struct {
	Refreshed int
	Despawned int
	Spawned   int
}

type puppetKey struct {
	id    ObjectID
	chunk chunk.Coord
}

// Reconcile brings the puppets in store in line with the authoritative
// entities and the loaded chunk set.
//
// A puppet survives only when its source still exists, its binded chunk is
// loaded, it still sits inside that chunk, it is the first puppet seen for
// its (id, chunk) pair, and its canonical chunk matches the source's.
// Survivors are snapped onto the source translated by the chunk offset.
// Afterwards every loaded shadow chunk gets a puppet for each entity in its
// canonical chunk that lacks one. Canonical chunks never hold puppets.
//
// Ships without a client binding are skipped; they get their puppets once
// the binding shows up.
func Reconcile(cfg chunk.GlobalConfig, loaded *chunk.Interest, store *Store, clients *ClientsData) ReconcileStats {
	var stats ReconcileStats
	claimed := make(map[puppetKey]struct{}, store.PuppetCount())

	for _, h := range store.PuppetHandles() {
		p, _ := store.Puppet(h)
		key := puppetKey{id: p.ID, chunk: p.BindedChunk}
		src, ok := store.Get(p.ID)
		_, dup := claimed[key]
		valid := ok &&
			!cfg.IsReal(p.BindedChunk) &&
			loaded.Contains(p.BindedChunk) &&
			cfg.PosToChunk(p.Transform.Translation) == p.BindedChunk &&
			!dup &&
			cfg.PosToRealChunk(p.Transform.Translation) == cfg.PosToRealChunk(src.Transform.Translation)
		if !valid {
			store.RemovePuppet(h)
			stats.Despawned++
			continue
		}
		claimed[key] = struct{}{}
		p.Transform = physics.Transform{
			Translation: cfg.PlaceInChunk(src.Transform.Translation, p.BindedChunk),
			Rotation:    src.Transform.Rotation,
		}
		p.Velocity = src.Velocity
		stats.Refreshed++
	}

	_, shadow := loaded.Split(cfg)
	if len(shadow) == 0 {
		return stats
	}
	buckets := make(map[chunk.Coord][]*Entity)
	for _, e := range store.Objects() {
		rc := cfg.PosToRealChunk(e.Transform.Translation)
		buckets[rc] = append(buckets[rc], e)
	}
	for _, sc := range shadow {
		for _, e := range buckets[cfg.ChunkToRealChunk(sc)] {
			key := puppetKey{id: e.Object.ID, chunk: sc}
			if _, ok := claimed[key]; ok {
				continue
			}
			look, ok := DeriveLook(e.Object, clients)
			if !ok {
				continue
			}
			store.SpawnPuppet(&PuppetEntity{
				Puppet: Puppet{ID: e.Object.ID, BindedChunk: sc},
				Transform: physics.Transform{
					Translation: cfg.PlaceInChunk(e.Transform.Translation, sc),
					Rotation:    e.Transform.Rotation,
				},
				Velocity: e.Velocity,
				Look:     look,
			})
			claimed[key] = struct{}{}
			stats.Spawned++
		}
	}
	return stats
}
