package client

import (
	"errors"
	"testing"

	"rusteroids/internal/chunk"
	"rusteroids/internal/physics"
	"rusteroids/internal/protocol"
	"rusteroids/internal/world"
)

// 3x3 chunks of 100 units
func smallMap() chunk.GlobalConfig {
	return chunk.GlobalConfig{MapSizeChunks: chunk.V(3, 3), SingleChunkSize: chunk.V(100, 100)}
}

func rockAt(id world.ObjectID, x, y float64) protocol.ObjectData {
	return protocol.ObjectData{
		Object:    world.Object{ID: id, Type: world.AsteroidType(world.Asteroid{Seed: uint64(id), HP: 30, Size: 1})},
		Transform: physics.Transform{Translation: chunk.V(x, y)},
	}
}

func shipAt(id world.ObjectID, x, y float64) protocol.ObjectData {
	return protocol.ObjectData{
		Object:    world.Object{ID: id, Type: world.ShipType(world.Ship{HP: 100, Shields: 50})},
		Transform: physics.Transform{Translation: chunk.V(x, y)},
	}
}

func joined(t *testing.T) *Replica {
	t.Helper()
	r := NewReplica()
	err := r.Apply(&protocol.OnConnect{
		ClientID: 5,
		Clients: []world.ClientEntry{
			{ClientID: 2, ObjectID: 20, Data: world.ClientData{Name: "other"}},
			{ClientID: 5, ObjectID: 50, Data: world.ClientData{Name: "me"}},
		},
		Config: smallMap(),
		Ship:   50,
	})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestOnConnectResetsEverything(t *testing.T) {
	r := NewReplica()
	r.Store.Insert(&world.Entity{Object: world.Object{ID: 999, Type: world.PickUpType(world.PickUp{})}})
	r.Clients.Set(world.ClientEntry{ClientID: 9, ObjectID: 999})

	r.Apply(&protocol.OnConnect{
		ClientID: 5,
		Clients:  []world.ClientEntry{{ClientID: 5, ObjectID: 50, Data: world.ClientData{Name: "me"}}},
		Config:   smallMap(),
		Ship:     50,
	})

	if r.State() != StateInGame {
		t.Fatalf("expected in game, got %v", r.State())
	}
	if r.Store.Len() != 0 {
		t.Error("stale entities should be gone")
	}
	if _, ok := r.Clients.ByClient(9); ok {
		t.Error("stale clients should be gone")
	}
	self, ok := r.Clients.ByClient(world.SelfClientID)
	if !ok || self.ObjectID != 50 || self.Data.Name != "me" {
		t.Errorf("expected our entry under the self id, got %+v", self)
	}
	if _, ok := r.Clients.ByClient(5); ok {
		t.Error("our server id should not have its own entry")
	}
	if r.ServerID() != 5 || r.Config() != smallMap() {
		t.Errorf("unexpected ids/config %d %+v", r.ServerID(), r.Config())
	}
	// 3x3 map plus one shadow ring
	if r.Loaded.Len() != 25 {
		t.Errorf("expected 25 loaded chunks, got %d", r.Loaded.Len())
	}
}

func TestUpdateUpsertsAndBuildsPuppets(t *testing.T) {
	r := joined(t)
	r.Apply(&protocol.Update{Tick: 1, Objects: []protocol.ObjectData{rockAt(7, 50, 50)}})

	e, ok := r.Store.Get(7)
	if !ok {
		t.Fatal("asteroid should be spawned")
	}
	if len(e.Look.Hull) == 0 {
		t.Error("spawned asteroid should have its hull")
	}
	// chunk (0,0) shows up again at (3,0), (0,3) and (3,3)
	puppets := r.Store.PuppetsOf(7)
	if len(puppets) != 3 {
		t.Fatalf("expected 3 puppets, got %d", len(puppets))
	}
	for _, p := range puppets {
		want := chunk.V(50, 50).Add(chunk.V(float64(p.BindedChunk.X), float64(p.BindedChunk.Y)).Scale(100))
		if !p.Transform.Translation.Near(want, 1e-9) {
			t.Errorf("puppet in %v at %v, want %v", p.BindedChunk, p.Transform.Translation, want)
		}
	}

	moved := rockAt(7, 60, 50)
	r.Apply(&protocol.Update{Tick: 2, Objects: []protocol.ObjectData{moved}})
	if e2, _ := r.Store.Get(7); e2 != e || e2.Transform.Translation != chunk.V(60, 50) {
		t.Error("existing entity should be overwritten in place")
	}
	if r.Stats().Tick != 2 {
		t.Errorf("expected tick 2, got %d", r.Stats().Tick)
	}
}

func TestUpdateDespawnsAbsentObjects(t *testing.T) {
	r := joined(t)
	r.Apply(&protocol.Update{Tick: 1, Objects: []protocol.ObjectData{rockAt(7, 50, 50), rockAt(8, 150, 150)}})
	r.Apply(&protocol.Update{Tick: 2, Objects: []protocol.ObjectData{rockAt(8, 150, 150)}})

	if _, ok := r.Store.Get(7); ok {
		t.Error("object missing from the update should be despawned")
	}
	if n := len(r.Store.PuppetsOf(7)); n != 0 {
		t.Errorf("its puppets should go in the same pass, %d left", n)
	}
	if _, ok := r.Store.Get(8); !ok {
		t.Error("object still in the update should stay")
	}
}

func TestShipPuppetsWaitForBinding(t *testing.T) {
	r := joined(t)
	r.Apply(&protocol.Update{Tick: 1, Objects: []protocol.ObjectData{shipAt(30, 50, 50)}})
	if _, ok := r.Store.Get(30); !ok {
		t.Fatal("unbound ship should still be replicated")
	}
	if n := len(r.Store.PuppetsOf(30)); n != 0 {
		t.Fatalf("unbound ship should get no puppets, got %d", n)
	}

	r.Apply(&protocol.NewConnection{ClientID: 3, Ship: 30, Data: world.ClientData{Name: "late", Style: 2}})
	r.Apply(&protocol.Update{Tick: 2, Objects: []protocol.ObjectData{shipAt(30, 50, 50)}})
	if n := len(r.Store.PuppetsOf(30)); n != 3 {
		t.Errorf("bound ship should get 3 puppets, got %d", n)
	}
	e, _ := r.Store.Get(30)
	if e.Look.Name != "late" {
		t.Errorf("ship look should pick up the owner, got %q", e.Look.Name)
	}
}

func TestClientLifecycleMessages(t *testing.T) {
	r := joined(t)

	r.Apply(&protocol.Registration{ClientID: 5, Data: world.ClientData{Name: "me2"}})
	if self, _ := r.Clients.ByClient(world.SelfClientID); self.Data.Name != "me2" {
		t.Errorf("our own registration should land on the self entry, got %+v", self)
	}

	r.Apply(&protocol.Disconnection{ClientID: 2})
	if _, ok := r.Clients.ByClient(2); ok {
		t.Error("disconnected client should be removed")
	}
	if _, ok := r.Clients.ByObject(20); ok {
		t.Error("its object binding should go too")
	}

	r.Apply(&protocol.ChatMessage{ClientID: 5, Text: "hi"})
	if len(r.Chat) != 1 || r.Chat[0].Name != "me2" || r.Chat[0].Text != "hi" {
		t.Errorf("unexpected chat %+v", r.Chat)
	}
}

func TestMessagesBeforeOnConnectAreDropped(t *testing.T) {
	r := NewReplica()
	if err := r.Apply(&protocol.Update{Tick: 1, Objects: []protocol.ObjectData{rockAt(7, 50, 50)}}); err != nil {
		t.Fatal(err)
	}
	if r.Store.Len() != 0 || r.State() != StateMenu {
		t.Error("an update in the menu should be ignored")
	}
}

func TestKickTearsDown(t *testing.T) {
	r := joined(t)
	r.Apply(&protocol.Update{Tick: 1, Objects: []protocol.ObjectData{rockAt(7, 50, 50)}})

	err := r.Apply(&protocol.Kick{Reason: "bye"})
	if !errors.Is(err, ErrKicked) {
		t.Fatalf("expected ErrKicked, got %v", err)
	}
	if r.State() != StateMenu {
		t.Errorf("expected menu, got %v", r.State())
	}
	st := r.Stats()
	if st.Objects != 0 || st.Puppets != 0 || st.Clients != 0 || r.Loaded != nil {
		t.Errorf("replica should be empty, got %+v", st)
	}
	if _, ok := r.Ship(); ok {
		t.Error("no ship after teardown")
	}
}

func TestGreetingVersion(t *testing.T) {
	r := NewReplica()
	if err := r.Apply(&protocol.Greeting{Version: protocol.Version, Motd: "m"}); err != nil || r.Motd() != "m" {
		t.Errorf("matching greeting should be accepted: %v", err)
	}
	if err := r.Apply(&protocol.Greeting{Version: protocol.Version + 1}); !errors.Is(err, ErrVersionMismatch) {
		t.Errorf("expected ErrVersionMismatch, got %v", err)
	}
}

func TestOnConnectRejectsBadMap(t *testing.T) {
	r := joined(t)
	err := r.Apply(&protocol.OnConnect{ClientID: 5, Config: chunk.GlobalConfig{}, Ship: 50})
	if !errors.Is(err, ErrBadState) {
		t.Fatalf("expected ErrBadState, got %v", err)
	}
	if r.State() != StateMenu || r.Loaded != nil {
		t.Error("a bad map should leave the replica torn down")
	}
	if err := r.Apply(&protocol.Update{Tick: 1, Objects: []protocol.ObjectData{rockAt(7, 50, 50)}}); err != nil {
		t.Fatal(err)
	}
	if r.Store.Len() != 0 {
		t.Error("updates after a refused on_connect should be ignored")
	}
}

func TestUpdateSkipsPayloadlessObjects(t *testing.T) {
	r := joined(t)
	bare := protocol.ObjectData{Object: world.Object{ID: 999, Type: world.ObjectType{Kind: world.KindShip}}}
	r.Apply(&protocol.Update{Tick: 1, Objects: []protocol.ObjectData{bare, rockAt(7, 50, 50)}})
	if _, ok := r.Store.Get(999); ok {
		t.Fatal("ship without a payload should not be stored")
	}
	if _, ok := r.Store.Get(7); !ok {
		t.Error("valid objects in the same update should still land")
	}

	r.Apply(&protocol.NewConnection{ClientID: 6, Ship: 999, Data: world.ClientData{Name: "ghost"}})
	if err := r.Apply(&protocol.Registration{ClientID: 6, Data: world.ClientData{Name: "ghost2"}}); err != nil {
		t.Fatal(err)
	}
	if entry, _ := r.Clients.ByClient(6); entry.Data.Name != "ghost2" {
		t.Errorf("registration should still update the client, got %+v", entry)
	}
}
