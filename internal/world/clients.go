package world

import (
	"slices"
)

// ClientID identifies a connected client. The server hands out ids from 1;
// a client's own view of itself uses SelfClientID.
type ClientID uint64

// SelfClientID is the reserved id of the local player in a client replica
const SelfClientID ClientID = 0

// ClientData is what a client chose to look like
type ClientData struct {
	_msgpack struct{} `msgpack:",as_array"`
	Name     string
	Style    Style
	Color    Color
}

// ClientEntry binds a client to the ship it controls
type ClientEntry struct {
	_msgpack struct{} `msgpack:",as_array"`
	ClientID ClientID
	ObjectID ObjectID
	Data     ClientData
}

// ClientsData is a bidirectional index between clients and their ships.
// Each client binds at most one object and each object at most one client.
type ClientsData struct {
	byClient map[ClientID]ClientEntry
	byObject map[ObjectID]ClientID
}

func NewClientsData() *ClientsData {
	return &ClientsData{
		byClient: make(map[ClientID]ClientEntry),
		byObject: make(map[ObjectID]ClientID),
	}
}

// Set adds or replaces the entry for e.ClientID, dropping any stale
// binding of either side.
func (c *ClientsData) Set(e ClientEntry) {
	if old, ok := c.byClient[e.ClientID]; ok {
		delete(c.byObject, old.ObjectID)
	}
	if other, ok := c.byObject[e.ObjectID]; ok && other != e.ClientID {
		delete(c.byClient, other)
	}
	c.byClient[e.ClientID] = e
	c.byObject[e.ObjectID] = e.ClientID
}

// Remove deletes the client and returns its last entry
func (c *ClientsData) Remove(id ClientID) (ClientEntry, bool) {
	e, ok := c.byClient[id]
	if !ok {
		return ClientEntry{}, false
	}
	delete(c.byClient, id)
	delete(c.byObject, e.ObjectID)
	return e, true
}

// ByClient looks up a client's entry
func (c *ClientsData) ByClient(id ClientID) (ClientEntry, bool) {
	e, ok := c.byClient[id]
	return e, ok
}

// ByObject looks up the client bound to a ship
func (c *ClientsData) ByObject(id ObjectID) (ClientEntry, bool) {
	cid, ok := c.byObject[id]
	if !ok {
		return ClientEntry{}, false
	}
	return c.byClient[cid], true
}

// UpdateData replaces a client's cosmetics, keeping its binding
func (c *ClientsData) UpdateData(id ClientID, d ClientData) bool {
	e, ok := c.byClient[id]
	if !ok {
		return false
	}
	e.Data = d
	c.byClient[id] = e
	return true
}

// Entries returns every entry ordered by client id
func (c *ClientsData) Entries() []ClientEntry {
	out := make([]ClientEntry, 0, len(c.byClient))
	for _, e := range c.byClient {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b ClientEntry) int {
		switch {
		case a.ClientID < b.ClientID:
			return -1
		case a.ClientID > b.ClientID:
			return 1
		}
		return 0
	})
	return out
}

// Reset replaces the whole table
func (c *ClientsData) Reset(entries []ClientEntry) {
	clear(c.byClient)
	clear(c.byObject)
	for _, e := range entries {
		c.Set(e)
	}
}

// Len returns the number of clients
func (c *ClientsData) Len() int {
	return len(c.byClient)
}
