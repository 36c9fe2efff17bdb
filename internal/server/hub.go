package server

import (
	"github.com/sasha-s/go-deadlock"
)

// Hub does transport-level connection accounting. The game decides who
// gets a ship; the hub only keeps a single address or a connect storm from
// exhausting the process.
type Hub struct {
	mu       deadlock.Mutex
	ipConns  map[string]int
	total    int
	maxTotal int
	maxPerIP int
}

func NewHub(maxTotal, maxPerIP int) *Hub {
	return &Hub{
		ipConns:  make(map[string]int),
		maxTotal: maxTotal,
		maxPerIP: maxPerIP,
	}
}

// Admit counts a new connection from ip, or reports false if a limit is hit
func (h *Hub) Admit(ip string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.total >= h.maxTotal {
		return false
	}
	if h.ipConns[ip] >= h.maxPerIP {
		return false
	}
	h.ipConns[ip]++
	h.total++
	return true
}

// Release undoes one Admit
func (h *Hub) Release(ip string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ipConns[ip] == 0 {
		return
	}
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.total--
}

// Total returns the tracked connection count
func (h *Hub) Total() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.total
}
