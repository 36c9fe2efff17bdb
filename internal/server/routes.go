// Package server is the authoritative game server: the WebSocket endpoint,
// per-connection pumps and the simulation loop.
package server

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"
	"golang.org/x/time/rate"

	"rusteroids/internal/auth"
	"rusteroids/internal/config"
)

// connSlack lets refused clients still reach the game and hear why
const connSlack = 4

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// JoinURL is the address clients dial for a server reachable at host
func JoinURL(host string) string {
	u := url.URL{Scheme: "ws", Host: host, Path: "/ws"}
	return u.String()
}

// Server wires the HTTP surface to a game
type Server struct {
	cfg  config.Config
	hub  *Hub
	game *Game
	gate *auth.Gate
}

func New(cfg config.Config, game *Game, gate *auth.Gate) *Server {
	return &Server{
		cfg:  cfg,
		hub:  NewHub(cfg.MaxClients+connSlack, cfg.MaxPerIP),
		game: game,
		gate: gate,
	}
}

// Routes configures HTTP routes
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/qr", s.serveQR)
	mux.HandleFunc("/health", s.serveHealth)
	return mux
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	name, err := s.gate.Admit(r)
	if err != nil {
		log.Printf("refused %s: %v", extractIP(r), err)
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	ip := extractIP(r)
	if !s.hub.Admit(ip) {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.hub.Release(ip)
		log.Printf("upgrade error: %v", err)
		return
	}

	limiter := rate.NewLimiter(rate.Limit(s.cfg.InputRate), s.cfg.InputBurst)
	c := NewConn(s.hub, s.game, ws, ip, name, limiter)
	go c.WritePump()
	go c.ReadPump()
}

// serveQR renders the join link for the host the request came in on
func (s *Server) serveQR(w http.ResponseWriter, r *http.Request) {
	png, err := qrcode.Encode(JoinURL(r.Host), qrcode.Medium, 256)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

type health struct {
	State       string `json:"state"`
	Players     int    `json:"players"`
	Connections int    `json:"connections"`
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	h := health{
		State:       s.game.State().String(),
		Players:     s.game.Players(),
		Connections: s.hub.Total(),
	}
	w.Header().Set("Content-Type", "application/json")
	if s.game.State() != StateRunning {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(h)
}
