package server

import (
	"bytes"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"rusteroids/internal/auth"
	"rusteroids/internal/config"
	"rusteroids/internal/protocol"
)

func startServer(t *testing.T, cfg config.Config, gate *auth.Gate) (*httptest.Server, *Game) {
	t.Helper()
	g := NewGame(cfg, nil, rand.New(rand.NewPCG(3, 4)))
	g.Start()
	ts := httptest.NewServer(New(cfg, g, gate).Routes())
	t.Cleanup(func() {
		g.Stop()
		ts.Close()
	})
	return ts, g
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, ts *httptest.Server, name string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	if err := ws.WriteMessage(websocket.BinaryMessage, protocol.EncodeUserData(pilot(name))); err != nil {
		t.Fatal(err)
	}
	return ws
}

func writeMsg(t *testing.T, ws *websocket.Conn, ch protocol.Channel, m protocol.Message) {
	t.Helper()
	frame, err := protocol.EncodeFrame(ch, m)
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		t.Fatal(err)
	}
}

// waitFor reads frames until match accepts one
func waitFor(t *testing.T, ws *websocket.Conn, match func(protocol.Message) bool) protocol.Message {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("read failed before the expected message: %v", err)
		}
		_, m, err := protocol.DecodeFrame(raw)
		if err != nil {
			t.Fatalf("bad frame from server: %v", err)
		}
		if match(m) {
			return m
		}
	}
}

func isTag(tag protocol.Tag) func(protocol.Message) bool {
	return func(m protocol.Message) bool { return m.Tag() == tag }
}

func TestEndToEndJoinAndChat(t *testing.T) {
	ts, g := startServer(t, testConfig(), auth.NewGate("", ""))

	alice := dial(t, ts, "alice")
	greet := waitFor(t, alice, isTag(protocol.TagGreeting)).(*protocol.Greeting)
	if greet.Motd != testConfig().Motd {
		t.Errorf("unexpected motd %q", greet.Motd)
	}
	oc := waitFor(t, alice, isTag(protocol.TagOnConnect)).(*protocol.OnConnect)
	waitFor(t, alice, func(m protocol.Message) bool {
		u, ok := m.(*protocol.Update)
		if !ok {
			return false
		}
		for _, o := range u.Objects {
			if o.Object.ID == oc.Ship {
				return true
			}
		}
		return false
	})

	bob := dial(t, ts, "bob")
	waitFor(t, bob, isTag(protocol.TagOnConnect))
	nc := waitFor(t, alice, isTag(protocol.TagNewConnection)).(*protocol.NewConnection)
	if nc.Data.Name != "bob" {
		t.Errorf("expected bob, got %q", nc.Data.Name)
	}

	writeMsg(t, bob, protocol.Guaranteed, &protocol.ChatMessage{Text: "hi alice"})
	chat := waitFor(t, alice, isTag(protocol.TagChatMessage)).(*protocol.ChatMessage)
	if chat.ClientID != nc.ClientID || chat.Text != "hi alice" {
		t.Errorf("unexpected chat %+v", chat)
	}

	bob.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	gone := waitFor(t, alice, isTag(protocol.TagDisconnection)).(*protocol.Disconnection)
	if gone.ClientID != nc.ClientID {
		t.Errorf("expected disconnection of %d, got %d", nc.ClientID, gone.ClientID)
	}
	if g.Players() != 1 {
		t.Errorf("expected one player left, got %d", g.Players())
	}
}

func TestBadHandshakeIsDropped(t *testing.T) {
	ts, g := startServer(t, testConfig(), auth.NewGate("", ""))
	ws, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()
	ws.WriteMessage(websocket.BinaryMessage, []byte("too short"))

	ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := ws.ReadMessage(); err == nil {
		t.Fatal("expected the server to close the connection")
	}
	time.Sleep(50 * time.Millisecond)
	if g.Players() != 0 {
		t.Errorf("no client should be registered, got %d", g.Players())
	}
}

func TestUnknownTagKeepsConnection(t *testing.T) {
	ts, _ := startServer(t, testConfig(), auth.NewGate("", ""))
	ws := dial(t, ts, "x")
	waitFor(t, ws, isTag(protocol.TagOnConnect))

	ws.WriteMessage(websocket.BinaryMessage, []byte{0, 0, 0x92, 0xcc, 0xc8, 0x90})
	writeMsg(t, ws, protocol.Guaranteed, &protocol.ChatMessage{Text: "still here"})
	chat := waitFor(t, ws, isTag(protocol.TagChatMessage)).(*protocol.ChatMessage)
	if chat.Text != "still here" {
		t.Errorf("unexpected chat %+v", chat)
	}
}

func TestFloodIsKicked(t *testing.T) {
	cfg := testConfig()
	cfg.InputRate = 1
	cfg.InputBurst = 3
	ts, _ := startServer(t, cfg, auth.NewGate("", ""))
	ws := dial(t, ts, "flood")
	for range 10 {
		frame, _ := protocol.EncodeFrame(protocol.Fast, &protocol.Inputs{Up: true})
		if err := ws.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			break
		}
	}
	kick := waitFor(t, ws, isTag(protocol.TagKick)).(*protocol.Kick)
	if kick.Reason != kickRateLimit {
		t.Errorf("expected %q, got %q", kickRateLimit, kick.Reason)
	}
}

func TestPasswordGate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sesame"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	ts, _ := startServer(t, testConfig(), auth.NewGate(string(hash), ""))

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a password, got %v", err)
	}

	h := http.Header{}
	h.Set(auth.PasswordHeader, "sesame")
	ws, _, err := websocket.DefaultDialer.Dial(wsURL(ts), h)
	if err != nil {
		t.Fatalf("dial with the password failed: %v", err)
	}
	ws.Close()
}

func TestTokenForcesName(t *testing.T) {
	gate := auth.NewGate("", "secret")
	token, err := gate.IssueToken("carol", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	ts, _ := startServer(t, testConfig(), gate)

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(ts)+"?"+auth.TokenParam+"="+token, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()
	ws.WriteMessage(websocket.BinaryMessage, protocol.EncodeUserData(pilot("mallory")))
	oc := waitFor(t, ws, isTag(protocol.TagOnConnect)).(*protocol.OnConnect)
	if len(oc.Clients) != 1 || oc.Clients[0].Data.Name != "carol" {
		t.Errorf("token subject should replace the name, got %+v", oc.Clients)
	}
}

func TestLongTokenNameIsCut(t *testing.T) {
	gate := auth.NewGate("", "secret")
	token, err := gate.IssueToken(strings.Repeat("z", protocol.MaxNameLen+40), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	ts, _ := startServer(t, testConfig(), gate)

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(ts)+"?"+auth.TokenParam+"="+token, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()
	ws.WriteMessage(websocket.BinaryMessage, protocol.EncodeUserData(pilot("x")))
	oc := waitFor(t, ws, isTag(protocol.TagOnConnect)).(*protocol.OnConnect)
	if len(oc.Clients) != 1 || oc.Clients[0].Data.Name != strings.Repeat("z", protocol.MaxNameLen) {
		t.Errorf("token name should be cut to %d bytes, got %d", protocol.MaxNameLen, len(oc.Clients[0].Data.Name))
	}
}

func TestHealthAndQR(t *testing.T) {
	ts, _ := startServer(t, testConfig(), auth.NewGate("", ""))

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var h health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || h.State != "running" {
		t.Errorf("unexpected health %d %+v", resp.StatusCode, h)
	}

	qr, err := http.Get(ts.URL + "/qr")
	if err != nil {
		t.Fatal(err)
	}
	defer qr.Body.Close()
	var buf bytes.Buffer
	buf.ReadFrom(qr.Body)
	if qr.Header.Get("Content-Type") != "image/png" || !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Errorf("expected a png, got %q", qr.Header.Get("Content-Type"))
	}
}

func TestJoinURL(t *testing.T) {
	if got := JoinURL("example.com:8080"); got != "ws://example.com:8080/ws" {
		t.Errorf("unexpected join url %q", got)
	}
}
