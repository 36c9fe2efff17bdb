// Package protocol defines the messages exchanged between server and
// clients and how they are framed on the wire.
package protocol

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"rusteroids/internal/chunk"
	"rusteroids/internal/physics"
	"rusteroids/internal/world"
)

// Version is sent in the Greeting; clients refuse a different major
const Version uint16 = 1

// Tag is the wire discriminator of a Message
type Tag uint8

const (
	TagError Tag = iota
	TagGreeting
	TagRegistration
	TagOnConnect
	TagUpdate
	TagInputs
	TagChatMessage
	TagNewConnection
	TagDisconnection
	TagKick
)

var tagNames = [...]string{
	TagError:         "error",
	TagGreeting:      "greeting",
	TagRegistration:  "registration",
	TagOnConnect:     "on_connect",
	TagUpdate:        "update",
	TagInputs:        "inputs",
	TagChatMessage:   "chat",
	TagNewConnection: "new_connection",
	TagDisconnection: "disconnection",
	TagKick:          "kick",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

var (
	ErrUnknownTag = errors.New("protocol: unknown message tag")
	ErrMalformed  = errors.New("protocol: malformed message")
)

// Message is one variant of the wire union
type Message interface {
	Tag() Tag
}

// Error is the catch-all variant; it carries nothing
type Error struct {
	_msgpack struct{} `msgpack:",as_array"`
}

// Greeting is the first thing a client hears after its handshake
type Greeting struct {
	_msgpack struct{} `msgpack:",as_array"`
	Version  uint16
	Motd     string
}

// Registration announces a cosmetics change. Clients send it with their
// own id ignored; the server fills it in and rebroadcasts.
type Registration struct {
	_msgpack struct{} `msgpack:",as_array"`
	ClientID world.ClientID
	Data     world.ClientData
}

// OnConnect carries the full state a new client needs
type OnConnect struct {
	_msgpack struct{} `msgpack:",as_array"`
	ClientID world.ClientID
	Clients  []world.ClientEntry
	Config   chunk.GlobalConfig
	Ship     world.ObjectID
}

// ObjectData is the replicated snapshot of one authoritative object
type ObjectData struct {
	_msgpack  struct{} `msgpack:",as_array"`
	Object    world.Object
	Transform physics.Transform
	Velocity  physics.Velocity
}

// Update is the per-tick snapshot of every authoritative object
type Update struct {
	_msgpack struct{} `msgpack:",as_array"`
	Tick     uint64
	Objects  []ObjectData
}

// Inputs is one client input sample
type Inputs struct {
	_msgpack       struct{} `msgpack:",as_array"`
	Up             bool
	Down           bool
	Left           bool
	Right          bool
	Fire           bool
	RotationTarget float64
}

// ChatMessage is a line of chat. Like Registration, the server stamps the
// sender id.
type ChatMessage struct {
	_msgpack struct{} `msgpack:",as_array"`
	ClientID world.ClientID
	Text     string
}

// NewConnection announces a client and the ship it was given
type NewConnection struct {
	_msgpack struct{} `msgpack:",as_array"`
	ClientID world.ClientID
	Ship     world.ObjectID
	Data     world.ClientData
}

type Disconnection struct {
	_msgpack struct{} `msgpack:",as_array"`
	ClientID world.ClientID
}

// Kick tells a client why it is being dropped
type Kick struct {
	_msgpack struct{} `msgpack:",as_array"`
	Reason   string
}

func (*Error) Tag() Tag         { return TagError }
func (*Greeting) Tag() Tag      { return TagGreeting }
func (*Registration) Tag() Tag  { return TagRegistration }
func (*OnConnect) Tag() Tag     { return TagOnConnect }
func (*Update) Tag() Tag        { return TagUpdate }
func (*Inputs) Tag() Tag        { return TagInputs }
func (*ChatMessage) Tag() Tag   { return TagChatMessage }
func (*NewConnection) Tag() Tag { return TagNewConnection }
func (*Disconnection) Tag() Tag { return TagDisconnection }
func (*Kick) Tag() Tag          { return TagKick }

// Controls converts the sample for the simulation
func (in *Inputs) Controls() world.Controls {
	return world.Controls{
		Up:             in.Up,
		Down:           in.Down,
		Left:           in.Left,
		Right:          in.Right,
		Fire:           in.Fire,
		RotationTarget: in.RotationTarget,
	}
}

// InputsFrom builds an Inputs message from a control sample
func InputsFrom(c world.Controls) *Inputs {
	return &Inputs{
		Up:             c.Up,
		Down:           c.Down,
		Left:           c.Left,
		Right:          c.Right,
		Fire:           c.Fire,
		RotationTarget: c.RotationTarget,
	}
}

// SnapshotOf builds the replicated form of an entity
func SnapshotOf(e *world.Entity) ObjectData {
	return ObjectData{Object: e.Object, Transform: e.Transform, Velocity: e.Velocity}
}

func newMessage(t Tag) (Message, error) {
	switch t {
	case TagError:
		return &Error{}, nil
	case TagGreeting:
		return &Greeting{}, nil
	case TagRegistration:
		return &Registration{}, nil
	case TagOnConnect:
		return &OnConnect{}, nil
	case TagUpdate:
		return &Update{}, nil
	case TagInputs:
		return &Inputs{}, nil
	case TagChatMessage:
		return &ChatMessage{}, nil
	case TagNewConnection:
		return &NewConnection{}, nil
	case TagDisconnection:
		return &Disconnection{}, nil
	case TagKick:
		return &Kick{}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownTag, uint8(t))
}

// Marshal encodes m as a msgpack array [tag, body]
func Marshal(m Message) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := enc.EncodeArrayLen(2); err != nil {
		return nil, err
	}
	if err := enc.EncodeUint8(uint8(m.Tag())); err != nil {
		return nil, err
	}
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Tag(), err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a message produced by Marshal. An unknown tag yields an
// error wrapping ErrUnknownTag.
func Unmarshal(b []byte) (Message, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if n != 2 {
		return nil, fmt.Errorf("%w: envelope has %d elements", ErrMalformed, n)
	}
	tag, err := dec.DecodeUint8()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	m, err := newMessage(Tag(tag))
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrMalformed, Tag(tag), err)
	}
	return m, nil
}
