package protocol

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"rusteroids/internal/world"
)

// The handshake blob is the first message a client sends, raw and
// unframed:
//
//	0..2    color R, G, B
//	3       style byte
//	4..255  UTF-8 name, zero padded
const (
	UserDataLen = 256
	nameOffset  = 4
	MaxNameLen  = UserDataLen - nameOffset
)

var ErrBadUserData = errors.New("protocol: bad user data blob")

// EncodeUserData packs client cosmetics into a handshake blob. Names longer
// than MaxNameLen bytes are cut at a rune boundary.
func EncodeUserData(d world.ClientData) []byte {
	b := make([]byte, UserDataLen)
	b[0], b[1], b[2] = d.Color.R, d.Color.G, d.Color.B
	b[3] = byte(d.Style)
	copy(b[nameOffset:], TruncateUTF8(d.Name, MaxNameLen))
	return b
}

// DecodeUserData unpacks a handshake blob. The name runs up to the last
// non-zero byte, so zeros inside a name survive.
func DecodeUserData(b []byte) (world.ClientData, error) {
	if len(b) != UserDataLen {
		return world.ClientData{}, fmt.Errorf("%w: %d bytes", ErrBadUserData, len(b))
	}
	end := len(b)
	for end > nameOffset && b[end-1] == 0 {
		end--
	}
	return world.ClientData{
		Name:  strings.ToValidUTF8(string(b[nameOffset:end]), "\uFFFD"),
		Style: world.Style(b[3]),
		Color: world.RGB(b[0], b[1], b[2]),
	}, nil
}

// TruncateUTF8 cuts s to at most max bytes without splitting a rune
func TruncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
