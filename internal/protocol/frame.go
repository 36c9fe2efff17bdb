package protocol

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Channel selects the delivery policy of a frame
type Channel uint8

const (
	// Fast is lossy server to client and ordered client to server
	Fast Channel = 0
	// Guaranteed is reliable and ordered both ways
	Guaranteed Channel = 1
)

func (c Channel) String() string {
	switch c {
	case Fast:
		return "fast"
	case Guaranteed:
		return "guaranteed"
	}
	return fmt.Sprintf("channel(%d)", uint8(c))
}

const (
	frameHeaderLen = 2
	flagZstd       = 1 << 0

	// CompressThreshold is the payload size from which frames are compressed
	CompressThreshold = 1024
)

var (
	// frame errors are all malformed input
	ErrShortFrame = fmt.Errorf("%w: frame too short", ErrMalformed)
	ErrBadChannel = fmt.Errorf("%w: unknown channel", ErrMalformed)
	ErrBadFlags   = fmt.Errorf("%w: unknown frame flags", ErrMalformed)
)

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		panic(fmt.Sprintf("protocol: zstd encoder: %v", err))
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(64<<20))
	if err != nil {
		panic(fmt.Sprintf("protocol: zstd decoder: %v", err))
	}
}

// EncodeFrame marshals m and wraps it as [channel][flags][payload]
func EncodeFrame(ch Channel, m Message) ([]byte, error) {
	payload, err := Marshal(m)
	if err != nil {
		return nil, err
	}
	return frame(ch, payload), nil
}

func frame(ch Channel, payload []byte) []byte {
	var flags byte
	if len(payload) >= CompressThreshold {
		if packed := zstdEncoder.EncodeAll(payload, nil); len(packed) < len(payload) {
			payload = packed
			flags |= flagZstd
		}
	}
	out := make([]byte, 0, frameHeaderLen+len(payload))
	out = append(out, byte(ch), flags)
	return append(out, payload...)
}

// DecodeFrame reverses EncodeFrame
func DecodeFrame(b []byte) (Channel, Message, error) {
	if len(b) < frameHeaderLen {
		return 0, nil, ErrShortFrame
	}
	ch, flags, payload := Channel(b[0]), b[1], b[2:]
	if ch != Fast && ch != Guaranteed {
		return 0, nil, fmt.Errorf("%w: %d", ErrBadChannel, b[0])
	}
	if flags&^flagZstd != 0 {
		return ch, nil, fmt.Errorf("%w: %#x", ErrBadFlags, flags)
	}
	if flags&flagZstd != 0 {
		raw, err := zstdDecoder.DecodeAll(payload, nil)
		if err != nil {
			return ch, nil, fmt.Errorf("%w: zstd: %v", ErrMalformed, err)
		}
		payload = raw
	}
	m, err := Unmarshal(payload)
	return ch, m, err
}
