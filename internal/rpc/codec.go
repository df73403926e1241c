// Package rpc implements the miner calls (generate and score feedback) on
// top of the QUIC transport, using FlatBuffers payloads.
package rpc

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// kind identifies the message carried by a frame.
type kind byte

const (
	kindGenerate       kind = 1
	kindGenerateResult kind = 2
	kindScore          kind = 3
	kindScoreAck       kind = 4
)

const (
	// flagCompressed marks a zstd-compressed payload.
	flagCompressed byte = 1 << 0

	// compressThreshold is the payload size above which frames are compressed.
	compressThreshold = 4 << 10

	// headerSize is [kind][flags].
	headerSize = 2
)

// ErrMalformedResponse is returned when a miner's reply cannot be decoded.
var ErrMalformedResponse = errors.New("malformed response")

// codec builds and parses frames: [1 byte kind][1 byte flags][payload].
// zstd encoders and decoders are safe for concurrent EncodeAll/DecodeAll.
type codec struct {
	encoder *zstd.Encoder // encoder compresses large payloads
	decoder *zstd.Decoder // decoder inflates compressed payloads
}

// newCodec creates a codec with shared zstd state.
func newCodec() (*codec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create encoder:\n%w", err)
	}

	decoder, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(64<<20))
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("create decoder:\n%w", err)
	}

	return &codec{encoder: encoder, decoder: decoder}, nil
}

// encode wraps a payload in a frame, compressing it when large.
func (c *codec) encode(k kind, payload []byte) []byte {
	flags := byte(0)

	if len(payload) > compressThreshold {
		payload = c.encoder.EncodeAll(payload, nil)
		flags |= flagCompressed
	}

	frame := make([]byte, headerSize+len(payload))
	frame[0] = byte(k)
	frame[1] = flags
	copy(frame[headerSize:], payload)

	return frame
}

// decode unwraps a frame and checks its kind.
func (c *codec) decode(frame []byte, want kind) ([]byte, error) {
	if len(frame) < headerSize {
		return nil, fmt.Errorf("%w: short frame (%d bytes)", ErrMalformedResponse, len(frame))
	}

	if got := kind(frame[0]); got != want {
		return nil, fmt.Errorf("%w: kind %d, want %d", ErrMalformedResponse, got, want)
	}

	payload := frame[headerSize:]

	if frame[1]&flagCompressed != 0 {
		inflated, err := c.decoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: decompress: %v", ErrMalformedResponse, err)
		}

		payload = inflated
	}

	return payload, nil
}

// close releases zstd resources.
func (c *codec) close() {
	c.encoder.Close()
	c.decoder.Close()
}
