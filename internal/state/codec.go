package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"
)

// formatVersion is the current on-disk envelope version.
const formatVersion = 1

// ErrCorruptState is returned when persisted bytes fail to decode or verify.
var ErrCorruptState = errors.New("corrupt state")

// envelope wraps a JSON payload with a version and a BLAKE3 checksum.
// Payload bytes are kept verbatim so the checksum can be recomputed on load.
type envelope struct {
	Version  int             `json:"version"`
	Checksum string          `json:"checksum"`
	Payload  json.RawMessage `json:"payload"`
}

// encode marshals v into a checksummed envelope.
func encode(v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload:\n%w", err)
	}

	sum := blake3.Sum256(payload)

	return json.Marshal(envelope{
		Version:  formatVersion,
		Checksum: hex.EncodeToString(sum[:]),
		Payload:  payload,
	})
}

// decode verifies an envelope and unmarshals its payload into v.
func decode(data []byte, v any) error {
	var env envelope

	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: envelope: %v", ErrCorruptState, err)
	}

	if env.Version != formatVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrCorruptState, env.Version)
	}

	sum := blake3.Sum256(env.Payload)
	if hex.EncodeToString(sum[:]) != env.Checksum {
		return fmt.Errorf("%w: checksum mismatch", ErrCorruptState)
	}

	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("%w: payload: %v", ErrCorruptState, err)
	}

	return nil
}
