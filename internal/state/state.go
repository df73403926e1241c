// Package state persists the validator's durable round state: the rotation
// queue and the running weights. Both are stored as checksummed JSON
// envelopes behind a pluggable Backend so that a crash mid-write can never
// hand a half-written value to the next round.
package state

import (
	"fmt"

	"Lingua/internal/logger"
	"Lingua/internal/subnet"
)

const (
	queueName   = "queue"
	weightsName = "weights"
)

// WeightEntry is a running weight together with the key that earned it.
// A uid re-registered under a different key must not inherit the entry.
type WeightEntry struct {
	Key    string  `json:"key"`
	Weight float64 `json:"score"`
}

// Weights maps a uid to its running weight.
type Weights map[subnet.UID]WeightEntry

// Clone returns an independent copy of w.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for uid, e := range w {
		out[uid] = e
	}

	return out
}

// Backend stores opaque named blobs.
// Read returns nil, nil when the name has never been written.
// Write must replace the blob atomically.
type Backend interface {
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
}

// Store loads and saves round state through a Backend.
type Store struct {
	backend Backend
}

// New creates a Store and bootstraps empty defaults for any missing entry.
func New(backend Backend) (*Store, error) {
	s := &Store{backend: backend}

	if err := s.bootstrap(queueName, []subnet.UID{}); err != nil {
		return nil, err
	}

	if err := s.bootstrap(weightsName, Weights{}); err != nil {
		return nil, err
	}

	return s, nil
}

// bootstrap writes def under name if nothing is stored there yet.
// An unreadable entry is left alone for the loaders to degrade on.
func (s *Store) bootstrap(name string, def any) error {
	data, err := s.backend.Read(name)
	if err != nil {
		logger.Warn("state entry unreadable, starting from defaults", "name", name, "error", err)
		return nil
	}

	if data != nil {
		return nil
	}

	return s.save(name, def)
}

// LoadQueue returns the persisted rotation order.
// A missing queue is empty; a corrupt one returns ErrCorruptState.
func (s *Store) LoadQueue() ([]subnet.UID, error) {
	var queue []subnet.UID

	if err := s.load(queueName, &queue); err != nil {
		return []subnet.UID{}, err
	}

	if queue == nil {
		queue = []subnet.UID{}
	}

	return queue, nil
}

// SaveQueue atomically replaces the persisted rotation order.
func (s *Store) SaveQueue(queue []subnet.UID) error {
	if queue == nil {
		queue = []subnet.UID{}
	}

	return s.save(queueName, queue)
}

// LoadWeights returns the persisted running weights.
// Missing weights are empty; corrupt ones return ErrCorruptState.
func (s *Store) LoadWeights() (Weights, error) {
	weights := Weights{}

	if err := s.load(weightsName, &weights); err != nil {
		return Weights{}, err
	}

	if weights == nil {
		weights = Weights{}
	}

	return weights, nil
}

// SaveWeights atomically replaces the persisted running weights.
func (s *Store) SaveWeights(weights Weights) error {
	if weights == nil {
		weights = Weights{}
	}

	return s.save(weightsName, weights)
}

// load reads and decodes the named entry into v.
func (s *Store) load(name string, v any) error {
	data, err := s.backend.Read(name)
	if err != nil {
		return fmt.Errorf("read %s:\n%w", name, err)
	}

	if data == nil {
		return nil
	}

	if err := decode(data, v); err != nil {
		return fmt.Errorf("decode %s:\n%w", name, err)
	}

	return nil
}

// save encodes v and writes it under name.
func (s *Store) save(name string, v any) error {
	data, err := encode(v)
	if err != nil {
		return fmt.Errorf("encode %s:\n%w", name, err)
	}

	if err := s.backend.Write(name, data); err != nil {
		return fmt.Errorf("write %s:\n%w", name, err)
	}

	return nil
}
