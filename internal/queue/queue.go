// Package queue implements the round-robin rotation that decides which
// miners are evaluated each round.
package queue

import (
	"fmt"

	"Lingua/internal/logger"
	"Lingua/internal/subnet"
)

// Store persists the rotation order.
type Store interface {
	LoadQueue() ([]subnet.UID, error)
	SaveQueue([]subnet.UID) error
}

// RoundQueue rotates through registered miners so that a stable set is
// fully covered before any miner is evaluated twice.
// It is owned by the round loop and not safe for concurrent use.
type RoundQueue struct {
	store Store                   // store persists the order after every change
	order []subnet.UID            // order is the rotation, front is evaluated next
	index map[subnet.UID]struct{} // index mirrors order for membership checks
}

// New loads the persisted order. Unreadable state degrades to an empty
// queue with a warning; duplicate entries from disk are collapsed.
func New(store Store) *RoundQueue {
	loaded, err := store.LoadQueue()
	if err != nil {
		logger.Warn("round queue state unreadable, starting empty", "error", err)
		loaded = nil
	}

	q := &RoundQueue{
		store: store,
		index: make(map[subnet.UID]struct{}, len(loaded)),
	}

	for _, uid := range loaded {
		q.push(uid)
	}

	return q
}

// NextBatch reconciles the queue with the registered set and returns up to
// batchSize uids from the front, which move to the back.
// The updated order is persisted before returning; a persistence error is
// returned alongside the batch, which stays usable.
func (q *RoundQueue) NextBatch(registered []subnet.UID, batchSize int) ([]subnet.UID, error) {
	q.reconcile(registered)

	n := batchSize
	if n > len(q.order) {
		n = len(q.order)
	}
	if n < 0 {
		n = 0
	}

	batch := make([]subnet.UID, n)
	copy(batch, q.order[:n])

	rotated := make([]subnet.UID, 0, len(q.order))
	rotated = append(rotated, q.order[n:]...)
	rotated = append(rotated, batch...)
	q.order = rotated

	if err := q.store.SaveQueue(q.Snapshot()); err != nil {
		return batch, fmt.Errorf("persist queue:\n%w", err)
	}

	return batch, nil
}

// Snapshot returns a copy of the current order.
func (q *RoundQueue) Snapshot() []subnet.UID {
	out := make([]subnet.UID, len(q.order))
	copy(out, q.order)

	return out
}

// Len returns the number of queued uids.
func (q *RoundQueue) Len() int {
	return len(q.order)
}

// reconcile appends newly registered uids and drops deregistered ones.
// Relative order of surviving entries is preserved.
func (q *RoundQueue) reconcile(registered []subnet.UID) {
	live := make(map[subnet.UID]struct{}, len(registered))

	for _, uid := range registered {
		live[uid] = struct{}{}
		q.push(uid)
	}

	kept := q.order[:0]

	for _, uid := range q.order {
		if _, ok := live[uid]; ok {
			kept = append(kept, uid)
			continue
		}

		delete(q.index, uid)
	}

	q.order = kept
}

// push appends uid at the back unless it is already queued.
func (q *RoundQueue) push(uid subnet.UID) {
	if _, ok := q.index[uid]; ok {
		return
	}

	q.index[uid] = struct{}{}
	q.order = append(q.order, uid)
}
