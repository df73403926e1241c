package ledger

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"Lingua/internal/logger"
	"Lingua/internal/subnet"
)

// Retrier runs ledger operations with exactly one retry: after a failure
// it waits a jittered 1-2s, refreshes the connection and tries again.
type Retrier struct {
	gateway Gateway // gateway is refreshed between attempts when it is a Reconnector

	minBackoff time.Duration // minBackoff is the lower jitter bound
	maxBackoff time.Duration // maxBackoff is the upper jitter bound

	rng *rand.Rand // rng draws the jitter
	mu  sync.Mutex // mu guards rng
}

// NewRetrier creates a retrier with the default 1-2s jitter.
func NewRetrier(gateway Gateway) *Retrier {
	return &Retrier{
		gateway:    gateway,
		minBackoff: time.Second,
		maxBackoff: 2 * time.Second,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithBackoff overrides the jitter bounds.
func (r *Retrier) WithBackoff(lo, hi time.Duration) *Retrier {
	r.minBackoff, r.maxBackoff = lo, hi
	return r
}

// Do runs fn, and once more after a backoff and reconnect if it fails.
func (r *Retrier) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	err := fn(ctx)
	if err == nil {
		return nil
	}

	wait := r.backoff()
	logger.Warn("ledger call failed, retrying", "op", op, "backoff", wait, "error", err)

	select {
	case <-time.After(wait):
	case <-ctx.Done():
		return fmt.Errorf("%s:\n%w", op, ctx.Err())
	}

	if rc, ok := r.gateway.(Reconnector); ok {
		if rerr := rc.Reconnect(); rerr != nil {
			logger.Warn("ledger reconnect failed", "op", op, "error", rerr)
		}
	}

	if err := fn(ctx); err != nil {
		return fmt.Errorf("%s after retry:\n%w", op, err)
	}

	return nil
}

// SubmitVote submits a vote under the retry policy.
// A second failure is reported as ErrVoteFailed.
func (r *Retrier) SubmitVote(ctx context.Context, signer *Signer, uids []subnet.UID, weights []uint16, subnetID uint16) error {
	err := r.Do(ctx, "submit vote", func(ctx context.Context) error {
		return r.gateway.SubmitWeightVote(ctx, signer, uids, weights, subnetID)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVoteFailed, err)
	}

	return nil
}

// ListRegisteredMiners reads the directory under the retry policy.
func (r *Retrier) ListRegisteredMiners(ctx context.Context, subnetID uint16) ([]subnet.Miner, error) {
	var miners []subnet.Miner

	err := r.Do(ctx, "list miners", func(ctx context.Context) error {
		var err error
		miners, err = r.gateway.ListRegisteredMiners(ctx, subnetID)
		return err
	})

	return miners, err
}

// ResolveKeyMap reads the key map under the retry policy.
func (r *Retrier) ResolveKeyMap(ctx context.Context, subnetID uint16) (map[subnet.UID]string, error) {
	var keys map[subnet.UID]string

	err := r.Do(ctx, "resolve keys", func(ctx context.Context) error {
		var err error
		keys, err = r.gateway.ResolveKeyMap(ctx, subnetID)
		return err
	})

	return keys, err
}

// backoff draws a duration uniformly from [minBackoff, maxBackoff].
func (r *Retrier) backoff() time.Duration {
	span := r.maxBackoff - r.minBackoff
	if span <= 0 {
		return r.minBackoff
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.minBackoff + time.Duration(r.rng.Int63n(int64(span)+1))
}
