// Package dispatch fans a prompt out to a batch of miners with bounded
// concurrency and a per-call deadline.
package dispatch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"Lingua/internal/logger"
	"Lingua/internal/subnet"
)

// DefaultPoolSize is the number of concurrent miner calls.
const DefaultPoolSize = 8

// MinerClient performs the two miner calls.
type MinerClient interface {
	Generate(ctx context.Context, miner subnet.Miner, p subnet.Prompt) (string, error)
	Score(ctx context.Context, miner subnet.Miner, rec subnet.ScoreRecord) (bool, error)
}

// Observer receives per-call outcomes. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveCall(method string, ok bool, elapsed time.Duration)
}

// Pool issues miner calls on a fixed number of workers.
type Pool struct {
	client   MinerClient // client performs the calls
	size     int         // size is the concurrency limit
	observer Observer    // observer is optional
}

// New creates a pool with the given concurrency. size <= 0 uses DefaultPoolSize.
func New(client MinerClient, size int, observer Observer) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}

	return &Pool{client: client, size: size, observer: observer}
}

// Dispatch sends prompt to every miner and returns one response per miner, in
// input order. Failures become the invalid sentinel and never abort the
// batch. Returns after all calls end or time out.
func (p *Pool) Dispatch(ctx context.Context, prompt subnet.Prompt, miners []subnet.Miner, timeout time.Duration) []subnet.Response {
	responses := make([]subnet.Response, len(miners))

	var g errgroup.Group
	g.SetLimit(p.size)

	for i, m := range miners {
		responses[i] = subnet.Response{UID: m.UID}

		if m.Address == "" {
			logger.Warn("miner has no usable address", "uid", m.UID)
			continue
		}

		i, m := i, m
		g.Go(func() error {
			responses[i] = p.generate(ctx, prompt, m, timeout)
			return nil
		})
	}

	g.Wait()

	return responses
}

// Feedback sends each miner its score record. Errors are logged and
// otherwise ignored.
func (p *Pool) Feedback(ctx context.Context, miners []subnet.Miner, records []subnet.ScoreRecord, timeout time.Duration) {
	byUID := make(map[subnet.UID]subnet.ScoreRecord, len(records))
	for _, rec := range records {
		byUID[rec.UID] = rec
	}

	var g errgroup.Group
	g.SetLimit(p.size)

	for _, m := range miners {
		rec, ok := byUID[m.UID]
		if !ok || m.Address == "" {
			continue
		}

		m := m
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			ack, err := p.client.Score(callCtx, m, rec)
			p.observe("score", err == nil, time.Since(start))

			if err != nil {
				logger.Debug("score feedback failed", "uid", m.UID, "error", err)
				return nil
			}

			logger.Debug("score feedback delivered", "uid", m.UID, "ack", ack)

			return nil
		})
	}

	g.Wait()
}

// generate performs one bounded generate call.
func (p *Pool) generate(ctx context.Context, prompt subnet.Prompt, m subnet.Miner, timeout time.Duration) subnet.Response {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	answer, err := p.client.Generate(callCtx, m, prompt)
	elapsed := time.Since(start)

	p.observe("generate", err == nil, elapsed)

	if err != nil {
		logger.Warn("miner call failed", "uid", m.UID, "addr", m.Address, "elapsed", elapsed, "error", err)
		return subnet.Response{UID: m.UID, Elapsed: elapsed}
	}

	return subnet.Response{UID: m.UID, Answer: answer, Received: true, Elapsed: elapsed}
}

// observe forwards an outcome when an observer is set.
func (p *Pool) observe(method string, ok bool, elapsed time.Duration) {
	if p.observer != nil {
		p.observer.ObserveCall(method, ok, elapsed)
	}
}
