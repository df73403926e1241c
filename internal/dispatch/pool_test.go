package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"Lingua/internal/subnet"
)

// fakeClient answers after a per-uid delay and tracks concurrency.
type fakeClient struct {
	delays map[subnet.UID]time.Duration
	fail   map[subnet.UID]bool
	active atomic.Int32
	peak   atomic.Int32
	calls  atomic.Int32
	mu     sync.Mutex
	scored []subnet.UID
}

func (f *fakeClient) Generate(ctx context.Context, m subnet.Miner, p subnet.Prompt) (string, error) {
	f.calls.Add(1)

	n := f.active.Add(1)
	defer f.active.Add(-1)

	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	select {
	case <-time.After(f.delays[m.UID]):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if f.fail[m.UID] {
		return "", errors.New("connection refused")
	}

	return fmt.Sprintf("answer-%d", m.UID), nil
}

func (f *fakeClient) Score(ctx context.Context, m subnet.Miner, rec subnet.ScoreRecord) (bool, error) {
	f.mu.Lock()
	f.scored = append(f.scored, m.UID)
	f.mu.Unlock()

	if f.fail[m.UID] {
		return false, errors.New("unreachable")
	}

	return true, nil
}

// countingObserver counts call outcomes.
type countingObserver struct {
	ok, failed atomic.Int32
}

func (o *countingObserver) ObserveCall(_ string, ok bool, _ time.Duration) {
	if ok {
		o.ok.Add(1)
	} else {
		o.failed.Add(1)
	}
}

// miners returns n miners with dummy addresses.
func miners(n int) []subnet.Miner {
	out := make([]subnet.Miner, n)
	for i := range out {
		out[i] = subnet.Miner{UID: subnet.UID(i), Address: fmt.Sprintf("10.0.0.%d:8091", i+1)}
	}

	return out
}

func TestDispatchPreservesOrder(t *testing.T) {
	client := &fakeClient{delays: map[subnet.UID]time.Duration{0: 30 * time.Millisecond, 1: 0, 2: 10 * time.Millisecond}}
	pool := New(client, 8, nil)

	responses := pool.Dispatch(context.Background(), subnet.Prompt{Text: "x"}, miners(3), time.Second)

	if len(responses) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(responses))
	}

	for i, r := range responses {
		if r.UID != subnet.UID(i) || !r.Received || r.Answer != fmt.Sprintf("answer-%d", i) {
			t.Errorf("response %d = %+v", i, r)
		}
	}
}

func TestDispatchTimeoutBecomesSentinel(t *testing.T) {
	client := &fakeClient{delays: map[subnet.UID]time.Duration{1: 2 * time.Second}}
	pool := New(client, 8, nil)

	start := time.Now()
	responses := pool.Dispatch(context.Background(), subnet.Prompt{Text: "x"}, miners(3), 100*time.Millisecond)

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("dispatch waited %v past the call timeout", elapsed)
	}

	if responses[1].Received || responses[1].UID != 1 {
		t.Errorf("slow miner should be the invalid sentinel, got %+v", responses[1])
	}

	if !responses[0].Received || !responses[2].Received {
		t.Error("fast miners should have answered")
	}
}

func TestDispatchFailureBecomesSentinel(t *testing.T) {
	client := &fakeClient{fail: map[subnet.UID]bool{0: true}}
	obs := &countingObserver{}
	pool := New(client, 8, obs)

	responses := pool.Dispatch(context.Background(), subnet.Prompt{Text: "x"}, miners(2), time.Second)

	if responses[0].Received {
		t.Error("failed miner should be the invalid sentinel")
	}

	if !responses[1].Received {
		t.Error("healthy miner should have answered")
	}

	if obs.ok.Load() != 1 || obs.failed.Load() != 1 {
		t.Errorf("observer ok=%d failed=%d, want 1/1", obs.ok.Load(), obs.failed.Load())
	}
}

func TestDispatchBadAddressSkipsNetwork(t *testing.T) {
	client := &fakeClient{}
	pool := New(client, 8, nil)

	batch := miners(2)
	batch[0].Address = ""

	responses := pool.Dispatch(context.Background(), subnet.Prompt{Text: "x"}, batch, time.Second)

	if responses[0].Received || responses[0].UID != 0 {
		t.Errorf("bad address should yield the sentinel, got %+v", responses[0])
	}

	if client.calls.Load() != 1 {
		t.Errorf("expected 1 network call, got %d", client.calls.Load())
	}
}

func TestDispatchBoundedConcurrency(t *testing.T) {
	delays := make(map[subnet.UID]time.Duration)
	for i := 0; i < 20; i++ {
		delays[subnet.UID(i)] = 20 * time.Millisecond
	}

	client := &fakeClient{delays: delays}
	pool := New(client, 4, nil)

	pool.Dispatch(context.Background(), subnet.Prompt{Text: "x"}, miners(20), time.Second)

	if peak := client.peak.Load(); peak > 4 {
		t.Errorf("peak concurrency %d exceeds pool size 4", peak)
	}

	if client.calls.Load() != 20 {
		t.Errorf("expected 20 calls, got %d", client.calls.Load())
	}
}

func TestDispatchEmptyBatch(t *testing.T) {
	pool := New(&fakeClient{}, 0, nil)

	if got := pool.Dispatch(context.Background(), subnet.Prompt{}, nil, time.Second); len(got) != 0 {
		t.Errorf("expected no responses, got %d", len(got))
	}
}

func TestFeedbackIgnoresErrors(t *testing.T) {
	client := &fakeClient{fail: map[subnet.UID]bool{1: true}}
	pool := New(client, 2, nil)

	batch := miners(3)
	records := []subnet.ScoreRecord{{UID: 0, Composite: 1}, {UID: 1, Composite: 0.5}}

	pool.Feedback(context.Background(), batch, records, time.Second)

	client.mu.Lock()
	defer client.mu.Unlock()

	if len(client.scored) != 2 {
		t.Errorf("expected feedback to the 2 scored miners, got %v", client.scored)
	}
}
