// Package weights merges round scores into durable running weights and
// turns them into the integer vote submitted to the ledger.
package weights

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"Lingua/internal/logger"
	"Lingua/internal/state"
	"Lingua/internal/subnet"
)

// DefaultBudget is the integer total a vote's weights are scaled to.
const DefaultBudget = 1000

// Store persists the running weights.
type Store interface {
	LoadWeights() (state.Weights, error)
	SaveWeights(state.Weights) error
}

// Config selects the weighting policy.
type Config struct {
	Shaper   Shaper   // Shaper transforms normalized scores, PowerScaling by default
	Smoother Smoother // Smoother blends old and new weights
	Budget   int      // Budget is the integer total of an emitted vote
}

// Merge returns the next running weights.
// Entries whose uid left the key map, or whose key changed, are dropped
// first. Scored uids get their shaped and smoothed score; unscored uids
// carry forward unchanged. A nil key map skips pruning.
func Merge(prev state.Weights, scores []subnet.ScoreRecord, keyMap map[subnet.UID]string, shaper Shaper, smoother Smoother) state.Weights {
	next := make(state.Weights, len(prev)+len(scores))

	for uid, entry := range prev {
		if keyMap != nil {
			key, ok := keyMap[uid]
			if !ok {
				continue
			}

			if entry.Key != "" && key != entry.Key {
				logger.Info("miner key changed, resetting weight", "uid", uid)
				continue
			}
		}

		next[uid] = entry
	}

	if len(scores) == 0 {
		return next
	}

	raw := make([]float64, len(scores))
	for i, s := range scores {
		raw[i] = s.Composite
	}

	shaped := shaper.Shape(normalize(raw))

	for i, s := range scores {
		target := shaped[i]

		entry, ok := next[s.UID]
		if ok {
			target = smoother.Blend(entry.Weight, target)
		}

		next[s.UID] = state.WeightEntry{
			Key:    keyMap[s.UID],
			Weight: target,
		}
	}

	return next
}

// Quantize scales weights to integers summing to at most budget, excluding
// self. Negative weights count as zero; zero results are dropped.
// Output is sorted by uid.
func Quantize(running state.Weights, self subnet.UID, budget int) ([]subnet.UID, []uint16) {
	var total float64

	for uid, entry := range running {
		if uid != self && entry.Weight > 0 {
			total += entry.Weight
		}
	}

	if total <= 0 || math.IsInf(total, 0) || math.IsNaN(total) {
		return nil, nil
	}

	candidates := make([]subnet.UID, 0, len(running))
	for uid := range running {
		if uid != self {
			candidates = append(candidates, uid)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

	uids := make([]subnet.UID, 0, len(candidates))
	values := make([]uint16, 0, len(candidates))

	for _, uid := range candidates {
		w := running[uid].Weight
		if w <= 0 {
			continue
		}

		q := math.Floor(w / total * float64(budget))
		if q <= 0 {
			continue
		}

		uids = append(uids, uid)
		values = append(values, uint16(min(q, math.MaxUint16)))
	}

	return uids, values
}

// Aggregator owns the running weights between rounds.
type Aggregator struct {
	store   Store         // store persists the running weights
	cfg     Config        // cfg selects the weighting policy
	running state.Weights // running is the pre-quantization weight map
	mu      sync.RWMutex  // mu guards running for status readers
}

// New loads the running weights. Unreadable state degrades to an empty map.
func New(store Store, cfg Config) *Aggregator {
	if cfg.Shaper == nil {
		cfg.Shaper = PowerScaling{Factor: 0.1}
	}

	if cfg.Budget <= 0 {
		cfg.Budget = DefaultBudget
	}

	running, err := store.LoadWeights()
	if err != nil {
		logger.Warn("running weights unreadable, starting empty", "error", err)
		running = state.Weights{}
	}

	if running == nil {
		running = state.Weights{}
	}

	return &Aggregator{store: store, cfg: cfg, running: running}
}

// Update folds this round's scores into the running weights.
func (a *Aggregator) Update(scores []subnet.ScoreRecord, keyMap map[subnet.UID]string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.running = Merge(a.running, scores, keyMap, a.cfg.Shaper, a.cfg.Smoother)
}

// Emit returns the vote for the current running weights, never including self.
func (a *Aggregator) Emit(self subnet.UID) ([]subnet.UID, []uint16) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return Quantize(a.running, self, a.cfg.Budget)
}

// Save persists the full running weight map.
func (a *Aggregator) Save() error {
	a.mu.RLock()
	snapshot := a.running.Clone()
	a.mu.RUnlock()

	if err := a.store.SaveWeights(snapshot); err != nil {
		return fmt.Errorf("persist weights:\n%w", err)
	}

	return nil
}

// Running returns a copy of the running weights.
func (a *Aggregator) Running() state.Weights {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.running.Clone()
}
