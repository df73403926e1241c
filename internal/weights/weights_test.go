package weights

import (
	"errors"
	"math"
	"testing"

	"Lingua/internal/state"
	"Lingua/internal/subnet"
)

// newTestAggregator returns an aggregator over an in-memory store.
func newTestAggregator(t *testing.T, initial state.Weights, cfg Config) (*Aggregator, *state.Store) {
	t.Helper()

	st, err := state.New(state.NewMemoryStore())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	if initial != nil {
		if err := st.SaveWeights(initial); err != nil {
			t.Fatalf("seed weights: %v", err)
		}
	}

	return New(st, cfg), st
}

func TestUnscoredCarryForward(t *testing.T) {
	agg, st := newTestAggregator(t, state.Weights{
		1: {Key: "k1", Weight: 100},
		2: {Key: "k2", Weight: 200},
	}, Config{Smoother: Smoother{Steps: 10, Steepness: 10}})

	agg.Update([]subnet.ScoreRecord{{UID: 1, Composite: 0.9}}, map[subnet.UID]string{1: "k1", 2: "k2"})

	if err := agg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	persisted, err := st.LoadWeights()
	if err != nil {
		t.Fatalf("LoadWeights: %v", err)
	}

	if persisted[2].Weight != 200 {
		t.Errorf("uid 2 weight = %v, want 200 unchanged", persisted[2].Weight)
	}

	if w := persisted[1].Weight; w == 100 || w < 1 || w > 100 {
		t.Errorf("uid 1 weight = %v, want a value moved from 100 toward 1", w)
	}
}

func TestNormalizeUniform(t *testing.T) {
	for _, in := range [][]float64{{0.3, 0.3, 0.3}, {0, 0}, {5}} {
		for i, v := range normalize(in) {
			if v != 1 {
				t.Errorf("normalize(%v)[%d] = %v, want 1", in, i, v)
			}
		}
	}

	got := normalize([]float64{2, 4, 6})
	want := []float64{0, 0.5, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("normalize = %v, want %v", got, want)
			break
		}
	}
}

func TestPowerScalingSeparates(t *testing.T) {
	out := PowerScaling{Factor: 0.1}.Shape([]float64{0, 0.5, 1})

	if out[2] != 1 {
		t.Errorf("top score should map to 1, got %v", out[2])
	}

	if out[0] != 0 {
		t.Errorf("zero score should stay 0, got %v", out[0])
	}

	// mean is 0.5: (1)^1.1 / (2)^0.9
	if want := 1 / math.Pow(2, 0.9); math.Abs(out[1]-want) > 1e-9 {
		t.Errorf("mean score = %v, want %v", out[1], want)
	}
}

func TestPowerScalingAllZero(t *testing.T) {
	for i, v := range (PowerScaling{Factor: 0.1}).Shape([]float64{0, 0}) {
		if v != 0 || math.IsNaN(v) {
			t.Errorf("out[%d] = %v, want 0", i, v)
		}
	}
}

func TestSigmoidThreshold(t *testing.T) {
	s := SigmoidThreshold{Floor: 0.01, Margin: 0.2, Steepness: 7.5}
	out := s.Shape([]float64{0, 0.9, 1})

	if out[1] != 1 || out[2] != 1 {
		t.Errorf("above-threshold scores should be 1, got %v", out)
	}

	if out[0] < 0.01 || out[0] >= 1 {
		t.Errorf("below-threshold score = %v, want in [0.01,1)", out[0])
	}
}

func TestParseShaper(t *testing.T) {
	if _, err := ParseShaper("power"); err != nil {
		t.Errorf("power: %v", err)
	}

	if _, err := ParseShaper("sigmoid"); err != nil {
		t.Errorf("sigmoid: %v", err)
	}

	if _, err := ParseShaper("linear"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestSmootherBlend(t *testing.T) {
	if got := (Smoother{}).Blend(0.2, 0.8); got != 0.8 {
		t.Errorf("zero steps should snap, got %v", got)
	}

	s := Smoother{Steps: 10, Steepness: 10}
	got := s.Blend(0.2, 0.8)

	if got <= 0.2 || got >= 0.8 {
		t.Errorf("blend = %v, want strictly between 0.2 and 0.8", got)
	}

	// repeated rounds converge on the target
	w := 0.2
	for i := 0; i < 200; i++ {
		w = s.Blend(w, 0.8)
	}

	if math.Abs(w-0.8) > 1e-3 {
		t.Errorf("repeated blend = %v, want ~0.8", w)
	}
}

func TestMergePrunesChangedKeys(t *testing.T) {
	prev := state.Weights{
		1: {Key: "old", Weight: 0.7},
		2: {Key: "k2", Weight: 0.4},
		3: {Key: "k3", Weight: 0.5},
	}

	next := Merge(prev, nil, map[subnet.UID]string{1: "new", 2: "k2"}, PowerScaling{Factor: 0.1}, Smoother{})

	if _, ok := next[1]; ok {
		t.Error("uid 1 re-registered under a new key should be dropped")
	}

	if _, ok := next[3]; ok {
		t.Error("deregistered uid 3 should be dropped")
	}

	if next[2].Weight != 0.4 {
		t.Errorf("uid 2 should carry forward, got %v", next[2])
	}
}

func TestMergeNewUIDTakesTarget(t *testing.T) {
	next := Merge(nil, []subnet.ScoreRecord{{UID: 5, Composite: 0.2}, {UID: 6, Composite: 0.8}},
		map[subnet.UID]string{5: "k5", 6: "k6"}, PowerScaling{Factor: 0.1}, Smoother{Steps: 10, Steepness: 10})

	if next[6].Weight != 1 {
		t.Errorf("best new uid should take the shaped target 1, got %v", next[6].Weight)
	}

	if next[5].Weight != 0 {
		t.Errorf("worst new uid should take the shaped target 0, got %v", next[5].Weight)
	}

	if next[5].Key != "k5" {
		t.Errorf("entry should record the miner key, got %q", next[5].Key)
	}
}

func TestQuantizeExcludesSelf(t *testing.T) {
	running := state.Weights{
		0: {Weight: 1},
		1: {Weight: 0.5},
		2: {Weight: 0.5},
	}

	uids, values := Quantize(running, 0, 1000)

	for _, uid := range uids {
		if uid == 0 {
			t.Fatal("self uid emitted")
		}
	}

	if len(uids) != 2 || values[0] != 500 || values[1] != 500 {
		t.Errorf("vote = %v %v, want [1 2] [500 500]", uids, values)
	}
}

func TestQuantizeBudgetAndZeros(t *testing.T) {
	running := state.Weights{
		1: {Weight: 1},
		2: {Weight: 1},
		3: {Weight: 1},
		4: {Weight: 0},
		5: {Weight: -2},
		6: {Weight: 1e-9},
	}

	uids, values := Quantize(running, 99, 1000)

	sum := 0
	for i, v := range values {
		if v == 0 {
			t.Errorf("zero weight emitted for uid %d", uids[i])
		}
		sum += int(v)
	}

	if sum > 1000 {
		t.Errorf("sum %d exceeds budget", sum)
	}

	if len(uids) != 3 {
		t.Errorf("expected 3 entries, got %v", uids)
	}

	for i := 1; i < len(uids); i++ {
		if uids[i-1] >= uids[i] {
			t.Errorf("uids not sorted: %v", uids)
		}
	}
}

func TestQuantizeEmpty(t *testing.T) {
	if uids, values := Quantize(state.Weights{7: {Weight: 1}}, 7, 1000); len(uids) != 0 || len(values) != 0 {
		t.Errorf("only-self map should emit nothing, got %v %v", uids, values)
	}
}

func TestEmitNeverIncludesSelf(t *testing.T) {
	agg, _ := newTestAggregator(t, nil, Config{})

	agg.Update([]subnet.ScoreRecord{{UID: 4, Composite: 1}, {UID: 9, Composite: 0.5}}, map[subnet.UID]string{4: "a", 9: "b"})

	uids, _ := agg.Emit(4)
	for _, uid := range uids {
		if uid == 4 {
			t.Fatal("self uid emitted after being scored")
		}
	}
}

// failingWeights refuses every save.
type failingWeights struct{}

func (failingWeights) LoadWeights() (state.Weights, error) { return nil, state.ErrCorruptState }
func (failingWeights) SaveWeights(state.Weights) error     { return errors.New("read-only filesystem") }

func TestCorruptWeightsStartEmpty(t *testing.T) {
	agg := New(failingWeights{}, Config{})

	if len(agg.Running()) != 0 {
		t.Errorf("expected empty running weights, got %v", agg.Running())
	}

	if err := agg.Save(); err == nil {
		t.Error("expected save error")
	}
}
