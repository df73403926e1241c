package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"Lingua/internal/metrics"
	"Lingua/internal/state"
	"Lingua/internal/subnet"
	"Lingua/internal/validator"
)

// mockStatusProvider serves fixed round state.
type mockStatusProvider struct {
	status  validator.Status
	weights state.Weights
	queue   []subnet.UID
}

func (m *mockStatusProvider) Status() validator.Status { return m.status }
func (m *mockStatusProvider) Weights() state.Weights   { return m.weights }
func (m *mockStatusProvider) Queue() []subnet.UID      { return m.queue }

// newTestProvider returns a provider with three running weights.
func newTestProvider() *mockStatusProvider {
	return &mockStatusProvider{
		status: validator.Status{
			SubnetID:    23,
			Registered:  true,
			SelfUID:     4,
			Rounds:      12,
			LastRoundAt: time.Unix(1700000000, 0).UTC(),
			LastOutcome: validator.OutcomeOK,
			Evaluated:   8,
			Voted:       6,
		},
		weights: state.Weights{
			9: {Key: "k9", Weight: 0.25},
			2: {Key: "k2", Weight: 1},
			5: {Key: "k5", Weight: 0.5},
		},
		queue: []subnet.UID{5, 9, 2},
	}
}

// get runs a request against the routed handler.
func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	return w
}

func TestHealthEndpoint(t *testing.T) {
	server := New(":0", nil, nil)

	w := get(t, server.Handler(), "/health")

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %s", resp["status"])
	}
}

func TestStatus_Success(t *testing.T) {
	server := New(":0", newTestProvider(), nil)

	w := get(t, server.Handler(), "/status")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if resp["rounds"].(float64) != 12 {
		t.Errorf("expected rounds 12, got %v", resp["rounds"])
	}

	if resp["subnetId"].(float64) != 23 {
		t.Errorf("expected subnetId 23, got %v", resp["subnetId"])
	}

	if resp["lastOutcome"] != validator.OutcomeOK {
		t.Errorf("expected outcome ok, got %v", resp["lastOutcome"])
	}
}

func TestStatus_NilProvider(t *testing.T) {
	server := New(":0", nil, nil)

	for _, path := range []string{"/status", "/weights", "/queue"} {
		if w := get(t, server.Handler(), path); w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected 503, got %d", path, w.Code)
		}
	}
}

func TestWeights_SortedByUID(t *testing.T) {
	server := New(":0", newTestProvider(), nil)

	w := get(t, server.Handler(), "/weights")

	var resp []weightView
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if len(resp) != 3 {
		t.Fatalf("expected 3 weights, got %d", len(resp))
	}

	if resp[0].UID != 2 || resp[1].UID != 5 || resp[2].UID != 9 {
		t.Errorf("weights not sorted: %+v", resp)
	}

	if resp[0].Key != "k2" || resp[0].Weight != 1 {
		t.Errorf("unexpected first entry %+v", resp[0])
	}
}

func TestWeights_Limit(t *testing.T) {
	server := New(":0", newTestProvider(), nil)

	w := get(t, server.Handler(), "/weights?limit=1")

	var resp []weightView
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if len(resp) != 1 || resp[0].UID != 2 {
		t.Errorf("expected only uid 2, got %+v", resp)
	}

	if w := get(t, server.Handler(), "/weights?limit=abc"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", w.Code)
	}
}

func TestQueue(t *testing.T) {
	server := New(":0", newTestProvider(), nil)

	w := get(t, server.Handler(), "/queue")

	var resp struct {
		Length int          `json:"length"`
		Order  []subnet.UID `json:"order"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if resp.Length != 3 || len(resp.Order) != 3 || resp.Order[0] != 5 {
		t.Errorf("unexpected queue %+v", resp)
	}
}

func TestQueue_EmptyIsArray(t *testing.T) {
	server := New(":0", &mockStatusProvider{}, nil)

	w := get(t, server.Handler(), "/queue")

	if !strings.Contains(w.Body.String(), `"order":[]`) {
		t.Errorf("expected empty order array, got %s", w.Body.String())
	}
}

func TestMetricsMounted(t *testing.T) {
	m := metrics.New()
	m.ObserveRound(validator.OutcomeOK)

	server := New(":0", newTestProvider(), m.Handler())

	w := get(t, server.Handler(), "/metrics")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	if !strings.Contains(w.Body.String(), "rounds_total") {
		t.Error("metrics output missing rounds_total")
	}
}

func TestMetricsAbsentWithoutHandler(t *testing.T) {
	server := New(":0", newTestProvider(), nil)

	if w := get(t, server.Handler(), "/metrics"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestStartStop(t *testing.T) {
	server := New("127.0.0.1:0", newTestProvider(), nil)

	if err := server.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := server.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
}
