// Package validator runs the round engine: rotate, prompt, dispatch, score,
// weigh, vote and persist, then sleep until the next round.
package validator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"Lingua/internal/ledger"
	"Lingua/internal/logger"
	"Lingua/internal/state"
	"Lingua/internal/subnet"
)

const (
	// DefaultBatchSize is the number of miners evaluated per round.
	DefaultBatchSize = 16

	// DefaultInterval is the sleep between rounds.
	DefaultInterval = 10 * time.Second

	// DefaultCallTimeout bounds one generate call.
	DefaultCallTimeout = 20 * time.Second

	// DefaultFeedbackTimeout bounds one score feedback call.
	DefaultFeedbackTimeout = 10 * time.Second
)

// Round outcomes reported to the recorder and the status API.
const (
	OutcomeOK            = "ok"
	OutcomeNotRegistered = "not_registered"
	OutcomeLedgerError   = "ledger_error"
	OutcomeNoMiners      = "no_miners"
	OutcomeSampleError   = "sample_error"
	OutcomeVoteFailed    = "vote_failed"
	OutcomeCancelled     = "cancelled"
)

// ErrNotRegistered is returned when the validator's key is absent from the subnet.
var ErrNotRegistered = errors.New("validator not registered on subnet")

// Ledger is the subset of the ledger gateway the round needs.
// ledger.Retrier satisfies it with the one-retry policy applied.
type Ledger interface {
	ResolveKeyMap(ctx context.Context, subnetID uint16) (map[subnet.UID]string, error)
	ListRegisteredMiners(ctx context.Context, subnetID uint16) ([]subnet.Miner, error)
	SubmitVote(ctx context.Context, signer *ledger.Signer, uids []subnet.UID, weights []uint16, subnetID uint16) error
}

// Queue selects the miners of a round.
type Queue interface {
	NextBatch(registered []subnet.UID, batchSize int) ([]subnet.UID, error)
	Snapshot() []subnet.UID
}

// Sampler produces the round's prompt.
type Sampler interface {
	Sample() (subnet.Prompt, error)
}

// Dispatcher fans calls out to miners.
type Dispatcher interface {
	Dispatch(ctx context.Context, p subnet.Prompt, miners []subnet.Miner, timeout time.Duration) []subnet.Response
	Feedback(ctx context.Context, miners []subnet.Miner, records []subnet.ScoreRecord, timeout time.Duration)
}

// Scorer turns responses into score records.
type Scorer interface {
	Score(ctx context.Context, source, targetLanguage string, responses []subnet.Response) []subnet.ScoreRecord
}

// Weights owns the running weight map.
type Weights interface {
	Update(scores []subnet.ScoreRecord, keyMap map[subnet.UID]string)
	Emit(self subnet.UID) ([]subnet.UID, []uint16)
	Save() error
	Running() state.Weights
}

// Recorder receives round telemetry. *metrics.Metrics implements it.
type Recorder interface {
	ObserveRound(outcome string)
	ObserveScore(score float64)
	ObserveVote(ok bool)
	ObservePersistenceFailure(store string)
	SetQueueLength(n int)
}

// Config holds the immutable round parameters.
type Config struct {
	SubnetID        uint16             // SubnetID is the subnet being validated
	BatchSize       int                // BatchSize is the number of miners per round
	Interval        time.Duration      // Interval is the sleep between rounds
	CallTimeout     time.Duration      // CallTimeout bounds each generate call
	FeedbackTimeout time.Duration      // FeedbackTimeout bounds each score feedback call
	Eligibility     ledger.Eligibility // Eligibility filters the miner directory
}

// Deps groups the round's collaborators.
type Deps struct {
	Ledger   Ledger         // Ledger reads the directory and takes votes
	Signer   *ledger.Signer // Signer is the validator identity
	Queue    Queue          // Queue rotates miners
	Sampler  Sampler        // Sampler produces prompts
	Pool     Dispatcher     // Pool performs miner calls
	Engine   Scorer         // Engine scores responses
	Weights  Weights        // Weights aggregates scores into votes
	Recorder Recorder       // Recorder is optional
}

// Status summarizes the validator for monitoring.
type Status struct {
	SubnetID    uint16     `json:"subnetId"`
	Address     string     `json:"address"`
	Registered  bool       `json:"registered"`
	SelfUID     subnet.UID `json:"selfUid"`
	Rounds      uint64     `json:"rounds"`
	LastRoundID string     `json:"lastRoundId,omitempty"`
	LastRoundAt time.Time  `json:"lastRoundAt"`
	LastOutcome string     `json:"lastOutcome,omitempty"`
	Evaluated   int        `json:"evaluated"`
	Voted       int        `json:"voted"`
}

// Validator drives rounds. Step and Run must be called from one goroutine;
// the status accessors are safe for concurrent use.
type Validator struct {
	cfg  Config // cfg is the round configuration
	deps Deps   // deps are the round collaborators

	mu     sync.RWMutex // mu guards status and queue
	status Status       // status is the last round summary
	queue  []subnet.UID // queue is the rotation after the last round
}

// New creates a validator. Zero config fields take their defaults.
func New(cfg Config, deps Deps) (*Validator, error) {
	if deps.Ledger == nil || deps.Signer == nil || deps.Queue == nil || deps.Sampler == nil ||
		deps.Pool == nil || deps.Engine == nil || deps.Weights == nil {
		return nil, fmt.Errorf("validator: missing dependency")
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}

	if cfg.FeedbackTimeout <= 0 {
		cfg.FeedbackTimeout = DefaultFeedbackTimeout
	}

	if cfg.Eligibility == nil {
		cfg.Eligibility = ledger.EligibleIncentiveOrIdle
	}

	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}

	return &Validator{
		cfg:  cfg,
		deps: deps,
		status: Status{
			SubnetID: cfg.SubnetID,
			Address:  deps.Signer.Address(),
		},
		queue: deps.Queue.Snapshot(),
	}, nil
}

// Run executes rounds until ctx is cancelled. Round failures are logged and
// never stop the loop.
func (v *Validator) Run(ctx context.Context) error {
	logger.Info("round loop started",
		"subnet", v.cfg.SubnetID,
		"batch", v.cfg.BatchSize,
		"interval", v.cfg.Interval,
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("round loop stopped")
			return nil
		case <-timer.C:
		}

		if err := v.Step(ctx); err != nil {
			logger.Error("round failed", "error", err)
		}

		timer.Reset(v.cfg.Interval)
	}
}

// Step runs one round. The running weights are persisted whatever the outcome.
// The returned error describes why the round ended early or why the vote failed.
func (v *Validator) Step(ctx context.Context) error {
	id := uuid.NewString()
	log := logger.With("round", id)
	start := time.Now()

	r := &round{id: id, outcome: OutcomeOK}
	defer v.finish(r, log, start)

	return v.step(ctx, r, log)
}

// round carries the per-round facts reported by finish.
type round struct {
	id         string     // id correlates the round's log lines
	outcome    string     // outcome is one of the Outcome constants
	registered bool       // registered is set once the own uid is resolved
	self       subnet.UID // self is the own uid
	evaluated  int        // evaluated is the batch size actually dispatched
	voted      int        // voted is the number of uids in the submitted vote
}

// step is the round body.
func (v *Validator) step(ctx context.Context, r *round, log *slog.Logger) error {
	keys, err := v.deps.Ledger.ResolveKeyMap(ctx, v.cfg.SubnetID)
	if err != nil {
		r.outcome = OutcomeLedgerError
		return fmt.Errorf("resolve key map:\n%w", err)
	}

	self, ok := ledger.SelfUID(keys, v.deps.Signer.Address())
	if !ok {
		r.outcome = OutcomeNotRegistered
		log.Error("validator key not registered, skipping round", "subnet", v.cfg.SubnetID, "key", v.deps.Signer.Address())
		return ErrNotRegistered
	}

	r.registered, r.self = true, self

	miners, err := v.deps.Ledger.ListRegisteredMiners(ctx, v.cfg.SubnetID)
	if err != nil {
		r.outcome = OutcomeLedgerError
		return fmt.Errorf("list miners:\n%w", err)
	}

	eligible := ledger.FilterMiners(miners, v.cfg.Eligibility, self)

	batch, err := v.deps.Queue.NextBatch(subnet.UIDs(eligible), v.cfg.BatchSize)
	if err != nil {
		log.Warn("round queue not persisted", "error", err)
		v.deps.Recorder.ObservePersistenceFailure("queue")
	}

	v.setQueue(v.deps.Queue.Snapshot())

	selected := selectMiners(eligible, batch)
	if len(selected) == 0 {
		r.outcome = OutcomeNoMiners
		log.Info("no eligible miners", "registered", len(miners))

		// Still prune weights of uids that left the subnet
		v.deps.Weights.Update(nil, keys)

		return nil
	}

	p, err := v.deps.Sampler.Sample()
	if err != nil {
		r.outcome = OutcomeSampleError
		return fmt.Errorf("sample prompt:\n%w", err)
	}

	log.Info("dispatching",
		"miners", len(selected),
		"source", p.SourceLanguage,
		"target", p.TargetLanguage,
	)

	responses := v.deps.Pool.Dispatch(ctx, p, selected, v.cfg.CallTimeout)

	// Responses cut short by shutdown say nothing about the miners
	if err := ctx.Err(); err != nil {
		r.outcome = OutcomeCancelled
		return fmt.Errorf("round cancelled during dispatch:\n%w", err)
	}

	records := v.deps.Engine.Score(ctx, p.Text, p.TargetLanguage, responses)
	r.evaluated = len(selected)

	for _, rec := range records {
		v.deps.Recorder.ObserveScore(rec.Composite)
	}

	v.deps.Pool.Feedback(ctx, selected, records, v.cfg.FeedbackTimeout)
	v.deps.Weights.Update(records, keys)

	uids, weights := v.deps.Weights.Emit(self)
	if len(uids) == 0 {
		log.Info("no positive weights, vote skipped")
		return nil
	}

	err = v.deps.Ledger.SubmitVote(ctx, v.deps.Signer, uids, weights, v.cfg.SubnetID)
	v.deps.Recorder.ObserveVote(err == nil)

	if err != nil {
		r.outcome = OutcomeVoteFailed
		return err
	}

	r.voted = len(uids)

	return nil
}

// finish persists the running weights and publishes the round summary.
func (v *Validator) finish(r *round, log *slog.Logger, start time.Time) {
	if err := v.deps.Weights.Save(); err != nil {
		log.Warn("running weights not persisted", "error", err)
		v.deps.Recorder.ObservePersistenceFailure("weights")
	}

	v.deps.Recorder.ObserveRound(r.outcome)

	v.mu.Lock()
	v.status.Rounds++
	v.status.LastRoundID = r.id
	v.status.LastRoundAt = start
	v.status.LastOutcome = r.outcome
	v.status.Registered = r.registered
	v.status.SelfUID = r.self
	v.status.Evaluated = r.evaluated
	v.status.Voted = r.voted
	queued := len(v.queue)
	v.mu.Unlock()

	v.deps.Recorder.SetQueueLength(queued)

	log.Info("round finished",
		"outcome", r.outcome,
		"evaluated", r.evaluated,
		"voted", r.voted,
		logger.Timed(start),
	)
}

// Status returns the last round summary.
func (v *Validator) Status() Status {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.status
}

// Weights returns a copy of the running weights.
func (v *Validator) Weights() state.Weights {
	return v.deps.Weights.Running()
}

// Queue returns the rotation as of the last round.
func (v *Validator) Queue() []subnet.UID {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]subnet.UID, len(v.queue))
	copy(out, v.queue)

	return out
}

// setQueue records the rotation for status readers.
func (v *Validator) setQueue(q []subnet.UID) {
	v.mu.Lock()
	v.queue = q
	v.mu.Unlock()
}

// selectMiners returns the miners of batch, in batch order.
func selectMiners(miners []subnet.Miner, batch []subnet.UID) []subnet.Miner {
	byUID := make(map[subnet.UID]subnet.Miner, len(miners))
	for _, m := range miners {
		byUID[m.UID] = m
	}

	out := make([]subnet.Miner, 0, len(batch))

	for _, uid := range batch {
		if m, ok := byUID[uid]; ok {
			out = append(out, m)
		}
	}

	return out
}

// nopRecorder discards telemetry.
type nopRecorder struct{}

func (nopRecorder) ObserveRound(string)              {}
func (nopRecorder) ObserveScore(float64)             {}
func (nopRecorder) ObserveVote(bool)                 {}
func (nopRecorder) ObservePersistenceFailure(string) {}
func (nopRecorder) SetQueueLength(int)               {}
