package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"Lingua/internal/api"
	"Lingua/internal/dispatch"
	"Lingua/internal/ledger"
	"Lingua/internal/logger"
	"Lingua/internal/metrics"
	"Lingua/internal/network"
	"Lingua/internal/prompt"
	"Lingua/internal/queue"
	"Lingua/internal/reward"
	"Lingua/internal/rpc"
	"Lingua/internal/state"
	"Lingua/internal/storage"
	"Lingua/internal/validator"
	"Lingua/internal/weights"
)

// Node represents a running validator process.
type Node struct {
	cfg       *Config
	storage   *storage.Storage // storage is set only for the pebble backend
	state     *state.Store
	network   *network.Node
	client    *rpc.Client
	gateway   *ledger.HTTPGateway
	metrics   *metrics.Metrics
	validator *validator.Validator
	api       *api.Server
}

// NewNode creates and initializes a new validator node.
func NewNode(cfg *Config) (*Node, error) {
	n := &Node{cfg: cfg, metrics: metrics.New()}

	steps := []func() error{
		n.initState,
		n.initNetwork,
		n.initLedger,
		n.initValidator,
	}

	for _, step := range steps {
		if err := step(); err != nil {
			n.Close()
			return nil, err
		}
	}

	return n, nil
}

// initState opens the configured state backend.
func (n *Node) initState() error {
	if err := os.MkdirAll(n.cfg.DataPath, 0755); err != nil {
		return fmt.Errorf("create data directory:\n%w", err)
	}

	var backend state.Backend

	switch n.cfg.StateBackend {
	case "pebble":
		db, err := storage.New(filepath.Join(n.cfg.DataPath, "db"))
		if err != nil {
			return fmt.Errorf("init storage:\n%w", err)
		}

		n.storage = db
		backend = state.NewPebbleStore(db)

	default:
		fs, err := state.NewFileStore(filepath.Join(n.cfg.DataPath, "state"))
		if err != nil {
			return fmt.Errorf("init file store:\n%w", err)
		}

		backend = fs
	}

	st, err := state.New(backend)
	if err != nil {
		return fmt.Errorf("init state:\n%w", err)
	}

	n.state = st

	return nil
}

// initNetwork creates the QUIC node and the miner RPC client.
func (n *Node) initNetwork() error {
	node, err := network.NewNode(network.Config{
		PrivateKey: n.cfg.PrivateKey,
		ListenAddr: n.cfg.QUICAddress,
	})
	if err != nil {
		return fmt.Errorf("create network node:\n%w", err)
	}

	n.network = node

	if n.cfg.QUICAddress != "" {
		if err := node.Start(); err != nil {
			return fmt.Errorf("start network:\n%w", err)
		}
	}

	client, err := rpc.NewClient(node)
	if err != nil {
		return fmt.Errorf("create rpc client:\n%w", err)
	}

	n.client = client

	return nil
}

// initLedger connects to the ledger gateway and reports the chain head.
func (n *Node) initLedger() error {
	gw, err := ledger.NewHTTPGateway(n.cfg.LedgerEndpoints, n.cfg.LedgerTimeout)
	if err != nil {
		return fmt.Errorf("create ledger gateway:\n%w", err)
	}

	n.gateway = gw

	ctx, cancel := context.WithTimeout(context.Background(), n.cfg.LedgerTimeout)
	defer cancel()

	height, err := gw.CurrentBlockHeight(ctx)
	if err != nil {
		logger.Warn("ledger unreachable at startup", "endpoint", gw.Endpoint(), "error", err)
		return nil
	}

	logger.Info("ledger connected", "endpoint", gw.Endpoint(), "block", height)

	return nil
}

// initValidator builds the round engine and its collaborators.
func (n *Node) initValidator() error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	corpus, err := prompt.LoadDir(n.cfg.CorpusDir, n.cfg.Languages, n.cfg.CorpusBuffer, rng)
	if err != nil {
		return &ConfigError{Field: "corpus", Reason: err.Error()}
	}

	sampler, err := prompt.NewSampler(n.cfg.Languages, corpus, rand.New(rand.NewSource(rng.Int63())))
	if err != nil {
		return &ConfigError{Field: "languages", Reason: err.Error()}
	}

	remote := reward.NewRemoteModels(n.cfg.ModelsURL, n.cfg.ModelsTimeout)

	engine, err := reward.New(reward.Models{
		Detector:   reward.NewWhatlangDetector(n.cfg.Languages, n.cfg.MinLanguageConfidence),
		Similarity: remote,
		Quality:    remote,
		Perplexity: remote,
		Sentiment:  remote,
	}, reward.Config{})
	if err != nil {
		return fmt.Errorf("create reward engine:\n%w", err)
	}

	shaper, err := weights.ParseShaper(n.cfg.Shaping)
	if err != nil {
		return &ConfigError{Field: "shaping", Reason: err.Error()}
	}

	eligible, err := ledger.ParseEligibility(n.cfg.Eligibility)
	if err != nil {
		return &ConfigError{Field: "eligibility", Reason: err.Error()}
	}

	signer, err := ledger.NewSigner(n.cfg.PrivateKey)
	if err != nil {
		return fmt.Errorf("create signer:\n%w", err)
	}

	agg := weights.New(n.state, weights.Config{
		Shaper:   shaper,
		Smoother: weights.Smoother{Steps: n.cfg.SmoothingSteps, Steepness: 5},
	})

	v, err := validator.New(validator.Config{
		SubnetID:        uint16(n.cfg.SubnetID),
		BatchSize:       n.cfg.BatchSize,
		Interval:        n.cfg.Interval,
		CallTimeout:     n.cfg.CallTimeout,
		FeedbackTimeout: n.cfg.FeedbackTimeout,
		Eligibility:     eligible,
	}, validator.Deps{
		Ledger:   ledger.NewRetrier(n.gateway),
		Signer:   signer,
		Queue:    queue.New(n.state),
		Sampler:  sampler,
		Pool:     dispatch.New(n.client, n.cfg.PoolSize, n.metrics),
		Engine:   engine,
		Weights:  agg,
		Recorder: n.metrics,
	})
	if err != nil {
		return fmt.Errorf("create validator:\n%w", err)
	}

	n.validator = v

	return nil
}

// Run starts the status API and the round loop, and blocks until a shutdown signal.
func (n *Node) Run() error {
	if n.cfg.HTTPAddress != "" {
		n.api = api.New(n.cfg.HTTPAddress, n.validator, n.metrics.Handler())
		if err := n.api.Start(); err != nil {
			return fmt.Errorf("start api:\n%w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		n.validator.Run(ctx)
	}()

	n.waitForShutdown()

	// The round in flight must finish before its state store closes
	cancel()
	<-done

	return n.Close()
}

// waitForShutdown blocks until SIGINT or SIGTERM is received.
func (n *Node) waitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())
}

// Close shuts down all node components gracefully.
func (n *Node) Close() error {
	if n.api != nil {
		n.api.Stop()
	}

	if n.client != nil {
		n.client.Close()
	}

	if n.network != nil {
		n.network.Close()
	}

	if n.storage != nil {
		n.storage.Close()
	}

	return nil
}
