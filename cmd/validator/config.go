package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"Lingua/internal/ledger"
	"Lingua/internal/logger"
	"Lingua/internal/weights"
)

const (
	// testnetSubnet is the default subnet id on testnet.
	testnetSubnet = 23

	// mainnetSubnet is the default subnet id on mainnet.
	mainnetSubnet = 13
)

// defaultLanguages is the language set prompts are drawn from.
var defaultLanguages = []string{"ar", "de", "en", "es", "fa", "fr", "hi", "he", "pt", "ru", "ur", "vi", "zh"}

// ConfigError reports an invalid startup setting. It is the only error
// that stops the validator before the round loop starts.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Config holds the validator configuration. It is read once at startup.
type Config struct {
	// DataPath is the directory for persistent round state.
	DataPath string

	// StateBackend selects the state store: "file" or "pebble".
	StateBackend string

	// KeyPath is the path to the Ed25519 private key file.
	KeyPath string

	// PrivateKey is the validator's Ed25519 signing key.
	PrivateKey ed25519.PrivateKey

	// Testnet selects testnet defaults.
	Testnet bool

	// SubnetID is the subnet being validated. Zero picks the network default.
	SubnetID uint

	// LedgerEndpoints are the ledger gateway base URLs, tried in order.
	LedgerEndpoints []string

	// LedgerTimeout bounds one ledger request.
	LedgerTimeout time.Duration

	// Interval is the sleep between rounds.
	Interval time.Duration

	// CallTimeout bounds one miner generate call.
	CallTimeout time.Duration

	// FeedbackTimeout bounds one miner score feedback call.
	FeedbackTimeout time.Duration

	// BatchSize is the number of miners evaluated per round.
	BatchSize int

	// PoolSize is the number of concurrent miner calls.
	PoolSize int

	// Languages is the prompt language set.
	Languages []string

	// CorpusDir holds one <lang>.txt file per language.
	CorpusDir string

	// CorpusBuffer caps the records kept per language.
	CorpusBuffer int

	// ModelsURL is the base URL of the scoring model service.
	ModelsURL string

	// ModelsTimeout bounds one scoring model request.
	ModelsTimeout time.Duration

	// MinLanguageConfidence is the detector confidence needed to accept a language.
	MinLanguageConfidence float64

	// Eligibility names the miner eligibility predicate.
	Eligibility string

	// Shaping names the weight shaping policy.
	Shaping string

	// SmoothingSteps is the smoothing iteration count, 0 disables smoothing.
	SmoothingSteps int

	// HTTPAddress is the status API listen address, empty disables it.
	HTTPAddress string

	// QUICAddress is the QUIC listen address, empty keeps the node dial-only.
	QUICAddress string

	// LogLevel is the minimum log level.
	LogLevel slog.Level
}

// envReader reads typed defaults from the environment, collecting parse errors.
type envReader struct {
	errs []error
}

func (e *envReader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}

	return def
}

func (e *envReader) intVal(key string, def int) int {
	v := e.str(key, "")
	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, &ConfigError{Field: key, Reason: "should only contain digits"})
		return def
	}

	return n
}

func (e *envReader) floatVal(key string, def float64) float64 {
	v := e.str(key, "")
	if v == "" {
		return def
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, &ConfigError{Field: key, Reason: "not a number"})
		return def
	}

	return f
}

func (e *envReader) boolVal(key string, def bool) bool {
	v := e.str(key, "")
	if v == "" {
		return def
	}

	return v == "1" || strings.EqualFold(v, "true")
}

// parseFlags loads envFile when present, then parses args into Config.
// Environment variables provide the flag defaults.
func parseFlags(args []string, envFile string) (*Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s:\n%w", envFile, err)
	}

	env := &envReader{}
	cfg := &Config{}
	fsFlags := flag.NewFlagSet("validator", flag.ContinueOnError)

	var (
		interval, callTimeout int
		languages, endpoints  string
		logLevel              string
	)

	fsFlags.StringVar(&cfg.DataPath, "data", env.str("DATA_PATH", "./data"), "Data directory path")
	fsFlags.StringVar(&cfg.StateBackend, "state", env.str("STATE_BACKEND", "file"), "State backend: file or pebble")
	fsFlags.StringVar(&cfg.KeyPath, "key", env.str("KEY_PATH", ""), "Ed25519 private key path (generates new if missing)")
	fsFlags.BoolVar(&cfg.Testnet, "testnet", env.boolVal("TESTNET", false), "Use testnet defaults")
	fsFlags.UintVar(&cfg.SubnetID, "netuid", uint(env.intVal("NETUID", 0)), "Subnet id (0 picks the network default)")
	fsFlags.StringVar(&endpoints, "ledger", env.str("LEDGER_ENDPOINTS", ""), "Comma-separated ledger gateway URLs")
	fsFlags.DurationVar(&cfg.LedgerTimeout, "ledger-timeout", 15*time.Second, "Ledger request timeout")
	fsFlags.IntVar(&interval, "interval", env.intVal("VALIDATOR_INTERVAL", 10), "Seconds between rounds")
	fsFlags.IntVar(&callTimeout, "call-timeout", env.intVal("VALIDATOR_CALL_TIMEOUT", 20), "Miner call timeout in seconds")
	fsFlags.DurationVar(&cfg.FeedbackTimeout, "feedback-timeout", 10*time.Second, "Score feedback timeout")
	fsFlags.IntVar(&cfg.BatchSize, "batch", env.intVal("VALIDATOR_BATCH_SIZE", 16), "Miners evaluated per round")
	fsFlags.IntVar(&cfg.PoolSize, "pool", env.intVal("VALIDATOR_POOL_SIZE", 8), "Concurrent miner calls")
	fsFlags.StringVar(&languages, "languages", env.str("LANGUAGES", strings.Join(defaultLanguages, ",")), "Comma-separated ISO 639-1 codes")
	fsFlags.StringVar(&cfg.CorpusDir, "corpus", env.str("CORPUS_DIR", "./corpus"), "Corpus directory")
	fsFlags.IntVar(&cfg.CorpusBuffer, "corpus-buffer", env.intVal("CORPUS_BUFFER", 100_000), "Records buffered per language")
	fsFlags.StringVar(&cfg.ModelsURL, "models", env.str("MODELS_URL", "http://127.0.0.1:8500"), "Scoring model service URL")
	fsFlags.DurationVar(&cfg.ModelsTimeout, "models-timeout", 30*time.Second, "Scoring model request timeout")
	fsFlags.Float64Var(&cfg.MinLanguageConfidence, "lang-confidence", env.floatVal("LANG_CONFIDENCE", 0), "Minimum language detection confidence")
	fsFlags.StringVar(&cfg.Eligibility, "eligibility", env.str("ELIGIBILITY", "incentive-or-idle"), "Eligibility: all, incentive, incentive-or-idle")
	fsFlags.StringVar(&cfg.Shaping, "shaping", env.str("SHAPING", "power"), "Weight shaping: power or sigmoid")
	fsFlags.IntVar(&cfg.SmoothingSteps, "smoothing", env.intVal("SMOOTHING_STEPS", 0), "Smoothing steps (0 disables)")
	fsFlags.StringVar(&cfg.HTTPAddress, "http", env.str("STATUS_ADDR", ":8080"), "Status API address (empty disables)")
	fsFlags.StringVar(&cfg.QUICAddress, "quic", env.str("QUIC_ADDR", ""), "QUIC listen address (empty for dial-only)")
	fsFlags.StringVar(&logLevel, "log-level", env.str("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	if len(env.errs) > 0 {
		return nil, errors.Join(env.errs...)
	}

	if err := fsFlags.Parse(args); err != nil {
		return nil, &ConfigError{Field: "flags", Reason: err.Error()}
	}

	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return nil, &ConfigError{Field: "log-level", Reason: err.Error()}
	}

	cfg.LogLevel = level
	cfg.Interval = time.Duration(interval) * time.Second
	cfg.CallTimeout = time.Duration(callTimeout) * time.Second
	cfg.Languages = splitList(languages)
	cfg.LedgerEndpoints = splitList(endpoints)

	if cfg.SubnetID == 0 {
		cfg.SubnetID = mainnetSubnet
		if cfg.Testnet {
			cfg.SubnetID = testnetSubnet
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every setting that would make the round loop unusable.
func (c *Config) Validate() error {
	switch {
	case c.SubnetID == 0 || c.SubnetID > 0xFFFF:
		return &ConfigError{Field: "netuid", Reason: "must be in 1..65535"}
	case len(c.LedgerEndpoints) == 0:
		return &ConfigError{Field: "ledger", Reason: "at least one endpoint is required"}
	case len(c.Languages) < 2:
		return &ConfigError{Field: "languages", Reason: "at least two languages are required"}
	case c.BatchSize <= 0:
		return &ConfigError{Field: "batch", Reason: "must be positive"}
	case c.PoolSize <= 0:
		return &ConfigError{Field: "pool", Reason: "must be positive"}
	case c.Interval <= 0:
		return &ConfigError{Field: "interval", Reason: "must be positive"}
	case c.CallTimeout <= 0:
		return &ConfigError{Field: "call-timeout", Reason: "must be positive"}
	case c.FeedbackTimeout <= 0:
		return &ConfigError{Field: "feedback-timeout", Reason: "must be positive"}
	case c.StateBackend != "file" && c.StateBackend != "pebble":
		return &ConfigError{Field: "state", Reason: fmt.Sprintf("unknown backend %q", c.StateBackend)}
	}

	if _, err := ledger.ParseEligibility(c.Eligibility); err != nil {
		return &ConfigError{Field: "eligibility", Reason: err.Error()}
	}

	if _, err := weights.ParseShaper(c.Shaping); err != nil {
		return &ConfigError{Field: "shaping", Reason: err.Error()}
	}

	return nil
}

// splitList splits a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string

	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}

	return out
}

// loadOrGenerateKey loads the private key from file or generates a new one.
func loadOrGenerateKey(keyPath string) (ed25519.PrivateKey, error) {
	if keyPath == "" {
		return generateNewKey()
	}

	data, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		return generateAndSaveKey(keyPath)
	}

	if err != nil {
		return nil, fmt.Errorf("read key file:\n%w", err)
	}

	if len(data) != ed25519.PrivateKeySize {
		return nil, &ConfigError{Field: "key", Reason: fmt.Sprintf("invalid key size: got %d, want %d", len(data), ed25519.PrivateKeySize)}
	}

	return ed25519.PrivateKey(data), nil
}

// generateNewKey creates a new Ed25519 private key.
func generateNewKey() (ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key:\n%w", err)
	}

	return priv, nil
}

// generateAndSaveKey creates a new key and saves it to the given path.
func generateAndSaveKey(path string) (ed25519.PrivateKey, error) {
	priv, err := generateNewKey()
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, priv, 0600); err != nil {
		return nil, fmt.Errorf("save key to %s:\n%w", path, err)
	}

	return priv, nil
}
