package main

import (
	"crypto/ed25519"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// noEnvFile returns a path where no .env file exists.
func noEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), ".env")
}

func TestParseFlagsDefaults(t *testing.T) {
	cfg, err := parseFlags([]string{"-ledger", "http://a, http://b"}, noEnvFile(t))
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}

	if cfg.SubnetID != mainnetSubnet {
		t.Errorf("expected mainnet subnet %d, got %d", mainnetSubnet, cfg.SubnetID)
	}

	if cfg.Interval != 10*time.Second || cfg.CallTimeout != 20*time.Second {
		t.Errorf("unexpected timing defaults: interval=%v call=%v", cfg.Interval, cfg.CallTimeout)
	}

	if len(cfg.LedgerEndpoints) != 2 || cfg.LedgerEndpoints[1] != "http://b" {
		t.Errorf("unexpected endpoints %v", cfg.LedgerEndpoints)
	}

	if len(cfg.Languages) != len(defaultLanguages) {
		t.Errorf("expected %d languages, got %d", len(defaultLanguages), len(cfg.Languages))
	}
}

func TestParseFlagsTestnetSubnet(t *testing.T) {
	cfg, err := parseFlags([]string{"-testnet", "-ledger", "http://a"}, noEnvFile(t))
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}

	if cfg.SubnetID != testnetSubnet {
		t.Errorf("expected testnet subnet %d, got %d", testnetSubnet, cfg.SubnetID)
	}
}

func TestParseFlagsEnvironment(t *testing.T) {
	t.Setenv("NETUID", "7")
	t.Setenv("VALIDATOR_INTERVAL", "30")
	t.Setenv("LEDGER_ENDPOINTS", "http://ledger")
	t.Setenv("LANGUAGES", "en,fr")

	cfg, err := parseFlags(nil, noEnvFile(t))
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}

	if cfg.SubnetID != 7 || cfg.Interval != 30*time.Second {
		t.Errorf("environment ignored: subnet=%d interval=%v", cfg.SubnetID, cfg.Interval)
	}

	// Flags win over the environment
	cfg, err = parseFlags([]string{"-netuid", "9"}, noEnvFile(t))
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}

	if cfg.SubnetID != 9 {
		t.Errorf("flag should override NETUID, got %d", cfg.SubnetID)
	}
}

func TestParseFlagsDotEnv(t *testing.T) {
	// Register cleanup, then unset so the .env value can apply
	t.Setenv("VALIDATOR_BATCH_SIZE", "")
	os.Unsetenv("VALIDATOR_BATCH_SIZE")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("VALIDATOR_BATCH_SIZE=4\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := parseFlags([]string{"-ledger", "http://a"}, path)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}

	if cfg.BatchSize != 4 {
		t.Errorf("expected batch 4 from .env, got %d", cfg.BatchSize)
	}
}

func TestParseFlagsNonNumericEnv(t *testing.T) {
	t.Setenv("VALIDATOR_CALL_TIMEOUT", "20s")

	_, err := parseFlags([]string{"-ledger", "http://a"}, noEnvFile(t))

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "VALIDATOR_CALL_TIMEOUT" {
		t.Errorf("expected ConfigError for VALIDATOR_CALL_TIMEOUT, got %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"ledger":      func(c *Config) { c.LedgerEndpoints = nil },
		"languages":   func(c *Config) { c.Languages = []string{"en"} },
		"batch":       func(c *Config) { c.BatchSize = 0 },
		"pool":        func(c *Config) { c.PoolSize = -1 },
		"state":       func(c *Config) { c.StateBackend = "sqlite" },
		"eligibility": func(c *Config) { c.Eligibility = "stake" },
		"shaping":     func(c *Config) { c.Shaping = "linear" },
		"netuid":      func(c *Config) { c.SubnetID = 70000 },
	}

	for field, mutate := range cases {
		cfg, err := parseFlags([]string{"-ledger", "http://a"}, noEnvFile(t))
		if err != nil {
			t.Fatalf("parseFlags: %v", err)
		}

		mutate(cfg)

		var cfgErr *ConfigError
		if err := cfg.Validate(); !errors.As(err, &cfgErr) || cfgErr.Field != field {
			t.Errorf("%s: expected ConfigError, got %v", field, err)
		}
	}
}

func TestExitCode(t *testing.T) {
	if exitCode(&ConfigError{Field: "x", Reason: "y"}) != 2 {
		t.Error("configuration errors should exit with 2")
	}

	if exitCode(errors.New("boom")) != 1 {
		t.Error("other errors should exit with 1")
	}
}

func TestLoadOrGenerateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "validator.key")

	first, err := loadOrGenerateKey(path)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	second, err := loadOrGenerateKey(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	if !first.Equal(second) {
		t.Error("reloaded key differs from generated key")
	}

	if len(second) != ed25519.PrivateKeySize {
		t.Errorf("unexpected key size %d", len(second))
	}
}

func TestLoadKeyBadSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.key")
	if err := os.WriteFile(path, []byte("short"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	var cfgErr *ConfigError
	if _, err := loadOrGenerateKey(path); !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError, got %v", err)
	}
}
