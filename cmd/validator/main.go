package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"Lingua/internal/logger"
)

func main() {
	cfg, err := parseFlags(os.Args[1:], ".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}

	logger.Init(cfg.LogLevel)

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// run is the main entry point with error handling.
func run(cfg *Config) error {
	var err error
	cfg.PrivateKey, err = loadOrGenerateKey(cfg.KeyPath)
	if err != nil {
		return fmt.Errorf("load key:\n%w", err)
	}

	node, err := NewNode(cfg)
	if err != nil {
		return fmt.Errorf("create node:\n%w", err)
	}

	printStartupInfo(cfg)

	return node.Run()
}

// exitCode is 2 for configuration errors and 1 for everything else.
func exitCode(err error) int {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return 2
	}

	return 1
}

// printStartupInfo displays validator configuration at startup.
func printStartupInfo(cfg *Config) {
	pubKey := cfg.PrivateKey.Public().(ed25519.PublicKey)

	logger.Info("starting Lingua validator",
		"pubkey", hex.EncodeToString(pubKey),
		"subnet", cfg.SubnetID,
		"testnet", cfg.Testnet,
		"ledger", cfg.LedgerEndpoints,
		"http", cfg.HTTPAddress,
		"data", cfg.DataPath,
		"state", cfg.StateBackend,
		"languages", len(cfg.Languages),
	)
}
