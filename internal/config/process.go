package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// Entity store backends.
const (
	StoreMemory   = "memory"
	StoreBadger   = "badger"
	StorePostgres = "postgres"
)

// ProcessConfig holds configuration for the process command.
type ProcessConfig struct {
	In              string
	Store           string
	BadgerDir       string
	PGDSN           string
	BatchSize       int
	MetadataGateway string
	MetadataWorkers int
	MetadataTimeout time.Duration
	MetricsAddr     string
	LogLevel        string
}

// LoadProcess merges config file, environment variables, and flags into ProcessConfig.
func LoadProcess(cfgFile string, flags *pflag.FlagSet) (ProcessConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"in":               "./data/typed_events.jsonl",
		"store":            StoreBadger,
		"badger-dir":       "./data/ledger",
		"batch-size":       1000,
		"metadata-workers": 4,
		"metadata-timeout": 30 * time.Second,
		"log-level":        "info",
	})
	if err != nil {
		return ProcessConfig{}, err
	}

	cfg := ProcessConfig{
		In:              v.GetString("in"),
		Store:           strings.ToLower(v.GetString("store")),
		BadgerDir:       v.GetString("badger-dir"),
		PGDSN:           v.GetString("pg-dsn"),
		BatchSize:       v.GetInt("batch-size"),
		MetadataGateway: v.GetString("metadata-gateway"),
		MetadataWorkers: v.GetInt("metadata-workers"),
		MetadataTimeout: v.GetDuration("metadata-timeout"),
		MetricsAddr:     v.GetString("metrics-addr"),
		LogLevel:        v.GetString("log-level"),
	}

	switch cfg.Store {
	case StoreMemory, StoreBadger:
	case StorePostgres:
		if cfg.PGDSN == "" {
			return ProcessConfig{}, fmt.Errorf("pg dsn is required for the postgres store")
		}
	default:
		return ProcessConfig{}, fmt.Errorf("unknown store %q", cfg.Store)
	}

	return cfg, nil
}
