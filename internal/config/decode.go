package config

import (
	"github.com/spf13/pflag"
)

// DecodeConfig holds configuration for the decode command.
type DecodeConfig struct {
	RPCURL      string
	In          string
	Out         string
	Errors      string
	LogLevel    string
	Contracts   map[string][]string
	ENSRegistry string
	// Enrich enables the eth_call reads pinned to each event's block.
	Enrich bool
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"in":        "./data/logs.jsonl",
		"out":       "./data/typed_events.jsonl",
		"errors":    "./data/decode_errors.jsonl",
		"enrich":    true,
		"log-level": "info",
	})
	if err != nil {
		return DecodeConfig{}, err
	}

	cfg := DecodeConfig{
		RPCURL:      v.GetString("rpc"),
		In:          v.GetString("in"),
		Out:         v.GetString("out"),
		Errors:      v.GetString("errors"),
		LogLevel:    v.GetString("log-level"),
		Contracts:   getContracts(v, "contracts"),
		ENSRegistry: v.GetString("ens-registry"),
		Enrich:      v.GetBool("enrich"),
	}

	return cfg, nil
}
