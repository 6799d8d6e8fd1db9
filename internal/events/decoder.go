package events

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/model"
)

// ErrUnsupported marks logs from unknown contracts or with unknown topics.
var ErrUnsupported = errors.New("unsupported log")

// Caller executes read-only contract calls pinned to a block.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// DecodeContext provides shared dependencies for a decode run.
type DecodeContext struct {
	Context context.Context
	Chain   Caller
	Logger  *zap.Logger
}

// Config binds contract addresses to roles.
type Config struct {
	// Contracts maps a role to the addresses deployed under it.
	Contracts map[string][]string
	// ENSRegistry is the registry used to verify SetDefaultName owners.
	// Names stay unverified when it is empty.
	ENSRegistry string
}

// Decoder turns protocol logs into typed events.
type Decoder struct {
	roles  map[common.Address]string
	events map[string]map[string]eventSpec
	ens    common.Address
}

func NewDecoder(cfg Config) (*Decoder, error) {
	d := &Decoder{
		roles:  make(map[common.Address]string),
		events: make(map[string]map[string]eventSpec),
	}
	for role, addresses := range cfg.Contracts {
		role = strings.ToLower(strings.TrimSpace(role))
		specs, err := roleEvents(role)
		if err != nil {
			return nil, err
		}
		d.events[role] = specs
		for _, addr := range addresses {
			if !common.IsHexAddress(addr) {
				return nil, fmt.Errorf("invalid %s address: %s", role, addr)
			}
			address := common.HexToAddress(addr)
			if prev, ok := d.roles[address]; ok && prev != role {
				return nil, fmt.Errorf("address %s bound to both %s and %s", addr, prev, role)
			}
			d.roles[address] = role
		}
	}
	if cfg.ENSRegistry != "" {
		if !common.IsHexAddress(cfg.ENSRegistry) {
			return nil, fmt.Errorf("invalid ens registry address: %s", cfg.ENSRegistry)
		}
		d.ens = common.HexToAddress(cfg.ENSRegistry)
	}
	return d, nil
}

func (d *Decoder) lookup(address, topic0 string) (string, eventSpec, bool) {
	if topic0 == "" || !common.IsHexAddress(address) {
		return "", eventSpec{}, false
	}
	role, ok := d.roles[common.HexToAddress(address)]
	if !ok {
		return "", eventSpec{}, false
	}
	spec, ok := d.events[role][strings.ToLower(topic0)]
	return role, spec, ok
}

// CanDecode checks if the contract and topic0 are known.
func (d *Decoder) CanDecode(address, topic0 string) bool {
	_, _, ok := d.lookup(address, topic0)
	return ok
}

// Decode converts a LogRecord into a TypedEvent and enriches it with
// contract state read at the log's block.
func (d *Decoder) Decode(log model.LogRecord, ctx DecodeContext) (*model.TypedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	role, spec, ok := d.lookup(log.Address, log.Topics[0])
	if !ok {
		return nil, fmt.Errorf("%w: %s topic0 %s", ErrUnsupported, log.Address, log.Topics[0])
	}

	payload, err := unpackEvent(spec.event, log.Topics, log.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.name, err)
	}

	if ctx.Chain != nil {
		d.enrich(ctx, log, spec.name, payload)
	}

	return &model.TypedEvent{
		ChainID:     log.ChainID,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash,
		TxHash:      log.TxHash,
		TxIndex:     log.TxIndex,
		LogIndex:    log.LogIndex,
		Address:     log.Address,
		Contract:    role,
		EventName:   spec.name,
		Timestamp:   log.Timestamp,
		Decoded:     payload,
		Raw:         &model.RawLogRef{Topic0: log.Topics[0], Data: log.Data},
	}, nil
}
