package events

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/model"
)

// enrich adds the contract reads the ledger cannot derive from events.
// A failed read leaves its field absent.
func (d *Decoder) enrich(ctx DecodeContext, log model.LogRecord, name string, payload map[string]interface{}) {
	logger := ctx.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	callCtx := ctx.Context
	if callCtx == nil {
		callCtx = context.Background()
	}
	block := new(big.Int).SetUint64(log.BlockNumber)
	contract := common.HexToAddress(log.Address)
	fields := []zap.Field{zap.String("event", name), zap.Uint64("block", log.BlockNumber)}

	switch name {
	case "StakingParameterUpdated":
		if payload["param"] != "delegationRatio" {
			return
		}
		values, err := callMethod(callCtx, ctx.Chain, contract, StakingABI, "delegationRatio", block)
		if err != nil {
			logger.Warn("delegation ratio call failed", append(fields, zap.Error(err))...)
			return
		}
		payload["value"] = normalize(values[0])

	case "CurationParameterUpdated":
		if payload["param"] != "defaultReserveRatio" {
			return
		}
		values, err := callMethod(callCtx, ctx.Chain, contract, CurationABI, "defaultReserveRatio", block)
		if err != nil {
			logger.Warn("reserve ratio call failed", append(fields, zap.Error(err))...)
			return
		}
		payload["value"] = normalize(values[0])

	case "StakeSlashed":
		indexer, err := asAddress(payload["indexer"])
		if err != nil {
			logger.Warn("slashed indexer unreadable", append(fields, zap.Error(err))...)
			return
		}
		values, err := callMethod(callCtx, ctx.Chain, contract, StakingABI, "stakes", block, indexer)
		if err != nil || len(values) < 3 {
			logger.Warn("stakes call failed", append(fields, zap.String("indexer", indexer.Hex()), zap.Error(err))...)
			return
		}
		locked, err := asBigInt(values[2])
		if err != nil {
			logger.Warn("stakes call failed", append(fields, zap.Error(err))...)
			return
		}
		payload["locked_tokens"] = normalize(locked)

	case "SetDefaultName":
		if d.ens == (common.Address{}) {
			return
		}
		nodeHex, _ := payload["name_identifier"].(string)
		node := common.HexToHash(nodeHex)
		values, err := callMethod(callCtx, ctx.Chain, d.ens, ENSRegistryABI, "owner", block, [32]byte(node))
		if err != nil {
			if isRevert(err) {
				logger.Debug("name owner lookup reverted", append(fields, zap.String("node", node.Hex()))...)
			} else {
				logger.Warn("name owner call failed", append(fields, zap.String("node", node.Hex()), zap.Error(err))...)
			}
			return
		}
		owner, err := asAddress(values[0])
		if err != nil {
			logger.Warn("name owner call failed", append(fields, zap.Error(err))...)
			return
		}
		payload["name_owner"] = owner.Hex()
	}
}

func callMethod(ctx context.Context, caller Caller, contract common.Address, parsedABI func() (abi.ABI, error), method string, block *big.Int, args ...interface{}) ([]interface{}, error) {
	parsed, err := parsedABI()
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &contract, Data: data}
	resp, err := caller.CallContract(ctx, msg, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: no values", method)
	}
	return values, nil
}

func isRevert(err error) bool {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}
