package main

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/events"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/model"
)

var (
	testStaking = common.HexToAddress("0xF55041E37E12cD407ad00CE2910B8269B01263b9")
	testIndexer = common.HexToAddress("0x00000000000000000000000000000000000000a1")
)

type memWriter struct {
	values []interface{}
}

func (w *memWriter) Write(value interface{}) error {
	w.values = append(w.values, value)
	return nil
}

func stakeDepositedLine(t *testing.T, logIndex uint64, data []byte, address common.Address) string {
	t.Helper()
	record := model.LogRecord{
		ChainID:     1,
		BlockNumber: 100,
		TxHash:      "0x02",
		LogIndex:    logIndex,
		Address:     address.Hex(),
		Topics: []string{
			crypto.Keccak256Hash([]byte("StakeDeposited(address,uint256)")).Hex(),
			common.BytesToHash(testIndexer.Bytes()).Hex(),
		},
		Data:      hexutil.Encode(data),
		Timestamp: 1607990400,
	}
	line, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(line)
}

func TestDecodeStream(t *testing.T) {
	decoder, err := events.NewDecoder(events.Config{
		Contracts: map[string][]string{events.RoleStaking: {testStaking.Hex()}},
	})
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	tokens := common.LeftPadBytes(big.NewInt(1000).Bytes(), 32)
	input := strings.Join([]string{
		stakeDepositedLine(t, 1, tokens, testStaking),
		"",
		"{not json",
		`{"address":"0x01","topics":[]}`,
		stakeDepositedLine(t, 2, tokens, common.HexToAddress("0x0000000000000000000000000000000000000bad")),
		stakeDepositedLine(t, 3, nil, testStaking),
	}, "\n")

	out := &memWriter{}
	errs := &memWriter{}
	stats, err := decodeStream(decoder, events.DecodeContext{Context: context.Background(), Logger: zap.NewNop()}, strings.NewReader(input), out, errs)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if stats.total != 5 || stats.decoded != 1 || stats.skipped != 1 || stats.failed != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(out.values) != 1 {
		t.Fatalf("expected 1 decoded event, got %d", len(out.values))
	}
	event := out.values[0].(*model.TypedEvent)
	if event.EventName != "StakeDeposited" || event.Contract != events.RoleStaking || event.LogIndex != 1 {
		t.Fatalf("unexpected event: %+v", event)
	}

	if len(errs.values) != 3 {
		t.Fatalf("expected 3 decode errors, got %d", len(errs.values))
	}
	last := errs.values[2].(model.DecodeError)
	if last.LogIndex != 3 || last.Line != 6 || !strings.Contains(last.Error, "StakeDeposited") {
		t.Fatalf("unexpected decode error: %+v", last)
	}
}

type failingWriter struct{}

func (failingWriter) Write(interface{}) error {
	return errors.New("disk full")
}

func TestDecodeStreamLogsFailedErrorSink(t *testing.T) {
	decoder, err := events.NewDecoder(events.Config{
		Contracts: map[string][]string{events.RoleStaking: {testStaking.Hex()}},
	})
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	core, logs := observer.New(zapcore.WarnLevel)

	tokens := common.LeftPadBytes(big.NewInt(1000).Bytes(), 32)
	input := strings.Join([]string{
		"{not json",
		stakeDepositedLine(t, 1, tokens, testStaking),
	}, "\n")

	out := &memWriter{}
	stats, err := decodeStream(decoder, events.DecodeContext{Context: context.Background(), Logger: zap.New(core)}, strings.NewReader(input), out, failingWriter{})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.failed != 1 || stats.decoded != 1 || len(out.values) != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	entries := logs.FilterMessage("write decode error").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["line"] != int64(1) || fields["error"] != "disk full" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestDecodeStreamStopsOnCancel(t *testing.T) {
	decoder, err := events.NewDecoder(events.Config{})
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = decodeStream(decoder, events.DecodeContext{Context: ctx}, strings.NewReader("{}\n{}\n"), &memWriter{}, &memWriter{})
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRedactURL(t *testing.T) {
	tests := map[string]string{
		"":                                      "",
		"https://mainnet.infura.io/v3/secret":   "https://mainnet.infura.io",
		"postgres://user:pass@db:5432/ledger":   "postgres://db:5432",
		"host=db user=ledger password=secret":   "***",
	}
	for in, want := range tests {
		if got := redactURL(in); got != want {
			t.Fatalf("redactURL(%q) = %q, want %q", in, got, want)
		}
	}
}
