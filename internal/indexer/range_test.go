package indexer

import (
	"math"
	"reflect"
	"testing"
)

func TestSplitRange(t *testing.T) {
	tests := []struct {
		name      string
		from, to  uint64
		batchSize uint64
		want      []BlockRange
	}{
		{
			name: "even batches", from: 100, to: 105, batchSize: 2,
			want: []BlockRange{{100, 101}, {102, 103}, {104, 105}},
		},
		{
			name: "short tail", from: 100, to: 104, batchSize: 2,
			want: []BlockRange{{100, 101}, {102, 103}, {104, 104}},
		},
		{
			name: "single block", from: 5, to: 5, batchSize: 10,
			want: []BlockRange{{5, 5}},
		},
		{
			name: "top of range", from: math.MaxUint64 - 2, to: math.MaxUint64, batchSize: 2,
			want: []BlockRange{{math.MaxUint64 - 2, math.MaxUint64 - 1}, {math.MaxUint64, math.MaxUint64}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitRange(tt.from, tt.to, tt.batchSize)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ranges mismatch: %+v != %+v", got, tt.want)
			}
			var total uint64
			for _, r := range got {
				total += r.Len()
			}
			if total != tt.to-tt.from+1 {
				t.Fatalf("ranges cover %d blocks, want %d", total, tt.to-tt.from+1)
			}
		})
	}
}

func TestSplitRangeInvalid(t *testing.T) {
	if _, err := SplitRange(10, 9, 1); err == nil {
		t.Fatalf("expected error for invalid range")
	}
	if _, err := SplitRange(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}

func TestCheckpointResumeFrom(t *testing.T) {
	tests := []struct {
		name    string
		cp      Checkpoint
		from    uint64
		want    uint64
		wantErr bool
	}{
		{name: "ahead of start", cp: Checkpoint{ChainID: 1, LastProcessedBlock: 20}, from: 10, want: 21},
		{name: "behind start", cp: Checkpoint{ChainID: 1, LastProcessedBlock: 5}, from: 10, want: 10},
		{name: "legacy without chain", cp: Checkpoint{LastProcessedBlock: 20}, from: 10, want: 21},
		{name: "other chain", cp: Checkpoint{ChainID: 42161, LastProcessedBlock: 20}, from: 10, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cp.ResumeFrom(1, tt.from)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("ResumeFrom = %d, %v; want %d", got, err, tt.want)
			}
		})
	}
}

func TestCheckpointStoreDisabled(t *testing.T) {
	store := NewCheckpointStore(t.TempDir()+"/cp.json", false)
	if err := store.Save(1, 10); err != nil {
		t.Fatalf("save: %v", err)
	}
	cp, err := store.Load()
	if err != nil || cp != nil {
		t.Fatalf("disabled store loaded %+v, %v", cp, err)
	}
}
