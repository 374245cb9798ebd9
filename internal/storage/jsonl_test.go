package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"launchpool/internal/model"
)

func TestPutEventBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.jsonl")
	s := NewJsonlStorage(path)

	batch := []model.PoolEvent{
		{Seq: 1, Type: model.EventMint, Pool: "0x01", Caller: "0xaa"},
		{Seq: 2, Type: model.EventSwap, Pool: "0x01", Caller: "0xbb"},
	}
	if err := s.PutEventBatch(batch); err != nil {
		t.Fatalf("put batch: %v", err)
	}
	if err := s.PutEventBatch([]model.PoolEvent{{Seq: 3, Type: model.EventSync, Pool: "0x01", Caller: "0xcc"}}); err != nil {
		t.Fatalf("put second batch: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer file.Close()

	var got []model.PoolEvent
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var ev model.PoolEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		got = append(got, ev)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("lines: got %d, want 3", len(got))
	}
	if got[0].Seq != 1 || got[2].Seq != 3 {
		t.Fatalf("sequence mismatch: %+v", got)
	}
}

func TestPutEventBatchEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	s := NewJsonlStorage(path)
	if err := s.PutEventBatch(nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("empty batch should not create the file")
	}
}
