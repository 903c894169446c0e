package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aristath/bojops/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

// JSONStore keeps operations in a JSON object keyed by ISO date:
//
//	{"2024-03-01": {"Transactions": [{"Instrument": "CP", ...}]}}
type JSONStore struct {
	path string
}

// NewJSONStore returns a store backed by the JSON file at path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the backing file.
func (s *JSONStore) Path() string { return s.path }

// Save writes ops, replacing the file.
func (s *JSONStore) Save(_ context.Context, ops []*domain.Operation) error {
	doc := make(map[string]operationRecord, len(ops))
	for _, op := range ops {
		rec := toRecord(op)
		doc[rec.Date] = rec
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode operations: %w", err)
	}
	return writeFileAtomic(s.path, buf.Bytes())
}

// Load reads the file. A missing file is an empty store.
func (s *JSONStore) Load(_ context.Context) ([]*domain.Operation, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var doc map[string]operationRecord
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.path, err)
	}

	recs := make([]operationRecord, 0, len(doc))
	for date, rec := range doc {
		rec.Date = date
		recs = append(recs, rec)
	}
	return fromRecords(recs)
}

// MsgpackStore keeps operations as a msgpack array of dated records.
type MsgpackStore struct {
	path string
}

// NewMsgpackStore returns a store backed by the msgpack file at path.
func NewMsgpackStore(path string) *MsgpackStore {
	return &MsgpackStore{path: path}
}

// Path returns the backing file.
func (s *MsgpackStore) Path() string { return s.path }

// Save writes ops, replacing the file.
func (s *MsgpackStore) Save(_ context.Context, ops []*domain.Operation) error {
	recs := make([]operationRecord, 0, len(ops))
	for _, op := range ops {
		recs = append(recs, toRecord(op))
	}

	data, err := msgpack.Marshal(recs)
	if err != nil {
		return fmt.Errorf("failed to encode operations: %w", err)
	}
	return writeFileAtomic(s.path, data)
}

// Load reads the file. A missing file is an empty store.
func (s *MsgpackStore) Load(_ context.Context) ([]*domain.Operation, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var recs []operationRecord
	if err := msgpack.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.path, err)
	}
	return fromRecords(recs)
}
