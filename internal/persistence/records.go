// Package persistence saves and loads operation collections as JSON,
// msgpack or SQLite.
package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/aristath/bojops/internal/domain"
)

// Store persists a full operation collection. Save replaces whatever was
// stored before; Load on an empty or missing store returns no operations.
type Store interface {
	Save(ctx context.Context, ops []*domain.Operation) error
	Load(ctx context.Context) ([]*domain.Operation, error)
}

// transactionRecord is the stored shape of one transaction. Absent optional
// values are stored as null.
type transactionRecord struct {
	Instrument      string   `json:"Instrument" msgpack:"instrument"`
	CompetitiveBids *int64   `json:"CompetitiveBids" msgpack:"competitive_bids"`
	SuccessfulBids  *int64   `json:"SuccessfulBids" msgpack:"successful_bids"`
	Rate            *float64 `json:"Rate" msgpack:"rate"`
	Currency        string   `json:"Currency" msgpack:"currency"`
	Units           int      `json:"Units" msgpack:"units"`
	AveSpread       *float64 `json:"AveSpread,omitempty" msgpack:"ave_spread,omitempty"`
}

type operationRecord struct {
	Date         string              `json:"-" msgpack:"date"`
	Transactions []transactionRecord `json:"Transactions" msgpack:"transactions"`
}

func toRecord(op *domain.Operation) operationRecord {
	txs := op.Transactions()
	rec := operationRecord{
		Date:         op.Date().String(),
		Transactions: make([]transactionRecord, 0, len(txs)),
	}
	for i := range txs {
		f := txs[i].Fields()
		rec.Transactions = append(rec.Transactions, transactionRecord{
			Instrument:      f.Instrument,
			CompetitiveBids: f.CompetitiveBids,
			SuccessfulBids:  f.SuccessfulBids,
			Rate:            f.Rate,
			Currency:        string(f.Currency),
			Units:           f.Units,
			AveSpread:       f.AverageSpread,
		})
	}
	return rec
}

func fromRecord(rec operationRecord) (*domain.Operation, error) {
	date, err := civil.ParseDate(rec.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid operation date %q: %w", rec.Date, err)
	}

	draft := domain.NewOperationDraft(date)
	for _, t := range rec.Transactions {
		td, err := draft.AddTransactionWith(t.Instrument, domain.Currency(t.Currency), t.Units)
		if err != nil {
			return nil, fmt.Errorf("operation %s: %w", rec.Date, err)
		}
		td.SetCompetitiveBids(t.CompetitiveBids).
			SetSuccessfulBids(t.SuccessfulBids).
			SetRate(t.Rate).
			SetAverageSpread(t.AveSpread)
	}
	return draft.Finalize(), nil
}

func fromRecords(recs []operationRecord) ([]*domain.Operation, error) {
	ops := make([]*domain.Operation, 0, len(recs))
	for _, rec := range recs {
		op, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Date().Before(ops[j].Date()) })
	return ops, nil
}

// writeFileAtomic writes data next to path and renames it into place, so a
// crash never leaves a truncated store behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
