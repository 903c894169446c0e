package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aristath/bojops/internal/database"
	"github.com/aristath/bojops/internal/domain"
)

// SQLiteStore keeps operations in the operations/transactions tables.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore returns a store on a connection whose schema is already applied.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save replaces all stored operations with ops in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, ops []*domain.Operation) error {
	return database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		// Transactions go with their operation through ON DELETE CASCADE
		if _, err := tx.ExecContext(ctx, "DELETE FROM operations"); err != nil {
			return fmt.Errorf("failed to clear operations: %w", err)
		}

		opStmt, err := tx.PrepareContext(ctx, "INSERT INTO operations (date) VALUES (?)")
		if err != nil {
			return fmt.Errorf("failed to prepare operation insert: %w", err)
		}
		defer opStmt.Close()

		txStmt, err := tx.PrepareContext(ctx, `INSERT INTO transactions
			(date, position, instrument, currency, units, competitive_bids, successful_bids, rate, average_spread)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare transaction insert: %w", err)
		}
		defer txStmt.Close()

		for _, op := range ops {
			rec := toRecord(op)
			if _, err := opStmt.ExecContext(ctx, rec.Date); err != nil {
				return fmt.Errorf("failed to insert operation %s: %w", rec.Date, err)
			}
			for i, t := range rec.Transactions {
				_, err := txStmt.ExecContext(ctx, rec.Date, i, t.Instrument, t.Currency, t.Units,
					nullInt(t.CompetitiveBids), nullInt(t.SuccessfulBids),
					nullFloat(t.Rate), nullFloat(t.AveSpread))
				if err != nil {
					return fmt.Errorf("failed to insert %s %s: %w", rec.Date, t.Instrument, err)
				}
			}
		}
		return nil
	})
}

// Load reads every stored operation in date order.
func (s *SQLiteStore) Load(ctx context.Context) ([]*domain.Operation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT o.date, t.instrument, t.currency, t.units,
			t.competitive_bids, t.successful_bids, t.rate, t.average_spread
		FROM operations o
		LEFT JOIN transactions t ON t.date = o.date
		ORDER BY o.date, t.position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	var recs []operationRecord
	for rows.Next() {
		var (
			date        string
			instrument  sql.NullString
			currency    sql.NullString
			units       sql.NullInt64
			competitive sql.NullInt64
			successful  sql.NullInt64
			rate        sql.NullFloat64
			spread      sql.NullFloat64
		)
		if err := rows.Scan(&date, &instrument, &currency, &units, &competitive, &successful, &rate, &spread); err != nil {
			return nil, fmt.Errorf("failed to scan operation row: %w", err)
		}

		if len(recs) == 0 || recs[len(recs)-1].Date != date {
			recs = append(recs, operationRecord{Date: date})
		}
		if !instrument.Valid {
			continue
		}
		last := &recs[len(recs)-1]
		last.Transactions = append(last.Transactions, transactionRecord{
			Instrument:      instrument.String,
			Currency:        currency.String,
			Units:           int(units.Int64),
			CompetitiveBids: intPtr(competitive),
			SuccessfulBids:  intPtr(successful),
			Rate:            floatPtr(rate),
			AveSpread:       floatPtr(spread),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read operations: %w", err)
	}

	return fromRecords(recs)
}

func nullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
