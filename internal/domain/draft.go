package domain

import (
	"fmt"

	"cloud.google.com/go/civil"
)

// OperationDraft assembles one day's transactions before they are frozen
// into an Operation. Only the record builder and persistence loaders use it.
type OperationDraft struct {
	date         civil.Date
	transactions []*TransactionDraft
}

// TransactionDraft is the mutable form of a transaction inside a draft.
type TransactionDraft struct {
	t Transaction
}

// NewOperationDraft starts an empty draft for date.
func NewOperationDraft(date civil.Date) *OperationDraft {
	return &OperationDraft{date: date}
}

// Date returns the draft date.
func (d *OperationDraft) Date() civil.Date { return d.date }

// AddTransaction adds a transaction for instrument, deriving its currency
// and unit scale from the name.
func (d *OperationDraft) AddTransaction(instrument string) (*TransactionDraft, error) {
	currency, units := CurrencyFor(instrument)
	return d.AddTransactionWith(instrument, currency, units)
}

// AddTransactionWith adds a transaction with an explicit currency and unit
// scale, as read back from storage.
func (d *OperationDraft) AddTransactionWith(instrument string, currency Currency, units int) (*TransactionDraft, error) {
	if instrument == "" {
		return nil, fmt.Errorf("empty instrument on %s", d.date)
	}
	if d.Transaction(instrument) != nil {
		return nil, &DuplicateInstrumentError{Date: d.date, Instrument: instrument}
	}
	td := &TransactionDraft{t: Transaction{instrument: instrument, currency: currency, units: units}}
	d.transactions = append(d.transactions, td)
	return td, nil
}

// Transaction returns the draft transaction for instrument, or nil.
func (d *OperationDraft) Transaction(instrument string) *TransactionDraft {
	for _, td := range d.transactions {
		if td.t.instrument == instrument {
			return td
		}
	}
	return nil
}

// Len returns the number of transactions added so far.
func (d *OperationDraft) Len() int { return len(d.transactions) }

// Finalize freezes the draft. Later changes to the draft do not affect the
// returned Operation.
func (d *OperationDraft) Finalize() *Operation {
	op := &Operation{date: d.date, transactions: make([]*Transaction, len(d.transactions))}
	for i, td := range d.transactions {
		op.transactions[i] = td.t.clone()
	}
	return op
}

// Instrument returns the draft transaction's instrument.
func (td *TransactionDraft) Instrument() string { return td.t.instrument }

func (td *TransactionDraft) SetCompetitiveBids(v *int64) *TransactionDraft {
	td.t.competitiveBids = copyInt(v)
	return td
}

func (td *TransactionDraft) SetSuccessfulBids(v *int64) *TransactionDraft {
	td.t.successfulBids = copyInt(v)
	return td
}

func (td *TransactionDraft) SetRate(v *float64) *TransactionDraft {
	td.t.rate = copyFloat(v)
	return td
}

func (td *TransactionDraft) SetAverageSpread(v *float64) *TransactionDraft {
	td.t.averageSpread = copyFloat(v)
	return td
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }
