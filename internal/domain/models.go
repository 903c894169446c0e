// Package domain provides the operation record model shared by every stage
// of ingestion, querying and persistence.
package domain

import (
	"strings"

	"cloud.google.com/go/civil"
)

// Currency is the settlement currency of a transaction.
type Currency string

const (
	CurrencyJPY Currency = "JPY"
	CurrencyUSD Currency = "USD"
)

// Unit scales convert raw bid figures into millions of currency units.
const (
	UnitsJPY = 100
	UnitsUSD = 1
)

// USDPrefix marks instruments settled in US dollars.
const USDPrefix = "USD"

// JGBPrefix marks instruments in the JGB family.
const JGBPrefix = "JGB"

// CurrencyFor derives the currency and unit scale from a canonical instrument name.
func CurrencyFor(instrument string) (Currency, int) {
	if strings.HasPrefix(instrument, USDPrefix) {
		return CurrencyUSD, UnitsUSD
	}
	return CurrencyJPY, UnitsJPY
}

// IsJGB reports whether the instrument belongs to the JGB family.
func IsJGB(instrument string) bool {
	return strings.HasPrefix(instrument, JGBPrefix)
}

// Transaction is one instrument traded within an operation. It is read-only;
// values are assembled through a TransactionDraft.
type Transaction struct {
	instrument      string
	currency        Currency
	units           int
	competitiveBids *int64
	successfulBids  *int64
	rate            *float64
	averageSpread   *float64
}

// TransactionFields is the flat form of a transaction used by persistence.
type TransactionFields struct {
	Instrument      string
	Currency        Currency
	Units           int
	CompetitiveBids *int64
	SuccessfulBids  *int64
	Rate            *float64
	AverageSpread   *float64
}

func (t *Transaction) Instrument() string { return t.instrument }
func (t *Transaction) Currency() Currency { return t.currency }
func (t *Transaction) Units() int { return t.units }

// CompetitiveBids returns the competitive bid volume, if published.
func (t *Transaction) CompetitiveBids() (int64, bool) { return derefInt(t.competitiveBids) }

// SuccessfulBids returns the successful bid volume, if published.
func (t *Transaction) SuccessfulBids() (int64, bool) { return derefInt(t.successfulBids) }

// Rate returns the yield in percent, if published.
func (t *Transaction) Rate() (float64, bool) { return derefFloat(t.rate) }

// AverageSpread returns the average spread, if published.
func (t *Transaction) AverageSpread() (float64, bool) { return derefFloat(t.averageSpread) }

// Value is successful bids in billions of currency units, 0 when absent.
func (t *Transaction) Value() float64 {
	if t.successfulBids == nil {
		return 0
	}
	return float64(*t.successfulBids) * float64(t.units) / 1000
}

// Fields returns a copy of the transaction as flat fields.
func (t *Transaction) Fields() TransactionFields {
	return TransactionFields{
		Instrument:      t.instrument,
		Currency:        t.currency,
		Units:           t.units,
		CompetitiveBids: copyInt(t.competitiveBids),
		SuccessfulBids:  copyInt(t.successfulBids),
		Rate:            copyFloat(t.rate),
		AverageSpread:   copyFloat(t.averageSpread),
	}
}

func (t *Transaction) clone() *Transaction {
	f := t.Fields()
	return &Transaction{
		instrument:      f.Instrument,
		currency:        f.Currency,
		units:           f.Units,
		competitiveBids: f.CompetitiveBids,
		successfulBids:  f.SuccessfulBids,
		rate:            f.Rate,
		averageSpread:   f.AverageSpread,
	}
}

// Operation is one calendar day's set of transactions, at most one per instrument.
type Operation struct {
	date         civil.Date
	transactions []*Transaction
}

// Date returns the operation date.
func (o *Operation) Date() civil.Date { return o.date }

// Len returns the number of transactions.
func (o *Operation) Len() int { return len(o.transactions) }

// Transactions returns copies of the transactions in discovery order.
func (o *Operation) Transactions() []Transaction {
	out := make([]Transaction, len(o.transactions))
	for i, t := range o.transactions {
		out[i] = *t.clone()
	}
	return out
}

// Instruments returns the instruments traded, in discovery order.
func (o *Operation) Instruments() []string {
	out := make([]string, len(o.transactions))
	for i, t := range o.transactions {
		out[i] = t.instrument
	}
	return out
}

// Transaction returns a copy of the transaction for instrument.
func (o *Operation) Transaction(instrument string) (Transaction, bool) {
	t := o.find(instrument)
	if t == nil {
		return Transaction{}, false
	}
	return *t.clone(), true
}

// HasAny reports whether any of the instruments traded on this day.
func (o *Operation) HasAny(instruments []string) bool {
	for _, want := range instruments {
		if o.find(want) != nil {
			return true
		}
	}
	return false
}

// TransactionValue returns successful bids × units / 1000 for instrument,
// 0 when the instrument is absent. An empty instrument sums the JGB family.
func (o *Operation) TransactionValue(instrument string) float64 {
	if instrument == "" {
		var total float64
		for _, t := range o.transactions {
			if IsJGB(t.instrument) {
				total += t.Value()
			}
		}
		return total
	}
	if t := o.find(instrument); t != nil {
		return t.Value()
	}
	return 0
}

// TransactionRate returns the rate for instrument, 0 when absent or unpublished.
func (o *Operation) TransactionRate(instrument string) float64 {
	r, _ := o.Rate(instrument)
	return r
}

// Rate returns the rate for instrument and whether one was published.
func (o *Operation) Rate(instrument string) (float64, bool) {
	t := o.find(instrument)
	if t == nil {
		return 0, false
	}
	return t.Rate()
}

// Equal reports whether two operations hold the same date and transactions.
func (o *Operation) Equal(other *Operation) bool {
	if o.date != other.date || len(o.transactions) != len(other.transactions) {
		return false
	}
	for i, t := range o.transactions {
		if !fieldsEqual(t.Fields(), other.transactions[i].Fields()) {
			return false
		}
	}
	return true
}

func (o *Operation) find(instrument string) *Transaction {
	for _, t := range o.transactions {
		if t.instrument == instrument {
			return t
		}
	}
	return nil
}

func fieldsEqual(a, b TransactionFields) bool {
	return a.Instrument == b.Instrument &&
		a.Currency == b.Currency &&
		a.Units == b.Units &&
		eqPtr(a.CompetitiveBids, b.CompetitiveBids) &&
		eqPtr(a.SuccessfulBids, b.SuccessfulBids) &&
		eqPtr(a.Rate, b.Rate) &&
		eqPtr(a.AverageSpread, b.AverageSpread)
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func derefInt(p *int64) (int64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

func derefFloat(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

func copyInt(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
