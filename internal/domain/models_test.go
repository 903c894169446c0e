package domain

import (
	"errors"
	"fmt"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = civil.Date{Year: 2022, Month: 6, Day: 15}

func buildOp(t *testing.T, date civil.Date, rows map[string]int64) *Operation {
	t.Helper()
	d := NewOperationDraft(date)
	for instrument, bids := range rows {
		td, err := d.AddTransaction(instrument)
		require.NoError(t, err)
		td.SetSuccessfulBids(Int64(bids))
	}
	return d.Finalize()
}

func TestCurrencyFor(t *testing.T) {
	c, u := CurrencyFor("USD: PC")
	assert.Equal(t, CurrencyUSD, c)
	assert.Equal(t, UnitsUSD, u)

	c, u = CurrencyFor("JGBs: 5-10y")
	assert.Equal(t, CurrencyJPY, c)
	assert.Equal(t, UnitsJPY, u)
}

func TestTransactionValue(t *testing.T) {
	op := buildOp(t, day, map[string]int64{"JGBs: 5-10y": 200})

	assert.Equal(t, 20.0, op.TransactionValue("JGBs: 5-10y"))
	assert.Equal(t, 0.0, op.TransactionValue("JGBs: 1-3y"))
}

func TestTransactionValue_JGBTotal(t *testing.T) {
	op := buildOp(t, day, map[string]int64{
		"JGBs: 5-10y":      200,
		"JGBs: FR 1-3y":    50,
		"CP":               1000,
		"USD: PC":          3000,
		"Sec. lending: am": 7,
	})

	assert.InDelta(t, 25.0, op.TransactionValue(""), 1e-9)
}

func TestTransactionValue_AbsentBidsIsZero(t *testing.T) {
	d := NewOperationDraft(day)
	_, err := d.AddTransaction("JGBs: FR 3-5y")
	require.NoError(t, err)
	op := d.Finalize()

	assert.Equal(t, 0.0, op.TransactionValue("JGBs: FR 3-5y"))
	assert.Equal(t, 0.0, op.TransactionValue(""))
}

func TestRate_DistinguishesAbsence(t *testing.T) {
	d := NewOperationDraft(day)
	td, err := d.AddTransaction("JGBs: FR 5-10y")
	require.NoError(t, err)
	td.SetRate(Float64(0))
	_, err = d.AddTransaction("JGBs: 1-3y")
	require.NoError(t, err)
	op := d.Finalize()

	r, ok := op.Rate("JGBs: FR 5-10y")
	assert.True(t, ok)
	assert.Equal(t, 0.0, r)

	_, ok = op.Rate("JGBs: 1-3y")
	assert.False(t, ok, "rate not published")

	_, ok = op.Rate("JGBs: >25y")
	assert.False(t, ok, "instrument absent")

	assert.Equal(t, 0.0, op.TransactionRate("JGBs: >25y"))
}

func TestAddTransaction_Duplicate(t *testing.T) {
	d := NewOperationDraft(day)
	_, err := d.AddTransaction("CP")
	require.NoError(t, err)

	_, err = d.AddTransaction("CP")
	require.Error(t, err)

	var dup *DuplicateInstrumentError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "CP", dup.Instrument)
	assert.Equal(t, day, dup.Date)
	assert.True(t, IsFatal(err))
}

func TestAddTransaction_DerivesCurrency(t *testing.T) {
	d := NewOperationDraft(day)
	_, err := d.AddTransaction("USD: JGS PC")
	require.NoError(t, err)
	op := d.Finalize()

	tr, ok := op.Transaction("USD: JGS PC")
	require.True(t, ok)
	assert.Equal(t, CurrencyUSD, tr.Currency())
	assert.Equal(t, 1, tr.Units())
}

func TestFinalize_IsolatedFromDraft(t *testing.T) {
	d := NewOperationDraft(day)
	td, err := d.AddTransaction("TB")
	require.NoError(t, err)
	td.SetSuccessfulBids(Int64(10))

	op := d.Finalize()
	td.SetSuccessfulBids(Int64(99))
	_, err = d.AddTransaction("CP")
	require.NoError(t, err)

	assert.Equal(t, 1, op.Len())
	tr, _ := op.Transaction("TB")
	v, ok := tr.SuccessfulBids()
	assert.True(t, ok)
	assert.Equal(t, int64(10), v)
}

func TestOperation_ReadAccessReturnsCopies(t *testing.T) {
	op := buildOp(t, day, map[string]int64{"TB": 10})

	txs := op.Transactions()
	txs[0] = Transaction{}
	instruments := op.Instruments()
	instruments[0] = "changed"

	assert.Equal(t, []string{"TB"}, op.Instruments())
}

func TestOperation_PreservesDiscoveryOrder(t *testing.T) {
	d := NewOperationDraft(day)
	for _, name := range []string{"JGBs: 5-10y", "CP", "JGBs: 1-3y"} {
		_, err := d.AddTransaction(name)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"JGBs: 5-10y", "CP", "JGBs: 1-3y"}, d.Finalize().Instruments())
}

func TestOperation_HasAny(t *testing.T) {
	op := buildOp(t, day, map[string]int64{"TB": 10})
	assert.True(t, op.HasAny([]string{"CP", "TB"}))
	assert.False(t, op.HasAny([]string{"CP"}))
	assert.False(t, op.HasAny(nil))
}

func TestOperation_Equal(t *testing.T) {
	a := buildOp(t, day, map[string]int64{"TB": 10})
	b := buildOp(t, day, map[string]int64{"TB": 10})
	c := buildOp(t, day, map[string]int64{"TB": 11})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		err   error
		fatal bool
	}{
		{&UnrecognizedInstrumentError{Raw: "x"}, true},
		{&UnrecognizedMaturityBucketError{Years: 7}, true},
		{&UnrecognizedTableShapeError{Columns: 12}, true},
		{&OrphanAnnotationError{Date: day, Maturity: 5, Instrument: "JGBs: FR 3-5y"}, true},
		{fmt.Errorf("month 2022-06: %w", &UnrecognizedTableShapeError{Columns: 9}), true},
		{&ConflictingRateError{Date: day, Instrument: "JGBs: FR 5-10y", First: 0.5, Second: 0.51}, true},
		{ErrResourceUnavailable, false},
		{fmt.Errorf("page: %w", ErrParseUnavailable), false},
		{nil, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.fatal, IsFatal(tt.err), "%v", tt.err)
	}
	assert.True(t, IsSkippable(fmt.Errorf("x: %w", ErrResourceUnavailable)))
}

func TestErrorMessagesNameOffendingValue(t *testing.T) {
	assert.Contains(t, (&UnrecognizedInstrumentError{Raw: "Mystery bonds"}).Error(), "Mystery bonds")
	assert.Contains(t, (&UnrecognizedMaturityBucketError{Years: 7}).Error(), "7")
	assert.Contains(t, (&UnrecognizedTableShapeError{Columns: 12}).Error(), "12")
}
