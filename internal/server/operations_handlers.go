package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/aristath/bojops/internal/domain"
	"github.com/aristath/bojops/internal/modules/charts"
	"github.com/aristath/bojops/internal/modules/classifier"
	"github.com/aristath/bojops/internal/work"
)

const (
	seriesCacheTTL     = 10 * time.Minute
	seriesCacheCleanup = 30 * time.Minute
)

// OperationHandlers serves the stored operations and series queries.
type OperationHandlers struct {
	service *work.Service
	series  *cache.Cache
	today   func() civil.Date
	log     zerolog.Logger
}

// NewOperationHandlers creates handlers over service's collection.
func NewOperationHandlers(service *work.Service, log zerolog.Logger) *OperationHandlers {
	return &OperationHandlers{
		service: service,
		series:  cache.New(seriesCacheTTL, seriesCacheCleanup),
		today:   func() civil.Date { return domain.Today(time.Local) },
		log:     log.With().Str("component", "operation_handlers").Logger(),
	}
}

// Invalidate drops every cached series.
func (h *OperationHandlers) Invalidate() {
	h.series.Flush()
}

// InstrumentInfo describes one canonical instrument.
type InstrumentInfo struct {
	Name     string          `json:"name"`
	Currency domain.Currency `json:"currency"`
	Units    int             `json:"units"`
	JGB      bool            `json:"jgb"`
}

// InstrumentsResponse lists the canonical instruments and the chart groups.
type InstrumentsResponse struct {
	Instruments []InstrumentInfo    `json:"instruments"`
	Groups      map[string][]string `json:"groups"`
}

// TransactionView is the API form of a transaction. Absent values are null.
type TransactionView struct {
	Instrument      string          `json:"instrument"`
	Currency        domain.Currency `json:"currency"`
	Units           int             `json:"units"`
	CompetitiveBids *int64          `json:"competitive_bids"`
	SuccessfulBids  *int64          `json:"successful_bids"`
	Rate            *float64        `json:"rate"`
	AverageSpread   *float64        `json:"average_spread,omitempty"`
	Value           float64         `json:"value"`
}

// OperationView is the API form of an operation.
type OperationView struct {
	Date         civil.Date        `json:"date"`
	Transactions []TransactionView `json:"transactions"`
}

// OperationsResponse is returned by GET /api/operations.
type OperationsResponse struct {
	Start      *civil.Date     `json:"start,omitempty"`
	End        *civil.Date     `json:"end,omitempty"`
	Count      int             `json:"count"`
	Operations []OperationView `json:"operations"`
}

func viewOf(op *domain.Operation) OperationView {
	txs := op.Transactions()
	view := OperationView{Date: op.Date(), Transactions: make([]TransactionView, 0, len(txs))}
	for i := range txs {
		t := &txs[i]
		f := t.Fields()
		view.Transactions = append(view.Transactions, TransactionView{
			Instrument:      f.Instrument,
			Currency:        f.Currency,
			Units:           f.Units,
			CompetitiveBids: f.CompetitiveBids,
			SuccessfulBids:  f.SuccessfulBids,
			Rate:            f.Rate,
			AverageSpread:   f.AverageSpread,
			Value:           t.Value(),
		})
	}
	return view
}

// HandleInstruments lists canonical instruments
// GET /api/instruments
func (h *OperationHandlers) HandleInstruments(w http.ResponseWriter, r *http.Request) {
	names := classifier.Canonical()
	resp := InstrumentsResponse{
		Instruments: make([]InstrumentInfo, 0, len(names)),
		Groups: map[string][]string{
			"auction":    classifier.AuctionBands(),
			"fixed_rate": classifier.FixedRateBands(),
			"jgb_family": classifier.JGBFamily(),
		},
	}
	for _, name := range names {
		currency, units := domain.CurrencyFor(name)
		resp.Instruments = append(resp.Instruments, InstrumentInfo{
			Name:     name,
			Currency: currency,
			Units:    units,
			JGB:      domain.IsJGB(name),
		})
	}
	writeJSON(w, h.log, http.StatusOK, resp)
}

// HandleOperations lists operations in a window
// GET /api/operations?start=YYYY-MM-DD&end=YYYY-MM-DD or ?range=1Y
func (h *OperationHandlers) HandleOperations(w http.ResponseWriter, r *http.Request) {
	collection := h.service.Collection()
	first, ok := collection.First()
	if !ok {
		writeJSON(w, h.log, http.StatusOK, OperationsResponse{Operations: []OperationView{}})
		return
	}
	last, _ := collection.Last()

	start, end, err := h.window(r, first.Date(), last.Date())
	if err != nil {
		writeError(w, h.log, http.StatusBadRequest, err)
		return
	}

	ops := collection.Range(start, end)
	resp := OperationsResponse{
		Start:      &start,
		End:        &end,
		Count:      len(ops),
		Operations: make([]OperationView, 0, len(ops)),
	}
	for _, op := range ops {
		resp.Operations = append(resp.Operations, viewOf(op))
	}
	writeJSON(w, h.log, http.StatusOK, resp)
}

// HandleOperation returns the operation of one date
// GET /api/operations/{date}
func (h *OperationHandlers) HandleOperation(w http.ResponseWriter, r *http.Request) {
	date, err := domain.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, h.log, http.StatusBadRequest, err)
		return
	}
	op, ok := h.service.Collection().Get(date)
	if !ok {
		writeError(w, h.log, http.StatusNotFound, fmt.Errorf("no operation on %s", date))
		return
	}
	writeJSON(w, h.log, http.StatusOK, viewOf(op))
}

// HandleSeries evaluates a series query. Results are cached until the next
// completed refresh.
// GET /api/series?instrument=CP&instrument=All&start=...&end=...&rate=true&monthly=true
func (h *OperationHandlers) HandleSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var instruments []string
	for _, v := range q["instrument"] {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				instruments = append(instruments, name)
			}
		}
	}
	for _, name := range instruments {
		if name != classifier.All && !classifier.IsCanonical(name) {
			writeError(w, h.log, http.StatusBadRequest, fmt.Errorf("unknown instrument %q", name))
			return
		}
	}

	collection := h.service.Collection()
	first, ok := collection.First()
	if !ok {
		writeError(w, h.log, http.StatusNotFound, work.ErrNoOperations)
		return
	}
	last, _ := collection.Last()

	start, end, err := h.window(r, first.Date(), last.Date())
	if err != nil {
		writeError(w, h.log, http.StatusBadRequest, err)
		return
	}
	byRate, _ := strconv.ParseBool(q.Get("rate"))
	monthly, _ := strconv.ParseBool(q.Get("monthly"))

	opts := charts.QueryOptions{
		Instruments: instruments,
		Start:       start,
		End:         end,
		ByRate:      byRate,
		Monthly:     monthly,
	}
	key := fmt.Sprintf("%s|%s|%s|%t|%t", strings.Join(instruments, ","), start, end, byRate, monthly)
	if cached, found := h.series.Get(key); found {
		w.Header().Set("X-Cache", "HIT")
		writeJSON(w, h.log, http.StatusOK, cached)
		return
	}

	series, err := h.service.Charts().Series(opts)
	if err != nil {
		writeError(w, h.log, http.StatusBadRequest, err)
		return
	}
	h.series.Set(key, series, cache.DefaultExpiration)
	w.Header().Set("X-Cache", "MISS")
	writeJSON(w, h.log, http.StatusOK, series)
}

// window reads start/end or a range token, defaulting to [first, last].
func (h *OperationHandlers) window(r *http.Request, first, last civil.Date) (civil.Date, civil.Date, error) {
	q := r.URL.Query()
	start, end := first, last

	if token := q.Get("range"); token != "" && token != "all" {
		from, ok := charts.ParseRange(token, h.today())
		if !ok {
			return civil.Date{}, civil.Date{}, fmt.Errorf("unknown range %q", token)
		}
		start = from
	}
	if v := q.Get("start"); v != "" {
		d, err := domain.ParseDate(v)
		if err != nil {
			return civil.Date{}, civil.Date{}, fmt.Errorf("invalid start: %w", err)
		}
		start = d
	}
	if v := q.Get("end"); v != "" {
		d, err := domain.ParseDate(v)
		if err != nil {
			return civil.Date{}, civil.Date{}, fmt.Errorf("invalid end: %w", err)
		}
		end = d
	}
	if end.Before(start) {
		return civil.Date{}, civil.Date{}, errors.New("end is before start")
	}
	return start, end, nil
}
