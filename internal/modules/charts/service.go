package charts

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/aristath/bojops/internal/domain"
	"github.com/rs/zerolog"
)

// OperationSource provides read access to stored operations.
type OperationSource interface {
	Range(start, end civil.Date) []*domain.Operation
	First() (*domain.Operation, bool)
	Last() (*domain.Operation, bool)
}

// Service answers chart queries against an operation source.
type Service struct {
	source       OperationSource
	lookbackDays int
	log          zerolog.Logger
}

// NewService creates a new charts service
func NewService(source OperationSource, lookbackDays int, log zerolog.Logger) *Service {
	return &Service{
		source:       source,
		lookbackDays: lookbackDays,
		log:          log.With().Str("service", "charts").Logger(),
	}
}

// Series runs a query over the stored operations.
func (s *Service) Series(opts QueryOptions) (Series, error) {
	if len(opts.Instruments) == 0 {
		return Series{}, fmt.Errorf("at least one instrument is required")
	}
	if opts.End.Before(opts.Start) {
		return Series{}, fmt.Errorf("end %s is before start %s", opts.End, opts.Start)
	}
	series := Query(s.source.Range(opts.Start, opts.End), opts)
	s.log.Debug().
		Strs("instruments", opts.Instruments).
		Int("points", len(series.Points)).
		Msg("Series query")
	return series, nil
}

// Window returns the default report window: from the later of the first
// stored date and today minus the lookback, to the last stored date.
func (s *Service) Window(today civil.Date) (civil.Date, civil.Date, bool) {
	first, ok := s.source.First()
	if !ok {
		return civil.Date{}, civil.Date{}, false
	}
	last, _ := s.source.Last()

	start := first.Date()
	if floor := today.AddDays(-s.lookbackDays); start.Before(floor) {
		start = floor
	}
	return start, last.Date(), true
}

// Report evaluates the catalogue over the default window.
func (s *Service) Report(today civil.Date) ([]Page, error) {
	start, end, ok := s.Window(today)
	if !ok {
		return nil, fmt.Errorf("no operations stored")
	}
	s.log.Info().Str("start", start.String()).Str("end", end.String()).Msg("Building report")
	return BuildReport(s.source.Range(start, end), start, end), nil
}

// ParseRange converts a range token (1M, 3M, 6M, 1Y, 3Y, all) into a start
// date relative to today. It returns false for "all" and unknown tokens.
func ParseRange(token string, today civil.Date) (civil.Date, bool) {
	t := today.In(time.UTC)
	switch token {
	case "1M":
		t = t.AddDate(0, -1, 0)
	case "3M":
		t = t.AddDate(0, -3, 0)
	case "6M":
		t = t.AddDate(0, -6, 0)
	case "1Y":
		t = t.AddDate(-1, 0, 0)
	case "3Y":
		t = t.AddDate(-3, 0, 0)
	default:
		return civil.Date{}, false
	}
	return civil.DateOf(t), true
}
