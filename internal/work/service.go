package work

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"cloud.google.com/go/civil"
	"github.com/aristath/bojops/internal/domain"
	"github.com/aristath/bojops/internal/events"
	"github.com/aristath/bojops/internal/modules/charts"
	"github.com/rs/zerolog"
)

// ErrRefreshInProgress is returned when a refresh is requested while one is running.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// ErrNoOperations is returned when a report is requested for an empty collection.
var ErrNoOperations = errors.New("no operations stored")

// Store is the persistence view the service needs.
type Store interface {
	Save(ctx context.Context, ops []*domain.Operation) bool
	Load(ctx context.Context) []*domain.Operation
}

// Renderer writes report pages to a file.
type Renderer interface {
	RenderFile(pages []charts.Page, path string) error
}

// Publisher uploads a finished report. It may be nil.
type Publisher interface {
	PublishFile(ctx context.Context, key, path, contentType string) (string, error)
}

// ServiceConfig holds the service's collaborators and settings.
type ServiceConfig struct {
	Runner       *Runner
	Store        Store
	Renderer     Renderer
	Publisher    Publisher
	Emitter      EventEmitter
	LookbackDays int
	ReportPath   string
}

// RefreshResult summarizes a refresh.
type RefreshResult struct {
	RunID      string        `json:"run_id"`
	Fetched    int           `json:"fetched"`
	Replaced   int           `json:"replaced"`
	Operations int           `json:"operations"`
	Skipped    int           `json:"skipped"`
	Saved      bool          `json:"saved"`
	Report     *ReportResult `json:"report,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// ReportResult describes a rendered report.
type ReportResult struct {
	Path      string     `json:"path"`
	Pages     int        `json:"pages"`
	Start     civil.Date `json:"start"`
	End       civil.Date `json:"end"`
	Published string     `json:"published,omitempty"`
}

// Service owns the operation collection and coordinates refreshes.
type Service struct {
	collection *domain.Collection
	charts     *charts.Service
	runner     *Runner
	store      Store
	renderer   Renderer
	publisher  Publisher
	emitter    EventEmitter

	lookbackDays int
	reportPath   string
	today        func() civil.Date

	running atomic.Bool
	log     zerolog.Logger
}

// NewService creates a service with an empty collection. Call LoadStored
// to seed it from the store.
func NewService(cfg ServiceConfig, log zerolog.Logger) *Service {
	collection := domain.NewCollection()
	return &Service{
		collection:   collection,
		charts:       charts.NewService(collection, cfg.LookbackDays, log),
		runner:       cfg.Runner,
		store:        cfg.Store,
		renderer:     cfg.Renderer,
		publisher:    cfg.Publisher,
		emitter:      cfg.Emitter,
		lookbackDays: cfg.LookbackDays,
		reportPath:   cfg.ReportPath,
		today:        func() civil.Date { return domain.Today(time.Local) },
		log:          log.With().Str("service", "work").Logger(),
	}
}

// Collection returns the live collection.
func (s *Service) Collection() *domain.Collection {
	return s.collection
}

// Charts returns the chart service over the live collection.
func (s *Service) Charts() *charts.Service {
	return s.charts
}

// ReportPath returns where reports are rendered.
func (s *Service) ReportPath() string {
	return s.reportPath
}

// Running reports whether a refresh is in progress.
func (s *Service) Running() bool {
	return s.running.Load()
}

// LoadStored merges the stored operations into the collection and returns
// how many were loaded.
func (s *Service) LoadStored(ctx context.Context) int {
	ops := s.store.Load(ctx)
	s.collection.Merge(domain.NewCollection(ops...))
	s.log.Info().Int("operations", len(ops)).Msg("Loaded stored operations")
	return len(ops)
}

// Refresh fetches the lookback window, merges it into the collection
// (fetched dates replace stored ones), saves the collection and renders the
// report. A failed save is reported in the result, not as an error.
func (s *Service) Refresh(ctx context.Context, trigger string) (*RefreshResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRefreshInProgress
	}
	defer s.running.Store(false)

	plan := NewPlan(s.today(), s.lookbackDays)
	run, err := s.runner.Run(ctx, plan, trigger)
	if err != nil {
		return nil, err
	}

	replaced := s.collection.Merge(run.Collection)
	saved := s.store.Save(ctx, s.collection.All())

	result := &RefreshResult{
		RunID:      run.RunID,
		Fetched:    run.Collection.Len(),
		Replaced:   replaced,
		Operations: s.collection.Len(),
		Skipped:    run.Skipped,
		Saved:      saved,
		Duration:   run.Duration,
	}

	if s.emitter != nil {
		s.emitter.EmitTyped(eventModule, &events.RunCompletedData{
			RunID:      run.RunID,
			Operations: result.Operations,
			Replaced:   replaced,
			Skipped:    run.Skipped,
			Saved:      saved,
			Duration:   run.Duration.Seconds(),
		})
	}

	report, err := s.Report(ctx)
	if err != nil && !errors.Is(err, ErrNoOperations) {
		return result, fmt.Errorf("refresh %s stored but report failed: %w", run.RunID, err)
	}
	result.Report = report
	return result, nil
}

// Report renders the report for the default window to the configured path
// and publishes it when a publisher is set.
func (s *Service) Report(ctx context.Context) (*ReportResult, error) {
	start, end, ok := s.charts.Window(s.today())
	if !ok {
		return nil, ErrNoOperations
	}
	pages := charts.BuildReport(s.collection.Range(start, end), start, end)

	if err := s.renderer.RenderFile(pages, s.reportPath); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	report := &ReportResult{Path: s.reportPath, Pages: len(pages), Start: start, End: end}

	if s.publisher != nil {
		location, err := s.publisher.PublishFile(ctx, filepath.Base(s.reportPath), s.reportPath, "application/pdf")
		if err != nil {
			// The local report is still usable
			s.log.Error().Err(err).Msg("Failed to publish report")
		} else {
			report.Published = location
		}
	}

	s.log.Info().
		Str("path", report.Path).
		Int("pages", report.Pages).
		Str("start", start.String()).
		Str("end", end.String()).
		Msg("Report rendered")
	if s.emitter != nil {
		s.emitter.EmitTyped(eventModule, &events.ReportRenderedData{
			Path:      report.Path,
			Pages:     report.Pages,
			Start:     start.String(),
			End:       end.String(),
			Published: report.Published,
		})
	}
	return report, nil
}
