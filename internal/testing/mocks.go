package testing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/aristath/bojops/internal/domain"
	"github.com/aristath/bojops/internal/events"
	"github.com/aristath/bojops/internal/modules/charts"
	"github.com/aristath/bojops/internal/modules/normalize"
)

// MockFetcher serves fixed tables. Errors are keyed by "release 2022-06",
// "results 2022-06-02" or "offer 2022-06-02".
type MockFetcher struct {
	mu sync.Mutex

	Release normalize.Table
	Results normalize.Table
	Offer   normalize.Table
	Errors  map[string]error
	// Empty lists daily dates whose results page has no rows.
	Empty map[civil.Date]bool

	calls []string
}

// NewMockFetcher returns a fetcher serving the package fixtures.
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		Release: ReleaseTable(),
		Results: ResultsTable(),
		Offer:   OfferTable(),
		Errors:  make(map[string]error),
		Empty:   make(map[civil.Date]bool),
	}
}

// SetError makes the call identified by key fail with err.
func (m *MockFetcher) SetError(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[key] = err
}

// Calls returns the keys of every call made so far.
func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockFetcher) record(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, key)
	return m.Errors[key]
}

func (m *MockFetcher) FetchRelease(ctx context.Context, month civil.Date) (normalize.Table, error) {
	if err := ctx.Err(); err != nil {
		return normalize.Table{}, err
	}
	if err := m.record(fmt.Sprintf("release %04d-%02d", month.Year, int(month.Month))); err != nil {
		return normalize.Table{}, err
	}
	return m.Release, nil
}

func (m *MockFetcher) FetchResults(ctx context.Context, date civil.Date) (normalize.Table, error) {
	if err := ctx.Err(); err != nil {
		return normalize.Table{}, err
	}
	if err := m.record("results " + date.String()); err != nil {
		return normalize.Table{}, err
	}
	m.mu.Lock()
	empty := m.Empty[date]
	m.mu.Unlock()
	if empty {
		return normalize.NewTable([][]string{{"", "", "", "", "", ""}}), nil
	}
	return m.Results, nil
}

func (m *MockFetcher) FetchOffer(ctx context.Context, date civil.Date) (normalize.Table, error) {
	if err := ctx.Err(); err != nil {
		return normalize.Table{}, err
	}
	if err := m.record("offer " + date.String()); err != nil {
		return normalize.Table{}, err
	}
	return m.Offer, nil
}

// MockStore keeps operations in memory.
type MockStore struct {
	mu    sync.Mutex
	ops   []*domain.Operation
	saves int
	// Fail makes Save report failure.
	Fail bool
}

// NewMockStore returns a store preloaded with ops.
func NewMockStore(ops ...*domain.Operation) *MockStore {
	return &MockStore{ops: ops}
}

func (s *MockStore) Save(_ context.Context, ops []*domain.Operation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.Fail {
		return false
	}
	s.ops = append([]*domain.Operation(nil), ops...)
	return true
}

func (s *MockStore) Load(_ context.Context) []*domain.Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Operation(nil), s.ops...)
}

// Saves returns the number of Save calls.
func (s *MockStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// MockRenderer records rendered page counts and writes a placeholder file.
type MockRenderer struct {
	mu    sync.Mutex
	Pages []int
	Paths []string
	Err   error
}

func (r *MockRenderer) RenderFile(pages []charts.Page, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Pages = append(r.Pages, len(pages))
	r.Paths = append(r.Paths, path)
	return os.WriteFile(path, []byte("%PDF-1.4\n"), 0o644)
}

// MockPublisher records published keys.
type MockPublisher struct {
	mu   sync.Mutex
	Keys []string
	Err  error
}

func (p *MockPublisher) PublishFile(_ context.Context, key, path, contentType string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return "", p.Err
	}
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	if contentType == "" {
		return "", errors.New("missing content type")
	}
	p.Keys = append(p.Keys, key)
	return "https://reports.example.com/" + key, nil
}

// MockEmitter records emitted events.
type MockEmitter struct {
	mu     sync.Mutex
	events []events.EventData
}

func (e *MockEmitter) EmitTyped(_ string, data events.EventData) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, data)
}

// Events returns every event emitted so far.
func (e *MockEmitter) Events() []events.EventData {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]events.EventData(nil), e.events...)
}

// Count returns how many emitted events have type typ.
func (e *MockEmitter) Count(typ events.EventType) int {
	n := 0
	for _, ev := range e.Events() {
		if ev.EventType() == typ {
			n++
		}
	}
	return n
}
