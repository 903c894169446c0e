package charts

import (
	"testing"

	"github.com/aristath/bojops/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogue(t *testing.T) {
	pages := Catalogue()
	require.Len(t, pages, 2)

	for i, p := range pages {
		assert.Equal(t, i+1, p.Number)
		require.Len(t, p.Charts, 3)
		for _, c := range p.Charts {
			assert.LessOrEqual(t, len(c.Instruments), len(Palette), c.Title)
		}
	}

	assert.Equal(t, KindBar, pages[0].Charts[0].Kind)
	assert.Equal(t, KindLine, pages[0].Charts[2].Kind)
	assert.Equal(t, []string{"All"}, pages[0].Charts[2].Instruments)
	assert.True(t, pages[1].Charts[2].ByRate)
	assert.Equal(t, "Rate for fixed-rate operations, daily %", pages[1].Charts[2].Title)
	for _, c := range pages[1].Charts {
		assert.False(t, c.Monthly)
		assert.Equal(t, KindScatter, c.Kind)
	}
}

func TestBuildReport(t *testing.T) {
	pages := BuildReport(fixture(t), d(2022, 5, 1), d(2022, 7, 31))
	require.Len(t, pages, 2)

	monthlyAuction := pages[0].Charts[0].Series
	assert.Len(t, monthlyAuction.Points, 3)
	assert.Equal(t, []float64{10, 20, 1}, monthlyAuction.Column("JGBs: 5-10y"))

	dailyRates := pages[1].Charts[2].Series
	assert.Equal(t, []float64{0.25, 0.27}, dailyRates.Column("JGBs: FR 5-10y"))
}

func TestService_SeriesAndReport(t *testing.T) {
	coll := domain.NewCollection(fixture(t)...)
	svc := NewService(coll, 30, zerolog.New(nil).Level(zerolog.Disabled))

	s, err := svc.Series(QueryOptions{Instruments: []string{"CP"}, Start: d(2022, 1, 1), End: d(2022, 12, 31)})
	require.NoError(t, err)
	assert.Len(t, s.Points, 1)

	_, err = svc.Series(QueryOptions{Start: d(2022, 1, 1), End: d(2022, 12, 31)})
	assert.Error(t, err)
	_, err = svc.Series(QueryOptions{Instruments: []string{"CP"}, Start: d(2022, 12, 31), End: d(2022, 1, 1)})
	assert.Error(t, err)

	start, end, ok := svc.Window(d(2022, 7, 15))
	require.True(t, ok)
	assert.Equal(t, d(2022, 6, 15), start, "clipped to lookback")
	assert.Equal(t, d(2022, 7, 1), end)

	pages, err := svc.Report(d(2022, 7, 15))
	require.NoError(t, err)
	assert.Len(t, pages, 2)
}

func TestService_ReportWithoutData(t *testing.T) {
	svc := NewService(domain.NewCollection(), 30, zerolog.New(nil).Level(zerolog.Disabled))
	_, err := svc.Report(d(2022, 7, 15))
	assert.Error(t, err)
}

func TestParseRange(t *testing.T) {
	got, ok := ParseRange("3M", d(2022, 6, 15))
	require.True(t, ok)
	assert.Equal(t, d(2022, 3, 15), got)

	_, ok = ParseRange("all", d(2022, 6, 15))
	assert.False(t, ok)
}
