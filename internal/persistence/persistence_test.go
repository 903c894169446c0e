package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/aristath/bojops/internal/config"
	"github.com/aristath/bojops/internal/domain"
	"github.com/aristath/bojops/internal/modules/classifier"
)

func sampleOps(t *testing.T) []*domain.Operation {
	t.Helper()

	d1 := domain.NewOperationDraft(civil.Date{Year: 2024, Month: 3, Day: 1})
	td, err := d1.AddTransaction("JGBs: 5-10y")
	require.NoError(t, err)
	td.SetCompetitiveBids(domain.Int64(1500)).
		SetSuccessfulBids(domain.Int64(4250)).
		SetAverageSpread(domain.Float64(-0.002))
	td, err = d1.AddTransaction("JGBs: FR 5-10y")
	require.NoError(t, err)
	td.SetSuccessfulBids(domain.Int64(300)).SetRate(domain.Float64(0.25))

	d2 := domain.NewOperationDraft(civil.Date{Year: 2024, Month: 2, Day: 28})
	td, err = d2.AddTransaction("USD: PC")
	require.NoError(t, err)
	td.SetSuccessfulBids(domain.Int64(100))

	return []*domain.Operation{d1.Finalize(), d2.Finalize()}
}

func openStores(t *testing.T) map[string]Store {
	t.Helper()

	dir := t.TempDir()
	stores := make(map[string]Store)
	for format, file := range map[string]string{
		config.StoreFormatJSON:    "ops.json",
		config.StoreFormatMsgpack: "ops.msgpack",
		config.StoreFormatSQLite:  "ops.db",
	} {
		store, closer, err := Open(format, filepath.Join(dir, file))
		require.NoError(t, err)
		t.Cleanup(func() { _ = closer.Close() })
		stores[format] = store
	}
	return stores
}

func assertSameOps(t require.TestingT, want, got []*domain.Operation) {
	require.Len(t, got, len(want))
	for i := range want {
		require.True(t, want[i].Equal(got[i]), "operation %s differs", want[i].Date())
	}
}

func TestStoresRoundTrip(t *testing.T) {
	ops := sampleOps(t)
	// Stores return operations in date order
	want := []*domain.Operation{ops[1], ops[0]}

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, ops))

			got, err := store.Load(ctx)
			require.NoError(t, err)
			assertSameOps(t, want, got)

			tx, ok := got[1].Transaction("JGBs: FR 5-10y")
			require.True(t, ok)
			_, hasCompetitive := tx.CompetitiveBids()
			assert.False(t, hasCompetitive)
		})
	}
}

func TestStoresSaveReplaces(t *testing.T) {
	ops := sampleOps(t)

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, ops))
			require.NoError(t, store.Save(ctx, ops[:1]))

			got, err := store.Load(ctx)
			require.NoError(t, err)
			assertSameOps(t, ops[:1], got)
		})
	}
}

func TestStoresEmpty(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := store.Load(context.Background())
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestJSONStoreFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "BOJ_Ops.json")
	store := NewJSONStore(path)
	require.NoError(t, store.Save(context.Background(), sampleOps(t)[1:]))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"2024-02-28": {
			"Transactions": [{
				"Instrument": "USD: PC",
				"CompetitiveBids": null,
				"SuccessfulBids": 100,
				"Rate": null,
				"Currency": "USD",
				"Units": 1
			}]
		}
	}`, string(data))
	assert.Contains(t, string(data), "\n    \"2024-02-28\"")
}

func TestJSONStoreReadsLegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "BOJ_Ops.json")
	legacy := `{
    "2021-04-01": {
        "Transactions": [
            {
                "Instrument": "JGBs: 1-3y",
                "CompetitiveBids": 12345,
                "SuccessfulBids": 4000,
                "Rate": 0.0,
                "Currency": "JPY",
                "Units": 100
            }
        ]
    }
}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	got, err := NewJSONStore(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)

	tx, ok := got[0].Transaction("JGBs: 1-3y")
	require.True(t, ok)
	assert.Equal(t, 400.0, tx.Value())
	rate, ok := tx.Rate()
	assert.True(t, ok)
	assert.Equal(t, 0.0, rate)
	_, ok = tx.AverageSpread()
	assert.False(t, ok)
}

func TestFileStoresRejectCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "bad.json")
	packPath := filepath.Join(dir, "bad.msgpack")
	require.NoError(t, os.WriteFile(jsonPath, []byte("{not json"), 0644))
	require.NoError(t, os.WriteFile(packPath, []byte{0xc1}, 0644))

	_, err := NewJSONStore(jsonPath).Load(context.Background())
	assert.Error(t, err)
	_, err = NewMsgpackStore(packPath).Load(context.Background())
	assert.Error(t, err)
}

func TestOpenUnknownFormat(t *testing.T) {
	_, _, err := Open("yaml", "ops.yaml")
	assert.Error(t, err)
}

func TestBridge(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	ctx := context.Background()

	t.Run("save and load", func(t *testing.T) {
		bridge := NewBridge(NewJSONStore(filepath.Join(t.TempDir(), "ops.json")), log)
		assert.True(t, bridge.Save(ctx, sampleOps(t)))
		assert.Len(t, bridge.Load(ctx), 2)
	})

	t.Run("missing file loads empty", func(t *testing.T) {
		bridge := NewBridge(NewJSONStore(filepath.Join(t.TempDir(), "none.json")), log)
		assert.Empty(t, bridge.Load(ctx))
	})

	t.Run("write failure reports false", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, nil, 0644))
		bridge := NewBridge(NewJSONStore(filepath.Join(blocker, "ops.json")), log)
		assert.False(t, bridge.Save(ctx, sampleOps(t)))
	})

	t.Run("corrupt file loads empty", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ops.json")
		require.NoError(t, os.WriteFile(path, []byte("[]"), 0644))
		assert.Empty(t, NewBridge(NewJSONStore(path), log).Load(ctx))
	})
}

func genOperations(t *rapid.T) []*domain.Operation {
	names := classifier.Canonical()
	days := rapid.SliceOfNDistinct(rapid.IntRange(0, 3000), 1, 6, rapid.ID[int]).Draw(t, "days")
	base := civil.Date{Year: 2015, Month: 1, Day: 1}

	ops := make([]*domain.Operation, 0, len(days))
	for _, offset := range days {
		draft := domain.NewOperationDraft(base.AddDays(offset))
		instruments := rapid.SliceOfNDistinct(rapid.SampledFrom(names), 1, 5, rapid.ID[string]).Draw(t, "instruments")
		for _, name := range instruments {
			td, err := draft.AddTransaction(name)
			if err != nil {
				t.Fatalf("add %s: %v", name, err)
			}
			if rapid.Bool().Draw(t, "hasCompetitive") {
				td.SetCompetitiveBids(domain.Int64(rapid.Int64Range(0, 1_000_000).Draw(t, "competitive")))
			}
			if rapid.Bool().Draw(t, "hasSuccessful") {
				td.SetSuccessfulBids(domain.Int64(rapid.Int64Range(0, 1_000_000).Draw(t, "successful")))
			}
			if rapid.Bool().Draw(t, "hasRate") {
				td.SetRate(domain.Float64(rapid.Float64Range(-1, 5).Draw(t, "rate")))
			}
			if rapid.Bool().Draw(t, "hasSpread") {
				td.SetAverageSpread(domain.Float64(rapid.Float64Range(-1, 1).Draw(t, "spread")))
			}
		}
		ops = append(ops, draft.Finalize())
	}
	return ops
}

func TestStoresRoundTripProperty(t *testing.T) {
	stores := openStores(t)

	rapid.Check(t, func(rt *rapid.T) {
		ops := genOperations(rt)
		want := domain.NewCollection(ops...).All()

		for name, store := range stores {
			ctx := context.Background()
			if err := store.Save(ctx, ops); err != nil {
				rt.Fatalf("%s save: %v", name, err)
			}
			got, err := store.Load(ctx)
			if err != nil {
				rt.Fatalf("%s load: %v", name, err)
			}
			assertSameOps(rt, want, got)
		}
	})
}
