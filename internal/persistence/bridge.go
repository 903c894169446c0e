package persistence

import (
	"context"
	"fmt"
	"io"

	"github.com/aristath/bojops/internal/config"
	"github.com/aristath/bojops/internal/database"
	"github.com/aristath/bojops/internal/domain"
	"github.com/rs/zerolog"
)

// Bridge is the workflow's view of a Store. Failures are logged and reported
// as a boolean or an empty result so a run can still render from fresh data.
type Bridge struct {
	store Store
	log   zerolog.Logger
}

// NewBridge wraps store.
func NewBridge(store Store, log zerolog.Logger) *Bridge {
	return &Bridge{
		store: store,
		log:   log.With().Str("component", "persistence").Logger(),
	}
}

// Save stores ops and reports whether it succeeded.
func (b *Bridge) Save(ctx context.Context, ops []*domain.Operation) bool {
	if err := b.store.Save(ctx, ops); err != nil {
		b.log.Error().Err(err).Int("operations", len(ops)).Msg("Failed to save operations")
		return false
	}
	b.log.Info().Int("operations", len(ops)).Msg("Saved operations")
	return true
}

// Load returns the stored operations, or none when the store cannot be read.
func (b *Bridge) Load(ctx context.Context) []*domain.Operation {
	ops, err := b.store.Load(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("Failed to load operations, starting empty")
		return nil
	}
	b.log.Debug().Int("operations", len(ops)).Msg("Loaded operations")
	return ops
}

// Open builds the store selected by format at path. The returned closer
// releases any database handle and is never nil.
func Open(format, path string) (Store, io.Closer, error) {
	switch format {
	case config.StoreFormatJSON:
		return NewJSONStore(path), nopCloser{}, nil
	case config.StoreFormatMsgpack:
		return NewMsgpackStore(path), nopCloser{}, nil
	case config.StoreFormatSQLite:
		db, err := database.New(database.Config{
			Path:    path,
			Profile: database.ProfileDurable,
			Name:    "operations",
		})
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return NewSQLiteStore(db.Conn()), db, nil
	}
	return nil, nil, fmt.Errorf("unknown store format %q", format)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
