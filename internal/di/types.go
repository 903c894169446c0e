/**
 * Package di provides dependency injection type definitions.
 *
 * The Container holds every long-lived instance of the application. It is
 * built by Wire() and handed to the CLI commands and the HTTP server.
 */
package di

import (
	"io"

	"github.com/aristath/bojops/internal/clientdata"
	"github.com/aristath/bojops/internal/clients/boj"
	"github.com/aristath/bojops/internal/database"
	"github.com/aristath/bojops/internal/events"
	"github.com/aristath/bojops/internal/modules/render"
	"github.com/aristath/bojops/internal/persistence"
	"github.com/aristath/bojops/internal/reliability"
	"github.com/aristath/bojops/internal/scheduler"
	"github.com/aristath/bojops/internal/work"
)

// Container holds all dependencies for the application.
type Container struct {
	// Databases
	CacheDB      *database.DB // Raw downloaded releases and pages
	OperationsDB *database.DB // Only set when STORE_FORMAT=sqlite

	// Clients
	ClientDataRepo *clientdata.Repository
	BOJClient      *boj.Client
	S3Client       *reliability.S3Client // nil when publishing is disabled

	// Store
	Store       *persistence.Bridge
	storeCloser io.Closer

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Services
	Runner    *work.Runner
	Renderer  *render.Renderer
	Publisher *reliability.Publisher // nil when publishing is disabled
	Service   *work.Service

	Scheduler *scheduler.Scheduler
}

// Databases returns every open database, for maintenance and status.
func (c *Container) Databases() []*database.DB {
	dbs := []*database.DB{c.CacheDB}
	if c.OperationsDB != nil {
		dbs = append(dbs, c.OperationsDB)
	}
	return dbs
}

// Close releases the store and the cache database.
func (c *Container) Close() error {
	var firstErr error
	if c.storeCloser != nil {
		if err := c.storeCloser.Close(); err != nil {
			firstErr = err
		}
	}
	if c.CacheDB != nil {
		if err := c.CacheDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
