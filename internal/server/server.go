// Package server provides the HTTP API over the operation store.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/bojops/internal/database"
	"github.com/aristath/bojops/internal/events"
	"github.com/aristath/bojops/internal/scheduler"
	"github.com/aristath/bojops/internal/work"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Port      int
	DevMode   bool
	DataDir   string
	Service   *work.Service
	Bus       *events.Bus
	Emitter   work.EventEmitter
	Scheduler *scheduler.Scheduler
	Databases []*database.DB
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	port   int

	service       *work.Service
	bus           *events.Bus
	operations    *OperationHandlers
	system        *SystemHandlers
	stream        *EventsStreamHandler
	statusMonitor *StatusMonitor

	// baseCtx outlives requests; refreshes started over HTTP use it
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	log := cfg.Log.With().Str("component", "server").Logger()
	baseCtx, cancel := context.WithCancel(context.Background())

	s := &Server{
		router:     chi.NewRouter(),
		log:        log,
		port:       cfg.Port,
		service:    cfg.Service,
		bus:        cfg.Bus,
		operations: NewOperationHandlers(cfg.Service, cfg.Log),
		system:     NewSystemHandlers(cfg.Service, cfg.Scheduler, cfg.Databases, cfg.DataDir, cfg.Log),
		stream:     NewEventsStreamHandler(cfg.Bus, cfg.Log),
		baseCtx:    baseCtx,
		cancel:     cancel,
	}
	if cfg.Emitter != nil {
		s.statusMonitor = NewStatusMonitor(cfg.Emitter, s.system, cfg.Log)
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // event streams stay open
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Event streams are long-lived; keep them out of the timeout and compression groups
		r.Get("/events/stream", s.stream.ServeSSE)
		r.Get("/events/ws", s.stream.ServeWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Use(middleware.Compress(5))

			r.Get("/system/status", s.system.HandleSystemStatus)
			r.Get("/system/jobs", s.system.HandleJobs)

			r.Get("/instruments", s.operations.HandleInstruments)
			r.Get("/operations", s.operations.HandleOperations)
			r.Get("/operations/{date}", s.operations.HandleOperation)
			r.Get("/series", s.operations.HandleSeries)
			r.Get("/report", s.handleReport)
		})

		r.Post("/refresh", s.handleRefresh)
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the background loops and serves until Shutdown.
func (s *Server) Start() error {
	s.watchEvents()
	if s.statusMonitor != nil {
		s.statusMonitor.Start(s.baseCtx, 60*time.Second)
		s.log.Info().Msg("Status monitor started")
	}

	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server and waits for HTTP-started
// refreshes to observe cancellation.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	s.cancel()
	err := s.server.Shutdown(ctx)
	s.wg.Wait()
	return err
}

// watchEvents drops cached series whenever a refresh completes, whatever
// started it.
func (s *Server) watchEvents() {
	if s.bus == nil {
		return
	}
	ch, unsubscribe := s.bus.Subscribe(16)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer unsubscribe()
		for {
			select {
			case <-s.baseCtx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if ev.Type == events.RunCompleted {
					s.operations.Invalidate()
				}
			}
		}
	}()
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
