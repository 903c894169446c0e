package main

import (
	"context"
	"flag"
	"sync"
	"time"

	"github.com/google/subcommands"

	"github.com/aristath/bojops/internal/server"
)

type serveCmd struct {
	refreshOnStart bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the HTTP API and the refresh scheduler" }
func (*serveCmd) Usage() string {
	return `bojops serve [-refresh]

  Serves the HTTP API on PORT and runs the scheduled jobs until SIGINT or
  SIGTERM.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.refreshOnStart, "refresh", false, "run a refresh right after startup")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	ctx, cancel := signalContext(ctx)
	defer cancel()

	cfg, container, log, err := bootstrap(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer container.Close()

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		DataDir:   cfg.DataDir,
		Service:   container.Service,
		Bus:       container.EventBus,
		Emitter:   container.EventManager,
		Scheduler: container.Scheduler,
		Databases: container.Databases(),
	})

	container.Scheduler.Start()
	log.Info().Int("jobs", len(container.Scheduler.Entries())).Msg("Background jobs registered")

	var startup sync.WaitGroup
	if c.refreshOnStart {
		startup.Add(1)
		go func() {
			defer startup.Done()
			log.Info().Msg("Running startup refresh")
			if _, err := container.Service.Refresh(ctx, "startup"); err != nil {
				log.Error().Err(err).Msg("Startup refresh failed")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	exit := subcommands.ExitSuccess
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
			exit = subcommands.ExitFailure
		}
	}

	container.Scheduler.Stop()
	startup.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		exit = subcommands.ExitFailure
	}

	log.Info().Msg("Server stopped")
	return exit
}
