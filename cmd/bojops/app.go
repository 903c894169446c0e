package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/aristath/bojops/internal/config"
	"github.com/aristath/bojops/internal/di"
	"github.com/aristath/bojops/pkg/logger"
)

// bootstrap loads the configuration, builds the logger and wires the
// container. The caller closes the container.
func bootstrap(ctx context.Context) (*config.Config, *di.Container, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, zerolog.Nop(), fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
		Output: os.Stderr,
	})
	logger.SetGlobalLogger(log)

	container, err := di.Wire(ctx, cfg, log)
	if err != nil {
		return nil, nil, log, err
	}
	return cfg, container, log, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
