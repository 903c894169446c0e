// Package di provides dependency injection for services.
package di

import (
	"context"
	"fmt"

	"github.com/aristath/bojops/internal/clientdata"
	"github.com/aristath/bojops/internal/clients/boj"
	"github.com/aristath/bojops/internal/config"
	"github.com/aristath/bojops/internal/events"
	"github.com/aristath/bojops/internal/modules/render"
	"github.com/aristath/bojops/internal/reliability"
	"github.com/aristath/bojops/internal/work"
	"github.com/rs/zerolog"
)

// InitializeServices creates clients and services on top of the databases.
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.EventBus = events.NewBus()
	container.EventManager = events.NewManager(container.EventBus, log)

	container.ClientDataRepo = clientdata.NewRepository(container.CacheDB.Conn())
	container.BOJClient = boj.NewClient(boj.Config{
		ReleaseBaseURL: cfg.ReleaseBaseURL,
		DailyBaseURL:   cfg.DailyBaseURL,
		Timeout:        cfg.HTTPTimeout,
		RatePerSecond:  cfg.FetchRate,
	}, container.ClientDataRepo, log)

	container.Runner = work.NewRunner(container.BOJClient, cfg.FetchWorkers, container.EventManager, log)
	container.Renderer = render.NewRenderer(log)

	serviceCfg := work.ServiceConfig{
		Runner:       container.Runner,
		Store:        container.Store,
		Renderer:     container.Renderer,
		Emitter:      container.EventManager,
		LookbackDays: cfg.LookbackDays,
		ReportPath:   cfg.ReportFile,
	}

	if cfg.S3.Enabled() {
		s3Client, err := reliability.NewS3Client(ctx, cfg.S3, log)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		container.S3Client = s3Client
		container.Publisher = reliability.NewPublisher(s3Client, cfg.S3.Prefix, log)
		serviceCfg.Publisher = container.Publisher
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("Publishing enabled")
	}

	container.Service = work.NewService(serviceCfg, log)
	container.Service.LoadStored(ctx)
	return nil
}
