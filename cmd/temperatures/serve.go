package main

import (
	"context"
	"fmt"

	"github.com/iver-wharf/temperatures"
	"github.com/iver-wharf/temperatures/internal/buildtarget"
	"github.com/iver-wharf/temperatures/internal/parallel"
	"github.com/iver-wharf/temperatures/pkg/config"
	"github.com/iver-wharf/temperatures/pkg/metrics"
	"github.com/iver-wharf/temperatures/pkg/onewire"
	"github.com/iver-wharf/temperatures/pkg/poller"
	"github.com/iver-wharf/temperatures/pkg/readingstore"
	"github.com/iver-wharf/temperatures/pkg/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Reads sensors on an interval and serves them as metrics",
	Long: `Serve reads all DS18B20 sensors once per interval (default every 60s)
and serves the latest readings on the bind address (default 0.0.0.0:9091):

	GET /metrics                          Prometheus metrics
	GET /api/sensor                       Latest reading of all sensors
	GET /api/sensor/{id}                  Latest reading of one sensor
	GET /api/sensor/{id}/history?limit=N  Stored readings, if history.path is set

The same port also serves the gRPC health service (grpc.health.v1.Health),
which reports SERVING once the first sensor has been read.`,
	Args: cobra.NoArgs,
	RunE: runServeCmd,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServeCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleCancelSignals(cancel)
	return runServe(ctx, rootConfig)
}

func runServe(ctx context.Context, cfg config.Config) error {
	log.Info().
		WithString("version", versionString(rootVersion)).
		WithStringer("target", buildtarget.FromRuntime()).
		WithStringf("release", "%t", temperatures.IsRelease(rootVersion)).
		Message("Starting temperature monitoring service.")

	bus := onewire.NewBus(cfg.OneWire.DevicesDir,
		onewire.WithSkipCRCCheck(cfg.OneWire.SkipCRCCheck))
	m := metrics.New()

	var store readingstore.Store
	if cfg.History.Path != "" {
		s, err := readingstore.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer s.Close()
		if err := s.Migrate(); err != nil {
			return fmt.Errorf("migrate history: %w", err)
		}
		log.Info().WithString("path", cfg.History.Path).
			WithDuration("retention", cfg.History.Retention).
			Message("Storing readings history.")
		store = s
	}

	p := poller.New(bus, m, poller.Config{
		Interval:  cfg.Poller.Interval,
		Store:     store,
		Retention: cfg.History.Retention,
	})
	srv := server.New(cfg.HTTP, p, store, m.Handler())
	p.OnPoll(srv.HandlePoll)

	var group parallel.Group
	group.AddFunc("poller", p.Run)
	group.AddFunc("server", srv.Serve)
	return group.RunCancelEarly(ctx)
}
