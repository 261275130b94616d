package main

import (
	"context"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solar-system-ai/internal/celestial"
	"solar-system-ai/internal/chat"
	"solar-system-ai/internal/metrics"
	"solar-system-ai/internal/server"
	"solar-system-ai/internal/sim"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve /ask-planet, the snapshot stream and metrics on port 3000",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func runServe(ctx context.Context) error {
	relay, err := chat.NewRelay(cfg.Relay, logger)
	if err != nil {
		return err
	}

	bodies := celestial.InitSolarSystemObjects()
	state := sim.NewState(bodies, rand.New(rand.NewSource(time.Now().UnixNano())))
	loop := sim.NewLoop(state, cfg.Server.FPS)
	srv := server.NewServer(cfg.Server, relay, loop, bodies, metrics.NewMetricsCollector(newRegistry()), logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")

		// Give outstanding requests 30 seconds to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
		}
		return nil
	})

	err = g.Wait()
	logger.Info("Server shutdown complete")
	return err
}
