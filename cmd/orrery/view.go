package main

import (
	"context"
	"fmt"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solar-system-ai/internal/celestial"
	"solar-system-ai/internal/chat"
	"solar-system-ai/internal/metrics"
	"solar-system-ai/internal/sim"
	"solar-system-ai/internal/view"
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Render the solar system in the terminal and chat with a planet",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		relay, err := chat.NewRelay(cfg.Relay, logger)
		if err != nil {
			return err
		}

		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to create screen: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("failed to initialize screen: %w", err)
		}
		defer screen.Fini()

		state := sim.NewState(celestial.InitSolarSystemObjects(), rand.New(rand.NewSource(time.Now().UnixNano())))
		state.SetOrbitsVisible(cfg.View.ShowOrbits)
		loop := sim.NewLoop(state, cfg.View.FPS)

		m := metrics.NewMetricsCollector(newRegistry())
		v := view.NewView(screen, loop, state, chat.NewPanel(relay, logger), logger, view.Options{
			OrbitPoints: cfg.View.OrbitPoints,
			Metrics:     m,
		})
		return runView(ctx, v, m, metricsAddr)
	},
}

// runView runs the viewer and, when addr is set, a metrics endpoint that
// stops with it
func runView(ctx context.Context, v *view.View, m *metrics.MetricsCollector, addr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if addr != "" {
		g.Go(func() error {
			logger.Info("Serving viewer metrics", zap.String("addr", addr))
			return m.ServeMetrics(gctx, addr)
		})
	}
	g.Go(func() error {
		defer cancel()
		return v.Run(gctx)
	})
	return g.Wait()
}
