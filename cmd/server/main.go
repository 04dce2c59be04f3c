package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "go.uber.org/automaxprocs"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Standup/internal/adapters/http"
	"github.com/dkeye/Standup/internal/adapters/rtc"
	sig "github.com/dkeye/Standup/internal/adapters/signal"
	"github.com/dkeye/Standup/internal/app"
	"github.com/dkeye/Standup/internal/config"
	"github.com/dkeye/Standup/internal/cron"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	artifacts, err := app.NewArtifactStore(cfg.ArtifactCapacity)
	if err != nil {
		return fmt.Errorf("artifact store: %w", err)
	}
	clk := clock.New()
	sessions := app.NewRegistry(app.Options{
		Clock:            clk,
		Artifacts:        artifacts,
		DefaultTimeLimit: cfg.DefaultTimeLimit,
		WarningRatio:     cfg.WarningRatio,
		CaptureTimeout:   cfg.CaptureTimeout,
	}, cfg.SessionIdleTTL)
	defer sessions.CloseAll()

	api, err := rtc.NewAPI()
	if err != nil {
		return fmt.Errorf("webrtc api: %w", err)
	}
	signalCtl := sig.NewSignalWSController(
		sessions,
		sig.NewIntentRateLimiter(clk, cfg.IntentRateLimit, cfg.IntentRateInterval),
		api,
		sig.Options{
			ReadLimit:    cfg.ReadLimit,
			PingPeriod:   cfg.PingPeriod,
			MaxClipBytes: cfg.MaxClipBytes,
			ICE:          rtc.Config(cfg.STUNURLs),
		},
	)

	reaper := cron.NewScheduler()
	if _, err := reaper.AddFunc(cfg.ReapSchedule, func() { sessions.ReapIdle() }); err != nil {
		return fmt.Errorf("reap schedule %q: %w", cfg.ReapSchedule, err)
	}

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Sessions:  sessions,
		Artifacts: artifacts,
		Signal:    signalCtl,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Standup server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		reaper.Start()
		<-gctx.Done()
		reaper.Shutdown(context.Background())
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}
