package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/junsooki/AirSLM/internal/bridge"
	"github.com/junsooki/AirSLM/internal/config"
	"github.com/junsooki/AirSLM/internal/display"
	"github.com/junsooki/AirSLM/internal/encoder"
	"github.com/junsooki/AirSLM/internal/peer"
	"github.com/junsooki/AirSLM/internal/render"
	"github.com/junsooki/AirSLM/internal/rpc"
	"github.com/junsooki/AirSLM/internal/signaling"
	"github.com/junsooki/AirSLM/internal/supervisor"
)

func main() {
	cfg, err := config.ParseServerFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	fit, err := display.ParseFit(cfg.Fit)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -fit")
	}
	cmap, err := display.ColormapByName(cfg.Colormap)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -colormap")
	}

	backend, loop, err := newBackend(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("display backend")
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Str("backend", cfg.Backend).
		Int("screen", cfg.Screen).
		Str("fit", cfg.Fit).
		Str("colormap", cfg.Colormap).
		Msg("SLM server starting")

	manager := display.NewManager(backend, display.Rasterizer{Colormap: cmap, Fit: fit}, log.Logger)
	dispatcher := render.NewDispatcher(manager, render.Options{
		InitialScreen: cfg.Screen,
		Log:           log.Logger,
		Debug:         cfg.Debug,
	})
	br := bridge.New(dispatcher, backend, log.Logger)
	server := rpc.NewServer(br, log.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := server.ListenAndServe(cfg.Addr())
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		// No grace period: pending requests are dropped.
		return server.Close()
	})
	g.Go(func() error {
		select {
		case <-backend.Ready():
		case <-gctx.Done():
			return nil
		}
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		return supervisor.WatchParent(gctx, cfg.ParentPID, time.Second)
	})
	if cfg.SignalingURL != "" {
		g.Go(func() error {
			runSignaling(gctx, cfg, br)
			return nil
		})
	}

	if loop != nil {
		go func() {
			<-gctx.Done()
			loop.Quit()
		}()
		if err := loop.Run(); err != nil {
			log.Error().Err(err).Msg("display loop")
		}
		stop()
	}

	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Msg("shutting down")
	}
	if err := manager.Close(); err != nil {
		log.Warn().Err(err).Msg("close surface")
	}
	log.Info().Uint64("commands", dispatcher.Applied()).Msg("SLM server stopped")
}

func newBackend(cfg *config.Config) (display.Backend, display.Loop, error) {
	if cfg.Backend == "ebiten" {
		b := display.NewEbitenBackend("SLM", true)
		return b, b, nil
	}

	sizes, err := cfg.OutputSizes()
	if err != nil {
		return nil, nil, err
	}
	b := display.NewHeadlessBackend(sizes)
	if cfg.SnapshotDir != "" {
		enc, err := encoder.ByName(cfg.SnapshotFormat, 90)
		if err != nil {
			return nil, nil, err
		}
		if err := b.SnapshotTo(cfg.SnapshotDir, enc); err != nil {
			return nil, nil, err
		}
	}
	return b, nil, nil
}

// runSignaling keeps the display registered on the signaling server,
// reconnecting until ctx is done.
func runSignaling(ctx context.Context, cfg *config.Config, svc rpc.Service) {
	host := peer.NewHost(svc, log.Logger)
	defer host.Close()

	backoff := time.Second
	for {
		sig := signaling.NewClient(cfg.SignalingURL, cfg.HostID, signaling.RoleDisplay, host.Handler())
		host.Bind(sig)
		if err := sig.Connect(ctx); err != nil {
			log.Warn().Err(err).Dur("retry", backoff).Msg("signaling unavailable")
		} else {
			log.Info().Str("id", cfg.HostID).Str("url", cfg.SignalingURL).Msg("display registered for WebRTC control")
			backoff = time.Second
			select {
			case <-ctx.Done():
				sig.Close()
				return
			case <-sig.Done():
				log.Warn().Msg("signaling connection lost")
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}
