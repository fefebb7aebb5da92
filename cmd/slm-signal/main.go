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

	"github.com/junsooki/AirSLM/internal/signaling"
)

func main() {
	addr := flag.String("addr", ":8080", "Listen address")
	path := flag.String("path", "/ws", "WebSocket path")
	level := flag.String("log-level", "info", "Log level")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	if lvl, err := zerolog.ParseLevel(*level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		log.Fatal().Err(err).Msg("invalid log level")
	}

	mux := http.NewServeMux()
	mux.Handle(*path, signaling.NewServer(log.Logger))
	srv := &http.Server{Addr: *addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	log.Info().Str("addr", *addr).Str("path", *path).Msg("signaling relay listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("signaling relay")
	}
	log.Info().Msg("signaling relay stopped")
}
