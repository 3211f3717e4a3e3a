package main

import (
	"context"
	"os"
	"os/signal"
	"parcel/config"
	"parcel/di"
	"parcel/shared/logger"
	"syscall"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Get()

	logger.InitLogger()
	logger.Configure(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	http, err := di.InitializeService()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize service")
	}

	if err := http.Serve(ctx); err != nil {
		log.Fatal().Err(err).Msg("HTTP server stopped")
	}
}
