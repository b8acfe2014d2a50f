package main

import (
	"context"
	zLog "github.com/rs/zerolog/log"
	"go-askbot/internal/api"
	"go-askbot/internal/app"
	"go-askbot/internal/config"
	"go-askbot/pkg/logger"
	"log"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	log.Println("starting server")
	cfg, err := config.Load()
	if err != nil {
		log.Panicf("failed to load config: %v", err)
	}
	err = logger.NewGlobal(cfg.LogLevel, cfg.LogPretty)
	if err != nil {
		log.Panicf("failed to initialize logger: %v", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		zLog.Panic().Err(err).Msg("failed to build app")
	}
	server := api.New(a.Orchestrator, a.Tools, cfg.HTTPPort)

	go func() {
		err := server.Start()
		if err != nil {
			zLog.Panic().Err(err).Msg("server crash")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	stop()
	zLog.Info().Msg("shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		zLog.Panic().Err(err).Msg("server forced to shutdown")
	}
	if err := a.Close(); err != nil {
		zLog.Error().Err(err).Msg("unable to release tools")
	}

	zLog.Info().Msg("server exiting")
}
