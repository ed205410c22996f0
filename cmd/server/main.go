package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bvilove/datebot/internal/app"
	"github.com/bvilove/datebot/internal/cache"
	"github.com/bvilove/datebot/internal/config"
	"github.com/bvilove/datebot/internal/db"
	"github.com/bvilove/datebot/internal/geo"
	"github.com/bvilove/datebot/internal/logger"
	"github.com/bvilove/datebot/internal/server"
	"github.com/bvilove/datebot/internal/service/match"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L() // slog.Logger pointer

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		log.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}

	cities, err := geo.Default()
	if err != nil {
		log.Error("failed to load city directory", "err", err)
		os.Exit(1)
	}
	log.Info("city directory loaded", "cities", cities.Len())

	// Inject logger into app context
	appCtx := app.New(database, redisCache, log, cfg, cities)

	registrars := []server.Registrar{
		match.NewRegistrar(appCtx),
	}

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	addr := cfg.GRPC.Host + ":" + cfg.GRPC.Port
	log.Info("starting gRPC server", "addr", addr)

	if err := server.StartGRPCServer(ctx, cfg, log, registrars...); err != nil {
		log.Error("failed to start gRPC server", "err", err)
		os.Exit(1)
	}
}
