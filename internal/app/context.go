package app

import (
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/bvilove/datebot/internal/cache"
	"github.com/bvilove/datebot/internal/config"
	"github.com/bvilove/datebot/internal/geo"
)

// AppContext holds shared dependencies (DB, Redis, Logger, etc.)
type AppContext struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Config     *config.Config
	Cities     *geo.Directory

	// Now is the service clock; always UTC.
	Now func() time.Time
}

// New creates a new AppContext
func New(db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger, cfg *config.Config, cities *geo.Directory) *AppContext {
	return &AppContext{
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Config:     cfg,
		Cities:     cities,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}
