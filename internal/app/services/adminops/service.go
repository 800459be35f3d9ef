// Package adminops implements the operator console: dashboard stats and the
// payment destination configuration.
package adminops

import (
	"context"
	"strings"

	"github.com/secretlease/marketplace/internal/app/domain/admin"
	"github.com/secretlease/marketplace/internal/app/domain/adminconfig"
	"github.com/secretlease/marketplace/internal/app/storage"
	svcerr "github.com/secretlease/marketplace/internal/errors"
	"github.com/secretlease/marketplace/pkg/logger"
)

// Service reads aggregates and manages the singleton configuration.
type Service struct {
	stats  storage.StatsStore
	config storage.ConfigStore
	log    *logger.Logger
}

// New constructs the admin console service.
func New(stats storage.StatsStore, config storage.ConfigStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("adminops")
	}
	return &Service{stats: stats, config: config, log: log}
}

// Stats returns the dashboard aggregate.
func (s *Service) Stats(ctx context.Context) (admin.Stats, error) {
	stats, err := s.stats.GatherStats(ctx)
	if err != nil {
		return admin.Stats{}, svcerr.Internal("gather stats", err)
	}
	return stats, nil
}

// GetConfig returns the payment configuration, creating the defaults on first
// read.
func (s *Service) GetConfig(ctx context.Context) (adminconfig.Config, error) {
	cfg, err := s.config.GetConfig(ctx)
	if err != nil {
		return adminconfig.Config{}, svcerr.Internal("load config", err)
	}
	return cfg, nil
}

// UpdateConfig replaces the payment destinations and price.
func (s *Service) UpdateConfig(ctx context.Context, cfg adminconfig.Config) (adminconfig.Config, error) {
	if strings.TrimSpace(cfg.PayPalEmail) == "" {
		return adminconfig.Config{}, svcerr.Validation("paypal email is required")
	}
	if strings.TrimSpace(cfg.BTCAddress) == "" || strings.TrimSpace(cfg.USDTAddress) == "" {
		return adminconfig.Config{}, svcerr.Validation("crypto destination addresses are required")
	}
	if cfg.PriceUSD <= 0 {
		return adminconfig.Config{}, svcerr.Validation("price must be positive")
	}

	updated, err := s.config.UpsertConfig(ctx, cfg)
	if err != nil {
		return adminconfig.Config{}, svcerr.Internal("save config", err)
	}
	s.log.Info("payment configuration updated")
	return updated, nil
}
