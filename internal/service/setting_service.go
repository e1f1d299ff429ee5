package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/unsikalab/tesonline-backend/internal/config"
	"github.com/unsikalab/tesonline-backend/internal/model"
	"github.com/unsikalab/tesonline-backend/internal/repository"
)

// accessModeCacheTTL bounds how stale the gate's view of the system mode can
// be after an admin flips it.
const accessModeCacheTTL = 30 * time.Second

type SettingService struct {
	settingRepo *repository.SettingRepository
	rdb         *redis.Client
	cfg         *config.Config
	log         zerolog.Logger
}

func NewSettingService(settingRepo *repository.SettingRepository, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *SettingService {
	return &SettingService{
		settingRepo: settingRepo,
		rdb:         rdb,
		cfg:         cfg,
		log:         log.With().Str("component", "setting_service").Logger(),
	}
}

// GetAccessMode returns the system-wide access mode. The gate calls this on
// every request, so reads go through a short-lived Redis cache. A missing
// row (fresh install) falls back to the configured default.
func (s *SettingService) GetAccessMode(ctx context.Context) model.SystemAccessMode {
	cached, err := s.rdb.Get(ctx, config.CacheKey.AccessModeKey()).Result()
	if err == nil && cached != "" {
		return model.SystemAccessMode(cached)
	}

	value, err := s.settingRepo.Get(ctx, model.SettingKeyAccessMode)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.log.Error().Err(err).Msg("read access mode setting")
		}
		value = s.cfg.DefaultAccessMode
	}

	mode := model.SystemAccessMode(value)
	if mode != model.SystemAccessPublic && mode != model.SystemAccessPrivate {
		mode = model.SystemAccessPublic
	}

	_ = s.rdb.Set(ctx, config.CacheKey.AccessModeKey(), string(mode), accessModeCacheTTL).Err()

	return mode
}

// SetAccessMode switches the system-wide access mode and refreshes the cache
// so the gate picks it up immediately.
func (s *SettingService) SetAccessMode(ctx context.Context, mode model.SystemAccessMode) error {
	if err := s.settingRepo.Set(ctx, model.SettingKeyAccessMode, string(mode)); err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, config.CacheKey.AccessModeKey(), string(mode), accessModeCacheTTL).Err(); err != nil {
		s.log.Warn().Err(err).Msg("refresh access mode cache")
	}

	s.log.Info().Str("mode", string(mode)).Msg("system access mode updated")
	return nil
}
