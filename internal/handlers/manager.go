package handlers

import (
	"context"

	"github.com/mentoro/arena/internal/battle"
	"github.com/mentoro/arena/internal/config"
	"github.com/mentoro/arena/internal/middleware"
	"github.com/mentoro/arena/internal/models"
	"github.com/mentoro/arena/internal/realtime"
)

// ProfileStore is implemented by repositories.ProfileRepository
type ProfileStore interface {
	EnsureProfile(ctx context.Context, userID, username string) error
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	Leaderboard(ctx context.Context, limit int) ([]models.Profile, error)
}

// XPHistory is implemented by repositories.XPRepository
type XPHistory interface {
	GetHistory(ctx context.Context, userID string, limit int) ([]models.XPLog, error)
}

type HandlerManager struct {
	Config   *config.Config
	Battles  *battle.Service
	Profiles ProfileStore
	XP       XPHistory
	Registry *realtime.Registry
	Limiter  *middleware.RateLimiter
}

func NewHandlerManager(
	cfg *config.Config,
	battles *battle.Service,
	profiles ProfileStore,
	xp XPHistory,
	registry *realtime.Registry,
	limiter *middleware.RateLimiter,
) *HandlerManager {
	return &HandlerManager{
		Config:   cfg,
		Battles:  battles,
		Profiles: profiles,
		XP:       xp,
		Registry: registry,
		Limiter:  limiter,
	}
}
