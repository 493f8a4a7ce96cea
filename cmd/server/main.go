package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mentoro/arena/internal/battle"
	"github.com/mentoro/arena/internal/config"
	"github.com/mentoro/arena/internal/database"
	"github.com/mentoro/arena/internal/handlers"
	"github.com/mentoro/arena/internal/middleware"
	"github.com/mentoro/arena/internal/realtime"
	"github.com/mentoro/arena/internal/repositories"
	"github.com/mentoro/arena/internal/scoring"
	"github.com/mentoro/arena/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.LogLevel, cfg.AppEnv)
	defer logger.Sync()

	logger.Info("Starting coding arena server...", "env", cfg.AppEnv)

	if err := cfg.ValidateProductionSecurity(); err != nil {
		logger.Fatal("Production security validation failed", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Warn("Failed to close database", "error", err)
		}
	}()

	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}
	if err := database.SeedProblems(db); err != nil {
		logger.Warn("Failed to seed problems", "error", err)
	}

	matches := repositories.NewMatchRepository(db)
	problems := repositories.NewProblemRepository(db)
	profiles := repositories.NewProfileRepository(db)
	xp := repositories.NewXPRepository(db)

	registry := realtime.NewRegistry()
	rooms := realtime.NewRooms(registry)
	evaluator := scoring.NewEvaluator(cfg.GetEvalTimeout(), cfg.EvalMaxSteps)

	battles := battle.NewService(matches, problems, rooms, evaluator, battle.Options{
		DefaultXPWager:     cfg.DefaultXPWager,
		MaxXPWager:         cfg.MaxXPWager,
		DefaultMaxPlayers:  cfg.DefaultMaxPlayers,
		MaxPlayersLimit:    cfg.MaxPlayersLimit,
		DefaultTimeLimit:   time.Duration(cfg.DefaultTimeLimitSeconds) * time.Second,
		WaitingTTL:         cfg.GetWaitingMatchTTL(),
		CompletedRetention: cfg.GetCompletedRetention(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := battles.Restore(ctx); err != nil {
		logger.Fatal("Failed to restore open matches", err)
	}

	sweeper, err := battle.NewSweeper(battles, cfg.GetSweepInterval())
	if err != nil {
		logger.Fatal("Failed to create sweeper", err)
	}
	if err := sweeper.Start(); err != nil {
		logger.Fatal("Failed to start sweeper", err)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerUser, cfg.RateLimitPerIP, cfg.GetRateLimitWindow())
	defer limiter.Stop()

	manager := handlers.NewHandlerManager(cfg, battles, profiles, xp, registry, limiter)
	server := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           manager.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := sweeper.Shutdown(); err != nil {
			logger.Warn("Failed to stop sweeper", "error", err)
		}
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		return
	}
	logger.Info("Server stopped")
}
