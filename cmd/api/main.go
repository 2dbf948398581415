package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/platemint/backend/config"
	"github.com/platemint/backend/internal/api"
	"github.com/platemint/backend/internal/database"
	"github.com/platemint/backend/internal/middleware"
	"github.com/platemint/backend/internal/router"
	"github.com/platemint/backend/internal/server"
	"github.com/platemint/backend/internal/service"
	"github.com/platemint/backend/internal/session"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if config.GetEnvironment() == config.Development {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// The activity cache is optional; without it recent searches, views and
	// the working plan mirror are disabled but everything else serves.
	var sessions *session.Store
	var createLimiter *middleware.RateLimiter
	redisClient, err := database.NewRedisClient(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, activity tracking disabled")
	} else {
		sessions = session.New(redisClient)
		createLimiter = middleware.NewRecipeCreationRateLimiter(redisClient)
	}

	// Keep the interface nil unless S3 is actually up; the handlers treat a
	// nil uploader as "image storage not configured".
	var imageService api.ImageUploader
	if cfg.S3Bucket != "" {
		s3Config, err := config.NewS3Config(context.Background(), cfg)
		if err != nil {
			log.Warn().Err(err).Msg("s3 unavailable, image uploads disabled")
		} else {
			imageService = service.NewImageService(s3Config)
		}
	}

	authService := service.NewAuthService(db, cfg.JWTSecret)
	recipeService := service.NewRecipeService(db)
	planService := service.NewMealPlanService(db)

	engine := router.SetupRouter(router.Handlers{
		Auth:     api.NewAuthHandler(authService, imageService, sessions),
		Recipe:   api.NewRecipeHandler(recipeService, authService, imageService, sessions, createLimiter),
		MealPlan: api.NewMealPlanHandler(planService, authService, sessions),
		Discover: api.NewDiscoverHandler(recipeService, authService, sessions),
	}, cfg.AllowedOrigins)

	srv := server.New(engine)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(cfg.ServerPort)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("server shutdown error")
	}
	log.Info().Msg("server stopped")
}
