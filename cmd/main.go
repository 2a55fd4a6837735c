package main

import (
	"log/slog"
	"os"

	httpapi "github.com/error-99/videocall/internal/api/http"
	"github.com/error-99/videocall/internal/auth"
	"github.com/error-99/videocall/internal/config"
	"github.com/error-99/videocall/internal/repository"
	"github.com/error-99/videocall/internal/service"
	"github.com/error-99/videocall/lib/logger/slogpretty"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)

	tokens := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	userRepo := repository.NewInMemoryUserRepository()

	presence := service.NewPresenceRegistry(log)
	relay := service.NewSignalingRelay(log)
	coordinator := service.NewCallSessionCoordinator(presence, relay, log)
	connections := service.NewConnectionManager(coordinator, log)
	userService := service.NewUserService(userRepo, tokens, log)

	userController := httpapi.NewUserController(userService, presence)
	signalController := httpapi.NewSignalController(connections, tokens, cfg.WebRTC, log)

	router := httpapi.SetupRouter(userController, signalController, tokens, cfg.HTTP.AllowedOrigins)

	log.Info("starting application", slog.String("addr", cfg.HTTP.Address))
	if err := router.Run(cfg.HTTP.Address); err != nil {
		log.Error("http server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = setupPrettySlog()
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
