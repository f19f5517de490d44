package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"board_service/internal/auth"
	"board_service/internal/board"
	"board_service/internal/config"
	"board_service/internal/http_server/handlers/hello"
	"board_service/internal/http_server/handlers/login"
	"board_service/internal/http_server/handlers/logout"
	"board_service/internal/http_server/handlers/me"
	"board_service/internal/http_server/handlers/messages"
	register "board_service/internal/http_server/handlers/register"
	"board_service/internal/middleware/authn"
	rateLimit "board_service/internal/middleware/ratelimit"
	"board_service/internal/rabbitmq"
	"board_service/internal/storage/postgres"
	"board_service/internal/storage/redis"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("starting board service", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	tokenCache, err := redis.New(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("failed to connect redis", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer tokenCache.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer msgBroker.Close()

	authService := auth.New(log, storage, storage, storage, tokenCache)
	boardService := board.New(log, storage, storage, msgBroker)

	router := setupRouter(log, authService, boardService)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", slog.String("err", err.Error()))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Board service stopped")
}

func setupRouter(
	log *slog.Logger,
	authService *auth.Auth,
	boardService *board.Board,
) *chi.Mux {
	validate := validator.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Token resolution runs on every request; endpoints decide whether
	// an attached identity is required.
	r.Use(authn.New(log, authService))

	r.Get("/hello/", hello.New())

	r.With(rateLimit.Register()).Post("/auth/register/",
		register.New(log, validate, authService),
	)
	r.With(rateLimit.Login()).Post("/auth/login/",
		login.New(log, validate, authService),
	)
	r.With(rateLimit.Logout()).Post("/auth/logout/",
		logout.New(log, authService),
	)

	r.Get("/messages/",
		messages.NewList(log, boardService),
	)
	r.With(rateLimit.PostMessage()).Post("/messages/",
		messages.NewCreate(log, validate, boardService),
	)

	r.Get("/members/me/",
		me.New(log),
	)

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
