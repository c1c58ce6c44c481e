package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"yanfarm/config"
	"yanfarm/database"
	"yanfarm/logger"
	"yanfarm/middleware"
	"yanfarm/routes"
	"yanfarm/services"
	"yanfarm/storage"
	"yanfarm/utils"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(logger.Configuration{
		LogFile:   cfg.Log.File,
		ErrorFile: cfg.Log.ErrorFile,
		Level:     cfg.Log.Level,
		Console:   cfg.Log.Console,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	utils.ConfigureJWT(cfg.JWT)

	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}
	defer database.Close()

	if err := database.Migrate(db); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}
	if err := services.NewUsers(db).EnsureAdmin(cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name, time.Now().UTC()); err != nil {
		logger.Fatal("failed to bootstrap admin", zap.Error(err))
	}

	utils.InitRedis(cfg.Redis)
	if err := storage.Init(cfg.Storage); err != nil {
		logger.Fatal("failed to initialise proof storage", zap.Error(err))
	}

	router := routes.InitRouter(cfg)

	// Request ID -> Logging -> Security headers -> Max Body -> Timeout -> Recovery
	handler := middleware.RequestIDMiddleware(
		middleware.RequestLogMiddleware(
			middleware.SecurityHeadersMiddleware(cfg.IsDevelopment())(
				middleware.MaxBodyMiddleware(cfg.Server.MaxBodyBytes)(
					middleware.TimeoutMiddleware(time.Duration(cfg.Server.RequestTimeout) * time.Second)(
						middleware.RecoveryMiddleware(router),
					),
				),
			),
		),
	)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Server.Env), zap.String("db", cfg.DB.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if utils.RedisClient != nil {
		_ = utils.RedisClient.Close()
	}
	logger.Info("server exited")
}
