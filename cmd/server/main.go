package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"google.golang.org/grpc"

	api "divecenter-backend/internal/api/grpc"
	"divecenter-backend/internal/api/grpc/interceptor"
	httpapi "divecenter-backend/internal/api/http"
	"divecenter-backend/internal/app"
	"divecenter-backend/internal/config"
	"divecenter-backend/internal/logger"
	"divecenter-backend/internal/security"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Dive Center Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "grpc_address", cfg.GetServerAddress(), "http_address", cfg.GetHTTPAddress())
	logger.Info("Lifecycle configuration", "usage_reset", cfg.Lifecycle.UsageReset, "thresholds", cfg.Lifecycle.UsageThresholds, "lock_wait", cfg.Lifecycle.LockWait)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.Build(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Initialize Security
	interceptors := []grpc.UnaryServerInterceptor{interceptor.Logging()}
	var tokenManager security.TokenManager
	if cfg.Security.Enabled {
		tokenManager = security.NewTokenManager(cfg.Security.JWTSecret, cfg.Security.Issuer)
		interceptors = append(interceptors, interceptor.NewAuthInterceptor(tokenManager).Unary())
	} else {
		logger.Warn("Security disabled; requests are not scoped to a center")
	}

	// Set up gRPC server
	lis, err := net.Listen("tcp", cfg.GetServerAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetServerAddress())
		log.Fatalf("Failed to listen: %v", err)
	}
	grpcServer, healthServer := api.NewServer(api.NewEquipmentHandler(application.Equipment, application.Centers), interceptors...)

	go func() {
		logger.Info("gRPC server listening", "address", cfg.GetServerAddress())
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("Failed to serve gRPC", "error", err)
			stop()
		}
	}()

	// Set up HTTP dashboard server
	var httpServer *http.Server
	if addr := cfg.GetHTTPAddress(); addr != "" {
		router := mux.NewRouter()
		if tokenManager != nil {
			router.Use(httpapi.AuthMiddleware(tokenManager))
		}
		httpapi.RegisterDashboardRoutes(router, httpapi.NewDashboardHandler(application.Equipment, application.Centers, pingFunc(application.Stores.Ping)))
		httpServer = &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			logger.Info("HTTP dashboard listening", "address", addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "error", err)
				stop()
			}
		}()
	}

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down...")
	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown failed", "error", err)
		}
	}
	grpcServer.GracefulStop()
	if err := application.Close(shutdownCtx); err != nil {
		logger.Error("Shutdown incomplete", "error", err)
	}
	logger.Info("Server stopped. Goodbye!")
}
