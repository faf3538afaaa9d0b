package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"equiprent-backend/internal/app"
	"equiprent-backend/internal/config"
	"equiprent-backend/internal/domain"
	"equiprent-backend/internal/logger"
	"equiprent-backend/internal/scheduler"
)

const healthService = "equiprent.LifecycleSweeper"

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a job once and exit: lifecycle-sweep or all")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Equiprent Cronjob Runner...", "log_level", cfg.Log.Level)

	ctx := context.Background()
	components, err := app.Build(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize components", "error", err)
		log.Fatalf("Failed to initialize components: %v", err)
	}
	closeComponents := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := components.Close(shutdownCtx); err != nil {
			logger.Error("Component shutdown failed", "error", err)
		}
	}
	defer closeComponents()

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if err := components.Runner.RunOnce(ctx, *runOnce); err != nil {
			logger.Error("Job did not run", "job", *runOnce, "error", err)
			closeComponents()
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Health server reports NOT_SERVING after a sweep that left failures behind
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(healthService, healthpb.HealthCheckResponse_SERVING)
	components.Runner.OnSweep(func(summary *domain.SweepSummary, err error) {
		status := healthpb.HealthCheckResponse_SERVING
		if err != nil || (summary != nil && summary.Failed()) {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		healthSrv.SetServingStatus(healthService, status)
	})

	lis, err := net.Listen("tcp", cfg.GetHealthAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetHealthAddress())
		log.Fatalf("Failed to listen: %v", err)
	}
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	go func() {
		logger.Info("gRPC health server listening", "address", cfg.GetHealthAddress())
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("Failed to serve gRPC health", "error", err)
		}
	}()

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(components.Runner, cfg.Scheduler)
	if err != nil {
		logger.Error("Failed to initialize scheduler", "error", err)
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.", "next_run", cronScheduler.NextRun())

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	healthSrv.Shutdown()
	cronScheduler.Stop()
	grpcServer.GracefulStop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}
