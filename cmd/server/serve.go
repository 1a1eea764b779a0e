package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-support/backend/internal/models"
	"campus-support/backend/pkg/di"
	"campus-support/backend/pkg/health"
	"campus-support/backend/pkg/logger"
	"campus-support/backend/pkg/router"
	"campus-support/backend/shared/observability"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the gRPC health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply schema migrations before serving")
	return cmd
}

func serve(ctx context.Context, migrate bool) error {
	cfg, log, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	log.Info("Starting application", "version", Version, "env", cfg.Server.Env)

	shutdownTracing, err := observability.SetupTracing(cfg.Observability.ServiceName, cfg.Observability.TraceStdout, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.LogError(err, "Failed to flush traces")
		}
	}()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB(db)

	if migrate {
		if err := models.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	container, err := di.New(cfg, db, log)
	if err != nil {
		return fmt.Errorf("init container: %w", err)
	}
	defer func() {
		if err := container.Close(); err != nil {
			log.LogError(err, "Failed to release resources")
		}
	}()

	r := router.New(ctx, container)
	if path := cfg.Observability.OpenAPISchema; path != "" {
		if err := r.AddOpenAPIValidation(path); err != nil {
			return fmt.Errorf("load openapi schema: %w", err)
		}
	}
	r.SetupRoutes()

	grpcSrv, grpcLis, err := newGRPCServer(cfg.Server.GRPCPort, container.Health)
	if err != nil {
		return err
	}
	container.Health.Start(ctx)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout + cfg.Assistant.OracleTimeout,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		log.Info("gRPC health server starting", "port", cfg.Server.GRPCPort)
		if err := grpcSrv.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case runErr = <-errCh:
		log.LogError(runErr, "Server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}
	stopGRPC(shutdownCtx, grpcSrv, log)

	log.Info("Server exited gracefully")
	return runErr
}

// newGRPCServer exposes the standard health service, fed by the periodic
// dependency checks
func newGRPCServer(port string, checker *health.Checker) (*grpc.Server, net.Listener, error) {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, nil, fmt.Errorf("listen grpc: %w", err)
	}

	srv := grpc.NewServer()
	hs := grpchealth.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	checker.OnResult(func(healthy bool) {
		status := grpc_health_v1.HealthCheckResponse_SERVING
		if !healthy {
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus("", status)
	})
	return srv, lis, nil
}

func stopGRPC(ctx context.Context, srv *grpc.Server, log *logger.Logger) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn("gRPC graceful stop timed out")
		srv.Stop()
	}
}
