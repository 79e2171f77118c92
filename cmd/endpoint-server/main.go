// Command endpoint-server serves the endpoint manager HTTP and websocket API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AltairaLabs/promptarena-sagemaker/internal/config"
	"github.com/AltairaLabs/promptarena-sagemaker/internal/generation"
	"github.com/AltairaLabs/promptarena-sagemaker/internal/sagemaker"
	"github.com/AltairaLabs/promptarena-sagemaker/internal/telemetry"
)

// envConfigFile names an optional YAML config file.
const envConfigFile = "ENDPOINT_MANAGER_CONFIG"

const serviceName = "endpoint-manager"

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	if err := run(); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv(envConfigFile))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	for _, w := range sagemaker.DiagnoseSettings(&cfg.SageMaker) {
		log.Warn("config diagnostic", "category", w.Category, "message", w.Message, "hint", w.Hint)
	}

	ctx := context.Background()
	tracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: sagemaker.Version,
		Environment:    cfg.SageMaker.DeployEnv,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tracing.Shutdown(sctx); err != nil {
			log.Error("tracing shutdown", "error", err)
		}
	}()
	log.Info("tracing", "enabled", tracing.Enabled(), "endpoint", cfg.Tracing.OTLPEndpoint)

	clients, err := sagemaker.NewClients(ctx, cfg.SageMaker, log)
	if err != nil {
		return fmt.Errorf("sagemaker clients: %w", err)
	}
	ctrl := sagemaker.NewController(clients, cfg.SageMaker,
		sagemaker.WithLogger(log),
		sagemaker.WithNameSuffix(cfg.SageMaker.SuffixFunc(time.Now)),
	)

	poolCtx, stopPool := context.WithCancel(context.Background())
	defer stopPool()
	pool := sagemaker.NewDeployPool(poolCtx, ctrl, cfg.SageMaker.DeployConcurrency, log)

	templates, err := generation.LoadTemplates(cfg.PromptDir)
	if err != nil {
		return fmt.Errorf("prompts: %w", err)
	}

	s := &server{
		lifecycle: ctrl,
		catalog:   ctrl.Catalog(),
		streamer:  sagemaker.NewStatusStreamer(ctrl, pool, cfg.SageMaker, log),
		generator: generation.NewGenerator(ctrl, templates, log),
		health:    newHealthHandler(),
		log:       log,
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	log.Info("listening",
		"addr", ln.Addr().String(),
		"version", sagemaker.Version,
		"region", cfg.SageMaker.Region,
		"deploy_env", cfg.SageMaker.DeployEnv,
	)

	srv := &http.Server{
		Handler:           s.handler(cfg.Server),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	return runWithShutdown(log, ln, srv, s.health, pool, cfg.Server.ShutdownTimeout, sigCh)
}

// drainer waits for in-flight background work.
type drainer interface {
	Wait()
}

// runWithShutdown serves until a signal arrives, then marks the service as
// draining, stops accepting requests, and waits up to timeout for background
// deploys.
func runWithShutdown(
	log *slog.Logger,
	ln net.Listener,
	srv *http.Server,
	healthH *healthHandler,
	pool drainer,
	timeout time.Duration,
	sigCh <-chan os.Signal,
) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case sig := <-sigCh:
		log.Info("received signal, shutting down", "signal", sig)
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}

	healthH.setDraining()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	drained := make(chan struct{})
	go func() {
		pool.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		log.Warn("background deploys still running at shutdown")
	}

	log.Info("shutdown complete")
	return nil
}
