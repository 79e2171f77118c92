package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/AltairaLabs/promptarena-sagemaker/internal/config"
	"github.com/AltairaLabs/promptarena-sagemaker/internal/sagemaker"
)

// operations abstracts the endpoint lifecycle for the commands.
type operations interface {
	ListConfigs(ctx context.Context) (map[string]*sagemaker.DeployableConfig, error)
	ListLiveInstances(ctx context.Context) ([]sagemaker.ResourceState, error)
	Deploy(ctx context.Context, name string) error
	Watch(ctx context.Context, name string, sink sagemaker.StatusSink) error
	Remove(ctx context.Context, endpointName string) (string, error)
}

// manager is the SageMaker-backed implementation of operations.
type manager struct {
	ctrl     *sagemaker.Controller
	streamer *sagemaker.StatusStreamer
	pool     *sagemaker.DeployPool
}

// openManager connects to SageMaker with cfg. A single-slot pool serves
// Watch: one CLI invocation deploys at most one model.
func openManager(ctx context.Context, cfg *config.Config, log *slog.Logger) (operations, error) {
	for _, w := range sagemaker.DiagnoseSettings(&cfg.SageMaker) {
		log.Warn(w.String())
	}
	clients, err := sagemaker.NewClients(ctx, cfg.SageMaker, log)
	if err != nil {
		return nil, err
	}
	ctrl := sagemaker.NewController(clients, cfg.SageMaker,
		sagemaker.WithLogger(log),
		sagemaker.WithNameSuffix(cfg.SageMaker.SuffixFunc(time.Now)),
	)
	pool := sagemaker.NewDeployPool(ctx, ctrl, 1, log)
	return &manager{
		ctrl:     ctrl,
		streamer: sagemaker.NewStatusStreamer(ctrl, pool, cfg.SageMaker, log),
		pool:     pool,
	}, nil
}

func (m *manager) ListConfigs(ctx context.Context) (map[string]*sagemaker.DeployableConfig, error) {
	return m.ctrl.Catalog().ListConfigs(ctx)
}

func (m *manager) ListLiveInstances(ctx context.Context) ([]sagemaker.ResourceState, error) {
	return m.ctrl.Catalog().ListLiveInstances(ctx)
}

func (m *manager) Deploy(ctx context.Context, name string) error {
	return m.ctrl.Deploy(ctx, name)
}

// Watch streams the deployment of name and then waits for the background
// deploy, so a rollback is not cut short when the process exits.
func (m *manager) Watch(ctx context.Context, name string, sink sagemaker.StatusSink) error {
	err := m.streamer.Stream(ctx, name, sink)
	m.pool.Wait()
	return err
}

func (m *manager) Remove(ctx context.Context, endpointName string) (string, error) {
	return m.ctrl.Remove(ctx, endpointName)
}
