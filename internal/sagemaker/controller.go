package sagemaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AltairaLabs/promptarena-sagemaker/internal/metrics"
	"github.com/AltairaLabs/promptarena-sagemaker/internal/telemetry"
)

// progressSteps is the number of progress logs emitted over a full wait.
const progressSteps = 10

// Controller deploys, connects to, and removes SageMaker endpoints. It holds
// no state between calls; every operation re-lists the catalog.
type Controller struct {
	catalog *Catalog
	backend backend
	invoker runtimeInvoker

	maxWait          time.Duration
	describeInterval time.Duration
	deleteOnFail     bool
	tags             map[string]string

	suffix NameSuffixFunc
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	log    *slog.Logger
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithNameSuffix sets the strategy that derives endpoint names from logical
// names on Deploy. The default appends nothing.
func WithNameSuffix(fn NameSuffixFunc) ControllerOption {
	return func(c *Controller) {
		if fn != nil {
			c.suffix = fn
		}
	}
}

// WithClock replaces the wall clock and the wait primitive used by the
// readiness poll.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) ControllerOption {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(log *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// NewController builds a controller over the given clients.
func NewController(clients *Clients, settings Settings, opts ...ControllerOption) *Controller {
	return newController(clients.backend, clients.invoker, settings, opts...)
}

func newController(b backend, inv runtimeInvoker, settings Settings, opts ...ControllerOption) *Controller {
	c := &Controller{
		backend:          b,
		invoker:          inv,
		maxWait:          settings.MaxWait,
		describeInterval: settings.DescribeInterval,
		deleteOnFail:     settings.DeleteOnFail,
		tags:             settings.Tags,
		suffix:           NoSuffix,
		now:              time.Now,
		sleep:            sleepContext,
		log:              slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.catalog = newCatalog(b, settings.ConfigNameFilter, c.log)
	return c
}

// Catalog returns the catalog the controller resolves names through.
func (c *Controller) Catalog() *Catalog {
	return c.catalog
}

// EndpointName returns the name of the endpoint Deploy creates for the
// named config. Each call consults the suffix strategy afresh.
func (c *Controller) EndpointName(name string) string {
	return name + c.suffix(name)
}

// Deploy creates an endpoint for the named config and blocks until it is
// InService, the wait budget runs out, or ctx ends.
func (c *Controller) Deploy(ctx context.Context, name string) error {
	return c.DeployAs(ctx, name, c.EndpointName(name))
}

// DeployAs is Deploy with the endpoint name fixed by the caller, so that a
// watcher can follow the exact endpoint being created.
func (c *Controller) DeployAs(ctx context.Context, name, endpointName string) (err error) {
	ctx, span := telemetry.StartEndpointSpan(ctx, "deploy", name)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
		metrics.DeploymentsTotal.WithLabelValues(resultLabel(err)).Inc()
	}()

	cfg, err := c.catalog.lookup(ctx, name)
	if err != nil {
		return err
	}
	if cfg.IsActive() {
		return alreadyActiveError(name)
	}
	return c.deployAndWait(ctx, endpointName, cfg.Name)
}

// Connect returns a handle to the first InService endpoint of the named
// config. An inactive config is deployed first when forceDeploy is set.
func (c *Controller) Connect(ctx context.Context, name string, forceDeploy bool) (h *Handle, err error) {
	ctx, span := telemetry.StartEndpointSpan(ctx, "connect", name)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	cfg, err := c.catalog.lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	if !cfg.IsActive() {
		if !forceDeploy {
			return nil, notActiveError(name)
		}
		c.log.Info("model is not active, deploying", "model", name)
		err = c.deployAndWait(ctx, name, name)
		metrics.DeploymentsTotal.WithLabelValues(resultLabel(err)).Inc()
		if err != nil {
			return nil, err
		}
		if cfg, err = c.catalog.lookup(ctx, name); err != nil {
			return nil, err
		}
	}

	endpoint, ok := cfg.firstInService()
	if !ok {
		return nil, notActiveError(name)
	}
	return newHandle(c.invoker, cfg, endpoint, c.log), nil
}

// Remove requests deletion of an endpoint and returns the confirmation
// message once the backend accepts it.
func (c *Controller) Remove(ctx context.Context, endpointName string) (msg string, err error) {
	ctx, span := telemetry.StartEndpointSpan(ctx, "remove", endpointName)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	c.log.Info("deleting endpoint", "endpoint", endpointName)
	if err := c.backend.DeleteEndpoint(ctx, endpointName); err != nil {
		return "", backendError("delete endpoint", endpointName, err)
	}
	return fmt.Sprintf("Endpoint %s has been removed", endpointName), nil
}

// deployAndWait issues a single create request and runs the readiness poll.
func (c *Controller) deployAndWait(ctx context.Context, endpointName, configName string) error {
	if err := validateEndpointName(endpointName); err != nil {
		return invalidNameError(endpointName, err)
	}

	c.log.Info("deploying model", "config", configName, "endpoint", endpointName)
	tags := buildEndpointTags(endpointName, configName, c.now(), c.tags)
	if err := c.backend.CreateEndpoint(ctx, endpointName, configName, tags); err != nil {
		return backendError("create endpoint", endpointName, err)
	}
	return c.waitForInService(ctx, endpointName)
}

// waitForInService describes the endpoint until it is InService or the
// elapsed time exceeds maxWait. A timeout or a Failed status triggers the
// delete-on-fail rollback.
func (c *Controller) waitForInService(ctx context.Context, endpoint string) error {
	c.log.Info("waiting for endpoint", "endpoint", endpoint, "max_wait", c.maxWait)
	start := c.now()
	progress := newProgressLog(c.maxWait)

	for {
		metrics.DescribeCalls.Inc()
		state, err := c.backend.DescribeEndpoint(ctx, endpoint)
		if err != nil {
			return backendError("describe endpoint", endpoint, err)
		}
		elapsed := c.now().Sub(start)

		switch state.Status {
		case StatusInService:
			metrics.DeploymentDuration.Observe(elapsed.Seconds())
			c.log.Info("endpoint is in service", "endpoint", endpoint, "elapsed", elapsed.Round(time.Second))
			return nil
		case StatusFailed:
			return c.rollback(ctx, endpoint, deploymentFailedError(endpoint, state.FailureReason, elapsed))
		}

		if progress.due(elapsed) {
			c.log.Info("endpoint is still creating",
				"endpoint", endpoint,
				"status", state.Status,
				"remaining", (c.maxWait - elapsed).Round(time.Second))
		}
		if elapsed > c.maxWait {
			return c.rollback(ctx, endpoint, timeoutError(endpoint, elapsed, c.maxWait))
		}
		if err := c.sleep(ctx, c.describeInterval); err != nil {
			return err
		}
	}
}

// rollback deletes a failed endpoint when deleteOnFail is set. A failed
// delete replaces cause with a backend error.
func (c *Controller) rollback(ctx context.Context, endpoint string, cause *LifecycleError) error {
	if !c.deleteOnFail {
		return cause
	}
	c.log.Warn("deleting endpoint after failed deployment", "endpoint", endpoint, "error", cause.Message)
	if err := c.backend.DeleteEndpoint(context.WithoutCancel(ctx), endpoint); err != nil {
		metrics.Rollbacks.WithLabelValues("error").Inc()
		return backendError("delete endpoint", endpoint, err)
	}
	metrics.Rollbacks.WithLabelValues("deleted").Inc()
	return cause
}

// progressLog fires once elapsed passes each tenth of the wait budget.
type progressLog struct {
	step  time.Duration
	epoch int64
}

func newProgressLog(maxWait time.Duration) *progressLog {
	return &progressLog{step: maxWait / progressSteps, epoch: 1}
}

func (p *progressLog) due(elapsed time.Duration) bool {
	if elapsed > p.step*time.Duration(p.epoch) {
		p.epoch++
		return true
	}
	return false
}

// sleepContext waits for d or until ctx ends.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// resultLabel maps a deploy outcome to its metrics label.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyActive):
		return "already_active"
	case errors.Is(err, ErrInvalidName):
		return "invalid_name"
	case errors.Is(err, ErrDeploymentTimeout):
		return "timeout"
	case errors.Is(err, ErrDeploymentFailed):
		return "failed"
	case errors.Is(err, ErrBackendUnavailable):
		return "backend_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
