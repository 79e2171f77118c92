package sagemaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AltairaLabs/promptarena-sagemaker/internal/metrics"
)

// StatusSink receives the frames of one streaming session in order.
type StatusSink interface {
	// Send pushes a status frame.
	Send(ctx context.Context, statuses []EndpointStatus) error
	// SendError pushes a terminal error frame.
	SendError(ctx context.Context, detail string) error
}

// StatusStreamer deploys a model in the background and streams its status
// until it leaves Creating, the deploy fails, or the probe budget runs out.
type StatusStreamer struct {
	catalog      *Catalog
	pool         *DeployPool
	endpointName func(name string) string
	pollInterval time.Duration
	maxProbes    int
	log          *slog.Logger
}

// NewStatusStreamer returns a streamer listing through ctrl's catalog and
// deploying through pool.
func NewStatusStreamer(ctrl *Controller, pool *DeployPool, settings Settings, log *slog.Logger) *StatusStreamer {
	if log == nil {
		log = slog.Default()
	}
	return &StatusStreamer{
		catalog:      ctrl.Catalog(),
		pool:         pool,
		endpointName: ctrl.EndpointName,
		pollInterval: settings.StreamPollInterval,
		maxProbes:    settings.MaxProbes,
		log:          log,
	}
}

// Stream runs one session for name. The endpoint name is fixed once and
// shared with the background deploy, so frames follow the endpoint actually
// created. Frames are pushed in probe order; when the endpoint leaves
// Creating a final frame with the observed status is sent. A Nonexistent
// endpoint after maxProbes probes ends the session with
// ErrProbeBudgetExhausted and no final frame.
func (s *StatusStreamer) Stream(ctx context.Context, name string, sink StatusSink) error {
	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	endpoint := name
	if s.endpointName != nil {
		endpoint = s.endpointName(name)
	}
	deployDone := s.pool.Submit(ctx, name, endpoint)
	timer := time.NewTimer(s.pollInterval)
	defer timer.Stop()

	var current EndpointStatus
	for probes := 1; ; probes++ {
		live, err := s.catalog.ListLiveInstances(ctx)
		if err != nil {
			s.sendError(ctx, sink, err)
			return err
		}
		current = Reconcile([]string{endpoint}, live)[0]
		if !isPending(current.Status) {
			break
		}

		s.log.Info("model creation status", "model", name, "endpoint", endpoint, "status", current.Status, "probe", probes)
		if err := s.send(ctx, sink, "status", current); err != nil {
			return err
		}
		if current.Status == StatusNonexistent && probes >= s.maxProbes {
			metrics.StreamFrames.WithLabelValues("budget_exhausted").Inc()
			return probeBudgetError(endpoint, probes)
		}

		timer.Reset(s.pollInterval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-deployDone:
			deployDone = nil
			if err != nil && !errors.Is(err, ErrAlreadyActive) {
				s.sendError(ctx, sink, err)
				return err
			}
		case <-timer.C:
		}
	}

	s.log.Info("final model creation status", "model", name, "endpoint", endpoint, "status", current.Status)
	return s.send(ctx, sink, "final", current)
}

func (s *StatusStreamer) send(ctx context.Context, sink StatusSink, kind string, st EndpointStatus) error {
	if err := sink.Send(ctx, []EndpointStatus{st}); err != nil {
		return fmt.Errorf("send %s frame: %w", kind, err)
	}
	metrics.StreamFrames.WithLabelValues(kind).Inc()
	return nil
}

func (s *StatusStreamer) sendError(ctx context.Context, sink StatusSink, cause error) {
	if err := sink.SendError(ctx, cause.Error()); err != nil {
		s.log.Debug("error frame not delivered", "error", err)
		return
	}
	metrics.StreamFrames.WithLabelValues("error").Inc()
}

// isPending reports whether a streamed status keeps the session polling.
func isPending(status string) bool {
	return status == StatusCreating || status == StatusNonexistent
}

func probeBudgetError(name string, probes int) *LifecycleError {
	return &LifecycleError{
		Kind:      ErrProbeBudgetExhausted,
		Endpoint:  name,
		Operation: "stream",
		Message:   fmt.Sprintf("Endpoint %s not found after %d probes", name, probes),
	}
}
