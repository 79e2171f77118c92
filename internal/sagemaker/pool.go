package sagemaker

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// deployer is the subset of Controller used by the pool.
type deployer interface {
	DeployAs(ctx context.Context, name, endpointName string) error
}

// DeployPool runs deploys in the background with bounded concurrency.
type DeployPool struct {
	deployer deployer
	sem      *semaphore.Weighted // nil means unbounded
	base     context.Context
	wg       sync.WaitGroup
	log      *slog.Logger
}

// NewDeployPool returns a pool running at most concurrency deploys at once;
// zero means unbounded. Queued deploys are abandoned when base ends.
func NewDeployPool(base context.Context, d *Controller, concurrency int, log *slog.Logger) *DeployPool {
	return newDeployPool(base, d, concurrency, log)
}

func newDeployPool(base context.Context, d deployer, concurrency int, log *slog.Logger) *DeployPool {
	if log == nil {
		log = slog.Default()
	}
	p := &DeployPool{deployer: d, base: base, log: log}
	if concurrency > 0 {
		p.sem = semaphore.NewWeighted(int64(concurrency))
	}
	return p
}

// Submit schedules a deploy of name as endpointName and returns a channel
// that receives its result exactly once. The deploy keeps running after ctx is canceled;
// ctx only contributes its values (trace span, request ID).
func (p *DeployPool) Submit(ctx context.Context, name, endpointName string) <-chan error {
	result := make(chan error, 1)
	detached := context.WithoutCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if p.sem != nil {
			if err := p.sem.Acquire(p.base, 1); err != nil {
				result <- err
				return
			}
			defer p.sem.Release(1)
		}
		err := p.deployer.DeployAs(detached, name, endpointName)
		if err != nil {
			p.log.Warn("background deploy failed", "model", name, "endpoint", endpointName, "error", err)
		} else {
			p.log.Info("background deploy finished", "model", name, "endpoint", endpointName)
		}
		result <- err
	}()
	return result
}

// Wait blocks until every submitted deploy has returned.
func (p *DeployPool) Wait() {
	p.wg.Wait()
}
