// Copyright 2025 Swiftmeter Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"context"
	"fmt"
	"sync"

	"github.com/stackwatch/swiftmeter/pkg/logger"
	"github.com/stackwatch/swiftmeter/pkg/swift"

	"github.com/google/uuid"
)

// DefaultWorkers is the pool size when none is configured. Probes are
// I/O-bound, so a small pool already keeps the run wall-clock short.
const DefaultWorkers = 4

// Pool runs a fixed set of probe workers against a shared queue/sink pair.
// Workers exit individually once the queue is empty, so the pool shrinks to
// zero on its own; there is no shutdown signal.
type Pool struct {
	workers int
	prober  swift.Prober
	queue   *Queue
	sink    *Sink

	running sync.WaitGroup
}

// NewPool creates a pool of n workers. n <= 0 falls back to DefaultWorkers.
// The prober must be safe for concurrent use.
func NewPool(n int, prober swift.Prober, queue *Queue, sink *Sink) *Pool {
	if n <= 0 {
		n = DefaultWorkers
	}
	return &Pool{
		workers: n,
		prober:  prober,
		queue:   queue,
		sink:    sink,
	}
}

// Start launches all workers. The queue must already be closed to new tasks;
// otherwise workers may exit before late tasks arrive.
func (p *Pool) Start(ctx context.Context) {
	logger.Ctx(ctx).Debug().
		Int("workers", p.workers).
		Int("queued", p.queue.Len()).
		Msg("starting probe workers")

	for i := 0; i < p.workers; i++ {
		id := uuid.New().String()[:8]
		p.running.Add(1)
		go p.work(ctx, id)
	}
}

// Wait blocks until every enqueued task has been marked done and all worker
// goroutines have exited. After Wait returns, the sink holds one record per
// task and can be drained without blocking.
func (p *Pool) Wait() {
	p.queue.Wait()
	p.running.Wait()
}

func (p *Pool) work(ctx context.Context, workerID string) {
	defer p.running.Done()

	for {
		task, ok := p.queue.TryDequeue()
		if !ok {
			logger.Ctx(ctx).Trace().Str("worker", workerID).Msg("queue empty, worker exiting")
			return
		}
		p.runTask(ctx, workerID, task)
	}
}

// runTask probes one tenant and pushes exactly one record, then marks the
// task done. The Done call sits in a defer so that a probe error or a panic
// inside the prober can never leave the task unaccounted for and hang the
// run's barrier.
func (p *Pool) runTask(ctx context.Context, workerID string, task *Task) {
	pushed := false
	defer p.queue.Done()
	defer func() {
		if r := recover(); r != nil {
			logger.Ctx(ctx).Error().
				Str("worker", workerID).
				Str("tenant", task.Tenant.Name).
				Any("panic", r).
				Msg("probe panicked")
			if !pushed {
				p.sink.Push(errorRecord(task.Tenant, fmt.Errorf("probe panic: %v", r)))
			}
		}
	}()

	usage, err := p.prober.Probe(ctx, task.Tenant)
	if err != nil {
		logger.Ctx(ctx).Warn().
			Err(err).
			Str("worker", workerID).
			Str("tenant", task.Tenant.Name).
			Msg("probe failed")
		usage = errorRecord(task.Tenant, err)
	}
	p.sink.Push(usage)
	pushed = true
}

// errorRecord is the record shape for a failed probe: zero counters, no
// quota, the error attached. It keeps the tenant accounted for in the
// result set so the report can surface the failure as a marked row.
func errorRecord(tenant swift.Tenant, err error) swift.AccountUsage {
	return swift.AccountUsage{
		Tenant:     tenant,
		QuotaBytes: swift.QuotaUnset,
		Err:        err,
	}
}
