// Copyright 2025 Swiftmeter Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"context"
	"fmt"

	"github.com/stackwatch/swiftmeter/pkg/logger"
	"github.com/stackwatch/swiftmeter/pkg/swift"

	"github.com/google/uuid"
)

// State is the orchestrator's position in one run.
type State string

const (
	StateListing    State = "listing"
	StateDispatch   State = "dispatch"
	StateCollecting State = "collecting"
	StateReporting  State = "reporting"
	StateDone       State = "done"
)

// Directory lists the tenants a run will probe, optionally restricted to a
// set of names or IDs.
type Directory interface {
	Tenants(ctx context.Context, filter []string) ([]swift.Tenant, error)
}

// Reporter consumes the complete result set of a run.
type Reporter interface {
	Emit(records []swift.AccountUsage) error
}

// RunConfig configures one collection run.
type RunConfig struct {
	// Workers is the probe pool size. Default: DefaultWorkers.
	Workers int

	// Filter restricts the run to tenants whose name or ID is listed.
	// Empty means every tenant.
	Filter []string
}

// Run performs one batch collection: list tenants, dispatch one task per
// tenant, collect one record per task, report. A run is all-or-nothing per
// invocation; no transition is retried and no state survives it.
type Run struct {
	id       string
	cfg      RunConfig
	dir      Directory
	prober   swift.Prober
	reporter Reporter

	state State
}

// NewRun wires a run from its collaborators.
func NewRun(cfg RunConfig, dir Directory, prober swift.Prober, reporter Reporter) *Run {
	return &Run{
		id:       uuid.New().String(),
		cfg:      cfg,
		dir:      dir,
		prober:   prober,
		reporter: reporter,
	}
}

// Execute drives the run to completion and returns the result set. Listing
// failures abort before any task is dispatched; per-tenant probe failures do
// not abort the run and surface as marked records instead. A report output
// failure is returned after collection has already completed in memory.
func (r *Run) Execute(ctx context.Context) ([]swift.AccountUsage, error) {
	records, err := r.Collect(ctx)
	if err != nil {
		return nil, err
	}

	r.setState(ctx, StateReporting)
	if err := r.reporter.Emit(records); err != nil {
		return records, fmt.Errorf("run %s: emit report: %w", r.id, err)
	}

	r.setState(ctx, StateDone)
	return records, nil
}

// Collect runs the listing, dispatch and collecting states and returns the
// complete result set: exactly one record per enumerated tenant.
func (r *Run) Collect(ctx context.Context) ([]swift.AccountUsage, error) {
	r.setState(ctx, StateListing)
	tenants, err := r.dir.Tenants(ctx, r.cfg.Filter)
	if err != nil {
		return nil, fmt.Errorf("run %s: list tenants: %w", r.id, err)
	}
	logger.Ctx(ctx).Info().
		Str("run", r.id).
		Int("tenants", len(tenants)).
		Msg("tenant directory resolved")

	r.setState(ctx, StateDispatch)
	queue := NewQueue()
	sink := NewSink(len(tenants))
	for _, tenant := range tenants {
		if err := queue.Enqueue(&Task{Tenant: tenant}); err != nil {
			return nil, fmt.Errorf("run %s: enqueue %s: %w", r.id, tenant.Name, err)
		}
	}
	queue.Close()

	r.setState(ctx, StateCollecting)
	pool := NewPool(r.cfg.Workers, r.prober, queue, sink)
	pool.Start(ctx)
	pool.Wait()

	records := sink.Drain(len(tenants))
	if len(records) != len(tenants) {
		// Cannot happen while workers push exactly one record per task.
		return nil, fmt.Errorf("run %s: collected %d records for %d tenants", r.id, len(records), len(tenants))
	}
	return records, nil
}

// State returns the run's current state.
func (r *Run) State() State {
	return r.state
}

func (r *Run) setState(ctx context.Context, s State) {
	r.state = s
	logger.Ctx(ctx).Debug().Str("run", r.id).Str("state", string(s)).Msg("run state")
}
