// Copyright 2025 Swiftmeter Authors
// SPDX-License-Identifier: Apache-2.0

package collector_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stackwatch/swiftmeter/pkg/collector"
	"github.com/stackwatch/swiftmeter/pkg/swift"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProber implements swift.Prober with a per-tenant behavior table.
type fakeProber struct {
	calls   atomic.Int64
	delay   time.Duration
	fail    map[string]error
	panicOn string
}

func (p *fakeProber) Probe(ctx context.Context, tenant swift.Tenant) (swift.AccountUsage, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if tenant.Name == p.panicOn {
		panic("prober exploded")
	}
	if err, ok := p.fail[tenant.Name]; ok {
		return swift.AccountUsage{}, err
	}
	return swift.AccountUsage{
		Tenant:      tenant,
		BytesUsed:   1024,
		ObjectCount: 10,
		QuotaBytes:  swift.QuotaUnset,
	}, nil
}

func tenants(n int) []swift.Tenant {
	out := make([]swift.Tenant, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, swift.Tenant{
			ID:   fmt.Sprintf("id-%03d", i),
			Name: fmt.Sprintf("tenant-%03d", i),
		})
	}
	return out
}

func collect(t *testing.T, pool *collector.Pool, queue *collector.Queue, sink *collector.Sink, n int) []swift.AccountUsage {
	t.Helper()

	pool.Start(context.Background())

	done := make(chan []swift.AccountUsage, 1)
	go func() {
		pool.Wait()
		done <- sink.Drain(n)
	}()

	select {
	case records := <-done:
		return records
	case <-time.After(10 * time.Second):
		t.Fatal("run did not terminate")
		return nil
	}
}

func TestPool_CollectsEveryTenant(t *testing.T) {
	t.Parallel()

	all := tenants(25)
	queue := collector.NewQueue()
	for _, tn := range all {
		require.NoError(t, queue.Enqueue(&collector.Task{Tenant: tn}))
	}
	queue.Close()

	sink := collector.NewSink(len(all))
	prober := &fakeProber{}
	pool := collector.NewPool(4, prober, queue, sink)

	records := collect(t, pool, queue, sink, len(all))

	require.Len(t, records, len(all))
	seen := make(map[string]int)
	for _, rec := range records {
		seen[rec.Tenant.ID]++
	}
	assert.Len(t, seen, len(all), "every tenant exactly once")
	assert.Equal(t, int64(len(all)), prober.calls.Load())
}

func TestPool_FailedProbeDoesNotHangRun(t *testing.T) {
	t.Parallel()

	all := tenants(5)
	queue := collector.NewQueue()
	for _, tn := range all {
		require.NoError(t, queue.Enqueue(&collector.Task{Tenant: tn}))
	}
	queue.Close()

	sink := collector.NewSink(len(all))
	prober := &fakeProber{
		fail: map[string]error{"tenant-002": errors.New("connection refused")},
	}
	pool := collector.NewPool(2, prober, queue, sink)

	records := collect(t, pool, queue, sink, len(all))

	require.Len(t, records, 5)
	var failed []swift.AccountUsage
	for _, rec := range records {
		if rec.Failed() {
			failed = append(failed, rec)
		}
	}
	require.Len(t, failed, 1)
	assert.Equal(t, "tenant-002", failed[0].Tenant.Name)
	assert.Equal(t, swift.QuotaUnset, failed[0].QuotaBytes)
	assert.ErrorContains(t, failed[0].Err, "connection refused")
}

func TestPool_PanicInProbeStillAccountsTask(t *testing.T) {
	t.Parallel()

	all := tenants(4)
	queue := collector.NewQueue()
	for _, tn := range all {
		require.NoError(t, queue.Enqueue(&collector.Task{Tenant: tn}))
	}
	queue.Close()

	sink := collector.NewSink(len(all))
	prober := &fakeProber{panicOn: "tenant-001"}
	pool := collector.NewPool(2, prober, queue, sink)

	records := collect(t, pool, queue, sink, len(all))

	require.Len(t, records, 4)
	var failed int
	for _, rec := range records {
		if rec.Failed() {
			failed++
			assert.ErrorContains(t, rec.Err, "panic")
		}
	}
	assert.Equal(t, 1, failed)
}

func TestPool_MoreWorkersThanTasks(t *testing.T) {
	t.Parallel()

	all := tenants(2)
	queue := collector.NewQueue()
	for _, tn := range all {
		require.NoError(t, queue.Enqueue(&collector.Task{Tenant: tn}))
	}
	queue.Close()

	sink := collector.NewSink(len(all))
	pool := collector.NewPool(16, &fakeProber{}, queue, sink)

	records := collect(t, pool, queue, sink, len(all))
	assert.Len(t, records, 2)
}

func TestPool_EmptyQueue(t *testing.T) {
	t.Parallel()

	queue := collector.NewQueue()
	queue.Close()
	sink := collector.NewSink(0)
	pool := collector.NewPool(4, &fakeProber{}, queue, sink)

	records := collect(t, pool, queue, sink, 0)
	assert.Empty(t, records)
}

func TestPool_DefaultWorkerCount(t *testing.T) {
	t.Parallel()

	all := tenants(8)
	queue := collector.NewQueue()
	for _, tn := range all {
		require.NoError(t, queue.Enqueue(&collector.Task{Tenant: tn}))
	}
	queue.Close()

	sink := collector.NewSink(len(all))
	pool := collector.NewPool(0, &fakeProber{delay: time.Millisecond}, queue, sink)

	records := collect(t, pool, queue, sink, len(all))
	assert.Len(t, records, 8)
}
