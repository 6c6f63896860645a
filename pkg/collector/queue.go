// Copyright 2025 Swiftmeter Authors
// SPDX-License-Identifier: Apache-2.0

// Package collector implements the concurrent collection engine: a task
// queue feeding a fixed-size worker pool, a result sink, and the run
// orchestrator that ties them to the tenant directory and report output.
package collector

import (
	"errors"
	"sync"

	"github.com/stackwatch/swiftmeter/pkg/swift"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrQueueClosed = errors.New("task queue is closed")
)

// Task wraps exactly one tenant; it is created by the run, enqueued once,
// and consumed exactly once by a worker.
type Task struct {
	ID     string
	Tenant swift.Tenant
}

// Queue is a multi-producer/multi-consumer FIFO of tasks. Besides holding
// tasks it carries the run's in-flight accounting: every enqueued task must
// be marked done exactly once, success or failure, and Wait blocks until all
// of them are. That barrier is independent of whether the results have been
// read from the sink.
type Queue struct {
	mu     sync.Mutex
	tasks  []*Task
	closed bool

	pending sync.WaitGroup
}

// NewQueue creates an empty task queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue adds a task and registers it with the completion barrier.
func (q *Queue) Enqueue(task *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	q.tasks = append(q.tasks, task)
	q.pending.Add(1)
	return nil
}

// TryDequeue pops the oldest task without blocking. The second return is
// false when the queue is empty, which is a worker's signal to exit.
func (q *Queue) TryDequeue() (*Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil, false
	}
	task := q.tasks[0]
	q.tasks = q.tasks[1:]
	return task, true
}

// Close marks the queue as complete: no further tasks will be added.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// Done marks one dequeued task as completed. Callers must invoke it exactly
// once per dequeued task, on every exit path.
func (q *Queue) Done() {
	q.pending.Done()
}

// Wait blocks until every enqueued task has been marked done.
func (q *Queue) Wait() {
	q.pending.Wait()
}

// Len returns the number of tasks not yet dequeued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Sink is a multi-producer/single-consumer buffer of usage records. Its
// capacity must cover every task of the run so workers never block on it.
type Sink struct {
	records chan swift.AccountUsage
}

// NewSink creates a sink with room for n records.
func NewSink(n int) *Sink {
	return &Sink{records: make(chan swift.AccountUsage, n)}
}

// Push adds one record. It must not be called more times than the sink's
// capacity allows.
func (s *Sink) Push(record swift.AccountUsage) {
	s.records <- record
}

// Drain receives exactly n records. It is intended to be called after the
// queue's barrier is satisfied, when all n records are already buffered.
func (s *Sink) Drain(n int) []swift.AccountUsage {
	out := make([]swift.AccountUsage, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, <-s.records)
	}
	return out
}
