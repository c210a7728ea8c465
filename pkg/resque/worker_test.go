/*
 * Copyright (c) 2019 OysterPack, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package resque_test

import (
	"context"
	"errors"
	"fmt"
	"github.com/oysterpack/synapse/pkg/eventlog"
	"github.com/oysterpack/synapse/pkg/fxapptest"
	"github.com/oysterpack/synapse/pkg/queue"
	"github.com/oysterpack/synapse/pkg/resque"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

type doneRecord struct {
	job *queue.Job
	err error
}

type fakeBackend struct {
	m     sync.Mutex
	jobs  []*queue.Job
	pops  int
	done  []doneRecord
	onPop func(pops int)
}

func (b *fakeBackend) Pop(ctx context.Context, queues []string, worker string) (*queue.Job, error) {
	b.m.Lock()
	b.pops++
	pops := b.pops
	var job *queue.Job
	if len(b.jobs) > 0 {
		job, b.jobs = b.jobs[0], b.jobs[1:]
	}
	onPop := b.onPop
	b.m.Unlock()
	if onPop != nil {
		onPop(pops)
	}
	return job, nil
}

func (b *fakeBackend) Done(ctx context.Context, job *queue.Job, jobErr error) error {
	b.m.Lock()
	defer b.m.Unlock()
	b.done = append(b.done, doneRecord{job, jobErr})
	return nil
}

func (b *fakeBackend) Pops() int {
	b.m.Lock()
	defer b.m.Unlock()
	return b.pops
}

func (b *fakeBackend) Completed() []doneRecord {
	b.m.Lock()
	defer b.m.Unlock()
	return append([]doneRecord(nil), b.done...)
}

type performerFunc func(ctx context.Context, job *queue.Job) error

func (f performerFunc) Perform(ctx context.Context, job *queue.Job) error {
	return f(ctx, job)
}

// recordHooks records each lifecycle event as "event:jobID"
func recordHooks(hooks *resque.Hooks) func() []string {
	var (
		m      sync.Mutex
		events []string
	)
	for _, event := range []resque.Event{resque.BeforePerform, resque.OnFailure, resque.AfterPerform} {
		event := event
		hooks.On(event, func(ctx context.Context, job *queue.Job, err error) {
			m.Lock()
			defer m.Unlock()
			events = append(events, fmt.Sprintf("%s:%s", event, job.ID))
		})
	}
	return func() []string {
		m.Lock()
		defer m.Unlock()
		return append([]string(nil), events...)
	}
}

func newTestWorker(t *testing.T, backend resque.Backend, performer resque.Performer, hooks *resque.Hooks, log *fxapptest.SyncLog) *resque.Worker {
	logger := eventlog.NewZeroLogger(log)
	worker, err := resque.NewWorker(resque.WorkerConfig{
		Spec:      resque.Spec{Queues: []string{"high", "low"}, Interval: time.Millisecond},
		Backend:   backend,
		Performer: performer,
		Hooks:     hooks,
		Logger:    &logger,
	})
	require.NoError(t, err)
	return worker
}

func TestNewWorker(t *testing.T) {
	t.Parallel()
	logger := zerolog.Nop()
	backend := &fakeBackend{}
	noop := performerFunc(func(context.Context, *queue.Job) error { return nil })

	_, err := resque.NewWorker(resque.WorkerConfig{Backend: backend, Performer: noop, Logger: &logger})
	assert.True(t, errors.Is(err, resque.ErrUsage), "queues are required")

	_, err = resque.NewWorker(resque.WorkerConfig{
		Spec:    resque.Spec{Queues: []string{"a"}, Interval: -time.Second},
		Backend: backend, Performer: noop, Logger: &logger,
	})
	assert.True(t, errors.Is(err, resque.ErrUsage), "negative interval")

	_, err = resque.NewWorker(resque.WorkerConfig{Spec: resque.Spec{Queues: []string{"a"}}, Logger: &logger})
	assert.Error(t, err)

	worker, err := resque.NewWorker(resque.WorkerConfig{
		Spec:    resque.Spec{Queues: []string{"high", "low"}},
		Backend: backend, Performer: noop, Logger: &logger,
	})
	require.NoError(t, err)
	host, _ := os.Hostname()
	assert.Equal(t, fmt.Sprintf("%s:%d:high,low", host, os.Getpid()), worker.ID())
}

// A failed job invokes onFailure exactly once, and the worker then polls for the next job.
func TestWorker_JobFailureIsolation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := &fakeBackend{
		jobs: []*queue.Job{{ID: "1", Class: "fail"}, {ID: "2", Class: "ok"}},
		onPop: func(pops int) {
			if pops == 3 {
				cancel()
			}
		},
	}
	jobErr := errors.New("BOOM")
	performer := performerFunc(func(ctx context.Context, job *queue.Job) error {
		if job.Class == "fail" {
			return jobErr
		}
		return nil
	})
	hooks := resque.NewHooks()
	events := recordHooks(hooks)
	log := fxapptest.NewSyncLog()
	worker := newTestWorker(t, backend, performer, hooks, log)

	assert.Zero(t, worker.Work(ctx, nil))
	assert.Equal(t, []string{
		"beforePerform:1", "onFailure:1", "afterPerform:1",
		"beforePerform:2", "afterPerform:2",
	}, events())
	assert.Equal(t, 3, backend.Pops(), "the worker should keep polling after a failed job")

	done := backend.Completed()
	require.Len(t, done, 2)
	assert.Equal(t, jobErr, done[0].err)
	assert.NoError(t, done[1].err)

	logEvents, err := log.Events()
	require.NoError(t, err)
	started := fxapptest.FilterByName(logEvents, string(resque.WorkerStartedEvent))
	require.Len(t, started, 1)
	assert.Equal(t, "*** Starting worker "+worker.ID(), started[0].Message())
	assert.Len(t, fxapptest.FilterByName(logEvents, string(resque.JobPerformedEvent)), 1)
	assert.Len(t, fxapptest.FilterByName(logEvents, string(resque.WorkerStoppedEvent)), 1)
}

// beforePerform fires exactly once immediately before the job, and afterPerform exactly once immediately after,
// regardless of the job outcome.
func TestWorker_HookOrdering(t *testing.T) {
	t.Parallel()
	cases := map[string]func(ctx context.Context, job *queue.Job) error{
		"success": func(ctx context.Context, job *queue.Job) error { return nil },
		"failure": func(ctx context.Context, job *queue.Job) error { return errors.New("BOOM") },
		"panic":   func(ctx context.Context, job *queue.Job) error { panic("BOOM") },
	}
	for name, perform := range cases {
		perform := perform
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			var (
				m        sync.Mutex
				sequence []string
			)
			add := func(s string) {
				m.Lock()
				sequence = append(sequence, s)
				m.Unlock()
			}
			backend := &fakeBackend{
				jobs: []*queue.Job{{ID: "1"}},
				onPop: func(pops int) {
					if pops == 2 {
						cancel()
					}
				},
			}
			hooks := resque.NewHooks()
			hooks.On(resque.BeforePerform, func(context.Context, *queue.Job, error) { add("before") })
			hooks.On(resque.AfterPerform, func(context.Context, *queue.Job, error) { add("after") })
			performer := performerFunc(func(ctx context.Context, job *queue.Job) error {
				add("perform")
				return perform(ctx, job)
			})
			worker := newTestWorker(t, backend, performer, hooks, fxapptest.NewSyncLog())
			worker.Work(ctx, nil)

			assert.Equal(t, []string{"before", "perform", "after"}, sequence)
		})
	}
}

func TestWorker_PanicIsJobFailure(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	backend := &fakeBackend{
		jobs:  []*queue.Job{{ID: "1"}},
		onPop: func(pops int) { cancel() },
	}
	var failure error
	hooks := resque.NewHooks()
	hooks.On(resque.OnFailure, func(ctx context.Context, job *queue.Job, err error) { failure = err })
	worker := newTestWorker(t, backend, performerFunc(func(context.Context, *queue.Job) error { panic("BOOM") }), hooks, fxapptest.NewSyncLog())
	worker.Work(ctx, nil)
	require.Error(t, failure)
	assert.Contains(t, failure.Error(), "BOOM")
}

type workResult struct {
	sig syscall.Signal
}

func startWorker(ctx context.Context, worker *resque.Worker, control <-chan os.Signal) <-chan workResult {
	result := make(chan workResult, 1)
	go func() {
		result <- workResult{worker.Work(ctx, control)}
	}()
	return result
}

func awaitResult(t *testing.T, result <-chan workResult) syscall.Signal {
	select {
	case r := <-result:
		return r.sig
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not stop")
		return 0
	}
}

func TestWorker_ControlSignals(t *testing.T) {
	t.Parallel()

	t.Run("SIGQUIT finishes the current job, and then stops the worker", func(t *testing.T) {
		t.Parallel()
		started, release := make(chan struct{}), make(chan struct{})
		var jobCtxErr atomic.Value
		backend := &fakeBackend{jobs: []*queue.Job{{ID: "1"}, {ID: "2"}}}
		performer := performerFunc(func(ctx context.Context, job *queue.Job) error {
			close(started)
			<-release
			jobCtxErr.Store(fmt.Sprint(ctx.Err()))
			return nil
		})
		worker := newTestWorker(t, backend, performer, resque.NewHooks(), fxapptest.NewSyncLog())
		control := make(chan os.Signal, 1)
		result := startWorker(context.Background(), worker, control)

		<-started
		control <- unix.SIGQUIT
		time.Sleep(10 * time.Millisecond)
		close(release)

		assert.Equal(t, unix.SIGQUIT, awaitResult(t, result))
		assert.Equal(t, "<nil>", jobCtxErr.Load(), "the job should not have been cancelled")
		assert.Equal(t, 1, backend.Pops(), "the worker should stop after the current job")
		done := backend.Completed()
		require.Len(t, done, 1)
		assert.NoError(t, done[0].err)
	})

	t.Run("SIGTERM cancels the current job, and stops the worker", func(t *testing.T) {
		t.Parallel()
		started := make(chan struct{})
		backend := &fakeBackend{jobs: []*queue.Job{{ID: "1"}, {ID: "2"}}}
		performer := performerFunc(func(ctx context.Context, job *queue.Job) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})
		worker := newTestWorker(t, backend, performer, resque.NewHooks(), fxapptest.NewSyncLog())
		control := make(chan os.Signal, 1)
		result := startWorker(context.Background(), worker, control)

		<-started
		control <- unix.SIGTERM
		assert.Equal(t, unix.SIGTERM, awaitResult(t, result))
		done := backend.Completed()
		require.Len(t, done, 1)
		assert.Equal(t, context.Canceled, done[0].err)
	})

	t.Run("SIGUSR1 cancels the current job only", func(t *testing.T) {
		t.Parallel()
		started := make(chan struct{})
		var performed int32
		backend := &fakeBackend{jobs: []*queue.Job{{ID: "1"}, {ID: "2"}}}
		performer := performerFunc(func(ctx context.Context, job *queue.Job) error {
			atomic.AddInt32(&performed, 1)
			if job.ID == "1" {
				close(started)
				<-ctx.Done()
				return ctx.Err()
			}
			return nil
		})
		worker := newTestWorker(t, backend, performer, resque.NewHooks(), fxapptest.NewSyncLog())
		control := make(chan os.Signal, 1)
		result := startWorker(context.Background(), worker, control)

		<-started
		control <- unix.SIGUSR1
		require.Eventually(t, func() bool { return atomic.LoadInt32(&performed) == 2 }, 5*time.Second, time.Millisecond)
		control <- unix.SIGINT
		assert.Equal(t, unix.SIGINT, awaitResult(t, result))
		done := backend.Completed()
		require.Len(t, done, 2)
		assert.Equal(t, context.Canceled, done[0].err)
		assert.NoError(t, done[1].err)
	})

	t.Run("SIGUSR2 pauses polling, SIGCONT resumes", func(t *testing.T) {
		t.Parallel()
		backend := &fakeBackend{}
		log := fxapptest.NewSyncLog()
		worker := newTestWorker(t, backend, performerFunc(func(context.Context, *queue.Job) error { return nil }), resque.NewHooks(), log)
		control := make(chan os.Signal, 1)
		result := startWorker(context.Background(), worker, control)

		hasEvent := func(event string) func() bool {
			return func() bool { return strings.Contains(log.String(), event) }
		}
		require.Eventually(t, func() bool { return backend.Pops() > 0 }, 5*time.Second, time.Millisecond)
		control <- unix.SIGUSR2
		require.Eventually(t, hasEvent(string(resque.WorkerPausedEvent)), 5*time.Second, time.Millisecond)
		pops := backend.Pops()
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, pops, backend.Pops(), "a paused worker should not poll")

		control <- unix.SIGCONT
		require.Eventually(t, hasEvent(string(resque.WorkerResumedEvent)), 5*time.Second, time.Millisecond)
		require.Eventually(t, func() bool { return backend.Pops() > pops }, 5*time.Second, time.Millisecond)

		control <- unix.SIGTERM
		assert.Equal(t, unix.SIGTERM, awaitResult(t, result))
	})

	t.Run("SIGPIPE reconnects", func(t *testing.T) {
		t.Parallel()
		var reconnects int32
		logger := zerolog.Nop()
		worker, err := resque.NewWorker(resque.WorkerConfig{
			Spec:      resque.Spec{Queues: []string{"default"}, Interval: time.Millisecond},
			Backend:   &fakeBackend{},
			Performer: performerFunc(func(context.Context, *queue.Job) error { return nil }),
			Logger:    &logger,
			Reconnect: func() error {
				atomic.AddInt32(&reconnects, 1)
				return nil
			},
		})
		require.NoError(t, err)
		control := make(chan os.Signal, 1)
		result := startWorker(context.Background(), worker, control)
		control <- unix.SIGPIPE
		require.Eventually(t, func() bool { return atomic.LoadInt32(&reconnects) == 1 }, 5*time.Second, time.Millisecond)
		control <- unix.SIGQUIT
		assert.Equal(t, unix.SIGQUIT, awaitResult(t, result))
	})
}
