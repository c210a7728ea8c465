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

package resque

import (
	"context"
	"fmt"
	"github.com/oysterpack/synapse/pkg/eventlog"
	"github.com/oysterpack/synapse/pkg/queue"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
	"os"
	"strings"
	"syscall"
	"time"
)

// Backend is the job queue backend that workers poll
type Backend interface {
	// Pop claims the next job from the first non-empty queue, checking the queues in list order.
	// nil is returned if all queues are empty.
	Pop(ctx context.Context, queues []string, worker string) (*queue.Job, error)
	// Done records the job outcome
	Done(ctx context.Context, job *queue.Job, jobErr error) error
}

// Performer performs jobs
type Performer interface {
	Perform(ctx context.Context, job *queue.Job) error
}

// Spec specifies which queues a worker polls, and how often
type Spec struct {
	// Queues are polled in list order
	Queues []string
	// Interval is how long the worker waits before polling again when all queues are empty
	Interval time.Duration
}

// WorkerConfig is used to construct a Worker
type WorkerConfig struct {
	Spec
	Backend   Backend
	Performer Performer
	Hooks     *Hooks
	Logger    *zerolog.Logger
	// Reconnect is invoked on SIGPIPE - optional
	Reconnect func() error
}

// Worker polls queues and performs jobs, one at a time
type Worker struct {
	id string
	Spec
	backend   Backend
	performer Performer
	hooks     *Hooks
	reconnect func() error

	paused bool

	logStarted    eventlog.Logger
	logStopped    eventlog.Logger
	logPaused     eventlog.Logger
	logResumed    eventlog.Logger
	logSignal     eventlog.Logger
	logPerformed  eventlog.Logger
	logPopFailed  eventlog.ErrorLogger
	logDoneFailed eventlog.ErrorLogger
	logHookFailed eventlog.ErrorLogger
}

// NewWorker constructs a new Worker
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if len(cfg.Queues) == 0 {
		return nil, errors.Wrap(ErrUsage, "at least one queue is required")
	}
	if cfg.Interval < 0 {
		return nil, errors.Wrap(ErrUsage, "interval must not be negative")
	}
	if cfg.Backend == nil || cfg.Performer == nil || cfg.Logger == nil {
		return nil, errors.New("worker Backend, Performer, and Logger are required")
	}
	if cfg.Hooks == nil {
		cfg.Hooks = NewHooks()
	}
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	logger := eventlog.ForComponent(cfg.Logger, "resque.Worker")
	return &Worker{
		id:        fmt.Sprintf("%s:%d:%s", host, os.Getpid(), strings.Join(cfg.Queues, ",")),
		Spec:      cfg.Spec,
		backend:   cfg.Backend,
		performer: cfg.Performer,
		hooks:     cfg.Hooks,
		reconnect: cfg.Reconnect,

		logStarted:    WorkerStartedEvent.NewLogger(logger, zerolog.InfoLevel),
		logStopped:    WorkerStoppedEvent.NewLogger(logger, zerolog.InfoLevel),
		logPaused:     WorkerPausedEvent.NewLogger(logger, zerolog.InfoLevel),
		logResumed:    WorkerResumedEvent.NewLogger(logger, zerolog.InfoLevel),
		logSignal:     WorkerSignalEvent.NewLogger(logger, zerolog.InfoLevel),
		logPerformed:  JobPerformedEvent.NewLogger(logger, zerolog.InfoLevel),
		logPopFailed:  PopFailedEvent.NewErrorLogger(logger),
		logDoneFailed: JobDoneFailedEvent.NewErrorLogger(logger),
		logHookFailed: HookFailedEvent.NewErrorLogger(logger),
	}, nil
}

// ID returns the worker ID: ${hostname}:${pid}:${queues}
func (w *Worker) ID() string {
	return w.id
}

func (w *Worker) String() string {
	return w.id
}

// Paused returns true if polling is paused
func (w *Worker) Paused() bool {
	return w.paused
}

// Work polls the queues until the context is cancelled, or a terminating signal is received on the control channel.
// The terminating signal is returned, or 0 if the context was cancelled.
//
// Control signals:
//   - SIGQUIT: finish the current job, then stop
//   - SIGTERM, SIGINT: cancel the current job, then stop
//   - SIGUSR1: cancel the current job
//   - SIGUSR2: pause polling
//   - SIGCONT: resume polling
//   - SIGPIPE: reconnect
//
// A job failure never stops the worker.
func (w *Worker) Work(ctx context.Context, control <-chan os.Signal) syscall.Signal {
	w.logStarted(workerInfo{w.id, w.Queues, w.Interval}, "*** Starting worker "+w.id)
	for {
		if ctx.Err() != nil {
			w.logStopped(workerInfo{w.id, w.Queues, w.Interval}, "worker stopped")
			return 0
		}

		if !w.paused {
			job, err := w.backend.Pop(ctx, w.Queues, w.id)
			if err != nil {
				if ctx.Err() == nil {
					w.logPopFailed(nil, err, "failed to pop job")
				}
			} else if job != nil {
				if sig := w.perform(ctx, job, control); sig != 0 {
					w.logStopped(signalInfo{sig: sig}, "worker stopped")
					return sig
				}
				continue
			}
		}

		timer := time.NewTimer(w.Interval)
		select {
		case <-ctx.Done():
		case sig := <-control:
			if s := w.handle(sig, nil); s != 0 {
				timer.Stop()
				w.logStopped(signalInfo{sig: s}, "worker stopped")
				return s
			}
		case <-timer.C:
		}
		timer.Stop()
	}
}

// handle applies the control signal. cancelJob is nil when no job is being performed.
// The signal is returned if it stops the worker; otherwise 0.
func (w *Worker) handle(sig os.Signal, cancelJob context.CancelFunc) syscall.Signal {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return 0
	}
	w.logSignal(signalInfo{sig: s}, "worker received signal")
	switch s {
	case unix.SIGQUIT:
		return s
	case unix.SIGTERM, unix.SIGINT:
		if cancelJob != nil {
			cancelJob()
		}
		return s
	case unix.SIGUSR1:
		if cancelJob != nil {
			cancelJob()
		}
	case unix.SIGUSR2:
		if !w.paused {
			w.paused = true
			w.logPaused(nil, "worker paused")
		}
	case unix.SIGCONT:
		if w.paused {
			w.paused = false
			w.logResumed(nil, "worker resumed")
		}
	case unix.SIGPIPE:
		if w.reconnect != nil {
			if err := w.reconnect(); err != nil {
				w.logHookFailed(nil, err, "reconnect failed")
			}
		}
	}
	return 0
}

// perform runs the job with its lifecycle hooks, and records the outcome with the backend.
// If a terminating signal is received while the job is running, then it is returned after the job completes.
func (w *Worker) perform(ctx context.Context, job *queue.Job, control <-chan os.Signal) (stop syscall.Signal) {
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	w.hooks.Fire(ctx, BeforePerform, job, nil)
	done := make(chan error, 1)
	go func() {
		done <- w.run(jobCtx, job)
	}()

	var err error
WAIT:
	for {
		select {
		case err = <-done:
			break WAIT
		case sig := <-control:
			if s := w.handle(sig, cancel); s != 0 && stop == 0 {
				stop = s
			}
		}
	}

	if err != nil {
		w.hooks.Fire(ctx, OnFailure, job, err)
	}
	w.hooks.Fire(ctx, AfterPerform, job, err)
	if doneErr := w.backend.Done(context.WithoutCancel(ctx), job, err); doneErr != nil {
		w.logDoneFailed(jobInfo{Job: job}, doneErr, "failed to record job outcome")
	}
	if err == nil {
		w.logPerformed(jobInfo{job, time.Since(start)}, "job performed")
	}
	return stop
}

// run performs the job. A panic is recovered and returned as the job error.
func (w *Worker) run(ctx context.Context, job *queue.Job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("job panicked: %v", p)
		}
	}()
	return w.performer.Perform(ctx, job)
}
