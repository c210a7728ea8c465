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
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// command errors
var (
	// ErrUsage means the command was invoked with invalid arguments. No worker is started.
	ErrUsage = errors.New("usage error")
	// ErrFork means a worker process could not be spawned
	ErrFork = errors.New("fork failure")
)

// Options are the resque command options
type Options struct {
	// Queues are polled in list order - required
	Queues []string
	// Count is the number of workers - default 1
	Count int
	// Interval is the poll interval when the queues are empty - default 5s
	Interval time.Duration
	// NoFork runs a single worker in the current process
	NoFork bool
	// Respawn replaces workers that exit
	Respawn bool
}

// DefaultOptions returns the default options, with no queues
func DefaultOptions() Options {
	return Options{
		Count:    1,
		Interval: 5 * time.Second,
		Respawn:  true,
	}
}

// Validate returns an ErrUsage error if the options are invalid
func (o Options) Validate() error {
	switch {
	case len(o.Queues) == 0:
		return errors.Wrap(ErrUsage, "not enough arguments: at least one queue is required")
	case o.Count < 1:
		return errors.Wrapf(ErrUsage, "count must be at least 1: %d", o.Count)
	case o.Interval < 0:
		return errors.Wrapf(ErrUsage, "interval must not be negative: %s", o.Interval)
	case o.NoFork && o.Count != 1:
		return errors.Wrapf(ErrUsage, "no-fork requires count=1: %d", o.Count)
	}
	for _, q := range o.Queues {
		if q == "" {
			return errors.Wrap(ErrUsage, "queue name must not be blank")
		}
	}
	return nil
}

// Command runs the resque workers
type Command struct {
	Options
	// Processes spawns the worker processes, when not running in-process
	Processes Processes
	// NewWorker constructs the in-process worker
	NewWorker WorkerFactory
	Logger    *zerolog.Logger
	// Relay defaults to a Relay that is notified of the process signals while the command runs
	Relay *Relay
}

// Run validates the options, and then either runs a single worker in-process, or supervises a pool of worker processes.
// The returned Result tells the caller how the pool terminated.
func (c *Command) Run(ctx context.Context) (Result, error) {
	if err := c.Validate(); err != nil {
		return Result{}, err
	}
	spec := Spec{Queues: c.Queues, Interval: c.Interval}

	if c.NoFork {
		if c.NewWorker == nil {
			return Result{}, errors.New("NewWorker is required to run in-process")
		}
		worker, err := c.NewWorker(spec)
		if err != nil {
			return Result{}, err
		}
		if sig := RunWorker(ctx, worker); sig != 0 {
			return Result{Outcome: SignalTerminated, Signal: sig}, nil
		}
		return Result{Outcome: Drained}, nil
	}

	if c.Processes == nil {
		return Result{}, errors.New("Processes is required to run worker processes")
	}
	relay := c.Relay
	if relay == nil {
		relay = new(Relay)
		stop := relay.Notify()
		defer stop()
	}
	supervisor, err := NewSupervisor(SupervisorConfig{
		Count:     c.Count,
		Respawn:   c.Respawn,
		Processes: c.Processes,
		Relay:     relay,
		Logger:    c.Logger,
	})
	if err != nil {
		return Result{}, err
	}
	return supervisor.Run()
}

// RunWorker runs the worker in the current process, controlled by the signals that the process receives.
// It returns the terminating signal, or 0 if the context was cancelled.
func RunWorker(ctx context.Context, worker *Worker) syscall.Signal {
	control := make(chan os.Signal, len(TerminatingSignals)+len(RelayedSignals))
	signal.Notify(control, append(append([]os.Signal{}, TerminatingSignals...), RelayedSignals...)...)
	defer signal.Stop(control)
	return worker.Work(ctx, control)
}
