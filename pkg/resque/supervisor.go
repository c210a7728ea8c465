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
	"fmt"
	"github.com/oysterpack/synapse/pkg/eventlog"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
	"sort"
	"syscall"
	"time"
)

// Tick is how long the supervisor sleeps between supervision passes
const Tick = 250 * time.Millisecond

// ExitStatus describes how a worker process exited
type ExitStatus struct {
	// Code is the exit code, if the process exited
	Code int
	// Signal is set if the process was killed by a signal
	Signal syscall.Signal
}

func (s ExitStatus) String() string {
	if s.Signal != 0 {
		return fmt.Sprintf("Killed(%s)", signalName(s.Signal))
	}
	return fmt.Sprintf("Exited(%d)", s.Code)
}

// Processes manages the worker processes
type Processes interface {
	// Spawn starts a new worker process
	Spawn() (pid int, err error)
	// ReapAny reaps an exited worker process without blocking. ok is false if no process has exited.
	ReapAny() (pid int, status ExitStatus, ok bool, err error)
	// Wait blocks until the process exits, and reaps it
	Wait(pid int) (ExitStatus, error)
	// Signal sends the signal to the process
	Signal(pid int, sig syscall.Signal) error
}

// State is the supervisor state
type State uint8

// supervisor states
const (
	Starting State = iota
	Running
	Draining
	Terminated
)

func (s State) String() string {
	switch s {
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	case Draining:
		return "Draining"
	case Terminated:
		return "Terminated"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Outcome is how the pool ended
type Outcome uint8

// pool outcomes
const (
	// SignalTerminated means a terminating signal drained the pool
	SignalTerminated Outcome = iota + 1
	// Drained means the workers stopped without a terminating signal, and were not replaced
	Drained
)

func (o Outcome) String() string {
	switch o {
	case SignalTerminated:
		return "SignalTerminated"
	case Drained:
		return "Drained"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}

// Result is returned when the pool terminates
type Result struct {
	Outcome
	// Signal is the terminating signal
	Signal syscall.Signal
}

// SupervisorConfig is used to construct a Supervisor
type SupervisorConfig struct {
	// Count is the number of worker processes
	Count int
	// Respawn replaces workers that exit
	Respawn   bool
	Processes Processes
	Relay     *Relay
	Logger    *zerolog.Logger
	// Sleep defaults to time.Sleep
	Sleep func(time.Duration)
}

// Supervisor owns the pool of worker processes.
//
// The supervision loop is single threaded. The Relay is the only state that is shared with signal delivery.
type Supervisor struct {
	count     int
	respawn   bool
	processes Processes
	relay     *Relay
	sleep     func(time.Duration)

	state    State
	children map[int]struct{}

	logSpawned    eventlog.Logger
	logForkFailed eventlog.ErrorLogger
	logChildDied  eventlog.Logger
	logRelayed    eventlog.Logger
	logTerminated eventlog.Logger
	logDrained    eventlog.Logger
	logReapFailed eventlog.ErrorLogger
}

// NewSupervisor constructs a new Supervisor
func NewSupervisor(cfg SupervisorConfig) (*Supervisor, error) {
	if cfg.Count < 1 {
		return nil, errors.Wrapf(ErrUsage, "count must be at least 1: %d", cfg.Count)
	}
	if cfg.Processes == nil || cfg.Logger == nil {
		return nil, errors.New("supervisor Processes and Logger are required")
	}
	if cfg.Relay == nil {
		cfg.Relay = new(Relay)
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	logger := eventlog.ForComponent(cfg.Logger, "resque.Supervisor")
	return &Supervisor{
		count:     cfg.Count,
		respawn:   cfg.Respawn,
		processes: cfg.Processes,
		relay:     cfg.Relay,
		sleep:     cfg.Sleep,
		children:  make(map[int]struct{}, cfg.Count),

		logSpawned:    ChildSpawnedEvent.NewLogger(logger, zerolog.InfoLevel),
		logForkFailed: ForkFailedEvent.NewErrorLogger(logger),
		logChildDied:  ChildDiedEvent.NewLogger(logger, zerolog.ErrorLevel),
		logRelayed:    SignalRelayedEvent.NewLogger(logger, zerolog.InfoLevel),
		logTerminated: PoolTerminatedEvent.NewLogger(logger, zerolog.InfoLevel),
		logDrained:    PoolDrainedEvent.NewLogger(logger, zerolog.WarnLevel),
		logReapFailed: ReapFailedEvent.NewErrorLogger(logger),
	}, nil
}

// State returns the supervisor state
func (s *Supervisor) State() State {
	return s.state
}

// Children returns the tracked worker PIDs, sorted
func (s *Supervisor) Children() []int {
	pids := make([]int, 0, len(s.children))
	for pid := range s.children {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids
}

// Run spawns the workers and supervises them until a terminating signal drains the pool, or all workers have exited.
//
// Each supervision pass:
//  1. reaps every exited worker, without blocking
//  2. sleeps for a Tick
//  3. relays the pending signal to every tracked worker. On a terminating signal, every worker is reaped before Run returns.
//  4. replaces exited workers, if respawn is enabled
//
// ErrFork is returned if a worker cannot be spawned. The workers that were already spawned are terminated first.
func (s *Supervisor) Run() (Result, error) {
	s.state = Starting
	if err := s.fill(); err != nil {
		return Result{}, err
	}
	s.state = Running

	for {
		s.reap()
		if len(s.children) == 0 && !s.respawn {
			s.state = Terminated
			s.logDrained(poolInfo{s.count, 0}, "all workers have exited")
			return Result{Outcome: Drained}, nil
		}

		s.sleep(Tick)

		if sig, ok := s.relay.Consume(); ok {
			pids := s.Children()
			for _, pid := range pids {
				// the worker may have already exited
				_ = s.processes.Signal(pid, sig)
			}
			s.logRelayed(signalInfo{sig, pids}, "signal relayed to workers")
			if IsTerminating(sig) {
				s.drain()
				s.logTerminated(signalInfo{sig: sig}, "workers terminated")
				return Result{Outcome: SignalTerminated, Signal: sig}, nil
			}
		}

		if s.respawn {
			if err := s.fill(); err != nil {
				return Result{}, err
			}
		}
	}
}

// fill spawns workers until the pool is full
func (s *Supervisor) fill() error {
	for len(s.children) < s.count {
		pid, err := s.processes.Spawn()
		if err != nil {
			err = errors.Wrapf(ErrFork, "could not fork worker %d: %v", len(s.children), err)
			s.logForkFailed(poolInfo{s.count, len(s.children)}, err, "Could not fork worker")
			s.abort()
			return err
		}
		s.children[pid] = struct{}{}
		s.logSpawned(childInfo{pid: pid}, "worker spawned")
	}
	return nil
}

// reap removes every exited worker from the pool
func (s *Supervisor) reap() {
	for {
		pid, status, ok, err := s.processes.ReapAny()
		if err != nil {
			s.logReapFailed(nil, err, "failed to reap workers")
			return
		}
		if !ok {
			return
		}
		if _, tracked := s.children[pid]; !tracked {
			continue
		}
		delete(s.children, pid)
		s.logChildDied(childInfo{pid, status}, fmt.Sprintf("A child worker died: %d", pid))
	}
}

// drain blocks until every tracked worker has been reaped
func (s *Supervisor) drain() (err error) {
	s.state = Draining
	for _, pid := range s.Children() {
		status, waitErr := s.processes.Wait(pid)
		delete(s.children, pid)
		if waitErr != nil {
			err = multierr.Append(err, waitErr)
			continue
		}
		s.logChildDied(childInfo{pid, status}, fmt.Sprintf("A child worker died: %d", pid))
	}
	s.state = Terminated
	if err != nil {
		s.logReapFailed(nil, err, "failed to reap workers")
	}
	return err
}

// abort terminates the workers that were already spawned
func (s *Supervisor) abort() {
	for _, pid := range s.Children() {
		_ = s.processes.Signal(pid, unix.SIGTERM)
	}
	s.drain()
}
