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
	"golang.org/x/sys/unix"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// TerminatingSignals terminate the pool
var TerminatingSignals = []os.Signal{unix.SIGTERM, unix.SIGINT, unix.SIGQUIT}

// RelayedSignals are relayed to the workers without terminating the pool
var RelayedSignals = []os.Signal{unix.SIGUSR1, unix.SIGUSR2, unix.SIGCONT, unix.SIGPIPE}

// IsTerminating returns true for SIGTERM, SIGINT, and SIGQUIT
func IsTerminating(sig syscall.Signal) bool {
	switch sig {
	case unix.SIGTERM, unix.SIGINT, unix.SIGQUIT:
		return true
	default:
		return false
	}
}

// Relay holds the most recently received signal until it is consumed.
//
// It is the only state that is shared between signal delivery and the supervision loop. A signal that is recorded
// before the previous one was consumed replaces it.
type Relay struct {
	sig atomic.Int32
}

// Record stores the signal
func (r *Relay) Record(sig syscall.Signal) {
	r.sig.Store(int32(sig))
}

// Consume returns the pending signal and clears it
func (r *Relay) Consume() (syscall.Signal, bool) {
	sig := r.sig.Swap(0)
	return syscall.Signal(sig), sig != 0
}

// Notify records the terminating and relayed signals that the process receives, until stop is called.
func (r *Relay) Notify() (stop func()) {
	c := make(chan os.Signal, len(TerminatingSignals)+len(RelayedSignals))
	signal.Notify(c, append(append([]os.Signal{}, TerminatingSignals...), RelayedSignals...)...)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-c:
				if s, ok := sig.(syscall.Signal); ok {
					r.Record(s)
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(c)
		close(done)
	}
}
