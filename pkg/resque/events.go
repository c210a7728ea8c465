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
	"github.com/oysterpack/synapse/pkg/eventlog"
	"github.com/oysterpack/synapse/pkg/queue"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
	"syscall"
	"time"
)

// worker events
const (
	// 	type Data struct {
	//		ID     string   `json:"id"`
	//		Queues []string `json:"queues"`
	//		Interval uint   `json:"interval"`
	//	}
	WorkerStartedEvent eventlog.Event = "01DHCY9B373P6QK50PXK5MSBEJ"
	WorkerStoppedEvent eventlog.Event = "01DHCMZ5K7G5BWRCCW0KD7QZNY"
	WorkerPausedEvent  eventlog.Event = "01DHC6H8E3RJ712P4Q9G4Z1E5W"
	WorkerResumedEvent eventlog.Event = "01DHCHTPQSQAZF22BGCC3RYX8J"
	WorkerSignalEvent  eventlog.Event = "01DHCW4FZ7VB4XRA9D6AYGPST6"
	JobPerformedEvent  eventlog.Event = "01DHCEXKNE3RGBPGTDW4GQZRB5"
	JobFailedEvent     eventlog.Event = "01DHCGZBMX02Z8YD5ZD9BH2KRF"
	PopFailedEvent     eventlog.Event = "01DHC759C9959NF6B4VYK00RV4"
	JobDoneFailedEvent eventlog.Event = "01DHC0Y3GRN89KFYQCPY5VHJDF"
	HookFailedEvent    eventlog.Event = "01DHC7C6Q5SNDF7EXVWD5ECA1Z"
)

// supervisor events
const (
	ChildSpawnedEvent   eventlog.Event = "01DHC9XAAN30JY7CGRYJRG638M"
	ForkFailedEvent     eventlog.Event = "01DHCWAF5MTBRTKZ5GS02C5AG3"
	ChildDiedEvent      eventlog.Event = "01DHBK5K1RCE1ZMRQJX7WYHD3A"
	SignalRelayedEvent  eventlog.Event = "01DHCNZ0ZPV5SMVYR01Q85XT42"
	PoolTerminatedEvent eventlog.Event = "01DHC4X8BW5TVGA6XP0VQE070A"
	PoolDrainedEvent    eventlog.Event = "01DHC7SXJHN5PJ1GNSPNTADENR"
	ReapFailedEvent     eventlog.Event = "01DHCCP9X0H3NS8C6H6R03DF5A"
)

type workerInfo struct {
	id       string
	queues   []string
	interval time.Duration
}

func (w workerInfo) MarshalZerologObject(e *zerolog.Event) {
	e.Str("id", w.id).
		Strs("queues", w.queues).
		Dur("interval", w.interval)
}

type jobInfo struct {
	*queue.Job
	duration time.Duration
}

func (j jobInfo) MarshalZerologObject(e *zerolog.Event) {
	e.Str("id", j.ID).
		Str("queue", j.Queue).
		Str("class", j.Class).
		Int("attempts", j.Attempts)
	if j.duration > 0 {
		e.Dur("duration", j.duration)
	}
}

type signalInfo struct {
	sig  syscall.Signal
	pids []int
}

func (s signalInfo) MarshalZerologObject(e *zerolog.Event) {
	e.Str("signal", signalName(s.sig))
	if s.pids != nil {
		e.Ints("pids", s.pids)
	}
}

type childInfo struct {
	pid    int
	status ExitStatus
}

func (c childInfo) MarshalZerologObject(e *zerolog.Event) {
	e.Int("pid", c.pid).
		Int("code", c.status.Code)
	if c.status.Signal != 0 {
		e.Str("signal", signalName(c.status.Signal))
	}
}

type poolInfo struct {
	count   int
	running int
}

func (p poolInfo) MarshalZerologObject(e *zerolog.Event) {
	e.Int("count", p.count).Int("running", p.running)
}

func signalName(sig syscall.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return sig.String()
}
