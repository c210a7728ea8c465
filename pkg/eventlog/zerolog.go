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

package eventlog

import (
	"github.com/oysterpack/synapse/pkg/ulids"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
	"io"
	"os"
	"time"
)

func init() {
	zerolog.TimestampFieldName = "t"
	zerolog.LevelFieldName = "l"
	zerolog.MessageFieldName = "m"
	zerolog.ErrorFieldName = "e"
	zerolog.ErrorStackFieldName = "s"

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = true

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
}

// standard top level logger field names
const (
	Name      = "n" // event name, i.e., the Event ULID
	Component = "c"
	ULID      = "z" // event instance ULID
	Tags      = "g"
	// PID is the logging process ID. The supervisor and its workers share the same log sinks.
	PID = "p"

	AppID         = "a"
	AppReleaseID  = "r"
	AppInstanceID = "x"
)

var newEventID = ulids.Monotonic()

func with(logger *zerolog.Logger, field, value string) *zerolog.Logger {
	l := logger.With().Str(field, value).Logger()
	return &l
}

// ForEvent returns a child logger whose events are named, i.e., the 'n' field is set
func ForEvent(logger *zerolog.Logger, name string) *zerolog.Logger {
	return with(logger, Name, name)
}

// ForComponent returns a child logger whose events are tagged with the component name in the 'c' field
func ForComponent(logger *zerolog.Logger, name string) *zerolog.Logger {
	return with(logger, Component, name)
}

// WithEventULID tags each event with its own ULID in the 'z' field.
//
// The ULIDs are monotonic within the process, which orders the events that a process logs. The 't' field is when the
// event was logged.
func WithEventULID(logger zerolog.Logger) zerolog.Logger {
	return logger.Hook(zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
		e.Str(ULID, newEventID().String())
	}))
}

// NewZeroLogger constructs the base logger, which writes each event with the following fields:
//   - 't': UNIX timestamp
//   - 'p': process ID
//   - 'z': event ULID
//
// For example:
//
//	{"p":4242,"z":"01DFBGCFD9WD29SGRJPK8KZKQS","t":1562680638,"m":"*** Starting worker"}
func NewZeroLogger(w io.Writer) zerolog.Logger {
	return WithEventULID(zerolog.New(w)).
		With().
		Int(PID, os.Getpid()).
		Timestamp().
		Logger()
}
