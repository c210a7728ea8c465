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
	"github.com/rs/zerolog"
)

// Event is used as an event type ID.
// It must be globally unique - ULIDs are recommended.
type Event string

func (e Event) String() string {
	return string(e)
}

// Logger is a function used to log events.
type Logger func(eventData zerolog.LogObjectMarshaler, msg string, tags ...string)

// ErrorLogger is a function used to log error events
type ErrorLogger func(eventData zerolog.LogObjectMarshaler, err error, msg string, tags ...string)

// NewLogger creates a new function used to log events using a standardized structure.
//
// Example event
//
//		{
//		  "l": "error", -------------------------------------- event level
//		  "a": "01DE379HHM9Y3QYBDB4MSY7YYQ", ================= app ID
//		  "r": "01DE379HHNRJ4YS4NY4CMJX5YE", ================= app release ID
//		  "x": "01DE379HHN2RRX9YQCG2DN9CHG", ================= app instance ID
//		  "n": "01DHBK5K1RCE1ZMRQJX7WYHD3A", ----------------- event type ID
//		  "01DHBK5K1RCE1ZMRQJX7WYHD3A": { -------------------- event data, keyed by the event type ID (optional)
//			"pid": 4242, ------------------------------------- event data (optional)
//			"status": "exited(1)" ---------------------------- event data (optional)
//		  },
//		  "g": ["tag-a","tag-b"], ---------------------------- event tags (optional)
//		  "z": "01DE379HHNM87XT4PBHXYYBTYS", ================= event instance ID
//		  "t": 1561328928, =================================== event timestamp in Unix time
//		  "m": "a child worker died" ------------------------- event short description
//		}
//
//	 where
//	     ==== means the field was populated by the application logger
//	     ---- means the field was populated by the event logger
func (e Event) NewLogger(logger *zerolog.Logger, level zerolog.Level) Logger {
	eventLogger := ForEvent(logger, e.String())
	return func(eventData zerolog.LogObjectMarshaler, msg string, tags ...string) {
		e.send(eventLogger.WithLevel(level), eventData, msg, tags)
	}
}

// NewErrorLogger creates a new function used to log errors with contextual data. It uses the same structure as `Logger`
// except that the level is always `error` and the error is set on the log event, including its stack when the error
// carries one.
func (e Event) NewErrorLogger(logger *zerolog.Logger) ErrorLogger {
	eventLogger := ForEvent(logger, e.String())
	return func(eventData zerolog.LogObjectMarshaler, err error, msg string, tags ...string) {
		e.send(eventLogger.Error().Stack().Err(err), eventData, msg, tags)
	}
}

func (e Event) send(event *zerolog.Event, eventData zerolog.LogObjectMarshaler, msg string, tags []string) {
	if eventData != nil {
		data := zerolog.Dict()
		eventData.MarshalZerologObject(data)
		event.Dict(e.String(), data)
	}

	if len(tags) > 0 {
		event.Strs(Tags, tags)
	}

	event.Msg(msg)
}

// Error wraps an error as event data.
type Error struct {
	error
}

// NewError wraps the error as event data
func NewError(err error) Error {
	return Error{err}
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler interface
func (err Error) MarshalZerologObject(e *zerolog.Event) {
	if err.error != nil {
		e.Str(zerolog.ErrorFieldName, err.Error())
	}
}
