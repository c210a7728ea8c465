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

// Package fxapptest provides support for testing apps that log structured events.
package fxapptest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"github.com/pkg/errors"
	"sync"
)

// SyncLog is used to to provide a concurrency safe read/write log.
//
// Use Case: used when inspecting logs in unit tests that have multiple go routines writing to the log concurrently
type SyncLog struct {
	sync.Mutex
	buf *bytes.Buffer
}

// NewSyncLog returns an empty log
func NewSyncLog() *SyncLog {
	return &SyncLog{
		buf: new(bytes.Buffer),
	}
}

func (l *SyncLog) Write(data []byte) (int, error) {
	l.Lock()
	defer l.Unlock()
	return l.buf.Write(data)
}

func (l *SyncLog) String() string {
	l.Lock()
	defer l.Unlock()
	return l.buf.String()
}

// Events decodes each line as a JSON log event
func (l *SyncLog) Events() ([]LogEvent, error) {
	l.Lock()
	data := append([]byte(nil), l.buf.Bytes()...)
	l.Unlock()
	return DecodeLogEvents(data)
}

// LogEvent is a decoded JSON log event
type LogEvent map[string]interface{}

// Name returns the event name, i.e., the 'n' field
func (e LogEvent) Name() string {
	return e.str("n")
}

// Level returns the 'l' field
func (e LogEvent) Level() string {
	return e.str("l")
}

// Message returns the 'm' field
func (e LogEvent) Message() string {
	return e.str("m")
}

// Component returns the 'c' field
func (e LogEvent) Component() string {
	return e.str("c")
}

// Err returns the 'e' field
func (e LogEvent) Err() string {
	return e.str("e")
}

// Data returns the event data, which is keyed by the event name
func (e LogEvent) Data() map[string]interface{} {
	data, _ := e[e.Name()].(map[string]interface{})
	return data
}

func (e LogEvent) str(key string) string {
	s, _ := e[key].(string)
	return s
}

// DecodeLogEvents decodes newline delimited JSON log events
func DecodeLogEvents(data []byte) ([]LogEvent, error) {
	var events []LogEvent
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var event LogEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return events, errors.Wrapf(err, "invalid log event: %s", line)
		}
		events = append(events, event)
	}
	return events, scanner.Err()
}

// FilterByName returns the events with the specified name, in log order
func FilterByName(events []LogEvent, name string) []LogEvent {
	var result []LogEvent
	for _, event := range events {
		if event.Name() == name {
			result = append(result, event)
		}
	}
	return result
}
