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

// Package eventlog standardizes structured JSON logging using zerolog as the underlying logging framework.
//
// Zerolog is initialized with the following settings:
//   - the following standard logger field names are shortened
//   - Timestamp -> t
//   - Level -> l
//   - Message -> m
//   - Error -> e
//   - Stack -> s
//   - Unix time format is used - seconds granularity is sufficient for log events
//   - error stacks are marshalled via pkgerrors
//   - time.Duration fields are rendered as integer milliseconds
//   - each log event is tagged with a ULID via a field named "z", and with the process ID via a field named "p"
//
// Log events are typed. Each event type is identified by an Event ULID, which is logged in the "n" field. Event data is
// logged as a dictionary keyed by the event ID, which keeps event data structures from colliding with each other.
package eventlog
