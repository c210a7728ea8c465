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

package app

import (
	"github.com/Masterminds/semver"
	"github.com/oysterpack/synapse/pkg/eventlog"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"time"
)

// app lifecycle events. Worker processes and the supervisor each log their own app lifecycle.
const (
	// 	type Data struct {
	//		DependencyGraph string `json:"dot_graph"` // DOT language visualization of the app dependency graph
	//		Version         string `json:"version"`
	//	}
	InitializedEvent eventlog.Event = "01DHDF0ZK6S3B5Q1C9X4W8RAN2"
	StartingEvent    eventlog.Event = "01DHDF1R7P2VYJ8KMW0H5EFTQ3"
	// 	type Data struct {
	//		Duration uint
	//	}
	StartedEvent  eventlog.Event = "01DHDF2CXB9N4G6TZ1RJQ5V0SM"
	StoppingEvent eventlog.Event = "01DHDF33PHM7W2E0D8YKCX6B9T"
	// 	type Data struct {
	//		Duration uint
	//	}
	StoppedEvent eventlog.Event = "01DHDF3VQ1A5R9NJ4ZT7G0HKPW"
)

type appInfo struct {
	fx.DotGraph
	Version Version
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler interface
func (event appInfo) MarshalZerologObject(e *zerolog.Event) {
	e.Str("dot_graph", string(event.DotGraph))
	if event.Version != nil {
		e.Str("version", (*semver.Version)(event.Version).String())
	}
}

type duration time.Duration

// MarshalZerologObject implements zerolog.LogObjectMarshaler interface
func (d duration) MarshalZerologObject(e *zerolog.Event) {
	e.Dur("duration", time.Duration(d))
}
