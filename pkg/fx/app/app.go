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

// Package app provides the fx application container used by the synapse binaries.
//
// The container is augmented with:
//   - app ID, release ID, instance ID, and version
//   - the app zerolog logger, tagged with the app IDs
//   - app life cycle events, which are logged
package app

import (
	"context"
	"github.com/oysterpack/synapse/pkg/eventlog"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"sync/atomic"
	"time"
)

// lifecycle logs the app life cycle events and times the start and stop phases
type lifecycle struct {
	log  Logger
	mark int64
}

func (l *lifecycle) begin(event eventlog.Event, msg string) {
	atomic.StoreInt64(&l.mark, time.Now().UnixNano())
	l.log(event, zerolog.NoLevel)(nil, msg)
}

func (l *lifecycle) end(event eventlog.Event, msg string) {
	elapsed := time.Since(time.Unix(0, atomic.LoadInt64(&l.mark)))
	l.log(event, zerolog.NoLevel)(duration(elapsed), msg)
}

// outer hooks run first on start and last on stop
func (l *lifecycle) outer() fx.Hook {
	return fx.Hook{
		OnStart: func(context.Context) error {
			l.begin(StartingEvent, "app is starting")
			return nil
		},
		OnStop: func(context.Context) error {
			l.end(StoppedEvent, "app is stopped")
			return nil
		},
	}
}

// inner hooks run last on start and first on stop
func (l *lifecycle) inner() fx.Hook {
	return fx.Hook{
		OnStart: func(context.Context) error {
			l.end(StartedEvent, "app is started")
			return nil
		},
		OnStop: func(context.Context) error {
			l.begin(StoppingEvent, "app is stopping")
			return nil
		},
	}
}

// New initializes a new fx App whose life cycle events are logged.
//
// fx console logging is disabled. Resolving the Logger constructs the log handlers, which registers their
// close hook ahead of the life cycle hooks, so the stopped event is written before the handlers are closed.
func New(options ...fx.Option) *fx.App {
	l := new(lifecycle)
	return fx.New(
		fx.NopLogger,
		fx.Invoke(func(lc fx.Lifecycle, log Logger) {
			l.log = log
			lc.Append(l.outer())
		}),
		fx.Options(options...),
		fx.Invoke(
			func(lc fx.Lifecycle) { lc.Append(l.inner()) },
			func(dotgraph fx.DotGraph, version Version) {
				l.log(InitializedEvent, zerolog.NoLevel)(appInfo{dotgraph, version}, "app is initialized")
			},
		),
	)
}

// Run starts the app, runs the func, and then stops the app.
//
// The app is stopped even if ctx is done, and a stop error is returned only if run succeeded.
func Run(ctx context.Context, fxapp *fx.App, run func(ctx context.Context) error) (err error) {
	startCtx, cancel := context.WithTimeout(ctx, fxapp.StartTimeout())
	defer cancel()
	if err := fxapp.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fxapp.StopTimeout())
		defer cancel()
		if stopErr := fxapp.Stop(stopCtx); stopErr != nil && err == nil {
			err = stopErr
		}
	}()
	return run(ctx)
}
