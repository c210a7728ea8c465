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
	"github.com/oysterpack/synapse/pkg/eventlog"
	"github.com/oysterpack/synapse/pkg/fx/db"
	"github.com/oysterpack/synapse/pkg/fx/logging"
	"github.com/oysterpack/synapse/pkg/queue"
	"github.com/oysterpack/synapse/pkg/telemetry"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// WorkerFactory constructs a worker for the spec
type WorkerFactory func(spec Spec) (*Worker, error)

// Module provides the following:
//   - *Hooks, with the standard hooks registered first, followed by the hooks registered via the HookGroup
//   - WorkerFactory
//
// The standard hooks:
//   - beforePerform: disconnects the database, which means a worker never uses a connection that it shares with
//     another process; marks the job start time
//   - onFailure: logs the job error
//   - afterPerform: records the job metrics and pushes them; flushes buffered log handlers
func Module() fx.Option {
	return fx.Provide(
		newHooks,
		newWorkerFactory,
	)
}

type hookParams struct {
	fx.In

	Logger        *zerolog.Logger
	DB            *db.Handle         `optional:"true"`
	Telemetry     *telemetry.Client  `optional:"true"`
	LogFlusher    logging.Flusher    `optional:"true"`
	Registrations []HookRegistration `group:"resque.Hook"`
}

func newHooks(p hookParams) *Hooks {
	hooks := NewHooks()
	RegisterStandardHooks(hooks, StandardHooks{
		Logger:     p.Logger,
		DB:         p.DB,
		Telemetry:  p.Telemetry,
		LogFlusher: p.LogFlusher,
	})
	for _, r := range p.Registrations {
		hooks.On(r.Event, r.Hook)
	}
	return hooks
}

// StandardHooks are the collaborators of the standard hooks. Only Logger is required.
type StandardHooks struct {
	Logger     *zerolog.Logger
	DB         *db.Handle
	Telemetry  *telemetry.Client
	LogFlusher logging.Flusher
}

// RegisterStandardHooks registers the standard hooks
func RegisterStandardHooks(hooks *Hooks, std StandardHooks) {
	logger := eventlog.ForComponent(std.Logger, "resque.Hooks")
	logJobFailed := JobFailedEvent.NewErrorLogger(logger)
	logHookFailed := HookFailedEvent.NewErrorLogger(logger)

	hooks.On(OnFailure, func(ctx context.Context, job *queue.Job, err error) {
		logJobFailed(jobInfo{Job: job}, err, "Error processing job")
	})

	if std.DB != nil {
		hooks.On(BeforePerform, func(ctx context.Context, job *queue.Job, err error) {
			if err := std.DB.Disconnect(); err != nil {
				logHookFailed(jobInfo{Job: job}, err, "failed to disconnect database")
			}
		})
	}

	if std.Telemetry != nil {
		hooks.On(BeforePerform, func(ctx context.Context, job *queue.Job, err error) {
			std.Telemetry.Begin(job)
		})
		hooks.On(AfterPerform, func(ctx context.Context, job *queue.Job, err error) {
			std.Telemetry.End(job, err)
			if err := std.Telemetry.Flush(context.WithoutCancel(ctx)); err != nil {
				logHookFailed(jobInfo{Job: job}, err, "failed to flush telemetry")
			}
		})
	}

	if std.LogFlusher != nil {
		hooks.On(AfterPerform, func(ctx context.Context, job *queue.Job, err error) {
			if err := std.LogFlusher.Flush(); err != nil {
				logHookFailed(jobInfo{Job: job}, err, "failed to flush log handlers")
			}
		})
	}
}

type workerParams struct {
	fx.In

	Logger   *zerolog.Logger
	Store    *queue.Store
	Registry *queue.Registry
	Hooks    *Hooks
	DB       *db.Handle `optional:"true"`
}

func newWorkerFactory(p workerParams) WorkerFactory {
	var reconnect func() error
	if p.DB != nil {
		reconnect = p.DB.Disconnect
	}
	return func(spec Spec) (*Worker, error) {
		return NewWorker(WorkerConfig{
			Spec:      spec,
			Backend:   p.Store,
			Performer: p.Registry,
			Hooks:     p.Hooks,
			Logger:    p.Logger,
			Reconnect: reconnect,
		})
	}
}
