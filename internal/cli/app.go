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

// Package cli provides the synapse command line interface
package cli

import (
	"github.com/oysterpack/synapse/pkg/email"
	"github.com/oysterpack/synapse/pkg/fx/app"
	"github.com/oysterpack/synapse/pkg/fx/db"
	"github.com/oysterpack/synapse/pkg/fx/logging"
	"github.com/oysterpack/synapse/pkg/oauth2"
	"github.com/oysterpack/synapse/pkg/queue"
	"github.com/oysterpack/synapse/pkg/resque"
	"github.com/oysterpack/synapse/pkg/telemetry"
	"github.com/oysterpack/synapse/pkg/ulids"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// Build is the build info, which is injected via ldflags. Blank values are loaded from env vars.
type Build struct {
	AppID     string
	ReleaseID string
	Version   string
}

func (b Build) appOpts() (app.Opts, error) {
	opts := app.Opts{
		EnvPrefix: app.EnvPrefix,
		Version:   b.Version,
	}
	if b.AppID != "" {
		id, err := ulids.Parse(b.AppID)
		if err != nil {
			return opts, errors.Wrap(err, "invalid app ID")
		}
		opts.ID = id
	}
	if b.ReleaseID != "" {
		id, err := ulids.Parse(b.ReleaseID)
		if err != nil {
			return opts, errors.Wrap(err, "invalid app release ID")
		}
		opts.ReleaseID = id
	}
	return opts, nil
}

// modules returns the app modules
func modules(build Build) (fx.Option, error) {
	opts, err := build.appOpts()
	if err != nil {
		return nil, err
	}
	return fx.Options(
		app.Module(opts),
		logging.Module(logging.Opts{EnvPrefix: opts.EnvPrefix}),
		db.Module(db.Opts{EnvPrefix: opts.EnvPrefix}),
		queue.Module(),
		telemetry.Module(telemetry.Opts{EnvPrefix: opts.EnvPrefix}),
		email.Module(email.Opts{EnvPrefix: opts.EnvPrefix}),
		oauth2.Module(),
		resque.Module(),
	), nil
}

// newApp constructs the app, with the options appended
func newApp(build Build, options ...fx.Option) (*fx.App, error) {
	base, err := modules(build)
	if err != nil {
		return nil, err
	}
	fxapp := app.New(append([]fx.Option{base}, options...)...)
	if err := fxapp.Err(); err != nil {
		return nil, err
	}
	return fxapp, nil
}
