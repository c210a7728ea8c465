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

package db

import (
	"context"
	"go.uber.org/fx"
)

// Opts is used to configure the fx module
type Opts struct {
	// EnvPrefix is used to load the Config. If blank, then EnvPrefix is used.
	EnvPrefix string
}

// Migrator applies all schemas that were registered via the fx value group
type Migrator func(ctx context.Context) error

// Module provides the following:
//   - Config
//   - *Handle, which is closed when the app stops
//   - Migrator
func Module(opts Opts) fx.Option {
	return fx.Provide(
		func() (Config, error) {
			return LoadConfig(opts.EnvPrefix)
		},
		func(lc fx.Lifecycle, cfg Config) (*Handle, error) {
			h, err := Open(cfg)
			if err != nil {
				return nil, err
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					return h.Close()
				},
			})
			return h, nil
		},
		func(h *Handle, schemas Schemas) Migrator {
			return func(ctx context.Context) error {
				return h.Migrate(ctx, schemas.Schemas...)
			}
		},
	)
}
