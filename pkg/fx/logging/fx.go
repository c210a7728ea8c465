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

package logging

import (
	"context"
	"go.uber.org/fx"
)

// Opts is used to configure the fx module
type Opts struct {
	// EnvPrefix is used to load the Config. If blank, then EnvPrefix is used.
	EnvPrefix string
}

// Module provides the following:
//   - Config
//   - Writer
//   - Flusher
//
// The global log level is applied when the Config is loaded.
// When the app is stopped, buffered handlers are flushed and the handlers are closed.
func Module(opts Opts) fx.Option {
	return fx.Provide(
		func() (Config, error) {
			cfg, err := LoadConfig(opts.EnvPrefix)
			if err != nil {
				return cfg, err
			}
			cfg.Apply()
			return cfg, nil
		},
		func(lc fx.Lifecycle, cfg Config) (*Handlers, error) {
			h, err := New(cfg)
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
		func(h *Handlers) Writer { return h },
		func(h *Handlers) Flusher { return h },
	)
}
