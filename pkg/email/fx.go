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

package email

import (
	"github.com/oysterpack/synapse/pkg/fx/db"
	"github.com/oysterpack/synapse/pkg/queue"
	"github.com/oysterpack/synapse/pkg/security"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Opts is used to configure the fx module
type Opts struct {
	// EnvPrefix is used to load the Config. If blank, then EnvPrefix is used.
	EnvPrefix string
}

type serviceParams struct {
	fx.In

	Config   Config
	Emails   *Mapper
	Jobs     *queue.Store
	Sender   Sender
	Logger   *zerolog.Logger
	Security security.Context `optional:"true"`
}

// Module provides the following:
//   - Config
//   - *Mapper
//   - Sender: SMTPSender
//   - *Service, which uses the security.Context if one is provided
//   - the SendClass job class
//   - the emails table Schema
func Module(opts Opts) fx.Option {
	return fx.Provide(
		func() (Config, error) {
			return LoadConfig(opts.EnvPrefix)
		},
		NewMapper,
		func(cfg Config) Sender {
			return NewSMTPSender(cfg)
		},
		func(p serviceParams) *Service {
			s := NewService(p.Emails, p.Jobs, p.Sender, p.Config.Queue, p.Logger)
			if p.Security != nil {
				s.SetSecurityContext(p.Security)
			}
			return s
		},
		func(s *Service) queue.ClassProvider {
			return queue.NewClassProvider(SendClass, s.Perform)
		},
		func() db.SchemaProvider {
			return db.NewSchemaProvider(Schema)
		},
	)
}
