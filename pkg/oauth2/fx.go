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

package oauth2

import (
	"github.com/oysterpack/synapse/pkg/fx/db"
	"go.uber.org/fx"
)

// Module provides the token mappers, and registers the token tables Schema
func Module() fx.Option {
	return fx.Provide(
		NewAccessTokenMapper,
		NewRefreshTokenMapper,
		func() db.SchemaProvider {
			return db.NewSchemaProvider(Schema)
		},
	)
}
