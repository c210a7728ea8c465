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

package queue

import (
	"github.com/oysterpack/synapse/pkg/fx/db"
	"go.uber.org/fx"
)

// Module provides the following:
//   - *Store
//   - *Registry, built from the classes registered via the ClassGroup
//   - the jobs table Schema, via db.SchemaGroup
func Module() fx.Option {
	return fx.Provide(
		NewStore,
		func(classes Classes) (*Registry, error) {
			return NewRegistry(classes.Classes...)
		},
		func() db.SchemaProvider {
			return db.NewSchemaProvider(Schema)
		},
	)
}
