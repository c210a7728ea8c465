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
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"sort"
)

// SchemaGroup is the fx value group that collects the app's schemas
const SchemaGroup = "db.Schema"

// Schema is a named set of DDL statements.
//
// Statements must be idempotent, e.g., `CREATE TABLE IF NOT EXISTS`, because they are applied each time the app is migrated.
type Schema struct {
	Name string
	// DDL returns the statements for the specified driver
	DDL func(driver Driver) []string
}

// SchemaProvider is used to register a Schema via the fx value group
type SchemaProvider struct {
	fx.Out

	Schema `group:"db.Schema"`
}

// NewSchemaProvider constructs a new SchemaProvider
func NewSchemaProvider(schema Schema) SchemaProvider {
	return SchemaProvider{Schema: schema}
}

// Schemas is the set of registered schemas
type Schemas struct {
	fx.In

	Schemas []Schema `group:"db.Schema"`
}

// Migrate applies the schemas, ordered by name.
func (h *Handle) Migrate(ctx context.Context, schemas ...Schema) error {
	db, err := h.DB()
	if err != nil {
		return err
	}
	schemas = append([]Schema(nil), schemas...)
	sort.Slice(schemas, func(i, j int) bool { return schemas[i].Name < schemas[j].Name })
	for _, schema := range schemas {
		for _, stmt := range schema.DDL(h.cfg.Driver) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return errors.Wrapf(err, "schema migration failed: %s", schema.Name)
			}
		}
	}
	return nil
}
