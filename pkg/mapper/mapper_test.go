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

package mapper_test

import (
	"context"
	sq "github.com/Masterminds/squirrel"
	"github.com/oysterpack/synapse/pkg/fx/db"
	"github.com/oysterpack/synapse/pkg/mapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"path/filepath"
	"testing"
	"time"
)

type widget struct {
	ID    string
	Name  string
	Count int
}

func (w *widget) Columns() []string { return []string{"id", "name", "count"} }

func (w *widget) DbValues() []interface{} { return []interface{}{w.ID, w.Name, w.Count} }

func (w *widget) ScanTargets() []interface{} { return []interface{}{&w.ID, &w.Name, &w.Count} }

var widgetSchema = db.Schema{
	Name: "widgets",
	DDL: func(db.Driver) []string {
		return []string{`CREATE TABLE IF NOT EXISTS widgets (id TEXT PRIMARY KEY, name TEXT NOT NULL, count INTEGER NOT NULL)`}
	},
}

func newWidgetMapper(t *testing.T) *mapper.Mapper[*widget] {
	h, err := db.Open(db.Config{
		Driver:      db.SQLite,
		DSN:         filepath.Join(t.TempDir(), "mapper.db"),
		BusyTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	require.NoError(t, h.Migrate(context.Background(), widgetSchema))
	return mapper.New(h, "widgets", func() *widget { return new(widget) })
}

// compile time checks
var (
	_ mapper.Inserter[*widget] = &mapper.Mapper[*widget]{}
	_ mapper.Finder[*widget]   = &mapper.Mapper[*widget]{}
	_ mapper.Updater[*widget]  = &mapper.Mapper[*widget]{}
	_ mapper.Deleter           = &mapper.Mapper[*widget]{}
)

func TestMapper(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := newWidgetMapper(t)
	assert.Equal(t, "widgets", m.Table())

	for i, name := range []string{"b", "a", "c"} {
		require.NoError(t, m.Insert(ctx, &widget{ID: name, Name: "widget " + name, Count: i}))
	}
	assert.Error(t, m.Insert(ctx, &widget{ID: "a", Name: "dup"}), "primary key violation")

	t.Run("FindBy", func(t *testing.T) {
		w, err := m.FindBy(ctx, sq.Eq{"id": "a"})
		require.NoError(t, err)
		assert.Equal(t, &widget{ID: "a", Name: "widget a", Count: 1}, w)

		_, err = m.FindBy(ctx, sq.Eq{"id": "z"})
		assert.Equal(t, mapper.ErrNotFound, err)
	})

	t.Run("FindAllBy", func(t *testing.T) {
		ws, err := m.FindAllBy(ctx, nil, "id")
		require.NoError(t, err)
		require.Len(t, ws, 3)
		assert.Equal(t, "a", ws[0].ID)
		assert.Equal(t, "b", ws[1].ID)
		assert.Equal(t, "c", ws[2].ID)

		ws, err = m.FindAllBy(ctx, sq.Eq{"name": "none"})
		require.NoError(t, err)
		assert.Empty(t, ws)
	})

	t.Run("Update", func(t *testing.T) {
		n, err := m.Update(ctx, &widget{ID: "b", Name: "renamed", Count: 10}, sq.Eq{"id": "b"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		w, err := m.FindBy(ctx, sq.Eq{"id": "b"})
		require.NoError(t, err)
		assert.Equal(t, "renamed", w.Name)
		assert.Equal(t, 10, w.Count)
	})

	t.Run("Delete", func(t *testing.T) {
		n, err := m.Delete(ctx, sq.Eq{"id": "c"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		n, err = m.Delete(ctx, sq.Eq{"id": "c"})
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
