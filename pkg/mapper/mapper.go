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

// Package mapper maps entities to SQL table rows.
//
// A Mapper implements all of the mapper traits: Inserter, Finder, Updater, and Deleter. Domain mappers expose the traits
// they need by embedding a Mapper, or by wrapping it.
package mapper

import (
	"context"
	"database/sql"
	sq "github.com/Masterminds/squirrel"
	"github.com/oysterpack/synapse/pkg/fx/db"
	"github.com/pkg/errors"
)

// ErrNotFound is returned by Finder.FindBy when no row matches
var ErrNotFound = errors.New("entity not found")

// Entity is mapped to a table row
type Entity interface {
	// Columns returns the column names, in the same order as DbValues and ScanTargets
	Columns() []string
	// DbValues returns the column values
	DbValues() []interface{}
	// ScanTargets returns pointers to the entity fields that the column values are scanned into
	ScanTargets() []interface{}
}

// Inserter inserts entities
type Inserter[E Entity] interface {
	Insert(ctx context.Context, entity E) error
}

// Finder finds entities
type Finder[E Entity] interface {
	FindBy(ctx context.Context, where sq.Eq) (E, error)
	FindAllBy(ctx context.Context, where sq.Eq, orderBy ...string) ([]E, error)
}

// Updater updates entities
type Updater[E Entity] interface {
	Update(ctx context.Context, entity E, where sq.Eq) (int64, error)
}

// Deleter deletes entities
type Deleter interface {
	Delete(ctx context.Context, where sq.Eq) (int64, error)
}

// Mapper maps entities of type E to rows in a table
type Mapper[E Entity] struct {
	handle    *db.Handle
	table     string
	newEntity func() E
}

// New constructs a new Mapper. newEntity is used to construct the entities that rows are scanned into.
func New[E Entity](handle *db.Handle, table string, newEntity func() E) *Mapper[E] {
	return &Mapper[E]{
		handle:    handle,
		table:     table,
		newEntity: newEntity,
	}
}

// Table returns the table name
func (m *Mapper[E]) Table() string {
	return m.table
}

// Handle returns the database handle
func (m *Mapper[E]) Handle() *db.Handle {
	return m.handle
}

// Insert inserts the entity
func (m *Mapper[E]) Insert(ctx context.Context, entity E) error {
	query := m.handle.Builder().
		Insert(m.table).
		Columns(entity.Columns()...).
		Values(entity.DbValues()...)
	_, err := m.exec(ctx, query)
	return errors.Wrapf(err, "insert failed: %s", m.table)
}

// FindBy returns the first entity that matches. ErrNotFound is returned if none match.
func (m *Mapper[E]) FindBy(ctx context.Context, where sq.Eq) (E, error) {
	entity := m.newEntity()
	query, args, err := m.handle.Builder().
		Select(entity.Columns()...).
		From(m.table).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return entity, errors.Wrapf(err, "invalid query: %s", m.table)
	}
	conn, err := m.handle.DB()
	if err != nil {
		return entity, err
	}
	switch err := conn.QueryRowContext(ctx, query, args...).Scan(entity.ScanTargets()...); {
	case err == sql.ErrNoRows:
		return entity, ErrNotFound
	case err != nil:
		return entity, errors.Wrapf(err, "find failed: %s", m.table)
	}
	return entity, nil
}

// FindAllBy returns all entities that match, ordered by the specified columns
func (m *Mapper[E]) FindAllBy(ctx context.Context, where sq.Eq, orderBy ...string) ([]E, error) {
	columns := m.newEntity().Columns()
	query, args, err := m.handle.Builder().
		Select(columns...).
		From(m.table).
		Where(where).
		OrderBy(orderBy...).
		ToSql()
	if err != nil {
		return nil, errors.Wrapf(err, "invalid query: %s", m.table)
	}
	conn, err := m.handle.DB()
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "find failed: %s", m.table)
	}
	defer rows.Close()
	var entities []E
	for rows.Next() {
		entity := m.newEntity()
		if err := rows.Scan(entity.ScanTargets()...); err != nil {
			return nil, errors.Wrapf(err, "scan failed: %s", m.table)
		}
		entities = append(entities, entity)
	}
	return entities, errors.Wrapf(rows.Err(), "find failed: %s", m.table)
}

// Update sets all entity columns on the rows that match, and returns the number of rows updated
func (m *Mapper[E]) Update(ctx context.Context, entity E, where sq.Eq) (int64, error) {
	values := make(map[string]interface{})
	dbValues := entity.DbValues()
	for i, column := range entity.Columns() {
		values[column] = dbValues[i]
	}
	query := m.handle.Builder().
		Update(m.table).
		SetMap(values).
		Where(where)
	n, err := m.exec(ctx, query)
	return n, errors.Wrapf(err, "update failed: %s", m.table)
}

// Delete deletes the rows that match, and returns the number of rows deleted
func (m *Mapper[E]) Delete(ctx context.Context, where sq.Eq) (int64, error) {
	query := m.handle.Builder().
		Delete(m.table).
		Where(where)
	n, err := m.exec(ctx, query)
	return n, errors.Wrapf(err, "delete failed: %s", m.table)
}

func (m *Mapper[E]) exec(ctx context.Context, query sq.Sqlizer) (int64, error) {
	stmt, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}
	conn, err := m.handle.DB()
	if err != nil {
		return 0, err
	}
	result, err := conn.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
