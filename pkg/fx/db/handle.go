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
	"database/sql"
	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
	"sync"
)

// Handle is a lazily connected database handle
type Handle struct {
	cfg Config

	m        sync.Mutex
	db       *sql.DB
	connects int
}

// Open returns a new Handle. No connection is made until the DB is used.
func Open(cfg Config) (*Handle, error) {
	switch cfg.Driver {
	case Postgres, SQLite:
	default:
		return nil, errors.Wrapf(ErrUnsupportedDriver, "%q", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}
	return &Handle{cfg: cfg}, nil
}

// Driver returns the database driver
func (h *Handle) Driver() Driver {
	return h.cfg.Driver
}

// DB returns the connection pool, connecting if needed.
func (h *Handle) DB() (*sql.DB, error) {
	h.m.Lock()
	defer h.m.Unlock()
	if h.db != nil {
		return h.db, nil
	}
	db, err := sql.Open(string(h.cfg.Driver), h.cfg.dataSourceName())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: driver=%s", h.cfg.Driver)
	}
	if h.cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(h.cfg.MaxOpenConns)
	}
	if h.cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(h.cfg.ConnMaxIdleTime)
	}
	h.db = db
	h.connects++
	return db, nil
}

// Disconnect closes the connection pool. The next DB() call reconnects.
func (h *Handle) Disconnect() error {
	h.m.Lock()
	defer h.m.Unlock()
	if h.db == nil {
		return nil
	}
	err := h.db.Close()
	h.db = nil
	return err
}

// Close is an alias for Disconnect
func (h *Handle) Close() error {
	return h.Disconnect()
}

// Connected returns true if the connection pool is open
func (h *Handle) Connected() bool {
	h.m.Lock()
	defer h.m.Unlock()
	return h.db != nil
}

// Connects returns the number of times the pool has been opened
func (h *Handle) Connects() int {
	h.m.Lock()
	defer h.m.Unlock()
	return h.connects
}

// Placeholder returns the bind var format for the driver
func (h *Handle) Placeholder() sq.PlaceholderFormat {
	if h.cfg.Driver == Postgres {
		return sq.Dollar
	}
	return sq.Question
}

// Builder returns a statement builder that uses the driver's placeholder format
func (h *Handle) Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(h.Placeholder())
}

// InTx runs fn inside a transaction. The transaction is committed if fn returns nil, rolled back otherwise.
func (h *Handle) InTx(ctx context.Context, fn func(*sql.Tx) error) error {
	db, err := h.DB()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "commit tx")
}
