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
	"fmt"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"strings"
	"time"
)

// EnvPrefix is the default env var name prefix
const EnvPrefix = "APP12X"

// Driver is the database/sql driver name
type Driver string

// supported drivers
const (
	Postgres Driver = "pgx"
	SQLite   Driver = "sqlite"
)

// ErrUnsupportedDriver is returned for driver names other than "pgx" and "sqlite"
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Decode implements `envconfig.Decoder` interface
func (d *Driver) Decode(value string) error {
	switch driver := Driver(strings.ToLower(strings.TrimSpace(value))); driver {
	case Postgres, SQLite:
		*d = driver
		return nil
	case "postgres", "postgresql":
		*d = Postgres
		return nil
	default:
		return errors.Wrapf(ErrUnsupportedDriver, "%q", value)
	}
}

// Config is used to load the database config from env vars
type Config struct {
	Driver Driver `default:"sqlite" envconfig:"db_driver"`
	DSN    string `default:"synapse.db" envconfig:"db_dsn"`

	MaxOpenConns    int           `default:"4" envconfig:"db_max_open_conns"`
	ConnMaxIdleTime time.Duration `default:"5m" envconfig:"db_conn_max_idle_time"`
	// BusyTimeout applies to SQLite, which is shared by the worker processes
	BusyTimeout time.Duration `default:"5s" envconfig:"db_busy_timeout"`
}

// LoadConfig loads the Config from env vars using the specified prefix. If the prefix is blank, then EnvPrefix is used.
func LoadConfig(prefix string) (Config, error) {
	if prefix == "" {
		prefix = EnvPrefix
	}
	var cfg Config
	err := envconfig.Process(prefix, &cfg)
	return cfg, err
}

func (c Config) String() string {
	return fmt.Sprintf("Config{Driver=%s, MaxOpenConns=%d, ConnMaxIdleTime=%s}", c.Driver, c.MaxOpenConns, c.ConnMaxIdleTime)
}

// dataSourceName appends the SQLite pragmas to the DSN:
//   - busy_timeout, because worker processes write to the same database file
//   - WAL journal mode
//   - immediate write transactions, which makes claiming a job atomic across processes
func (c Config) dataSourceName() string {
	if c.Driver != SQLite {
		return c.DSN
	}
	dsn := c.DSN
	if !strings.HasPrefix(dsn, "file:") && !strings.Contains(dsn, "?") {
		dsn = "file:" + dsn
	}
	params := []string{
		fmt.Sprintf("_pragma=busy_timeout(%d)", c.BusyTimeout.Milliseconds()),
		"_pragma=journal_mode(WAL)",
		"_txlock=immediate",
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}
