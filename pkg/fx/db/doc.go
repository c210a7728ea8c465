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

// Package db provides the app database handle.
//
// The handle connects lazily, and can be disconnected at any time. The next use reconnects. Worker processes disconnect
// before each job, which guarantees that a connection is never shared with the parent process or a sibling worker.
//
// Supported drivers:
//   - pgx: PostgreSQL, via github.com/jackc/pgx/v5/stdlib
//   - sqlite: SQLite, via modernc.org/sqlite
package db
