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

import "github.com/oysterpack/synapse/pkg/fx/db"

// Table is the jobs table name
const Table = "resque_jobs"

// Schema creates the jobs table
var Schema = db.Schema{
	Name: Table,
	DDL: func(db.Driver) []string {
		return []string{
			`CREATE TABLE IF NOT EXISTS resque_jobs (
				id          VARCHAR(26) PRIMARY KEY,
				queue       VARCHAR(255) NOT NULL,
				class       VARCHAR(255) NOT NULL,
				args        TEXT NOT NULL DEFAULT '',
				status      VARCHAR(16) NOT NULL,
				attempts    INTEGER NOT NULL DEFAULT 0,
				worker      VARCHAR(255) NOT NULL DEFAULT '',
				last_error  TEXT NOT NULL DEFAULT '',
				enqueued_at BIGINT,
				started_at  BIGINT,
				finished_at BIGINT
			)`,
			`CREATE INDEX IF NOT EXISTS resque_jobs_queue_status_id ON resque_jobs (queue, status, id)`,
		}
	},
}
