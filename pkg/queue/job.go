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

// Package queue provides the SQL backed job queues that resque workers poll.
//
// Jobs are identified by monotonic ULIDs. Jobs are popped in ID order, which makes each queue FIFO.
package queue

import (
	"encoding/json"
	"github.com/oysterpack/synapse/pkg/mapper"
	"github.com/pkg/errors"
)

// Status is the job status
type Status string

// job statuses
const (
	Pending Status = "pending"
	Running Status = "running"
	Done    Status = "done"
	Failed  Status = "failed"
)

// Job is one unit of work that is popped from a queue and performed by a worker
type Job struct {
	ID    string
	Queue string
	// Class is the name of the job class that performs the job
	Class string
	Args  json.RawMessage

	Status   Status
	Attempts int
	// Worker is the ID of the worker that claimed the job
	Worker    string
	LastError string

	EnqueuedAt mapper.Timestamp
	StartedAt  mapper.Timestamp
	FinishedAt mapper.Timestamp
}

// DecodeArgs unmarshals the job args into v
func (j *Job) DecodeArgs(v interface{}) error {
	if len(j.Args) == 0 {
		return errors.Errorf("job has no args: %s", j.ID)
	}
	return errors.Wrapf(json.Unmarshal(j.Args, v), "invalid job args: %s", j.ID)
}

var jobColumns = []string{
	"id", "queue", "class", "args",
	"status", "attempts", "worker", "last_error",
	"enqueued_at", "started_at", "finished_at",
}

// Columns implements mapper.Entity
func (j *Job) Columns() []string {
	return jobColumns
}

// DbValues implements mapper.Entity
func (j *Job) DbValues() []interface{} {
	return []interface{}{
		j.ID, j.Queue, j.Class, string(j.Args),
		string(j.Status), j.Attempts, j.Worker, j.LastError,
		j.EnqueuedAt, j.StartedAt, j.FinishedAt,
	}
}

// ScanTargets implements mapper.Entity
func (j *Job) ScanTargets() []interface{} {
	return []interface{}{
		&j.ID, &j.Queue, &j.Class, (*jsonColumn)(&j.Args),
		(*statusColumn)(&j.Status), &j.Attempts, &j.Worker, &j.LastError,
		&j.EnqueuedAt, &j.StartedAt, &j.FinishedAt,
	}
}

type jsonColumn json.RawMessage

func (c *jsonColumn) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = nil
	case string:
		*c = jsonColumn(v)
	case []byte:
		*c = append(jsonColumn(nil), v...)
	default:
		return errors.Errorf("unsupported json column type: %T", src)
	}
	return nil
}

type statusColumn Status

func (c *statusColumn) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*c = statusColumn(v)
	case []byte:
		*c = statusColumn(v)
	default:
		return errors.Errorf("unsupported status column type: %T", src)
	}
	return nil
}
