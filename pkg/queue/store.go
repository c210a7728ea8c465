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
	"context"
	"database/sql"
	"encoding/json"
	sq "github.com/Masterminds/squirrel"
	"github.com/oysterpack/synapse/pkg/fx/db"
	"github.com/oysterpack/synapse/pkg/mapper"
	"github.com/oysterpack/synapse/pkg/ulids"
	"github.com/pkg/errors"
)

// the number of times a pop is retried when another worker claims the same job
const maxClaimAttempts = 3

// Store is the SQL backed job queue store
type Store struct {
	handle *db.Handle
	jobs   *mapper.Mapper[*Job]
	newID  ulids.Generator
}

// NewStore constructs a new Store
func NewStore(handle *db.Handle) *Store {
	return &Store{
		handle: handle,
		jobs:   mapper.New(handle, Table, func() *Job { return new(Job) }),
		newID:  ulids.Monotonic(),
	}
}

// Push enqueues a new job. args are marshalled as JSON.
func (s *Store) Push(ctx context.Context, queue, class string, args interface{}) (*Job, error) {
	if queue == "" {
		return nil, errors.New("queue name is required")
	}
	if class == "" {
		return nil, errors.New("job class is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal job args")
	}
	job := &Job{
		ID:         s.newID().String(),
		Queue:      queue,
		Class:      class,
		Args:       data,
		Status:     Pending,
		EnqueuedAt: mapper.Now(),
	}
	if err := s.jobs.Insert(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Get returns the job with the specified ID
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	return s.jobs.FindBy(ctx, sq.Eq{"id": id})
}

// Jobs returns the jobs on the queue that have the specified status, in queue order
func (s *Store) Jobs(ctx context.Context, queue string, status Status) ([]*Job, error) {
	return s.jobs.FindAllBy(ctx, sq.Eq{"queue": queue, "status": string(status)}, "id")
}

// Pop claims the oldest pending job from the first non-empty queue, checking the queues in list order.
// nil is returned if all queues are empty.
//
// The claimed job is marked running and assigned to the worker.
func (s *Store) Pop(ctx context.Context, queues []string, worker string) (*Job, error) {
	for _, queue := range queues {
		for i := 0; i < maxClaimAttempts; i++ {
			job, claimed, err := s.claim(ctx, queue, worker)
			if err != nil {
				return nil, err
			}
			if job == nil {
				break
			}
			if claimed {
				return job, nil
			}
		}
	}
	return nil, nil
}

func (s *Store) claim(ctx context.Context, queue, worker string) (job *Job, claimed bool, err error) {
	err = s.handle.InTx(ctx, func(tx *sql.Tx) error {
		builder := s.handle.Builder()
		selectJob := builder.
			Select(jobColumns...).
			From(Table).
			Where(sq.Eq{"queue": queue, "status": string(Pending)}).
			OrderBy("id").
			Limit(1)
		if s.handle.Driver() == db.Postgres {
			selectJob = selectJob.Suffix("FOR UPDATE SKIP LOCKED")
		}
		query, args, err := selectJob.ToSql()
		if err != nil {
			return err
		}
		job = new(Job)
		switch err := tx.QueryRowContext(ctx, query, args...).Scan(job.ScanTargets()...); {
		case err == sql.ErrNoRows:
			job = nil
			return nil
		case err != nil:
			return errors.Wrapf(err, "failed to select job: queue=%s", queue)
		}

		job.Status = Running
		job.Worker = worker
		job.Attempts++
		job.StartedAt = mapper.Now()
		update, args, err := builder.
			Update(Table).
			Set("status", string(job.Status)).
			Set("worker", job.Worker).
			Set("attempts", job.Attempts).
			Set("started_at", job.StartedAt).
			Where(sq.Eq{"id": job.ID, "status": string(Pending)}).
			ToSql()
		if err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, update, args...)
		if err != nil {
			return errors.Wrapf(err, "failed to claim job: %s", job.ID)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		claimed = n == 1
		return nil
	})
	return
}

// Done records the job outcome. If jobErr is nil, then the job status is set to done; otherwise failed.
func (s *Store) Done(ctx context.Context, job *Job, jobErr error) error {
	job.Status = Done
	job.LastError = ""
	if jobErr != nil {
		job.Status = Failed
		job.LastError = jobErr.Error()
	}
	job.FinishedAt = mapper.Now()
	query, args, err := s.handle.Builder().
		Update(Table).
		Set("status", string(job.Status)).
		Set("last_error", job.LastError).
		Set("finished_at", job.FinishedAt).
		Where(sq.Eq{"id": job.ID}).
		ToSql()
	if err != nil {
		return err
	}
	conn, err := s.handle.DB()
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, query, args...)
	return errors.Wrapf(err, "failed to update job status: %s", job.ID)
}
