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

package resque_test

import (
	"context"
	"errors"
	"github.com/oysterpack/synapse/pkg/queue"
	"github.com/oysterpack/synapse/pkg/resque"
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestHooks_FireInRegistrationOrder(t *testing.T) {
	t.Parallel()
	hooks := resque.NewHooks()
	var calls []string
	record := func(name string) resque.Hook {
		return func(ctx context.Context, job *queue.Job, err error) {
			calls = append(calls, name)
		}
	}
	hooks.On(resque.BeforePerform, record("before-1"))
	hooks.On(resque.AfterPerform, record("after-1"))
	hooks.On(resque.BeforePerform, record("before-2"))
	hooks.On(resque.BeforePerform, record("before-3"))

	assert.Equal(t, 3, hooks.Count(resque.BeforePerform))
	assert.Equal(t, 1, hooks.Count(resque.AfterPerform))
	assert.Zero(t, hooks.Count(resque.OnFailure))

	job := &queue.Job{ID: "1"}
	hooks.Fire(context.Background(), resque.BeforePerform, job, nil)
	assert.Equal(t, []string{"before-1", "before-2", "before-3"}, calls)

	calls = nil
	hooks.Fire(context.Background(), resque.OnFailure, job, errors.New("BOOM"))
	assert.Empty(t, calls, "no hooks registered")
}

func TestHooks_JobAndErrorArePassed(t *testing.T) {
	t.Parallel()
	hooks := resque.NewHooks()
	job := &queue.Job{ID: "1"}
	jobErr := errors.New("BOOM")
	var (
		gotJob *queue.Job
		gotErr error
	)
	hooks.On(resque.OnFailure, func(ctx context.Context, job *queue.Job, err error) {
		gotJob, gotErr = job, err
	})
	hooks.Fire(context.Background(), resque.OnFailure, job, jobErr)
	assert.True(t, job == gotJob)
	assert.Equal(t, jobErr, gotErr)
}

func TestEvent_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "beforePerform", resque.BeforePerform.String())
	assert.Equal(t, "afterPerform", resque.AfterPerform.String())
	assert.Equal(t, "onFailure", resque.OnFailure.String())
	assert.Equal(t, "Event(9)", resque.Event(9).String())
}
