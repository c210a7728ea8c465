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

package cli

import (
	"bytes"
	"context"
	"errors"
	"github.com/oysterpack/synapse/pkg/queue"
	"github.com/oysterpack/synapse/pkg/resque"
	"github.com/oysterpack/synapse/pkg/ulids"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func execute(t *testing.T, args ...string) (string, error) {
	build := Build{AppID: ulids.MustNew().String(), ReleaseID: ulids.MustNew().String(), Version: "1.0.0"}
	cmd := NewRootCommand(build)
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitUsage, ExitCode(resque.Options{}.Validate()))
	assert.Equal(t, ExitError, ExitCode(errors.New("BOOM")))
	assert.Equal(t, ExitError, ExitCode(resque.ErrFork))
}

// No worker is started when no queues are specified.
func TestResque_NoQueues(t *testing.T) {
	_, err := execute(t, "resque", "--count", "3")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, ExitCode(err))
	assert.Contains(t, err.Error(), "not enough arguments")
}

func TestResque_UsageErrors(t *testing.T) {
	for _, args := range [][]string{
		{"resque", "--count", "0", "default"},
		{"resque", "--count", "two", "default"},
		{"resque", "--no-fork", "--count", "2", "default"},
		{"resque", "--interval", "-1", "default"},
		{"enqueue", "default"},
		{"enqueue", "default", "email.send", "{not json"},
		{"migrate", "now"},
	} {
		_, err := execute(t, args...)
		assert.Equal(t, ExitUsage, ExitCode(err), "%v: %v", args, err)
	}
}

func TestWorkerArgs(t *testing.T) {
	opts := resque.DefaultOptions()
	opts.Queues = []string{"high", "low"}
	opts.Interval = 3 * time.Second
	assert.Equal(t, []string{"resque-worker", "--interval", "3", "high", "low"}, workerArgs(opts))

	cmd := NewRootCommand(Build{})
	workerCmd, args, err := cmd.Find(workerArgs(opts))
	require.NoError(t, err)
	assert.Equal(t, "resque-worker", workerCmd.Name())
	assert.True(t, workerCmd.Hidden)
	require.NoError(t, workerCmd.ParseFlags(args))
	assert.Equal(t, []string{"high", "low"}, workerCmd.Flags().Args())
}

func TestBuild_InvalidIDs(t *testing.T) {
	_, err := Build{AppID: "invalid"}.appOpts()
	assert.Error(t, err)
	_, err = Build{ReleaseID: "invalid"}.appOpts()
	assert.Error(t, err)
	opts, err := Build{Version: "1.2.3"}.appOpts()
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", opts.Version)
}

func TestMigrateAndEnqueue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")
	env := map[string]string{
		"APP12X_DB_DSN":     path,
		"APP12X_LOG_STDERR": "false",
	}
	for k, v := range env {
		require.NoError(t, os.Setenv(k, v))
	}
	defer func() {
		for k := range env {
			os.Unsetenv(k)
		}
	}()

	_, err := execute(t, "migrate")
	require.NoError(t, err)

	out, err := execute(t, "enqueue", "email", "email.send", `{"id":"01DHDB4SXK0C3BAM5TN8N30J2Q"}`)
	require.NoError(t, err)
	jobID := strings.TrimSpace(out)
	_, err = ulids.Parse(jobID)
	require.NoError(t, err, "the job ID is printed: %q", out)

	_, err = execute(t, "enqueue", "email", "unknown")
	require.Error(t, err)
	assert.True(t, errors.Is(err, queue.ErrUnknownClass))
	assert.Equal(t, ExitError, ExitCode(err))
}
