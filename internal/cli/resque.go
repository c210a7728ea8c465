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
	"context"
	"fmt"
	"github.com/oysterpack/synapse/pkg/fx/app"
	"github.com/oysterpack/synapse/pkg/resque"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"os"
	"time"
)

// exit codes
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// NewRootCommand constructs the synapse root command
func NewRootCommand(build Build) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "synapse",
		Short:         "synapse runs resque job workers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetFlagErrorFunc(usageError)
	cmd.AddCommand(
		newResqueCommand(build),
		newResqueWorkerCommand(build),
		newEnqueueCommand(build),
		newMigrateCommand(build),
	)
	return cmd
}

// ExitCode maps the command error to the process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, resque.ErrUsage):
		return ExitUsage
	default:
		return ExitError
	}
}

func usageError(cmd *cobra.Command, err error) error {
	return errors.Wrapf(resque.ErrUsage, "%s: %v", cmd.CommandPath(), err)
}

func newResqueCommand(build Build) *cobra.Command {
	opts := resque.DefaultOptions()
	interval := int(opts.Interval / time.Second)
	cmd := &cobra.Command{
		Use:   "resque QUEUE...",
		Short: "Runs the resque workers, which poll the queues in the specified order",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Queues = args
			opts.Interval = time.Duration(interval) * time.Second
			if err := opts.Validate(); err != nil {
				return err
			}
			exe, err := os.Executable()
			if err != nil {
				return errors.Wrap(err, "failed to resolve the executable path")
			}

			var command resque.Command
			fxapp, err := newApp(build, fx.Populate(&command.Logger, &command.NewWorker))
			if err != nil {
				return err
			}
			command.Options = opts
			command.Processes = &resque.ExecProcesses{
				Path: exe,
				Args: workerArgs(opts),
			}
			// the pool outcome is logged by the supervisor. Either outcome is a clean exit.
			return app.Run(cmd.Context(), fxapp, func(ctx context.Context) error {
				_, err := command.Run(ctx)
				return err
			})
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&opts.Count, "count", opts.Count, "number of workers")
	flags.IntVar(&interval, "interval", interval, "how often (in seconds) to check for new jobs across the queues")
	flags.BoolVar(&opts.NoFork, "no-fork", opts.NoFork, "run a single worker in the current process")
	flags.BoolVar(&opts.Respawn, "respawn", opts.Respawn, "replace workers that exit")
	return cmd
}

// workerArgs are the worker process args
func workerArgs(opts resque.Options) []string {
	args := []string{"resque-worker", "--interval", fmt.Sprint(int(opts.Interval / time.Second))}
	return append(args, opts.Queues...)
}

func newResqueWorkerCommand(build Build) *cobra.Command {
	var interval int
	cmd := &cobra.Command{
		Use:    "resque-worker QUEUE...",
		Short:  "Runs a single resque worker, which is controlled by its parent",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := resque.Spec{Queues: args, Interval: time.Duration(interval) * time.Second}
			var newWorker resque.WorkerFactory
			fxapp, err := newApp(build, fx.Populate(&newWorker))
			if err != nil {
				return err
			}
			return app.Run(cmd.Context(), fxapp, func(ctx context.Context) error {
				worker, err := newWorker(spec)
				if err != nil {
					return err
				}
				resque.RunWorker(ctx, worker)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&interval, "interval", 5, "how often (in seconds) to check for new jobs across the queues")
	return cmd
}
