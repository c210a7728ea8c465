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
	"encoding/json"
	"fmt"
	"github.com/oysterpack/synapse/pkg/fx/app"
	"github.com/oysterpack/synapse/pkg/fx/db"
	"github.com/oysterpack/synapse/pkg/queue"
	"github.com/oysterpack/synapse/pkg/resque"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

// usageArgs wraps the cobra args validator errors as usage errors
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return usageError(cmd, err)
		}
		return nil
	}
}

func newEnqueueCommand(build Build) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "enqueue QUEUE CLASS [JSON]",
		Short: "Pushes a job onto the queue. The optional JSON is the job args.",
		Args:  usageArgs(cobra.RangeArgs(2, 3)),
		RunE: func(cmd *cobra.Command, args []string) error {
			var jobArgs json.RawMessage
			if len(args) == 3 {
				if !json.Valid([]byte(args[2])) {
					return errors.Wrapf(resque.ErrUsage, "job args are not valid JSON: %s", args[2])
				}
				jobArgs = json.RawMessage(args[2])
			}

			var (
				store    *queue.Store
				registry *queue.Registry
				migrator db.Migrator
			)
			fxapp, err := newApp(build, fx.Populate(&store, &registry, &migrator))
			if err != nil {
				return err
			}
			return app.Run(cmd.Context(), fxapp, func(ctx context.Context) error {
				if !registry.Has(args[1]) {
					return errors.Wrapf(queue.ErrUnknownClass, "%s", args[1])
				}
				if migrate {
					if err := migrator(ctx); err != nil {
						return err
					}
				}
				job, err := store.Push(ctx, args[0], args[1], jobArgs)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), job.ID)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the database schemas before pushing the job")
	return cmd
}

func newMigrateCommand(build Build) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Applies the database schemas",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			var migrator db.Migrator
			fxapp, err := newApp(build, fx.Populate(&migrator))
			if err != nil {
				return err
			}
			return app.Run(cmd.Context(), fxapp, migrator)
		},
	}
}
