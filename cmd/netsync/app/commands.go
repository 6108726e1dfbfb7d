/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/carverauto/netsync/pkg/confpush"
	"github.com/carverauto/netsync/pkg/logger"
	"github.com/carverauto/netsync/pkg/server"
	"github.com/carverauto/netsync/pkg/version"
)

// NewRootCommand returns the netsync command tree.
func NewRootCommand() *cobra.Command {
	opts := &Options{}

	root := &cobra.Command{
		Use:          "netsync",
		Short:        "Render, verify and push network device configuration",
		Version:      version.GetFullVersion(),
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.ConfigPath, "config", defaultConfigPath, "Path to config file")

	root.AddCommand(
		newServeCommand(opts),
		newSyncCommand(opts),
		newGenerateCommand(opts),
		newHashCommand(opts),
		newGroupsCommand(opts),
		newJobCommand(opts),
		newWatchCommand(opts),
		newLocksCommand(opts),
		newMigrateCommand(opts),
	)

	return root
}

func newServeCommand(opts *Options) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled jobs and answer sync requests over NATS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts, migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "Apply pending database migrations on startup")

	return cmd
}

type syncFlags struct {
	hostname   string
	deviceType string
	commit     bool
	force      bool
	autoPush   bool
	remote     bool
}

func (f *syncFlags) request() confpush.SyncRequest {
	dryRun := !f.commit

	return confpush.SyncRequest{
		Hostname:   f.hostname,
		DeviceType: f.deviceType,
		DryRun:     &dryRun,
		Force:      f.force,
		AutoPush:   f.autoPush,
	}
}

func newSyncCommand(opts *Options) *cobra.Command {
	flags := &syncFlags{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize devices with their rendered configuration",
		Long: "Selects one device by --hostname, every device of --device-type, or every " +
			"unsynchronized managed device, and pushes its configuration. Without --commit " +
			"only the diff is computed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := flags.request()
			if err := req.Validate(); err != nil {
				return err
			}

			return withServer(cmd.Context(), opts, "sync", func(ctx context.Context, srv *server.Server, _ logger.Logger) error {
				if flags.remote {
					reply, err := srv.RequestSync(ctx, req)
					if err != nil {
						return err
					}

					return writeJSON(cmd.OutOrStdout(), reply)
				}

				job, err := srv.SyncNow(ctx, req)
				if job == nil {
					return err
				}

				if werr := writeJSON(cmd.OutOrStdout(), job); werr != nil {
					return werr
				}

				if job.NextJobID == "" {
					return err
				}

				next, gerr := srv.Jobs().GetJob(context.WithoutCancel(ctx), job.NextJobID)
				if gerr != nil {
					return errors.Join(err, gerr)
				}

				if werr := writeJSON(cmd.OutOrStdout(), next); werr != nil {
					return werr
				}

				return err
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.hostname, "hostname", "", "Synchronize one device")
	f.StringVar(&flags.deviceType, "device-type", "", "Synchronize every device of a role (ACCESS, DIST, CORE)")
	f.BoolVar(&flags.commit, "commit", false, "Apply the configuration instead of a dry run")
	f.BoolVar(&flags.force, "force", false, "Skip the configuration drift check")
	f.BoolVar(&flags.autoPush, "auto-push", false, "Commit automatically when a single device dry run has a low change score")
	f.BoolVar(&flags.remote, "remote", false, "Ask a serving netsync process to run the job")
	cmd.MarkFlagsMutuallyExclusive("hostname", "device-type")

	return cmd
}

func newGenerateCommand(opts *Options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "generate HOSTNAME",
		Short: "Render the configuration of one device without connecting to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServer(cmd.Context(), opts, "generate", func(ctx context.Context, srv *server.Server, _ logger.Logger) error {
				gen, err := srv.Orchestrator().GenerateOnly(ctx, args[0])
				if err != nil {
					return err
				}

				if asJSON {
					return writeJSON(cmd.OutOrStdout(), gen)
				}

				_, err = fmt.Fprint(cmd.OutOrStdout(), gen.Config)

				return err
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the template variables along with the configuration")

	return cmd
}

func newHashCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "hash HOSTNAME",
		Short: "Print the fingerprint of the running configuration of one device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServer(cmd.Context(), opts, "hash", func(ctx context.Context, srv *server.Server, _ logger.Logger) error {
				hash, err := srv.Orchestrator().ConfigHash(ctx, args[0])
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)

				return err
			})
		},
	}
}

func newGroupsCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "groups [GROUP]",
		Short: "List device groups, or the members of one group",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServer(cmd.Context(), opts, "groups", func(ctx context.Context, srv *server.Server, _ logger.Logger) error {
				if len(args) == 1 {
					members, err := srv.Orchestrator().GroupMembers(ctx, args[0])
					if err != nil {
						return err
					}

					return writeJSON(cmd.OutOrStdout(), members)
				}

				groups, err := srv.Orchestrator().Groups(ctx)
				if err != nil {
					return err
				}

				names := make([]string, 0, len(groups))
				for name := range groups {
					names = append(names, name)
				}

				sort.Strings(names)

				for _, name := range names {
					if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", name, len(groups[name])); err != nil {
						return err
					}
				}

				return nil
			})
		},
	}
}

func newJobCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "job JOB_ID",
		Short: "Show the record of one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServer(cmd.Context(), opts, "job", func(ctx context.Context, srv *server.Server, _ logger.Logger) error {
				job, err := srv.Jobs().GetJob(ctx, args[0])
				if err != nil {
					return err
				}

				return writeJSON(cmd.OutOrStdout(), job)
			})
		},
	}
}

func newWatchCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch JOB_ID",
		Short: "Print devices as a job finishes them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServer(cmd.Context(), opts, "watch", func(ctx context.Context, srv *server.Server, _ logger.Logger) error {
				hosts, err := srv.WatchProgress(ctx, args[0])
				if err != nil {
					return err
				}

				for host := range hosts {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), host); err != nil {
						return err
					}
				}

				return nil
			})
		},
	}
}

func newLocksCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locks",
		Short: "Manage the commit lock",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every held lock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServer(cmd.Context(), opts, "locks", func(ctx context.Context, srv *server.Server, _ logger.Logger) error {
				return srv.Locks().ClearAll(ctx)
			})
		},
	})

	return cmd
}

func newMigrateCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServer(cmd.Context(), opts, "migrate", func(ctx context.Context, srv *server.Server, _ logger.Logger) error {
				return srv.Migrate(ctx)
			})
		},
	}
}
