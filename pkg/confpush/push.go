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

package confpush

import (
	"context"
	"errors"
	"fmt"

	"github.com/carverauto/netsync/pkg/models"
)

// render derives the variables of dev and renders its configuration.
func (o *Orchestrator) render(ctx context.Context, dev *models.Device) (string, *DeviceVariables, error) {
	vars, err := o.deriver.Derive(ctx, dev)
	if err != nil {
		return "", nil, err
	}

	entrypoint, err := o.templates.Entrypoint(dev.Platform, dev.Role)
	if err != nil {
		return "", vars, fmt.Errorf("%w for %s (%s/%s): %w",
			ErrTemplateMappingMissing, dev.Hostname, dev.Platform, dev.Role, err)
	}

	config, err := o.templates.Render(o.templates.Dir(dev.Platform), entrypoint, vars.TemplateVars())
	if err != nil {
		return "", vars, fmt.Errorf("%w for %s: %w", ErrTemplateRenderError, dev.Hostname, err)
	}

	return config, vars, nil
}

// push sends config to dev and returns the diff against its running
// configuration. Nothing is applied when dryRun is set.
func (o *Orchestrator) push(ctx context.Context, dev *models.Device, config string, dryRun bool) (diff string, err error) {
	adapter := o.adapters(dev)

	if err := adapter.Connect(ctx, dev); err != nil {
		return "", err
	}

	defer func() {
		if derr := adapter.Disconnect(); derr != nil {
			err = errors.Join(err, fmt.Errorf("disconnect %s: %w", dev.Hostname, derr))
		}
	}()

	return adapter.PushConfig(ctx, config, dryRun)
}

// pushTask renders and pushes the configuration of one device and scores
// the resulting diff.
func (o *Orchestrator) pushTask(dryRun bool) TaskFunc {
	return func(ctx context.Context, tc *TaskContext) error {
		defer o.reportFinished(ctx, tc)

		var config string

		err := tc.Step(StepGenerateConfig, func() (any, string, error) {
			var err error

			config, _, err = o.render(ctx, tc.Device)

			return config, "", err
		})
		if err != nil {
			return err
		}

		tc.Logger.Debug().Int("bytes", len(config)).Msg("Generated configuration")

		return tc.Step(StepSyncConfig, func() (any, string, error) {
			diff, err := o.push(ctx, tc.Device, config, dryRun)
			if err != nil {
				return nil, "", err
			}

			if diff == "" {
				return "unchanged", "", nil
			}

			tc.Result.ChangeScore = o.score(config, diff)
			tc.Logger.Info().
				Bool("dry_run", dryRun).
				Int("change_score", tc.Result.ChangeScore).
				Msg("Configuration differs from running configuration")

			return "changed", diff, nil
		})
	}
}

func (o *Orchestrator) reportFinished(ctx context.Context, tc *TaskContext) {
	if o.progress == nil {
		return
	}

	if err := o.progress.Append(context.WithoutCancel(ctx), tc.JobID, tc.Device.Hostname); err != nil {
		tc.Logger.Warn().Err(err).Msg("Failed to report device progress")
	}
}

// hashTask records the post-commit fingerprint of one device.
func (o *Orchestrator) hashTask(hashes *hashSet) TaskFunc {
	return func(ctx context.Context, tc *TaskContext) error {
		return tc.Step(StepFetchHash, func() (any, string, error) {
			hash, err := RunningConfigHash(ctx, o.adapters(tc.Device), tc.Device)
			if err != nil {
				return nil, "", err
			}

			hashes.set(tc.Device.Hostname, hash)

			return hash, "", nil
		})
	}
}
