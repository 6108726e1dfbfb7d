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
	"fmt"

	"github.com/carverauto/netsync/pkg/logger"
	"github.com/carverauto/netsync/pkg/models"
)

const (
	reasonNotEligible = "auto-push requires a dry run of exactly one device selected by hostname"
	reasonNoChanges   = "no configuration changes"
	reasonNoScheduler = "no scheduler configured"
)

// autoPush promotes a low risk single device dry run to a commit run. It
// returns nil when auto-push was not requested. Failing to schedule is
// reported in the decision and never fails the job.
func (o *Orchestrator) autoPush(
	ctx context.Context, log logger.Logger, req SyncRequest, result *JobResult, devices []models.Device,
) *AutoPushDecision {
	if !req.AutoPush {
		return nil
	}

	skip := func(reason string) *AutoPushDecision {
		log.Info().Str("reason", reason).Msg("Auto-push skipped")

		return &AutoPushDecision{Reason: reason}
	}

	if len(devices) != 1 || req.Hostname == "" || !req.IsDryRun() {
		return skip(reasonNotEligible)
	}

	if len(result.ChangedHosts()) == 0 {
		return skip(reasonNoChanges)
	}

	if result.ChangeScore >= o.cfg.AutoPushThreshold {
		return skip(fmt.Sprintf("change score %d is not below %d", result.ChangeScore, o.cfg.AutoPushThreshold))
	}

	if o.scheduler == nil {
		return skip(reasonNoScheduler)
	}

	commit := false
	next := SyncRequest{
		Hostname: req.Hostname,
		DryRun:   &commit,
		Force:    req.Force,
	}

	jobID, err := o.scheduler.ScheduleOnce(ctx, FunctionSyncDevices, o.cfg.autoPushDelay(), next)
	if err != nil {
		log.Error().Err(err).Msg("Failed to schedule auto-push job")

		return &AutoPushDecision{Reason: fmt.Sprintf("%s: %v", ErrAutoPushSkipped, err)}
	}

	log.Info().
		Str("next_job_id", jobID).
		Int("change_score", result.ChangeScore).
		Msg("Scheduled auto-push of low impact change")

	return &AutoPushDecision{
		Scheduled: true,
		Reason:    fmt.Sprintf("change score %d is below %d", result.ChangeScore, o.cfg.AutoPushThreshold),
		JobID:     jobID,
	}
}
