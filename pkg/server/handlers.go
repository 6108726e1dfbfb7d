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

package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/netsync/pkg/confpush"
	"github.com/carverauto/netsync/pkg/logger"
	"github.com/carverauto/netsync/pkg/models"
	"github.com/carverauto/netsync/pkg/scheduler"
)

var errEmptyJobID = errors.New("job_id is required")

// SyncReply acknowledges a scheduled sync job.
type SyncReply struct {
	JobID string `json:"job_id"`
}

type JobRequest struct {
	JobID string `json:"job_id"`
}

type jobScheduler interface {
	ScheduleOnce(ctx context.Context, name string, delay time.Duration, args any) (string, error)
}

type handlers struct {
	sched  jobScheduler
	jobs   scheduler.JobStore
	logger logger.Logger
}

// sync schedules the request to run immediately and replies with the job
// id. Progress and the outcome are observed through the job record and the
// progress stream.
func (h *handlers) sync(ctx context.Context, req *confpush.SyncRequest) (*SyncReply, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id, err := h.sched.ScheduleOnce(ctx, confpush.FunctionSyncDevices, 0, req)
	if err != nil {
		return nil, fmt.Errorf("schedule sync: %w", err)
	}

	h.logger.Info().
		Str("job_id", id).
		Str("hostname", req.Hostname).
		Str("device_type", req.DeviceType).
		Bool("dry_run", req.IsDryRun()).
		Msg("Accepted sync request")

	return &SyncReply{JobID: id}, nil
}

func (h *handlers) job(ctx context.Context, req *JobRequest) (*models.Job, error) {
	if req.JobID == "" {
		return nil, errEmptyJobID
	}

	return h.jobs.GetJob(ctx, req.JobID)
}
