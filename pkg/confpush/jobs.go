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
	"encoding/json"
	"fmt"

	"github.com/carverauto/netsync/pkg/scheduler"
)

// Register makes SyncDevices schedulable as FunctionSyncDevices.
func (o *Orchestrator) Register(s *scheduler.Scheduler) {
	s.Register(FunctionSyncDevices, o.syncJob)
}

func (o *Orchestrator) syncJob(ctx context.Context, jobID string, args json.RawMessage) (*scheduler.Outcome, error) {
	var req SyncRequest

	if len(args) > 0 {
		if err := json.Unmarshal(args, &req); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}

	result, err := o.SyncDevices(ctx, jobID, req)
	if result == nil {
		return nil, err
	}

	outcome := &scheduler.Outcome{
		Result:    result.Document(),
		NextJobID: result.NextJobID,
	}

	// Aborted jobs are never scored.
	if err == nil {
		score := result.ChangeScore
		outcome.ChangeScore = &score
	}

	return outcome, err
}
