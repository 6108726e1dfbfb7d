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
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/carverauto/netsync/pkg/models"
)

// FunctionSyncDevices is the scheduler name of Orchestrator.SyncDevices.
const FunctionSyncDevices = "sync_devices"

//nolint:gochecknoglobals // validator caches struct metadata and is safe for concurrent use
var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})

	return validate
}

// SyncRequest selects devices by hostname, by role, or, when both are
// empty, every managed device that is not synchronized.
type SyncRequest struct {
	Hostname   string `json:"hostname,omitempty" validate:"omitempty,hostname_rfc1123,max=64,excluded_with=DeviceType"`
	DeviceType string `json:"device_type,omitempty" validate:"omitempty,excluded_with=Hostname"`
	// DryRun defaults to true when omitted.
	DryRun   *bool `json:"dry_run,omitempty"`
	Force    bool  `json:"force"`
	AutoPush bool  `json:"auto_push"`
}

// IsDryRun reports whether the request must leave devices untouched.
func (r *SyncRequest) IsDryRun() bool {
	return r.DryRun == nil || *r.DryRun
}

// Role parses DeviceType. It returns "" when no role was requested.
func (r *SyncRequest) Role() (models.DeviceRole, error) {
	if r.DeviceType == "" {
		return "", nil
	}

	return models.ParseDeviceRole(r.DeviceType)
}

func (r *SyncRequest) Validate() error {
	if err := requestValidator().Struct(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if _, err := r.Role(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	return nil
}

// AutoPushDecision records what the auto-push step decided and why.
type AutoPushDecision struct {
	Scheduled bool   `json:"scheduled"`
	Reason    string `json:"reason"`
	JobID     string `json:"job_id,omitempty"`
}

// JobResult is the outcome of one SyncDevices run.
type JobResult struct {
	JobID       string
	Devices     []string
	Hosts       map[string]*HostResult
	ChangeScore int
	NextJobID   string
	AutoPush    *AutoPushDecision
}

// TaskSummary is the serialized form of one step.
type TaskSummary struct {
	TaskName string `json:"task_name"`
	Result   any    `json:"result"`
	Diff     string `json:"diff"`
	Failed   bool   `json:"failed"`
}

// HostSummary is the serialized form of one device.
type HostSummary struct {
	Failed   bool          `json:"failed"`
	JobTasks []TaskSummary `json:"job_tasks"`
}

const taskErrorName = "task_error"

// Serialize maps every device to its failed flag and ordered steps.
func (r *JobResult) Serialize() map[string]HostSummary {
	out := make(map[string]HostSummary, len(r.Hosts))

	for name, h := range r.Hosts {
		summary := HostSummary{Failed: h.Failed(), JobTasks: make([]TaskSummary, 0, len(h.Steps)+1)}

		for _, s := range h.Steps {
			result := s.Result
			if s.Err != nil {
				result = s.Err.Error()
			}

			summary.JobTasks = append(summary.JobTasks, TaskSummary{
				TaskName: string(s.Name),
				Result:   result,
				Diff:     s.Diff,
				Failed:   s.Failed,
			})
		}

		if h.Err != nil && !stepsFailed(h) {
			summary.JobTasks = append(summary.JobTasks, TaskSummary{
				TaskName: taskErrorName,
				Result:   h.Err.Error(),
				Failed:   true,
			})
		}

		out[name] = summary
	}

	return out
}

func stepsFailed(h *HostResult) bool {
	for i := range h.Steps {
		if h.Steps[i].Failed {
			return true
		}
	}

	return false
}

// ChangedHosts returns the sorted hostnames whose push produced a diff.
func (r *JobResult) ChangedHosts() []string {
	var out []string

	for name, h := range r.Hosts {
		if h.Changed() {
			out = append(out, name)
		}
	}

	sort.Strings(out)

	return out
}

// ResultDocument is the wire form of a JobResult.
type ResultDocument struct {
	JobID       string                 `json:"job_id,omitempty"`
	Devices     map[string]HostSummary `json:"devices"`
	ChangeScore int                    `json:"change_score"`
	NextJobID   string                 `json:"next_job_id,omitempty"`
	AutoPush    *AutoPushDecision      `json:"auto_push,omitempty"`
}

func (r *JobResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Document())
}

// Document returns the wire form of r.
func (r *JobResult) Document() ResultDocument {
	return ResultDocument{
		JobID:       r.JobID,
		Devices:     r.Serialize(),
		ChangeScore: r.ChangeScore,
		NextJobID:   r.NextJobID,
		AutoPush:    r.AutoPush,
	}
}
