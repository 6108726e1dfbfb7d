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

package models

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobStatusScheduled JobStatus = "SCHEDULED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusFinished  JobStatus = "FINISHED"
	JobStatusException JobStatus = "EXCEPTION"
)

// Job is the tracking record of one scheduled function invocation.
type Job struct {
	ID           string          `json:"id"`
	FunctionName string          `json:"function_name"`
	Status       JobStatus       `json:"status"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	ScheduledFor time.Time       `json:"scheduled_for"`
	StartTime    *time.Time      `json:"start_time,omitempty"`
	FinishTime   *time.Time      `json:"finish_time,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	Exception    string          `json:"exception,omitempty"`
	ChangeScore  *int            `json:"change_score,omitempty"`
	NextJobID    string          `json:"next_job_id,omitempty"`
}
