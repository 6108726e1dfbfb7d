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

package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/carverauto/netsync/pkg/models"
)

const insertJobSQL = `
INSERT INTO jobs (id, function_name, status, payload, scheduled_for)
VALUES ($1, $2, $3, $4, $5)`

const updateJobSQL = `
UPDATE jobs SET
	status = $2,
	start_time = $3,
	finish_time = $4,
	result = $5,
	exception = NULLIF($6, ''),
	change_score = $7,
	next_job_id = NULLIF($8, '')
WHERE id = $1`

const getJobSQL = `
SELECT id, function_name, status, payload, scheduled_for, start_time, finish_time,
       result, COALESCE(exception, ''), change_score, COALESCE(next_job_id, '')
FROM jobs WHERE id = $1`

// CreateJob records a newly scheduled job.
func (db *DB) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := db.pool.Exec(ctx, insertJobSQL,
		job.ID,
		job.FunctionName,
		string(job.Status),
		nullableJSON(job.Payload),
		job.ScheduledFor,
	)
	if err != nil {
		return fmt.Errorf("%w job %s: %w", ErrFailedToInsert, job.ID, err)
	}

	return nil
}

// UpdateJob writes the mutable tracking fields of job.
func (db *DB) UpdateJob(ctx context.Context, job *models.Job) error {
	tag, err := db.pool.Exec(ctx, updateJobSQL,
		job.ID,
		string(job.Status),
		job.StartTime,
		job.FinishTime,
		nullableJSON(job.Result),
		job.Exception,
		job.ChangeScore,
		job.NextJobID,
	)
	if err != nil {
		return fmt.Errorf("%w job %s: %w", ErrFailedToUpdate, job.ID, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, job.ID)
	}

	return nil
}

func (db *DB) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var (
		job             models.Job
		status          string
		payload, result []byte
	)

	err := db.pool.QueryRow(ctx, getJobSQL, id).Scan(
		&job.ID,
		&job.FunctionName,
		&status,
		&payload,
		&job.ScheduledFor,
		&job.StartTime,
		&job.FinishTime,
		&result,
		&job.Exception,
		&job.ChangeScore,
		&job.NextJobID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("%w job %s: %w", ErrFailedToQuery, id, err)
	}

	job.Status = models.JobStatus(status)
	job.Payload = payload
	job.Result = result

	return &job, nil
}

// nullableJSON maps an empty payload to SQL NULL.
func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}

	return string(raw)
}
