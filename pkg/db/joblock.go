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
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	acquireLockSQL = `
INSERT INTO joblock (name, job_id, acquired_at)
VALUES ($1, $2, now())
ON CONFLICT (name) DO NOTHING`

	releaseLockSQL = `DELETE FROM joblock WHERE job_id = $1`
	clearLocksSQL  = `DELETE FROM joblock`
	lockHolderSQL  = `SELECT job_id, acquired_at FROM joblock WHERE name = $1`
)

// TryAcquire inserts the lock row for name unless one exists. The insert
// and the conflict check are a single statement inside a transaction, so
// two jobs racing for the same name cannot both win.
func (db *DB) TryAcquire(ctx context.Context, name, jobID string) (bool, error) {
	acquired := false

	err := db.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, acquireLockSQL, name, jobID)
		if err != nil {
			return err
		}

		acquired = tag.RowsAffected() == 1

		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w job lock %s: %w", ErrFailedToInsert, name, err)
	}

	return acquired, nil
}

// Release deletes every lock row held by jobID and reports whether one
// existed.
func (db *DB) Release(ctx context.Context, jobID string) (bool, error) {
	tag, err := db.pool.Exec(ctx, releaseLockSQL, jobID)
	if err != nil {
		return false, fmt.Errorf("%w job lock for %s: %w", ErrFailedToUpdate, jobID, err)
	}

	return tag.RowsAffected() > 0, nil
}

// ClearAll removes every lock row and returns how many there were.
func (db *DB) ClearAll(ctx context.Context) (int64, error) {
	tag, err := db.pool.Exec(ctx, clearLocksSQL)
	if err != nil {
		return 0, fmt.Errorf("%w job locks: %w", ErrFailedToUpdate, err)
	}

	return tag.RowsAffected(), nil
}

// Holder returns the job currently holding name, or "" when it is free.
func (db *DB) Holder(ctx context.Context, name string) (string, time.Time, error) {
	var (
		jobID string
		at    time.Time
	)

	err := db.pool.QueryRow(ctx, lockHolderSQL, name).Scan(&jobID, &at)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", time.Time{}, nil
	}

	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w job lock %s: %w", ErrFailedToQuery, name, err)
	}

	return jobID, at, nil
}
