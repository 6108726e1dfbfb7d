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
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes worth retrying.
const (
	sqlstateDeadlockDetected    = "40P01"
	sqlstateSerializationFailed = "40001"
	sqlstateStatementTimeout    = "57014"
)

const (
	maxRetryAttempts = 3
	baseBackoff      = 150 * time.Millisecond
	deadlockBackoff  = 500 * time.Millisecond
)

// classifyError returns the SQLSTATE of err and whether it is transient.
func classifyError(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}

	switch pgErr.Code {
	case sqlstateDeadlockDetected, sqlstateSerializationFailed, sqlstateStatementTimeout:
		return pgErr.Code, true
	default:
		return pgErr.Code, false
	}
}

// backoffDelay doubles per attempt, starting higher for lock conflicts.
func backoffDelay(attempt int, sqlstate string) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	base := baseBackoff
	if sqlstate == sqlstateDeadlockDetected || sqlstate == sqlstateSerializationFailed {
		base = deadlockBackoff
	}

	return base * time.Duration(1<<(attempt-1))
}

func (db *DB) sendWithRetry(ctx context.Context, batch *pgx.Batch, name string) error {
	var lastErr error

	for attempt := 1; attempt <= maxRetryAttempts; attempt++ {
		err := db.sendBatch(ctx, batch, name)
		if err == nil {
			return nil
		}

		lastErr = err

		code, transient := classifyError(err)
		if !transient || attempt == maxRetryAttempts {
			break
		}

		delay := backoffDelay(attempt, code)

		db.logger.Warn().
			Err(err).
			Str("operation", name).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("Transient database error, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%w %s: %w", ErrFailedToUpdate, name, lastErr)
}

func (db *DB) sendBatch(ctx context.Context, batch *pgx.Batch, name string) (err error) {
	br := db.pool.SendBatch(ctx, batch)
	defer func() {
		if closeErr := br.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%s batch close: %w", name, closeErr)
		}
	}()

	for i := 0; i < batch.Len(); i++ {
		if _, err = br.Exec(); err != nil {
			return fmt.Errorf("%s batch exec (command %d): %w", name, i, err)
		}
	}

	return nil
}
