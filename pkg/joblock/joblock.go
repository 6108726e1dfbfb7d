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

//go:generate mockgen -destination=mock_joblock.go -package=joblock github.com/carverauto/netsync/pkg/joblock Store

// Package joblock guards the commit phase of sync jobs with a single named
// lock shared by every job in the fleet.
package joblock

import (
	"context"
	"errors"
	"fmt"

	"github.com/carverauto/netsync/pkg/logger"
)

// DevicesLock is the name every committing sync job contends for.
const DevicesLock = "devices"

var (
	ErrLockAcquisitionFailed = errors.New("unable to acquire lock for configuring devices")
	ErrEmptyJobID            = errors.New("job id is required to hold a lock")
)

// Store persists lock ownership. TryAcquire must be atomic: of two
// concurrent callers for the same name at most one gets true.
type Store interface {
	TryAcquire(ctx context.Context, name, jobID string) (bool, error)
	Release(ctx context.Context, jobID string) (bool, error)
	ClearAll(ctx context.Context) (int64, error)
}

type Manager struct {
	store  Store
	logger logger.Logger
}

func NewManager(store Store, log logger.Logger) *Manager {
	return &Manager{store: store, logger: log}
}

// Acquire takes name for jobID or fails with ErrLockAcquisitionFailed.
func (m *Manager) Acquire(ctx context.Context, name, jobID string) error {
	if jobID == "" {
		return ErrEmptyJobID
	}

	m.logger.Info().Str("lock", name).Str("job_id", jobID).Msg("Trying to acquire lock for devices")

	ok, err := m.store.TryAcquire(ctx, name, jobID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLockAcquisitionFailed, err)
	}

	if !ok {
		return fmt.Errorf("%w: %s is held by another job", ErrLockAcquisitionFailed, name)
	}

	return nil
}

// Release frees every lock held by jobID. Releasing a lock that is not
// held is not an error.
func (m *Manager) Release(ctx context.Context, jobID string) error {
	released, err := m.store.Release(ctx, jobID)
	if err != nil {
		return err
	}

	m.logger.Info().Str("job_id", jobID).Bool("held", released).Msg("Released lock for devices")

	return nil
}

// ClearAll drops every lock. Used at startup to recover locks left behind
// by a crashed process.
func (m *Manager) ClearAll(ctx context.Context) error {
	n, err := m.store.ClearAll(ctx)
	if err != nil {
		return err
	}

	if n > 0 {
		m.logger.Warn().Int64("count", n).Msg("Cleared stale job locks")
	}

	return nil
}
