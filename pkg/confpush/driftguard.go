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

	"github.com/carverauto/netsync/pkg/hashutil"
	"github.com/carverauto/netsync/pkg/models"
)

// DriftStatus is the payload of a passed hash check step.
type DriftStatus string

const (
	DriftSkippedForce  DriftStatus = "skipped: force"
	DriftSkippedNoHash DriftStatus = "skipped: no stored hash"
	DriftClean         DriftStatus = "hash matches"
)

// DriftGuard refuses to overwrite devices whose running configuration no
// longer matches the fingerprint recorded after their last commit.
type DriftGuard struct {
	adapters AdapterFactory
}

func NewDriftGuard(adapters AdapterFactory) *DriftGuard {
	return &DriftGuard{adapters: adapters}
}

// Check compares the stored and live fingerprints of dev. A mismatch is
// ErrDriftDetected; failing to read the running configuration is
// ErrHashCheckFailed.
func (g *DriftGuard) Check(ctx context.Context, dev *models.Device, force bool) (DriftStatus, error) {
	if force {
		return DriftSkippedForce, nil
	}

	if !dev.HasConfigHash() {
		return DriftSkippedNoHash, nil
	}

	config, err := fetchRunningConfig(ctx, g.adapters(dev), dev)
	if err != nil {
		return "", fmt.Errorf("%w for %s: %w", ErrHashCheckFailed, dev.Hostname, err)
	}

	if !hashutil.MatchesConfig(dev.ConfigHash, config) {
		return "", fmt.Errorf("%w: %s", ErrDriftDetected, dev.Hostname)
	}

	return DriftClean, nil
}

// Task wraps Check as the hash check step of a device task.
func (g *DriftGuard) Task(force bool) TaskFunc {
	return func(ctx context.Context, tc *TaskContext) error {
		return tc.Step(StepHashCheck, func() (any, string, error) {
			status, err := g.Check(ctx, tc.Device, force)
			return string(status), "", err
		})
	}
}

// batchDriftError turns a failed hash check batch into one HostsError.
// Drift takes precedence over devices that could not be read.
func batchDriftError(batch *BatchResult) error {
	failed := batch.FailedHosts()
	if len(failed) == 0 {
		return nil
	}

	var drifted []string

	for _, host := range failed {
		if s, ok := batch.Hosts[host].Step(StepHashCheck); ok && errors.Is(s.Err, ErrDriftDetected) {
			drifted = append(drifted, host)
		}
	}

	if len(drifted) > 0 {
		return &HostsError{Kind: ErrDriftDetected, Hosts: drifted}
	}

	return &HostsError{Kind: ErrHashCheckFailed, Hosts: failed}
}
