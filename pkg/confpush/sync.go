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
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carverauto/netsync/pkg/logger"
	"github.com/carverauto/netsync/pkg/models"
)

const (
	outcomeSucceeded = "succeeded"
	outcomeFailed    = "failed"
	outcomeEmpty     = "empty"
)

type hashSet struct {
	mu     sync.Mutex
	hashes map[string]string
}

func (h *hashSet) set(hostname, hash string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.hashes[hostname] = hash
}

// SyncDevices brings the selected devices in line with their rendered
// configuration. A dry run only computes diffs. A commit run holds the
// commit lock from the first push until the job score is known.
//
// On failure the partial result is returned together with the error.
func (o *Orchestrator) SyncDevices(ctx context.Context, jobID string, req SyncRequest) (result *JobResult, err error) {
	started := time.Now()
	dryRun := req.IsDryRun()

	ctx, span := tracer().Start(ctx, "confpush.SyncDevices", trace.WithAttributes(
		attribute.String("netsync.job_id", jobID),
		attribute.String("netsync.hostname", req.Hostname),
		attribute.String("netsync.device_type", req.DeviceType),
		attribute.Bool("netsync.dry_run", dryRun),
		attribute.Bool("netsync.force", req.Force),
	))

	log := logger.ForJob(o.logger, jobID)

	defer func() {
		outcome := outcomeSucceeded

		switch {
		case err != nil:
			outcome = outcomeFailed

			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case result != nil && len(result.Devices) == 0:
			outcome = outcomeEmpty
		}

		if result != nil {
			span.SetAttributes(attribute.Int("netsync.change_score", result.ChangeScore))
		}

		recordJob(ctx, outcome, dryRun, started)
		span.End()
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	devices, err := o.selectDevices(ctx, req)
	if err != nil {
		return nil, err
	}

	result = &JobResult{
		JobID:   jobID,
		Devices: hostnames(devices),
		Hosts:   make(map[string]*HostResult, len(devices)),
	}

	if len(devices) == 0 {
		log.Info().Msg("No devices selected for synchronization")

		result.ChangeScore = maxScore

		return result, nil
	}

	log.Info().
		Int("devices", len(devices)).
		Bool("dry_run", dryRun).
		Bool("force", req.Force).
		Msg("Starting device synchronization")

	checks := o.runner.Run(ctx, jobID, devices, o.guard.Task(req.Force))
	mergeBatch(result, checks)

	if err := batchDriftError(checks); err != nil {
		log.Warn().Err(err).Msg("Refusing to synchronize")

		return result, err
	}

	unlock := func() {}

	if !dryRun {
		if err := o.locker.Acquire(ctx, o.cfg.LockName, jobID); err != nil {
			if errors.Is(err, ErrLockAcquisitionFailed) {
				recordLockContention(ctx)
			}

			return result, err
		}

		held := true
		unlock = func() {
			if !held {
				return
			}

			held = false

			if err := o.locker.Release(context.WithoutCancel(ctx), jobID); err != nil {
				log.Error().Err(err).Msg("Failed to release commit lock")
			}
		}

		defer unlock()
	}

	pushes := o.runner.Run(ctx, jobID, devices, o.pushTask(dryRun))
	mergeBatch(result, pushes)

	failed := pushes.FailedHosts()
	for _, host := range failed {
		log.Error().Str("hostname", host).Msg("Failed to synchronize device")
	}

	if !dryRun {
		if err := o.recordHashes(ctx, jobID, devices, pushes, result); err != nil {
			unlock()

			return result, err
		}
	}

	if err := o.markSynchronized(ctx, devices, pushes, dryRun); err != nil {
		return result, err
	}

	result.ChangeScore = o.jobScore(pushes)

	changed := len(result.ChangedHosts())
	recordDevices(ctx, changed, len(devices)-changed-len(failed), len(failed))
	recordScore(ctx, result.ChangeScore)

	unlock()

	log.Info().
		Int("change_score", result.ChangeScore).
		Int("changed", changed).
		Strs("failed", failed).
		Msg("Device synchronization finished")

	result.AutoPush = o.autoPush(ctx, log, req, result, devices)
	if result.AutoPush != nil && result.AutoPush.Scheduled {
		result.NextJobID = result.AutoPush.JobID
	}

	return result, nil
}

func (o *Orchestrator) selectDevices(ctx context.Context, req SyncRequest) ([]models.Device, error) {
	role, err := req.Role()
	if err != nil {
		return nil, err
	}

	filter := models.DeviceFilter{ManagedOnly: true}

	switch {
	case req.Hostname != "":
		filter.Hostname = req.Hostname
	case role != "":
		filter.Role = role
	default:
		filter.UnsynchronizedOnly = true
	}

	devices, err := o.registry.ListDevices(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("select devices: %w", err)
	}

	return devices, nil
}

// recordHashes stores the fingerprint of every device that did not fail.
// Without a complete set of fingerprints the next job could not detect
// drift, so any failure fails the job.
func (o *Orchestrator) recordHashes(
	ctx context.Context, jobID string, devices []models.Device, pushes *BatchResult, result *JobResult,
) error {
	ok := succeeded(devices, pushes)
	if len(ok) == 0 {
		return nil
	}

	hashes := &hashSet{hashes: make(map[string]string, len(ok))}

	batch := o.runner.Run(ctx, jobID, ok, o.hashTask(hashes))
	mergeBatch(result, batch)

	if failed := batch.FailedHosts(); len(failed) > 0 {
		return &HostsError{Kind: ErrHashRetrievalFailed, Hosts: failed}
	}

	if err := o.registry.SetConfigHashes(ctx, hashes.hashes); err != nil {
		return fmt.Errorf("%w: %w", ErrHashRetrievalFailed, err)
	}

	return nil
}

// markSynchronized flags unchanged devices always and changed devices only
// after a commit.
func (o *Orchestrator) markSynchronized(
	ctx context.Context, devices []models.Device, pushes *BatchResult, dryRun bool,
) error {
	var hosts []string

	for _, dev := range succeeded(devices, pushes) {
		if dryRun && pushes.Hosts[dev.Hostname].Changed() {
			continue
		}

		hosts = append(hosts, dev.Hostname)
	}

	if err := o.registry.MarkSynchronized(ctx, hosts); err != nil {
		return fmt.Errorf("mark devices synchronized: %w", err)
	}

	return nil
}

func (o *Orchestrator) jobScore(pushes *BatchResult) int {
	scores := make([]int, 0, len(pushes.Hosts))

	for _, h := range pushes.Hosts {
		if h.Failed() {
			continue
		}

		if h.Changed() {
			scores = append(scores, h.ChangeScore)
		} else {
			scores = append(scores, 0)
		}
	}

	return AggregateScore(scores, pushes.FailedHosts())
}

// succeeded returns the devices whose task in batch did not fail, in
// selection order.
func succeeded(devices []models.Device, batch *BatchResult) []models.Device {
	out := make([]models.Device, 0, len(devices))

	for _, dev := range devices {
		h, ok := batch.Hosts[dev.Hostname]
		if ok && !h.Failed() {
			out = append(out, dev)
		}
	}

	return out
}

// mergeBatch appends the steps of batch to the per device results of r.
func mergeBatch(r *JobResult, batch *BatchResult) {
	for name, h := range batch.Hosts {
		existing, ok := r.Hosts[name]
		if !ok {
			r.Hosts[name] = h
			continue
		}

		existing.Steps = append(existing.Steps, h.Steps...)

		if h.Err != nil {
			existing.Err = errors.Join(existing.Err, h.Err)
		}

		if h.ChangeScore != 0 {
			existing.ChangeScore = h.ChangeScore
		}
	}
}

func hostnames(devices []models.Device) []string {
	out := make([]string, 0, len(devices))
	for i := range devices {
		out = append(out, devices[i].Hostname)
	}

	return out
}
