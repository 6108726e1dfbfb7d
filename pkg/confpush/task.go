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
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/carverauto/netsync/pkg/logger"
	"github.com/carverauto/netsync/pkg/models"
)

// StepName identifies a step of a device task.
type StepName string

const (
	StepHashCheck      StepName = "sync_check_hash"
	StepGenerateConfig StepName = "generate_config"
	StepSyncConfig     StepName = "sync_config"
	StepFetchHash      StepName = "fetch_config_hash"
)

// StepResult is the outcome of one step.
type StepResult struct {
	Name   StepName
	Result any
	Diff   string
	Failed bool
	Err    error
}

// HostResult collects the steps of one device in execution order.
type HostResult struct {
	Hostname string
	Steps    []StepResult
	// Err is set when the task itself failed, wrapped in ErrTaskFailed.
	Err error
	// ChangeScore is the score of the sync step diff, zero when unchanged.
	ChangeScore int
}

// Failed reports whether the task or any of its steps failed.
func (h *HostResult) Failed() bool {
	if h.Err != nil {
		return true
	}

	for i := range h.Steps {
		if h.Steps[i].Failed {
			return true
		}
	}

	return false
}

// Step returns the last recorded result of name.
func (h *HostResult) Step(name StepName) (*StepResult, bool) {
	for i := len(h.Steps) - 1; i >= 0; i-- {
		if h.Steps[i].Name == name {
			return &h.Steps[i], true
		}
	}

	return nil, false
}

// Diff returns the diff produced by the sync step.
func (h *HostResult) Diff() string {
	if s, ok := h.Step(StepSyncConfig); ok {
		return s.Diff
	}

	return ""
}

// Changed reports whether the sync step produced a diff.
func (h *HostResult) Changed() bool {
	return h.Diff() != ""
}

// TaskContext is handed to every task invocation. Logger already carries
// the job id and hostname.
type TaskContext struct {
	JobID  string
	Device *models.Device
	Logger logger.Logger
	Result *HostResult
}

// Step runs fn as the step name and records its outcome. The error of fn
// is returned so the task can decide whether to continue.
func (tc *TaskContext) Step(name StepName, fn func() (result any, diff string, err error)) error {
	result, diff, err := fn()

	tc.Result.Steps = append(tc.Result.Steps, StepResult{
		Name:   name,
		Result: result,
		Diff:   diff,
		Failed: err != nil,
		Err:    err,
	})

	if err != nil {
		tc.Logger.Warn().Err(err).Str("step", string(name)).Msg("Step failed")
	}

	return err
}

// TaskFunc is run once per device.
type TaskFunc func(ctx context.Context, tc *TaskContext) error

// BatchResult is the fan-in of one task over a set of devices.
type BatchResult struct {
	Hosts map[string]*HostResult
}

// FailedHosts returns the sorted hostnames whose task failed.
func (b *BatchResult) FailedHosts() []string {
	var out []string

	for name, h := range b.Hosts {
		if h.Failed() {
			out = append(out, name)
		}
	}

	sort.Strings(out)

	return out
}

// Failed reports whether any device failed.
func (b *BatchResult) Failed() bool {
	for _, h := range b.Hosts {
		if h.Failed() {
			return true
		}
	}

	return false
}

// Hostnames returns every hostname in the batch, sorted.
func (b *BatchResult) Hostnames() []string {
	out := make([]string, 0, len(b.Hosts))
	for name := range b.Hosts {
		out = append(out, name)
	}

	sort.Strings(out)

	return out
}

// Runner fans a task out over devices on a bounded pool. A failing device
// never affects the others.
type Runner struct {
	workers int
	limiter *rate.Limiter
	logger  logger.Logger
}

func NewRunner(workers int, connectRate float64, burst int, log logger.Logger) *Runner {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	limit := rate.Inf
	if connectRate > 0 {
		limit = rate.Limit(connectRate)
	}

	if burst <= 0 {
		burst = 1
	}

	return &Runner{
		workers: workers,
		limiter: rate.NewLimiter(limit, burst),
		logger:  log,
	}
}

// Run executes task for every device and returns once all have finished.
func (r *Runner) Run(ctx context.Context, jobID string, devices []models.Device, task TaskFunc) *BatchResult {
	var (
		mu    sync.Mutex
		batch = &BatchResult{Hosts: make(map[string]*HostResult, len(devices))}
	)

	jobLog := logger.ForJob(r.logger, jobID)

	var g errgroup.Group

	g.SetLimit(r.workers)

	for i := range devices {
		dev := &devices[i]

		g.Go(func() error {
			tc := &TaskContext{
				JobID:  jobID,
				Device: dev,
				Logger: logger.ForHost(jobLog, dev.Hostname),
				Result: &HostResult{Hostname: dev.Hostname},
			}

			r.runOne(ctx, tc, task)

			mu.Lock()
			batch.Hosts[dev.Hostname] = tc.Result
			mu.Unlock()

			return nil
		})
	}

	_ = g.Wait()

	return batch
}

func (r *Runner) runOne(ctx context.Context, tc *TaskContext, task TaskFunc) {
	defer func() {
		if p := recover(); p != nil {
			tc.Result.Err = fmt.Errorf("%w: panic: %v", ErrTaskFailed, p)
			tc.Logger.Error().Interface("panic", p).Msg("Device task panicked")
		}
	}()

	if err := r.limiter.Wait(ctx); err != nil {
		tc.Result.Err = fmt.Errorf("%w: %w", ErrTaskFailed, err)
		return
	}

	if err := task(ctx, tc); err != nil {
		if !errors.Is(err, ErrTaskFailed) {
			err = fmt.Errorf("%w: %w", ErrTaskFailed, err)
		}

		tc.Result.Err = err
	}
}
