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

// Package scheduler runs registered functions once after a delay and keeps
// a tracking record of every run in a JobStore.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/netsync/pkg/logger"
	"github.com/carverauto/netsync/pkg/models"
)

var (
	ErrUnknownFunction = errors.New("unknown scheduled function")
	ErrShuttingDown    = errors.New("scheduler is shutting down")
	ErrPanic           = errors.New("scheduled function panicked")
)

// Outcome is what a scheduled function reports back for its job record.
type Outcome struct {
	Result      any
	ChangeScore *int
	NextJobID   string
}

// Func is a schedulable function. args is the JSON payload given to
// ScheduleOnce.
type Func func(ctx context.Context, jobID string, args json.RawMessage) (*Outcome, error)

// Scheduler is safe for concurrent use.
type Scheduler struct {
	store  JobStore
	logger logger.Logger
	now    func() time.Time

	baseCtx context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	funcs   map[string]Func
	pending map[string]*time.Timer
	closed  bool
	wg      sync.WaitGroup
}

func New(store JobStore, log logger.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		store:   store,
		logger:  log,
		now:     time.Now,
		baseCtx: ctx,
		cancel:  cancel,
		funcs:   make(map[string]Func),
		pending: make(map[string]*time.Timer),
	}
}

// Register makes fn schedulable under name. Registering a name twice
// replaces the earlier function.
func (s *Scheduler) Register(name string, fn Func) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.funcs[name] = fn
}

// ScheduleOnce records a SCHEDULED job and runs name(args) after delay. It
// returns the new job id.
func (s *Scheduler) ScheduleOnce(ctx context.Context, name string, delay time.Duration, args any) (string, error) {
	payload, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("marshal args for %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrShuttingDown
	}

	fn, ok := s.funcs[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}

	job := &models.Job{
		ID:           uuid.New().String(),
		FunctionName: name,
		Status:       models.JobStatusScheduled,
		Payload:      payload,
		ScheduledFor: s.now().Add(delay).UTC(),
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("record job %s: %w", job.ID, err)
	}

	s.wg.Add(1)
	s.pending[job.ID] = time.AfterFunc(delay, func() {
		defer s.wg.Done()

		s.mu.Lock()
		delete(s.pending, job.ID)
		s.mu.Unlock()

		s.run(job, fn)
	})

	s.logger.Info().
		Str("job_id", job.ID).
		Str("function", name).
		Dur("delay", delay).
		Msg("Scheduled job")

	return job.ID, nil
}

// RunNow records and runs name(args) synchronously and returns the
// finished job record.
func (s *Scheduler) RunNow(ctx context.Context, name string, args any) (*models.Job, error) {
	payload, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal args for %s: %w", name, err)
	}

	s.mu.Lock()
	fn, ok := s.funcs[name]
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}

	job := &models.Job{
		ID:           uuid.New().String(),
		FunctionName: name,
		Status:       models.JobStatusScheduled,
		Payload:      payload,
		ScheduledFor: s.now().UTC(),
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("record job %s: %w", job.ID, err)
	}

	return job, s.execute(ctx, job, fn)
}

func (s *Scheduler) run(job *models.Job, fn Func) {
	_ = s.execute(s.baseCtx, job, fn)
}

// execute moves job through RUNNING to FINISHED or EXCEPTION and returns
// the function error.
func (s *Scheduler) execute(ctx context.Context, job *models.Job, fn Func) (err error) {
	log := logger.ForJob(s.logger, job.ID)

	start := s.now().UTC()
	job.Status = models.JobStatusRunning
	job.StartTime = &start

	if uerr := s.store.UpdateJob(ctx, job); uerr != nil {
		log.Warn().Err(uerr).Msg("Failed to mark job running")
	}

	var outcome *Outcome

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", ErrPanic, r)
			}
		}()

		outcome, err = fn(ctx, job.ID, job.Payload)
	}()

	finish := s.now().UTC()
	job.FinishTime = &finish

	if outcome != nil {
		job.ChangeScore = outcome.ChangeScore
		job.NextJobID = outcome.NextJobID

		if outcome.Result != nil {
			result, merr := json.Marshal(outcome.Result)
			if merr != nil {
				log.Error().Err(merr).Msg("Failed to marshal job result")
			} else {
				job.Result = result
			}
		}
	}

	if err != nil {
		job.Status = models.JobStatusException
		job.Exception = err.Error()

		log.Error().Err(err).Str("function", job.FunctionName).Msg("Job failed")
	} else {
		job.Status = models.JobStatusFinished

		log.Info().Str("function", job.FunctionName).Dur("duration", finish.Sub(start)).Msg("Job finished")
	}

	// Record the outcome even when the caller's context is already done.
	if uerr := s.store.UpdateJob(context.WithoutCancel(ctx), job); uerr != nil {
		log.Error().Err(uerr).Msg("Failed to record job outcome")
	}

	return err
}

// Pending returns the number of jobs waiting for their delay to expire.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.pending)
}

// Wait blocks until every scheduled job has run or was cancelled.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// WaitContext is Wait bounded by ctx. Jobs keep running when ctx ends first.
func (s *Scheduler) WaitContext(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown drops jobs that have not started, cancels running ones and
// waits for them until ctx is done.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true

	for id, timer := range s.pending {
		if timer.Stop() {
			s.wg.Done()
			s.logger.Info().Str("job_id", id).Msg("Dropped pending job")
		}

		delete(s.pending, id)
	}
	s.mu.Unlock()

	s.cancel()

	return s.WaitContext(ctx)
}
