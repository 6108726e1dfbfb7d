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

package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/netsync/pkg/logger"
	"github.com/carverauto/netsync/pkg/models"
)

type syncArgs struct {
	Hostname string `json:"hostname"`
	DryRun   bool   `json:"dry_run"`
}

func TestScheduleOnceRunsAndRecords(t *testing.T) {
	store := NewMemoryJobStore()
	s := New(store, logger.NewTestLogger())

	received := make(chan syncArgs, 1)
	score := 5

	s.Register("sync_devices", func(_ context.Context, _ string, args json.RawMessage) (*Outcome, error) {
		var a syncArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}

		received <- a

		return &Outcome{Result: map[string]string{"status": "ok"}, ChangeScore: &score, NextJobID: "next"}, nil
	})

	id, err := s.ScheduleOnce(context.Background(), "sync_devices", time.Millisecond, syncArgs{Hostname: "eosaccess"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	s.Wait()

	assert.Equal(t, syncArgs{Hostname: "eosaccess"}, <-received)

	job, err := store.GetJob(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFinished, job.Status)
	assert.JSONEq(t, `{"status":"ok"}`, string(job.Result))
	require.NotNil(t, job.ChangeScore)
	assert.Equal(t, 5, *job.ChangeScore)
	assert.Equal(t, "next", job.NextJobID)
	assert.NotNil(t, job.StartTime)
	assert.NotNil(t, job.FinishTime)
}

func TestRunNowRecordsException(t *testing.T) {
	store := NewMemoryJobStore()
	s := New(store, logger.NewTestLogger())
	boom := errors.New("boom")

	s.Register("fails", func(context.Context, string, json.RawMessage) (*Outcome, error) {
		return nil, boom
	})

	job, err := s.RunNow(context.Background(), "fails", nil)
	require.ErrorIs(t, err, boom)

	stored, err := store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusException, stored.Status)
	assert.Equal(t, "boom", stored.Exception)
}

func TestRunNowRecoversPanics(t *testing.T) {
	s := New(NewMemoryJobStore(), logger.NewTestLogger())

	s.Register("panics", func(context.Context, string, json.RawMessage) (*Outcome, error) {
		panic("bad state")
	})

	job, err := s.RunNow(context.Background(), "panics", nil)
	require.ErrorIs(t, err, ErrPanic)
	assert.Equal(t, models.JobStatusException, job.Status)
}

func TestScheduleUnknownFunction(t *testing.T) {
	s := New(NewMemoryJobStore(), logger.NewTestLogger())

	_, err := s.ScheduleOnce(context.Background(), "missing", 0, nil)
	require.ErrorIs(t, err, ErrUnknownFunction)
}

func TestScheduleOnceStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockJobStore(ctrl)
	storeErr := errors.New("insert failed")

	store.EXPECT().CreateJob(gomock.Any(), gomock.Any()).Return(storeErr)

	s := New(store, logger.NewTestLogger())
	s.Register("noop", func(context.Context, string, json.RawMessage) (*Outcome, error) { return nil, nil })

	_, err := s.ScheduleOnce(context.Background(), "noop", 0, nil)
	require.ErrorIs(t, err, storeErr)
	assert.Zero(t, s.Pending())
}

func TestShutdownDropsPendingJobs(t *testing.T) {
	store := NewMemoryJobStore()
	s := New(store, logger.NewTestLogger())
	ran := make(chan struct{}, 1)

	s.Register("later", func(context.Context, string, json.RawMessage) (*Outcome, error) {
		ran <- struct{}{}
		return nil, nil
	})

	id, err := s.ScheduleOnce(context.Background(), "later", time.Hour, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Pending())

	require.NoError(t, s.Shutdown(context.Background()))
	assert.Zero(t, s.Pending())
	assert.Empty(t, ran)

	job, err := store.GetJob(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusScheduled, job.Status)

	_, err = s.ScheduleOnce(context.Background(), "later", 0, nil)
	require.ErrorIs(t, err, ErrShuttingDown)
}

func TestWaitContextReturnsWhenJobsFinish(t *testing.T) {
	s := New(NewMemoryJobStore(), logger.NewTestLogger())

	s.Register("soon", func(context.Context, string, json.RawMessage) (*Outcome, error) {
		return nil, nil
	})

	_, err := s.ScheduleOnce(context.Background(), "soon", 10*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, s.WaitContext(ctx))
	assert.Zero(t, s.Pending())
}

func TestWaitContextStopsAtDeadline(t *testing.T) {
	s := New(NewMemoryJobStore(), logger.NewTestLogger())

	s.Register("later", func(context.Context, string, json.RawMessage) (*Outcome, error) {
		return nil, nil
	})

	_, err := s.ScheduleOnce(context.Background(), "later", time.Hour, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, s.WaitContext(ctx), context.DeadlineExceeded)
	assert.Equal(t, 1, s.Pending())

	require.NoError(t, s.Shutdown(context.Background()))
}
