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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netsync/pkg/hashutil"
	"github.com/carverauto/netsync/pkg/joblock"
	"github.com/carverauto/netsync/pkg/logger"
	"github.com/carverauto/netsync/pkg/models"
	"github.com/carverauto/netsync/pkg/scheduler"
)

func TestGenerateOnly(t *testing.T) {
	h := newHarness(t)
	h.deps.Settings = &fakeSettings{settings: map[string]any{"ntp": "10.0.0.123"}}

	gen, err := h.orchestrator(t).GenerateOnly(context.Background(), "core2")
	require.NoError(t, err)

	assert.Equal(t, renderedConfig("10.0.0.2"), gen.Config)
	assert.Equal(t, "10.0.0.123", gen.Variables["ntp"])
	assert.Equal(t, "global", gen.SettingsOrigin["ntp"])
	assert.Zero(t, h.fleet.commitCount("core2"))
}

func TestGenerateOnlyUnknownHost(t *testing.T) {
	h := newHarness(t)
	h.reg.devices[1].Managed = false

	o := h.orchestrator(t)

	_, err := o.GenerateOnly(context.Background(), "nope")
	require.ErrorIs(t, err, ErrInvalidHostname)

	_, err = o.GenerateOnly(context.Background(), "core2")
	require.ErrorIs(t, err, ErrInvalidHostname)
}

func TestConfigHash(t *testing.T) {
	h := newHarness(t)

	hash, err := h.orchestrator(t).ConfigHash(context.Background(), "core1")
	require.NoError(t, err)
	assert.Equal(t, hashutil.ConfigHash(renderedConfig("10.0.0.1")), hash)
}

func TestGroups(t *testing.T) {
	h := newHarness(t)
	h.deps.Settings = &fakeSettings{groups: map[string][]string{
		"core1": {"BACKBONE"},
		"core2": {"BACKBONE", "LAB"},
	}}

	o := h.orchestrator(t)

	groups, err := o.Groups(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{
		"BACKBONE": {"core1", "core2"},
		"LAB":      {"core2"},
		"T_CORE":   {"core1", "core2"},
	}, groups)

	members, err := o.GroupMembers(context.Background(), "LAB")
	require.NoError(t, err)
	assert.Equal(t, []string{"core2"}, members)
}

func TestScheduledSyncRecordsJob(t *testing.T) {
	h := newHarness(t)
	o := h.orchestrator(t)

	store := scheduler.NewMemoryJobStore()
	s := scheduler.New(store, logger.NewTestLogger())
	o.Register(s)

	job, err := s.RunNow(context.Background(), FunctionSyncDevices, SyncRequest{Hostname: "core2"})
	require.NoError(t, err)

	require.NotNil(t, job.ChangeScore)
	assert.Equal(t, 4, *job.ChangeScore)

	var doc ResultDocument
	require.NoError(t, json.Unmarshal(job.Result, &doc))
	assert.Equal(t, job.ID, doc.JobID)
	assert.Contains(t, doc.Devices, "core2")
}

func TestScheduledSyncAbortLeavesScoreUnset(t *testing.T) {
	h := newHarness(t)
	h.reg.devices[1].ConfigHash = hashutil.ConfigHash("what netsync pushed")

	store := scheduler.NewMemoryJobStore()
	s := scheduler.New(store, logger.NewTestLogger())
	h.orchestrator(t).Register(s)

	job, err := s.RunNow(context.Background(), FunctionSyncDevices, SyncRequest{DryRun: boolPtr(false)})
	require.ErrorIs(t, err, ErrDriftDetected)

	assert.Equal(t, models.JobStatusException, job.Status)
	assert.Nil(t, job.ChangeScore)
	assert.NotEmpty(t, job.Result)
}

func TestScheduledAutoPushCommitsFollowUp(t *testing.T) {
	h := newHarness(t)

	store := scheduler.NewMemoryJobStore()
	s := scheduler.New(store, logger.NewTestLogger())
	h.deps.Scheduler = s
	h.orchestrator(t).Register(s)

	job, err := s.RunNow(context.Background(), FunctionSyncDevices, SyncRequest{Hostname: "core2", AutoPush: true})
	require.NoError(t, err)
	require.NotEmpty(t, job.NextJobID)

	s.Wait()

	next, err := store.GetJob(context.Background(), job.NextJobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFinished, next.Status)
	assert.Equal(t, 1, h.fleet.commitCount("core2"))
	assert.Empty(t, h.locks.Holder(joblock.DevicesLock))
}
