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


package app

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netsync/pkg/confpush"
	"github.com/carverauto/netsync/pkg/version"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()

	root := NewRootCommand()
	root.SetArgs(append(args, "--config", "/nonexistent/netsync.json"))
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	return root.Execute()
}

func TestSyncFlagsRequest(t *testing.T) {
	f := &syncFlags{hostname: "eosaccess"}

	req := f.request()
	assert.Equal(t, "eosaccess", req.Hostname)
	assert.True(t, req.IsDryRun())

	f.commit = true
	f.force = true

	req = f.request()
	assert.False(t, req.IsDryRun())
	assert.True(t, req.Force)
}

func TestSyncRejectsInvalidSelection(t *testing.T) {
	err := execute(t, "sync", "--hostname", "a", "--device-type", "ACCESS")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hostname")

	err = execute(t, "sync", "--device-type", "FIREWALL")
	require.ErrorIs(t, err, confpush.ErrInvalidRequest)
}

func TestArgumentCounts(t *testing.T) {
	for _, args := range [][]string{
		{"generate"},
		{"hash", "a", "b"},
		{"groups", "a", "b"},
		{"job"},
		{"serve", "extra"},
	} {
		assert.Error(t, execute(t, args...), "%v", args)
	}
}

func TestVersionFlag(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, version.GetFullVersion(), root.Version)
	assert.Contains(t, root.Version, version.GetVersion())
}

func TestConfigLoadFailure(t *testing.T) {
	err := execute(t, "hash", "eosaccess")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/nonexistent/netsync.json")
}
