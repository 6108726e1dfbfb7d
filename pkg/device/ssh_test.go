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

package device

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/carverauto/netsync/pkg/logger"
	"github.com/carverauto/netsync/pkg/models"
)

type call struct {
	cmd   string
	stdin string
}

type fakeRunner struct {
	running string
	calls   []call
	fail    map[string]error
	closed  bool
}

func (f *fakeRunner) Run(_ context.Context, cmd, stdin string) (string, error) {
	f.calls = append(f.calls, call{cmd: cmd, stdin: stdin})

	if err := f.fail[cmd]; err != nil {
		return "", err
	}

	if stdin != "" {
		f.running = stdin
		return "", nil
	}

	return f.running, nil
}

func (f *fakeRunner) Close() error {
	f.closed = true
	return nil
}

func newTestAdapter(t *testing.T, runner *fakeRunner) (*SSHAdapter, *string) {
	t.Helper()

	cfg := &SSHConfig{Username: "admin", Password: "secret", InsecureIgnoreHostKey: true}
	cfg.ApplyDefaults()

	a := NewSSHAdapter(cfg, logger.NewTestLogger())

	var dialed string

	a.dial = func(_ context.Context, addr string, c *ssh.ClientConfig) (commandRunner, error) {
		dialed = addr
		assert.Equal(t, "admin", c.User)

		return runner, nil
	}

	return a, &dialed
}

var eosDevice = &models.Device{Hostname: "eosaccess", ManagementIP: "10.0.6.6", Platform: "eos"}

func TestConnectValidatesDevice(t *testing.T) {
	a, dialed := newTestAdapter(t, &fakeRunner{})
	ctx := context.Background()

	err := a.Connect(ctx, &models.Device{Hostname: "x", Platform: "eos"})
	require.ErrorIs(t, err, ErrNoManagementIP)

	err = a.Connect(ctx, &models.Device{Hostname: "x", ManagementIP: "10.0.0.1", Platform: "vyos"})
	require.ErrorIs(t, err, ErrUnsupportedPlatform)

	require.NoError(t, a.Connect(ctx, eosDevice))
	assert.Equal(t, "10.0.6.6:22", *dialed)

	require.ErrorIs(t, a.Connect(ctx, eosDevice), ErrAlreadyConnected)
}

func TestFetchRequiresConnection(t *testing.T) {
	a, _ := newTestAdapter(t, &fakeRunner{})

	_, err := a.FetchRunningConfig(context.Background())
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestPushDryRunDoesNotReplace(t *testing.T) {
	runner := &fakeRunner{running: "hostname old\n"}
	a, _ := newTestAdapter(t, runner)
	ctx := context.Background()

	require.NoError(t, a.Connect(ctx, eosDevice))

	diff, err := a.PushConfig(ctx, "hostname new\n", true)
	require.NoError(t, err)
	assert.Contains(t, diff, "-hostname old")
	assert.Contains(t, diff, "+hostname new")

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "show running-config", runner.calls[0].cmd)
	assert.Equal(t, "hostname old\n", runner.running)
}

func TestPushCommitReplaces(t *testing.T) {
	runner := &fakeRunner{running: "hostname old\n"}
	a, _ := newTestAdapter(t, runner)
	ctx := context.Background()

	require.NoError(t, a.Connect(ctx, eosDevice))

	diff, err := a.PushConfig(ctx, "hostname new\n", false)
	require.NoError(t, err)
	assert.NotEmpty(t, diff)

	require.Len(t, runner.calls, 2)
	assert.Equal(t, "configure replace terminal:", runner.calls[1].cmd)
	assert.Equal(t, "hostname new\n", runner.calls[1].stdin)

	diff, err = a.PushConfig(ctx, "hostname new\n", false)
	require.NoError(t, err)
	assert.Empty(t, diff)
	assert.Len(t, runner.calls, 3)

	require.NoError(t, a.Disconnect())
	assert.True(t, runner.closed)
	require.NoError(t, a.Disconnect())
}

func TestPushCommandFailure(t *testing.T) {
	runner := &fakeRunner{
		running: "a\n",
		fail:    map[string]error{"configure replace terminal:": errors.New("session locked")},
	}
	a, _ := newTestAdapter(t, runner)
	ctx := context.Background()

	require.NoError(t, a.Connect(ctx, eosDevice))

	_, err := a.PushConfig(ctx, "b\n", false)
	require.ErrorIs(t, err, ErrCommandFailed)
}

func TestClientConfigRequiresAuthAndHostKeys(t *testing.T) {
	a := NewSSHAdapter(&SSHConfig{Username: "admin"}, logger.NewTestLogger())

	_, err := a.clientConfig()
	require.ErrorIs(t, err, ErrNoAuthMethod)

	a.cfg.Password = "secret"

	_, err = a.clientConfig()
	require.ErrorIs(t, err, ErrHostKeyConfig)
}

func TestUnifiedDiff(t *testing.T) {
	diff, err := UnifiedDiff("a\r\nb\r\n", "a\nb")
	require.NoError(t, err)
	assert.Empty(t, diff)

	diff, err = UnifiedDiff("a\nb\nc\n", "a\nc\nd\n")
	require.NoError(t, err)
	assert.Contains(t, diff, "--- running")
	assert.Contains(t, diff, "+++ candidate")
	assert.Contains(t, diff, "-b")
	assert.Contains(t, diff, "+d")
}
