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

// Package device implements the protocol adapter that reads and replaces
// device configuration over SSH.
package device

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/carverauto/netsync/pkg/logger"
	"github.com/carverauto/netsync/pkg/models"
)

// commandRunner runs one command per call on an open connection.
type commandRunner interface {
	Run(ctx context.Context, cmd, stdin string) (string, error)
	Close() error
}

type dialFunc func(ctx context.Context, addr string, cfg *ssh.ClientConfig) (commandRunner, error)

// SSHAdapter talks to a single device. It is not safe for concurrent use;
// create one per device with NewSSHAdapter.
type SSHAdapter struct {
	cfg    *SSHConfig
	logger logger.Logger
	dial   dialFunc

	device   *models.Device
	commands PlatformCommands
	runner   commandRunner
}

func NewSSHAdapter(cfg *SSHConfig, log logger.Logger) *SSHAdapter {
	return &SSHAdapter{
		cfg:    cfg,
		logger: log,
		dial:   dialSSH,
	}
}

// Connect opens an SSH connection to the device management address.
func (a *SSHAdapter) Connect(ctx context.Context, dev *models.Device) error {
	if a.runner != nil {
		return ErrAlreadyConnected
	}

	if dev.ManagementIP == "" {
		return fmt.Errorf("%w: %s", ErrNoManagementIP, dev.Hostname)
	}

	commands, ok := a.cfg.Platforms[strings.ToLower(dev.Platform)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedPlatform, dev.Platform)
	}

	clientCfg, err := a.clientConfig()
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(dev.ManagementIP, strconv.Itoa(a.cfg.Port))

	runner, err := a.dial(ctx, addr, clientCfg)
	if err != nil {
		return fmt.Errorf("connect %s (%s): %w", dev.Hostname, addr, err)
	}

	a.device = dev
	a.commands = commands
	a.runner = runner

	a.logger.Debug().Str("hostname", dev.Hostname).Str("addr", addr).Msg("Connected to device")

	return nil
}

// FetchRunningConfig returns the running configuration exactly as the
// device printed it.
func (a *SSHAdapter) FetchRunningConfig(ctx context.Context) (string, error) {
	if a.runner == nil {
		return "", ErrNotConnected
	}

	out, err := a.run(ctx, a.commands.ShowRunning, "")
	if err != nil {
		return "", err
	}

	return out, nil
}

// PushConfig diffs config against the running configuration and, unless
// dryRun is set, replaces the running configuration with it. The returned
// diff is empty when nothing would change.
func (a *SSHAdapter) PushConfig(ctx context.Context, config string, dryRun bool) (string, error) {
	running, err := a.FetchRunningConfig(ctx)
	if err != nil {
		return "", err
	}

	diff, err := UnifiedDiff(running, config)
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", a.device.Hostname, err)
	}

	if dryRun || diff == "" {
		return diff, nil
	}

	if _, err := a.run(ctx, a.commands.ReplaceCommand, config); err != nil {
		return "", err
	}

	a.logger.Info().Str("hostname", a.device.Hostname).Msg("Configuration replaced")

	return diff, nil
}

// Disconnect closes the connection. Calling it twice is a no-op.
func (a *SSHAdapter) Disconnect() error {
	if a.runner == nil {
		return nil
	}

	err := a.runner.Close()
	a.runner = nil

	return err
}

func (a *SSHAdapter) run(ctx context.Context, cmd, stdin string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(a.cfg.CommandTimeout))
	defer cancel()

	out, err := a.runner.Run(ctx, cmd, stdin)
	if err != nil {
		return "", fmt.Errorf("%w: %s on %s: %w", ErrCommandFailed, cmd, a.device.Hostname, err)
	}

	return out, nil
}

func (a *SSHAdapter) clientConfig() (*ssh.ClientConfig, error) {
	var methods []ssh.AuthMethod

	if a.cfg.PrivateKeyFile != "" {
		key, err := os.ReadFile(a.cfg.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}

		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}

		methods = append(methods, ssh.PublicKeys(signer))
	}

	if a.cfg.Password != "" {
		methods = append(methods, ssh.Password(a.cfg.Password))
	}

	if len(methods) == 0 {
		return nil, ErrNoAuthMethod
	}

	hostKeyCallback, err := a.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	return &ssh.ClientConfig{
		User:            a.cfg.Username,
		Auth:            methods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         time.Duration(a.cfg.ConnectTimeout),
	}, nil
}

func (a *SSHAdapter) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if a.cfg.KnownHostsFile != "" {
		cb, err := knownhosts.New(a.cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("load known_hosts: %w", err)
		}

		return cb, nil
	}

	if !a.cfg.InsecureIgnoreHostKey {
		return nil, ErrHostKeyConfig
	}

	a.logger.Warn().Msg("SSH host key verification disabled")

	return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // explicitly configured
}

type sshRunner struct {
	client *ssh.Client
}

func dialSSH(ctx context.Context, addr string, cfg *ssh.ClientConfig) (commandRunner, error) {
	dialer := net.Dialer{Timeout: cfg.Timeout}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()

		return nil, err
	}

	return &sshRunner{client: ssh.NewClient(c, chans, reqs)}, nil
}

func (r *sshRunner) Run(ctx context.Context, cmd, stdin string) (string, error) {
	session, err := r.client.NewSession()
	if err != nil {
		return "", err
	}
	defer func() { _ = session.Close() }()

	var stdout, stderr bytes.Buffer

	session.Stdout = &stdout
	session.Stderr = &stderr

	if stdin != "" {
		session.Stdin = strings.NewReader(stdin)
	}

	done := make(chan error, 1)

	go func() { done <- session.Run(cmd) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)

		return "", ctx.Err()
	case err := <-done:
		if err != nil {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return "", fmt.Errorf("%w: %s", err, msg)
			}

			return "", err
		}
	}

	return stdout.String(), nil
}

func (r *sshRunner) Close() error {
	return r.client.Close()
}
