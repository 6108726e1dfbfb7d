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
	"time"

	"github.com/carverauto/netsync/pkg/models"
)

const (
	defaultSSHPort        = 22
	defaultConnectTimeout = 30 * time.Second
	defaultCommandTimeout = 120 * time.Second
)

// PlatformCommands are the CLI commands used to read and replace the
// configuration of one platform. ReplaceCommand reads the candidate
// configuration from stdin.
type PlatformCommands struct {
	ShowRunning    string `json:"show_running"`
	ReplaceCommand string `json:"replace_command"`
}

// SSHConfig holds the credentials and timeouts for the SSH adapter.
type SSHConfig struct {
	Username              string                      `json:"username"`
	Password              string                      `json:"password,omitempty"`
	PrivateKeyFile        string                      `json:"private_key_file,omitempty"`
	KnownHostsFile        string                      `json:"known_hosts_file,omitempty"`
	InsecureIgnoreHostKey bool                        `json:"insecure_ignore_host_key"`
	Port                  int                         `json:"port"`
	ConnectTimeout        models.Duration             `json:"connect_timeout"`
	CommandTimeout        models.Duration             `json:"command_timeout"`
	Platforms             map[string]PlatformCommands `json:"platforms,omitempty"`
}

var defaultPlatforms = map[string]PlatformCommands{
	"eos": {
		ShowRunning:    "show running-config",
		ReplaceCommand: "configure replace terminal:",
	},
	"junos": {
		ShowRunning:    "show configuration",
		ReplaceCommand: "configure exclusive; load override terminal; commit and-quit",
	},
	"iosxe": {
		ShowRunning:    "show running-config",
		ReplaceCommand: "configure replace terminal: force",
	},
	"nxos": {
		ShowRunning:    "show running-config",
		ReplaceCommand: "configure replace bootflash:netsync.cfg",
	},
}

// ApplyDefaults fills zero values.
func (c *SSHConfig) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = defaultSSHPort
	}

	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = models.Duration(defaultConnectTimeout)
	}

	if c.CommandTimeout == 0 {
		c.CommandTimeout = models.Duration(defaultCommandTimeout)
	}

	if c.Platforms == nil {
		c.Platforms = make(map[string]PlatformCommands, len(defaultPlatforms))
	}

	for name, cmds := range defaultPlatforms {
		if _, ok := c.Platforms[name]; !ok {
			c.Platforms[name] = cmds
		}
	}
}
