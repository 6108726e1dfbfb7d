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

package server

import (
	"errors"
	"fmt"

	"github.com/carverauto/netsync/pkg/confpush"
	"github.com/carverauto/netsync/pkg/device"
	"github.com/carverauto/netsync/pkg/logger"
	"github.com/carverauto/netsync/pkg/models"
	"github.com/carverauto/netsync/pkg/natsutil"
	"github.com/carverauto/netsync/pkg/topology"
)

const (
	defaultSettingsDir  = "/etc/netsync/settings"
	defaultTemplatesDir = "/etc/netsync/templates"
	DefaultJobSubject   = "netsync.jobs.get"
)

var (
	errMissingDatabase = errors.New("database.host and database.database are required")
	errMissingSSHUser  = errors.New("ssh.username is required")
)

// Config is the netsync process configuration.
type Config struct {
	Database     models.DatabaseConfig `json:"database"`
	NATS         *models.NATSConfig    `json:"nats,omitempty"`
	SSH          device.SSHConfig      `json:"ssh"`
	SNMP         *topology.SNMPConfig  `json:"snmp,omitempty"`
	Sync         confpush.Config       `json:"sync"`
	SettingsDir  string                `json:"settings_dir"`
	TemplatesDir string                `json:"templates_dir"`
	// JobSubject answers job status requests in serve mode.
	JobSubject string         `json:"job_subject"`
	Logging    *logger.Config `json:"logging,omitempty"`
}

func (c *Config) Validate() error {
	if c.Database.Host == "" || c.Database.Database == "" {
		return errMissingDatabase
	}

	if c.SSH.Username == "" {
		return errMissingSSHUser
	}

	c.SSH.ApplyDefaults()

	if err := c.Sync.Validate(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	if c.SettingsDir == "" {
		c.SettingsDir = defaultSettingsDir
	}

	if c.TemplatesDir == "" {
		c.TemplatesDir = defaultTemplatesDir
	}

	if c.JobSubject == "" {
		c.JobSubject = DefaultJobSubject
	}

	if c.NATS != nil {
		if c.NATS.ProgressStream == "" {
			c.NATS.ProgressStream = natsutil.DefaultProgressStream
		}

		if c.NATS.RequestSubject == "" {
			c.NATS.RequestSubject = natsutil.DefaultRequestSubject
		}
	}

	return nil
}
