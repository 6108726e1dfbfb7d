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
	"errors"
	"time"

	"github.com/carverauto/netsync/pkg/joblock"
	"github.com/carverauto/netsync/pkg/models"
)

const (
	DefaultWorkers           = 50
	DefaultAutoPushThreshold = 10
	defaultConnectBurst      = 10
)

var errInvalidWorkers = errors.New("workers must be positive")

// Config tunes the orchestrator.
type Config struct {
	// Workers bounds how many devices are handled at once.
	Workers int `json:"workers"`
	// ConnectRate limits new device sessions per second. Zero disables the
	// limit.
	ConnectRate  float64 `json:"connect_rate"`
	ConnectBurst int     `json:"connect_burst"`
	// AutoPushThreshold is the exclusive upper bound of the job score for
	// which a dry run is promoted to a commit.
	AutoPushThreshold int             `json:"auto_push_threshold"`
	LockName          string          `json:"lock_name"`
	AutoPushDelay     models.Duration `json:"auto_push_delay"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}

	if c.ConnectBurst == 0 {
		c.ConnectBurst = defaultConnectBurst
	}

	if c.AutoPushThreshold == 0 {
		c.AutoPushThreshold = DefaultAutoPushThreshold
	}

	if c.LockName == "" {
		c.LockName = joblock.DevicesLock
	}
}

func (c *Config) Validate() error {
	c.ApplyDefaults()

	if c.Workers < 0 {
		return errInvalidWorkers
	}

	return nil
}

func (c *Config) autoPushDelay() time.Duration {
	return time.Duration(c.AutoPushDelay)
}
