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

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netsync/pkg/logger"
	"github.com/carverauto/netsync/pkg/models"
)

var errNoWorkers = errors.New("workers must be positive")

type testConfig struct {
	Name     string                 `json:"name" validate:"required"`
	Workers  int                    `json:"workers"`
	Timeout  models.Duration        `json:"timeout"`
	Tags     []string               `json:"tags"`
	Database models.DatabaseConfig  `json:"database"`
	Security *models.SecurityConfig `json:"security,omitempty"`
	Optional *struct {
		Enabled bool `json:"enabled"`
	} `json:"optional,omitempty"`
}

func (c *testConfig) Validate() error {
	if c.Workers <= 0 {
		return errNoWorkers
	}

	return nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadAndValidateFromJSONFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "file")

	path := writeFile(t, "netsync.json", `{
		"name": "lab",
		"workers": 50,
		"timeout": "45s",
		"security": {"cert_dir": "/etc/netsync/certs", "tls": {"cert_file": "client.pem", "key_file": "client-key.pem", "ca_file": "/abs/ca.pem"}}
	}`)

	var cfg testConfig
	require.NoError(t, NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, 45*time.Second, time.Duration(cfg.Timeout))
	require.NotNil(t, cfg.Security)
	assert.Equal(t, "/etc/netsync/certs/client.pem", cfg.Security.TLS.CertFile)
	assert.Equal(t, "/abs/ca.pem", cfg.Security.TLS.CAFile)
	assert.Equal(t, "/abs/ca.pem", cfg.Security.TLS.ClientCAFile)
}

func TestLoadAndValidateFromYAMLFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := writeFile(t, "netsync.yaml", "name: lab\nworkers: 10\ntimeout: 1m\ntags: [a, b]\n")

	var cfg testConfig
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, time.Minute, time.Duration(cfg.Timeout))
	assert.Equal(t, []string{"a", "b"}, cfg.Tags)
}

func TestLoadAndValidateRunsValidators(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "file")

	var cfg testConfig
	err := NewConfig(nil).LoadAndValidate(context.Background(), writeFile(t, "a.json", `{"workers": 1}`), &cfg)
	require.Error(t, err)

	cfg = testConfig{}
	err = NewConfig(nil).LoadAndValidate(context.Background(), writeFile(t, "b.json", `{"name": "x"}`), &cfg)
	require.ErrorIs(t, err, errNoWorkers)
}

func TestLoadAndValidateRejectsUnknownSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "kv")

	var cfg testConfig
	err := NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg)
	require.ErrorIs(t, err, errInvalidConfigSource)
}

func TestEnvConfigLoader(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("CONFIG_ENV_PREFIX", "")
	t.Setenv("NETSYNC_NAME", "from-env")
	t.Setenv("NETSYNC_WORKERS", "8")
	t.Setenv("NETSYNC_TIMEOUT", "2s")
	t.Setenv("NETSYNC_TAGS", "core, dist")
	t.Setenv("NETSYNC_DATABASE_HOST", "db.lab")
	t.Setenv("NETSYNC_DATABASE_PORT", "5433")

	var cfg testConfig
	require.NoError(t, NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), "", &cfg))

	assert.Equal(t, "from-env", cfg.Name)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 2*time.Second, time.Duration(cfg.Timeout))
	assert.Equal(t, []string{"core", "dist"}, cfg.Tags)
	assert.Equal(t, "db.lab", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Nil(t, cfg.Security)
	assert.Nil(t, cfg.Optional)
}

func TestEnvConfigLoaderAllocatesMentionedSections(t *testing.T) {
	t.Setenv("NETSYNC_OPTIONAL_ENABLED", "true")
	t.Setenv("NETSYNC_WORKERS", "not-a-number")

	var cfg testConfig
	err := NewEnvConfigLoader(logger.NewTestLogger(), "NETSYNC_").Load(context.Background(), "", &cfg)
	require.Error(t, err)

	t.Setenv("NETSYNC_WORKERS", "1")

	cfg = testConfig{}
	require.NoError(t, NewEnvConfigLoader(logger.NewTestLogger(), "NETSYNC_").Load(context.Background(), "", &cfg))
	require.NotNil(t, cfg.Optional)
	assert.True(t, cfg.Optional.Enabled)
}

func TestEnvConfigLoaderJSONDocument(t *testing.T) {
	t.Setenv("APP_CONFIG_JSON", `{"name":"doc","workers":3}`)

	var cfg testConfig
	require.NoError(t, NewEnvConfigLoader(logger.NewTestLogger(), "APP_").Load(context.Background(), "", &cfg))
	assert.Equal(t, "doc", cfg.Name)
	assert.Equal(t, 3, cfg.Workers)

	err := NewEnvConfigLoader(logger.NewTestLogger(), "APP_").Load(context.Background(), "", cfg)
	require.Error(t, err)
}
