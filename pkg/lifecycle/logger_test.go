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

package lifecycle

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netsync/pkg/logger"
)

func TestCreateComponentLogger(t *testing.T) {
	log, err := CreateComponentLogger(context.Background(), "sync", &logger.Config{Level: "error"})
	require.NoError(t, err)
	assert.Equal(t, zerolog.ErrorLevel, log.WithComponent("x").GetLevel())

	_, err = CreateComponentLogger(context.Background(), "sync", &logger.Config{Level: "loud"})
	require.Error(t, err)
}

func TestInitializeTelemetryWithoutExporter(t *testing.T) {
	cfg := &logger.Config{Level: "info"}

	require.NoError(t, InitializeTelemetry(context.Background(), "netsync-test", cfg, logger.NewTestLogger()))
	require.NoError(t, ShutdownLogger())
}
