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

// Package lifecycle wires process level concerns shared by the netsync
// commands: component loggers, telemetry and their shutdown.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/carverauto/netsync/pkg/logger"
)

// CreateComponentLogger creates a logger for a specific component.
func CreateComponentLogger(ctx context.Context, component string, config *logger.Config) (logger.Logger, error) {
	if config == nil {
		config = logger.DefaultConfig()
	}

	base, err := logger.Build(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger.New(base.With().Str("component", component).Logger()), nil
}

// InitializeTelemetry installs the metrics and tracing providers. A
// disabled metrics exporter is not an error.
func InitializeTelemetry(ctx context.Context, serviceName string, config *logger.Config, log logger.Logger) error {
	if config == nil {
		return nil
	}

	_, err := logger.InitializeMetrics(ctx, logger.MetricsConfig{
		ServiceName: serviceName,
		OTel:        &config.OTel,
	})
	if err != nil && !errors.Is(err, logger.ErrOTelMetricsDisabled) {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	if _, err := logger.InitializeTracing(ctx, serviceName, &config.OTel); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	log.Debug().Bool("otel_enabled", config.OTel.Enabled).Msg("Telemetry initialized")

	return nil
}

// ShutdownLogger shuts down the logger, flushing any pending logs.
func ShutdownLogger() error {
	return logger.Shutdown()
}
