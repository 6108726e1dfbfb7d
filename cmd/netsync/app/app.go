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

// Package app implements the netsync command line.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/carverauto/netsync/pkg/config"
	"github.com/carverauto/netsync/pkg/lifecycle"
	"github.com/carverauto/netsync/pkg/logger"
	"github.com/carverauto/netsync/pkg/server"
	"github.com/carverauto/netsync/pkg/version"
)

const (
	serviceName       = "netsync"
	defaultConfigPath = "/etc/netsync/netsync.json"
	shutdownTimeout   = 30 * time.Second
)

// Options contains runtime configuration derived from global flags.
type Options struct {
	ConfigPath string
}

// loadConfig reads the configuration with a bootstrap logger and returns
// it together with the component logger it configures.
func loadConfig(ctx context.Context, opts *Options, component string) (*server.Config, logger.Logger, error) {
	bootLogger, err := lifecycle.CreateComponentLogger(ctx, component, nil)
	if err != nil {
		return nil, nil, err
	}

	var cfg server.Config

	if err := config.NewConfig(bootLogger).LoadAndValidate(ctx, opts.ConfigPath, &cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to load config %s: %w", opts.ConfigPath, err)
	}

	log, err := lifecycle.CreateComponentLogger(ctx, component, cfg.Logging)
	if err != nil {
		return nil, nil, err
	}

	return &cfg, log, nil
}

// withServer builds a Server for one command and closes it afterwards.
func withServer(
	ctx context.Context, opts *Options, component string, fn func(context.Context, *server.Server, logger.Logger) error,
) error {
	cfg, log, err := loadConfig(ctx, opts, component)
	if err != nil {
		return err
	}

	defer func() {
		if err := lifecycle.ShutdownLogger(); err != nil {
			log.Warn().Err(err).Msg("Error shutting down logger")
		}
	}()

	srv, err := server.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer srv.Close()

	return fn(ctx, srv, log)
}

// runServe runs netsync as a service until ctx is cancelled.
func runServe(ctx context.Context, opts *Options, migrate bool) error {
	cfg, log, err := loadConfig(ctx, opts, "serve")
	if err != nil {
		return err
	}

	if err := lifecycle.InitializeTelemetry(ctx, serviceName, cfg.Logging, log); err != nil {
		return err
	}

	defer func() {
		if err := lifecycle.ShutdownLogger(); err != nil {
			log.Error().Err(err).Msg("Error shutting down logger")
		}
	}()

	srv, err := server.New(ctx, cfg, log)
	if err != nil {
		return err
	}

	if migrate {
		if err := srv.Migrate(ctx); err != nil {
			srv.Close()
			return err
		}
	}

	if err := srv.Start(ctx); err != nil {
		srv.Close()
		return err
	}

	log.Info().Str("version", version.GetFullVersion()).Msg("netsync is running")

	<-ctx.Done()

	log.Info().Msg("Shutting down")

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	return srv.Stop(stopCtx)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
