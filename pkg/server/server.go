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

// Package server wires the netsync engine to Postgres, NATS and the device
// adapters, and runs it either for one command or as a long lived service.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/netsync/pkg/confpush"
	"github.com/carverauto/netsync/pkg/db"
	"github.com/carverauto/netsync/pkg/device"
	"github.com/carverauto/netsync/pkg/joblock"
	"github.com/carverauto/netsync/pkg/logger"
	"github.com/carverauto/netsync/pkg/models"
	"github.com/carverauto/netsync/pkg/natsutil"
	"github.com/carverauto/netsync/pkg/scheduler"
	"github.com/carverauto/netsync/pkg/settings"
	"github.com/carverauto/netsync/pkg/templates"
	"github.com/carverauto/netsync/pkg/topology"
)

var ErrNATSNotConfigured = errors.New("nats is not configured")

// followUpShutdownTimeout bounds how long an abandoned follow-up job gets to
// release its lock.
const followUpShutdownTimeout = 30 * time.Second

type Server struct {
	cfg    *Config
	pool   *pgxpool.Pool
	store  *db.DB
	nc     *nats.Conn
	js     jetstream.JetStream
	locks  *joblock.Manager
	sched  *scheduler.Scheduler
	orch   *confpush.Orchestrator
	subs   []*nats.Subscription
	logger logger.Logger
}

// New connects to the database and, when configured, to NATS, and builds
// the orchestrator. Close or Stop releases the connections.
func New(ctx context.Context, cfg *Config, log logger.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.NewPool(ctx, &cfg.Database, log)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:    cfg,
		pool:   pool,
		store:  db.New(pool, log),
		logger: log,
	}

	var progress confpush.ProgressSink

	if cfg.NATS != nil {
		if err := s.connectNATS(ctx); err != nil {
			s.Close()
			return nil, err
		}

		progress = natsutil.NewProgressPublisher(s.js, log)
	}

	s.locks = joblock.NewManager(s.store, log)
	s.sched = scheduler.New(s.store, log)

	s.orch, err = confpush.NewOrchestrator(cfg.Sync, confpush.Deps{
		Registry:  s.store,
		Neighbors: s.neighborFinder(),
		Settings:  settings.NewResolver(cfg.SettingsDir),
		Templates: templates.NewEngine(cfg.TemplatesDir),
		Adapters: func(*models.Device) confpush.DeviceAdapter {
			return device.NewSSHAdapter(&cfg.SSH, log)
		},
		Locker:    s.locks,
		Scheduler: s.sched,
		Progress:  progress,
	}, log)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.orch.Register(s.sched)

	return s, nil
}

func (s *Server) connectNATS(ctx context.Context) error {
	nc, err := natsutil.ConnectWithSecurity(ctx, s.cfg.NATS.URL, s.cfg.NATS.Security, s.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	s.nc = nc

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	s.js = js

	if err := natsutil.EnsureProgressStream(ctx, js, s.cfg.NATS.ProgressStream); err != nil {
		return fmt.Errorf("failed to ensure progress stream: %w", err)
	}

	return nil
}

// neighborFinder prefers the linknets recorded in the registry and falls
// back to LLDP when SNMP is configured.
func (s *Server) neighborFinder() confpush.NeighborFinder {
	finders := []topology.NeighborFinder{s.store}

	if s.cfg.SNMP != nil {
		finders = append(finders, topology.NewLLDPFinder(*s.cfg.SNMP, s.logger))
	}

	return topology.NewChain(s.logger, finders...)
}

func (s *Server) Orchestrator() *confpush.Orchestrator { return s.orch }

func (s *Server) Jobs() scheduler.JobStore { return s.store }

func (s *Server) Locks() *joblock.Manager { return s.locks }

// Migrate applies pending schema migrations.
func (s *Server) Migrate(ctx context.Context) error {
	return db.RunMigrations(ctx, s.pool, s.logger)
}

// SyncNow runs a sync job in the calling goroutine and returns its record.
// A commit job scheduled by auto-push has run by the time SyncNow returns.
// If ctx ends first that job is cancelled and an error is returned.
func (s *Server) SyncNow(ctx context.Context, req confpush.SyncRequest) (*models.Job, error) {
	job, err := s.sched.RunNow(ctx, confpush.FunctionSyncDevices, req)
	if job == nil || job.NextJobID == "" {
		return job, err
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("next_job_id", job.NextJobID).
		Msg("Waiting for follow-up job")

	if werr := s.sched.WaitContext(ctx); werr != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), followUpShutdownTimeout)
		defer cancel()

		return job, errors.Join(err,
			fmt.Errorf("follow-up job %s abandoned: %w", job.NextJobID, werr),
			s.sched.Shutdown(shutdownCtx))
	}

	return job, err
}

// WatchProgress streams the hostnames finished by jobID.
func (s *Server) WatchProgress(ctx context.Context, jobID string) (<-chan string, error) {
	if s.js == nil {
		return nil, ErrNATSNotConfigured
	}

	return natsutil.WatchProgress(ctx, s.js, s.cfg.NATS.ProgressStream, jobID)
}

// RequestSync asks a serving netsync process to schedule a sync job.
func (s *Server) RequestSync(ctx context.Context, req confpush.SyncRequest) (*SyncReply, error) {
	if s.nc == nil {
		return nil, ErrNATSNotConfigured
	}

	var reply SyncReply
	if err := natsutil.Request(ctx, s.nc, s.cfg.NATS.RequestSubject, req, &reply); err != nil {
		return nil, err
	}

	return &reply, nil
}

// Start clears locks left behind by a previous process and, when NATS is
// configured, starts answering sync and job requests.
func (s *Server) Start(ctx context.Context) error {
	if err := s.locks.ClearAll(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Failed to clear stale job locks")
	}

	if s.nc == nil {
		s.logger.Warn().Msg("NATS is not configured, only scheduled jobs will run")
		return nil
	}

	return s.serveRequests(ctx, &handlers{sched: s.sched, jobs: s.store, logger: s.logger})
}

func (s *Server) serveRequests(ctx context.Context, h *handlers) error {
	sub, err := natsutil.ServeRequests(ctx, s.nc, s.cfg.NATS.RequestSubject, s.logger, h.sync)
	if err != nil {
		return fmt.Errorf("failed to subscribe to sync requests: %w", err)
	}

	s.subs = append(s.subs, sub)

	sub, err = natsutil.ServeRequests(ctx, s.nc, s.cfg.JobSubject, s.logger, h.job)
	if err != nil {
		return fmt.Errorf("failed to subscribe to job requests: %w", err)
	}

	s.subs = append(s.subs, sub)

	s.logger.Info().
		Str("sync_subject", s.cfg.NATS.RequestSubject).
		Str("job_subject", s.cfg.JobSubject).
		Msg("Serving sync requests")

	return nil
}

// Stop stops accepting requests, drops pending jobs, waits for running
// ones until ctx is done and closes the connections.
func (s *Server) Stop(ctx context.Context) error {
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil {
			s.logger.Warn().Err(err).Str("subject", sub.Subject).Msg("Failed to unsubscribe")
		}
	}

	s.subs = nil

	err := s.sched.Shutdown(ctx)

	s.Close()

	return err
}

// Close releases the connections without waiting for jobs.
func (s *Server) Close() {
	if s.nc != nil {
		if err := s.nc.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to drain NATS connection")
			s.nc.Close()
		}

		s.nc = nil
	}

	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
}
