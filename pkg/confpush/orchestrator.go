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

// Package confpush synchronizes devices with their rendered configuration:
// it selects devices, guards against out of band changes, pushes under the
// fleet wide commit lock, scores the change and may promote a low risk dry
// run to a commit.
package confpush

import (
	"errors"

	"github.com/carverauto/netsync/pkg/logger"
)

var errMissingDependency = errors.New("missing orchestrator dependency")

// Deps are the collaborators of an Orchestrator. Scheduler, Progress and
// Score are optional.
type Deps struct {
	Registry  Registry
	Neighbors NeighborFinder
	Settings  SettingsResolver
	Templates Templater
	Adapters  AdapterFactory
	Locker    Locker
	Scheduler Scheduler
	Progress  ProgressSink
	Score     ScoreFunc
}

type Orchestrator struct {
	cfg       Config
	registry  Registry
	settings  SettingsResolver
	deriver   *Deriver
	templates Templater
	adapters  AdapterFactory
	locker    Locker
	scheduler Scheduler
	progress  ProgressSink
	score     ScoreFunc
	guard     *DriftGuard
	runner    *Runner
	logger    logger.Logger
}

func NewOrchestrator(cfg Config, deps Deps, log logger.Logger) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch {
	case deps.Registry == nil:
		return nil, errors.Join(errMissingDependency, errors.New("registry"))
	case deps.Neighbors == nil:
		return nil, errors.Join(errMissingDependency, errors.New("neighbor finder"))
	case deps.Settings == nil:
		return nil, errors.Join(errMissingDependency, errors.New("settings resolver"))
	case deps.Templates == nil:
		return nil, errors.Join(errMissingDependency, errors.New("templates"))
	case deps.Adapters == nil:
		return nil, errors.Join(errMissingDependency, errors.New("device adapters"))
	case deps.Locker == nil:
		return nil, errors.Join(errMissingDependency, errors.New("commit lock"))
	}

	score := deps.Score
	if score == nil {
		score = DefaultScore
	}

	return &Orchestrator{
		cfg:       cfg,
		registry:  deps.Registry,
		settings:  deps.Settings,
		deriver:   NewDeriver(deps.Registry, deps.Neighbors, deps.Settings),
		templates: deps.Templates,
		adapters:  deps.Adapters,
		locker:    deps.Locker,
		scheduler: deps.Scheduler,
		progress:  deps.Progress,
		score:     score,
		guard:     NewDriftGuard(deps.Adapters),
		runner:    NewRunner(cfg.Workers, cfg.ConnectRate, cfg.ConnectBurst, log),
		logger:    log,
	}, nil
}
