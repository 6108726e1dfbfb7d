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

//go:generate mockgen -destination=mock_logger.go -package=logger github.com/carverauto/netsync/pkg/logger Logger

package logger

import (
	"io"

	"github.com/rs/zerolog"
)

type Logger interface {
	Trace() *zerolog.Event
	Debug() *zerolog.Event
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
	Fatal() *zerolog.Event
	Panic() *zerolog.Event
	With() zerolog.Context
	WithComponent(component string) zerolog.Logger
	WithFields(fields map[string]interface{}) zerolog.Logger
	SetLevel(level zerolog.Level)
	SetDebug(debug bool)
}

// zlog adapts a zerolog.Logger value to Logger.
type zlog struct {
	logger zerolog.Logger
}

// New wraps an already configured zerolog.Logger.
func New(l zerolog.Logger) Logger {
	return &zlog{logger: l}
}

// ForJob returns a child of base that stamps every event with job_id.
func ForJob(base Logger, jobID string) Logger {
	return New(base.With().Str("job_id", jobID).Logger())
}

// ForHost returns a child of base that stamps every event with hostname.
func ForHost(base Logger, hostname string) Logger {
	return New(base.With().Str("hostname", hostname).Logger())
}

func (l *zlog) Trace() *zerolog.Event { return l.logger.Trace() }
func (l *zlog) Debug() *zerolog.Event { return l.logger.Debug() }
func (l *zlog) Info() *zerolog.Event  { return l.logger.Info() }
func (l *zlog) Warn() *zerolog.Event  { return l.logger.Warn() }
func (l *zlog) Error() *zerolog.Event { return l.logger.Error() }
func (l *zlog) Fatal() *zerolog.Event { return l.logger.Fatal() }
func (l *zlog) Panic() *zerolog.Event { return l.logger.Panic() }
func (l *zlog) With() zerolog.Context { return l.logger.With() }

func (l *zlog) WithComponent(component string) zerolog.Logger {
	return l.logger.With().Str("component", component).Logger()
}

func (l *zlog) WithFields(fields map[string]interface{}) zerolog.Logger {
	ctx := l.logger.With()
	for key, value := range fields {
		ctx = ctx.Interface(key, value)
	}

	return ctx.Logger()
}

func (l *zlog) SetLevel(level zerolog.Level) {
	l.logger = l.logger.Level(level)
}

func (l *zlog) SetDebug(debug bool) {
	if debug {
		l.SetLevel(zerolog.DebugLevel)
	} else {
		l.SetLevel(zerolog.InfoLevel)
	}
}

// NewTestLogger creates a no-op logger for testing that discards all output
func NewTestLogger() Logger {
	return New(zerolog.New(io.Discard).Level(zerolog.Disabled))
}
