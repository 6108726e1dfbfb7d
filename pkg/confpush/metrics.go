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
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/carverauto/netsync/pkg/confpush"

	metricJobsTotal      = "netsync_sync_jobs_total"
	metricDevicesTotal   = "netsync_sync_devices_total"
	metricChangeScore    = "netsync_sync_change_score"
	metricLockContention = "netsync_commit_lock_contention_total"
	metricJobDuration    = "netsync_sync_job_duration_seconds"
)

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	jobsCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	devicesCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	scoreHistogram metric.Int64Histogram
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	lockCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	durationHistogram metric.Float64Histogram
)

func initMeter() {
	meter := otel.Meter(instrumentationName)

	var err error

	if jobsCounter, err = meter.Int64Counter(
		metricJobsTotal,
		metric.WithDescription("Sync jobs by outcome"),
	); err != nil {
		otel.Handle(err)
	}

	if devicesCounter, err = meter.Int64Counter(
		metricDevicesTotal,
		metric.WithDescription("Devices processed by sync jobs by outcome"),
	); err != nil {
		otel.Handle(err)
	}

	if scoreHistogram, err = meter.Int64Histogram(
		metricChangeScore,
		metric.WithDescription("Aggregate change impact score of sync jobs"),
	); err != nil {
		otel.Handle(err)
	}

	if lockCounter, err = meter.Int64Counter(
		metricLockContention,
		metric.WithDescription("Commit lock acquisitions that failed because another job held the lock"),
	); err != nil {
		otel.Handle(err)
	}

	if durationHistogram, err = meter.Float64Histogram(
		metricJobDuration,
		metric.WithDescription("Duration of sync jobs"),
		metric.WithUnit("s"),
	); err != nil {
		otel.Handle(err)
	}
}

func recordJob(ctx context.Context, outcome string, dryRun bool, started time.Time) {
	meterOnce.Do(initMeter)

	attrs := metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.Bool("dry_run", dryRun),
	)

	if jobsCounter != nil {
		jobsCounter.Add(ctx, 1, attrs)
	}

	if durationHistogram != nil {
		durationHistogram.Record(ctx, time.Since(started).Seconds(), attrs)
	}
}

func recordDevices(ctx context.Context, changed, unchanged, failed int) {
	meterOnce.Do(initMeter)

	if devicesCounter == nil {
		return
	}

	for outcome, n := range map[string]int{"changed": changed, "unchanged": unchanged, "failed": failed} {
		if n > 0 {
			devicesCounter.Add(ctx, int64(n), metric.WithAttributes(attribute.String("outcome", outcome)))
		}
	}
}

func recordScore(ctx context.Context, score int) {
	meterOnce.Do(initMeter)

	if scoreHistogram != nil {
		scoreHistogram.Record(ctx, int64(score))
	}
}

func recordLockContention(ctx context.Context) {
	meterOnce.Do(initMeter)

	if lockCounter != nil {
		lockCounter.Add(ctx, 1)
	}
}

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
