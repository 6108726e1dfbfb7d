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

//go:generate mockgen -destination=mock_confpush.go -package=confpush github.com/carverauto/netsync/pkg/confpush Scheduler,ProgressSink

package confpush

import (
	"context"
	"time"

	"github.com/carverauto/netsync/pkg/models"
)

// Registry is the device registry as seen by the orchestrator. Every call
// runs in its own short transaction.
type Registry interface {
	ListDevices(ctx context.Context, filter models.DeviceFilter) ([]models.Device, error)
	ListInterfaces(ctx context.Context, deviceID int64) ([]models.Interface, error)
	FindManagementDomain(ctx context.Context, hostnames []string) (*models.ManagementDomain, error)
	ManagementDomainsFor(ctx context.Context, hostname string) ([]models.ManagementDomain, error)
	MarkSynchronized(ctx context.Context, hostnames []string) error
	SetConfigHashes(ctx context.Context, hashes map[string]string) error
}

// NeighborFinder returns the hostnames behind the given uplink ports.
type NeighborFinder interface {
	UplinkNeighbors(ctx context.Context, dev *models.Device, uplinks []string) ([]string, error)
}

// SettingsResolver returns free form template settings and, per key, the
// layer they came from.
type SettingsResolver interface {
	Resolve(hostname string, role models.DeviceRole) (map[string]any, map[string]string, error)
	Groups(hostname string) ([]string, error)
}

// Templater picks and renders the configuration template of a device.
type Templater interface {
	Dir(platform string) string
	Entrypoint(platform string, role models.DeviceRole) (string, error)
	Render(dir, entrypoint string, vars map[string]any) (string, error)
}

// DeviceAdapter talks to one device. Implementations bound every network
// operation with their own timeout.
type DeviceAdapter interface {
	Connect(ctx context.Context, dev *models.Device) error
	FetchRunningConfig(ctx context.Context) (string, error)
	PushConfig(ctx context.Context, config string, dryRun bool) (string, error)
	Disconnect() error
}

// AdapterFactory returns a fresh adapter for one device session.
type AdapterFactory func(dev *models.Device) DeviceAdapter

// Locker is the commit lock.
type Locker interface {
	Acquire(ctx context.Context, name, jobID string) error
	Release(ctx context.Context, jobID string) error
}

// Scheduler runs a registered function once after delay and returns the
// new job id.
type Scheduler interface {
	ScheduleOnce(ctx context.Context, name string, delay time.Duration, args any) (string, error)
}

// ProgressSink receives the hostname of every device whose push task
// finished. Delivery is best effort.
type ProgressSink interface {
	Append(ctx context.Context, jobID, hostname string) error
}
