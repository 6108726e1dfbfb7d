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
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/carverauto/netsync/pkg/device"
	"github.com/carverauto/netsync/pkg/joblock"
	"github.com/carverauto/netsync/pkg/models"
)

var errUnreachable = errors.New("device unreachable")

type fakeRegistry struct {
	mu           sync.Mutex
	devices      []models.Device
	interfaces   map[int64][]models.Interface
	domains      []models.ManagementDomain
	synchronized []string
	hashes       map[string]string
	listErr      error
}

func (r *fakeRegistry) ListDevices(_ context.Context, f models.DeviceFilter) ([]models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.listErr != nil {
		return nil, r.listErr
	}

	var out []models.Device

	for _, d := range r.devices {
		switch {
		case f.Hostname != "" && d.Hostname != f.Hostname:
		case f.Role != "" && d.Role != f.Role:
		case f.UnsynchronizedOnly && d.Synchronized:
		case f.ManagedOnly && !d.Managed:
		default:
			out = append(out, d)
		}
	}

	return out, nil
}

func (r *fakeRegistry) ListInterfaces(_ context.Context, id int64) ([]models.Interface, error) {
	return r.interfaces[id], nil
}

func (r *fakeRegistry) FindManagementDomain(_ context.Context, hosts []string) (*models.ManagementDomain, error) {
	for i := range r.domains {
		m := &r.domains[i]

		switch len(hosts) {
		case 1:
			if m.DeviceA == hosts[0] || m.DeviceB == hosts[0] {
				return m, nil
			}
		case 2:
			if slices.Contains(hosts, m.DeviceA) && slices.Contains(hosts, m.DeviceB) {
				return m, nil
			}
		}
	}

	return nil, nil
}

func (r *fakeRegistry) ManagementDomainsFor(_ context.Context, hostname string) ([]models.ManagementDomain, error) {
	var out []models.ManagementDomain

	for _, m := range r.domains {
		if m.DeviceA == hostname || m.DeviceB == hostname {
			out = append(out, m)
		}
	}

	return out, nil
}

func (r *fakeRegistry) MarkSynchronized(_ context.Context, hostnames []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.synchronized = append(r.synchronized, hostnames...)
	slices.Sort(r.synchronized)

	for i := range r.devices {
		if slices.Contains(hostnames, r.devices[i].Hostname) {
			r.devices[i].Synchronized = true
		}
	}

	return nil
}

func (r *fakeRegistry) SetConfigHashes(_ context.Context, hashes map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hashes == nil {
		r.hashes = make(map[string]string)
	}

	for k, v := range hashes {
		r.hashes[k] = v
	}

	for i := range r.devices {
		if h, ok := hashes[r.devices[i].Hostname]; ok {
			r.devices[i].ConfigHash = h
		}
	}

	return nil
}

type fakeNeighbors map[string][]string

func (n fakeNeighbors) UplinkNeighbors(_ context.Context, dev *models.Device, _ []string) ([]string, error) {
	return n[dev.Hostname], nil
}

type fakeSettings struct {
	settings map[string]any
	groups   map[string][]string
}

func (s *fakeSettings) Resolve(string, models.DeviceRole) (map[string]any, map[string]string, error) {
	origin := make(map[string]string, len(s.settings))
	for k := range s.settings {
		origin[k] = "global"
	}

	return s.settings, origin, nil
}

func (s *fakeSettings) Groups(hostname string) ([]string, error) {
	return s.groups[hostname], nil
}

// fakeTemplates renders the management address of a device.
type fakeTemplates struct {
	missing map[string]bool
}

func (t *fakeTemplates) Dir(platform string) string { return "/templates/" + platform }

func (t *fakeTemplates) Entrypoint(platform string, role models.DeviceRole) (string, error) {
	if t.missing[platform] {
		return "", fmt.Errorf("no mapping for %s", role)
	}

	return "base.tmpl", nil
}

func (t *fakeTemplates) Render(_, _ string, vars map[string]any) (string, error) {
	return renderedConfig(fmt.Sprint(vars["mgmt_ip"])), nil
}

func renderedConfig(mgmtIP string) string {
	return fmt.Sprintf("hostname device\ninterface Management1\n   ip address %s/32\n", mgmtIP)
}

// fakeFleet holds the running configuration of every device.
type fakeFleet struct {
	mu       sync.Mutex
	running  map[string]string
	fetchErr map[string]error
	pushErr  map[string]error
	commits  map[string]int
	// drift replaces a running config right after a commit, as a device
	// that rewrites what it was given would.
	drift map[string]string
}

func newFakeFleet() *fakeFleet {
	return &fakeFleet{
		running:  make(map[string]string),
		fetchErr: make(map[string]error),
		pushErr:  make(map[string]error),
		commits:  make(map[string]int),
		drift:    make(map[string]string),
	}
}

func (f *fakeFleet) factory(dev *models.Device) DeviceAdapter {
	return &fakeAdapter{fleet: f, host: dev.Hostname}
}

func (f *fakeFleet) commitCount(host string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.commits[host]
}

type fakeAdapter struct {
	fleet *fakeFleet
	host  string
}

func (a *fakeAdapter) Connect(context.Context, *models.Device) error { return nil }

func (a *fakeAdapter) Disconnect() error { return nil }

func (a *fakeAdapter) FetchRunningConfig(context.Context) (string, error) {
	a.fleet.mu.Lock()
	defer a.fleet.mu.Unlock()

	if err := a.fleet.fetchErr[a.host]; err != nil {
		return "", err
	}

	return a.fleet.running[a.host], nil
}

func (a *fakeAdapter) PushConfig(_ context.Context, config string, dryRun bool) (string, error) {
	a.fleet.mu.Lock()
	defer a.fleet.mu.Unlock()

	if err := a.fleet.pushErr[a.host]; err != nil {
		return "", err
	}

	diff, err := device.UnifiedDiff(a.fleet.running[a.host], config)
	if err != nil {
		return "", err
	}

	if !dryRun && diff != "" {
		a.fleet.running[a.host] = config
		a.fleet.commits[a.host]++

		if d, ok := a.fleet.drift[a.host]; ok {
			a.fleet.running[a.host] = d
		}
	}

	return diff, nil
}

// holderRecorder notes which job held the commit lock each time a device
// was pushed.
type holderRecorder struct {
	mu      sync.Mutex
	locks   *joblock.MemoryStore
	holders map[string]string
}

func newHolderRecorder(locks *joblock.MemoryStore) *holderRecorder {
	return &holderRecorder{locks: locks, holders: make(map[string]string)}
}

func (r *holderRecorder) wrap(factory AdapterFactory) AdapterFactory {
	return func(dev *models.Device) DeviceAdapter {
		return &recordingAdapter{DeviceAdapter: factory(dev), rec: r, host: dev.Hostname}
	}
}

func (r *holderRecorder) seen() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return maps.Clone(r.holders)
}

type recordingAdapter struct {
	DeviceAdapter
	rec  *holderRecorder
	host string
}

func (a *recordingAdapter) PushConfig(ctx context.Context, config string, dryRun bool) (string, error) {
	a.rec.mu.Lock()
	a.rec.holders[a.host] = a.rec.locks.Holder(joblock.DevicesLock)
	a.rec.mu.Unlock()

	return a.DeviceAdapter.PushConfig(ctx, config, dryRun)
}
