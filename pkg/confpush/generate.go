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
	"fmt"
	"slices"
	"sort"

	"github.com/carverauto/netsync/pkg/models"
)

// GeneratedConfig is the rendered configuration of one device together
// with the variables it was rendered from.
type GeneratedConfig struct {
	Hostname       string            `json:"hostname"`
	Config         string            `json:"config"`
	Variables      map[string]any    `json:"available_variables"`
	SettingsOrigin map[string]string `json:"settings_origin,omitempty"`
}

// GenerateOnly renders the configuration of one managed device without
// connecting to it.
func (o *Orchestrator) GenerateOnly(ctx context.Context, hostname string) (*GeneratedConfig, error) {
	dev, err := o.managedDevice(ctx, hostname)
	if err != nil {
		return nil, err
	}

	config, vars, err := o.render(ctx, dev)
	if err != nil {
		return nil, err
	}

	return &GeneratedConfig{
		Hostname:       dev.Hostname,
		Config:         config,
		Variables:      vars.TemplateVars(),
		SettingsOrigin: vars.SettingsOrigin,
	}, nil
}

// ConfigHash fetches the live fingerprint of one managed device.
func (o *Orchestrator) ConfigHash(ctx context.Context, hostname string) (string, error) {
	dev, err := o.managedDevice(ctx, hostname)
	if err != nil {
		return "", err
	}

	return RunningConfigHash(ctx, o.adapters(dev), dev)
}

func (o *Orchestrator) managedDevice(ctx context.Context, hostname string) (*models.Device, error) {
	devices, err := o.registry.ListDevices(ctx, models.DeviceFilter{Hostname: hostname, ManagedOnly: true})
	if err != nil {
		return nil, fmt.Errorf("look up %s: %w", hostname, err)
	}

	if len(devices) != 1 {
		return nil, fmt.Errorf("%w: %q is not a single managed device", ErrInvalidHostname, hostname)
	}

	return &devices[0], nil
}

// Groups maps every group name to its sorted member hostnames. Besides
// the groups from the settings every device belongs to T_<ROLE>.
func (o *Orchestrator) Groups(ctx context.Context) (map[string][]string, error) {
	devices, err := o.registry.ListDevices(ctx, models.DeviceFilter{})
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	groups := make(map[string][]string)

	for i := range devices {
		dev := &devices[i]

		names, err := o.settings.Groups(dev.Hostname)
		if err != nil {
			return nil, err
		}

		for _, g := range append(names, dev.Role.GroupName()) {
			if !slices.Contains(groups[g], dev.Hostname) {
				groups[g] = append(groups[g], dev.Hostname)
			}
		}
	}

	for _, members := range groups {
		sort.Strings(members)
	}

	return groups, nil
}

// GroupMembers returns the members of one group, or nil when it is empty.
func (o *Orchestrator) GroupMembers(ctx context.Context, group string) ([]string, error) {
	groups, err := o.Groups(ctx)
	if err != nil {
		return nil, err
	}

	return groups[group], nil
}
