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

// Package models holds the shared data types of the netsync engine.
package models

import (
	"fmt"
	"strings"
)

// DeviceRole is the functional tier of a device. It selects the template
// entrypoint and the role specific variable set.
type DeviceRole string

const (
	RoleUnknown DeviceRole = "UNKNOWN"
	RoleAccess  DeviceRole = "ACCESS"
	RoleDist    DeviceRole = "DIST"
	RoleCore    DeviceRole = "CORE"
)

// ParseDeviceRole accepts the role name in any case. "DISTRIBUTION" is an
// alias for DIST.
func ParseDeviceRole(s string) (DeviceRole, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(RoleAccess):
		return RoleAccess, nil
	case string(RoleDist), "DISTRIBUTION":
		return RoleDist, nil
	case string(RoleCore):
		return RoleCore, nil
	case string(RoleUnknown):
		return RoleUnknown, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDeviceRole, s)
	}
}

// GroupName returns the implicit group every device of this role belongs to.
func (r DeviceRole) GroupName() string {
	return "T_" + string(r)
}

// Device is a managed network element as stored in the device registry.
type Device struct {
	ID           int64      `json:"id"`
	Hostname     string     `json:"hostname"`
	ManagementIP string     `json:"management_ip,omitempty"`
	Platform     string     `json:"platform"`
	Role         DeviceRole `json:"device_type"`
	Synchronized bool       `json:"synchronized"`
	Managed      bool       `json:"managed"`
	// ConfigHash is the hex SHA-256 of the running configuration recorded
	// after the last committed push. Empty when the device was never synced.
	ConfigHash string `json:"config_hash,omitempty"`
}

// HasConfigHash reports whether a fingerprint has been recorded.
func (d *Device) HasConfigHash() bool {
	return d != nil && d.ConfigHash != ""
}

// DeviceFilter narrows a registry device listing. Zero values do not filter.
type DeviceFilter struct {
	Hostname           string
	Role               DeviceRole
	UnsynchronizedOnly bool
	ManagedOnly        bool
}
