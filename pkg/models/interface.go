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

package models

import (
	"fmt"
	"regexp"
	"strconv"
)

// InterfaceConfigType tags an interface with the role it plays in
// generated configuration.
type InterfaceConfigType string

const (
	ConfigTypeUnknown        InterfaceConfigType = "UNKNOWN"
	ConfigTypeUnmanaged      InterfaceConfigType = "UNMANAGED"
	ConfigTypeConfigured     InterfaceConfigType = "CONFIGURED"
	ConfigTypeCustom         InterfaceConfigType = "CUSTOM"
	ConfigTypeAccessAuto     InterfaceConfigType = "ACCESS_AUTO"
	ConfigTypeAccessUntagged InterfaceConfigType = "ACCESS_UNTAGGED"
	ConfigTypeAccessTagged   InterfaceConfigType = "ACCESS_TAGGED"
	ConfigTypeAccessUplink   InterfaceConfigType = "ACCESS_UPLINK"
	ConfigTypeAccessDownlink InterfaceConfigType = "ACCESS_DOWNLINK"
)

// Interface belongs to exactly one device.
type Interface struct {
	DeviceID   int64               `json:"device_id"`
	Name       string              `json:"name"`
	ConfigType InterfaceConfigType `json:"configtype"`
	Data       map[string]any      `json:"data,omitempty"`
}

var interfaceNumberRe = regexp.MustCompile(`\d+`)

// InterfaceIndexNum folds the numeric parts of an interface name into one
// integer, e.g. Ethernet1 -> 1, Ethernet1/2 -> 102, Ethernet1/2/3 -> 10203.
func InterfaceIndexNum(name string) (int, error) {
	parts := interfaceNumberRe.FindAllString(name, -1)
	if len(parts) == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInterfaceIndex, name)
	}

	index := 0
	weight := 1

	for i := len(parts) - 1; i >= 0; i-- {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %w", ErrInterfaceIndex, name, err)
		}

		index += n * weight
		weight *= 100
	}

	return index, nil
}
