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
	"net/netip"
)

// ManagementDomain is a management subnet shared by a pair of DIST devices.
type ManagementDomain struct {
	ID int64 `json:"id"`
	// IPv4Gateway is the gateway address in CIDR notation, e.g. 10.0.6.1/24.
	IPv4Gateway string `json:"ipv4_gw"`
	VLAN        int    `json:"vlan"`
	Description string `json:"description,omitempty"`
	ESIMAC      string `json:"esi_mac,omitempty"`
	DeviceA     string `json:"device_a"`
	DeviceB     string `json:"device_b"`
}

// Gateway parses IPv4Gateway.
func (m *ManagementDomain) Gateway() (netip.Prefix, error) {
	prefix, err := netip.ParsePrefix(m.IPv4Gateway)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: %q: %w", ErrInvalidGateway, m.IPv4Gateway, err)
	}

	return prefix, nil
}
