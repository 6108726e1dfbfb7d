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
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterfaceIndexNum(t *testing.T) {
	tests := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{name: "Ethernet1", want: 1},
		{name: "Ethernet1/2", want: 102},
		{name: "Ethernet1/2/3", want: 10203},
		{name: "Ethernet48", want: 48},
		{name: "Management", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InterfaceIndexNum(tt.name)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInterfaceIndex)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDeviceRole(t *testing.T) {
	role, err := ParseDeviceRole("access")
	require.NoError(t, err)
	assert.Equal(t, RoleAccess, role)

	role, err = ParseDeviceRole("Distribution")
	require.NoError(t, err)
	assert.Equal(t, RoleDist, role)

	_, err = ParseDeviceRole("edge")
	require.ErrorIs(t, err, ErrUnknownDeviceRole)

	assert.Equal(t, "T_ACCESS", RoleAccess.GroupName())
}

func TestDurationUnmarshal(t *testing.T) {
	var cfg struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"a":"30s","b":1000000000}`), &cfg))
	assert.Equal(t, 30*time.Second, time.Duration(cfg.A))
	assert.Equal(t, time.Second, time.Duration(cfg.B))

	err := json.Unmarshal([]byte(`{"a":true}`), &cfg)
	require.ErrorIs(t, err, ErrInvalidDuration)
}

func TestManagementDomainGateway(t *testing.T) {
	m := ManagementDomain{IPv4Gateway: "10.0.6.1/24"}

	prefix, err := m.Gateway()
	require.NoError(t, err)
	assert.Equal(t, "10.0.6.1", prefix.Addr().String())
	assert.Equal(t, 24, prefix.Bits())

	m.IPv4Gateway = "nonsense"
	_, err = m.Gateway()
	require.ErrorIs(t, err, ErrInvalidGateway)
}
