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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carverauto/netsync/pkg/device"
)

func TestAggregateScore(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		failed []string
		want   int
	}{
		{name: "empty", want: 100},
		{name: "failure", scores: []int{1, 2}, failed: []string{"eosaccess"}, want: 100},
		{name: "catastrophic", scores: []int{0, 0, 1001}, want: 100},
		{name: "odd median", scores: []int{3, 9, 1}, want: 3},
		{name: "even median rounds half up", scores: []int{2, 5}, want: 4},
		{name: "clamped low", scores: []int{0, 0}, want: 1},
		{name: "clamped high", scores: []int{400, 500}, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AggregateScore(tt.scores, tt.failed))
		})
	}
}

func TestDefaultScore(t *testing.T) {
	running := "hostname eosaccess\n! comment\ninterface Ethernet1\n   description old\n   switchport\n"

	assert.Zero(t, DefaultScore(running, ""))

	descOnly := "hostname eosaccess\n! comment\ninterface Ethernet1\n   description new\n   switchport\n"
	unified, err := device.UnifiedDiff(running, descOnly)
	assert.NoError(t, err)
	assert.Zero(t, DefaultScore(descOnly, unified))

	routing := running + "router bgp 65000\n   neighbor 10.0.0.1 remote-as 65001\n"
	unified, err = device.UnifiedDiff(running, routing)
	assert.NoError(t, err)

	vlan := running + "   switchport access vlan 13\n"
	small, err := device.UnifiedDiff(running, vlan)
	assert.NoError(t, err)

	assert.Greater(t, DefaultScore(routing, unified), DefaultScore(vlan, small))
}

func TestChangedLinesWithoutHeaders(t *testing.T) {
	added, removed := changedLines("+ip route 0.0.0.0/0 10.0.0.1\n-ntp server 10.0.0.2\n context\n")

	assert.Equal(t, []string{"ip route 0.0.0.0/0 10.0.0.1"}, added)
	assert.Equal(t, []string{"ntp server 10.0.0.2"}, removed)
	assert.InDelta(t, 10, lineWeight(added[0]), 0)
	assert.InDelta(t, 0.5, lineWeight(removed[0]), 0)
}
