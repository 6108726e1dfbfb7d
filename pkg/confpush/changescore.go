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
	"bufio"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

const (
	maxScore          = 100
	minScore          = 1
	catastrophicScore = 1000
	// touchFactor scales line scores by the share of the config touched.
	touchFactor       = 10.0
	removalMultiplier = 2.0
)

// ScoreFunc scores one device from its rendered config and the diff that
// pushing it produced.
type ScoreFunc func(config, diff string) int

type linePattern struct {
	re     *regexp.Regexp
	weight float64
}

// First match wins. Lines matching nothing weigh 1 when indented (inside a
// block) and 2 at top level.
var linePatterns = []linePattern{
	{regexp.MustCompile(`^\s*(!|#)`), 0},
	{regexp.MustCompile(`^\s*(description|name|alias)\b`), 0},
	{regexp.MustCompile(`^\s*(ntp|snmp-server|logging|banner|dot1x)\b`), 0.5},
	{regexp.MustCompile(`^\s*(router|vrf|ip route|ipv6 route|spanning-tree|mlag|vxlan)\b`), 10},
	{regexp.MustCompile(`^\s*(ip address|switchport trunk|switchport mode|channel-group)\b`), 5},
	{regexp.MustCompile(`^(interface|vlan)\b`), 5},
}

// DefaultScore weighs every added or removed line and scales the sum by
// how much of the config was touched.
func DefaultScore(config, unified string) int {
	if unified == "" {
		return 0
	}

	added, removed := changedLines(unified)

	var sum float64

	for _, l := range added {
		sum += lineWeight(l)
	}

	for _, l := range removed {
		sum += lineWeight(l) * removalMultiplier
	}

	configLines := max(strings.Count(config, "\n"), 1)
	ratio := math.Min(float64(len(added)+len(removed))/float64(configLines), 1)

	return int(math.Round(sum * (1 + touchFactor*ratio)))
}

func lineWeight(line string) float64 {
	if strings.TrimSpace(line) == "" {
		return 0
	}

	for _, p := range linePatterns {
		if p.re.MatchString(line) {
			return p.weight
		}
	}

	if line[0] == ' ' || line[0] == '\t' {
		return 1
	}

	return 2
}

// changedLines returns the added and removed lines of a unified diff,
// without their +/- markers. Diffs without file headers are scanned line by
// line.
func changedLines(unified string) (added, removed []string) {
	fd, err := diff.ParseFileDiff([]byte(unified))
	if err == nil && len(fd.Hunks) > 0 {
		for _, h := range fd.Hunks {
			a, r := scanBody(string(h.Body), false)
			added = append(added, a...)
			removed = append(removed, r...)
		}

		return added, removed
	}

	return scanBody(unified, true)
}

func scanBody(body string, skipHeaders bool) (added, removed []string) {
	sc := bufio.NewScanner(strings.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		line := sc.Text()

		if skipHeaders && (strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---")) {
			continue
		}

		switch {
		case strings.HasPrefix(line, "+"):
			added = append(added, line[1:])
		case strings.HasPrefix(line, "-"):
			removed = append(removed, line[1:])
		}
	}

	return added, removed
}

// AggregateScore combines per device scores into the job score in [1,100].
// Any failure, an empty list or a single score above 1000 yields 100.
// Otherwise the median is rounded half up and clamped.
func AggregateScore(scores []int, failedHosts []string) int {
	if len(scores) == 0 || len(failedHosts) > 0 {
		return maxScore
	}

	sorted := append([]int(nil), scores...)
	sort.Ints(sorted)

	if sorted[len(sorted)-1] > catastrophicScore {
		return maxScore
	}

	var median float64

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		median = float64(sorted[mid])
	} else {
		median = float64(sorted[mid-1]+sorted[mid]) / 2
	}

	return max(min(int(median+0.5), maxScore), minScore)
}
