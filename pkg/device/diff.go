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

package device

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const diffContextLines = 3

// UnifiedDiff returns the unified diff from running to candidate, or an
// empty string when they are equal after normalizing line endings.
func UnifiedDiff(running, candidate string) (string, error) {
	a := normalize(running)
	b := normalize(candidate)

	if a == b {
		return "", nil
	}

	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: "running",
		ToFile:   "candidate",
		Context:  diffContextLines,
	})
}

func normalize(config string) string {
	config = strings.ReplaceAll(config, "\r\n", "\n")

	if config != "" && !strings.HasSuffix(config, "\n") {
		config += "\n"
	}

	return config
}
