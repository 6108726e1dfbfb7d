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

package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netsync/pkg/models"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()

	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	return root
}

func TestResolveLayersOverride(t *testing.T) {
	root := writeTree(t, map[string]string{
		"global.yml":            "ntp_servers: [10.0.0.1]\nsnmp_community: public\nvxlans: {}\n",
		"roles/access.yml":      "snmp_community: access-ro\n",
		"devices/eosaccess.yml": "snmp_community: device-ro\nsyslog_server: 10.0.0.9\n",
		"devices/otherhost.yml": "snmp_community: ignored\n",
	})

	values, origin, err := NewResolver(root).Resolve("eosaccess", models.RoleAccess)
	require.NoError(t, err)

	assert.Equal(t, "device-ro", values["snmp_community"])
	assert.Equal(t, []any{"10.0.0.1"}, values["ntp_servers"])
	assert.Equal(t, "10.0.0.9", values["syslog_server"])
	assert.Equal(t, "device:eosaccess", origin["snmp_community"])
	assert.Equal(t, OriginGlobal, origin["ntp_servers"])

	values, origin, err = NewResolver(root).Resolve("eosaccess2", models.RoleAccess)
	require.NoError(t, err)
	assert.Equal(t, "access-ro", values["snmp_community"])
	assert.Equal(t, "role:ACCESS", origin["snmp_community"])
}

func TestResolveMissingRootIsEmpty(t *testing.T) {
	values, origin, err := NewResolver(filepath.Join(t.TempDir(), "absent")).Resolve("x", models.RoleCore)
	require.NoError(t, err)
	assert.Empty(t, values)
	assert.Empty(t, origin)
}

func TestResolveRejectsMalformedYAML(t *testing.T) {
	root := writeTree(t, map[string]string{"global.yml": "key: [unterminated\n"})

	_, _, err := NewResolver(root).Resolve("x", models.RoleCore)
	require.ErrorIs(t, err, ErrInvalidSettings)
}

func TestGroups(t *testing.T) {
	root := writeTree(t, map[string]string{
		"groups.yml": `groups:
  - group:
      name: ALL
      regex: ".*"
  - group:
      name: EOS_ACCESS
      regex: "^eosaccess"
  - group:
      name: DIST
      regex: "dist[0-9]+$"
`,
	})

	r := NewResolver(root)

	groups, err := r.Groups("eosaccess1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ALL", "EOS_ACCESS"}, groups)

	groups, err = r.Groups("eosdist2")
	require.NoError(t, err)
	assert.Equal(t, []string{"ALL", "DIST"}, groups)
}

func TestGroupsInvalidRegex(t *testing.T) {
	root := writeTree(t, map[string]string{
		"groups.yml": "groups:\n  - group:\n      name: BAD\n      regex: \"([\"\n",
	})

	_, err := NewResolver(root).Groups("x")
	require.ErrorIs(t, err, ErrInvalidGroup)
}

func TestGroupsWithoutFile(t *testing.T) {
	groups, err := NewResolver(t.TempDir()).Groups("x")
	require.NoError(t, err)
	assert.Nil(t, groups)
}
