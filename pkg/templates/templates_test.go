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

package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netsync/pkg/models"
)

func setupPlatform(t *testing.T, files map[string]string) (*Engine, string) {
	t.Helper()

	root := t.TempDir()
	dir := filepath.Join(root, "eos")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}

	return NewEngine(root), dir
}

func TestEntrypoint(t *testing.T) {
	e, _ := setupPlatform(t, map[string]string{
		"mapping.yml": "ACCESS:\n  entrypoint: access.tmpl\nDIST:\n  entrypoint: dist.tmpl\n",
	})

	name, err := e.Entrypoint("eos", models.RoleAccess)
	require.NoError(t, err)
	assert.Equal(t, "access.tmpl", name)

	_, err = e.Entrypoint("eos", models.RoleCore)
	require.ErrorIs(t, err, ErrMappingMissing)

	_, err = e.Entrypoint("junos", models.RoleAccess)
	require.ErrorIs(t, err, ErrMappingMissing)
}

func TestRender(t *testing.T) {
	e, dir := setupPlatform(t, map[string]string{
		"access.tmpl": `hostname {{ .host }}
{{ template "mgmt" . }}
{{- range .uplinks }}
interface {{ .ifname }}
{{- end }}
`,
		"common.tmpl": `{{ define "mgmt" }}interface Vlan{{ .mgmt_vlan_id }}
 ip address {{ ipaddr .mgmt_ipif }}/{{ prefixlen .mgmt_ipif }}{{ end }}`,
	})

	out, err := e.Render(dir, "access.tmpl", map[string]any{
		"host":         "eosaccess",
		"mgmt_vlan_id": 600,
		"mgmt_ipif":    "10.0.6.10/24",
		"uplinks":      []map[string]any{{"ifname": "Ethernet1"}, {"ifname": "Ethernet2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hostname eosaccess\ninterface Vlan600\n ip address 10.0.6.10/24\ninterface Ethernet1\ninterface Ethernet2\n", out)
}

func TestRenderSprigFunctions(t *testing.T) {
	e, dir := setupPlatform(t, map[string]string{
		"core.tmpl": `{{ .name | upper }} {{ default "none" .missing_ok }}`,
	})

	out, err := e.Render(dir, "core.tmpl", map[string]any{"name": "core1", "missing_ok": ""})
	require.NoError(t, err)
	assert.Equal(t, "CORE1 none", out)
}

func TestRenderErrors(t *testing.T) {
	e, dir := setupPlatform(t, map[string]string{
		"access.tmpl": "hostname {{ .host }}",
	})

	_, err := e.Render(dir, "access.tmpl", map[string]any{})
	require.ErrorIs(t, err, ErrRender)

	_, err = e.Render(dir, "dist.tmpl", map[string]any{"host": "x"})
	require.ErrorIs(t, err, ErrRender)

	_, err = e.Render(filepath.Join(dir, "missing"), "access.tmpl", nil)
	require.ErrorIs(t, err, ErrRender)
}
