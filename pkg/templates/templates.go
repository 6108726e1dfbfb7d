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

// Package templates renders device configuration from per-platform
// template directories.
package templates

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/carverauto/netsync/pkg/models"
)

const (
	mappingFile = "mapping.yml"
	templateExt = "*.tmpl"
)

var (
	ErrMappingMissing = errors.New("template mapping missing")
	ErrRender         = errors.New("template render error")
)

// Engine resolves <root>/<platform>/mapping.yml to an entrypoint and renders
// it with text/template plus the sprig function set.
type Engine struct {
	root string
}

func NewEngine(root string) *Engine {
	return &Engine{root: root}
}

// Dir returns the template directory for a platform.
func (e *Engine) Dir(platform string) string {
	return filepath.Join(e.root, platform)
}

type mappingEntry struct {
	Entrypoint string `yaml:"entrypoint"`
}

// Entrypoint returns the template name configured for role on platform.
func (e *Engine) Entrypoint(platform string, role models.DeviceRole) (string, error) {
	path := filepath.Join(e.Dir(platform), mappingFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrMappingMissing, path, err)
	}

	var mapping map[string]mappingEntry
	if err := yaml.Unmarshal(data, &mapping); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrMappingMissing, path, err)
	}

	entry, ok := mapping[string(role)]
	if !ok || entry.Entrypoint == "" {
		return "", fmt.Errorf("%w: no entrypoint for role %s on platform %s", ErrMappingMissing, role, platform)
	}

	return entry.Entrypoint, nil
}

// Render executes entrypoint from dir. Every *.tmpl file in dir is parsed so
// entrypoints can include shared blocks. Referencing an undefined variable
// is an error.
func (*Engine) Render(dir, entrypoint string, vars map[string]any) (string, error) {
	tmpl, err := newTemplate(entrypoint).ParseGlob(filepath.Join(dir, templateExt))
	if err != nil {
		return "", fmt.Errorf("%w: parse %s: %w", ErrRender, dir, err)
	}

	if tmpl.Lookup(entrypoint) == nil {
		return "", fmt.Errorf("%w: template %q not found in %s", ErrRender, entrypoint, dir)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, entrypoint, vars); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrRender, entrypoint, err)
	}

	return buf.String(), nil
}
