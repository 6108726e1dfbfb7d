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

// Package settings resolves the free-form template settings of a device
// from a directory of YAML files.
//
// Layout under the root directory:
//
//	global.yml             applies to every device
//	roles/<role>.yml       e.g. roles/access.yml
//	devices/<hostname>.yml
//	groups.yml             group name to hostname regex
//
// Later layers replace top level keys of earlier ones.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/carverauto/netsync/pkg/models"
)

var (
	ErrInvalidSettings = errors.New("invalid settings file")
	ErrInvalidGroup    = errors.New("invalid group definition")
)

const (
	OriginGlobal = "global"
	originRole   = "role:"
	originDevice = "device:"
)

// Resolver reads settings files on every call so edits apply to the next
// job without a restart.
type Resolver struct {
	root string
}

func NewResolver(root string) *Resolver {
	return &Resolver{root: root}
}

// Resolve returns the merged settings for hostname and, per top level
// key, the layer that supplied it.
func (r *Resolver) Resolve(hostname string, role models.DeviceRole) (map[string]any, map[string]string, error) {
	layers := []struct {
		path   string
		origin string
	}{
		{filepath.Join(r.root, "global.yml"), OriginGlobal},
		{filepath.Join(r.root, "roles", strings.ToLower(string(role))+".yml"), originRole + string(role)},
		{filepath.Join(r.root, "devices", hostname+".yml"), originDevice + hostname},
	}

	merged := make(map[string]any)
	origin := make(map[string]string)

	for _, layer := range layers {
		values, err := readYAMLMap(layer.path)
		if err != nil {
			return nil, nil, err
		}

		for k, v := range values {
			merged[k] = v
			origin[k] = layer.origin
		}
	}

	return merged, origin, nil
}

type groupsFile struct {
	Groups []struct {
		Group struct {
			Name  string `yaml:"name"`
			Regex string `yaml:"regex"`
		} `yaml:"group"`
	} `yaml:"groups"`
}

// Groups returns the names of the groups in groups.yml whose regex matches
// hostname, in file order.
func (r *Resolver) Groups(hostname string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(r.root, "groups.yml"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read groups: %w", err)
	}

	var doc groupsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: groups.yml: %w", ErrInvalidSettings, err)
	}

	var out []string

	for _, entry := range doc.Groups {
		g := entry.Group
		if g.Name == "" {
			return nil, fmt.Errorf("%w: missing name", ErrInvalidGroup)
		}

		re, err := regexp.Compile(g.Regex)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidGroup, g.Name, err)
		}

		if re.MatchString(hostname) {
			out = append(out, g.Name)
		}
	}

	return out, nil
}

// readYAMLMap returns nil for a missing file.
func readYAMLMap(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSettings, path, err)
	}

	return values, nil
}
