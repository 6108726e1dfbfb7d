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
	"fmt"
	"net/netip"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
)

func newTemplate(name string) *template.Template {
	return template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Funcs(template.FuncMap{
			"ipaddr":    ipAddr,
			"prefixlen": prefixLen,
		}).
		Option("missingkey=error")
}

// ipAddr returns the address part of a CIDR string.
func ipAddr(cidr string) (string, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return "", fmt.Errorf("ipaddr %q: %w", cidr, err)
	}

	return prefix.Addr().String(), nil
}

func prefixLen(cidr string) (int, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return 0, fmt.Errorf("prefixlen %q: %w", cidr, err)
	}

	return prefix.Bits(), nil
}
