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
	"context"
	"fmt"
	"maps"
	"net/netip"

	"github.com/carverauto/netsync/pkg/models"
)

const (
	ifClassDownlink = "downlink"
	ifClassCustom   = "custom"
	hostPrefixLen   = 32
)

// RoleVariables is the role specific part of the template input. Each role
// contributes a fixed set of keys.
type RoleVariables interface {
	Role() models.DeviceRole
	templateVars() map[string]any
}

// AccessVariables places an access switch in the management domain of its
// uplink neighbours.
type AccessVariables struct {
	MgmtIPIf      string
	MgmtGateway   string
	MgmtVLANID    int
	MgmtPrefixLen int
}

func (AccessVariables) Role() models.DeviceRole { return models.RoleAccess }

func (v AccessVariables) templateVars() map[string]any {
	return map[string]any{
		"mgmt_ipif":      v.MgmtIPIf,
		"mgmt_gw":        v.MgmtGateway,
		"mgmt_vlan_id":   v.MgmtVLANID,
		"mgmt_prefixlen": v.MgmtPrefixLen,
	}
}

// DistInterface is a downlink or custom interface from the device settings.
type DistInterface struct {
	Name    string
	IfClass string
	// Config is the verbatim configuration block of a custom interface.
	Config any
	// IndexNum is nil when the name carries no numeric index.
	IndexNum *int
}

type DistManagementDomain struct {
	IPv4Gateway string
	VLAN        int
	Description string
	ESIMAC      string
}

// DistVariables describes a distribution switch.
type DistVariables struct {
	MgmtIPIf          string
	MgmtPrefixLen     int
	Interfaces        []DistInterface
	ManagementDomains []DistManagementDomain
}

func (DistVariables) Role() models.DeviceRole { return models.RoleDist }

func (v DistVariables) templateVars() map[string]any {
	interfaces := make([]map[string]any, 0, len(v.Interfaces))

	for _, intf := range v.Interfaces {
		m := map[string]any{
			"name":    intf.Name,
			"ifclass": intf.IfClass,
		}

		if intf.IfClass == ifClassCustom {
			m["config"] = intf.Config
		}

		if intf.IndexNum != nil {
			m["indexnum"] = *intf.IndexNum
		}

		interfaces = append(interfaces, m)
	}

	domains := make([]map[string]any, 0, len(v.ManagementDomains))

	for _, d := range v.ManagementDomains {
		domains = append(domains, map[string]any{
			"ipv4_gw":     d.IPv4Gateway,
			"vlan":        d.VLAN,
			"description": d.Description,
			"esi_mac":     d.ESIMAC,
		})
	}

	return map[string]any{
		"mgmt_ipif":      v.MgmtIPIf,
		"mgmt_prefixlen": v.MgmtPrefixLen,
		"interfaces":     interfaces,
		"mgmtdomains":    domains,
	}
}

// CoreVariables has no role specific keys.
type CoreVariables struct{}

func (CoreVariables) Role() models.DeviceRole { return models.RoleCore }

func (CoreVariables) templateVars() map[string]any { return nil }

// CommonVariables apply to every device.
type CommonVariables struct {
	MgmtIP     string
	Uplinks    []string
	AccessAuto []string
}

func (v CommonVariables) templateVars() map[string]any {
	return map[string]any{
		"mgmt_ip":     v.MgmtIP,
		"uplinks":     ifnameList(v.Uplinks),
		"access_auto": ifnameList(v.AccessAuto),
	}
}

func ifnameList(names []string) []map[string]any {
	out := make([]map[string]any, 0, len(names))
	for _, n := range names {
		out = append(out, map[string]any{"ifname": n})
	}

	return out
}

// DeviceVariables is everything known about a device before rendering.
type DeviceVariables struct {
	Settings       map[string]any
	SettingsOrigin map[string]string
	Role           RoleVariables
	Common         CommonVariables
}

// TemplateVars flattens the layers. Role variables override settings and
// common variables override both.
func (v *DeviceVariables) TemplateVars() map[string]any {
	out := make(map[string]any, len(v.Settings)+8)

	maps.Copy(out, v.Settings)

	if v.Role != nil {
		maps.Copy(out, v.Role.templateVars())
	}

	maps.Copy(out, v.Common.templateVars())

	return out
}

// Deriver computes DeviceVariables from the registry, the topology and the
// settings. It performs reads only.
type Deriver struct {
	registry  Registry
	neighbors NeighborFinder
	settings  SettingsResolver
}

func NewDeriver(registry Registry, neighbors NeighborFinder, settings SettingsResolver) *Deriver {
	return &Deriver{registry: registry, neighbors: neighbors, settings: settings}
}

func (d *Deriver) Derive(ctx context.Context, dev *models.Device) (*DeviceVariables, error) {
	if dev.ManagementIP == "" {
		return nil, fmt.Errorf("%w %s", ErrManagementIPMissing, dev.Hostname)
	}

	mgmtIP, err := netip.ParseAddr(dev.ManagementIP)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrManagementIPMissing, dev.Hostname, err)
	}

	settings, origin, err := d.settings.Resolve(dev.Hostname, dev.Role)
	if err != nil {
		return nil, fmt.Errorf("resolve settings for %s: %w", dev.Hostname, err)
	}

	common, err := d.commonVariables(ctx, dev, mgmtIP)
	if err != nil {
		return nil, err
	}

	var role RoleVariables

	switch dev.Role {
	case models.RoleAccess:
		role, err = d.accessVariables(ctx, dev, mgmtIP, common.Uplinks)
	case models.RoleDist:
		role, err = d.distVariables(ctx, dev, mgmtIP, settings)
	case models.RoleCore:
		role = CoreVariables{}
	default:
		err = fmt.Errorf("%w: %s has role %q", ErrUnsupportedRole, dev.Hostname, dev.Role)
	}

	if err != nil {
		return nil, err
	}

	return &DeviceVariables{
		Settings:       settings,
		SettingsOrigin: origin,
		Role:           role,
		Common:         common,
	}, nil
}

func (d *Deriver) commonVariables(ctx context.Context, dev *models.Device, mgmtIP netip.Addr) (CommonVariables, error) {
	intfs, err := d.registry.ListInterfaces(ctx, dev.ID)
	if err != nil {
		return CommonVariables{}, fmt.Errorf("list interfaces of %s: %w", dev.Hostname, err)
	}

	v := CommonVariables{MgmtIP: mgmtIP.String()}

	for _, intf := range intfs {
		switch intf.ConfigType {
		case models.ConfigTypeAccessAuto:
			v.AccessAuto = append(v.AccessAuto, intf.Name)
		case models.ConfigTypeAccessUplink:
			v.Uplinks = append(v.Uplinks, intf.Name)
		default:
		}
	}

	return v, nil
}

func (d *Deriver) accessVariables(
	ctx context.Context, dev *models.Device, mgmtIP netip.Addr, uplinks []string,
) (AccessVariables, error) {
	neighbors, err := d.neighbors.UplinkNeighbors(ctx, dev, uplinks)
	if err != nil {
		return AccessVariables{}, fmt.Errorf("%w %s: %w", ErrUplinkNeighborsNotFound, dev.Hostname, err)
	}

	if len(neighbors) == 0 {
		return AccessVariables{}, fmt.Errorf("%w %s", ErrUplinkNeighborsNotFound, dev.Hostname)
	}

	domain, err := d.registry.FindManagementDomain(ctx, neighbors)
	if err != nil {
		return AccessVariables{}, fmt.Errorf("%w: %v: %w", ErrManagementDomainNotFound, neighbors, err)
	}

	if domain == nil {
		return AccessVariables{}, fmt.Errorf("%w: %v", ErrManagementDomainNotFound, neighbors)
	}

	gw, err := domain.Gateway()
	if err != nil {
		return AccessVariables{}, fmt.Errorf("%w: %v: %w", ErrManagementDomainNotFound, neighbors, err)
	}

	return AccessVariables{
		MgmtIPIf:      netip.PrefixFrom(mgmtIP, gw.Bits()).String(),
		MgmtGateway:   gw.Addr().String(),
		MgmtVLANID:    domain.VLAN,
		MgmtPrefixLen: gw.Bits(),
	}, nil
}

func (d *Deriver) distVariables(
	ctx context.Context, dev *models.Device, mgmtIP netip.Addr, settings map[string]any,
) (DistVariables, error) {
	v := DistVariables{
		MgmtIPIf:      netip.PrefixFrom(mgmtIP, hostPrefixLen).String(),
		MgmtPrefixLen: hostPrefixLen,
		Interfaces:    distInterfaces(settings["interfaces"]),
	}

	domains, err := d.registry.ManagementDomainsFor(ctx, dev.Hostname)
	if err != nil {
		return DistVariables{}, fmt.Errorf("list management domains of %s: %w", dev.Hostname, err)
	}

	for _, m := range domains {
		v.ManagementDomains = append(v.ManagementDomains, DistManagementDomain{
			IPv4Gateway: m.IPv4Gateway,
			VLAN:        m.VLAN,
			Description: m.Description,
			ESIMAC:      m.ESIMAC,
		})
	}

	return v, nil
}

// distInterfaces keeps the downlink and custom entries of the interfaces
// setting. Entries of any other shape are ignored.
func distInterfaces(raw any) []DistInterface {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}

	var out []DistInterface

	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}

		name, _ := entry["name"].(string)
		class, _ := entry["ifclass"].(string)

		if name == "" || (class != ifClassDownlink && class != ifClassCustom) {
			continue
		}

		intf := DistInterface{Name: name, IfClass: class}

		if class == ifClassCustom {
			intf.Config = entry["config"]
		}

		if n, err := models.InterfaceIndexNum(name); err == nil {
			intf.IndexNum = &n
		}

		out = append(out, intf)
	}

	return out
}
