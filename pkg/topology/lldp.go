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

package topology

import (
	"context"
	"fmt"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/carverauto/netsync/pkg/logger"
	"github.com/carverauto/netsync/pkg/models"
)

const (
	// lldpLocPortId, indexed by lldpLocPortNum.
	oidLLDPLocPortID = ".1.0.8802.1.1.2.1.3.7.1.3"
	// lldpLocPortDesc, indexed by lldpLocPortNum.
	oidLLDPLocPortDesc = ".1.0.8802.1.1.2.1.3.7.1.4"
	// lldpRemSysName, indexed by timeMark.localPortNum.index.
	oidLLDPRemSysName = ".1.0.8802.1.1.2.1.4.1.1.9"

	defaultSNMPPort    = 161
	defaultSNMPTimeout = 5 * time.Second
	defaultSNMPRetries = 2
	maxRepetitions     = 10
)

// SNMPConfig holds the credentials used for LLDP lookups.
type SNMPConfig struct {
	Version        string          `json:"version"`
	Community      string          `json:"community"`
	Username       string          `json:"username,omitempty"`
	AuthProtocol   string          `json:"auth_protocol,omitempty"`
	AuthPassphrase string          `json:"auth_passphrase,omitempty"`
	PrivProtocol   string          `json:"priv_protocol,omitempty"`
	PrivPassphrase string          `json:"priv_passphrase,omitempty"`
	Port           uint16          `json:"port"`
	Timeout        models.Duration `json:"timeout"`
	Retries        int             `json:"retries"`
}

type snmpWalker interface {
	BulkWalk(rootOid string, walkFn gosnmp.WalkFunc) error
}

type clientFunc func(dev *models.Device) (snmpWalker, func() error, error)

// LLDPFinder reads the LLDP remote table of a device over SNMP.
type LLDPFinder struct {
	cfg       SNMPConfig
	logger    logger.Logger
	newClient clientFunc
}

func NewLLDPFinder(cfg SNMPConfig, log logger.Logger) *LLDPFinder {
	f := &LLDPFinder{cfg: cfg, logger: log}
	f.newClient = f.connect

	return f
}

func (f *LLDPFinder) UplinkNeighbors(ctx context.Context, dev *models.Device, uplinks []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client, closeFn, err := f.newClient(dev)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := closeFn(); err != nil {
			f.logger.Debug().Err(err).Str("hostname", dev.Hostname).Msg("Failed to close SNMP connection")
		}
	}()

	localPorts := make(map[string][]string)

	for _, oid := range []string{oidLLDPLocPortDesc, oidLLDPLocPortID} {
		err := client.BulkWalk(oid, func(pdu gosnmp.SnmpPDU) error {
			if num, name, ok := parseLocalPort(oid, pdu); ok && name != "" {
				localPorts[num] = append(localPorts[num], name)
			}

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk LLDP local ports on %s: %w", dev.Hostname, err)
		}
	}

	var neighbors []string

	err = client.BulkWalk(oidLLDPRemSysName, func(pdu gosnmp.SnmpPDU) error {
		num, name, ok := parseRemoteSysName(pdu)
		if !ok || name == "" {
			return nil
		}

		if matchesUplink(localPorts[num], uplinks) && !slices.Contains(neighbors, name) {
			neighbors = append(neighbors, name)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk LLDP remote table on %s: %w", dev.Hostname, err)
	}

	return neighbors, nil
}

func (f *LLDPFinder) connect(dev *models.Device) (snmpWalker, func() error, error) {
	client := &gosnmp.GoSNMP{
		Target:             dev.ManagementIP,
		Port:               f.cfg.Port,
		Timeout:            time.Duration(f.cfg.Timeout),
		Retries:            f.cfg.Retries,
		MaxOids:            gosnmp.MaxOids,
		MaxRepetitions:     maxRepetitions,
		ExponentialTimeout: true,
	}

	if client.Port == 0 {
		client.Port = defaultSNMPPort
	}

	if client.Timeout == 0 {
		client.Timeout = defaultSNMPTimeout
	}

	if client.Retries == 0 {
		client.Retries = defaultSNMPRetries
	}

	if err := configureVersion(client, &f.cfg); err != nil {
		return nil, nil, err
	}

	if err := client.Connect(); err != nil {
		return nil, nil, fmt.Errorf("snmp connect %s: %w", dev.Hostname, err)
	}

	return client, func() error { return closeConn(client.Conn) }, nil
}

func closeConn(conn net.Conn) error {
	if conn == nil {
		return nil
	}

	return conn.Close()
}

func configureVersion(client *gosnmp.GoSNMP, cfg *SNMPConfig) error {
	switch strings.ToLower(cfg.Version) {
	case "", "v2c", "2c":
		client.Version = gosnmp.Version2c
		client.Community = cfg.Community
	case "v1", "1":
		client.Version = gosnmp.Version1
		client.Community = cfg.Community
	case "v3", "3":
		client.Version = gosnmp.Version3
		client.SecurityModel = gosnmp.UserSecurityModel
		client.MsgFlags = gosnmp.AuthPriv
		client.SecurityParameters = &gosnmp.UsmSecurityParameters{
			UserName:                 cfg.Username,
			AuthenticationProtocol:   authProtocol(cfg.AuthProtocol),
			AuthenticationPassphrase: cfg.AuthPassphrase,
			PrivacyProtocol:          privProtocol(cfg.PrivProtocol),
			PrivacyPassphrase:        cfg.PrivPassphrase,
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedSNMPVersion, cfg.Version)
	}

	return nil
}

func authProtocol(name string) gosnmp.SnmpV3AuthProtocol {
	switch strings.ToUpper(name) {
	case "MD5":
		return gosnmp.MD5
	case "SHA256":
		return gosnmp.SHA256
	default:
		return gosnmp.SHA
	}
}

func privProtocol(name string) gosnmp.SnmpV3PrivProtocol {
	switch strings.ToUpper(name) {
	case "DES":
		return gosnmp.DES
	case "AES256":
		return gosnmp.AES256
	default:
		return gosnmp.AES
	}
}

// parseLocalPort extracts lldpLocPortNum and the port name from an
// lldpLocPortTable column.
func parseLocalPort(root string, pdu gosnmp.SnmpPDU) (string, string, bool) {
	num, ok := strings.CutPrefix(pdu.Name, root+".")
	if !ok || num == "" || strings.Contains(num, ".") {
		return "", "", false
	}

	name, ok := octetString(pdu)

	return num, name, ok
}

// parseRemoteSysName extracts lldpRemLocalPortNum and the neighbour system
// name from an lldpRemSysName instance.
func parseRemoteSysName(pdu gosnmp.SnmpPDU) (string, string, bool) {
	suffix, ok := strings.CutPrefix(pdu.Name, oidLLDPRemSysName+".")
	if !ok {
		return "", "", false
	}

	parts := strings.Split(suffix, ".")
	if len(parts) != 3 {
		return "", "", false
	}

	name, ok := octetString(pdu)
	if !ok {
		return "", "", false
	}

	// Neighbours usually announce a fully qualified name.
	short, _, _ := strings.Cut(name, ".")

	return parts[1], short, true
}

func octetString(pdu gosnmp.SnmpPDU) (string, bool) {
	if pdu.Type != gosnmp.OctetString {
		return "", false
	}

	b, ok := pdu.Value.([]byte)
	if !ok {
		return "", false
	}

	return strings.TrimSpace(string(b)), true
}

// matchesUplink reports whether any of the local port names (id or
// description) is one of uplinks.
func matchesUplink(ports, uplinks []string) bool {
	return slices.ContainsFunc(ports, func(port string) bool {
		return slices.ContainsFunc(uplinks, func(u string) bool {
			return strings.EqualFold(u, port)
		})
	})
}
