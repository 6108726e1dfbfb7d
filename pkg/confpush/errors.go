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
	"errors"
	"fmt"
	"strings"

	"github.com/carverauto/netsync/pkg/joblock"
)

var (
	ErrManagementIPMissing      = errors.New("could not find management IP for device")
	ErrUplinkNeighborsNotFound  = errors.New("could not find any uplink neighbors for device")
	ErrManagementDomainNotFound = errors.New("could not find appropriate management domain for uplink peer devices")
	ErrTemplateMappingMissing   = errors.New("template mapping missing")
	ErrTemplateRenderError      = errors.New("template render error")
	ErrDriftDetected            = errors.New("device configuration is altered outside of netsync")
	ErrHashCheckFailed          = errors.New("configuration hash check failed")
	ErrHashRetrievalFailed      = errors.New("failed to get configuration hash")
	ErrTaskFailed               = errors.New("device task failed")
	ErrAutoPushSkipped          = errors.New("auto-push skipped")
	ErrInvalidHostname          = errors.New("invalid hostname")
	ErrInvalidRequest           = errors.New("invalid sync request")
	ErrUnsupportedRole          = errors.New("unsupported device role")

	// ErrLockAcquisitionFailed is returned when another job holds the
	// commit lock.
	ErrLockAcquisitionFailed = joblock.ErrLockAcquisitionFailed
)

// HostsError is a batch level failure naming the devices that caused it.
type HostsError struct {
	Kind  error
	Hosts []string
}

func (e *HostsError) Error() string {
	if len(e.Hosts) == 0 {
		return e.Kind.Error()
	}

	return fmt.Sprintf("%s: %s", e.Kind, strings.Join(e.Hosts, " "))
}

func (e *HostsError) Unwrap() error {
	return e.Kind
}
