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

// Package topology finds the uplink neighbours of a device, first from the
// recorded links in the registry and then, if nothing is recorded, live
// over LLDP.
package topology

import (
	"context"
	"errors"
	"fmt"

	"github.com/carverauto/netsync/pkg/logger"
	"github.com/carverauto/netsync/pkg/models"
)

var (
	ErrNoNeighbors            = errors.New("no uplink neighbours found")
	ErrUnsupportedSNMPVersion = errors.New("unsupported SNMP version")
)

// NeighborFinder returns the hostnames of the devices connected to the
// given uplink ports of dev.
type NeighborFinder interface {
	UplinkNeighbors(ctx context.Context, dev *models.Device, uplinks []string) ([]string, error)
}

// Chain asks each finder in turn and returns the first non-empty answer.
type Chain struct {
	finders []NeighborFinder
	logger  logger.Logger
}

func NewChain(log logger.Logger, finders ...NeighborFinder) *Chain {
	return &Chain{finders: finders, logger: log}
}

func (c *Chain) UplinkNeighbors(ctx context.Context, dev *models.Device, uplinks []string) ([]string, error) {
	var errs []error

	for i, f := range c.finders {
		neighbors, err := f.UplinkNeighbors(ctx, dev, uplinks)
		if err != nil {
			c.logger.Debug().Err(err).Int("finder", i).Str("hostname", dev.Hostname).
				Msg("Neighbour lookup failed, trying next source")

			errs = append(errs, err)

			continue
		}

		if len(neighbors) > 0 {
			return neighbors, nil
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w for %s: %w", ErrNoNeighbors, dev.Hostname, errors.Join(errs...))
	}

	return nil, nil
}
