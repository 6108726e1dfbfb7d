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

package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/carverauto/netsync/pkg/models"
)

const mgmtDomainSelect = `
SELECT m.id, m.ipv4_gw, m.vlan, COALESCE(m.description, ''), COALESCE(m.esi_mac, ''),
       a.hostname, b.hostname
FROM mgmtdomains m
JOIN devices a ON a.id = m.device_a_id
JOIN devices b ON b.id = m.device_b_id`

const mgmtDomainForPairSQL = mgmtDomainSelect + `
WHERE (a.hostname = $1 AND b.hostname = $2) OR (a.hostname = $2 AND b.hostname = $1)
ORDER BY m.id
LIMIT 1`

const mgmtDomainsForDeviceSQL = mgmtDomainSelect + `
WHERE a.hostname = $1 OR b.hostname = $1
ORDER BY m.vlan, m.id`

const uplinkNeighborsSQL = `
SELECT DISTINCT peer.hostname
FROM linknets l
JOIN devices peer ON peer.id = CASE WHEN l.device_a_id = $1 THEN l.device_b_id ELSE l.device_a_id END
WHERE (l.device_a_id = $1 AND l.device_a_port = ANY($2))
   OR (l.device_b_id = $1 AND l.device_b_port = ANY($2))
ORDER BY peer.hostname`

func scanManagementDomain(row pgx.Row) (models.ManagementDomain, error) {
	var m models.ManagementDomain

	err := row.Scan(&m.ID, &m.IPv4Gateway, &m.VLAN, &m.Description, &m.ESIMAC, &m.DeviceA, &m.DeviceB)

	return m, err
}

// FindManagementDomain returns the management domain served by the given
// uplink neighbours. One neighbour matches any domain it belongs to; two
// neighbours must form the domain's device pair in either order. Any
// other count, or no match, yields nil without error.
func (db *DB) FindManagementDomain(ctx context.Context, hostnames []string) (*models.ManagementDomain, error) {
	var row pgx.Row

	switch len(hostnames) {
	case 1:
		row = db.pool.QueryRow(ctx, mgmtDomainsForDeviceSQL+" LIMIT 1", hostnames[0])
	case 2:
		row = db.pool.QueryRow(ctx, mgmtDomainForPairSQL, hostnames[0], hostnames[1])
	default:
		return nil, nil
	}

	m, err := scanManagementDomain(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w management domain: %w", ErrFailedToQuery, err)
	}

	return &m, nil
}

// ManagementDomainsFor lists every management domain hostname is part of.
func (db *DB) ManagementDomainsFor(ctx context.Context, hostname string) ([]models.ManagementDomain, error) {
	rows, err := db.pool.Query(ctx, mgmtDomainsForDeviceSQL, hostname)
	if err != nil {
		return nil, fmt.Errorf("%w management domains: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var out []models.ManagementDomain

	for rows.Next() {
		m, err := scanManagementDomain(rows)
		if err != nil {
			return nil, fmt.Errorf("%w management domain: %w", ErrFailedToScan, err)
		}

		out = append(out, m)
	}

	return out, rows.Err()
}

// UplinkNeighbors returns the hostnames at the far end of the linknets
// attached to the given uplink ports of dev.
func (db *DB) UplinkNeighbors(ctx context.Context, dev *models.Device, uplinks []string) ([]string, error) {
	if len(uplinks) == 0 {
		return nil, nil
	}

	rows, err := db.pool.Query(ctx, uplinkNeighborsSQL, dev.ID, uplinks)
	if err != nil {
		return nil, fmt.Errorf("%w uplink neighbors: %w", ErrFailedToQuery, err)
	}

	return pgx.CollectRows(rows, pgx.RowTo[string])
}
