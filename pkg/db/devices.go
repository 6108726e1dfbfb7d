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
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/carverauto/netsync/pkg/models"
)

const deviceColumns = `id, hostname, COALESCE(management_ip, ''), platform, device_type,
	synchronized, managed, COALESCE(config_hash, '')`

const listDevicesSQL = `
SELECT ` + deviceColumns + `
FROM devices
WHERE ($1::text = '' OR hostname = $1)
  AND ($2::text = '' OR device_type = $2)
  AND (NOT $3::boolean OR synchronized = FALSE)
  AND (NOT $4::boolean OR managed = TRUE)
ORDER BY hostname`

const listInterfacesSQL = `
SELECT device_id, name, configtype, data
FROM interfaces
WHERE device_id = $1
ORDER BY name`

const markSynchronizedSQL = `
UPDATE devices SET synchronized = TRUE, updated_at = now()
WHERE hostname = ANY($1)`

const setConfigHashSQL = `
UPDATE devices SET config_hash = $2, updated_at = now()
WHERE hostname = $1`

func scanDevice(row pgx.Row) (models.Device, error) {
	var (
		dev  models.Device
		role string
	)

	if err := row.Scan(
		&dev.ID,
		&dev.Hostname,
		&dev.ManagementIP,
		&dev.Platform,
		&role,
		&dev.Synchronized,
		&dev.Managed,
		&dev.ConfigHash,
	); err != nil {
		return dev, err
	}

	dev.Role = models.DeviceRole(role)

	return dev, nil
}

// ListDevices returns the devices matching filter ordered by hostname.
func (db *DB) ListDevices(ctx context.Context, filter models.DeviceFilter) ([]models.Device, error) {
	rows, err := db.pool.Query(ctx, listDevicesSQL,
		filter.Hostname,
		string(filter.Role),
		filter.UnsynchronizedOnly,
		filter.ManagedOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("%w devices: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var devices []models.Device

	for rows.Next() {
		dev, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("%w device: %w", ErrFailedToScan, err)
		}

		devices = append(devices, dev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w devices: %w", ErrFailedToQuery, err)
	}

	return devices, nil
}

func (db *DB) ListInterfaces(ctx context.Context, deviceID int64) ([]models.Interface, error) {
	rows, err := db.pool.Query(ctx, listInterfacesSQL, deviceID)
	if err != nil {
		return nil, fmt.Errorf("%w interfaces: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var out []models.Interface

	for rows.Next() {
		var (
			intf       models.Interface
			configType string
			data       []byte
		)

		if err := rows.Scan(&intf.DeviceID, &intf.Name, &configType, &data); err != nil {
			return nil, fmt.Errorf("%w interface: %w", ErrFailedToScan, err)
		}

		intf.ConfigType = models.InterfaceConfigType(configType)

		if intf.Data, err = decodeJSONObject(data); err != nil {
			return nil, fmt.Errorf("%w interface %s data: %w", ErrFailedToScan, intf.Name, err)
		}

		out = append(out, intf)
	}

	return out, rows.Err()
}

// MarkSynchronized sets synchronized=true for all hostnames in one
// statement.
func (db *DB) MarkSynchronized(ctx context.Context, hostnames []string) error {
	if len(hostnames) == 0 {
		return nil
	}

	if _, err := db.pool.Exec(ctx, markSynchronizedSQL, hostnames); err != nil {
		return fmt.Errorf("%w synchronized flag: %w", ErrFailedToUpdate, err)
	}

	return nil
}

// SetConfigHashes records post-commit fingerprints keyed by hostname.
func (db *DB) SetConfigHashes(ctx context.Context, hashes map[string]string) error {
	if len(hashes) == 0 {
		return nil
	}

	hostnames := make([]string, 0, len(hashes))
	for hostname := range hashes {
		hostnames = append(hostnames, hostname)
	}

	// Stable order keeps concurrent jobs from deadlocking on row locks.
	sort.Strings(hostnames)

	batch := &pgx.Batch{}
	for _, hostname := range hostnames {
		batch.Queue(setConfigHashSQL, hostname, hashes[hostname])
	}

	return db.sendWithRetry(ctx, batch, "config hash")
}

func decodeJSONObject(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}

	return out, nil
}
