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

	"github.com/carverauto/netsync/pkg/hashutil"
	"github.com/carverauto/netsync/pkg/models"
)

// RunningConfigHash connects to dev and returns the fingerprint of its
// running configuration.
func RunningConfigHash(ctx context.Context, adapter DeviceAdapter, dev *models.Device) (string, error) {
	config, err := fetchRunningConfig(ctx, adapter, dev)
	if err != nil {
		return "", err
	}

	return hashutil.ConfigHash(config), nil
}

func fetchRunningConfig(ctx context.Context, adapter DeviceAdapter, dev *models.Device) (config string, err error) {
	if err := adapter.Connect(ctx, dev); err != nil {
		return "", err
	}

	defer func() {
		if derr := adapter.Disconnect(); derr != nil && err == nil {
			err = fmt.Errorf("disconnect %s: %w", dev.Hostname, derr)
		}
	}()

	config, err = adapter.FetchRunningConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch running config of %s: %w", dev.Hostname, err)
	}

	return config, nil
}
