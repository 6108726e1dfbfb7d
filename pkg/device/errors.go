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

package device

import "errors"

var (
	ErrNotConnected        = errors.New("device not connected")
	ErrAlreadyConnected    = errors.New("device already connected")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrNoManagementIP      = errors.New("device has no management ip")
	ErrNoAuthMethod        = errors.New("no ssh auth method configured")
	ErrHostKeyConfig       = errors.New("known_hosts file required unless insecure_ignore_host_key is set")
	ErrCommandFailed       = errors.New("device command failed")
)
