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

// Package hashutil fingerprints running configurations.
package hashutil

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

var ErrUnsupportedEncoding = errors.New("unsupported checksum encoding")

// ConfigHash returns the lowercase hex SHA-256 of a running configuration.
func ConfigHash(config string) string {
	sum := sha256.Sum256([]byte(config))
	return hex.EncodeToString(sum[:])
}

// DecodeSHA256String accepts a stored fingerprint in hex or any of the
// base64 alphabets and returns the raw 32 byte digest.
func DecodeSHA256String(s string) ([]byte, error) {
	clean := strings.TrimSpace(s)
	if clean == "" {
		return nil, ErrUnsupportedEncoding
	}

	if decoded, err := hex.DecodeString(clean); err == nil && len(decoded) == sha256.Size {
		return decoded, nil
	}

	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if decoded, err := enc.DecodeString(clean); err == nil && len(decoded) == sha256.Size {
			return decoded, nil
		}
	}

	return nil, ErrUnsupportedEncoding
}

// CanonicalHexSHA256 re-encodes a fingerprint as lowercase hex.
func CanonicalHexSHA256(s string) (string, error) {
	decoded, err := DecodeSHA256String(s)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(decoded), nil
}

// MatchesConfig reports whether stored is the fingerprint of config. An
// unreadable stored value never matches.
func MatchesConfig(stored, config string) bool {
	decoded, err := DecodeSHA256String(stored)
	if err != nil {
		return false
	}

	sum := sha256.Sum256([]byte(config))

	return subtle.ConstantTimeCompare(decoded, sum[:]) == 1
}
