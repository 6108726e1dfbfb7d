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


package natsutil

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"github.com/carverauto/netsync/pkg/config"
	"github.com/carverauto/netsync/pkg/models"
)

var (
	ErrCARequired           = errors.New("nats tls requires ca_file")
	ErrClientCertIncomplete = errors.New("nats client certificate requires both cert_file and key_file")
	ErrCAParsingFailed      = errors.New("failed to parse CA certificate")
)

// TLSConfig builds the client TLS configuration for NATS. The server is
// always verified against ca_file; a client certificate is presented when
// cert_file and key_file are both set.
func TLSConfig(sec *models.SecurityConfig) (*tls.Config, error) {
	if sec == nil || sec.TLS.CAFile == "" {
		return nil, ErrCARequired
	}

	if (sec.TLS.CertFile == "") != (sec.TLS.KeyFile == "") {
		return nil, ErrClientCertIncomplete
	}

	config.NormalizeTLSPaths(&sec.TLS, sec.CertDir)

	pem, err := os.ReadFile(sec.TLS.CAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("%w: %s", ErrCAParsingFailed, sec.TLS.CAFile)
	}

	conf := &tls.Config{
		RootCAs:    roots,
		ServerName: sec.ServerName,
		MinVersion: tls.VersionTLS13,
	}

	if sec.TLS.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(sec.TLS.CertFile, sec.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}

		conf.Certificates = []tls.Certificate{cert}
	}

	return conf, nil
}
