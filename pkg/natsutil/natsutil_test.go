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
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netsync/pkg/logger"
	"github.com/carverauto/netsync/pkg/models"
)

var errTestFixture = errors.New("fixture error")

func TestEnsureSubjectList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		subjects []string
		subject  string
		want     []string
	}{
		{
			name:    "adds subject when list empty",
			subject: "netsync.progress.>",
			want:    []string{"netsync.progress.>"},
		},
		{
			name:     "keeps list when greater wildcard matches",
			subjects: []string{"netsync.>"},
			subject:  "netsync.progress.>",
			want:     []string{"netsync.>"},
		},
		{
			name:     "appends when unmatched",
			subjects: []string{"events.syslog.*"},
			subject:  "netsync.progress.>",
			want:     []string{"events.syslog.*", "netsync.progress.>"},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			result := ensureSubjectList(append([]string(nil), tc.subjects...), tc.subject)

			if len(result) != len(tc.want) {
				t.Fatalf("expected %d subjects, got %d", len(tc.want), len(result))
			}

			for i := range tc.want {
				if tc.want[i] != result[i] {
					t.Fatalf("result[%d] = %q, want %q", i, result[i], tc.want[i])
				}
			}
		})
	}
}

func TestMatchesSubject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pattern  string
		subject  string
		expected bool
	}{
		{"exact match", "netsync.progress.job1", "netsync.progress.job1", true},
		{"single wildcard", "netsync.*.job1", "netsync.progress.job1", true},
		{"greater wildcard", "netsync.>", "netsync.progress.job1", true},
		{"greater wildcard needs a token", "netsync.progress.>", "netsync.progress", false},
		{"no match length", "netsync.*", "netsync.progress.job1", false},
		{"no match tokens", "events.syslog.*", "netsync.progress.job1", false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := matchesSubject(tc.pattern, tc.subject); got != tc.expected {
				t.Fatalf("matchesSubject(%q, %q) = %t, want %t", tc.pattern, tc.subject, got, tc.expected)
			}
		})
	}
}

func TestIsStreamMissingErr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"jetstream no stream response", jetstream.ErrNoStreamResponse, true},
		{"jetstream stream not found", jetstream.ErrStreamNotFound, true},
		{"nats no stream response", nats.ErrNoStreamResponse, true},
		{"nats stream not found", nats.ErrStreamNotFound, true},
		{"nats no responders", nats.ErrNoResponders, true},
		{"other error", errTestFixture, false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := isStreamMissingErr(tc.err); got != tc.expected {
				t.Fatalf("isStreamMissingErr(%v) = %t, want %t", tc.err, got, tc.expected)
			}
		})
	}
}

type fakePublisher struct {
	msgs []*nats.Msg
	err  error
}

func (f *fakePublisher) PublishMsg(_ context.Context, msg *nats.Msg, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}

	f.msgs = append(f.msgs, msg)

	return &jetstream.PubAck{Stream: DefaultProgressStream, Sequence: uint64(len(f.msgs))}, nil
}

func TestProgressPublisherAppend(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProgressPublisher(pub, logger.NewTestLogger())

	require.NoError(t, p.Append(context.Background(), "job-1", "eosaccess"))
	require.NoError(t, p.Append(context.Background(), "job-1", "eosdist1"))

	require.Len(t, pub.msgs, 2)
	assert.Equal(t, "netsync.progress.job-1", pub.msgs[0].Subject)
	assert.Equal(t, "eosaccess", string(pub.msgs[0].Data))
	assert.Equal(t, "finished_devices_job-1", pub.msgs[1].Header.Get(ProgressListHeader))
}

func TestProgressPublisherErrors(t *testing.T) {
	p := NewProgressPublisher(&fakePublisher{err: errTestFixture}, logger.NewTestLogger())

	require.ErrorIs(t, p.Append(context.Background(), "", "x"), ErrEmptyJobID)
	require.ErrorIs(t, p.Append(context.Background(), "job", "x"), errTestFixture)
}

func TestTLSConfigValidation(t *testing.T) {
	_, err := TLSConfig(nil)
	require.ErrorIs(t, err, ErrCARequired)

	_, err = TLSConfig(&models.SecurityConfig{TLS: models.TLSConfig{CertFile: "c.pem"}})
	require.ErrorIs(t, err, ErrCARequired)

	_, err = TLSConfig(&models.SecurityConfig{TLS: models.TLSConfig{CAFile: "ca.pem", CertFile: "c.pem"}})
	require.ErrorIs(t, err, ErrClientCertIncomplete)

	ca := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(ca, []byte("not a certificate"), 0o600))

	_, err = TLSConfig(&models.SecurityConfig{TLS: models.TLSConfig{CAFile: ca}})
	require.ErrorIs(t, err, ErrCAParsingFailed)
}
