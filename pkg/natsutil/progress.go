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
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/netsync/pkg/logger"
)

const (
	DefaultProgressStream = "NETSYNC_PROGRESS"
	progressSubjectPrefix = "netsync.progress"
	// ProgressListHeader names the per-job list a message belongs to.
	ProgressListHeader = "Netsync-Progress-List"
)

var (
	ErrEmptyJobID = errors.New("job id is required")
	ErrRemote     = errors.New("remote request failed")
)

// ProgressSubject is the subject the finished devices of jobID are
// appended to.
func ProgressSubject(jobID string) string {
	return progressSubjectPrefix + "." + jobID
}

// ProgressListName is the name live viewers know the list by.
func ProgressListName(jobID string) string {
	return "finished_devices_" + jobID
}

type publisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// ProgressPublisher appends finished hostnames to a per-job JetStream
// subject.
type ProgressPublisher struct {
	js     publisher
	logger logger.Logger
}

func NewProgressPublisher(js publisher, log logger.Logger) *ProgressPublisher {
	return &ProgressPublisher{js: js, logger: log}
}

// EnsureProgressStream creates or extends the stream that stores progress
// for every job.
func EnsureProgressStream(ctx context.Context, js jetstream.JetStream, name string) error {
	if name == "" {
		name = DefaultProgressStream
	}

	return EnsureStream(ctx, js, name, progressSubjectPrefix+".>")
}

// Append records that hostname finished within jobID.
func (p *ProgressPublisher) Append(ctx context.Context, jobID, hostname string) error {
	if jobID == "" {
		return ErrEmptyJobID
	}

	msg := nats.NewMsg(ProgressSubject(jobID))
	msg.Data = []byte(hostname)
	msg.Header.Set(ProgressListHeader, ProgressListName(jobID))

	ack, err := p.js.PublishMsg(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to publish progress for %s: %w", hostname, err)
	}

	p.logger.Debug().
		Str("job_id", jobID).
		Str("hostname", hostname).
		Uint64("seq", ack.Sequence).
		Msg("Published device progress")

	return nil
}

// WatchProgress streams the hostnames appended for jobID, starting with
// the ones already recorded, until ctx is done.
func WatchProgress(ctx context.Context, js jetstream.JetStream, stream, jobID string) (<-chan string, error) {
	if stream == "" {
		stream = DefaultProgressStream
	}

	cons, err := js.OrderedConsumer(ctx, stream, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{ProgressSubject(jobID)},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create progress consumer: %w", err)
	}

	iter, err := cons.Messages()
	if err != nil {
		return nil, fmt.Errorf("failed to consume progress: %w", err)
	}

	out := make(chan string)

	go func() {
		<-ctx.Done()
		iter.Stop()
	}()

	go func() {
		defer close(out)

		for {
			msg, err := iter.Next()
			if err != nil {
				return
			}

			select {
			case out <- string(msg.Data()):
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
