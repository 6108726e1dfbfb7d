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
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/carverauto/netsync/pkg/logger"
)

const (
	DefaultRequestSubject = "netsync.sync.requests"
	requestQueueGroup     = "netsync"
)

// ReplyError is the body sent back when a handler fails.
type ReplyError struct {
	Error string `json:"error"`
}

// RequestHandler handles one decoded request and returns the reply body.
type RequestHandler[Req, Resp any] func(ctx context.Context, req *Req) (*Resp, error)

// ServeRequests subscribes handler to subject in the netsync queue group so
// several serve processes can share the load. Each request runs on its own
// goroutine.
func ServeRequests[Req, Resp any](
	ctx context.Context, nc *nats.Conn, subject string, log logger.Logger, handler RequestHandler[Req, Resp],
) (*nats.Subscription, error) {
	if subject == "" {
		subject = DefaultRequestSubject
	}

	return nc.QueueSubscribe(subject, requestQueueGroup, func(msg *nats.Msg) {
		go handleRequest(ctx, msg, log, handler)
	})
}

func handleRequest[Req, Resp any](ctx context.Context, msg *nats.Msg, log logger.Logger, handler RequestHandler[Req, Resp]) {
	var req Req

	if err := json.Unmarshal(msg.Data, &req); err != nil {
		respond(msg, log, ReplyError{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	resp, err := handler(ctx, &req)
	if err != nil {
		respond(msg, log, ReplyError{Error: err.Error()})
		return
	}

	respond(msg, log, resp)
}

func respond(msg *nats.Msg, log logger.Logger, body any) {
	if msg.Reply == "" {
		return
	}

	data, err := json.Marshal(body)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal reply")
		return
	}

	if err := msg.Respond(data); err != nil {
		log.Warn().Err(err).Msg("Failed to send reply")
	}
}

// Request sends req to subject and decodes the reply into resp. A reply
// carrying ReplyError is returned as an error.
func Request(ctx context.Context, nc *nats.Conn, subject string, req, resp any) error {
	if subject == "" {
		subject = DefaultRequestSubject
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	msg, err := nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("request %s: %w", subject, err)
	}

	var replyErr ReplyError
	if err := json.Unmarshal(msg.Data, &replyErr); err == nil && replyErr.Error != "" {
		return fmt.Errorf("%w: %s", ErrRemote, replyErr.Error)
	}

	if err := json.Unmarshal(msg.Data, resp); err != nil {
		return fmt.Errorf("failed to decode reply: %w", err)
	}

	return nil
}
