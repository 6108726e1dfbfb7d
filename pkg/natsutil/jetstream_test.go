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
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netsync/pkg/logger"
)

func runJetStreamServer(t *testing.T) *server.Server {
	t.Helper()

	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	}

	srv, err := server.NewServer(opts)
	require.NoError(t, err)

	go srv.Start()

	if !srv.ReadyForConnections(10 * time.Second) {
		srv.Shutdown()
		t.Fatalf("embedded NATS server not ready for connections")
	}

	require.Eventually(t, func() bool {
		return srv.JetStreamEnabled()
	}, 5*time.Second, 50*time.Millisecond, "embedded NATS server not ready for JetStream")

	t.Cleanup(srv.Shutdown)

	return srv
}

func connectJetStream(t *testing.T) (*nats.Conn, jetstream.JetStream) {
	t.Helper()

	srv := runJetStreamServer(t)

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	return nc, js
}

func nextHostname(t *testing.T, ch <-chan string) string {
	t.Helper()

	select {
	case host, ok := <-ch:
		require.True(t, ok, "progress channel closed early")
		return host
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for progress")
		return ""
	}
}

func TestEnsureProgressStreamCreatesAndExtends(t *testing.T) {
	ctx := context.Background()
	_, js := connectJetStream(t)

	require.NoError(t, EnsureProgressStream(ctx, js, ""))
	require.NoError(t, EnsureProgressStream(ctx, js, ""))

	stream, err := js.Stream(ctx, DefaultProgressStream)
	require.NoError(t, err)
	assert.Equal(t, []string{"netsync.progress.>"}, stream.CachedInfo().Config.Subjects)

	require.NoError(t, EnsureStream(ctx, js, DefaultProgressStream, "netsync.audit.>"))
	// Covered by the existing wildcard, so nothing changes.
	require.NoError(t, EnsureStream(ctx, js, DefaultProgressStream, "netsync.progress.job-1"))

	info, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"netsync.progress.>", "netsync.audit.>"}, info.Config.Subjects)
}

func TestProgressAppendAndWatch(t *testing.T) {
	ctx := context.Background()
	_, js := connectJetStream(t)

	require.NoError(t, EnsureProgressStream(ctx, js, DefaultProgressStream))

	pub := NewProgressPublisher(js, logger.NewTestLogger())
	require.NoError(t, pub.Append(ctx, "job-1", "eosdist1"))
	require.NoError(t, pub.Append(ctx, "job-2", "eosaccess"))
	require.NoError(t, pub.Append(ctx, "job-1", "eosdist2"))
	require.ErrorIs(t, pub.Append(ctx, "", "eosdist1"), ErrEmptyJobID)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	hosts, err := WatchProgress(watchCtx, js, "", "job-1")
	require.NoError(t, err)

	assert.Equal(t, "eosdist1", nextHostname(t, hosts))
	assert.Equal(t, "eosdist2", nextHostname(t, hosts))

	require.NoError(t, pub.Append(ctx, "job-1", "eoscore"))
	assert.Equal(t, "eoscore", nextHostname(t, hosts))

	stream, err := js.Stream(ctx, DefaultProgressStream)
	require.NoError(t, err)

	msg, err := stream.GetLastMsgForSubject(ctx, ProgressSubject("job-1"))
	require.NoError(t, err)
	assert.Equal(t, ProgressListName("job-1"), msg.Header.Get(ProgressListHeader))

	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-hosts:
			return !ok
		default:
			return false
		}
	}, 5*time.Second, 20*time.Millisecond)
}

type lookupRequest struct {
	Hostname string `json:"hostname"`
}

type lookupReply struct {
	Platform string `json:"platform"`
}

var errUnknownHost = errors.New("unknown host")

func lookupPlatform(_ context.Context, req *lookupRequest) (*lookupReply, error) {
	if req.Hostname != "eosaccess" {
		return nil, errUnknownHost
	}

	return &lookupReply{Platform: "eos"}, nil
}

func TestServeRequestsRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	nc, _ := connectJetStream(t)

	sub, err := ServeRequests(ctx, nc, "netsync.test.lookup", logger.NewTestLogger(), lookupPlatform)
	require.NoError(t, err)

	t.Cleanup(func() { _ = sub.Unsubscribe() })

	assert.Equal(t, requestQueueGroup, sub.Queue)

	var reply lookupReply
	require.NoError(t, Request(ctx, nc, "netsync.test.lookup", lookupRequest{Hostname: "eosaccess"}, &reply))
	assert.Equal(t, "eos", reply.Platform)

	err = Request(ctx, nc, "netsync.test.lookup", lookupRequest{Hostname: "missing"}, &reply)
	require.ErrorIs(t, err, ErrRemote)
	assert.Contains(t, err.Error(), errUnknownHost.Error())

	raw, err := nc.RequestWithContext(ctx, "netsync.test.lookup", []byte("not json"))
	require.NoError(t, err)

	var replyErr ReplyError
	require.NoError(t, json.Unmarshal(raw.Data, &replyErr))
	assert.Contains(t, replyErr.Error, "invalid request")
}

func TestServeRequestsDefaultSubject(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	nc, _ := connectJetStream(t)

	sub, err := ServeRequests(ctx, nc, "", logger.NewTestLogger(), lookupPlatform)
	require.NoError(t, err)

	t.Cleanup(func() { _ = sub.Unsubscribe() })

	assert.Equal(t, DefaultRequestSubject, sub.Subject)

	var reply lookupReply
	require.NoError(t, Request(ctx, nc, "", lookupRequest{Hostname: "eosaccess"}, &reply))
	assert.Equal(t, "eos", reply.Platform)
}

func TestRequestWithoutResponders(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	nc, _ := connectJetStream(t)

	var reply lookupReply

	err := Request(ctx, nc, "netsync.test.nobody", lookupRequest{Hostname: "eosaccess"}, &reply)
	require.ErrorIs(t, err, nats.ErrNoResponders)
	assert.NotErrorIs(t, err, ErrRemote)
}
