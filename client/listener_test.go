// Copyright 2025 The Outline Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package client

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestListenerPoolReceivesAndReplies(t *testing.T) {
	addr := "127.0.0.1:17053"
	pool, err := NewListenerPool([]string{addr}, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go pool.Run(ctx)

	// Give the listener goroutine a moment to bind.
	time.Sleep(20 * time.Millisecond)

	client, err := net.Dial("udp", addr)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write([]byte("query-payload"))
	require.NoError(t, err)

	var d Datagram
	select {
	case d = <-pool.Datagrams():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for datagram")
	}
	require.Equal(t, []byte("query-payload"), d.Payload)
	require.NotNil(t, d.Source)

	require.NoError(t, d.Reply([]byte("response-payload")))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))
	buf := make([]byte, 1024)
	n, err := client.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte("response-payload"), buf[:n])
}

func TestListenerPoolRejectsEmptyAddresses(t *testing.T) {
	_, err := NewListenerPool(nil, discardLogger())
	require.Error(t, err)
}

func TestListenerPoolClosesDatagramChannelOnShutdown(t *testing.T) {
	pool, err := NewListenerPool([]string{"127.0.0.1:0"}, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx) }()

	cancel()
	require.NoError(t, <-done)

	_, ok := <-pool.Datagrams()
	require.False(t, ok, "datagrams channel should be closed after Run returns")
}
