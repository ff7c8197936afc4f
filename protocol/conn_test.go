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

package protocol

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// newConnPair spins up a real loopback WebSocket connection and returns both
// ends wrapped in Conn, testing against a genuine gorilla/websocket dialer
// and upgrader rather than mocking the library.
func newConnPair(t *testing.T) (client *Conn, server *Conn, cleanup func()) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	serverConnCh := make(chan *websocket.Conn, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wsConn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverConnCh <- wsConn
	}))

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	clientWS, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	serverWS := <-serverConnCh

	return NewConn(clientWS), NewConn(serverWS), func() {
		clientWS.Close()
		serverWS.Close()
		ts.Close()
	}
}

func TestConnAuthTokenRoundTrip(t *testing.T) {
	client, server, cleanup := newConnPair(t)
	defer cleanup()

	require.NoError(t, client.WriteAuthToken("s3cr3t"))
	token, err := server.ReadAuthToken()
	require.NoError(t, err)
	require.Equal(t, "s3cr3t", token)
}

func TestConnFrameRoundTrip(t *testing.T) {
	client, server, cleanup := newConnPair(t)
	defer cleanup()

	require.NoError(t, client.WriteFrame(42, []byte("query bytes")))
	id, payload, err := server.ReadFrame()
	require.NoError(t, err)
	require.Equal(t, uint32(42), id)
	require.Equal(t, []byte("query bytes"), payload)
}

func TestConnConcurrentWritesDoNotInterleave(t *testing.T) {
	client, server, cleanup := newConnPair(t)
	defer cleanup()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id uint32) {
			defer wg.Done()
			require.NoError(t, client.WriteFrame(id, []byte("payload")))
		}(uint32(i))
	}
	wg.Wait()

	seen := make(map[uint32]bool)
	for i := 0; i < n; i++ {
		id, payload, err := server.ReadFrame()
		require.NoError(t, err)
		require.Equal(t, []byte("payload"), payload)
		seen[id] = true
	}
	require.Len(t, seen, n)
}

func TestConnReadFrameRejectsTextMessage(t *testing.T) {
	client, server, cleanup := newConnPair(t)
	defer cleanup()

	require.NoError(t, client.WriteAuthToken("oops, text after auth"))
	_, _, err := server.ReadFrame()
	require.ErrorIs(t, err, ErrNotBinary)
}
