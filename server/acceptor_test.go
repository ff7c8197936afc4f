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

package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newAcceptorServer(t *testing.T, registry *Registry, tokens StaticTokenSet) *httptest.Server {
	t.Helper()
	acceptor := &Acceptor{
		Auth:      tokens,
		Registry:  registry,
		Forwarder: &Forwarder{UpstreamAddr: "127.0.0.1:1", Log: discardLogger()},
		Log:       discardLogger(),
	}
	return httptest.NewServer(acceptor)
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestAcceptorAdmitsValidToken(t *testing.T) {
	registry := NewRegistry()
	srv := newAcceptorServer(t, registry, StaticTokenSet{"good-token": "alice"})
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv.URL), nil)
	require.NoError(t, err)
	defer ws.Close()
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("good-token")))

	require.Eventually(t, func() bool {
		_, ok := registry.Get("alice")
		return ok
	}, time.Second, 5*time.Millisecond)
}

func TestAcceptorRejectsInvalidToken(t *testing.T) {
	registry := NewRegistry()
	srv := newAcceptorServer(t, registry, StaticTokenSet{"good-token": "alice"})
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv.URL), nil)
	require.NoError(t, err)
	defer ws.Close()
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("bad-token")))

	_, _, err = ws.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok, "expected a close error, got %v", err)
	require.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)

	require.Equal(t, 0, registry.Len())
}

func TestAcceptorRejectsNonTextAuthFrame(t *testing.T) {
	registry := NewRegistry()
	srv := newAcceptorServer(t, registry, StaticTokenSet{"good-token": "alice"})
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv.URL), nil)
	require.NoError(t, err)
	defer ws.Close()
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, []byte{0, 0, 0, 0}))

	_, _, err = ws.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok, "expected a close error, got %v", err)
	require.Equal(t, websocket.CloseProtocolError, closeErr.Code)
}

func TestAcceptorDisplacesPriorSessionForSameClient(t *testing.T) {
	registry := NewRegistry()
	tokens := StaticTokenSet{"alice-token": "alice"}
	srv := newAcceptorServer(t, registry, tokens)
	defer srv.Close()

	first, _, err := websocket.DefaultDialer.Dial(wsURL(srv.URL), nil)
	require.NoError(t, err)
	defer first.Close()
	require.NoError(t, first.WriteMessage(websocket.TextMessage, []byte("alice-token")))

	require.Eventually(t, func() bool {
		_, ok := registry.Get("alice")
		return ok
	}, time.Second, 5*time.Millisecond)

	second, _, err := websocket.DefaultDialer.Dial(wsURL(srv.URL), nil)
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.WriteMessage(websocket.TextMessage, []byte("alice-token")))

	// The first connection must be closed once displaced.
	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = first.ReadMessage()
	require.Error(t, err)

	require.Eventually(t, func() bool {
		s, ok := registry.Get("alice")
		return ok && s != nil
	}, time.Second, 5*time.Millisecond)
}
