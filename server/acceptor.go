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

// Package server implements the server side of the relay: accepting and
// authenticating WebSocket connections, tracking one live session per
// authorized client, and forwarding framed queries to an upstream resolver.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/outline-dns/dnsrelay/protocol"
)

// authDeadline bounds how long a newly upgraded connection has to present
// its auth token before the server gives up on it.
const authDeadline = time.Second

// Authenticator decides whether a presented token is allowed to hold a
// session, and identifies the client the token belongs to.
type Authenticator interface {
	Authenticate(token string) (clientID string, ok bool)
}

// StaticTokenSet is an Authenticator backed by a fixed set of valid tokens,
// one per configured client.
type StaticTokenSet map[string]string // token -> clientID

// Authenticate implements Authenticator.
func (s StaticTokenSet) Authenticate(token string) (string, bool) {
	clientID, ok := s[token]
	return clientID, ok
}

// Acceptor upgrades inbound HTTP requests to WebSocket connections,
// authenticates them, and admits them to a Registry as live Sessions.
type Acceptor struct {
	Auth      Authenticator
	Registry  *Registry
	Forwarder *Forwarder
	Log       *slog.Logger

	upgrader websocket.Upgrader
}

// ServeHTTP implements http.Handler.
func (a *Acceptor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	conn := protocol.NewConn(ws)
	ws.SetReadDeadline(time.Now().Add(authDeadline))
	token, err := conn.ReadAuthToken()
	ws.SetReadDeadline(time.Time{})
	if err != nil {
		a.Log.Warn("failed to read auth token", "remote", r.RemoteAddr, "error", err)
		conn.CloseProtocolError("missing or malformed auth token")
		return
	}

	clientID, ok := a.Auth.Authenticate(token)
	if !ok {
		a.Log.Warn("rejected connection with invalid auth token", "remote", r.RemoteAddr)
		conn.ClosePolicyViolation("invalid auth token")
		return
	}

	session := newSession(clientID, r.RemoteAddr, conn, a.Forwarder, a.Log)
	displaced := a.Registry.Register(clientID, session)
	if displaced != nil {
		a.Log.Info("displacing existing session for client", "client", clientID)
		displaced.closeDisplaced()
	}

	a.Log.Info("session established", "client", clientID, "remote", r.RemoteAddr)
	session.run()
	a.Registry.Remove(clientID, session)
}
