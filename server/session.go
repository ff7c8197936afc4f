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
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/outline-dns/dnsrelay/protocol"
)

// Session is one authenticated client's live WebSocket connection. It reads
// framed queries and spawns one forwarding task per frame so that a slow
// upstream resolution never blocks the next query on the same connection.
type Session struct {
	ClientID   string
	RemoteAddr string

	conn      *protocol.Conn
	forwarder *Forwarder
	log       *slog.Logger
}

func newSession(clientID, remoteAddr string, conn *protocol.Conn, forwarder *Forwarder, log *slog.Logger) *Session {
	return &Session{
		ClientID:   clientID,
		RemoteAddr: remoteAddr,
		conn:       conn,
		forwarder:  forwarder,
		log:        log,
	}
}

// run reads frames until the connection ends, forwarding each to the
// upstream resolver concurrently, and blocks until every in-flight
// forwarding task has finished.
func (s *Session) run() {
	var group errgroup.Group
	for {
		id, payload, err := s.conn.ReadFrame()
		if err != nil {
			break
		}
		id, payload := id, payload
		group.Go(func() error {
			s.forwarder.Handle(s.conn, id, payload)
			return nil
		})
	}
	group.Wait()
}

// closeDisplaced tears down a session that lost its slot in the Registry to
// a newer connection from the same client.
func (s *Session) closeDisplaced() {
	s.conn.CloseNormal()
}
