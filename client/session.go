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
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/outline-dns/dnsrelay/pending"
	"github.com/outline-dns/dnsrelay/protocol"
)

// Session owns the single WebSocket connection to the relay server: it
// authenticates once at dial time, then serializes outbound query frames and
// drives a read loop that completes pending entries as responses arrive.
type Session struct {
	conn  *protocol.Conn
	table *pending.Table[Datagram]
	log   *slog.Logger
}

// DialSession connects to serverURL, presents authToken as the mandatory
// first-frame TEXT message, and returns a Session ready to exchange queries.
func DialSession(ctx context.Context, serverURL, authToken string, tlsConfig *tls.Config, table *pending.Table[Datagram], log *slog.Logger) (*Session, error) {
	dialer := websocket.Dialer{TLSClientConfig: tlsConfig}
	headers := http.Header{"User-Agent": {"dnsrelay-client"}}

	ws, _, err := dialer.DialContext(ctx, serverURL, headers)
	if err != nil {
		return nil, fmt.Errorf("client: failed to dial %s: %w", serverURL, err)
	}

	conn := protocol.NewConn(ws)
	if err := conn.WriteAuthToken(authToken); err != nil {
		conn.CloseProtocolError("failed to send auth token")
		return nil, fmt.Errorf("client: failed to send auth token: %w", err)
	}

	return &Session{conn: conn, table: table, log: log}, nil
}

// Forward sends payload as a query frame under id. It does not touch the
// pending table: the caller registers the query beforehand to obtain id and
// is responsible for awaiting the result channel that Register returned.
func (s *Session) Forward(id uint32, payload []byte) error {
	if err := s.conn.WriteFrame(id, payload); err != nil {
		return fmt.Errorf("client: failed to forward query: %w", err)
	}
	return nil
}

// Run drives the read loop until the connection fails or ctx is cancelled.
// Every decoded frame completes its matching pending entry; unknown or
// late-arriving ids are silently dropped by the table. On return, every
// still-outstanding entry is cancelled.
func (s *Session) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.conn.CloseNormal()
	}()

	defer s.table.CancelAll()

	for {
		id, payload, err := s.conn.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("client: session read loop ended: %w", err)
		}
		s.table.Complete(id, payload)
	}
}

// Close closes the underlying connection with a normal closure status.
func (s *Session) Close() error {
	return s.conn.CloseNormal()
}
