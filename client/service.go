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
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/outline-dns/dnsrelay/pending"
)

// Service wires together the UDP Listener Pool, the pending-query table, and
// the Upstream Session into one runnable client.
type Service struct {
	ServerURL string
	AuthToken string
	TLSConfig *tls.Config
	Listen    []string
	Log       *slog.Logger
}

// Run dials the relay server, then pumps datagrams from the listener pool to
// the session and back until ctx is cancelled or an unrecoverable error
// occurs in either half.
func (s *Service) Run(ctx context.Context) error {
	table := pending.NewTable[Datagram]()

	pool, err := NewListenerPool(s.Listen, s.Log)
	if err != nil {
		return err
	}

	session, err := DialSession(ctx, s.ServerURL, s.AuthToken, s.TLSConfig, table, s.Log)
	if err != nil {
		return err
	}
	defer session.Close()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return pool.Run(gctx)
	})
	group.Go(func() error {
		return session.Run(gctx)
	})
	group.Go(func() error {
		return s.pump(gctx, pool, session, table)
	})

	return group.Wait()
}

// pump reads datagrams from pool and, for each one, registers a pending
// entry, forwards the query over session, and spawns a goroutine that awaits
// the result and replies on the original UDP socket.
func (s *Service) pump(ctx context.Context, pool *ListenerPool, session *Session, table *pending.Table[Datagram]) error {
	for {
		select {
		case d, ok := <-pool.Datagrams():
			if !ok {
				return nil
			}
			id, resultCh := table.Register(d)
			if err := session.Forward(id, d.Payload); err != nil {
				s.Log.Warn("failed to forward query", "error", err)
				table.Complete(id, nil)
				continue
			}
			go s.awaitResult(d, resultCh)
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Service) awaitResult(d Datagram, resultCh <-chan pending.Result) {
	result := <-resultCh
	if result.Err != nil {
		s.Log.Debug("query did not complete", "error", result.Err)
		return
	}
	if err := d.Reply(result.Payload); err != nil {
		s.Log.Warn("failed to reply to UDP client", "addr", d.Source, "error", err)
	}
}
