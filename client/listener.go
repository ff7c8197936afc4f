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

// Package client implements the client side of the relay: the UDP Listener
// Pool and Upstream Session.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/outline-dns/dnsrelay/netutil"
	"github.com/outline-dns/dnsrelay/transport"
)

// maxDatagramSize is the largest UDP datagram this pool will accept.
const maxDatagramSize = 65507

// Datagram is one inbound DNS query along with enough context to send its
// eventual response back to the exact socket and address it arrived from.
type Datagram struct {
	Payload []byte
	Source  net.Addr
	conn    net.PacketConn
}

// Reply writes payload back to the UDP source that sent this datagram, on
// the same listening socket it arrived on.
func (d Datagram) Reply(payload []byte) error {
	_, err := d.conn.WriteTo(payload, d.Source)
	return err
}

// ListenerPool binds one UDP socket per configured address and merges their
// inbound datagrams onto a single channel.
type ListenerPool struct {
	addrs     []string
	datagrams chan Datagram
	log       *slog.Logger
	mu        sync.Mutex
	liveCount int
}

// NewListenerPool creates a pool bound to addrs, which must be non-empty.
func NewListenerPool(addrs []string, log *slog.Logger) (*ListenerPool, error) {
	if len(addrs) == 0 {
		return nil, errors.New("client: at least one listen address is required")
	}
	return &ListenerPool{
		addrs:     addrs,
		datagrams: make(chan Datagram, 64),
		log:       log,
		liveCount: len(addrs),
	}, nil
}

// Datagrams returns the channel of inbound queries. Closed once every
// listener in the pool has exited.
func (p *ListenerPool) Datagrams() <-chan Datagram {
	return p.datagrams
}

// Run starts one receive loop per bind address and blocks until ctx is
// cancelled or every listener has failed permanently, whichever comes
// first. On return, the datagram channel is closed.
func (p *ListenerPool) Run(ctx context.Context) error {
	defer close(p.datagrams)

	group, gctx := errgroup.WithContext(ctx)
	for _, addr := range p.addrs {
		addr := addr
		group.Go(func() error {
			return p.runOne(gctx, addr)
		})
	}
	return group.Wait()
}

func (p *ListenerPool) runOne(ctx context.Context, addr string) error {
	listener := transport.UDPPacketListener{Address: addr}
	conn, err := listener.ListenPacket(ctx)
	if err != nil {
		return fmt.Errorf("client: failed to listen on %s: %w", addr, err)
	}
	defer conn.Close()

	if udpConn, ok := conn.(*net.UDPConn); ok {
		if err := netutil.SetUDPBuffers(udpConn); err != nil {
			p.log.Warn("failed to grow UDP socket buffers", "addr", addr, "error", err)
		}
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, maxDatagramSize)
	for {
		n, source, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				p.log.Warn("transient UDP receive error", "addr", addr, "error", err)
				continue
			}
			p.log.Error("listener socket failed permanently", "addr", addr, "error", err)
			return p.handleListenerDeath(addr)
		}
		payload := append([]byte(nil), buf[:n]...)
		select {
		case p.datagrams <- Datagram{Payload: payload, Source: source, conn: conn}:
		case <-ctx.Done():
			return nil
		}
	}
}

// handleListenerDeath removes addr from the live count; once every listener
// has died, the pool reports an error so Run's caller can initiate graceful
// service shutdown.
func (p *ListenerPool) handleListenerDeath(addr string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.liveCount--
	if p.liveCount > 0 {
		return nil
	}
	return fmt.Errorf("client: all UDP listeners have failed, last failure on %s", addr)
}
