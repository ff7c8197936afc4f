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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// Service wires the WebSocket Acceptor, the session Registry, and the
// upstream Forwarder into one runnable HTTP server.
type Service struct {
	ListenAddr   string
	UpstreamAddr string
	Tokens       StaticTokenSet
	Log          *slog.Logger

	httpServer *http.Server
}

// Run starts the HTTP listener and blocks until ctx is cancelled or the
// server fails. On cancellation it shuts the HTTP server down gracefully.
func (s *Service) Run(ctx context.Context) error {
	registry := NewRegistry()
	forwarder := &Forwarder{UpstreamAddr: s.UpstreamAddr, Log: s.Log}
	acceptor := &Acceptor{Auth: s.Tokens, Registry: registry, Forwarder: forwarder, Log: s.Log}

	mux := http.NewServeMux()
	mux.Handle("/", acceptor)

	s.httpServer = &http.Server{
		Addr:    s.ListenAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), exchangeDeadline)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listener failed: %w", err)
	}
}
