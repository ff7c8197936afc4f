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

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/outline-dns/dnsrelay/config"
	"github.com/outline-dns/dnsrelay/logging"
	"github.com/outline-dns/dnsrelay/server"
)

func main() {
	configFlag := flag.String("config", "server.yaml", "Path to the server configuration file")
	flag.Parse()

	cfg, err := config.LoadServer(*configFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens := make(server.StaticTokenSet, len(cfg.AuthToken))
	for _, token := range cfg.AuthToken {
		tokens[token] = token
	}

	service := &server.Service{
		ListenAddr:   cfg.URLs[0],
		UpstreamAddr: cfg.Resolver,
		Tokens:       tokens,
		Log:          log,
	}

	log.Info("starting dnsrelay-server", "listen", cfg.URLs[0], "resolver", cfg.Resolver, "clients", len(cfg.AuthToken))
	if err := service.Run(ctx); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server shut down cleanly")
}
