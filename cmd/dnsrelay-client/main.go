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
	"crypto/tls"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/outline-dns/dnsrelay/client"
	"github.com/outline-dns/dnsrelay/config"
	"github.com/outline-dns/dnsrelay/dns"
	"github.com/outline-dns/dnsrelay/logging"
)

func main() {
	configFlag := flag.String("config", "client.yaml", "Path to the client configuration file")
	testFlag := flag.Bool("test", false, "Send one self-test query against the first listen address and exit")
	flag.Parse()

	cfg, err := config.LoadClient(*configFlag)
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

	var tlsConfig *tls.Config
	if cfg.InsecureSkipVerify {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	service := &client.Service{
		ServerURL: cfg.Resolver,
		AuthToken: cfg.ResolverAuthToken,
		TLSConfig: tlsConfig,
		Listen:    cfg.Endpoints,
		Log:       log,
	}

	if *testFlag {
		runSelfTest(log, service, cfg.Endpoints[0])
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting dnsrelay-client", "resolver", cfg.Resolver, "endpoints", cfg.Endpoints)
	if err := service.Run(ctx); err != nil {
		log.Error("client exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("client shut down cleanly")
}

// runSelfTest brings the client service up in the background, drives one
// query through its own UDP listener to confirm the full relay path works,
// then tears the service back down.
func runSelfTest(log *slog.Logger, service *client.Service, listenAddr string) {
	ctx, cancel := context.WithCancel(context.Background())

	serviceDone := make(chan error, 1)
	go func() { serviceDone <- service.Run(ctx) }()

	// Give the listener pool a moment to bind before querying it.
	time.Sleep(100 * time.Millisecond)

	testCtx, testCancel := context.WithTimeout(context.Background(), 5*time.Second)
	answers, err := dns.SelfTest(testCtx, listenAddr)
	testCancel()

	cancel()
	<-serviceDone

	if err != nil {
		log.Error("self-test failed", "listen", listenAddr, "error", err)
		os.Exit(1)
	}
	log.Info("self-test succeeded", "listen", listenAddr, "answers", answers)
}
