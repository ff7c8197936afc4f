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

// Package config loads the YAML configuration files for the relay client
// and server binaries.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Client is the on-disk configuration for dnsrelay-client.
type Client struct {
	// Endpoints is the set of loopback UDP addresses to accept DNS queries
	// on, e.g. "127.0.0.1:53".
	Endpoints []string `yaml:"endpoints"`
	// Resolver is the wss:// URL of the relay server.
	Resolver string `yaml:"resolver"`
	// ResolverAuthToken is presented to the server as the first WebSocket
	// message.
	ResolverAuthToken string `yaml:"resolverAuthToken"`
	// InsecureSkipVerify disables TLS certificate verification. Intended for
	// local development against a self-signed server only.
	InsecureSkipVerify bool `yaml:"insecureSkipVerify"`
	// LogFile, if set, additionally writes logs to this path.
	LogFile string `yaml:"logFile"`
	// LogLevel is one of "debug", "info", "warn", "error". Defaults to "info".
	LogLevel string `yaml:"logLevel"`
}

// Server is the on-disk configuration for dnsrelay-server.
type Server struct {
	// URLs lists host:port addresses for the WebSocket endpoint. Only the
	// first entry is served; the remaining entries are not bound.
	URLs []string `yaml:"urls"`
	// Resolver is the UDP address of the upstream resolver queries are
	// forwarded to.
	Resolver string `yaml:"resolver"`
	// AuthToken lists the tokens accepted from clients; each token is its
	// own client identity.
	AuthToken []string `yaml:"authToken"`
	// LogFile, if set, additionally writes logs to this path.
	LogFile string `yaml:"logFile"`
	// LogLevel is one of "debug", "info", "warn", "error". Defaults to "info".
	LogLevel string `yaml:"logLevel"`
}

// LoadClient reads and validates a client configuration file.
func LoadClient(path string) (*Client, error) {
	var c Client
	if err := decodeFile(path, &c); err != nil {
		return nil, err
	}
	if len(c.Endpoints) == 0 {
		return nil, fmt.Errorf("config: %s: at least one endpoint is required", path)
	}
	if c.Resolver == "" {
		return nil, fmt.Errorf("config: %s: resolver is required", path)
	}
	if !strings.HasPrefix(c.Resolver, "ws://") && !strings.HasPrefix(c.Resolver, "wss://") {
		return nil, fmt.Errorf("config: %s: resolver must be a ws:// or wss:// URL", path)
	}
	if c.ResolverAuthToken == "" {
		return nil, fmt.Errorf("config: %s: resolverAuthToken is required", path)
	}
	return &c, nil
}

// LoadServer reads and validates a server configuration file.
func LoadServer(path string) (*Server, error) {
	var s Server
	if err := decodeFile(path, &s); err != nil {
		return nil, err
	}
	if len(s.URLs) == 0 {
		return nil, fmt.Errorf("config: %s: at least one url is required", path)
	}
	if s.Resolver == "" {
		return nil, fmt.Errorf("config: %s: resolver is required", path)
	}
	if len(s.AuthToken) == 0 {
		return nil, fmt.Errorf("config: %s: at least one authToken is required", path)
	}
	return &s, nil
}

func decodeFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: failed to open %s: %w", path, err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return nil
}
