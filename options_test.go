// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package yggdrasilctl

import (
	"testing"
	"time"
)

// TestOptions tests that each option sets its field
func TestOptions(t *testing.T) {
	tests := []struct {
		name  string
		opt   func(*Client)
		check func(*Client) bool
	}{
		{
			name:  "Port",
			opt:   Port(12345),
			check: func(c *Client) bool { return c.Port == 12345 },
		},
		{
			name:  "Network",
			opt:   Network(NetworkUnix),
			check: func(c *Client) bool { return c.Network == NetworkUnix },
		},
		{
			name:  "Persistent",
			opt:   Persistent(true),
			check: func(c *Client) bool { return c.Persistent },
		},
		{
			name:  "ConnectTimeout",
			opt:   ConnectTimeout(3 * time.Second),
			check: func(c *Client) bool { return c.ConnectTimeout == 3*time.Second },
		},
		{
			name:  "OperationTimeout",
			opt:   OperationTimeout(7 * time.Second),
			check: func(c *Client) bool { return c.OperationTimeout == 7*time.Second },
		},
		{
			name:  "WithLogger",
			opt:   WithLogger(NewDefaultLogger(LogLevelError)),
			check: func(c *Client) bool { _, ok := c.logger.(*DefaultLogger); return ok },
		},
		{
			name:  "WithLogger nil keeps default",
			opt:   WithLogger(nil),
			check: func(c *Client) bool { _, ok := c.logger.(NoOpLogger); return ok },
		},
		{
			name:  "WithDialer",
			opt:   WithDialer(&countingDialer{}),
			check: func(c *Client) bool { _, ok := c.dialer.(*countingDialer); return ok },
		},
		{
			name:  "WithDialer nil keeps default",
			opt:   WithDialer(nil),
			check: func(c *Client) bool { return c.dialer != nil },
		},
		{
			name:  "WithPrettyPrintLogs",
			opt:   WithPrettyPrintLogs(true),
			check: func(c *Client) bool { return c.prettyPrintLogs },
		},
		{
			name:  "withClock",
			opt:   withClock(func() time.Time { return testNow }),
			check: func(c *Client) bool { return c.now().Equal(testNow) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := "localhost"
			if tt.name == "Network" {
				host = "/var/run/yggdrasil.sock"
			}
			client, err := NewClient(host, tt.opt)
			if err != nil {
				t.Fatalf("NewClient() error: %v", err)
			}
			defer client.Close()

			if !tt.check(client) {
				t.Errorf("%s option not applied", tt.name)
			}
		})
	}
}

// TestOptionsOrder tests that later options win
func TestOptionsOrder(t *testing.T) {
	client, err := NewClient("localhost", Port(1000), Port(2000))
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	defer client.Close()

	if client.Port != 2000 {
		t.Errorf("Port = %d, want 2000", client.Port)
	}
}

// TestValidateNetwork tests the supported networks
func TestValidateNetwork(t *testing.T) {
	for _, network := range ValidNetworks {
		if err := ValidateNetwork(network); err != nil {
			t.Errorf("ValidateNetwork(%q) error: %v", network, err)
		}
	}
	for _, network := range []string{"", "udp", "TCP", "http"} {
		if err := ValidateNetwork(network); err == nil {
			t.Errorf("ValidateNetwork(%q) = nil, want error", network)
		}
	}
}
