// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package yggdrasilctl

import "time"

// Client configuration options using the functional options pattern

// Port sets the admin TCP port (default: 9001)
//
// Ignored when the host already carries a port or the network is "unix".
func Port(port int) func(*Client) {
	return func(c *Client) {
		c.Port = port
	}
}

// Network sets the transport network: "tcp" (default) or "unix".
//
// With "unix" the host is the path of the admin socket. A host given as
// "unix:///var/run/yggdrasil.sock" or "tcp://localhost:9001" selects the
// network by itself.
func Network(network string) func(*Client) {
	return func(c *Client) {
		c.Network = network
	}
}

// Persistent selects the connection policy (default: false).
//
// When enabled the client dials one connection in NewClient and reuses it
// for every call; calls on it are serialized. When disabled every call
// dials its own connection and closes it after the exchange.
//
// Example:
//
//	client, err := yggdrasilctl.NewClient("localhost",
//	    yggdrasilctl.Persistent(true))
//	if err != nil {
//	    log.Fatal(err) // daemon not reachable
//	}
//	defer client.Close()
func Persistent(enabled bool) func(*Client) {
	return func(c *Client) {
		c.Persistent = enabled
	}
}

// ConnectTimeout sets the dial timeout (default: 5s)
func ConnectTimeout(duration time.Duration) func(*Client) {
	return func(c *Client) {
		c.ConnectTimeout = duration
	}
}

// OperationTimeout bounds one request/response exchange when the caller's
// context has no earlier deadline (default: 30s)
func OperationTimeout(duration time.Duration) func(*Client) {
	return func(c *Client) {
		c.OperationTimeout = duration
	}
}

// WithDialer replaces the dialer used to open connections.
//
// The default is a *net.Dialer. Custom dialers are useful for proxies,
// tests, or counting connections.
func WithDialer(dialer Dialer) func(*Client) {
	return func(c *Client) {
		if dialer != nil {
			c.dialer = dialer
		}
	}
}

// WithLogger configures a custom logger for the client
//
// By default, the client uses NoOpLogger which discards all log messages.
// Request and response JSON is logged at Debug level with passwords and
// private keys redacted.
//
// Example:
//
//	logger := yggdrasilctl.NewDefaultLogger(yggdrasilctl.LogLevelDebug)
//	client, _ := yggdrasilctl.NewClient("localhost",
//	    yggdrasilctl.WithLogger(logger))
func WithLogger(logger Logger) func(*Client) {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPrettyPrintLogs enables/disables JSON pretty printing in debug logs
// (default: disabled)
func WithPrettyPrintLogs(enabled bool) func(*Client) {
	return func(c *Client) {
		c.prettyPrintLogs = enabled
	}
}

// withClock replaces the clock used for last_seen normalization
func withClock(now func() time.Time) func(*Client) {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}
