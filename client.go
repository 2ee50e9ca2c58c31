// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package yggdrasilctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Default client configuration values
const (
	DefaultHost             = "localhost"
	DefaultPort             = 9001
	DefaultNetwork          = NetworkTCP
	DefaultConnectTimeout   = 5 * time.Second
	DefaultOperationTimeout = 30 * time.Second
	DefaultPersistent       = false
	DefaultPrettyPrintLogs  = false
)

// Limits for JSON logging
const (
	MaxJSONSizeForLogging = 1 * 1024 * 1024 // 1MB
	JSONTooLargeMessage   = "[JSON TOO LARGE FOR LOGGING]"
)

// defaultRedactions hide secrets that may appear in admin requests, such
// as peer URIs carrying a password.
var defaultRedactions = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`"password"\s*:\s*"[^"]*"`), `"password":"[REDACTED]"`},
	{regexp.MustCompile(`"private_key"\s*:\s*"[^"]*"`), `"private_key":"[REDACTED]"`},
	{regexp.MustCompile(`password=[^&"\s]*`), `password=[REDACTED]`},
	{regexp.MustCompile(`://[^/@"\s]+:[^/@"\s]+@`), `://[REDACTED]@`},
}

// Client talks to the admin API of one Yggdrasil node
type Client struct {
	// Endpoint
	Host    string
	Port    int
	Network string

	// Connection policy and timeouts
	Persistent       bool
	ConnectTimeout   time.Duration
	OperationTimeout time.Duration

	dialer    Dialer
	transport *transport

	stats *statsAggregate
	hooks *hookRegistry
	now   func() time.Time

	logger          Logger
	prettyPrintLogs bool
}

// NewClient creates an admin API client for host with the given options.
//
// host is a hostname or IP address, optionally with a port ("localhost",
// "[::1]:9001"), or a URL as written in yggdrasil's AdminListen setting
// ("tcp://localhost:9001", "unix:///var/run/yggdrasil.sock").
//
// In ephemeral mode (default) no connection is made here; each call dials
// its own. With Persistent(true) the connection is dialed before NewClient
// returns and a failure is reported as *UnreachableError.
//
// Example:
//
//	client, err := yggdrasilctl.NewClient("localhost",
//	    yggdrasilctl.Port(9001),
//	    yggdrasilctl.OperationTimeout(10*time.Second),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	self, err := client.GetSelf(ctx)
func NewClient(host string, opts ...func(*Client)) (*Client, error) {
	client := &Client{
		Host:             host,
		Port:             DefaultPort,
		Network:          DefaultNetwork,
		Persistent:       DefaultPersistent,
		ConnectTimeout:   DefaultConnectTimeout,
		OperationTimeout: DefaultOperationTimeout,
		dialer:           &net.Dialer{},
		stats:            newStatsAggregate(),
		hooks:            newHookRegistry(trackedOperations()),
		now:              time.Now,
		logger:           NoOpLogger{},
		prettyPrintLogs:  DefaultPrettyPrintLogs,
	}

	for _, opt := range opts {
		opt(client)
	}

	if err := client.parseHost(); err != nil {
		return nil, err
	}
	if err := client.validateConfig(); err != nil {
		return nil, err
	}

	client.transport = &transport{
		network:        client.Network,
		address:        client.Address(),
		dialer:         client.dialer,
		persistent:     client.Persistent,
		connectTimeout: client.ConnectTimeout,
	}

	if client.Persistent {
		ctx := context.Background()
		if err := client.transport.open(ctx); err != nil {
			client.logger.Error(ctx, "persistent admin connection failed",
				"endpoint", client.Address(),
				"error", err.Error())
			return nil, &UnreachableError{Operation: "connect", Endpoint: client.Address(), Err: err}
		}
	}

	client.logger.Info(context.Background(), "admin client created",
		"network", client.Network,
		"endpoint", client.Address(),
		"persistent", client.Persistent)

	return client, nil
}

// Address returns the dial address: host:port for tcp, the socket path for unix
func (c *Client) Address() string {
	if c.Network == NetworkUnix {
		return c.Host
	}
	if _, _, err := net.SplitHostPort(c.Host); err == nil {
		return c.Host
	}
	return net.JoinHostPort(strings.Trim(c.Host, "[]"), strconv.Itoa(c.Port))
}

// Close releases the persistent connection, if any.
//
// Close is terminal for persistent clients: later calls fail with
// *UnreachableError. It is a no-op for ephemeral clients and safe to call
// more than once.
func (c *Client) Close() error {
	if c.transport == nil {
		return nil
	}
	if err := c.transport.close(); err != nil {
		return fmt.Errorf("close admin connection: %w", err)
	}
	if c.Persistent {
		c.logger.Info(context.Background(), "admin connection closed",
			"endpoint", c.Address())
	}
	return nil
}

// Stats returns a copy of the last known stats.
//
// Every successful tracked operation (see TrackedOperation) merges the
// top-level keys of its response body into the aggregate; a key keeps the
// value of the latest response that carried it.
//
// Example:
//
//	_, _ = client.GetPeers(ctx)
//	peers := client.Stats()["peers"]
func (c *Client) Stats() map[string]any {
	return c.stats.snapshot()
}

// parseHost splits a "scheme://rest" host into network and host
func (c *Client) parseHost() error {
	scheme, rest, ok := strings.Cut(c.Host, "://")
	if !ok {
		return nil
	}
	if err := ValidateNetwork(scheme); err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", c.Host, err)
	}
	c.Network = scheme
	c.Host = rest
	return nil
}

// validateConfig validates client configuration before any connection
//
// Validates:
//   - Host is not empty
//   - Network is tcp or unix
//   - Port range (1-65535) for tcp
//   - Positive timeouts
func (c *Client) validateConfig() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("host cannot be empty")
	}

	if err := ValidateNetwork(c.Network); err != nil {
		return err
	}
	if c.Network == NetworkTCP && (c.Port < 1 || c.Port > 65535) {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Port)
	}

	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive, got: %v", c.ConnectTimeout)
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("operation timeout must be positive, got: %v", c.OperationTimeout)
	}

	if c.Network == NetworkTCP {
		if host, _, err := net.SplitHostPort(c.Address()); err == nil {
			if ip := net.ParseIP(host); ip != nil && !ip.IsLoopback() {
				c.logger.Warn(context.Background(), "admin endpoint is not a loopback address",
					"endpoint", c.Address(),
					"security_risk", "admin API has no authentication")
			}
		}
	}

	return nil
}

// prepareJSONForLogging redacts secrets and optionally pretty-prints JSON
// before it is logged. Oversized input is replaced by JSONTooLargeMessage.
func (c *Client) prepareJSONForLogging(jsonStr string) string {
	if len(jsonStr) > MaxJSONSizeForLogging {
		return JSONTooLargeMessage
	}

	redacted := redactSensitiveData(jsonStr)

	if c.prettyPrintLogs {
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(redacted), "", "  "); err == nil {
			return buf.String()
		}
	}
	return redacted
}

// redactSensitiveData replaces passwords and private keys with [REDACTED]
func redactSensitiveData(s string) string {
	for _, r := range defaultRedactions {
		s = r.pattern.ReplaceAllString(s, r.replacement)
	}
	return s
}
