// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package yggdrasilctl

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mockAdmin is an in-process admin endpoint. Every accepted connection is
// served in a loop: decode one request, write the handler's answer. An
// empty answer closes the connection without responding.
type mockAdmin struct {
	ln      net.Listener
	handler func(req map[string]any) string

	mu       sync.Mutex
	requests []map[string]any
	accepted int
}

// startMockAdmin listens on a free loopback port until the test ends
func startMockAdmin(t *testing.T, handler func(req map[string]any) string) *mockAdmin {
	t.Helper()
	return startMockAdminOn(t, "tcp", "127.0.0.1:0", handler)
}

// startMockAdminOn listens on network and address until the test ends
func startMockAdminOn(t *testing.T, network, address string, handler func(req map[string]any) string) *mockAdmin {
	t.Helper()

	ln, err := net.Listen(network, address)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	m := &mockAdmin{ln: ln, handler: handler}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			m.mu.Lock()
			m.accepted++
			m.mu.Unlock()
			go m.serve(conn)
		}
	}()
	return m
}

func (m *mockAdmin) serve(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	dec := json.NewDecoder(conn)
	for {
		var req map[string]any
		if err := dec.Decode(&req); err != nil {
			return
		}
		m.mu.Lock()
		m.requests = append(m.requests, req)
		m.mu.Unlock()

		resp := m.handler(req)
		if resp == "" {
			return
		}
		if _, err := conn.Write([]byte(resp)); err != nil {
			return
		}
	}
}

func (m *mockAdmin) port() int {
	return m.ln.Addr().(*net.TCPAddr).Port
}

func (m *mockAdmin) lastRequest() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

func (m *mockAdmin) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *mockAdmin) acceptedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accepted
}

// newTestClient creates a client for m with a fixed clock
func (m *mockAdmin) newTestClient(t *testing.T, opts ...func(*Client)) *Client {
	t.Helper()
	return newPortClient(t, m.port(), opts...)
}

// newPortClient creates a loopback client for port with a fixed clock and
// short timeouts
func newPortClient(t *testing.T, port int, opts ...func(*Client)) *Client {
	t.Helper()

	all := append([]func(*Client){
		Port(port),
		ConnectTimeout(2 * time.Second),
		OperationTimeout(2 * time.Second),
		withClock(func() time.Time { return testNow }),
	}, opts...)

	client, err := NewClient("127.0.0.1", all...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// testNow is the fixed clock of test clients
var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// byOperation answers with responses[req.request], or an error envelope
func byOperation(responses map[string]string) func(map[string]any) string {
	return func(req map[string]any) string {
		op, _ := req["request"].(string)
		if resp, ok := responses[op]; ok {
			return resp
		}
		return `{"status":"error","error":"unknown request"}`
	}
}

// always answers every request with resp
func always(resp string) func(map[string]any) string {
	return func(map[string]any) string { return resp }
}

// countingDialer records every connection it opens
type countingDialer struct {
	dialer net.Dialer

	mu    sync.Mutex
	conns []*trackedConn
}

func (d *countingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	conn, err := d.dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	tc := &trackedConn{Conn: conn}
	d.mu.Lock()
	d.conns = append(d.conns, tc)
	d.mu.Unlock()
	return tc, nil
}

func (d *countingDialer) dialed() []*trackedConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*trackedConn(nil), d.conns...)
}

// trackedConn remembers whether it was closed
type trackedConn struct {
	net.Conn
	closed atomic.Bool
}

func (c *trackedConn) Close() error {
	c.closed.Store(true)
	return c.Conn.Close()
}

// startRawAdmin serves every connection with fn and returns the port
func startRawAdmin(t *testing.T, fn func(conn net.Conn)) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer func() { _ = conn.Close() }()
				fn(conn)
			}()
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

// readRequest decodes one request from conn
func readRequest(conn net.Conn) (map[string]any, error) {
	var req map[string]any
	err := json.NewDecoder(conn).Decode(&req)
	return req, err
}

// unusedPort returns a loopback port nothing listens on
func unusedPort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

// captureLog redirects the standard logger into a buffer for one test
func captureLog(t *testing.T) *syncBuffer {
	t.Helper()

	buf := &syncBuffer{}
	log.SetOutput(buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return buf
}

// syncBuffer is a bytes.Buffer safe for concurrent writers
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}
