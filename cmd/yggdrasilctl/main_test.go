// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net"
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/jorektheglitch/yggdrasilctl"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	os.Exit(m.Run())
}

var responses = map[string]string{
	"getSelf":                `{"status":"success","response":{"self":{"200:aaaa::1":{"build_name":"yggdrasil","build_version":"0.3.16","coords":"[1 2]","subnet":"300:aaaa::/64"}}}}`,
	"getPeers":               `{"status":"success","response":{"peers":{"200:bbbb::1":{"port":1,"uptime":3661.2,"bytes_sent":1536,"bytes_recvd":2048,"endpoint":"203.0.113.7:443","proto":"tcp"}}}}`,
	"getMulticastInterfaces": `{"status":"success","response":{"multicast_interfaces":[]}}`,
	"getRoutes":              `{"status":"success","response":{"routes":{"fd00::/8":"key-b","10.0.0.0/8":"key-a"}}}`,
	"getTunTap":              `{"status":"success","response":{"tun0":{"mtu":65535}}}`,
	"addPeer":                `{"status":"success","response":{"added":["tcp://203.0.113.7:443"]}}`,
	"removePeer":             `{"status":"success","response":{"not_removed":["2"]}}`,
	"addRoute":               `{"status":"success","response":{}}`,
	"getSwitchPeers":         `{"status":"success","response":{"switchpeers":{}}}`,
	"getNodeInfo":            `{"status":"error","error":"no such node","request":{"request":"getNodeInfo"}}`,
}

type mockNode struct {
	mu       sync.Mutex
	requests []map[string]any
}

func (m *mockNode) last() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// startNode serves responses on a loopback port
func startNode(t *testing.T) (*mockNode, int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	node := &mockNode{}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer func() { _ = conn.Close() }()
				var req map[string]any
				if err := json.NewDecoder(conn).Decode(&req); err != nil {
					return
				}
				node.mu.Lock()
				node.requests = append(node.requests, req)
				node.mu.Unlock()

				resp, ok := responses[req["request"].(string)]
				if !ok {
					resp = `{"status":"error","error":"unknown request"}`
				}
				_, _ = conn.Write([]byte(resp))
			}(conn)
		}
	}()
	return node, ln.Addr().(*net.TCPAddr).Port
}

// run executes the command line against port
func run(t *testing.T, port int, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--host", "127.0.0.1", "--port", strconv.Itoa(port), "--timeout", "2s"}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestSelf(t *testing.T) {
	_, port := startNode(t)

	out, _, err := run(t, port, "self")
	require.NoError(t, err)
	assert.Contains(t, out, "Field")
	assert.Contains(t, out, "200:aaaa::1")
	assert.Contains(t, out, "0.3.16")
}

func TestPeersTable(t *testing.T) {
	_, port := startNode(t)

	out, _, err := run(t, port, "peers")
	require.NoError(t, err)
	assert.Contains(t, out, "200:bbbb::1")
	assert.Contains(t, out, "tcp://203.0.113.7:443")
	assert.Contains(t, out, "1h1m1s")
	assert.Contains(t, out, "1.5KiB")
	assert.Contains(t, out, "2.0KiB")
}

func TestPeersJSON(t *testing.T) {
	_, port := startNode(t)

	out, _, err := run(t, port, "--json", "peers")
	require.NoError(t, err)

	var peers []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &peers))
	require.Len(t, peers, 1)
	assert.Equal(t, "200:bbbb::1", peers[0]["addr"])
	assert.Equal(t, "1h1m1s", peers[0]["uptime"])
	assert.Equal(t, "tcp://203.0.113.7:443", peers[0]["faddr"])
}

func TestEmptyLists(t *testing.T) {
	_, port := startNode(t)

	out, _, err := run(t, port, "multicast")
	require.NoError(t, err)
	assert.Equal(t, "multicast peering is disabled\n", out)

	out, _, err = run(t, port, "switchpeers")
	require.NoError(t, err)
	assert.Contains(t, out, "Coords")
}

func TestRoutesSorted(t *testing.T) {
	_, port := startNode(t)

	out, _, err := run(t, port, "routes")
	require.NoError(t, err)
	a := bytes.Index([]byte(out), []byte("10.0.0.0/8"))
	b := bytes.Index([]byte(out), []byte("fd00::/8"))
	require.True(t, a >= 0 && b >= 0, out)
	assert.Less(t, a, b)
}

func TestPeerAddRemove(t *testing.T) {
	node, port := startNode(t)

	out, _, err := run(t, port, "peer", "add", "tcp://203.0.113.7:443")
	require.NoError(t, err)
	assert.Contains(t, out, "added")
	assert.Equal(t, "tcp://203.0.113.7:443", node.last()["uri"])

	out, _, err = run(t, port, "peer", "remove", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "not removed")
	assert.Equal(t, float64(2), node.last()["port"])

	_, _, err = run(t, port, "peer", "remove", "two")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
}

func TestNothingChanged(t *testing.T) {
	_, port := startNode(t)

	out, _, err := run(t, port, "route", "add", "fd00::/8", "key-b")
	require.NoError(t, err)
	assert.Equal(t, "nothing changed\n", out)
}

func TestArgumentValidation(t *testing.T) {
	_, port := startNode(t)

	for _, args := range [][]string{
		{"nodeinfo", "only-key"},
		{"ping", "key"},
		{"peers", "extra"},
		{"route", "add", "fd00::/8"},
	} {
		_, _, err := run(t, port, args...)
		assert.Error(t, err, "args %v", args)
	}
}

func TestVerboseLogsToStderr(t *testing.T) {
	_, port := startNode(t)

	_, stderr, err := run(t, port, "-v", "tuntap")
	require.NoError(t, err)
	assert.Contains(t, stderr, "getTunTap")
}

func TestAPIError(t *testing.T) {
	_, port := startNode(t)

	_, _, err := run(t, port, "nodeinfo", "key", "[1]")
	require.Error(t, err)
	assert.True(t, yggdrasilctl.IsAPIError(err))

	var buf bytes.Buffer
	printError(&buf, err)
	assert.Contains(t, buf.String(), "node rejected getNodeInfo: no such node")
}

func TestUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	_, _, err = run(t, port, "self")
	require.Error(t, err)
	assert.True(t, yggdrasilctl.IsUnreachable(err))

	var buf bytes.Buffer
	printError(&buf, err)
	assert.Contains(t, buf.String(), "is yggdrasil running?")
}

func TestPrintErrorPlain(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, errors.New("boom"))
	assert.Contains(t, buf.String(), "boom")
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.0B"},
		{1023, "1023.0B"},
		{1024, "1.0KiB"},
		{1536, "1.5KiB"},
		{5 * 1024 * 1024, "5.0MiB"},
		{3 * 1024 * 1024 * 1024 * 1024, "3.0TiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, humanBytes(tt.in), "humanBytes(%v)", tt.in)
	}
}

func TestEnvFallback(t *testing.T) {
	t.Setenv(envHost, "unix:///tmp/ygg.sock")
	t.Setenv(envPort, "12345")
	assert.Equal(t, "unix:///tmp/ygg.sock", envOr(envHost, "localhost"))
	assert.Equal(t, 12345, envIntOr(envPort, 9001))

	t.Setenv(envPort, "not-a-port")
	assert.Equal(t, 9001, envIntOr(envPort, 9001))
	assert.Equal(t, "fallback", envOr("YGGDRASILCTL_UNSET_FOR_TEST", "fallback"))

	root := newRootCmd()
	flag := root.PersistentFlags().Lookup("host")
	require.NotNil(t, flag)
	assert.Equal(t, "unix:///tmp/ygg.sock", flag.DefValue)
}
