// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package yggdrasilctl is a client for the admin API of Yggdrasil mesh
// network nodes.
//
// Every call opens (or reuses) a connection to the node's admin endpoint,
// writes one JSON request, reads one JSON response and turns it into
// normalized records: uptime becomes a time.Duration, last_seen a
// time.Time, proto and endpoint are joined into faddr, and maps keyed by
// address or port are flattened into lists with the key stored under
// addr or id.
//
// # Quick Start
//
//	client, err := yggdrasilctl.NewClient("localhost", yggdrasilctl.Port(9001))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	ctx := context.Background()
//	peers, err := client.GetPeers(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, p := range peers {
//	    fmt.Println(p.String("addr"), p.Duration("uptime"))
//	}
//
// Records can be decoded into typed structs:
//
//	typed, err := yggdrasilctl.DecodeRecords[yggdrasilctl.Peer](peers)
//
// # Error Handling
//
// Three error types separate the failure modes:
//
//	switch {
//	case errors.Is(err, yggdrasilctl.ErrUnreachable):
//	    // node not running, connection refused, timed out
//	case yggdrasilctl.IsAPIError(err):
//	    // node rejected the request
//	}
//
// *ProtocolError reports responses that are JSON but not admin envelopes.
// Nothing is retried.
//
// # Connections
//
// By default each call dials its own connection and closes it afterwards.
// Persistent(true) keeps one connection for the client's lifetime; calls on
// it are serialized since the protocol has no request identifiers. A
// persistent connection that fails mid-exchange is dropped and re-dialed on
// the next call.
//
// # Stats and Hooks
//
// Successful read-only operations (TrackedOperation) merge their response
// body into Stats and run the completion hooks registered with
// RegisterHook. A call whose result cannot be shaped records nothing.
//
// # References
//
//   - Yggdrasil admin API: https://yggdrasil-network.github.io/admin.html
//   - gjson: https://github.com/tidwall/gjson
//   - sjson: https://github.com/tidwall/sjson
package yggdrasilctl
