// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package yggdrasilctl

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

// TestUnreachableError tests message, unwrapping and matching
func TestUnreachableError(t *testing.T) {
	err := &UnreachableError{
		Operation: "getPeers",
		Endpoint:  "localhost:9001",
		Err:       io.ErrUnexpectedEOF,
	}

	want := "yggdrasilctl: getPeers: endpoint localhost:9001 unreachable: unexpected EOF"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrUnreachable) {
		t.Error("errors.Is(err, ErrUnreachable) = false")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("errors.Is(err, io.ErrUnexpectedEOF) = false")
	}

	wrapped := fmt.Errorf("refresh: %w", err)
	if !IsUnreachable(wrapped) {
		t.Error("IsUnreachable(wrapped) = false")
	}
	if IsAPIError(wrapped) {
		t.Error("IsAPIError(wrapped) = true")
	}
}

// TestAPIError_Message tests rendering of the daemon-supplied payload
func TestAPIError_Message(t *testing.T) {
	tests := []struct {
		name        string
		payload     any
		wantMessage string
	}{
		{
			name:        "string payload",
			payload:     "unknown peer",
			wantMessage: "unknown peer",
		},
		{
			name:        "object payload",
			payload:     Record{"code": int64(4), "reason": "no route"},
			wantMessage: `{"code":4,"reason":"no route"}`,
		},
		{
			name:        "nil payload",
			payload:     nil,
			wantMessage: "unknown error",
		},
		{
			name:        "list payload",
			payload:     []any{"a", "b"},
			wantMessage: `["a","b"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &APIError{Operation: "addPeer", Payload: tt.payload}
			if got := err.Message(); got != tt.wantMessage {
				t.Errorf("Message() = %q, want %q", got, tt.wantMessage)
			}
			if got, want := err.Error(), "yggdrasilctl: addPeer failed: "+tt.wantMessage; got != want {
				t.Errorf("Error() = %q, want %q", got, want)
			}
		})
	}
}

// TestAPIError_DetailedError tests the raw payload suffix
func TestAPIError_DetailedError(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			name: "with raw payload",
			err:  &APIError{Operation: "removePeer", Payload: "bad port", raw: `"bad port"`},
			want: `yggdrasilctl: removePeer failed: bad port (raw: "bad port")`,
		},
		{
			name: "without raw payload",
			err:  &APIError{Operation: "removePeer", Payload: "bad port"},
			want: "yggdrasilctl: removePeer failed: bad port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.DetailedError(); got != tt.want {
				t.Errorf("DetailedError() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestErrorKindsAreDistinct tests that each error kind matches only itself
func TestErrorKindsAreDistinct(t *testing.T) {
	unreachable := error(&UnreachableError{Operation: "getSelf", Endpoint: "x", Err: io.EOF})
	api := error(&APIError{Operation: "getSelf", Payload: "denied"})
	protocol := error(&ProtocolError{Operation: "getSelf", Message: "response envelope has no status"})

	if !IsUnreachable(unreachable) || IsAPIError(unreachable) {
		t.Error("UnreachableError misclassified")
	}
	if IsUnreachable(api) || !IsAPIError(api) {
		t.Error("APIError misclassified")
	}
	if IsUnreachable(protocol) || IsAPIError(protocol) {
		t.Error("ProtocolError misclassified")
	}

	var pe *ProtocolError
	if !errors.As(protocol, &pe) {
		t.Fatal("errors.As(*ProtocolError) = false")
	}
	if !strings.Contains(pe.Error(), "protocol violation: response envelope has no status") {
		t.Errorf("Error() = %q", pe.Error())
	}
}
