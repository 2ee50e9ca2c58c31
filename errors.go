// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package yggdrasilctl

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnreachable matches every *UnreachableError via errors.Is
var ErrUnreachable = errors.New("admin endpoint unreachable")

// UnreachableError reports that the admin endpoint could not be reached or
// the exchange could not be completed (refused, reset, timed out, truncated).
//
// It is never produced for a request the daemon answered; those surface as
// *APIError. Callers use the distinction to tell "node not running" apart
// from "node rejected the request":
//
//	peers, err := client.GetPeers(ctx)
//	if errors.Is(err, yggdrasilctl.ErrUnreachable) {
//	    log.Fatal("is yggdrasil running?")
//	}
type UnreachableError struct {
	// Operation name that failed
	Operation string

	// Endpoint is the dialed address (host:port or socket path)
	Endpoint string

	// Err is the underlying transport or decoding error
	Err error
}

// Error implements the error interface
func (e *UnreachableError) Error() string {
	return fmt.Sprintf("yggdrasilctl: %s: endpoint %s unreachable: %v", e.Operation, e.Endpoint, e.Err)
}

// Unwrap returns the underlying transport error
func (e *UnreachableError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrUnreachable
func (e *UnreachableError) Is(target error) bool {
	return target == ErrUnreachable
}

// APIError is returned when the daemon answered with a non-success status.
//
// Payload holds whatever the daemon supplied, uninterpreted: a string for
// plain messages or the decoded object for structured errors. When the
// envelope carried no usable "error" field, Payload is the whole envelope.
type APIError struct {
	// Operation name that failed
	Operation string

	// Payload is the daemon-supplied error (string, map[string]any, ...)
	Payload any

	// raw is the JSON text the payload was decoded from
	raw string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("yggdrasilctl: %s failed: %s", e.Operation, e.Message())
}

// Message renders the payload as a human-readable string
func (e *APIError) Message() string {
	switch p := e.Payload.(type) {
	case nil:
		return "unknown error"
	case string:
		return p
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Sprintf("%v", p)
		}
		return string(data)
	}
}

// DetailedError returns the error message including the raw JSON payload
//
// Example:
//
//	var apiErr *yggdrasilctl.APIError
//	if errors.As(err, &apiErr) {
//	    log.Debug(apiErr.DetailedError())
//	}
func (e *APIError) DetailedError() string {
	if e.raw == "" {
		return e.Error()
	}
	return fmt.Sprintf("yggdrasilctl: %s failed: %s (raw: %s)", e.Operation, e.Message(), e.raw)
}

// ProtocolError is returned for envelopes that decode as JSON but do not
// follow the admin protocol: no "status" field, or a success envelope
// without a "response" object.
type ProtocolError struct {
	// Operation name that failed
	Operation string

	// Message describes the violation
	Message string

	// Raw is the offending envelope
	Raw string
}

// Error implements the error interface
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("yggdrasilctl: %s: protocol violation: %s", e.Operation, e.Message)
}

// IsUnreachable reports whether err is (or wraps) an *UnreachableError
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}

// IsAPIError reports whether err is (or wraps) an *APIError
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
