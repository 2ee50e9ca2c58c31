// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package yggdrasilctl

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// Invoke sends one admin request and returns the response body as a
// normalized record.
//
// It is the primitive every operation method is built on and can be used
// for operations without a dedicated method. Nil parameters are omitted.
// Successful tracked operations update Stats and run their completion
// hooks. Hooks fired from Invoke receive the normalized response body as a
// Record, not the shaped result the operation methods pass.
//
// Errors:
//   - *UnreachableError: dial failed or the exchange could not complete
//   - *APIError: the daemon answered with a non-success status
//   - *ProtocolError: the envelope does not follow the admin protocol
//
// Example:
//
//	body, err := client.Invoke(ctx, "getPeers", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(body.GetValue("peers|@keys"))
func (c *Client) Invoke(ctx context.Context, operation string, params Params) (Record, error) {
	body, err := c.dispatch(ctx, operation, params)
	if err != nil {
		return nil, err
	}
	rec, _ := toValue(body).(Record)
	rec = Normalize(rec, c.now())

	if TrackedOperation(operation) {
		c.stats.merge(body)
		c.fireHooks(ctx, operation, rec)
	}
	return rec, nil
}

// dispatch runs connect, send, receive and classify for one request.
//
// The connection is released on every path: closed in ephemeral mode,
// kept in persistent mode unless the exchange broke it.
func (c *Client) dispatch(ctx context.Context, operation string, params Params) (gjson.Result, error) {
	if err := checkContextCancellation(ctx); err != nil {
		return gjson.Result{}, fmt.Errorf("%s: %w", operation, err)
	}

	payload, err := encodeRequest(operation, params)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: encode request: %w", operation, err)
	}

	c.logger.Debug(ctx, "admin request",
		"operation", operation,
		"endpoint", c.Address(),
		"request", c.prepareJSONForLogging(string(payload)))

	conn, release, err := c.transport.acquire(ctx)
	if err != nil {
		c.logger.Error(ctx, "admin endpoint unreachable",
			"operation", operation,
			"endpoint", c.Address(),
			"error", err.Error())
		return gjson.Result{}, &UnreachableError{Operation: operation, Endpoint: c.Address(), Err: err}
	}

	start := time.Now()
	raw, err := conn.exchange(ctx, payload, c.exchangeDeadline(ctx))
	release(err != nil)
	if err != nil {
		c.logger.Error(ctx, "admin exchange failed",
			"operation", operation,
			"endpoint", c.Address(),
			"error", err.Error())
		return gjson.Result{}, &UnreachableError{Operation: operation, Endpoint: c.Address(), Err: err}
	}

	c.logger.Debug(ctx, "admin response",
		"operation", operation,
		"duration", time.Since(start).String(),
		"response", c.prepareJSONForLogging(string(raw)))

	body, err := classifyEnvelope(operation, raw)
	if err != nil {
		c.logger.Warn(ctx, "admin request failed",
			"operation", operation,
			"error", err.Error())
		return gjson.Result{}, err
	}

	return body, nil
}

// exchangeDeadline is the earlier of the context deadline and
// now + OperationTimeout
func (c *Client) exchangeDeadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(c.OperationTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		return ctxDeadline
	}
	return deadline
}

// checkContextCancellation returns ctx.Err() without blocking
func checkContextCancellation(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
