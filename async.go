// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package yggdrasilctl

import "context"

// AsyncResult carries the outcome of a call started with Go
type AsyncResult[T any] struct {
	Value T
	Err   error
}

// Go runs fn on its own goroutine and delivers the outcome on the returned
// channel, which receives exactly one value and is then closed.
//
// Any operation method fits as fn:
//
//	peersCh := yggdrasilctl.Go(ctx, client.GetPeers)
//	selfCh := yggdrasilctl.Go(ctx, client.GetSelf)
//	peers, self := <-peersCh, <-selfCh
//
// Calls on a persistent client still run one at a time on its connection;
// ephemeral clients run them in parallel.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) <-chan AsyncResult[T] {
	ch := make(chan AsyncResult[T], 1)
	go func() {
		defer close(ch)
		v, err := fn(ctx)
		ch <- AsyncResult[T]{Value: v, Err: err}
	}()
	return ch
}
