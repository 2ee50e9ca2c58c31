// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package yggdrasilctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// Dialer opens byte-stream connections to the admin endpoint.
// *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// MaxResponseSize bounds a single response envelope (16 MiB)
const MaxResponseSize = 16 * 1024 * 1024

// adminConn is one connection to the admin endpoint. The decoder keeps
// bytes read past the end of a response for the next exchange on a
// persistent connection.
type adminConn struct {
	conn  net.Conn
	limit *exchangeLimit
	dec   *json.Decoder
}

func newAdminConn(conn net.Conn) *adminConn {
	limit := &exchangeLimit{r: conn}
	return &adminConn{
		conn:  conn,
		limit: limit,
		dec:   json.NewDecoder(limit),
	}
}

// exchangeLimit caps the bytes read from the connection during one exchange
type exchangeLimit struct {
	r         io.Reader
	remaining int64
}

func (l *exchangeLimit) reset() {
	l.remaining = MaxResponseSize
}

func (l *exchangeLimit) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		return 0, fmt.Errorf("response exceeds %d bytes", MaxResponseSize)
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	return n, err
}

// exchange writes one request and decodes exactly one JSON document.
//
// The connection deadline is set to deadline for the whole exchange.
// Cancelling ctx expires the deadline so blocked I/O returns at once.
func (a *adminConn) exchange(ctx context.Context, payload []byte, deadline time.Time) (json.RawMessage, error) {
	if err := a.conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = a.conn.SetDeadline(time.Now()) //nolint:errcheck // Best effort wake-up of blocked I/O
	})
	defer stop()

	a.limit.reset()
	if err := writeFull(a.conn, payload); err != nil {
		return nil, ctxOr(ctx, fmt.Errorf("write request: %w", err))
	}

	var raw json.RawMessage
	if err := a.dec.Decode(&raw); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, ctxOr(ctx, fmt.Errorf("read response: %w", err))
	}

	if err := a.conn.SetDeadline(time.Time{}); err != nil {
		return nil, fmt.Errorf("clear deadline: %w", err)
	}
	return raw, nil
}

// ctxOr prefers the context's error when ctx ended the exchange. A passed
// context deadline counts even if ctx has not been marked done yet.
func ctxOr(ctx context.Context, err error) error {
	ctxErr := ctx.Err()
	if deadline, ok := ctx.Deadline(); ok && ctxErr == nil && !time.Now().Before(deadline) {
		ctxErr = context.DeadlineExceeded
	}
	if ctxErr != nil {
		return fmt.Errorf("%w (%v)", ctxErr, err)
	}
	return err
}

// writeFull writes all of buf, looping on short writes
func writeFull(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		buf = buf[n:]
		if err != nil {
			return err
		}
	}
	return nil
}

// transport hands out connections under one of two policies.
//
// Ephemeral: every acquire dials a new connection which release closes.
// Persistent: one connection is reused by every call. mu is held from
// acquire to release, so exactly one exchange is in flight on it. A
// connection released as broken is closed and re-dialed on the next acquire.
type transport struct {
	network        string
	address        string
	dialer         Dialer
	persistent     bool
	connectTimeout time.Duration

	mu     sync.Mutex
	conn   *adminConn
	closed bool
}

// releaseFunc returns a connection to the transport. broken marks a
// connection that failed mid-exchange.
type releaseFunc func(broken bool)

// acquire returns a connection ready for one exchange
func (t *transport) acquire(ctx context.Context) (*adminConn, releaseFunc, error) {
	if !t.persistent {
		conn, err := t.dial(ctx)
		if err != nil {
			return nil, nil, err
		}
		return conn, func(bool) {
			_ = conn.conn.Close() //nolint:errcheck // Connection is consumed by the exchange
		}, nil
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, nil, net.ErrClosed
	}
	if t.conn == nil {
		conn, err := t.dial(ctx)
		if err != nil {
			t.mu.Unlock()
			return nil, nil, err
		}
		t.conn = conn
	}

	conn := t.conn
	return conn, func(broken bool) {
		if broken && t.conn == conn {
			_ = conn.conn.Close() //nolint:errcheck // Connection is already unusable
			t.conn = nil
		}
		t.mu.Unlock()
	}, nil
}

// open dials the persistent connection eagerly
func (t *transport) open(ctx context.Context) error {
	if !t.persistent {
		return nil
	}
	_, release, err := t.acquire(ctx)
	if err != nil {
		return err
	}
	release(false)
	return nil
}

// dial opens a new connection bounded by connectTimeout
func (t *transport) dial(ctx context.Context) (*adminConn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, t.connectTimeout)
	defer cancel()

	conn, err := t.dialer.DialContext(dialCtx, t.network, t.address)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", t.network, t.address, err)
	}
	return newAdminConn(conn), nil
}

// close shuts the persistent connection. Later acquires fail.
func (t *transport) close() error {
	if !t.persistent {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	if t.conn == nil {
		return nil
	}
	err := t.conn.conn.Close()
	t.conn = nil
	return err
}
