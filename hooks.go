// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package yggdrasilctl

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Hook is called with the result of a tracked operation after it succeeds.
//
// result has the operation's result type: Record for GetSelf and
// GetNodeInfo, []Record for the listing operations, []string for
// GetAllowedEncryptionPublicKeys. When the call came through Invoke, result
// is the normalized response body as a Record.
type Hook interface {
	OnDone(ctx context.Context, operation string, result any) error
}

// HookFunc adapts a plain function to the Hook interface
type HookFunc func(ctx context.Context, operation string, result any) error

// OnDone calls f
func (f HookFunc) OnDone(ctx context.Context, operation string, result any) error {
	return f(ctx, operation, result)
}

// HookID identifies one registration. The zero HookID is never issued.
type HookID uint64

type hookEntry struct {
	id   HookID
	hook Hook
}

// hookRegistry keeps the completion hooks of each tracked operation in
// registration order.
type hookRegistry struct {
	mu     sync.RWMutex
	nextID HookID
	hooks  map[string][]hookEntry
}

func newHookRegistry(operations []string) *hookRegistry {
	r := &hookRegistry{hooks: make(map[string][]hookEntry, len(operations))}
	for _, op := range operations {
		r.hooks[op] = nil
	}
	return r
}

// register appends hook for operation. Unknown operations are dropped and
// yield the zero HookID.
func (r *hookRegistry) register(operation string, hook Hook) HookID {
	if hook == nil {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entries, ok := r.hooks[operation]
	if !ok {
		return 0
	}
	r.nextID++
	r.hooks[operation] = append(entries, hookEntry{id: r.nextID, hook: hook})
	return r.nextID
}

// unregister removes the registration id
func (r *hookRegistry) unregister(operation string, id HookID) bool {
	return r.remove(operation, func(e hookEntry) bool { return e.id == id })
}

// unregisterValue removes the first registration of hook
func (r *hookRegistry) unregisterValue(operation string, hook Hook) bool {
	return r.remove(operation, func(e hookEntry) bool { return sameHook(e.hook, hook) })
}

func (r *hookRegistry) remove(operation string, match func(hookEntry) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.hooks[operation]
	for i, e := range entries {
		if match(e) {
			kept := make([]hookEntry, 0, len(entries)-1)
			kept = append(kept, entries[:i]...)
			r.hooks[operation] = append(kept, entries[i+1:]...)
			return true
		}
	}
	return false
}

// snapshot returns the hooks of operation in registration order
func (r *hookRegistry) snapshot(operation string) []hookEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]hookEntry(nil), r.hooks[operation]...)
}

// sameHook compares hooks with ==. Uncomparable hooks, HookFunc among
// them, never match: closures of one literal share a code pointer, so
// there is no sound identity to compare.
func sameHook(a, b Hook) bool {
	if a == nil || b == nil {
		return false
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

// RegisterHook adds hook to run after every successful call of operation.
//
// Only tracked operations accept hooks (see TrackedOperation); for any other
// name the registration is silently dropped and the zero HookID returned.
// Hooks run synchronously, in registration order, on the calling goroutine.
// A hook returning an error or panicking is logged and skipped; the
// remaining hooks still run and the call still returns its result.
//
// Example:
//
//	id := client.RegisterHook("getPeers", yggdrasilctl.HookFunc(
//	    func(ctx context.Context, op string, result any) error {
//	        peers := result.([]yggdrasilctl.Record)
//	        fmt.Println(len(peers), "peers")
//	        return nil
//	    }))
//	defer client.UnregisterHook("getPeers", id)
func (c *Client) RegisterHook(operation string, hook Hook) HookID {
	id := c.hooks.register(operation, hook)
	if id == 0 {
		c.logger.Debug(context.Background(), "hook registration ignored",
			"operation", operation,
			"reason", "not a tracked operation")
	}
	return id
}

// UnregisterHook removes the registration id. Reports whether it existed.
func (c *Client) UnregisterHook(operation string, id HookID) bool {
	return c.hooks.unregister(operation, id)
}

// UnregisterHookValue removes the first registration of hook for operation.
// Hooks match with ==, so this works for comparable hooks such as pointers
// (including a *HookFunc). A HookFunc value never matches; keep its HookID
// and use UnregisterHook instead.
func (c *Client) UnregisterHookValue(operation string, hook Hook) bool {
	return c.hooks.unregisterValue(operation, hook)
}

// fireHooks runs the hooks of operation. Failures are isolated.
func (c *Client) fireHooks(ctx context.Context, operation string, result any) {
	for _, e := range c.hooks.snapshot(operation) {
		if err := runHook(ctx, e.hook, operation, result); err != nil {
			c.logger.Warn(ctx, "completion hook failed",
				"operation", operation,
				"hook", uint64(e.id),
				"error", err.Error())
		}
	}
}

// runHook calls hook, turning a panic into an error
func runHook(ctx context.Context, hook Hook, operation string, result any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panicked: %v", r)
		}
	}()
	return hook.OnDone(ctx, operation, result)
}
