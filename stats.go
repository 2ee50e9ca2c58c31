// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package yggdrasilctl

import (
	"sync"

	"github.com/tidwall/gjson"
)

// statsAggregate is the "last known stats" of one client: the union of the
// top-level keys of every successful tracked response, last write wins.
type statsAggregate struct {
	mu     sync.RWMutex
	values map[string]any
}

func newStatsAggregate() *statsAggregate {
	return &statsAggregate{values: map[string]any{}}
}

// merge overwrites the keys present in body and leaves all others alone
func (s *statsAggregate) merge(body gjson.Result) {
	updates := map[string]any{}
	body.ForEach(func(key, value gjson.Result) bool {
		updates[key.String()] = toValue(value)
		return true
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range updates {
		s.values[k] = v
	}
}

// snapshot returns a shallow copy of the aggregate
func (s *statsAggregate) snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
