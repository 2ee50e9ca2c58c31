// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package yggdrasilctl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/sjson"
)

// Params holds the keyword parameters of one admin request.
//
// A nil value means the parameter is absent and it is left out of the
// request. Zero values ("", 0, false) are sent as given: deciding which
// optional parameters to include is up to the caller.
type Params map[string]any

// requestBody builds the JSON text of one admin request with sjson.
//
// Like a fluent builder, every set returns a new value and the first error
// is kept, so calls can be chained and checked once through bytes().
type requestBody struct {
	str string
	err error
}

// newRequestBody starts a request for operation
func newRequestBody(operation string) requestBody {
	return requestBody{}.set("request", operation)
}

// set stores value under key. Keys are literal field names, never paths.
func (b requestBody) set(key string, value any) requestBody {
	if b.err != nil {
		return b
	}

	result, err := sjson.Set(b.str, escapeKey(key), value)
	if err != nil {
		return requestBody{str: b.str, err: fmt.Errorf("set %q: %w", key, err)}
	}
	return requestBody{str: result}
}

// params adds every non-nil parameter in key order
func (b requestBody) params(p Params) requestBody {
	keys := make([]string, 0, len(p))
	for k, v := range p {
		if v == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		b = b.set(k, p[k])
	}
	return b
}

// bytes returns the encoded request
func (b requestBody) bytes() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return []byte(b.str), nil
}

// encodeRequest serializes {"request": operation, ...params}
func encodeRequest(operation string, params Params) ([]byte, error) {
	if strings.TrimSpace(operation) == "" {
		return nil, fmt.Errorf("operation name cannot be empty")
	}
	if _, ok := params["request"]; ok {
		return nil, fmt.Errorf("%s: parameter name %q is reserved", operation, "request")
	}
	return newRequestBody(operation).params(params).bytes()
}

// escapeKey escapes sjson path syntax so key is stored as one field
func escapeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '.', '*', '?', '|', '#', '@', '\\', ':':
			b.WriteByte('\\')
		}
		b.WriteByte(key[i])
	}
	return b.String()
}
