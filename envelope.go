// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package yggdrasilctl

import (
	"strconv"

	"github.com/tidwall/gjson"
)

// Envelope status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// classifyEnvelope inspects one decoded response envelope.
//
// A "success" status returns the "response" object. Any other status is an
// *APIError carrying the "error" field when it is present and non-empty, or
// the whole envelope otherwise. An envelope without "status" is a
// *ProtocolError.
func classifyEnvelope(operation string, raw []byte) (gjson.Result, error) {
	env := gjson.ParseBytes(raw)
	if !env.IsObject() {
		return gjson.Result{}, &ProtocolError{
			Operation: operation,
			Message:   "response envelope is not a JSON object",
			Raw:       truncateForError(string(raw)),
		}
	}

	status := env.Get("status")
	if !status.Exists() {
		return gjson.Result{}, &ProtocolError{
			Operation: operation,
			Message:   "response envelope has no status",
			Raw:       truncateForError(env.Raw),
		}
	}

	if status.Type == gjson.String && status.Str == StatusSuccess {
		body := env.Get("response")
		if !body.IsObject() {
			return gjson.Result{}, &ProtocolError{
				Operation: operation,
				Message:   "success envelope has no response object",
				Raw:       truncateForError(env.Raw),
			}
		}
		return body, nil
	}

	payload := env
	if errField := env.Get("error"); !isEmptyResult(errField) {
		payload = errField
	}
	return gjson.Result{}, &APIError{
		Operation: operation,
		Payload:   toValue(payload),
		raw:       payload.Raw,
	}
}

// isEmptyResult reports whether r is missing, null, "" or an empty container
func isEmptyResult(r gjson.Result) bool {
	switch {
	case !r.Exists(), r.Type == gjson.Null:
		return true
	case r.Type == gjson.String:
		return r.Str == ""
	case r.IsObject(), r.IsArray():
		empty := true
		r.ForEach(func(_, _ gjson.Result) bool {
			empty = false
			return false
		})
		return empty
	}
	return false
}

// toValue converts a gjson value into plain Go values. Objects become
// Record, arrays []any, integral numbers int64 and other numbers float64.
func toValue(r gjson.Result) any {
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.String:
		return r.Str
	case gjson.Number:
		if i, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
			return i
		}
		return r.Num
	}

	if r.IsArray() {
		items := r.Array()
		out := make([]any, 0, len(items))
		for _, item := range items {
			out = append(out, toValue(item))
		}
		return out
	}

	if r.IsObject() {
		rec := Record{}
		r.ForEach(func(key, value gjson.Result) bool {
			rec[key.String()] = toValue(value)
			return true
		})
		return rec
	}

	return nil
}

// truncateForError shortens s to a length fit for an error message
func truncateForError(s string) string {
	const maxLen = 256
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
