// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package yggdrasilctl

import (
	"fmt"
	"math"
	"time"

	"github.com/tidwall/gjson"
)

// Normalized field names
const (
	FieldUptime   = "uptime"
	FieldLastSeen = "last_seen"
	FieldProto    = "proto"
	FieldEndpoint = "endpoint"
	FieldFAddr    = "faddr"
	FieldAddr     = "addr"
	FieldID       = "id"
	FieldName     = "name"
)

// Normalize returns a copy of rec with the admin API's field encodings
// converted, relative to now:
//   - uptime (seconds) becomes a time.Duration of whole seconds
//   - last_seen (seconds ago) becomes the time.Time now minus those seconds
//   - proto and endpoint together add faddr = "proto://endpoint"
//
// Seconds are rounded half to even. Absent fields are left alone and rec is
// not modified.
func Normalize(rec Record, now time.Time) Record {
	out := make(Record, len(rec)+1)
	for k, v := range rec {
		out[k] = v
	}

	if proto, ok := out[FieldProto]; ok {
		if endpoint, ok := out[FieldEndpoint]; ok {
			out[FieldFAddr] = fmt.Sprintf("%v://%v", proto, endpoint)
		}
	}
	if secs, ok := roundedSeconds(out[FieldUptime]); ok {
		out[FieldUptime] = time.Duration(secs) * time.Second
	}
	if secs, ok := roundedSeconds(out[FieldLastSeen]); ok {
		out[FieldLastSeen] = now.Add(-time.Duration(secs) * time.Second)
	}

	return out
}

// roundedSeconds rounds a numeric JSON value to whole seconds
func roundedSeconds(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		return int64(math.RoundToEven(n)), true
	case int:
		return int64(n), true
	}
	return 0, false
}

// Result shapes. Every operation is bound to exactly one of these in the
// operation table; the shape is picked statically, never by inspecting the
// response.
type shape int

const (
	// shapeSingle unwraps a one-entry map into one flat record
	shapeSingle shape = iota
	// shapeKeyed flattens an identifier-keyed map into a list of records
	shapeKeyed
	// shapeStrings returns a list of strings
	shapeStrings
	// shapeStringMap returns a string to string map
	shapeStringMap
	// shapePassthrough returns the value under the result key unchanged
	shapePassthrough
	// shapeBody returns the whole response body as one record
	shapeBody
)

// String returns the shape's name
func (s shape) String() string {
	switch s {
	case shapeSingle:
		return "single"
	case shapeKeyed:
		return "keyed"
	case shapeStrings:
		return "strings"
	case shapeStringMap:
		return "string-map"
	case shapePassthrough:
		return "passthrough"
	case shapeBody:
		return "body"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// flattenKeyed turns {"<key>": {...}, ...} into records in document order,
// storing each key under keyField. Non-object entries are skipped.
func flattenKeyed(collection gjson.Result, keyField string, now time.Time) []Record {
	out := []Record{}
	collection.ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() {
			return true
		}
		rec, _ := toValue(value).(Record)
		rec[keyField] = key.String()
		out = append(out, Normalize(rec, now))
		return true
	})
	return out
}

// singleRecord unwraps the first entry of {"<key>": {...}} into one record
// with the key stored under keyField. Returns false for an empty map.
func singleRecord(collection gjson.Result, keyField string, now time.Time) (Record, bool) {
	recs := flattenKeyed(collection, keyField, now)
	if len(recs) == 0 {
		return nil, false
	}
	return recs[0], true
}

// stringList collects the string elements of a JSON array
func stringList(r gjson.Result) []string {
	out := []string{}
	for _, item := range r.Array() {
		out = append(out, item.String())
	}
	return out
}

// stringMap collects the entries of a JSON object as strings
func stringMap(r gjson.Result) map[string]string {
	out := map[string]string{}
	r.ForEach(func(key, value gjson.Result) bool {
		out[key.String()] = value.String()
		return true
	})
	return out
}
