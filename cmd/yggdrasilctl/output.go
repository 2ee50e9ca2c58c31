// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/jorektheglitch/yggdrasilctl"
	"github.com/pterm/pterm"
)

// timeLayout is used for last_seen cells
const timeLayout = "2006-01-02 15:04:05"

// column is one table column fed from a record field
type column struct {
	header string
	key    string
	format func(any) string
}

func textColumn(header, key string) column {
	return column{header: header, key: key, format: formatValue}
}

func bytesColumn(header, key string) column {
	return column{header: header, key: key, format: formatBytes}
}

// printRecords prints one row per record
func (o *options) printRecords(w io.Writer, recs []yggdrasilctl.Record, cols []column) error {
	if o.json {
		out := make([]any, 0, len(recs))
		for _, rec := range recs {
			out = append(out, displayValue(rec))
		}
		return printJSON(w, out)
	}

	header := make([]string, 0, len(cols))
	for _, c := range cols {
		header = append(header, c.header)
	}
	data := pterm.TableData{header}
	for _, rec := range recs {
		row := make([]string, 0, len(cols))
		for _, c := range cols {
			row = append(row, c.format(rec[c.key]))
		}
		data = append(data, row)
	}
	return renderTable(w, data)
}

// printRecord prints a record as a field/value table in key order
func (o *options) printRecord(w io.Writer, rec yggdrasilctl.Record) error {
	if o.json {
		return printJSON(w, displayValue(rec))
	}

	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	data := pterm.TableData{{"Field", "Value"}}
	for _, k := range keys {
		data = append(data, []string{k, formatValue(rec[k])})
	}
	return renderTable(w, data)
}

// printStrings prints a one-column list, or empty when there is nothing
func (o *options) printStrings(w io.Writer, header string, items []string, empty string) error {
	if o.json {
		return printJSON(w, items)
	}
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, empty)
		return err
	}

	data := pterm.TableData{{header}}
	for _, item := range items {
		data = append(data, []string{item})
	}
	return renderTable(w, data)
}

// printChange prints the outcome of an add/remove operation
func (o *options) printChange(w io.Writer, change yggdrasilctl.Change) error {
	if o.json {
		return printJSON(w, change)
	}

	data := pterm.TableData{{"Result", "Value"}}
	for _, group := range []struct {
		label  string
		values []string
	}{
		{"added", change.Added},
		{"not added", change.NotAdded},
		{"removed", change.Removed},
		{"not removed", change.NotRemoved},
	} {
		for _, v := range group.values {
			data = append(data, []string{group.label, v})
		}
	}
	if len(data) == 1 {
		_, err := fmt.Fprintln(w, "nothing changed")
		return err
	}
	return renderTable(w, data)
}

func renderTable(w io.Writer, data pterm.TableData) error {
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	_, err = fmt.Fprintln(w, table)
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// displayValue makes normalized values readable in JSON output: durations
// become "1h2m3s" and times RFC 3339
func displayValue(v any) any {
	switch val := v.(type) {
	case time.Duration:
		return val.String()
	case time.Time:
		return val.Format(time.RFC3339)
	case yggdrasilctl.Record:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = displayValue(item)
		}
		return out
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			out = append(out, displayValue(item))
		}
		return out
	default:
		return v
	}
}

// formatValue renders one table cell
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Duration:
		return val.String()
	case time.Time:
		return val.Format(timeLayout)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, formatValue(item))
		}
		return strings.Join(parts, ", ")
	case yggdrasilctl.Record:
		return val.JSON()
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatBytes renders a byte counter cell
func formatBytes(v any) string {
	switch n := v.(type) {
	case int64:
		return humanBytes(float64(n))
	case float64:
		return humanBytes(n)
	case uint64:
		return humanBytes(float64(n))
	default:
		return formatValue(v)
	}
}

// humanBytes renders n bytes with a binary unit, e.g. 1536 as "1.5KiB"
func humanBytes(n float64) string {
	for _, unit := range []string{"", "Ki", "Mi", "Gi", "Ti", "Pi", "Ei", "Zi"} {
		if math.Abs(n) < 1024 {
			return fmt.Sprintf("%3.1f%sB", n, unit)
		}
		n /= 1024
	}
	return fmt.Sprintf("%.1fYiB", n)
}
