// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package yggdrasilctl

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/tidwall/gjson"
)

// Record is one normalized result entry.
//
// Values are string, int64, float64, bool, time.Duration, time.Time, []any,
// nil or a nested Record. Records handed out by the client are freshly built
// for each call.
type Record map[string]any

// String returns the value of key formatted as a string, or "" when absent
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Int returns the integer value of key, or 0 when absent or not numeric
func (r Record) Int(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case int:
		return int64(v)
	}
	return 0
}

// Duration returns the time.Duration value of key, or 0
func (r Record) Duration(key string) time.Duration {
	d, _ := r[key].(time.Duration)
	return d
}

// Time returns the time.Time value of key, or the zero time
func (r Record) Time(key string) time.Time {
	t, _ := r[key].(time.Time)
	return t
}

// JSON returns the record as JSON text. Durations encode as nanoseconds
// and times as RFC 3339. Returns an empty string if marshaling fails.
func (r Record) JSON() string {
	if r == nil {
		return ""
	}
	data, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return string(data)
}

// GetValue queries the record with a gjson path.
//
// Example:
//
//	self, _ := client.GetSelf(ctx)
//	version := self.GetValue("build_version").String()
func (r Record) GetValue(path string) gjson.Result {
	jsonStr := r.JSON()
	if jsonStr == "" {
		return gjson.Result{}
	}
	return gjson.Get(jsonStr, path)
}

// Decode copies the record into the struct pointed to by v using
// mapstructure tags.
//
// Example:
//
//	var peer yggdrasilctl.Peer
//	if err := rec.Decode(&peer); err != nil {
//	    log.Fatal(err)
//	}
func (r Record) Decode(v any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           v,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	if err := dec.Decode(map[string]any(r)); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

// DecodeRecords decodes every record into a T
//
// Example:
//
//	recs, _ := client.GetPeers(ctx)
//	peers, err := yggdrasilctl.DecodeRecords[yggdrasilctl.Peer](recs)
func DecodeRecords[T any](recs []Record) ([]T, error) {
	out := make([]T, 0, len(recs))
	for i, rec := range recs {
		var v T
		if err := rec.Decode(&v); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Self describes the local node (getSelf)
type Self struct {
	Addr         string `mapstructure:"addr"`
	BoxPubKey    string `mapstructure:"box_pub_key"`
	BuildName    string `mapstructure:"build_name"`
	BuildVersion string `mapstructure:"build_version"`
	Coords       string `mapstructure:"coords"`
	Subnet       string `mapstructure:"subnet"`
}

// Peer is one active peering (getPeers)
type Peer struct {
	Addr       string        `mapstructure:"addr"`
	BoxPubKey  string        `mapstructure:"box_pub_key"`
	BytesSent  uint64        `mapstructure:"bytes_sent"`
	BytesRecvd uint64        `mapstructure:"bytes_recvd"`
	Endpoint   string        `mapstructure:"endpoint"`
	Proto      string        `mapstructure:"proto"`
	FAddr      string        `mapstructure:"faddr"`
	Port       int           `mapstructure:"port"`
	Uptime     time.Duration `mapstructure:"uptime"`
}

// SwitchPeer is one switch port (getSwitchPeers)
type SwitchPeer struct {
	ID         string `mapstructure:"id"`
	BoxPubKey  string `mapstructure:"box_pub_key"`
	BytesSent  uint64 `mapstructure:"bytes_sent"`
	BytesRecvd uint64 `mapstructure:"bytes_recvd"`
	Coords     string `mapstructure:"coords"`
	Endpoint   string `mapstructure:"endpoint"`
	Proto      string `mapstructure:"proto"`
	FAddr      string `mapstructure:"faddr"`
	IP         string `mapstructure:"ip"`
	Port       int    `mapstructure:"port"`
}

// DHTEntry is one known DHT node (getDHT)
type DHTEntry struct {
	Addr      string    `mapstructure:"addr"`
	BoxPubKey string    `mapstructure:"box_pub_key"`
	Coords    string    `mapstructure:"coords"`
	LastSeen  time.Time `mapstructure:"last_seen"`
}

// Session is one open session (getSessions)
type Session struct {
	Addr        string        `mapstructure:"addr"`
	BoxPubKey   string        `mapstructure:"box_pub_key"`
	BytesSent   uint64        `mapstructure:"bytes_sent"`
	BytesRecvd  uint64        `mapstructure:"bytes_recvd"`
	Coords      string        `mapstructure:"coords"`
	MTU         int           `mapstructure:"mtu"`
	WasMTUFixed bool          `mapstructure:"was_mtu_fixed"`
	Uptime      time.Duration `mapstructure:"uptime"`
}

// PingNode is one node returned by a DHT ping (DHTping)
type PingNode struct {
	Addr      string `mapstructure:"addr"`
	BoxPubKey string `mapstructure:"box_pub_key"`
	Coords    string `mapstructure:"coords"`
}

// TunTap describes the TUN/TAP adapter (getTunTap)
type TunTap struct {
	Name    string `mapstructure:"name"`
	TapMode bool   `mapstructure:"tap_mode"`
	MTU     int    `mapstructure:"mtu"`
}

// Change is the result of an add/remove operation
type Change struct {
	Added      []string `mapstructure:"added" json:"added,omitempty"`
	NotAdded   []string `mapstructure:"not_added" json:"not_added,omitempty"`
	Removed    []string `mapstructure:"removed" json:"removed,omitempty"`
	NotRemoved []string `mapstructure:"not_removed" json:"not_removed,omitempty"`
}

// Traffic sums the bytes exchanged with all switch peers
type Traffic struct {
	Sent     uint64 `json:"sent"`
	Received uint64 `json:"received"`
}
