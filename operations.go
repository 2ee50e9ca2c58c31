// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package yggdrasilctl

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Admin operation names
const (
	OpGetSelf                          = "getSelf"
	OpGetPeers                         = "getPeers"
	OpGetSwitchPeers                   = "getSwitchPeers"
	OpGetDHT                           = "getDHT"
	OpGetSessions                      = "getSessions"
	OpGetAllowedEncryptionPublicKeys   = "getAllowedEncryptionPublicKeys"
	OpDHTPing                          = "DHTping"
	OpGetNodeInfo                      = "getNodeInfo"
	OpAddPeer                          = "addPeer"
	OpRemovePeer                       = "removePeer"
	OpAddAllowedEncryptionPublicKey    = "addAllowedEncryptionPublicKey"
	OpRemoveAllowedEncryptionPublicKey = "removeAllowedEncryptionPublicKey"
	OpGetTunTap                        = "getTunTap"
	OpGetMulticastInterfaces           = "getMulticastInterfaces"
	OpGetRoutes                        = "getRoutes"
	OpAddRoute                         = "addRoute"
	OpRemoveRoute                      = "removeRoute"
	OpGetSourceSubnets                 = "getSourceSubnets"
	OpAddSourceSubnet                  = "addSourceSubnet"
	OpRemoveSourceSubnet               = "removeSourceSubnet"
	OpList                             = "list"
)

// operation describes how one admin operation's response is shaped
type operation struct {
	// resultKey selects the result inside the response body; empty means
	// the body itself
	resultKey string
	shape     shape
	// keyField receives the map key for shapeSingle and shapeKeyed
	keyField string
	// tracked operations feed Stats and completion hooks
	tracked bool
}

// operations is the static operation table
var operations = map[string]operation{
	OpGetSelf:                          {resultKey: "self", shape: shapeSingle, keyField: FieldAddr, tracked: true},
	OpGetPeers:                         {resultKey: "peers", shape: shapeKeyed, keyField: FieldAddr, tracked: true},
	OpGetSwitchPeers:                   {resultKey: "switchpeers", shape: shapeKeyed, keyField: FieldID, tracked: true},
	OpGetDHT:                           {resultKey: "dht", shape: shapeKeyed, keyField: FieldAddr, tracked: true},
	OpGetSessions:                      {resultKey: "sessions", shape: shapeKeyed, keyField: FieldAddr, tracked: true},
	OpGetAllowedEncryptionPublicKeys:   {resultKey: "allowed_box_pubs", shape: shapeStrings, tracked: true},
	OpDHTPing:                          {resultKey: "nodes", shape: shapeKeyed, keyField: FieldAddr, tracked: true},
	OpGetNodeInfo:                      {resultKey: "nodeinfo", shape: shapePassthrough, tracked: true},
	OpAddPeer:                          {shape: shapeBody},
	OpRemovePeer:                       {shape: shapeBody},
	OpAddAllowedEncryptionPublicKey:    {shape: shapeBody},
	OpRemoveAllowedEncryptionPublicKey: {shape: shapeBody},
	OpGetTunTap:                        {shape: shapeSingle, keyField: FieldName},
	OpGetMulticastInterfaces:           {resultKey: "multicast_interfaces", shape: shapeStrings},
	OpGetRoutes:                        {resultKey: "routes", shape: shapeStringMap},
	OpAddRoute:                         {shape: shapeBody},
	OpRemoveRoute:                      {shape: shapeBody},
	OpGetSourceSubnets:                 {resultKey: "source_subnets", shape: shapeStrings},
	OpAddSourceSubnet:                  {shape: shapeBody},
	OpRemoveSourceSubnet:               {shape: shapeBody},
	OpList:                             {resultKey: "list", shape: shapeKeyed, keyField: FieldName},
}

// TrackedOperation reports whether successful calls of name update Stats
// and run completion hooks. These are the read-only queries: getSelf,
// getPeers, getSwitchPeers, getSessions, getDHT,
// getAllowedEncryptionPublicKeys, getNodeInfo and DHTping.
func TrackedOperation(name string) bool {
	return operations[name].tracked
}

// trackedOperations lists the tracked operation names, sorted
func trackedOperations() []string {
	var names []string
	for name, op := range operations {
		if op.tracked {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// shapeResult applies the operation's shape to a response body
func (op operation) shapeResult(name string, body gjson.Result, now time.Time) (any, error) {
	result := body
	if op.resultKey != "" {
		result = body.Get(op.resultKey)
		if !result.Exists() {
			return nil, &ProtocolError{
				Operation: name,
				Message:   fmt.Sprintf("response has no %q field", op.resultKey),
				Raw:       truncateForError(body.Raw),
			}
		}
	}

	switch op.shape {
	case shapeSingle:
		rec, ok := singleRecord(result, op.keyField, now)
		if !ok {
			return nil, &ProtocolError{
				Operation: name,
				Message:   "response holds no record",
				Raw:       truncateForError(body.Raw),
			}
		}
		return rec, nil
	case shapeKeyed:
		return flattenKeyed(result, op.keyField, now), nil
	case shapeStrings:
		return stringList(result), nil
	case shapeStringMap:
		return stringMap(result), nil
	case shapePassthrough:
		// a node without NodeInfo answers null
		if result.Type == gjson.Null {
			return Record{}, nil
		}
		return toValue(result), nil
	case shapeBody:
		rec, _ := toValue(result).(Record)
		return Normalize(rec, now), nil
	default:
		return nil, fmt.Errorf("%s: unknown result shape %s", name, op.shape)
	}
}

// call dispatches name, shapes the body and, for tracked operations,
// updates Stats and runs completion hooks. Nothing is recorded unless
// shaping succeeds.
func (c *Client) call(ctx context.Context, name string, params Params) (any, error) {
	op, ok := operations[name]
	if !ok {
		return nil, fmt.Errorf("unknown operation: %s", name)
	}

	body, err := c.dispatch(ctx, name, params)
	if err != nil {
		return nil, err
	}

	result, err := op.shapeResult(name, body, c.now())
	if err != nil {
		return nil, err
	}

	if op.tracked {
		c.stats.merge(body)
		c.fireHooks(ctx, name, result)
	}
	return result, nil
}

func (c *Client) callRecord(ctx context.Context, name string, params Params) (Record, error) {
	result, err := c.call(ctx, name, params)
	if err != nil {
		return nil, err
	}
	rec, ok := result.(Record)
	if !ok {
		return nil, &ProtocolError{Operation: name, Message: fmt.Sprintf("expected an object result, got %T", result)}
	}
	return rec, nil
}

func (c *Client) callRecords(ctx context.Context, name string, params Params) ([]Record, error) {
	result, err := c.call(ctx, name, params)
	if err != nil {
		return nil, err
	}
	return result.([]Record), nil
}

func (c *Client) callStrings(ctx context.Context, name string, params Params) ([]string, error) {
	result, err := c.call(ctx, name, params)
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

func (c *Client) callChange(ctx context.Context, name string, params Params) (Change, error) {
	rec, err := c.callRecord(ctx, name, params)
	if err != nil {
		return Change{}, err
	}
	var change Change
	if err := rec.Decode(&change); err != nil {
		return Change{}, fmt.Errorf("%s: %w", name, err)
	}
	return change, nil
}

// requireParam rejects an empty value before anything is sent
func requireParam(operation, name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s: %s cannot be empty", operation, name)
	}
	return nil
}

// GetSelf returns the local node as one record with keys addr,
// box_pub_key, build_name, build_version, coords and subnet.
//
// Example:
//
//	self, err := client.GetSelf(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(self.String("addr"), self.String("coords"))
func (c *Client) GetSelf(ctx context.Context) (Record, error) {
	return c.callRecord(ctx, OpGetSelf, nil)
}

// GetPeers returns the active peerings, one record per peer keyed by addr.
// The first record typically refers to the local node. uptime is a
// time.Duration and faddr is derived from proto and endpoint.
func (c *Client) GetPeers(ctx context.Context) ([]Record, error) {
	return c.callRecords(ctx, OpGetPeers, nil)
}

// GetSwitchPeers returns the switch peers, one record per switch port with
// the port identifier under id.
func (c *Client) GetSwitchPeers(ctx context.Context) ([]Record, error) {
	return c.callRecords(ctx, OpGetSwitchPeers, nil)
}

// GetDHT returns the known DHT nodes. last_seen is a time.Time.
func (c *Client) GetDHT(ctx context.Context) ([]Record, error) {
	return c.callRecords(ctx, OpGetDHT, nil)
}

// GetSessions returns the open sessions with other nodes
func (c *Client) GetSessions(ctx context.Context) ([]Record, error) {
	return c.callRecords(ctx, OpGetSessions, nil)
}

// GetAllowedEncryptionPublicKeys returns the allowed box public keys. An
// empty list means all connections are permitted.
func (c *Client) GetAllowedEncryptionPublicKeys(ctx context.Context) ([]string, error) {
	return c.callStrings(ctx, OpGetAllowedEncryptionPublicKeys, nil)
}

// DHTPing asks the node with boxPubKey at coords for DHT information.
// target is optional; when set the remote node is asked about that address.
//
// Example:
//
//	nodes, err := client.DHTPing(ctx, key, "[1 2 3]", "")
func (c *Client) DHTPing(ctx context.Context, boxPubKey, coords, target string) ([]Record, error) {
	if err := requireParam(OpDHTPing, "box_pub_key", boxPubKey); err != nil {
		return nil, err
	}
	if err := requireParam(OpDHTPing, "coords", coords); err != nil {
		return nil, err
	}

	params := Params{"box_pub_key": boxPubKey, "coords": coords}
	if target != "" {
		params["target"] = target
	}
	return c.callRecords(ctx, OpDHTPing, params)
}

// GetNodeInfo asks the node with boxPubKey at coords for its NodeInfo.
// With both empty the local node's NodeInfo is returned. The result is
// passed through as decoded, without normalization; a null NodeInfo is an
// empty Record.
func (c *Client) GetNodeInfo(ctx context.Context, boxPubKey, coords string) (Record, error) {
	if (boxPubKey == "") != (coords == "") {
		return nil, fmt.Errorf("%s: box_pub_key and coords must be given together", OpGetNodeInfo)
	}

	var params Params
	if boxPubKey != "" {
		params = Params{"box_pub_key": boxPubKey, "coords": coords}
	}
	return c.callRecord(ctx, OpGetNodeInfo, params)
}

// AddPeer adds a peer given as a URI, e.g. "tcp://a.b.c.d:e"
func (c *Client) AddPeer(ctx context.Context, uri string) (Change, error) {
	if err := requireParam(OpAddPeer, "uri", uri); err != nil {
		return Change{}, err
	}
	return c.callChange(ctx, OpAddPeer, Params{"uri": uri})
}

// RemovePeer removes the peer on switch port port (see GetPeers)
func (c *Client) RemovePeer(ctx context.Context, port int) (Change, error) {
	if port < 0 {
		return Change{}, fmt.Errorf("%s: invalid port: %d", OpRemovePeer, port)
	}
	return c.callChange(ctx, OpRemovePeer, Params{"port": port})
}

// AddAllowedEncryptionPublicKey allows connections from boxPubKey
func (c *Client) AddAllowedEncryptionPublicKey(ctx context.Context, boxPubKey string) (Change, error) {
	if err := requireParam(OpAddAllowedEncryptionPublicKey, "box_pub_key", boxPubKey); err != nil {
		return Change{}, err
	}
	return c.callChange(ctx, OpAddAllowedEncryptionPublicKey, Params{"box_pub_key": boxPubKey})
}

// RemoveAllowedEncryptionPublicKey removes boxPubKey from the allowed keys
func (c *Client) RemoveAllowedEncryptionPublicKey(ctx context.Context, boxPubKey string) (Change, error) {
	if err := requireParam(OpRemoveAllowedEncryptionPublicKey, "box_pub_key", boxPubKey); err != nil {
		return Change{}, err
	}
	return c.callChange(ctx, OpRemoveAllowedEncryptionPublicKey, Params{"box_pub_key": boxPubKey})
}

// GetTunTap returns the TUN/TAP adapter as one record with keys name,
// tap_mode and mtu.
func (c *Client) GetTunTap(ctx context.Context) (Record, error) {
	return c.callRecord(ctx, OpGetTunTap, nil)
}

// GetMulticastInterfaces returns the interfaces multicast peering is
// enabled on. An empty list means multicast peering is disabled.
func (c *Client) GetMulticastInterfaces(ctx context.Context) ([]string, error) {
	return c.callStrings(ctx, OpGetMulticastInterfaces, nil)
}

// GetRoutes returns the crypto-key routes, subnet to public key
func (c *Client) GetRoutes(ctx context.Context) (map[string]string, error) {
	result, err := c.call(ctx, OpGetRoutes, nil)
	if err != nil {
		return nil, err
	}
	return result.(map[string]string), nil
}

// AddRoute routes subnet to the node with boxPubKey
func (c *Client) AddRoute(ctx context.Context, subnet, boxPubKey string) (Change, error) {
	if err := requireParam(OpAddRoute, "subnet", subnet); err != nil {
		return Change{}, err
	}
	if err := requireParam(OpAddRoute, "box_pub_key", boxPubKey); err != nil {
		return Change{}, err
	}
	return c.callChange(ctx, OpAddRoute, Params{"subnet": subnet, "box_pub_key": boxPubKey})
}

// RemoveRoute removes the route of subnet to boxPubKey
func (c *Client) RemoveRoute(ctx context.Context, subnet, boxPubKey string) (Change, error) {
	if err := requireParam(OpRemoveRoute, "subnet", subnet); err != nil {
		return Change{}, err
	}
	if err := requireParam(OpRemoveRoute, "box_pub_key", boxPubKey); err != nil {
		return Change{}, err
	}
	return c.callChange(ctx, OpRemoveRoute, Params{"subnet": subnet, "box_pub_key": boxPubKey})
}

// GetSourceSubnets returns the allowed crypto-key routing source subnets
func (c *Client) GetSourceSubnets(ctx context.Context) ([]string, error) {
	return c.callStrings(ctx, OpGetSourceSubnets, nil)
}

// AddSourceSubnet allows traffic from subnet
func (c *Client) AddSourceSubnet(ctx context.Context, subnet string) (Change, error) {
	if err := requireParam(OpAddSourceSubnet, "subnet", subnet); err != nil {
		return Change{}, err
	}
	return c.callChange(ctx, OpAddSourceSubnet, Params{"subnet": subnet})
}

// RemoveSourceSubnet stops allowing traffic from subnet
func (c *Client) RemoveSourceSubnet(ctx context.Context, subnet string) (Change, error) {
	if err := requireParam(OpRemoveSourceSubnet, "subnet", subnet); err != nil {
		return Change{}, err
	}
	return c.callChange(ctx, OpRemoveSourceSubnet, Params{"subnet": subnet})
}

// List returns the operations the daemon offers, one record per operation
// with its name and its parameter names under "fields".
func (c *Client) List(ctx context.Context) ([]Record, error) {
	return c.callRecords(ctx, OpList, nil)
}

// GetTransitTraffic sums bytes_sent and bytes_recvd over all switch peers
func (c *Client) GetTransitTraffic(ctx context.Context) (Traffic, error) {
	recs, err := c.GetSwitchPeers(ctx)
	if err != nil {
		return Traffic{}, err
	}

	var traffic Traffic
	for _, rec := range recs {
		traffic.Sent += uint64(max(rec.Int("bytes_sent"), 0))
		traffic.Received += uint64(max(rec.Int("bytes_recvd"), 0))
	}
	return traffic, nil
}

// GetNumOfNodes returns the number of switch peers
func (c *Client) GetNumOfNodes(ctx context.Context) (int, error) {
	recs, err := c.GetSwitchPeers(ctx)
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}
