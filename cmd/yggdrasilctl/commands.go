// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/jorektheglitch/yggdrasilctl"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// runE adapts fn into a cobra RunE that owns a client for the call
func (o *options) runE(fn func(ctx context.Context, cmd *cobra.Command, client *yggdrasilctl.Client, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		client, release, err := o.connect(cmd)
		if err != nil {
			return err
		}
		defer release()
		return fn(cmd.Context(), cmd, client, args)
	}
}

func newSelfCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "self",
		Short: "Show the local node",
		Args:  cobra.NoArgs,
		RunE: o.runE(func(ctx context.Context, cmd *cobra.Command, client *yggdrasilctl.Client, _ []string) error {
			self, err := client.GetSelf(ctx)
			if err != nil {
				return err
			}
			return o.printRecord(cmd.OutOrStdout(), self)
		}),
	}
}

func newPeersCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "peers",
		Short: "List active peerings",
		Args:  cobra.NoArgs,
		RunE: o.runE(func(ctx context.Context, cmd *cobra.Command, client *yggdrasilctl.Client, _ []string) error {
			peers, err := client.GetPeers(ctx)
			if err != nil {
				return err
			}
			return o.printRecords(cmd.OutOrStdout(), peers, []column{
				textColumn("Port", "port"),
				textColumn("Address", yggdrasilctl.FieldAddr),
				textColumn("Remote", yggdrasilctl.FieldFAddr),
				textColumn("Uptime", yggdrasilctl.FieldUptime),
				bytesColumn("Sent", "bytes_sent"),
				bytesColumn("Received", "bytes_recvd"),
			})
		}),
	}
}

func newSwitchPeersCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "switchpeers",
		Short: "List switch peers",
		Args:  cobra.NoArgs,
		RunE: o.runE(func(ctx context.Context, cmd *cobra.Command, client *yggdrasilctl.Client, _ []string) error {
			peers, err := client.GetSwitchPeers(ctx)
			if err != nil {
				return err
			}
			return o.printRecords(cmd.OutOrStdout(), peers, []column{
				textColumn("ID", yggdrasilctl.FieldID),
				textColumn("Address", "ip"),
				textColumn("Remote", yggdrasilctl.FieldFAddr),
				textColumn("Coords", "coords"),
				bytesColumn("Sent", "bytes_sent"),
				bytesColumn("Received", "bytes_recvd"),
			})
		}),
	}
}

func newDHTCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dht",
		Short: "List known DHT nodes",
		Args:  cobra.NoArgs,
		RunE: o.runE(func(ctx context.Context, cmd *cobra.Command, client *yggdrasilctl.Client, _ []string) error {
			dht, err := client.GetDHT(ctx)
			if err != nil {
				return err
			}
			return o.printRecords(cmd.OutOrStdout(), dht, []column{
				textColumn("Address", yggdrasilctl.FieldAddr),
				textColumn("Coords", "coords"),
				textColumn("Last seen", yggdrasilctl.FieldLastSeen),
			})
		}),
	}
}

func newSessionsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List open sessions",
		Args:  cobra.NoArgs,
		RunE: o.runE(func(ctx context.Context, cmd *cobra.Command, client *yggdrasilctl.Client, _ []string) error {
			sessions, err := client.GetSessions(ctx)
			if err != nil {
				return err
			}
			return o.printRecords(cmd.OutOrStdout(), sessions, []column{
				textColumn("Address", yggdrasilctl.FieldAddr),
				textColumn("Coords", "coords"),
				textColumn("MTU", "mtu"),
				textColumn("Uptime", yggdrasilctl.FieldUptime),
				bytesColumn("Sent", "bytes_sent"),
				bytesColumn("Received", "bytes_recvd"),
			})
		}),
	}
}

func newNodeInfoCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "nodeinfo [box_pub_key coords]",
		Short: "Show the NodeInfo of the local or a remote node",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("accepts no arguments or box_pub_key and coords, received %d", len(args))
			}
			return nil
		},
		RunE: o.runE(func(ctx context.Context, cmd *cobra.Command, client *yggdrasilctl.Client, args []string) error {
			var key, coords string
			if len(args) == 2 {
				key, coords = args[0], args[1]
			}
			info, err := client.GetNodeInfo(ctx, key, coords)
			if err != nil {
				return err
			}
			// NodeInfo is free-form, so it is always printed as JSON
			return printJSON(cmd.OutOrStdout(), displayValue(info))
		}),
	}
}

func newPingCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ping <box_pub_key> <coords> [target]",
		Short: "Ask a node for DHT information",
		Args:  cobra.RangeArgs(2, 3),
		RunE: o.runE(func(ctx context.Context, cmd *cobra.Command, client *yggdrasilctl.Client, args []string) error {
			var target string
			if len(args) == 3 {
				target = args[2]
			}
			nodes, err := client.DHTPing(ctx, args[0], args[1], target)
			if err != nil {
				return err
			}
			return o.printRecords(cmd.OutOrStdout(), nodes, []column{
				textColumn("Address", yggdrasilctl.FieldAddr),
				textColumn("Coords", "coords"),
				textColumn("Key", "box_pub_key"),
			})
		}),
	}
}

func newTunTapCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tuntap",
		Short: "Show the TUN/TAP adapter",
		Args:  cobra.NoArgs,
		RunE: o.runE(func(ctx context.Context, cmd *cobra.Command, client *yggdrasilctl.Client, _ []string) error {
			tun, err := client.GetTunTap(ctx)
			if err != nil {
				return err
			}
			return o.printRecord(cmd.OutOrStdout(), tun)
		}),
	}
}

func newMulticastCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "multicast",
		Short: "List multicast peering interfaces",
		Args:  cobra.NoArgs,
		RunE: o.runE(func(ctx context.Context, cmd *cobra.Command, client *yggdrasilctl.Client, _ []string) error {
			ifaces, err := client.GetMulticastInterfaces(ctx)
			if err != nil {
				return err
			}
			return o.printStrings(cmd.OutOrStdout(), "Interface", ifaces, "multicast peering is disabled")
		}),
	}
}

func newRoutesCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List crypto-key routes",
		Args:  cobra.NoArgs,
		RunE: o.runE(func(ctx context.Context, cmd *cobra.Command, client *yggdrasilctl.Client, _ []string) error {
			routes, err := client.GetRoutes(ctx)
			if err != nil {
				return err
			}
			if o.json {
				return printJSON(cmd.OutOrStdout(), routes)
			}
			if len(routes) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "no routes")
				return err
			}

			subnets := make([]string, 0, len(routes))
			for subnet := range routes {
				subnets = append(subnets, subnet)
			}
			sort.Strings(subnets)

			data := pterm.TableData{{"Subnet", "Key"}}
			for _, subnet := range subnets {
				data = append(data, []string{subnet, routes[subnet]})
			}
			return renderTable(cmd.OutOrStdout(), data)
		}),
	}
}

func newSubnetsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "subnets",
		Short: "List allowed source subnets",
		Args:  cobra.NoArgs,
		RunE: o.runE(func(ctx context.Context, cmd *cobra.Command, client *yggdrasilctl.Client, _ []string) error {
			subnets, err := client.GetSourceSubnets(ctx)
			if err != nil {
				return err
			}
			return o.printStrings(cmd.OutOrStdout(), "Subnet", subnets, "no source subnets")
		}),
	}
}

func newAllowedKeysCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "allowedkeys",
		Short: "List allowed encryption public keys",
		Args:  cobra.NoArgs,
		RunE: o.runE(func(ctx context.Context, cmd *cobra.Command, client *yggdrasilctl.Client, _ []string) error {
			keys, err := client.GetAllowedEncryptionPublicKeys(ctx)
			if err != nil {
				return err
			}
			return o.printStrings(cmd.OutOrStdout(), "Key", keys, "all keys are allowed")
		}),
	}
}

func newTrafficCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "traffic",
		Short: "Show transit traffic over all switch peers",
		Args:  cobra.NoArgs,
		RunE: o.runE(func(ctx context.Context, cmd *cobra.Command, client *yggdrasilctl.Client, _ []string) error {
			traffic, err := client.GetTransitTraffic(ctx)
			if err != nil {
				return err
			}
			if o.json {
				return printJSON(cmd.OutOrStdout(), traffic)
			}
			return renderTable(cmd.OutOrStdout(), pterm.TableData{
				{"Sent", "Received"},
				{humanBytes(float64(traffic.Sent)), humanBytes(float64(traffic.Received))},
			})
		}),
	}
}

func newListCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the operations the node offers",
		Args:  cobra.NoArgs,
		RunE: o.runE(func(ctx context.Context, cmd *cobra.Command, client *yggdrasilctl.Client, _ []string) error {
			ops, err := client.List(ctx)
			if err != nil {
				return err
			}
			return o.printRecords(cmd.OutOrStdout(), ops, []column{
				textColumn("Operation", yggdrasilctl.FieldName),
				textColumn("Fields", "fields"),
			})
		}),
	}
}

func newPeerCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peer",
		Short: "Add or remove peers",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <uri>",
			Short: "Add a peer, e.g. tcp://203.0.113.7:443",
			Args:  cobra.ExactArgs(1),
			RunE: o.runE(func(ctx context.Context, cmd *cobra.Command, client *yggdrasilctl.Client, args []string) error {
				change, err := client.AddPeer(ctx, args[0])
				if err != nil {
					return err
				}
				return o.printChange(cmd.OutOrStdout(), change)
			}),
		},
		&cobra.Command{
			Use:   "remove <port>",
			Short: "Remove the peer on a switch port (see peers)",
			Args:  cobra.ExactArgs(1),
			RunE: o.runE(func(ctx context.Context, cmd *cobra.Command, client *yggdrasilctl.Client, args []string) error {
				port, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid port %q: %w", args[0], err)
				}
				change, err := client.RemovePeer(ctx, port)
				if err != nil {
					return err
				}
				return o.printChange(cmd.OutOrStdout(), change)
			}),
		},
	)
	return cmd
}

func newRouteCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Add or remove crypto-key routes",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <subnet> <box_pub_key>",
			Short: "Route a subnet to a node",
			Args:  cobra.ExactArgs(2),
			RunE: o.runE(func(ctx context.Context, cmd *cobra.Command, client *yggdrasilctl.Client, args []string) error {
				change, err := client.AddRoute(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return o.printChange(cmd.OutOrStdout(), change)
			}),
		},
		&cobra.Command{
			Use:   "remove <subnet> <box_pub_key>",
			Short: "Remove a route",
			Args:  cobra.ExactArgs(2),
			RunE: o.runE(func(ctx context.Context, cmd *cobra.Command, client *yggdrasilctl.Client, args []string) error {
				change, err := client.RemoveRoute(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return o.printChange(cmd.OutOrStdout(), change)
			}),
		},
	)
	return cmd
}

func newSubnetCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subnet",
		Short: "Add or remove allowed source subnets",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <subnet>",
			Short: "Allow traffic from a subnet",
			Args:  cobra.ExactArgs(1),
			RunE: o.runE(func(ctx context.Context, cmd *cobra.Command, client *yggdrasilctl.Client, args []string) error {
				change, err := client.AddSourceSubnet(ctx, args[0])
				if err != nil {
					return err
				}
				return o.printChange(cmd.OutOrStdout(), change)
			}),
		},
		&cobra.Command{
			Use:   "remove <subnet>",
			Short: "Stop allowing traffic from a subnet",
			Args:  cobra.ExactArgs(1),
			RunE: o.runE(func(ctx context.Context, cmd *cobra.Command, client *yggdrasilctl.Client, args []string) error {
				change, err := client.RemoveSourceSubnet(ctx, args[0])
				if err != nil {
					return err
				}
				return o.printChange(cmd.OutOrStdout(), change)
			}),
		},
	)
	return cmd
}

func newAllowedKeyCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allowedkey",
		Short: "Add or remove allowed encryption public keys",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <box_pub_key>",
			Short: "Allow connections from a key",
			Args:  cobra.ExactArgs(1),
			RunE: o.runE(func(ctx context.Context, cmd *cobra.Command, client *yggdrasilctl.Client, args []string) error {
				change, err := client.AddAllowedEncryptionPublicKey(ctx, args[0])
				if err != nil {
					return err
				}
				return o.printChange(cmd.OutOrStdout(), change)
			}),
		},
		&cobra.Command{
			Use:   "remove <box_pub_key>",
			Short: "Remove a key from the allowed keys",
			Args:  cobra.ExactArgs(1),
			RunE: o.runE(func(ctx context.Context, cmd *cobra.Command, client *yggdrasilctl.Client, args []string) error {
				change, err := client.RemoveAllowedEncryptionPublicKey(ctx, args[0])
				if err != nil {
					return err
				}
				return o.printChange(cmd.OutOrStdout(), change)
			}),
		},
	)
	return cmd
}
