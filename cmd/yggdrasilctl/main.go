// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Command yggdrasilctl queries and configures a Yggdrasil node through its
// admin API.
//
//	yggdrasilctl peers
//	yggdrasilctl --host unix:///var/run/yggdrasil.sock self
//	yggdrasilctl peer add tcp://203.0.113.7:443
package main

import (
	"errors"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/jorektheglitch/yggdrasilctl"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment variables consulted for flag defaults
const (
	envHost = "YGGDRASILCTL_HOST"
	envPort = "YGGDRASILCTL_PORT"
)

const defaultTimeout = 10 * time.Second

// options holds the global flags
type options struct {
	host    string
	port    int
	network string
	timeout time.Duration
	json    bool
	verbose bool
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree
func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "yggdrasilctl",
		Short:         "Query and configure a Yggdrasil node",
		Long:          "yggdrasilctl talks to the admin API of a running Yggdrasil node.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.host, "host", envOr(envHost, yggdrasilctl.DefaultHost),
		"admin endpoint: host, host:port, tcp://host:port or unix:///path ($"+envHost+")")
	flags.IntVar(&opts.port, "port", envIntOr(envPort, yggdrasilctl.DefaultPort),
		"admin TCP port ($"+envPort+")")
	flags.StringVar(&opts.network, "network", "", "transport network: tcp or unix (default from --host)")
	flags.DurationVar(&opts.timeout, "timeout", defaultTimeout, "timeout of one admin request")
	flags.BoolVar(&opts.json, "json", false, "print JSON instead of tables")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log admin traffic to stderr")

	root.AddCommand(
		newSelfCmd(opts),
		newPeersCmd(opts),
		newSwitchPeersCmd(opts),
		newDHTCmd(opts),
		newSessionsCmd(opts),
		newNodeInfoCmd(opts),
		newPingCmd(opts),
		newTunTapCmd(opts),
		newMulticastCmd(opts),
		newRoutesCmd(opts),
		newSubnetsCmd(opts),
		newAllowedKeysCmd(opts),
		newTrafficCmd(opts),
		newListCmd(opts),
		newPeerCmd(opts),
		newRouteCmd(opts),
		newSubnetCmd(opts),
		newAllowedKeyCmd(opts),
	)
	return root
}

// connect creates a client from the global flags. The returned function
// releases it.
func (o *options) connect(cmd *cobra.Command) (*yggdrasilctl.Client, func(), error) {
	clientOpts := []func(*yggdrasilctl.Client){
		yggdrasilctl.Port(o.port),
		yggdrasilctl.OperationTimeout(o.timeout),
	}
	if o.network != "" {
		clientOpts = append(clientOpts, yggdrasilctl.Network(o.network))
	}

	var zl *zap.Logger
	if o.verbose {
		zl = newVerboseLogger(cmd.ErrOrStderr())
		clientOpts = append(clientOpts,
			yggdrasilctl.WithLogger(yggdrasilctl.NewZapLogger(zl)),
			yggdrasilctl.WithPrettyPrintLogs(true))
	}

	client, err := yggdrasilctl.NewClient(o.host, clientOpts...)
	if err != nil {
		return nil, nil, err
	}
	return client, func() {
		_ = client.Close()
		if zl != nil {
			_ = zl.Sync()
		}
	}, nil
}

// newVerboseLogger logs everything to w in zap's console format
func newVerboseLogger(w io.Writer) *zap.Logger {
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(w), zapcore.DebugLevel)
	return zap.New(core)
}

// printError writes err to w, pointing out an unreachable node
func printError(w io.Writer, err error) {
	var msg string
	var apiErr *yggdrasilctl.APIError
	switch {
	case errors.Is(err, yggdrasilctl.ErrUnreachable):
		msg = "cannot reach the admin endpoint, is yggdrasil running?\n" + err.Error()
	case errors.As(err, &apiErr):
		msg = "node rejected " + apiErr.Operation + ": " + apiErr.Message()
	default:
		msg = err.Error()
	}
	_, _ = io.WriteString(w, pterm.Error.Sprintln(msg))
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
