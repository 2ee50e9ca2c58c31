// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package yggdrasilctl

import "fmt"

// Network constants for the admin endpoint
const (
	// NetworkTCP reaches the admin API over TCP (default)
	NetworkTCP = "tcp"

	// NetworkUnix reaches the admin API over a unix domain socket
	NetworkUnix = "unix"
)

// ValidNetworks contains the supported transport networks
var ValidNetworks = []string{
	NetworkTCP,
	NetworkUnix,
}

// ValidateNetwork checks if network is supported
//
// Example:
//
//	if err := yggdrasilctl.ValidateNetwork("unix"); err != nil {
//	    log.Fatal(err)
//	}
func ValidateNetwork(network string) error {
	for _, valid := range ValidNetworks {
		if network == valid {
			return nil
		}
	}
	return fmt.Errorf("unsupported network: %q (must be tcp or unix)", network)
}
