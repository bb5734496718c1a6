// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

const (
	// Command line option keys
	ConfigFileKey = "config-file"
	VersionKey    = "version"

	// Top-level configuration keys
	LogLevelKey        = "log-level"
	RPCEndpointKey     = "rpc-endpoint"
	GatewayEndpointKey = "gateway-endpoint"
	PrivateKeyKey      = "private-key"
	CredentialFileKey  = "credential-file"
	MetricsPortKey     = "metrics-port"
	ContractsKey       = "contracts"
)
