// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config loads and validates the client configuration, including the
// per-chain salary contract registry.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/luxfi/geth/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultLogLevel    = "info"
	defaultMetricsPort = 9091
)

// Config is the full client configuration.
type Config struct {
	LogLevel        string            `mapstructure:"log-level"`
	RPCEndpoint     string            `mapstructure:"rpc-endpoint"`
	GatewayEndpoint string            `mapstructure:"gateway-endpoint"`
	PrivateKey      string            `mapstructure:"private-key"`
	CredentialFile  string            `mapstructure:"credential-file"`
	MetricsPort     uint16            `mapstructure:"metrics-port"`
	Contracts       map[string]string `mapstructure:"contracts"`

	// contractsByChain is built during validation.
	contractsByChain map[uint64]common.Address
}

// NewConfig builds and validates a Config from a viper instance.
func NewConfig(v *viper.Viper) (Config, error) {
	cfg, err := buildConfig(v)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("failed to validate configuration: %w", err)
	}
	return cfg, nil
}

func buildConfig(v *viper.Viper) (Config, error) {
	setDefaultConfigValues(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal viper config: %w", err)
	}
	return cfg, nil
}

func setDefaultConfigValues(v *viper.Viper) {
	v.SetDefault(LogLevelKey, defaultLogLevel)
	v.SetDefault(MetricsPortKey, defaultMetricsPort)
}

// BuildViper constructs the viper instance. The config file must be provided
// via the command line flag or environment variable; all config keys may be
// provided via config file or environment variable.
func BuildViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.AutomaticEnv()
	// Map flag names to env var names. Flags are capitalized, and hyphens
	// are replaced with underscores.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	if v.GetString(ConfigFileKey) == "" {
		return nil, fmt.Errorf("config file not set")
	}

	v.SetConfigFile(v.GetString(ConfigFileKey))
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return v, nil
}

// Validate checks required fields and parses the contract registry.
func (c *Config) Validate() error {
	if c.RPCEndpoint == "" {
		return fmt.Errorf("%q is required", RPCEndpointKey)
	}
	if c.GatewayEndpoint == "" {
		return fmt.Errorf("%q is required", GatewayEndpointKey)
	}
	if len(c.Contracts) == 0 {
		return fmt.Errorf("%q must list at least one deployment", ContractsKey)
	}

	c.contractsByChain = make(map[uint64]common.Address, len(c.Contracts))
	for rawChainID, rawAddr := range c.Contracts {
		chainID, err := strconv.ParseUint(rawChainID, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid chain id %q: %w", rawChainID, err)
		}
		if !common.IsHexAddress(rawAddr) {
			return fmt.Errorf("invalid contract address %q for chain %d", rawAddr, chainID)
		}
		c.contractsByChain[chainID] = common.HexToAddress(rawAddr)
	}
	return nil
}

// ContractAddress resolves the salary contract deployed on chainID.
func (c *Config) ContractAddress(chainID uint64) (common.Address, bool) {
	addr, ok := c.contractsByChain[chainID]
	return addr, ok
}
