// Package config loads SDK settings from a config file, environment
// variables and command line flags.
package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pilacorp/go-did-registry-sdk/contracts/didregistry"
	"github.com/pilacorp/go-did-registry-sdk/ledger"
	"github.com/pilacorp/go-did-registry-sdk/log"
	"github.com/pilacorp/go-did-registry-sdk/vdrerr"
)

// Default values
const (
	DefaultRPC                = "http://127.0.0.1:8545"
	DefaultChainID            = 1337
	DefaultDidRegistryAddress = "0x0000000000000000000000000000000000003333"
	DefaultGasLimit           = ledger.DefaultGasLimit
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
)

// Environment variable names
const (
	EnvRPC                = "VDR_RPC_URL"
	EnvChainID            = "VDR_CHAIN_ID"
	EnvDidRegistryAddress = "VDR_DID_REGISTRY_ADDRESS"
	EnvGasLimit           = "VDR_GAS_LIMIT"
	EnvGasPrice           = "VDR_GAS_PRICE"
	EnvLogLevel           = "VDR_LOG_LEVEL"
	EnvLogFormat          = "VDR_LOG_FORMAT"
)

// Config keys, as used in config files.
const (
	KeyRPC                = "rpcUrl"
	KeyChainID            = "chainId"
	KeyDidRegistryAddress = "contracts.didRegistry"
	KeyGasLimit           = "gasLimit"
	KeyGasPrice           = "gasPrice"
	KeyLogLevel           = "log.level"
	KeyLogFormat          = "log.format"
)

// Config is the merged configuration.
type Config struct {
	RPCURL    string    `mapstructure:"rpcUrl"`
	ChainID   int64     `mapstructure:"chainId"`
	Contracts Contracts `mapstructure:"contracts"`
	GasLimit  uint64    `mapstructure:"gasLimit"`
	// GasPrice is a decimal wei amount. Empty means the node suggests one.
	GasPrice string     `mapstructure:"gasPrice"`
	Log      log.Config `mapstructure:"log"`
}

// Contracts holds deployed contract addresses.
type Contracts struct {
	DidRegistry string `mapstructure:"didRegistry"`
}

var envBindings = map[string]string{
	KeyRPC:                EnvRPC,
	KeyChainID:            EnvChainID,
	KeyDidRegistryAddress: EnvDidRegistryAddress,
	KeyGasLimit:           EnvGasLimit,
	KeyGasPrice:           EnvGasPrice,
	KeyLogLevel:           EnvLogLevel,
	KeyLogFormat:          EnvLogFormat,
}

// Load reads configuration with the precedence flags > environment > file >
// defaults. file may be empty. flags may be nil; flags that are bound must be
// named after their key with dashes, e.g. "rpc-url" and "log-level".
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault(KeyRPC, DefaultRPC)
	v.SetDefault(KeyChainID, DefaultChainID)
	v.SetDefault(KeyDidRegistryAddress, DefaultDidRegistryAddress)
	v.SetDefault(KeyGasLimit, DefaultGasLimit)
	v.SetDefault(KeyGasPrice, "")
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFormat, DefaultLogFormat)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if flags != nil {
		for key := range envBindings {
			if f := flags.Lookup(flagName(key)); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", f.Name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Ledger converts the configuration into a validated ledger.Config.
func (c *Config) Ledger() (*ledger.Config, error) {
	const op = "ledgerConfig"

	opts := []ledger.Option{
		ledger.WithRPCURL(c.RPCURL),
		ledger.WithChainID(c.ChainID),
		ledger.WithContract(didregistry.ContractName, c.Contracts.DidRegistry),
		ledger.WithGasLimit(c.GasLimit),
	}
	if c.GasPrice != "" {
		price, ok := new(big.Int).SetString(c.GasPrice, 10)
		if !ok {
			return nil, vdrerr.Validation(op, "gas price %q is not a decimal integer", c.GasPrice)
		}
		opts = append(opts, ledger.WithGasPrice(price))
	}

	cfg := ledger.NewConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// flagName maps "log.level" to "log-level" and "rpcUrl" to "rpc-url".
func flagName(key string) string {
	var b strings.Builder
	for i, r := range key {
		switch {
		case r == '.':
			b.WriteByte('-')
		case r >= 'A' && r <= 'Z':
			if i > 0 && key[i-1] != '.' {
				b.WriteByte('-')
			}
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
