// Package config loads the swap core's configuration from a TOML,
// JSON, or YAML file (format auto-detected from the extension, same
// as the rest of the schema in spec.md §6).
package config

import (
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/distributed-lab/taproot-atomic-swap/swaperr"
)

// Config is the root configuration object, matching the schema of
// spec.md §6 and the field names of the reference implementation's
// config.rs (atomic_swap_contract_address, bitcoin_rpc, circom,
// swap_params, alice/bob).
type Config struct {
	AtomicSwapContractAddress string `mapstructure:"atomic_swap_contract_address"`
	EthereumRPCURL            string `mapstructure:"ethereum_rpc_url"`
	EthereumWSRPCURL          string `mapstructure:"ethereum_ws_rpc_url"`

	BitcoinRPC  BitcoinRPCConfig `mapstructure:"bitcoin_rpc"`
	Circom      CircomConfig     `mapstructure:"circom"`
	SwapParams  SwapParams       `mapstructure:"swap_params"`
	Alice       WalletsConfig    `mapstructure:"alice"`
	Bob         WalletsConfig    `mapstructure:"bob"`
}

// BitcoinRPCConfig describes the Bitcoin Core RPC endpoint. Per spec
// Open Question 2, StartBlockTimestamp and MinConfirmations are
// optional deployment knobs the core does not mandate. Both are parsed
// but not read by the watcher or the coordinator, so no confirmation
// depth is enforced whatever their values.
type BitcoinRPCConfig struct {
	URL                 string `mapstructure:"url"`
	Auth                string `mapstructure:"auth"`
	Network             string `mapstructure:"network"`
	StartBlockTimestamp int64  `mapstructure:"start_block_timestamp"`
	MinConfirmations    int    `mapstructure:"min_confirmations"`
}

// CircomConfig points to the on-disk zk artifacts (C2/C3/C4 inputs).
type CircomConfig struct {
	WitnessCalculatorPath string `mapstructure:"witness_calculator_path"`
	ProvingKeyPath        string `mapstructure:"proving_key_path"`
	VerificationKeyPath   string `mapstructure:"verification_key_path"`
}

// SwapParams are the out-of-band agreed swap parameters (spec §4.8).
type SwapParams struct {
	SatsToSwap           uint64 `mapstructure:"sats_to_swap"`
	GweiToSwap           uint64 `mapstructure:"gwei_to_swap"`
	BitcoinCSVDelay      uint32 `mapstructure:"bitcoin_csv_delay"`
	EthereumTimelockSecs uint64 `mapstructure:"ethereum_timelock_secs"`
}

// WalletsConfig carries demo-only inline private keys; a production
// deployment separates roles across processes per spec §6.
type WalletsConfig struct {
	BitcoinPrivateKey  string `mapstructure:"bitcoin_private_key"`
	EthereumPrivateKey string `mapstructure:"ethereum_private_key"`
}

// Load reads and parses the configuration file at path. The format is
// inferred from the file extension (.toml, .json, .yaml/.yml),
// matching viper's SetConfigType auto-detection.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext != "" {
		v.SetConfigType(ext)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, swaperr.New(swaperr.KindConfig, "read config file", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, swaperr.New(swaperr.KindConfig, "decode config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the minimal structural requirements the core
// depends on before any chain interaction begins.
func (c *Config) Validate() error {
	if c.AtomicSwapContractAddress == "" {
		return swaperr.New(swaperr.KindConfig, "atomic_swap_contract_address is required", nil)
	}
	if c.EthereumRPCURL == "" && c.EthereumWSRPCURL == "" {
		return swaperr.New(swaperr.KindConfig, "ethereum_rpc_url or ethereum_ws_rpc_url is required", nil)
	}
	if c.BitcoinRPC.URL == "" {
		return swaperr.New(swaperr.KindConfig, "bitcoin_rpc.url is required", nil)
	}
	if c.Circom.WitnessCalculatorPath == "" || c.Circom.ProvingKeyPath == "" || c.Circom.VerificationKeyPath == "" {
		return swaperr.New(swaperr.KindConfig, "circom artifact paths are required", nil)
	}
	if c.SwapParams.SatsToSwap == 0 || c.SwapParams.GweiToSwap == 0 {
		return swaperr.New(swaperr.KindConfig, "swap_params.sats_to_swap and gwei_to_swap must be non-zero", nil)
	}
	return nil
}
