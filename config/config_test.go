package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleTOML = `
atomic_swap_contract_address = "0x000000000000000000000000000000000000aa"
ethereum_rpc_url = "http://127.0.0.1:8545"

[bitcoin_rpc]
url = "127.0.0.1:18443"
auth = "user:pass"
network = "regtest"

[circom]
witness_calculator_path = "/artifacts/circuit.wasm"
proving_key_path = "/artifacts/proving.zkey"
verification_key_path = "/artifacts/verification.json"

[swap_params]
sats_to_swap = 100000
gwei_to_swap = 1000000
bitcoin_csv_delay = 144
ethereum_timelock_secs = 3600

[alice]
bitcoin_private_key = "aa"
ethereum_private_key = "bb"

[bob]
bitcoin_private_key = "cc"
ethereum_private_key = "dd"
`

func writeTempConfig(t *testing.T, name, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_TOML(t *testing.T) {
	path := writeTempConfig(t, "config.toml", sampleTOML)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "0x000000000000000000000000000000000000aa", cfg.AtomicSwapContractAddress)
	require.Equal(t, "regtest", cfg.BitcoinRPC.Network)
	require.Equal(t, uint64(100000), cfg.SwapParams.SatsToSwap)
	require.Equal(t, uint32(144), cfg.SwapParams.BitcoinCSVDelay)
	require.Equal(t, "/artifacts/circuit.wasm", cfg.Circom.WitnessCalculatorPath)
}

func TestLoad_MissingRequiredField(t *testing.T) {
	path := writeTempConfig(t, "config.json", `{"ethereum_rpc_url": "http://x"}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.toml")
	require.Error(t, err)
}
