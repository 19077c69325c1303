package taproot

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/distributed-lab/taproot-atomic-swap/swaperr"
)

func genKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return priv
}

func TestBuildEscrowScriptPubKeyAndAddress(t *testing.T) {
	internal := genKey(t)
	revoke := genKey(t)

	escrow, err := BuildEscrow(internal.PubKey(), revoke.PubKey(), 144)
	require.NoError(t, err)

	script, err := escrow.ScriptPubKey()
	require.NoError(t, err)
	require.Len(t, script, 34)
	require.Equal(t, byte(0x51), script[0]) // OP_1
	require.Equal(t, byte(0x20), script[1]) // OP_DATA_32

	addr, err := escrow.Address(&chaincfg.RegressionNetParams)
	require.NoError(t, err)
	require.True(t, addr.IsForNet(&chaincfg.RegressionNetParams))
}

func TestBuildEscrowDeterministic(t *testing.T) {
	internal := genKey(t)
	revoke := genKey(t)

	a, err := BuildEscrow(internal.PubKey(), revoke.PubKey(), 10)
	require.NoError(t, err)
	b, err := BuildEscrow(internal.PubKey(), revoke.PubKey(), 10)
	require.NoError(t, err)
	require.Equal(t, a.OutputKey.SerializeCompressed(), b.OutputKey.SerializeCompressed())
}

func TestBuildEscrowRejectsBadCSVDelay(t *testing.T) {
	internal := genKey(t)
	revoke := genKey(t)

	_, err := BuildEscrow(internal.PubKey(), revoke.PubKey(), 0)
	require.Error(t, err)
	kind, ok := swaperr.Of(err)
	require.True(t, ok)
	require.Equal(t, swaperr.KindProtocol, kind)

	_, err = BuildEscrow(internal.PubKey(), revoke.PubKey(), MaxCSVDelay+1)
	require.Error(t, err)
}

func TestNetworkParams(t *testing.T) {
	cases := map[string]*chaincfg.Params{
		"mainnet":  &chaincfg.MainNetParams,
		"testnet":  &chaincfg.TestNet3Params,
		"testnet3": &chaincfg.TestNet3Params,
		"regtest":  &chaincfg.RegressionNetParams,
		"signet":   &chaincfg.SigNetParams,
	}
	for name, want := range cases {
		got, err := NetworkParams(name)
		require.NoError(t, err)
		require.Equal(t, want.Name, got.Name)
	}

	_, err := NetworkParams("not-a-network")
	require.Error(t, err)
}

// mockWallet implements WalletBackend for BuildFundingPSBT/Fund tests.
type mockWallet struct {
	utxos      []Unspent
	changeAddr btcutil.Address
	signed     bool
	broadcast  *wire.MsgTx
}

func (m *mockWallet) ListUnspent(ctx context.Context) ([]Unspent, error) { return m.utxos, nil }
func (m *mockWallet) ChangeAddress(ctx context.Context) (btcutil.Address, error) {
	return m.changeAddr, nil
}
func (m *mockWallet) SignPSBT(ctx context.Context, packet *psbt.Packet) error {
	m.signed = true
	for i := range packet.Inputs {
		packet.Inputs[i].FinalScriptWitness = []byte{0x00}
	}
	return nil
}
func (m *mockWallet) BroadcastTx(ctx context.Context, tx *wire.MsgTx) (chainhash.Hash, error) {
	m.broadcast = tx
	return chainhash.Hash{0x01}, nil
}

func someAddr(t *testing.T) btcutil.Address {
	t.Helper()
	priv := genKey(t)
	addr, err := btcutil.NewAddressTaproot(priv.PubKey().SerializeCompressed()[1:], &chaincfg.RegressionNetParams)
	require.NoError(t, err)
	return addr
}

func TestBuildFundingPSBTSelectsUTXOsAndPaysChange(t *testing.T) {
	internal := genKey(t)
	revoke := genKey(t)
	escrow, err := BuildEscrow(internal.PubKey(), revoke.PubKey(), 144)
	require.NoError(t, err)

	utxos := []Unspent{
		{Outpoint: wire.OutPoint{Index: 0}, PkScript: []byte{0x51, 0x20}, Amount: 100_000},
		{Outpoint: wire.OutPoint{Index: 1}, PkScript: []byte{0x51, 0x20}, Amount: 50_000},
	}

	packet, err := BuildFundingPSBT(escrow, &chaincfg.RegressionNetParams, 80_000, utxos, someAddr(t))
	require.NoError(t, err)
	require.Len(t, packet.UnsignedTx.TxOut, 2) // escrow output + change
	require.Equal(t, int64(80_000), packet.UnsignedTx.TxOut[0].Value)
}

func TestBuildFundingPSBTInsufficientFunds(t *testing.T) {
	internal := genKey(t)
	revoke := genKey(t)
	escrow, err := BuildEscrow(internal.PubKey(), revoke.PubKey(), 144)
	require.NoError(t, err)

	utxos := []Unspent{{Outpoint: wire.OutPoint{Index: 0}, PkScript: []byte{0x51, 0x20}, Amount: 1_000}}
	_, err = BuildFundingPSBT(escrow, &chaincfg.RegressionNetParams, 80_000, utxos, someAddr(t))
	require.Error(t, err)
}

func TestFundBuildsSignsAndBroadcasts(t *testing.T) {
	internal := genKey(t)
	revoke := genKey(t)
	escrow, err := BuildEscrow(internal.PubKey(), revoke.PubKey(), 144)
	require.NoError(t, err)

	wallet := &mockWallet{
		utxos: []Unspent{
			{Outpoint: wire.OutPoint{Index: 0}, PkScript: []byte{0x00, 0x14}, Amount: 200_000},
		},
		changeAddr: someAddr(t),
	}

	txid, err := Fund(context.Background(), wallet, escrow, &chaincfg.RegressionNetParams, 100_000)
	require.NoError(t, err)
	require.True(t, wallet.signed)
	require.NotNil(t, wallet.broadcast)
	require.NotEqual(t, chainhash.Hash{}, txid)
}

// mockWatcher implements ChainWatcher, returning hits after a
// configured number of empty polls.
type mockWatcher struct {
	hitAfter int
	calls    int
	utxo     Unspent
}

func (m *mockWatcher) ListUnspentAtAddress(ctx context.Context, addr btcutil.Address) ([]Unspent, error) {
	m.calls++
	if m.calls > m.hitAfter {
		return []Unspent{m.utxo}, nil
	}
	return nil, nil
}

func TestWatchFindsFundingImmediately(t *testing.T) {
	internal := genKey(t)
	revoke := genKey(t)
	escrow, err := BuildEscrow(internal.PubKey(), revoke.PubKey(), 144)
	require.NoError(t, err)

	watcher := &mockWatcher{hitAfter: 0, utxo: Unspent{Amount: 100_000}}
	err = Watch(context.Background(), watcher, escrow, &chaincfg.RegressionNetParams)
	require.NoError(t, err)
	require.Equal(t, 1, watcher.calls)
}

func TestWatchCancelledContext(t *testing.T) {
	internal := genKey(t)
	revoke := genKey(t)
	escrow, err := BuildEscrow(internal.PubKey(), revoke.PubKey(), 144)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	watcher := &mockWatcher{hitAfter: 1000}
	err = Watch(ctx, watcher, escrow, &chaincfg.RegressionNetParams)
	require.Error(t, err)
	kind, ok := swaperr.Of(err)
	require.True(t, ok)
	require.Equal(t, swaperr.KindBitcoinChain, kind)
}

func TestBuildKeyPathSpendAggregatesScalars(t *testing.T) {
	k := genKey(t)
	pR := genKey(t)

	escrowKey := aggregateScalar(k, pR)
	escrow, err := BuildEscrow(escrowKey.PubKey(), genKey(t).PubKey(), 144)
	require.NoError(t, err)

	destScript := []byte{0x00, 0x14}
	fundingOut := &wire.OutPoint{Index: 0}
	fundingOutput, err := escrow.ScriptPubKey()
	require.NoError(t, err)
	prevOut := wire.NewTxOut(100_000, fundingOutput)

	tx, err := BuildKeyPathSpend(escrow, k, pR, fundingOut, prevOut, destScript, 99_500)
	require.NoError(t, err)
	require.Len(t, tx.TxIn, 1)
	require.Len(t, tx.TxIn[0].Witness, 1)
	require.Equal(t, int64(99_500), tx.TxOut[0].Value)

	// The witness must carry a Schnorr signature that verifies against
	// the escrow's tweaked output key Q, not the untweaked internal
	// key E: Q is what the funding output actually pays (ScriptPubKey
	// encodes OutputKey), so a signature valid only against E would be
	// rejected by consensus.
	prevOutFetcher := txscript.NewCannedPrevOutputFetcher(prevOut.PkScript, prevOut.Value)
	sigHashes := txscript.NewTxSigHashes(tx, prevOutFetcher)
	sighash, err := txscript.CalcTaprootSignatureHash(sigHashes, txscript.SigHashDefault, tx, 0, prevOutFetcher)
	require.NoError(t, err)

	sig, err := schnorr.ParseSignature(tx.TxIn[0].Witness[0])
	require.NoError(t, err)
	require.True(t, sig.Verify(sighash, escrow.OutputKey), "key-path signature must verify against the tweaked output key")
}

func TestBuildRevocationSpendSetsSequenceAndWitnessStack(t *testing.T) {
	internal := genKey(t)
	revoke := genKey(t)
	escrow, err := BuildEscrow(internal.PubKey(), revoke.PubKey(), 12)
	require.NoError(t, err)

	destScript := []byte{0x00, 0x14}
	fundingOut := &wire.OutPoint{Index: 0}
	scriptPubKey, err := escrow.ScriptPubKey()
	require.NoError(t, err)
	prevOut := wire.NewTxOut(100_000, scriptPubKey)

	tx, err := BuildRevocationSpend(escrow, revoke, fundingOut, prevOut, destScript, 99_000)
	require.NoError(t, err)
	require.Equal(t, uint32(12), tx.TxIn[0].Sequence)
	require.Len(t, tx.TxIn[0].Witness, 3)
}
