// Package taproot implements C6: the escrow taproot output (internal
// key = escrow key, single CSV-delayed revocation leaf), funding via
// PSBT, watch-only polling for the counterparty's funding UTXO, and
// key-path/script-path spend construction.
//
// Bitcoin RPC transport and wallet UTXO selection/PSBT signing
// primitives are out of scope per spec.md §1; this package depends on
// them only through the WalletBackend/ChainWatcher interfaces below,
// grounded on the reference implementation's bdk-based
// send_atomic_swap_tx_to_bitcoin / check_atomic_swap_tx_appeared_on_bitcoin
// and on lnd's lnwallet script-construction style for the spend paths.
package taproot

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/distributed-lab/taproot-atomic-swap/swaperr"
)

// MaxSyncAttempts and SyncDelay bound the watch-only poll for the
// counterparty's funding UTXO, per spec §4.6 and §5.
const (
	MaxSyncAttempts = 100
	SyncDelay       = 5 * time.Second
)

// MaxCSVDelay is the largest relative-locktime block count representable
// in the CSV script (16-bit field).
const MaxCSVDelay = 0xFFFF

// Escrow describes the derived taproot output for one swap leg:
// internal key E, a single revocation leaf and_v(v:pk(P_revoke), older(Δ)),
// and the resulting output key / address.
type Escrow struct {
	InternalKey  *btcec.PublicKey
	RevokeKey    *btcec.PublicKey
	CSVDelay     uint32
	RevokeScript []byte
	Leaf         txscript.TapLeaf
	MerkleRoot   [32]byte
	OutputKey    *btcec.PublicKey
	ControlBlock []byte
}

// buildRevocationScript builds and_v(v:pk(P_revoke), older(Δ)) in raw
// script form: <P_revoke> OP_CHECKSIGVERIFY <Δ> OP_CHECKSEQUENCEVERIFY.
func buildRevocationScript(revokeKey *btcec.PublicKey, csvDelay uint32) ([]byte, error) {
	if revokeKey == nil {
		return nil, swaperr.New(swaperr.KindCrypto, "revocation pubkey is nil", nil)
	}
	if csvDelay == 0 || csvDelay > MaxCSVDelay {
		return nil, swaperr.New(swaperr.KindProtocol, fmt.Sprintf("csv delay out of range: %d", csvDelay), nil)
	}

	builder := txscript.NewScriptBuilder()
	builder.AddData(schnorr.SerializePubKey(revokeKey))
	builder.AddOp(txscript.OP_CHECKSIGVERIFY)
	builder.AddInt64(int64(csvDelay))
	builder.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
	return builder.Script()
}

// BuildEscrow derives the taproot output for internal key E and the
// CSV-delayed revocation leaf for P_revoke. Both parties compute this
// identically from only public information (invariant I3/I5).
func BuildEscrow(internalKey, revokeKey *btcec.PublicKey, csvDelay uint32) (*Escrow, error) {
	script, err := buildRevocationScript(revokeKey, csvDelay)
	if err != nil {
		return nil, err
	}

	leaf := txscript.NewBaseTapLeaf(script)
	tree := txscript.AssembleTaprootScriptTree(leaf)
	merkleRoot := tree.RootNode.TapHash()

	outputKey := txscript.ComputeTaprootOutputKey(internalKey, merkleRoot[:])

	ctrlBlock := tree.LeafMerkleProofs[0].ToControlBlock(internalKey)
	ctrlBlockBytes, err := ctrlBlock.ToBytes()
	if err != nil {
		return nil, swaperr.New(swaperr.KindCrypto, "serialize control block", err)
	}

	return &Escrow{
		InternalKey:  internalKey,
		RevokeKey:    revokeKey,
		CSVDelay:     csvDelay,
		RevokeScript: script,
		Leaf:         leaf,
		MerkleRoot:   merkleRoot,
		OutputKey:    outputKey,
		ControlBlock: ctrlBlockBytes,
	}, nil
}

// ScriptPubKey returns the P2TR output script: OP_1 <32-byte x-only pubkey>.
func (e *Escrow) ScriptPubKey() ([]byte, error) {
	xOnly := schnorr.SerializePubKey(e.OutputKey)
	script := make([]byte, 0, 34)
	script = append(script, txscript.OP_1, txscript.OP_DATA_32)
	script = append(script, xOnly...)
	return script, nil
}

// Address derives the bech32m P2TR address for the configured network.
func (e *Escrow) Address(params *chaincfg.Params) (btcutil.Address, error) {
	xOnly := schnorr.SerializePubKey(e.OutputKey)
	addr, err := btcutil.NewAddressTaproot(xOnly, params)
	if err != nil {
		return nil, swaperr.New(swaperr.KindBitcoinChain, "derive taproot address", err)
	}
	return addr, nil
}

// NetworkParams maps the config's "network" string to chaincfg params,
// per spec §6's bitcoin_rpc.network field.
func NetworkParams(network string) (*chaincfg.Params, error) {
	switch network {
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	default:
		return nil, swaperr.New(swaperr.KindConfig, fmt.Sprintf("unknown bitcoin network %q", network), nil)
	}
}

// Unspent is the subset of an RPC listunspent entry the funding and
// watch paths need.
type Unspent struct {
	Outpoint wire.OutPoint
	PkScript []byte
	Amount   btcutil.Amount
}

// WalletBackend is the funder's view of its own Bitcoin wallet: UTXO
// selection and PSBT signing are out of scope per spec §1, so this
// package only depends on them through this interface.
type WalletBackend interface {
	ListUnspent(ctx context.Context) ([]Unspent, error)
	ChangeAddress(ctx context.Context) (btcutil.Address, error)
	SignPSBT(ctx context.Context, packet *psbt.Packet) error
	BroadcastTx(ctx context.Context, tx *wire.MsgTx) (chainhash.Hash, error)
}

// ChainWatcher is the watch-only view a responder needs to confirm
// the initiator funded the escrow address, without controlling any
// keys of its own.
type ChainWatcher interface {
	ListUnspentAtAddress(ctx context.Context, addr btcutil.Address) ([]Unspent, error)
}

// defaultFeeRateSatPerVByte is a conservative flat feerate used when the caller's
// wallet backend does not expose fee estimation; a concrete deployment
// is expected to size feerate from its own RPC's estimatesmartfee.
const defaultFeeRateSatPerVByte = 10

// BuildFundingPSBT selects UTXOs from utxos (assumed already sorted by
// the caller's preferred selection policy, largest-first being the
// common choice) to cover amount plus an estimated fee, and returns an
// unsigned PSBT paying amount to the escrow address with any
// remainder returned to changeAddr.
func BuildFundingPSBT(
	escrow *Escrow,
	params *chaincfg.Params,
	amount btcutil.Amount,
	utxos []Unspent,
	changeAddr btcutil.Address,
) (*psbt.Packet, error) {
	addr, err := escrow.Address(params)
	if err != nil {
		return nil, err
	}
	destScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, swaperr.New(swaperr.KindBitcoinChain, "build destination script", err)
	}
	changeScript, err := txscript.PayToAddrScript(changeAddr)
	if err != nil {
		return nil, swaperr.New(swaperr.KindBitcoinChain, "build change script", err)
	}

	var selected []Unspent
	var total btcutil.Amount
	// Flat fee estimate: base tx overhead plus per-input/output weight at
	// defaultFeeRateSatPerVByte, refined as inputs are added.
	estFee := btcutil.Amount(200 * defaultFeeRateSatPerVByte)
	for _, u := range utxos {
		selected = append(selected, u)
		total += u.Amount
		estFee = btcutil.Amount((150 + 70*len(selected)) * defaultFeeRateSatPerVByte)
		if total >= amount+estFee {
			break
		}
	}
	if total < amount+estFee {
		return nil, swaperr.New(swaperr.KindBitcoinChain, "insufficient funds to cover swap amount and fees", nil)
	}

	tx := wire.NewMsgTx(2)
	for _, u := range selected {
		tx.AddTxIn(wire.NewTxIn(&u.Outpoint, nil, nil))
	}
	tx.AddTxOut(wire.NewTxOut(int64(amount), destScript))
	if change := total - amount - estFee; change > 0 {
		tx.AddTxOut(wire.NewTxOut(int64(change), changeScript))
	}

	packet, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		return nil, swaperr.New(swaperr.KindBitcoinChain, "build psbt", err)
	}
	for i, u := range selected {
		packet.Inputs[i].WitnessUtxo = wire.NewTxOut(int64(u.Amount), u.PkScript)
	}
	return packet, nil
}

// Fund builds, signs via wallet, and broadcasts the funding
// transaction paying sats_to_swap to the escrow address. It returns
// the broadcast txid, per spec §4.6's "funding send" path.
func Fund(
	ctx context.Context,
	wallet WalletBackend,
	escrow *Escrow,
	params *chaincfg.Params,
	amount btcutil.Amount,
) (chainhash.Hash, error) {
	utxos, err := wallet.ListUnspent(ctx)
	if err != nil {
		return chainhash.Hash{}, swaperr.New(swaperr.KindBitcoinChain, "list unspent", err)
	}
	changeAddr, err := wallet.ChangeAddress(ctx)
	if err != nil {
		return chainhash.Hash{}, swaperr.New(swaperr.KindBitcoinChain, "derive change address", err)
	}

	packet, err := BuildFundingPSBT(escrow, params, amount, utxos, changeAddr)
	if err != nil {
		return chainhash.Hash{}, err
	}
	if err := wallet.SignPSBT(ctx, packet); err != nil {
		return chainhash.Hash{}, swaperr.New(swaperr.KindBitcoinChain, "sign funding psbt", err)
	}
	if err := psbt.MaybeFinalizeAll(packet); err != nil {
		return chainhash.Hash{}, swaperr.New(swaperr.KindBitcoinChain, "finalize funding psbt", err)
	}
	signedTx, err := psbt.Extract(packet)
	if err != nil {
		return chainhash.Hash{}, swaperr.New(swaperr.KindBitcoinChain, "extract signed tx", err)
	}

	txid, err := wallet.BroadcastTx(ctx, signedTx)
	if err != nil {
		return chainhash.Hash{}, swaperr.New(swaperr.KindBitcoinChain, "broadcast funding tx", err)
	}
	return txid, nil
}

// Watch polls watcher for an unspent output at the escrow's derived
// address, up to MaxSyncAttempts times with SyncDelay between
// attempts. A hit confirms the counterparty's funding transaction
// landed (spec §4.6's "funding watch" path); exhausting the budget
// returns swaperr.ErrSyncTimeout.
func Watch(
	ctx context.Context,
	watcher ChainWatcher,
	escrow *Escrow,
	params *chaincfg.Params,
) error {
	addr, err := escrow.Address(params)
	if err != nil {
		return err
	}

	for attempt := 0; attempt < MaxSyncAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return swaperr.New(swaperr.KindBitcoinChain, "watch cancelled", ctx.Err())
		default:
		}

		utxos, err := watcher.ListUnspentAtAddress(ctx, addr)
		if err != nil {
			return swaperr.New(swaperr.KindBitcoinChain, "list unspent at escrow address", err)
		}
		if len(utxos) > 0 {
			return nil
		}
		if attempt == MaxSyncAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return swaperr.New(swaperr.KindBitcoinChain, "watch cancelled", ctx.Err())
		case <-time.After(SyncDelay):
		}
	}
	return swaperr.New(swaperr.KindBitcoinChain, "escrow funding not observed within poll budget", swaperr.ErrSyncTimeout)
}

// aggregateScalar reconstructs the escrow private scalar e = k + p_r
// from the two parties' scalars, modulo the curve order, for key-path
// redemption once both scalars are known (spec §4.6 "Redemption").
func aggregateScalar(k, pR *btcec.PrivateKey) *btcec.PrivateKey {
	sum := new(btcec.ModNScalar)
	sum.Set(&k.Key)
	sum.Add(&pR.Key)
	sumBytes := sum.Bytes()
	priv, _ := btcec.PrivKeyFromBytes(sumBytes[:])
	return priv
}

// BuildKeyPathSpend spends the taproot output via key path, using the
// reconstructed escrow scalar e = k + p_r. The funding output pays the
// *tweaked* output key Q = E + H_TapTweak(E‖merkleRoot)·G (BuildEscrow's
// OutputKey), not the internal key E, so the signature must be made
// with the tweaked private key per BIP341 or it verifies against the
// wrong point and the spend is rejected by consensus. fundingOutput
// must carry the exact value/pkScript of the output being spent, since
// BIP341 sighashing commits to the previous output being spent.
func BuildKeyPathSpend(
	escrow *Escrow,
	k, pR *btcec.PrivateKey,
	fundingOut *wire.OutPoint,
	fundingOutput *wire.TxOut,
	destScript []byte,
	destAmount int64,
) (*wire.MsgTx, error) {
	escrowPriv := txscript.TaprootTweakPrivKey(aggregateScalar(k, pR), escrow.MerkleRoot[:])

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(fundingOut, nil, nil))
	tx.AddTxOut(wire.NewTxOut(destAmount, destScript))

	prevOutFetcher := txscript.NewCannedPrevOutputFetcher(fundingOutput.PkScript, fundingOutput.Value)
	sigHashes := txscript.NewTxSigHashes(tx, prevOutFetcher)

	sighash, err := txscript.CalcTaprootSignatureHash(
		sigHashes, txscript.SigHashDefault, tx, 0, prevOutFetcher,
	)
	if err != nil {
		return nil, swaperr.New(swaperr.KindBitcoinChain, "compute key-path sighash", err)
	}

	sig, err := schnorr.Sign(escrowPriv, sighash)
	if err != nil {
		return nil, swaperr.New(swaperr.KindBitcoinChain, "sign key-path spend", err)
	}

	tx.TxIn[0].Witness = wire.TxWitness{sig.Serialize()}
	return tx, nil
}

// BuildRevocationSpend spends the taproot output via the script path
// after the CSV delay has elapsed, using the sender's revocation
// private key. The witness stack is <sig> <script> <control_block>,
// per BIP342 script-path spend rules.
func BuildRevocationSpend(
	escrow *Escrow,
	revokePriv *btcec.PrivateKey,
	fundingOut *wire.OutPoint,
	fundingOutput *wire.TxOut,
	destScript []byte,
	destAmount int64,
) (*wire.MsgTx, error) {
	tx := wire.NewMsgTx(2)
	txIn := wire.NewTxIn(fundingOut, nil, nil)
	txIn.Sequence = escrow.CSVDelay
	tx.AddTxIn(txIn)
	tx.AddTxOut(wire.NewTxOut(destAmount, destScript))

	prevOutFetcher := txscript.NewCannedPrevOutputFetcher(fundingOutput.PkScript, fundingOutput.Value)
	sigHashes := txscript.NewTxSigHashes(tx, prevOutFetcher)

	sighash, err := txscript.CalcTapscriptSignaturehash(
		sigHashes, txscript.SigHashDefault, tx, 0, prevOutFetcher, escrow.Leaf,
	)
	if err != nil {
		return nil, swaperr.New(swaperr.KindBitcoinChain, "compute script-path sighash", err)
	}

	sig, err := schnorr.Sign(revokePriv, sighash)
	if err != nil {
		return nil, swaperr.New(swaperr.KindBitcoinChain, "sign script-path spend", err)
	}

	tx.TxIn[0].Witness = wire.TxWitness{sig.Serialize(), escrow.RevokeScript, escrow.ControlBlock}
	return tx, nil
}
