package swap

import (
	"context"
	"math/big"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/distributed-lab/taproot-atomic-swap/evmescrow"
	"github.com/distributed-lab/taproot-atomic-swap/scalarcodec"
	"github.com/distributed-lab/taproot-atomic-swap/swaperr"
	"github.com/distributed-lab/taproot-atomic-swap/swapkeys"
	"github.com/distributed-lab/taproot-atomic-swap/taproot"
	"github.com/distributed-lab/taproot-atomic-swap/zkproof"
)

// GenerateProof performs the INIT→PROVED transition (spec §4.8,
// initiator only): sample k, compute K=k·G, run the witness
// calculator then the prover.
func (c *Coordinator) GenerateProof() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireRole(RoleInitiator); err != nil {
		return err
	}
	if err := c.requireState(StateInit); err != nil {
		return err
	}
	if c.wc == nil || c.provingKey == nil {
		return swaperr.New(swaperr.KindCircuit, "witness calculator / proving key not configured", nil)
	}

	kp, err := swapkeys.GenerateSwapSecret()
	if err != nil {
		return err
	}
	secret := new(big.Int).SetBytes(kp.Private.Serialize())

	limbs, err := scalarcodec.ToLimbs(secret)
	if err != nil {
		return err
	}
	wtns, err := c.wc.CalculateWitness(limbs, true)
	if err != nil {
		return err
	}
	proofJSON, pubSignalsJSON, err := zkproof.Prove(c.provingKey, wtns)
	if err != nil {
		return err
	}

	h, err := swapkeys.SecretHash(secret)
	if err != nil {
		return err
	}

	c.secret = secret
	c.pubKeyK = kp.Public
	c.secretHash = h
	c.proofJSON = proofJSON
	c.publicSignalsJSON = pubSignalsJSON

	c.setState(StateProved)
	return nil
}

// FundBitcoin performs the PROVED→BTC_FUNDED transition (initiator
// only): derive the escrow E=K+P_B_btc, build and broadcast the
// funding transaction.
func (c *Coordinator) FundBitcoin(ctx context.Context) (chainhash.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireRole(RoleInitiator); err != nil {
		return chainhash.Hash{}, err
	}
	if err := c.requireState(StateProved); err != nil {
		return chainhash.Hash{}, err
	}
	if c.wallet == nil {
		return chainhash.Hash{}, swaperr.New(swaperr.KindBitcoinChain, "wallet backend not configured", nil)
	}

	escrowKey := swapkeys.Aggregate(c.pubKeyK, c.params.ResponderBTCPubKey)
	escrow, err := taproot.BuildEscrow(escrowKey, c.localBTCKey.Public, c.params.BitcoinCSVDelay)
	if err != nil {
		return chainhash.Hash{}, err
	}
	destScript, err := escrow.ScriptPubKey()
	if err != nil {
		return chainhash.Hash{}, err
	}

	amount := btcutil.Amount(c.params.SatsToSwap)
	txid, err := taproot.Fund(ctx, c.wallet, escrow, c.net, amount)
	if err != nil {
		return chainhash.Hash{}, err
	}

	c.escrow = escrow
	c.fundingTxid = txid
	c.fundingOut = wire.NewOutPoint(&txid, 0)
	c.fundingOutput = wire.NewTxOut(int64(amount), destScript)

	c.setState(StateBTCFunded)
	return txid, nil
}

// Handoff returns the payload the initiator sends to the responder
// over an untrusted channel once Bitcoin is funded (spec §4.8
// PROVED→BTC_FUNDED's final step).
func (c *Coordinator) Handoff() (Handoff, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.requireRole(RoleInitiator); err != nil {
		return Handoff{}, err
	}
	if c.state != StateBTCFunded {
		return Handoff{}, swaperr.New(swaperr.KindProtocol,
			"handoff requires BTC_FUNDED, have "+c.state.String(), swaperr.ErrBadTransition)
	}
	return Handoff{
		ProofJSON:          c.proofJSON,
		PublicSignalsJSON:  c.publicSignalsJSON,
		InitiatorBTCPubKey: c.localBTCKey.Public.SerializeCompressed(),
		InitiatorETHAddr:   c.params.InitiatorETHAddr,
	}, nil
}

// ReceiveProof verifies the initiator's handoff (responder only) and
// extracts K and h from the public signals, the verification half of
// spec §4.8's BTC_FUNDED→ETH_FUNDED transition. The responder's local
// state advances INIT→PROVED on success.
func (c *Coordinator) ReceiveProof(h Handoff, vk *zkproof.VerificationKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireRole(RoleResponder); err != nil {
		return err
	}
	if err := c.requireState(StateInit); err != nil {
		return err
	}

	proof, err := zkproof.ParseProof([]byte(h.ProofJSON))
	if err != nil {
		return err
	}
	pubSignals, err := zkproof.ParsePublicSignals([]byte(h.PublicSignalsJSON))
	if err != nil {
		return err
	}
	vals, err := pubSignals.BigInts()
	if err != nil {
		return err
	}
	verifier, err := zkproof.NewVerifier(vk)
	if err != nil {
		return err
	}
	ok, err := verifier.Verify(proof, vals)
	if err != nil {
		return err
	}
	if !ok {
		return swaperr.New(swaperr.KindCrypto, "swap proof failed verification", swaperr.ErrProofInvalid)
	}

	xLimbs, yLimbs, err := pubSignals.PubkeyLimbs()
	if err != nil {
		return err
	}
	pub, err := swapkeys.PubkeyFromLimbs(xLimbs, yLimbs)
	if err != nil {
		return err
	}
	secretHash, err := pubSignals.SecretHash()
	if err != nil {
		return err
	}

	remoteBTCPub, err := btcec.ParsePubKey(h.InitiatorBTCPubKey)
	if err != nil {
		return swaperr.New(swaperr.KindCrypto, "parse initiator bitcoin pubkey", err)
	}

	c.pubKeyK = pub
	c.secretHash = secretHash
	c.proofJSON = h.ProofJSON
	c.publicSignalsJSON = h.PublicSignalsJSON
	c.params.InitiatorBTCPubKey = remoteBTCPub
	c.params.InitiatorETHAddr = h.InitiatorETHAddr

	c.setState(StateProved)
	return nil
}

// ConfirmBitcoinFunding re-derives the taproot escrow address from
// public information alone and watches for the initiator's funding
// UTXO (responder only; spec §4.6's "funding watch" path, ordering
// invariant 2: B must not publish the EVM deposit before this
// succeeds).
func (c *Coordinator) ConfirmBitcoinFunding(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireRole(RoleResponder); err != nil {
		return err
	}
	if err := c.requireState(StateProved); err != nil {
		return err
	}
	if c.watcher == nil {
		return swaperr.New(swaperr.KindBitcoinChain, "chain watcher not configured", nil)
	}

	escrowKey := swapkeys.Aggregate(c.pubKeyK, c.localBTCKey.Public)
	escrow, err := taproot.BuildEscrow(escrowKey, c.params.InitiatorBTCPubKey, c.params.BitcoinCSVDelay)
	if err != nil {
		return err
	}

	if err := taproot.Watch(ctx, c.watcher, escrow, c.net); err != nil {
		return err
	}

	addr, err := escrow.Address(c.net)
	if err != nil {
		return err
	}
	utxos, err := c.watcher.ListUnspentAtAddress(ctx, addr)
	if err != nil {
		return swaperr.New(swaperr.KindBitcoinChain, "list unspent at escrow address", err)
	}
	if len(utxos) == 0 {
		return swaperr.New(swaperr.KindBitcoinChain, "escrow funding not observed within poll budget", swaperr.ErrSyncTimeout)
	}

	c.escrow = escrow
	c.fundingTxid = utxos[0].Outpoint.Hash
	c.fundingOut = &utxos[0].Outpoint
	c.fundingOutput = wire.NewTxOut(int64(utxos[0].Amount), utxos[0].PkScript)

	c.setState(StateBTCFunded)
	return nil
}

// FundEthereum submits the EVM deposit (responder only; spec §4.8's
// BTC_FUNDED→ETH_FUNDED transition's final step).
func (c *Coordinator) FundEthereum(ctx context.Context) (*types.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireRole(RoleResponder); err != nil {
		return nil, err
	}
	if err := c.requireState(StateBTCFunded); err != nil {
		return nil, err
	}
	if c.evm == nil {
		return nil, swaperr.New(swaperr.KindEVMChain, "evm client not configured", nil)
	}

	var secretHashArr [32]byte
	copy(secretHashArr[:], padTo32(c.secretHash.Bytes()))
	lockTime := big.NewInt(time.Now().Unix() + int64(c.params.EthereumTimelockSecs))
	valueWei := new(big.Int).Mul(new(big.Int).SetUint64(c.params.GweiToSwap), evmescrow.GweiToWei)

	tx, err := c.evm.Deposit(ctx, c.params.InitiatorETHAddr, secretHashArr, lockTime, valueWei)
	if err != nil {
		return nil, err
	}

	c.setState(StateETHFunded)
	return tx, nil
}

// ObserveEthereumDeposit watches for the Deposited event matching h
// (initiator only), the precondition spec §4.8 requires before A
// reveals k — ordering invariant 1.
func (c *Coordinator) ObserveEthereumDeposit(ctx context.Context, fromBlock uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireRole(RoleInitiator); err != nil {
		return err
	}
	if err := c.requireState(StateBTCFunded); err != nil {
		return err
	}
	if c.evm == nil {
		return swaperr.New(swaperr.KindEVMChain, "evm client not configured", nil)
	}

	var secretHashArr [32]byte
	copy(secretHashArr[:], padTo32(c.secretHash.Bytes()))
	ev, err := c.evm.WatchDeposited(ctx, secretHashArr, fromBlock)
	if err != nil {
		return err
	}
	if ev.Recipient != c.params.InitiatorETHAddr {
		return swaperr.New(swaperr.KindProtocol, "deposited event recipient does not match initiator address", nil)
	}

	c.setState(StateETHFunded)
	return nil
}

// WithdrawEthereum reveals k on-chain (initiator only; spec §4.8's
// ETH_FUNDED→REDEEMED_ETH transition).
func (c *Coordinator) WithdrawEthereum(ctx context.Context) (*types.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireRole(RoleInitiator); err != nil {
		return nil, err
	}
	if err := c.requireState(StateETHFunded); err != nil {
		return nil, err
	}
	if c.evm == nil {
		return nil, swaperr.New(swaperr.KindEVMChain, "evm client not configured", nil)
	}

	tx, err := c.evm.Withdraw(ctx, c.secret)
	if err != nil {
		return nil, err
	}

	c.setState(StateRedeemedETH)
	return tx, nil
}

// ObserveSecretAndRedeemBitcoin watches for the Withdrawn event
// revealing k (responder only; spec §4.8's REDEEMED_ETH→REDEEMED_BTC
// transition) and spends the taproot UTXO via key path to destScript.
func (c *Coordinator) ObserveSecretAndRedeemBitcoin(ctx context.Context, fromBlock uint64, destScript []byte, destAmount int64) (*wire.MsgTx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireRole(RoleResponder); err != nil {
		return nil, err
	}
	if err := c.requireState(StateETHFunded); err != nil {
		return nil, err
	}
	if c.evm == nil {
		return nil, swaperr.New(swaperr.KindEVMChain, "evm client not configured", nil)
	}

	var secretHashArr [32]byte
	copy(secretHashArr[:], padTo32(c.secretHash.Bytes()))
	ev, err := c.evm.WatchWithdrawn(ctx, secretHashArr, fromBlock)
	if err != nil {
		return nil, err
	}
	c.secret = ev.Secret

	tx, err := taproot.BuildKeyPathSpend(
		c.escrow, privKeyFromScalar(c.secret), c.localBTCKey.Private,
		c.fundingOut, c.fundingOutput, destScript, destAmount,
	)
	if err != nil {
		return nil, err
	}

	c.setState(StateRedeemedBTC)
	return tx, nil
}

// RefundEthereum reclaims B's wei after lockTime elapses without A
// withdrawing (responder only; spec §4.8's REFUNDED_ETH path).
func (c *Coordinator) RefundEthereum(ctx context.Context) (*types.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireRole(RoleResponder); err != nil {
		return nil, err
	}
	if err := c.requireState(StateETHFunded); err != nil {
		return nil, err
	}
	if c.evm == nil {
		return nil, swaperr.New(swaperr.KindEVMChain, "evm client not configured", nil)
	}

	var secretHashArr [32]byte
	copy(secretHashArr[:], padTo32(c.secretHash.Bytes()))
	tx, err := c.evm.Restore(ctx, secretHashArr)
	if err != nil {
		return nil, err
	}

	c.setState(StateRefundedETH)
	return tx, nil
}

// RevokeBitcoin reclaims A's sats via the script-path revocation leaf
// after Δ blocks with no responder-side redemption (initiator only;
// spec §4.8's Bitcoin-side revocation path).
func (c *Coordinator) RevokeBitcoin(ctx context.Context, destScript []byte, destAmount int64) (*wire.MsgTx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireRole(RoleInitiator); err != nil {
		return nil, err
	}
	if err := c.requireState(StateBTCFunded); err != nil {
		return nil, err
	}

	tx, err := taproot.BuildRevocationSpend(
		c.escrow, c.localBTCKey.Private,
		c.fundingOut, c.fundingOutput, destScript, destAmount,
	)
	if err != nil {
		return nil, err
	}

	c.setState(StateRevokedBTC)
	return tx, nil
}

// Finalize marks a fully redeemed swap as DONE, once both legs have
// settled (A redeemed ETH, B redeemed BTC).
func (c *Coordinator) Finalize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRedeemedETH && c.state != StateRedeemedBTC {
		return swaperr.New(swaperr.KindProtocol,
			"finalize requires REDEEMED_ETH or REDEEMED_BTC, have "+c.state.String(), swaperr.ErrBadTransition)
	}
	c.setState(StateDone)
	return nil
}
