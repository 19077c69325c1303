package swap

import (
	"math/big"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/rs/zerolog"

	"github.com/distributed-lab/taproot-atomic-swap/evmescrow"
	"github.com/distributed-lab/taproot-atomic-swap/swaperr"
	"github.com/distributed-lab/taproot-atomic-swap/swapkeys"
	"github.com/distributed-lab/taproot-atomic-swap/taproot"
	"github.com/distributed-lab/taproot-atomic-swap/zkproof"
)

// Coordinator drives one swap instance for one role, per spec §5: "a
// coordinator instance drives one swap at a time". It is not safe for
// concurrent use by multiple goroutines driving different transitions
// at once, though State/Role are safe to read concurrently with a
// transition in progress.
type Coordinator struct {
	mu    sync.RWMutex
	role  Role
	state State
	log   zerolog.Logger

	params Params
	net    *chaincfg.Params

	localBTCKey *swapkeys.KeyPair

	secret     *big.Int         // k; nil until generated (A) or revealed (B)
	secretHash *big.Int         // h
	pubKeyK    *btcec.PublicKey // K = k·G

	proofJSON         string
	publicSignalsJSON string

	escrow        *taproot.Escrow
	fundingTxid   chainhash.Hash
	fundingOut    *wire.OutPoint
	fundingOutput *wire.TxOut

	wallet  taproot.WalletBackend
	watcher taproot.ChainWatcher
	evm     *evmescrow.Client

	wc         *zkproof.WitnessCalculator
	provingKey []byte
}

// NewCoordinator builds a Coordinator for the given role starting at
// StateInit. It rejects params whose timelocks are unsafe per
// ValidateTimelockSafety before either party can take any action.
func NewCoordinator(role Role, params Params, net *chaincfg.Params, localBTCKey *swapkeys.KeyPair, log zerolog.Logger) (*Coordinator, error) {
	if err := ValidateTimelockSafety(params); err != nil {
		return nil, err
	}
	return &Coordinator{
		role:        role,
		state:       StateInit,
		log:         log.With().Str("role", role.String()).Logger(),
		params:      params,
		net:         net,
		localBTCKey: localBTCKey,
	}, nil
}

// WithWallet attaches the Bitcoin wallet backend used to fund the
// escrow (initiator only).
func (c *Coordinator) WithWallet(wallet taproot.WalletBackend) *Coordinator {
	c.wallet = wallet
	return c
}

// WithWatcher attaches the watch-only Bitcoin backend used to confirm
// the counterparty's funding (responder only).
func (c *Coordinator) WithWatcher(watcher taproot.ChainWatcher) *Coordinator {
	c.watcher = watcher
	return c
}

// WithEVMClient attaches the EVM escrow client (responder deposits
// and restores; initiator watches and withdraws).
func (c *Coordinator) WithEVMClient(evm *evmescrow.Client) *Coordinator {
	c.evm = evm
	return c
}

// WithWitness attaches the circuit witness calculator and proving key
// (initiator only, C2/C3).
func (c *Coordinator) WithWitness(wc *zkproof.WitnessCalculator, provingKey []byte) *Coordinator {
	c.wc = wc
	c.provingKey = provingKey
	return c
}

// State returns the coordinator's current state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Role returns the role this coordinator drives.
func (c *Coordinator) Role() Role {
	return c.role
}

// FundingTxid returns the Bitcoin funding transaction id, valid once
// the coordinator has reached StateBTCFunded.
func (c *Coordinator) FundingTxid() chainhash.Hash {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fundingTxid
}

// FundingOutputValue returns the value in satoshis of the observed or
// broadcast escrow output, valid once the coordinator has reached
// StateBTCFunded.
func (c *Coordinator) FundingOutputValue() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.fundingOutput == nil {
		return 0
	}
	return c.fundingOutput.Value
}

// Secret returns the swap secret k once known to this coordinator
// (always known to the initiator after GenerateProof; known to the
// responder only after observing the Withdrawn event).
func (c *Coordinator) Secret() (*big.Int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.secret == nil {
		return nil, false
	}
	return new(big.Int).Set(c.secret), true
}

func (c *Coordinator) requireState(want State) error {
	if c.state != want {
		return swaperr.New(swaperr.KindProtocol,
			"invalid state transition: expected "+want.String()+", have "+c.state.String(),
			swaperr.ErrBadTransition)
	}
	return nil
}

func (c *Coordinator) requireRole(want Role) error {
	if c.role != want {
		return swaperr.New(swaperr.KindProtocol,
			"operation restricted to the "+want.String()+" role", swaperr.ErrBadTransition)
	}
	return nil
}

func (c *Coordinator) setState(next State) {
	c.log.Info().Str("from", c.state.String()).Str("to", next.String()).Msg("swap coordinator: state transition")
	c.state = next
}
