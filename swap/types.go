// Package swap implements C8: the swap coordinator state machine that
// drives one swap instance (initiator or responder role) through the
// protocol of spec.md §4.8, wiring together scalarcodec, zkproof,
// swapkeys, taproot, and evmescrow.
package swap

import (
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common"
)

// Role identifies which side of the swap a Coordinator instance
// drives: A (initiator, offers sats wants wei) or B (responder,
// offers wei wants sats), per spec §4.8.
type Role int

const (
	RoleInitiator Role = iota
	RoleResponder
)

func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleResponder:
		return "responder"
	default:
		return "unknown"
	}
}

// State is a swap instance's position in the state machine diagrammed
// in spec §4.8. Both roles track the same named states; each side
// advances through the subset of transitions it drives or observes.
type State int

const (
	StateInit State = iota
	StateProved
	StateBTCFunded
	StateETHFunded
	StateRedeemedETH
	StateRedeemedBTC
	StateDone
	StateRefundedETH
	StateRevokedBTC
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateProved:
		return "PROVED"
	case StateBTCFunded:
		return "BTC_FUNDED"
	case StateETHFunded:
		return "ETH_FUNDED"
	case StateRedeemedETH:
		return "REDEEMED_ETH"
	case StateRedeemedBTC:
		return "REDEEMED_BTC"
	case StateDone:
		return "DONE"
	case StateRefundedETH:
		return "REFUNDED_ETH"
	case StateRevokedBTC:
		return "REVOKED_BTC"
	default:
		return "UNKNOWN"
	}
}

// Params are the parameters A and B agree on out-of-band before the
// swap starts (spec §4.8's opening line): both Bitcoin public keys,
// both Ethereum addresses, the amounts, and the two timelocks.
// InitiatorBTCPubKey and InitiatorETHAddr are populated by the
// initiator locally and learned by the responder via Handoff.
type Params struct {
	InitiatorBTCPubKey *btcec.PublicKey
	InitiatorETHAddr   common.Address
	ResponderBTCPubKey *btcec.PublicKey
	ResponderETHAddr   common.Address

	SatsToSwap           uint64
	GweiToSwap           uint64
	BitcoinCSVDelay      uint32 // Δ, in blocks
	EthereumTimelockSecs uint64 // T_eth
}

// Handoff is the untrusted-channel payload the initiator sends the
// responder after Bitcoin funding (spec §4.8 PROVED→BTC_FUNDED):
// "(proof, pubsignals, P_A_btc, P_A_eth)".
type Handoff struct {
	ProofJSON          string
	PublicSignalsJSON  string
	InitiatorBTCPubKey []byte // compressed SEC1
	InitiatorETHAddr   common.Address
}

// padTo32 left-pads b with zeros to 32 bytes, or truncates a
// longer-than-32-byte slice to its low 32 bytes.
func padTo32(b []byte) []byte {
	if len(b) >= 32 {
		return b[len(b)-32:]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

func privKeyFromScalar(n *big.Int) *btcec.PrivateKey {
	priv, _ := btcec.PrivKeyFromBytes(padTo32(n.Bytes()))
	return priv
}
