package swap

import (
	"fmt"

	"github.com/distributed-lab/taproot-atomic-swap/swaperr"
)

// DefaultBitcoinBlockTimeSecs approximates Bitcoin's target block
// interval, used only to convert Δ (blocks) into a wall-clock safety
// margin for ValidateTimelockSafety; it is never used to schedule any
// on-chain wait.
const DefaultBitcoinBlockTimeSecs = 600

// TimelockSafetyMarginSecs is the minimum wall-clock gap required
// between the Bitcoin revocation window (Δ blocks) and the Ethereum
// hashlock timeout (T_eth), addressing Open Question 1 (SPEC_FULL.md
// §9): the reference implementation does not enforce this ordering,
// so this is additive conservatism, not a protocol change.
const TimelockSafetyMarginSecs = 2 * 60 * 60

// ValidateTimelockSafety rejects a swap configuration where A's
// window to withdraw ETH (T_eth) does not close strictly before B's
// ability to redeem BTC via key-path expires, with a safety margin
// (spec §4.8 ordering invariant 3). Both the initiator's and the
// responder's Coordinator must reject the same unsafe configuration
// before either party takes any on-chain action.
func ValidateTimelockSafety(params Params) error {
	btcWindowSecs := int64(params.BitcoinCSVDelay) * DefaultBitcoinBlockTimeSecs
	ethWindowSecs := int64(params.EthereumTimelockSecs)

	if ethWindowSecs+TimelockSafetyMarginSecs >= btcWindowSecs {
		return swaperr.New(swaperr.KindProtocol, fmt.Sprintf(
			"unsafe timelock configuration: ethereum_timelock_secs (%d) plus safety margin (%d) must be less than the bitcoin csv delay window (%d = %d blocks * %ds)",
			ethWindowSecs, TimelockSafetyMarginSecs, btcWindowSecs, params.BitcoinCSVDelay, DefaultBitcoinBlockTimeSecs,
		), nil)
	}
	return nil
}
