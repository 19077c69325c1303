package swap

import (
	"context"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/distributed-lab/taproot-atomic-swap/swaperr"
	"github.com/distributed-lab/taproot-atomic-swap/swapkeys"
)

func testParams(t *testing.T) Params {
	t.Helper()
	a, err := swapkeys.GenerateSwapSecret()
	require.NoError(t, err)
	b, err := swapkeys.GenerateSwapSecret()
	require.NoError(t, err)
	return Params{
		InitiatorBTCPubKey:   a.Public,
		ResponderBTCPubKey:   b.Public,
		SatsToSwap:           100_000,
		GweiToSwap:           1_000_000,
		BitcoinCSVDelay:      144,
		EthereumTimelockSecs: 3600,
	}
}

func newTestCoordinator(t *testing.T, role Role) *Coordinator {
	t.Helper()
	kp, err := swapkeys.GenerateSwapSecret()
	require.NoError(t, err)
	c, err := NewCoordinator(role, testParams(t), &chaincfg.RegressionNetParams, kp, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestNewCoordinatorStartsAtInit(t *testing.T) {
	c := newTestCoordinator(t, RoleInitiator)
	require.Equal(t, StateInit, c.State())
	require.Equal(t, RoleInitiator, c.Role())
}

func TestNewCoordinatorRejectsUnsafeTimelock(t *testing.T) {
	params := testParams(t)
	params.BitcoinCSVDelay = 1 // ~10 minutes, far less than the 1h timelock + margin
	kp, err := swapkeys.GenerateSwapSecret()
	require.NoError(t, err)
	_, err = NewCoordinator(RoleInitiator, params, &chaincfg.RegressionNetParams, kp, zerolog.Nop())
	require.Error(t, err)
	kind, ok := swaperr.Of(err)
	require.True(t, ok)
	require.Equal(t, swaperr.KindProtocol, kind)
}

func TestFundBitcoinRejectsWrongRole(t *testing.T) {
	c := newTestCoordinator(t, RoleResponder)
	_, err := c.FundBitcoin(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, swaperr.ErrBadTransition))
}

func TestFundBitcoinRejectsWrongState(t *testing.T) {
	c := newTestCoordinator(t, RoleInitiator)
	_, err := c.FundBitcoin(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, swaperr.ErrBadTransition))
}

func TestFundBitcoinRequiresWallet(t *testing.T) {
	c := newTestCoordinator(t, RoleInitiator)
	c.state = StateProved // white-box: skip GenerateProof, which needs real circuit artifacts
	_, err := c.FundBitcoin(context.Background())
	require.Error(t, err)
	kind, ok := swaperr.Of(err)
	require.True(t, ok)
	require.Equal(t, swaperr.KindBitcoinChain, kind)
}

func TestHandoffRequiresBTCFunded(t *testing.T) {
	c := newTestCoordinator(t, RoleInitiator)
	_, err := c.Handoff()
	require.Error(t, err)
	require.True(t, errors.Is(err, swaperr.ErrBadTransition))
}

func TestReceiveProofRejectsWrongRole(t *testing.T) {
	c := newTestCoordinator(t, RoleInitiator)
	err := c.ReceiveProof(Handoff{}, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, swaperr.ErrBadTransition))
}

func TestFinalizeRequiresRedeemedState(t *testing.T) {
	c := newTestCoordinator(t, RoleInitiator)
	err := c.Finalize()
	require.Error(t, err)
	require.True(t, errors.Is(err, swaperr.ErrBadTransition))
}

func TestStateStringsAreDistinct(t *testing.T) {
	states := []State{
		StateInit, StateProved, StateBTCFunded, StateETHFunded,
		StateRedeemedETH, StateRedeemedBTC, StateDone, StateRefundedETH, StateRevokedBTC,
	}
	seen := map[string]bool{}
	for _, s := range states {
		str := s.String()
		require.NotEqual(t, "UNKNOWN", str)
		require.False(t, seen[str], "duplicate state string %q", str)
		seen[str] = true
	}
}

func TestRoleString(t *testing.T) {
	require.Equal(t, "initiator", RoleInitiator.String())
	require.Equal(t, "responder", RoleResponder.String())
}
