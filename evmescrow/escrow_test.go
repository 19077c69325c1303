package evmescrow

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestDepositorABIHasExpectedMembers(t *testing.T) {
	for _, name := range []string{"deposit", "withdraw", "restore", "deposits", "MIN_LOCK_TIME"} {
		_, ok := depositorABI.Methods[name]
		require.True(t, ok, "missing method %s", name)
	}
	for _, name := range []string{"Deposited", "Withdrawn", "Restored"} {
		_, ok := depositorABI.Events[name]
		require.True(t, ok, "missing event %s", name)
	}
	for _, name := range []string{
		"DepositAlreadyExists", "DepositAlreadyWithdrawn", "DepositDoesNotExist",
		"FailedInnerCall", "LockTimeTooShort", "TimeLockNotExpired",
		"ZeroAddressNotAllowed", "ZeroDepositAmount",
	} {
		_, ok := depositorABI.Errors[name]
		require.True(t, ok, "missing error %s", name)
	}
}

func TestGweiToWei(t *testing.T) {
	require.Equal(t, big.NewInt(1_000_000_000), GweiToWei)
}

func TestNewClientAddress(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	c, err := NewClient(nil, common.HexToAddress("0x1234"), key, big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), c.Address())
}

func TestDecodeRevertHexDecodesCustomError(t *testing.T) {
	abiErr, ok := depositorABI.Errors["LockTimeTooShort"]
	require.True(t, ok)

	selector := crypto.Keccak256([]byte("LockTimeTooShort(uint256,uint256)"))[:4]
	packedArgs, err := abiErr.Inputs.Pack(big.NewInt(10), big.NewInt(3600))
	require.NoError(t, err)

	payload := append(append([]byte{}, selector...), packedArgs...)
	decoded, err := decodeRevertHex("0x" + common.Bytes2Hex(payload))
	require.NoError(t, err)
	require.Contains(t, decoded, "LockTimeTooShort")
}

func TestDecodeRevertHexRejectsShortPayload(t *testing.T) {
	_, err := decodeRevertHex("0x0011")
	require.Error(t, err)
}
