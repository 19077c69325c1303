// Package evmescrow implements C7: a thin go-ethereum client wrapping
// the on-chain hashlock escrow contract (deposit/withdraw/restore,
// Deposited/Withdrawn/Restored event decoding), grounded on the
// reference implementation's ethers-rs Depositor binding
// (original_source/src/depositor_contract.rs,
// original_source/src/main.rs's send_atomic_swap_tx_to_ethereum) and
// on the go-ethereum contract-binding idiom the pack's
// noot-atomic-swap bob/swap_state.go and vocdoni-davinci-node's
// web3/contracts.go both follow.
package evmescrow

import (
	"context"
	"crypto/ecdsa"
	goerrors "errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog/log"

	"github.com/distributed-lab/taproot-atomic-swap/swaperr"
)

// GweiToWei is the scale factor spec §4.7 uses to convert the agreed
// swap_params.gwei_to_swap into the wei value attached to deposit().
var GweiToWei = new(big.Int).SetUint64(1_000_000_000)

// DepositRecord mirrors the contract's deposits(bytes32) return shape
// (spec §3's EVM deposit record, §6's ABI).
type DepositRecord struct {
	Sender      common.Address
	Recipient   common.Address
	Amount      *big.Int
	LockTime    *big.Int
	IsWithdrawn bool
}

// DepositedEvent, WithdrawnEvent, RestoredEvent mirror the contract's
// three events (spec §6).
type DepositedEvent struct {
	Sender     common.Address
	Recipient  common.Address
	Amount     *big.Int
	LockTime   *big.Int
	SecretHash [32]byte
	TxHash     common.Hash
}

type WithdrawnEvent struct {
	Recipient  common.Address
	Amount     *big.Int
	Secret     *big.Int
	SecretHash [32]byte
	TxHash     common.Hash
}

type RestoredEvent struct {
	Sender     common.Address
	Amount     *big.Int
	SecretHash [32]byte
	TxHash     common.Hash
}

var depositorABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(depositorABIJSON))
	if err != nil {
		panic(fmt.Errorf("evmescrow: parse embedded ABI: %w", err))
	}
	depositorABI = parsed
}

// Client wraps the hashlock escrow contract with a signer, following
// the reference implementation's pattern of a single responder-owned
// signer submitting deposit/withdraw/restore calls.
type Client struct {
	address  common.Address
	eth      *ethclient.Client
	contract *bind.BoundContract
	txOpts   *bind.TransactOpts
}

// NewClient builds a Client signing transactions with privateKey for
// chainID, against the escrow contract at address.
func NewClient(eth *ethclient.Client, address common.Address, privateKey *ecdsa.PrivateKey, chainID *big.Int) (*Client, error) {
	txOpts, err := bind.NewKeyedTransactorWithChainID(privateKey, chainID)
	if err != nil {
		return nil, swaperr.New(swaperr.KindEVMChain, "build transactor", err)
	}

	contract := bind.NewBoundContract(address, depositorABI, eth, eth, eth)

	return &Client{
		address:  address,
		eth:      eth,
		contract: contract,
		txOpts:   txOpts,
	}, nil
}

// Address returns the signing participant's Ethereum address, the EVM
// side counterpart of that participant's long-lived Ethereum key.
func (c *Client) Address() common.Address {
	return c.txOpts.From
}

// MinLockTime reads the contract's MIN_LOCK_TIME, the enforcement
// point for the T_eth/Δ safety margin discussed in spec §9.
func (c *Client) MinLockTime(ctx context.Context) (*big.Int, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := c.contract.Call(opts, &out, "MIN_LOCK_TIME"); err != nil {
		return nil, c.decodeCallError("MIN_LOCK_TIME", err)
	}
	return out[0].(*big.Int), nil
}

// Deposit submits deposit(recipient, secretHash, lockTime) with
// msg.value = gwei_to_swap * 1e9 wei, per spec §4.7/§4.8's
// BTC_FUNDED→ETH_FUNDED transition.
func (c *Client) Deposit(ctx context.Context, recipient common.Address, secretHash [32]byte, lockTime *big.Int, valueWei *big.Int) (*types.Transaction, error) {
	opts := *c.txOpts
	opts.Context = ctx
	opts.Value = valueWei

	tx, err := c.contract.Transact(&opts, "deposit", recipient, secretHash, lockTime)
	if err != nil {
		return nil, c.decodeCallError("deposit", err)
	}
	log.Info().Str("tx", tx.Hash().Hex()).Str("recipient", recipient.Hex()).Msg("evmescrow: deposit submitted")
	return tx, nil
}

// Withdraw submits withdraw(secret), revealing the swap secret k on
// chain per spec §4.8's ETH_FUNDED→REDEEMED_ETH transition.
func (c *Client) Withdraw(ctx context.Context, secret *big.Int) (*types.Transaction, error) {
	opts := *c.txOpts
	opts.Context = ctx

	tx, err := c.contract.Transact(&opts, "withdraw", secret)
	if err != nil {
		return nil, c.decodeCallError("withdraw", err)
	}
	log.Info().Str("tx", tx.Hash().Hex()).Msg("evmescrow: withdraw submitted")
	return tx, nil
}

// Restore submits restore(secretHash), per spec §4.8's REFUNDED_ETH
// path once lockTime has elapsed without a withdraw.
func (c *Client) Restore(ctx context.Context, secretHash [32]byte) (*types.Transaction, error) {
	opts := *c.txOpts
	opts.Context = ctx

	tx, err := c.contract.Transact(&opts, "restore", secretHash)
	if err != nil {
		return nil, c.decodeCallError("restore", err)
	}
	log.Info().Str("tx", tx.Hash().Hex()).Msg("evmescrow: restore submitted")
	return tx, nil
}

// Deposits reads the deposits(bytes32) view for the given secret
// hash, per spec §3's EVM deposit record.
func (c *Client) Deposits(ctx context.Context, secretHash [32]byte) (*DepositRecord, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := c.contract.Call(opts, &out, "deposits", secretHash); err != nil {
		return nil, c.decodeCallError("deposits", err)
	}
	return &DepositRecord{
		Sender:      out[0].(common.Address),
		Recipient:   out[1].(common.Address),
		Amount:      out[2].(*big.Int),
		LockTime:    out[3].(*big.Int),
		IsWithdrawn: out[4].(bool),
	}, nil
}

// decodeCallError names the ABI custom error behind a revert when the
// revert data decodes against the embedded ABI. The decoded name and
// arguments go into the error message only: every returned error has
// KindEVMChain, whichever custom error caused it.
func (c *Client) decodeCallError(method string, err error) error {
	var derr rpc.DataError
	if goerrors.As(err, &derr) {
		if data, ok := derr.ErrorData().(string); ok {
			if decoded, derr2 := decodeRevertHex(data); derr2 == nil {
				return swaperr.New(swaperr.KindEVMChain, fmt.Sprintf("%s reverted: %s", method, decoded), err)
			}
		}
	}
	return swaperr.New(swaperr.KindEVMChain, fmt.Sprintf("%s call failed", method), err)
}

// decodeRevertHex unpacks a 0x-prefixed revert payload against the
// embedded ABI's custom error set.
func decodeRevertHex(hexData string) (string, error) {
	data, err := hexDecode(hexData)
	if err != nil {
		return "", err
	}
	if len(data) < 4 {
		return "", fmt.Errorf("revert payload too short")
	}
	var selector [4]byte
	copy(selector[:], data[:4])

	abiErr, err := depositorABI.ErrorByID(selector)
	if err != nil {
		return "", err
	}
	args, err := abiErr.Unpack(data)
	if err != nil {
		return abiErr.Name, nil
	}
	return fmt.Sprintf("%s%v", abiErr.Name, args), nil
}

func hexDecode(s string) ([]byte, error) {
	return common.FromHex(s), nil
}

// WatchDeposited queries the logs from fromBlock once for a Deposited
// log matching secretHash, emitted by the responder's own deposit()
// call or observed by the initiator confirming it before withdrawing.
// It returns an error if no matching log exists yet; it does not retry.
func (c *Client) WatchDeposited(ctx context.Context, secretHash [32]byte, fromBlock uint64) (*DepositedEvent, error) {
	logs, err := c.filterLogs(ctx, "Deposited", fromBlock)
	if err != nil {
		return nil, err
	}
	for _, vLog := range logs {
		var data struct {
			Amount     *big.Int
			LockTime   *big.Int
			SecretHash [32]byte
		}
		if err := depositorABI.UnpackIntoInterface(&data, "Deposited", vLog.Data); err != nil {
			continue
		}
		if data.SecretHash != secretHash {
			continue
		}
		return &DepositedEvent{
			Sender:     common.HexToAddress(vLog.Topics[1].Hex()),
			Recipient:  common.HexToAddress(vLog.Topics[2].Hex()),
			Amount:     data.Amount,
			LockTime:   data.LockTime,
			SecretHash: data.SecretHash,
			TxHash:     vLog.TxHash,
		}, nil
	}
	return nil, swaperr.New(swaperr.KindEVMChain, "no Deposited event found for secret hash", nil)
}

// WatchWithdrawn queries the logs from fromBlock once for a Withdrawn
// log matching secretHash, returning an error if none exists yet. Its
// Secret field is the plaintext swap secret k the counterparty
// replays on the other chain, per spec §4.8's
// REDEEMED_ETH→REDEEMED_BTC transition.
func (c *Client) WatchWithdrawn(ctx context.Context, secretHash [32]byte, fromBlock uint64) (*WithdrawnEvent, error) {
	logs, err := c.filterLogs(ctx, "Withdrawn", fromBlock)
	if err != nil {
		return nil, err
	}
	for _, vLog := range logs {
		var data struct {
			Amount     *big.Int
			Secret     *big.Int
			SecretHash [32]byte
		}
		if err := depositorABI.UnpackIntoInterface(&data, "Withdrawn", vLog.Data); err != nil {
			continue
		}
		if data.SecretHash != secretHash {
			continue
		}
		return &WithdrawnEvent{
			Recipient:  common.HexToAddress(vLog.Topics[1].Hex()),
			Amount:     data.Amount,
			Secret:     data.Secret,
			SecretHash: data.SecretHash,
			TxHash:     vLog.TxHash,
		}, nil
	}
	return nil, swaperr.New(swaperr.KindEVMChain, "no Withdrawn event found for secret hash", nil)
}

// WatchRestored queries the logs from fromBlock once for a Restored
// log matching secretHash, returning an error if none exists yet.
func (c *Client) WatchRestored(ctx context.Context, secretHash [32]byte, fromBlock uint64) (*RestoredEvent, error) {
	logs, err := c.filterLogs(ctx, "Restored", fromBlock)
	if err != nil {
		return nil, err
	}
	for _, vLog := range logs {
		var data struct {
			Amount     *big.Int
			SecretHash [32]byte
		}
		if err := depositorABI.UnpackIntoInterface(&data, "Restored", vLog.Data); err != nil {
			continue
		}
		if data.SecretHash != secretHash {
			continue
		}
		return &RestoredEvent{
			Sender:     common.HexToAddress(vLog.Topics[1].Hex()),
			Amount:     data.Amount,
			SecretHash: data.SecretHash,
			TxHash:     vLog.TxHash,
		}, nil
	}
	return nil, swaperr.New(swaperr.KindEVMChain, "no Restored event found for secret hash", nil)
}

func (c *Client) filterLogs(ctx context.Context, eventName string, fromBlock uint64) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		Addresses: []common.Address{c.address},
		Topics:    [][]common.Hash{{depositorABI.Events[eventName].ID}},
	}
	logs, err := c.eth.FilterLogs(ctx, query)
	if err != nil {
		return nil, swaperr.New(swaperr.KindEVMChain, fmt.Sprintf("filter %s logs", eventName), err)
	}
	return logs, nil
}
