// Command atomicswap runs a single taprootized atomic swap end to end
// from one configuration file. Per spec.md §6's CLI surface, it takes
// one positional argument (the config path), drives both the
// initiator and responder sides of the swap in-process (mirroring the
// reference implementation's combined alice/bob demo), and exits 0 on
// a completed swap or 1 with a message on stderr on any fatal error.
//
// A production deployment splits the two roles across separate
// processes and separate key custody; the `alice`/`bob` config
// sections exist only to make this single-binary demo possible.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/btcsuite/btcd/txscript"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/distributed-lab/taproot-atomic-swap/config"
	"github.com/distributed-lab/taproot-atomic-swap/evmescrow"
	"github.com/distributed-lab/taproot-atomic-swap/swap"
	"github.com/distributed-lab/taproot-atomic-swap/swapkeys"
	"github.com/distributed-lab/taproot-atomic-swap/taproot"
	"github.com/distributed-lab/taproot-atomic-swap/zkproof"
)

// redeemFlatFeeSats is a conservative flat fee for the responder's
// final key-path redemption transaction, a single-input single-output
// spend whose weight does not vary with the swap amount.
const redeemFlatFeeSats = 500

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <config-file>\n", os.Args[0])
		os.Exit(1)
	}

	if err := run(os.Args[1], log); err != nil {
		fmt.Fprintf(os.Stderr, "atomicswap: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, log zerolog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()

	netParams, err := taproot.NetworkParams(cfg.BitcoinRPC.Network)
	if err != nil {
		return err
	}

	aliceBTCPriv, alicePub, err := parseBitcoinPrivateKey(cfg.Alice.BitcoinPrivateKey)
	if err != nil {
		return err
	}
	bobBTCPriv, bobPub, err := parseBitcoinPrivateKey(cfg.Bob.BitcoinPrivateKey)
	if err != nil {
		return err
	}
	aliceEthKey, err := parseEthereumPrivateKey(cfg.Alice.EthereumPrivateKey)
	if err != nil {
		return err
	}
	bobEthKey, err := parseEthereumPrivateKey(cfg.Bob.EthereumPrivateKey)
	if err != nil {
		return err
	}

	rpcURL := cfg.EthereumRPCURL
	if rpcURL == "" {
		rpcURL = cfg.EthereumWSRPCURL
	}
	ethClient, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return fmt.Errorf("dial ethereum rpc: %w", err)
	}
	chainID, err := ethClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("fetch chain id: %w", err)
	}

	contractAddr := common.HexToAddress(cfg.AtomicSwapContractAddress)
	aliceEVM, err := evmescrow.NewClient(ethClient, contractAddr, aliceEthKey, chainID)
	if err != nil {
		return err
	}
	bobEVM, err := evmescrow.NewClient(ethClient, contractAddr, bobEthKey, chainID)
	if err != nil {
		return err
	}

	btcRPC, err := newBitcoinRPCWallet(cfg.BitcoinRPC.URL, cfg.BitcoinRPC.Auth, cfg.BitcoinRPC.Network, netParams, log)
	if err != nil {
		return err
	}

	wasmBytes, err := os.ReadFile(cfg.Circom.WitnessCalculatorPath)
	if err != nil {
		return fmt.Errorf("read witness calculator: %w", err)
	}
	wc, err := zkproof.NewWitnessCalculator(wasmBytes, true)
	if err != nil {
		return err
	}
	provingKey, err := os.ReadFile(cfg.Circom.ProvingKeyPath)
	if err != nil {
		return fmt.Errorf("read proving key: %w", err)
	}
	vkBytes, err := os.ReadFile(cfg.Circom.VerificationKeyPath)
	if err != nil {
		return fmt.Errorf("read verification key: %w", err)
	}
	vk, err := zkproof.ParseVerificationKey(vkBytes)
	if err != nil {
		return err
	}

	params := swap.Params{
		InitiatorBTCPubKey:   alicePub,
		InitiatorETHAddr:     crypto.PubkeyToAddress(aliceEthKey.PublicKey),
		ResponderBTCPubKey:   bobPub,
		ResponderETHAddr:     crypto.PubkeyToAddress(bobEthKey.PublicKey),
		SatsToSwap:           cfg.SwapParams.SatsToSwap,
		GweiToSwap:           cfg.SwapParams.GweiToSwap,
		BitcoinCSVDelay:      cfg.SwapParams.BitcoinCSVDelay,
		EthereumTimelockSecs: cfg.SwapParams.EthereumTimelockSecs,
	}

	aliceKP := &swapkeys.KeyPair{Private: aliceBTCPriv, Public: alicePub}
	bobKP := &swapkeys.KeyPair{Private: bobBTCPriv, Public: bobPub}

	alice, err := swap.NewCoordinator(swap.RoleInitiator, params, netParams, aliceKP, log)
	if err != nil {
		return fmt.Errorf("build initiator coordinator: %w", err)
	}
	alice.WithWallet(btcRPC).WithEVMClient(aliceEVM).WithWitness(wc, provingKey)

	bob, err := swap.NewCoordinator(swap.RoleResponder, params, netParams, bobKP, log)
	if err != nil {
		return fmt.Errorf("build responder coordinator: %w", err)
	}
	bob.WithWatcher(btcRPC).WithEVMClient(bobEVM)

	return runSwap(ctx, alice, bob, vk, btcRPC, log)
}

// runSwap drives the happy-path sequence of spec.md §4.8's state
// machine: A proves and funds Bitcoin, hands off to B, B confirms and
// funds Ethereum, A observes and withdraws (revealing k), B observes
// and redeems Bitcoin.
func runSwap(ctx context.Context, alice, bob *swap.Coordinator, vk *zkproof.VerificationKey, btcRPC *bitcoinRPCWallet, log zerolog.Logger) error {
	if err := alice.GenerateProof(); err != nil {
		return fmt.Errorf("generate proof: %w", err)
	}
	log.Info().Msg("initiator: proof generated")

	fundingTxid, err := alice.FundBitcoin(ctx)
	if err != nil {
		return fmt.Errorf("fund bitcoin: %w", err)
	}
	log.Info().Str("txid", fundingTxid.String()).Msg("initiator: bitcoin escrow funded")

	handoff, err := alice.Handoff()
	if err != nil {
		return fmt.Errorf("build handoff: %w", err)
	}

	if err := bob.ReceiveProof(handoff, vk); err != nil {
		return fmt.Errorf("verify handoff: %w", err)
	}
	log.Info().Msg("responder: initiator's proof verified")

	if err := bob.ConfirmBitcoinFunding(ctx); err != nil {
		return fmt.Errorf("confirm bitcoin funding: %w", err)
	}
	log.Info().Msg("responder: bitcoin escrow confirmed")

	_, err = bob.FundEthereum(ctx)
	if err != nil {
		return fmt.Errorf("fund ethereum: %w", err)
	}
	log.Info().Msg("responder: ethereum deposit submitted")

	if err := alice.ObserveEthereumDeposit(ctx, 0); err != nil {
		return fmt.Errorf("observe ethereum deposit: %w", err)
	}
	log.Info().Msg("initiator: ethereum deposit observed")

	if _, err := alice.WithdrawEthereum(ctx); err != nil {
		return fmt.Errorf("withdraw ethereum: %w", err)
	}
	log.Info().Msg("initiator: ethereum withdrawn, secret revealed on-chain")

	destAddr, err := btcRPC.ChangeAddress(ctx)
	if err != nil {
		return fmt.Errorf("derive bitcoin redemption address: %w", err)
	}
	destScript, err := txscript.PayToAddrScript(destAddr)
	if err != nil {
		return fmt.Errorf("build bitcoin redemption script: %w", err)
	}
	destAmount := bob.FundingOutputValue() - redeemFlatFeeSats

	tx, err := bob.ObserveSecretAndRedeemBitcoin(ctx, 0, destScript, destAmount)
	if err != nil {
		return fmt.Errorf("redeem bitcoin: %w", err)
	}
	redeemTxid, err := btcRPC.BroadcastTx(ctx, tx)
	if err != nil {
		return fmt.Errorf("broadcast bitcoin redemption: %w", err)
	}
	log.Info().Str("txid", redeemTxid.String()).Msg("responder: bitcoin redeemed")

	if err := alice.Finalize(); err != nil {
		return err
	}
	if err := bob.Finalize(); err != nil {
		return err
	}
	log.Info().Msg("swap complete")
	return nil
}
