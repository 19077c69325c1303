package main

import (
	"crypto/ecdsa"
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/distributed-lab/taproot-atomic-swap/swaperr"
)

func strip0x(s string) string {
	return strings.TrimPrefix(s, "0x")
}

func parseBitcoinPrivateKey(hexKey string) (*btcec.PrivateKey, *btcec.PublicKey, error) {
	raw, err := hex.DecodeString(strip0x(hexKey))
	if err != nil {
		return nil, nil, swaperr.New(swaperr.KindConfig, "decode bitcoin_private_key", err)
	}
	priv, pub := btcec.PrivKeyFromBytes(raw)
	return priv, pub, nil
}

func parseEthereumPrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	priv, err := crypto.HexToECDSA(strip0x(hexKey))
	if err != nil {
		return nil, swaperr.New(swaperr.KindConfig, "decode ethereum_private_key", err)
	}
	return priv, nil
}
