// Package swapkeys implements C5: secp256k1 keypair handling, point
// aggregation for the escrow key, and circuit-limb pubkey parsing.
package swapkeys

import (
	"crypto/rand"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/iden3/go-iden3-crypto/poseidon"

	"github.com/distributed-lab/taproot-atomic-swap/scalarcodec"
	"github.com/distributed-lab/taproot-atomic-swap/swaperr"
)

// KeyPair wraps a secp256k1 private/public key pair.
type KeyPair struct {
	Private *btcec.PrivateKey
	Public  *btcec.PublicKey
}

// GenerateSwapSecret samples a fresh 256-bit secp256k1 scalar k, the
// swap secret, and returns it alongside its keypair K = k*G.
func GenerateSwapSecret() (*KeyPair, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, swaperr.New(swaperr.KindCrypto, "generate swap secret", err)
	}
	return &KeyPair{Private: priv, Public: priv.PubKey()}, nil
}

// ScalarToKeyPair derives a keypair from an existing 256-bit scalar,
// e.g. a participant's long-lived Bitcoin private key.
func ScalarToKeyPair(k *big.Int) (*KeyPair, error) {
	priv, pub := btcec.PrivKeyFromBytes(padTo32(k.Bytes()))
	return &KeyPair{Private: priv, Public: pub}, nil
}

func padTo32(b []byte) []byte {
	if len(b) >= 32 {
		return b[len(b)-32:]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

// PubkeyFromLimbs reconstructs a secp256k1 public key from the
// circuit's limb-encoded (X, Y) coordinates: concatenate
// 0x04 || X(32 bytes BE) || Y(32 bytes BE) and parse as uncompressed
// SEC1, per spec C5.
func PubkeyFromLimbs(xLimbs, yLimbs [4]uint64) (*btcec.PublicKey, error) {
	x := scalarcodec.FromLimbs(xLimbs)
	y := scalarcodec.FromLimbs(yLimbs)

	raw := make([]byte, 65)
	raw[0] = 0x04
	copy(raw[1:33], padTo32(x.Bytes()))
	copy(raw[33:65], padTo32(y.Bytes()))

	pub, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, swaperr.New(swaperr.KindCrypto, "parse pubkey from circuit limbs", err)
	}
	return pub, nil
}

// Aggregate computes the escrow key E = P + Q by secp256k1 point
// addition. This is plain point addition, not MuSig: it is key-path
// safe here only because the taproot script-path (revocation) requires
// the sender's own Bitcoin private key regardless, and key-path spend
// requires both parties' scalars. It must not be reused where
// rogue-key resistance is required.
func Aggregate(p, q *btcec.PublicKey) *btcec.PublicKey {
	var sum, pJac, qJac btcec.JacobianPoint
	p.AsJacobian(&pJac)
	q.AsJacobian(&qJac)
	btcec.AddNonConst(&pJac, &qJac, &sum)
	sum.ToAffine()
	return btcec.NewPublicKey(&sum.X, &sum.Y)
}

// SerializeUncompressed returns the 65-byte 0x04||X||Y encoding, the
// same form the circuit's public signals decompose into limbs.
func SerializeUncompressed(pub *btcec.PublicKey) []byte {
	return pub.SerializeUncompressed()
}

// SecretHash computes h = Poseidon(limbs(k)) over BN254's scalar
// field, the EVM hashlock and public signal index 8.
func SecretHash(k *big.Int) (*big.Int, error) {
	limbs, err := scalarcodec.ToLimbs(k)
	if err != nil {
		return nil, err
	}
	inputs := make([]*big.Int, 4)
	for i, l := range limbs {
		inputs[i] = new(big.Int).SetUint64(l)
	}
	h, err := poseidon.Hash(inputs)
	if err != nil {
		return nil, swaperr.New(swaperr.KindCrypto, "poseidon hash", err)
	}
	return h, nil
}

// SampleScalar draws a uniformly random value in [0, 2**256) using
// crypto/rand, for callers needing a raw scalar rather than a keypair
// (e.g. tests exercising the limb codec independently of secp256k1).
func SampleScalar() (*big.Int, error) {
	max := new(big.Int).Lsh(big.NewInt(1), 256)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return nil, swaperr.New(swaperr.KindCrypto, "sample scalar", err)
	}
	return n, nil
}
