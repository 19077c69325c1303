// Package scalarcodec converts 256-bit integers to and from the
// 4x64-bit little-endian limb form the compiled circuit consumes as
// its "secret" input signal.
package scalarcodec

import (
	"math/big"

	"github.com/distributed-lab/taproot-atomic-swap/swaperr"
)

// radix is the base of the limb decomposition: 2**64. Using
// u64::MAX (2**64 - 1) here instead is the off-by-one bug the
// reference implementation once carried; radix must be 2**64.
var radix = new(big.Int).Lsh(big.NewInt(1), 64)

// twoTo256 is the exclusive upper bound on representable values.
var twoTo256 = new(big.Int).Lsh(big.NewInt(1), 256)

// ToLimbs writes n's little-endian base-2**64 digits: limb 0 is least
// significant. n must satisfy 0 <= n < 2**256, otherwise ErrOverflow.
func ToLimbs(n *big.Int) ([4]uint64, error) {
	var limbs [4]uint64
	if n.Sign() < 0 || n.Cmp(twoTo256) >= 0 {
		return limbs, swaperr.New(swaperr.KindCrypto, "scalar out of 256-bit range", swaperr.ErrOverflow)
	}

	rem := new(big.Int).Set(n)
	mod := new(big.Int)
	for i := 0; i < 4; i++ {
		rem.DivMod(rem, radix, mod)
		limbs[i] = mod.Uint64()
	}
	return limbs, nil
}

// FromLimbs computes sum(l[i] * 2**(64*i)).
func FromLimbs(limbs [4]uint64) *big.Int {
	result := new(big.Int)
	for i := 3; i >= 0; i-- {
		result.Mul(result, radix)
		result.Add(result, new(big.Int).SetUint64(limbs[i]))
	}
	return result
}

// ToLimbsU64 is a convenience wrapper over ToLimbs for uint64 inputs,
// useful in tests and for small literal values.
func ToLimbsU64(n uint64) [4]uint64 {
	limbs, err := ToLimbs(new(big.Int).SetUint64(n))
	if err != nil {
		// n fits in a uint64, which is always < 2**256.
		panic(err)
	}
	return limbs
}
