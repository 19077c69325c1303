package zkproof

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"

	"github.com/distributed-lab/taproot-atomic-swap/swaperr"
)

// Verifier holds a processed BN254 Groth16 verification key so repeat
// verifications against the same circuit avoid re-parsing it.
//
// There is no circom-proof Groth16 verifier directly exercised in the
// retrieval pack (vocdoni-davinci-node converts circom proofs into
// gnark's *recursion* verifier, a much heavier machinery meant for
// proof composition inside another circuit). This implements the
// pairing check directly against gnark-crypto/ecc/bn254, the same
// BN254 arithmetic library the teacher's own circuit already depends
// on, following the textbook Groth16 equation spec section 4.4 gives:
//
//	e(piA, piB) = e(alpha, beta) . e(vkX, gamma) . e(piC, delta)
//
// which is checked as the equivalent single product-of-pairings test
// e(piA,piB) . e(-alpha,beta) . e(-vkX,gamma) . e(-piC,delta) == 1.
type Verifier struct {
	alpha bn254.G1Affine
	beta  bn254.G2Affine
	gamma bn254.G2Affine
	delta bn254.G2Affine
	ic    []bn254.G1Affine
}

func decG1(coords []string) (bn254.G1Affine, error) {
	var p bn254.G1Affine
	if len(coords) < 2 {
		return p, swaperr.New(swaperr.KindCrypto, "malformed G1 point", nil)
	}
	if _, err := p.X.SetString(coords[0]); err != nil {
		return p, swaperr.New(swaperr.KindCrypto, "parse G1.X", err)
	}
	if _, err := p.Y.SetString(coords[1]); err != nil {
		return p, swaperr.New(swaperr.KindCrypto, "parse G1.Y", err)
	}
	if !p.IsOnCurve() {
		return p, swaperr.New(swaperr.KindCrypto, "G1 point not on curve", nil)
	}
	return p, nil
}

func decG2(coords [][]string) (bn254.G2Affine, error) {
	var p bn254.G2Affine
	if len(coords) < 2 || len(coords[0]) < 2 || len(coords[1]) < 2 {
		return p, swaperr.New(swaperr.KindCrypto, "malformed G2 point", nil)
	}
	if _, err := p.X.A0.SetString(coords[0][0]); err != nil {
		return p, swaperr.New(swaperr.KindCrypto, "parse G2.X.c0", err)
	}
	if _, err := p.X.A1.SetString(coords[0][1]); err != nil {
		return p, swaperr.New(swaperr.KindCrypto, "parse G2.X.c1", err)
	}
	if _, err := p.Y.A0.SetString(coords[1][0]); err != nil {
		return p, swaperr.New(swaperr.KindCrypto, "parse G2.Y.c0", err)
	}
	if _, err := p.Y.A1.SetString(coords[1][1]); err != nil {
		return p, swaperr.New(swaperr.KindCrypto, "parse G2.Y.c1", err)
	}
	if !p.IsOnCurve() {
		return p, swaperr.New(swaperr.KindCrypto, "G2 point not on curve", nil)
	}
	return p, nil
}

// NewVerifier processes a verification key once; gamma^-1/delta^-1
// style precomputation is left to gnark-crypto's pairing engine, which
// already caches line-function coefficients per call.
func NewVerifier(vk *VerificationKey) (*Verifier, error) {
	alpha, err := decG1(vk.VkAlpha1)
	if err != nil {
		return nil, err
	}
	beta, err := decG2(vk.VkBeta2)
	if err != nil {
		return nil, err
	}
	gamma, err := decG2(vk.VkGamma2)
	if err != nil {
		return nil, err
	}
	delta, err := decG2(vk.VkDelta2)
	if err != nil {
		return nil, err
	}
	ic := make([]bn254.G1Affine, len(vk.IC))
	for i, c := range vk.IC {
		p, err := decG1(c)
		if err != nil {
			return nil, swaperr.New(swaperr.KindCrypto, "parse IC point", err)
		}
		ic[i] = p
	}
	return &Verifier{alpha: alpha, beta: beta, gamma: gamma, delta: delta, ic: ic}, nil
}

// Verify checks the Groth16 pairing equation for proof against the
// ordered public signals. It returns (false, nil) for a well-formed
// but invalid proof and a non-nil error only for malformed inputs.
func (v *Verifier) Verify(proof *Proof, publicSignals []*big.Int) (bool, error) {
	if len(publicSignals) != len(v.ic)-1 {
		return false, swaperr.New(swaperr.KindProtocol, "public signal count does not match verification key", nil)
	}

	piA, err := decG1(proof.PiA)
	if err != nil {
		return false, err
	}
	piB, err := decG2(proof.PiB)
	if err != nil {
		return false, err
	}
	piC, err := decG1(proof.PiC)
	if err != nil {
		return false, err
	}

	// vkX = IC[0] + sum(pub_i * IC[i+1])
	var vkX bn254.G1Jac
	vkX.FromAffine(&v.ic[0])
	for i, pub := range publicSignals {
		var term bn254.G1Jac
		term.ScalarMultiplication(&v.ic[i+1], pub)
		vkX.AddAssign(&term)
	}
	var vkXAff bn254.G1Affine
	vkXAff.FromJacobian(&vkX)

	negAlpha := negG1(v.alpha)
	negVkX := negG1(vkXAff)
	negPiC := negG1(piC)

	ok, err := bn254.PairingCheck(
		[]bn254.G1Affine{piA, negAlpha, negVkX, negPiC},
		[]bn254.G2Affine{piB, v.beta, v.gamma, v.delta},
	)
	if err != nil {
		return false, swaperr.New(swaperr.KindCrypto, "pairing check", err)
	}
	return ok, nil
}

func negG1(p bn254.G1Affine) bn254.G1Affine {
	var neg bn254.G1Affine
	neg.X.Set(&p.X)
	neg.Y.Neg(&p.Y)
	return neg
}

// VerifyJSON is the convenience entry point taking the raw JSON forms
// a coordinator receives over the wire.
func VerifyJSON(vkJSON, proofJSON, publicSignalsJSON []byte) (bool, error) {
	vk, err := ParseVerificationKey(vkJSON)
	if err != nil {
		return false, err
	}
	proof, err := ParseProof(proofJSON)
	if err != nil {
		return false, err
	}
	signals, err := ParsePublicSignals(publicSignalsJSON)
	if err != nil {
		return false, err
	}
	vals, err := signals.BigInts()
	if err != nil {
		return false, err
	}
	verifier, err := NewVerifier(vk)
	if err != nil {
		return false, err
	}
	return verifier.Verify(&Proof{PiA: proof.PiA, PiB: proof.PiB, PiC: proof.PiC}, vals)
}
