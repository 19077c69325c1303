package zkproof

import (
	"encoding/json"
	"math/big"

	"github.com/distributed-lab/taproot-atomic-swap/swaperr"
)

// Proof mirrors the snarkjs Groth16 proof JSON convention, confirmed
// against the reference implementation's rapidsnark verifier binding
// (pi_a/pi_b/pi_c, G1 points as [X,Y,Z] decimal strings with Z==1
// assumed affine, G2 points as [[X.c0,X.c1],[Y.c0,Y.c1],[Z...]]).
type Proof struct {
	PiA []string   `json:"pi_a"`
	PiB [][]string `json:"pi_b"`
	PiC []string   `json:"pi_c"`
}

// VerificationKey mirrors the snarkjs verification key JSON.
type VerificationKey struct {
	VkAlpha1 []string   `json:"vk_alpha_1"`
	VkBeta2  [][]string `json:"vk_beta_2"`
	VkGamma2 [][]string `json:"vk_gamma_2"`
	VkDelta2 [][]string `json:"vk_delta_2"`
	IC       [][]string `json:"IC"`
}

func ParseProof(data []byte) (*Proof, error) {
	var p Proof
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, swaperr.New(swaperr.KindCrypto, "parse proof json", err)
	}
	return &p, nil
}

func ParseVerificationKey(data []byte) (*VerificationKey, error) {
	var vk VerificationKey
	if err := json.Unmarshal(data, &vk); err != nil {
		return nil, swaperr.New(swaperr.KindCrypto, "parse verification key json", err)
	}
	return &vk, nil
}

// PublicSignals parses the ordered decimal-string scalar list. Per
// spec, it must carry exactly 9 entries: K.X limbs (0..3), K.Y limbs
// (4..7), Poseidon hash h (8).
type PublicSignals []string

const (
	PubSignalsPubkeyXEnd       = 3
	PubSignalsPubkeyYEnd       = 7
	PubSignalsSecretHashIndex  = 8
	PubSignalsExpectedCount    = 9
)

func ParsePublicSignals(data []byte) (PublicSignals, error) {
	var ps PublicSignals
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, swaperr.New(swaperr.KindCrypto, "parse public signals json", err)
	}
	if len(ps) != PubSignalsExpectedCount {
		return nil, swaperr.New(swaperr.KindProtocol, "unexpected public signals layout", nil)
	}
	return ps, nil
}

// BigInts decodes every entry as a base-10 big.Int.
func (ps PublicSignals) BigInts() ([]*big.Int, error) {
	out := make([]*big.Int, len(ps))
	for i, s := range ps {
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, swaperr.New(swaperr.KindCrypto, "malformed public signal scalar", nil)
		}
		out[i] = n
	}
	return out, nil
}

// PubkeyLimbs returns the (X,Y) limb arrays at indices 0..3 and 4..7.
func (ps PublicSignals) PubkeyLimbs() (x, y [4]uint64, err error) {
	vals, err := ps.BigInts()
	if err != nil {
		return x, y, err
	}
	for i := 0; i <= PubSignalsPubkeyXEnd; i++ {
		x[i] = vals[i].Uint64()
	}
	for i := 0; i <= PubSignalsPubkeyYEnd-4; i++ {
		y[i] = vals[4+i].Uint64()
	}
	return x, y, nil
}

// SecretHash returns the Poseidon hash public signal at index 8.
func (ps PublicSignals) SecretHash() (*big.Int, error) {
	vals, err := ps.BigInts()
	if err != nil {
		return nil, err
	}
	return vals[PubSignalsSecretHashIndex], nil
}
