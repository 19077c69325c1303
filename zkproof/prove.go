package zkproof

import (
	"github.com/iden3/go-rapidsnark/prover"

	"github.com/distributed-lab/taproot-atomic-swap/swaperr"
)

// Prove consumes a Groth16 proving key (zkey bytes) and a binary
// witness and returns (proofJSON, publicSignalsJSON) as UTF-8 strings
// in the snarkjs convention: proof has pi_a/pi_b/pi_c, public signals
// is a flat JSON array of decimal-string scalars.
//
// go-rapidsnark/prover wraps the native rapidsnark library, which
// implements the two-call size-probe/allocate/invoke protocol
// internally; callers of this function see a single synchronous call.
func Prove(provingKey, witnessBin []byte) (proofJSON string, publicSignalsJSON string, err error) {
	proofJSON, publicSignalsJSON, err = prover.Groth16ProverRaw(provingKey, witnessBin)
	if err != nil {
		return "", "", swaperr.New(swaperr.KindProver, "groth16 prove", err)
	}
	return proofJSON, publicSignalsJSON, nil
}
