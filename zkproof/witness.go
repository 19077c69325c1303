// Package zkproof implements C2 (witness calculation), C3 (Groth16
// proving), and C4 (Groth16 verification) against the canonical
// snarkjs/circom JSON and wtns binary conventions.
package zkproof

import (
	"encoding/json"

	"github.com/iden3/go-rapidsnark/witness"

	"github.com/distributed-lab/taproot-atomic-swap/swaperr"
)

// WitnessCalculator hosts a compiled circom wasm module and produces
// a binary witness for a given set of named input signals. It wraps
// iden3/go-rapidsnark/witness, which implements the same wasmer-hosted
// sandbox and host-function ABI as the reference implementation: the
// no-op runtime.{error,log,logSetSignal,...} imports this module
// relies on, and the FNV-1a addressed, big-endian-limb input protocol
// described in the witness serialization format.
type WitnessCalculator struct {
	calc *witness.Circom2WitnessCalculator
}

// NewWitnessCalculator loads a compiled circuit wasm module. sanityCheck
// enables the circuit's own internal assertion checks during witness
// build.
func NewWitnessCalculator(circuitWasm []byte, sanityCheck bool) (*WitnessCalculator, error) {
	calc, err := witness.NewCircom2WitnessCalculator(circuitWasm, sanityCheck)
	if err != nil {
		return nil, swaperr.New(swaperr.KindCircuit, "load witness calculator module", err)
	}
	return &WitnessCalculator{calc: calc}, nil
}

// secretSignalName names the single private input this protocol's
// circuit takes: the swap secret, decomposed into 4 limbs per scalarcodec.
const secretSignalName = "secret"

// CalculateWitness builds the binary witness for the given 256-bit
// secret scalar. The circuit is expected to declare a single input
// signal named "secret" (an array of 4 limbs, per scalarcodec.ToLimbs),
// and to expose K=(K.X,K.Y) and h=Poseidon(secret) as public outputs
// ordered per the public-signals layout.
func (w *WitnessCalculator) CalculateWitness(limbs [4]uint64, sanityCheck bool) ([]byte, error) {
	inputsJSON, err := json.Marshal(map[string][4]uint64{
		secretSignalName: limbs,
	})
	if err != nil {
		return nil, swaperr.New(swaperr.KindCircuit, "marshal witness inputs", err)
	}

	finalInputs, err := witness.ParseInputs(inputsJSON)
	if err != nil {
		return nil, swaperr.New(swaperr.KindCircuit, "parse witness inputs", err)
	}

	wtns, err := w.calc.CalculateWTNSBin(finalInputs, sanityCheck)
	if err != nil {
		return nil, swaperr.New(swaperr.KindCircuit, "calculate witness", err)
	}
	return wtns, nil
}
