// Package swaperr defines the error taxonomy shared across the swap
// core: every fallible operation returns an *Error tagged with a Kind
// so callers can branch on failure class without string matching.
package swaperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by subsystem, per the error taxonomy.
type Kind string

const (
	KindConfig       Kind = "config"
	KindCrypto       Kind = "crypto"
	KindCircuit      Kind = "circuit"
	KindProver       Kind = "prover"
	KindBitcoinChain Kind = "bitcoin_chain"
	KindEVMChain     Kind = "evm_chain"
	KindProtocol     Kind = "protocol"
)

// Error wraps a cause with a Kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *Error with the same Kind, so
// errors.Is(err, swaperr.New(swaperr.KindBitcoinChain, "", nil))
// matches any error of that kind; Of below returns the Kind directly.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// Sentinel errors for the specific, named failure conditions the
// protocol distinguishes by behavior rather than by kind alone.
var (
	ErrOverflow      = errors.New("value exceeds 256 bits")
	ErrProofInvalid  = errors.New("proof failed pairing check")
	ErrSyncTimeout   = errors.New("bitcoin watch exhausted poll budget")
	ErrBadTransition = errors.New("invalid state transition")
)

// Of reports the Kind of err if it is (or wraps) a *Error, and false
// otherwise.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
