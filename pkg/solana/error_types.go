package solana

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// Stage identifies where in a submission pipeline an error originated.
type Stage string

const (
	StageBuild     Stage = "build"
	StageDerive    Stage = "derive"
	StageRent      Stage = "rent"
	StageRead      Stage = "read"
	StageBlockhash Stage = "blockhash"
	StageDecode    Stage = "decode"
	StageSign      Stage = "sign"
	StageSubmit    Stage = "submit"
	StageConfirm   Stage = "confirm"
)

// ValidationError indicates malformed input to an instruction builder. It's
// raised before any network call is made.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError returns a ValidationError for the provided field.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DerivationError indicates a program address could not be derived.
type DerivationError struct {
	Program ed25519.PublicKey
	Cause   error
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("failed to derive address for program %s: %v", base58.Encode(e.Program), e.Cause)
}

func (e *DerivationError) Unwrap() error {
	return e.Cause
}

// ConnectivityError indicates the RPC endpoint could not be reached, or did
// not produce a usable response, during a read.
type ConnectivityError struct {
	Stage Stage
	Cause error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("rpc failure during %s: %v", e.Stage, e.Cause)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Cause
}

// RejectionError indicates the ledger explicitly rejected a transaction. The
// transaction that produced it must not be resubmitted.
type RejectionError struct {
	Stage     Stage
	Signature Signature

	// InstructionIndex is the index of the failing instruction, or -1 when the
	// rejection applies to the transaction as a whole.
	InstructionIndex int

	// Reason is the ledger's rejection message, verbatim.
	Reason string
	TxErr  *TransactionError
	Logs   []string
}

func (e *RejectionError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("transaction %s rejected during %s", base58.Encode(e.Signature[:]), e.Stage))
	if e.InstructionIndex >= 0 {
		sb.WriteString(fmt.Sprintf(" at instruction %d", e.InstructionIndex))
	}
	if len(e.Reason) > 0 {
		sb.WriteString(": ")
		sb.WriteString(e.Reason)
	}
	return sb.String()
}

func (e *RejectionError) Unwrap() error {
	if e.TxErr == nil {
		return nil
	}
	return e.TxErr
}

// newRejectionError builds a RejectionError from a parsed transaction error.
func newRejectionError(stage Stage, sig Signature, reason string, txErr *TransactionError) *RejectionError {
	e := &RejectionError{
		Stage:            stage,
		Signature:        sig,
		InstructionIndex: -1,
		Reason:           reason,
		TxErr:            txErr,
	}
	if txErr != nil {
		if ie := txErr.InstructionError(); ie != nil {
			e.InstructionIndex = ie.Index
		}
		if len(e.Reason) == 0 {
			e.Reason = txErr.Error()
		}
	}
	return e
}

// NewRejectionError returns a RejectionError for the provided transaction error.
func NewRejectionError(stage Stage, sig Signature, txErr *TransactionError) *RejectionError {
	return newRejectionError(stage, sig, "", txErr)
}

// AmbiguousOutcomeError indicates a transaction was broadcast, or may have
// been, but its fate could not be determined. Callers must query the status of
// Signature before deciding whether to rebuild and resubmit.
type AmbiguousOutcomeError struct {
	Signature Signature
	Cause     error
}

func (e *AmbiguousOutcomeError) Error() string {
	return fmt.Sprintf("outcome of transaction %s unknown: %v", base58.Encode(e.Signature[:]), e.Cause)
}

func (e *AmbiguousOutcomeError) Unwrap() error {
	return e.Cause
}

// EnvelopeMismatchError indicates a remotely constructed transaction requires
// a signature from an address the caller does not hold, or doesn't reference a
// one-shot signer the caller generated for it.
type EnvelopeMismatchError struct {
	Missing []ed25519.PublicKey
	Unused  []ed25519.PublicKey
}

func (e *EnvelopeMismatchError) Error() string {
	if len(e.Missing) == 0 {
		return fmt.Sprintf("remote transaction does not reference one-shot signers: %s", joinKeys(e.Unused))
	}
	return fmt.Sprintf("remote transaction requires signers not held locally: %s", joinKeys(e.Missing))
}

// MissingSignerError indicates a locally assembled transaction requires a
// signer that was not provided.
type MissingSignerError struct {
	Missing []ed25519.PublicKey
}

func (e *MissingSignerError) Error() string {
	return fmt.Sprintf("missing signers: %s", joinKeys(e.Missing))
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsDerivation(err error) bool {
	var target *DerivationError
	return errors.As(err, &target)
}

func IsConnectivity(err error) bool {
	var target *ConnectivityError
	return errors.As(err, &target)
}

func IsRejection(err error) bool {
	var target *RejectionError
	return errors.As(err, &target)
}

func IsAmbiguous(err error) bool {
	var target *AmbiguousOutcomeError
	return errors.As(err, &target)
}

func IsEnvelopeMismatch(err error) bool {
	var target *EnvelopeMismatchError
	return errors.As(err, &target)
}

func IsMissingSigner(err error) bool {
	var target *MissingSignerError
	return errors.As(err, &target)
}

func joinKeys(keys []ed25519.PublicKey) string {
	encoded := make([]string, len(keys))
	for i, k := range keys {
		encoded[i] = base58.Encode(k)
	}
	return strings.Join(encoded, ", ")
}
