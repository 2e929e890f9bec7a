package solana

import (
	"bytes"
	"crypto/ed25519"
	"errors"
)

var (
	ErrIncorrectProgram       = errors.New("incorrect program")
	ErrIncorrectInstruction   = errors.New("incorrect instruction")

	ErrAccountIndexOutOfRange = errors.New("account index out of range")
)

// AccountMeta is an account referenced by an instruction, along with the
// permissions the instruction needs on it.
type AccountMeta struct {
	PublicKey  ed25519.PublicKey
	IsSigner   bool
	IsWritable bool
	isPayer    bool
	isProgram  bool
}

// NewAccountMeta returns a writable AccountMeta.
func NewAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{
		PublicKey:  pub,
		IsSigner:   isSigner,
		IsWritable: true,
	}
}

// NewReadonlyAccountMeta returns a readonly AccountMeta.
func NewReadonlyAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{
		PublicKey:  pub,
		IsSigner:   isSigner,
		IsWritable: false,
	}
}

// compareAccountMeta orders accounts the way a message header describes
// them, as contiguous ranges: the fee payer, then signers, then writable
// accounts. Programs follow the accounts sharing their permissions, and keys
// break ties.
//
// Reference: https://docs.solana.com/transaction#account-addresses-format
func compareAccountMeta(a, b AccountMeta) int {
	switch {
	case a.isPayer != b.isPayer:
		return firstIf(a.isPayer)
	case a.IsSigner != b.IsSigner:
		return firstIf(a.IsSigner)
	case a.IsWritable != b.IsWritable:
		return firstIf(a.IsWritable)
	case a.isProgram != b.isProgram:
		return firstIf(!a.isProgram)
	default:
		return bytes.Compare(a.PublicKey, b.PublicKey)
	}
}

func firstIf(first bool) int {
	if first {
		return -1
	}
	return 1
}

// Instruction is a single program invocation within a transaction.
type Instruction struct {
	Program  ed25519.PublicKey
	Accounts []AccountMeta
	Data     []byte
}

func NewInstruction(program ed25519.PublicKey, data []byte, accounts ...AccountMeta) Instruction {
	return Instruction{
		Program:  program,
		Data:     data,
		Accounts: accounts,
	}
}

// Signers returns the public keys of every account the instruction marks as
// a signer, in declaration order.
func (i Instruction) Signers() []ed25519.PublicKey {
	var signers []ed25519.PublicKey
	for _, a := range i.Accounts {
		if a.IsSigner {
			signers = append(signers, a.PublicKey)
		}
	}
	return signers
}

// CompiledInstruction is an Instruction with its program and accounts replaced
// by indexes into a message's account list.
type CompiledInstruction struct {
	ProgramIndex byte
	Accounts     []byte
	Data         []byte
}
