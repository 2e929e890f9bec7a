package memo

import (
	"bytes"
	"crypto/ed25519"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/solagent/solagent-go/pkg/solana"
)

// ProgramKey is the address of the memo program used for new memos.
//
// Current key: MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr
var ProgramKey ed25519.PublicKey

// LegacyProgramKey is the original memo program, which is still recognized
// when decompiling.
//
// Current key: Memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo
var LegacyProgramKey = ed25519.PublicKey{5, 74, 83, 80, 248, 93, 200, 130, 214, 20, 165, 86, 114, 120, 138, 41, 109, 223, 30, 171, 171, 208, 166, 6, 120, 136, 73, 50, 244, 238, 246, 160}

// MaxLength is the largest memo that comfortably fits alongside other
// instructions in a single transaction.
const MaxLength = 566

var ErrInvalidMemo = errors.New("memo must be valid utf-8")

func init() {
	var err error
	ProgramKey, err = solana.ParsePublicKey("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")
	if err != nil {
		panic(err)
	}
}

// Instruction returns a memo instruction. Any signers listed must sign the
// enclosing transaction.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/master/memo/program/src/entrypoint.rs
func Instruction(data string, signers ...ed25519.PublicKey) solana.Instruction {
	accounts := make([]solana.AccountMeta, len(signers))
	for i, signer := range signers {
		accounts[i] = solana.NewReadonlyAccountMeta(signer, true)
	}

	return solana.NewInstruction(
		ProgramKey,
		[]byte(data),
		accounts...,
	)
}

// Validate checks that data can be carried by a memo instruction.
func Validate(data string) error {
	if !utf8.ValidString(data) {
		return solana.NewValidationError("memo", "must be valid utf-8")
	}
	if len(data) > MaxLength {
		return solana.NewValidationError("memo", "must be at most %d bytes", MaxLength)
	}
	return nil
}

type DecompiledMemo struct {
	Program ed25519.PublicKey
	Signers []ed25519.PublicKey
	Data    []byte
}

func DecompileMemo(m solana.Message, index int) (*DecompiledMemo, error) {
	i, err := m.InstructionAt(index)
	if err != nil {
		return nil, err
	}

	program := m.Accounts[i.ProgramIndex]
	if !bytes.Equal(program, ProgramKey) && !bytes.Equal(program, LegacyProgramKey) {
		return nil, solana.ErrIncorrectProgram
	}
	if !utf8.Valid(i.Data) {
		return nil, ErrInvalidMemo
	}

	decompiled := &DecompiledMemo{
		Program: program,
		Data:    i.Data,
	}
	for _, index := range i.Accounts {
		decompiled.Signers = append(decompiled.Signers, m.Accounts[index])
	}

	return decompiled, nil
}
