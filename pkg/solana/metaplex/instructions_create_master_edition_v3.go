package metaplex

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/solagent/solagent-go/pkg/pointer"
	"github.com/solagent/solagent-go/pkg/solana"
	"github.com/solagent/solagent-go/pkg/solana/binary"
)

type CreateMasterEditionV3InstructionArgs struct {
	// MaxSupply of printed editions. Nil allows unlimited prints.
	MaxSupply *uint64
}

type CreateMasterEditionV3InstructionAccounts struct {
	Edition         ed25519.PublicKey
	Mint            ed25519.PublicKey
	UpdateAuthority ed25519.PublicKey
	MintAuthority   ed25519.PublicKey
	Payer           ed25519.PublicKey
	Metadata        ed25519.PublicKey
	TokenProgram    ed25519.PublicKey
}

// NewCreateMasterEditionV3Instruction returns the instruction creating the
// master edition of a mint with exactly one token minted. The program takes
// over the mint and freeze authorities.
func NewCreateMasterEditionV3Instruction(
	accounts *CreateMasterEditionV3InstructionAccounts,
	args *CreateMasterEditionV3InstructionArgs,
) (solana.Instruction, error) {
	expected, _, err := GetMasterEditionAddress(accounts.Mint)
	if err != nil {
		return solana.Instruction{}, err
	}
	if !bytes.Equal(expected, accounts.Edition) {
		return solana.Instruction{}, solana.NewValidationError("edition", "not the master edition address of the mint")
	}

	data, err := binary.NewEncoder().
		U8(uint8(InstructionTypeCreateMasterEditionV3)).
		OptionU64(args.MaxSupply).
		Bytes()
	if err != nil {
		return solana.Instruction{}, err
	}

	return solana.Instruction{
		Program: PROGRAM_ID,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Edition,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Mint,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.UpdateAuthority,
				IsWritable: false,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.MintAuthority,
				IsWritable: false,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.Payer,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.Metadata,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.TokenProgram,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SYSVAR_RENT_PUBKEY,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}, nil
}

type DecompiledCreateMasterEditionV3 struct {
	Edition   ed25519.PublicKey
	Mint      ed25519.PublicKey
	Metadata  ed25519.PublicKey
	MaxSupply *uint64
}

func DecompileCreateMasterEditionV3(m solana.Message, index int) (*DecompiledCreateMasterEditionV3, error) {
	i, err := instructionAt(m, index, InstructionTypeCreateMasterEditionV3)
	if err != nil {
		return nil, err
	}
	if len(i.Accounts) < 8 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}

	v := &DecompiledCreateMasterEditionV3{
		Edition:  m.Accounts[i.Accounts[0]],
		Mint:     m.Accounts[i.Accounts[1]],
		Metadata: m.Accounts[i.Accounts[5]],
	}

	dec := binary.NewDecoder(i.Data[1:])
	if dec.Bool() {
		v.MaxSupply = pointer.To(dec.U64())
	}
	if err := dec.Err(); err != nil {
		return nil, errors.Wrap(ErrInvalidInstructionData, err.Error())
	}

	return v, nil
}
