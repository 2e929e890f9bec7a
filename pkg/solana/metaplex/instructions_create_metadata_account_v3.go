package metaplex

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/solagent/solagent-go/pkg/solana"
	"github.com/solagent/solagent-go/pkg/solana/binary"
)

type CreateMetadataAccountV3InstructionArgs struct {
	Data      DataV2
	IsMutable bool

	// CollectionDetails is set when the asset is itself a sized collection.
	CollectionDetails *CollectionDetails
}

type CreateMetadataAccountV3InstructionAccounts struct {
	Metadata        ed25519.PublicKey
	Mint            ed25519.PublicKey
	MintAuthority   ed25519.PublicKey
	Payer           ed25519.PublicKey
	UpdateAuthority ed25519.PublicKey

	UpdateAuthorityIsSigner bool
}

// NewCreateMetadataAccountV3Instruction validates the metadata and returns the
// instruction creating it. The mint must already be initialized.
func NewCreateMetadataAccountV3Instruction(
	accounts *CreateMetadataAccountV3InstructionAccounts,
	args *CreateMetadataAccountV3InstructionArgs,
) (solana.Instruction, error) {
	if err := args.Data.Validate(); err != nil {
		return solana.Instruction{}, err
	}
	for _, c := range args.Data.Creators {
		if c.Verified && (!accounts.UpdateAuthorityIsSigner || !bytes.Equal(c.Address, accounts.UpdateAuthority)) {
			return solana.Instruction{}, solana.NewValidationError("creators", "only the signing update authority can be created verified")
		}
	}

	expected, _, err := GetMetadataAddress(accounts.Mint)
	if err != nil {
		return solana.Instruction{}, err
	}
	if !bytes.Equal(expected, accounts.Metadata) {
		return solana.Instruction{}, solana.NewValidationError("metadata", "not the metadata address of the mint")
	}

	e := binary.NewEncoder().U8(uint8(InstructionTypeCreateMetadataAccountV3))
	args.Data.encode(e)
	e.Bool(args.IsMutable)
	if args.CollectionDetails == nil {
		e.Bool(false)
	} else {
		// CollectionDetails::V1
		e.Bool(true).U8(0).U64(args.CollectionDetails.Size)
	}

	data, err := e.Bytes()
	if err != nil {
		return solana.Instruction{}, solana.NewValidationError("data", "%s", err.Error())
	}

	return solana.Instruction{
		Program: PROGRAM_ID,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Metadata,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Mint,
				IsWritable: false,
				IsSigner:   false,
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
				PublicKey:  accounts.UpdateAuthority,
				IsWritable: false,
				IsSigner:   accounts.UpdateAuthorityIsSigner,
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

type DecompiledCreateMetadataAccountV3 struct {
	Accounts CreateMetadataAccountV3InstructionAccounts
	Args     CreateMetadataAccountV3InstructionArgs
}

func DecompileCreateMetadataAccountV3(m solana.Message, index int) (*DecompiledCreateMetadataAccountV3, error) {
	i, err := instructionAt(m, index, InstructionTypeCreateMetadataAccountV3)
	if err != nil {
		return nil, err
	}
	if len(i.Accounts) < 6 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}

	v := &DecompiledCreateMetadataAccountV3{
		Accounts: CreateMetadataAccountV3InstructionAccounts{
			Metadata:        m.Accounts[i.Accounts[0]],
			Mint:            m.Accounts[i.Accounts[1]],
			MintAuthority:   m.Accounts[i.Accounts[2]],
			Payer:           m.Accounts[i.Accounts[3]],
			UpdateAuthority: m.Accounts[i.Accounts[4]],
		},
	}
	v.Accounts.UpdateAuthorityIsSigner = int(i.Accounts[4]) < int(m.Header.NumSignatures)

	dec := binary.NewDecoder(i.Data[1:])
	v.Args.Data.decode(dec)
	v.Args.IsMutable = dec.Bool()
	if dec.Bool() {
		dec.U8()
		v.Args.CollectionDetails = &CollectionDetails{Size: dec.U64()}
	}
	if err := dec.Err(); err != nil {
		return nil, errors.Wrap(ErrInvalidInstructionData, err.Error())
	}

	return v, nil
}

func instructionAt(m solana.Message, index int, instructionType InstructionType) (solana.CompiledInstruction, error) {
	i, err := m.InstructionAt(index)
	if err != nil {
		return solana.CompiledInstruction{}, err
	}

	if !bytes.Equal(m.Accounts[i.ProgramIndex], PROGRAM_ID) {
		return i, solana.ErrIncorrectProgram
	}
	if len(i.Data) == 0 || i.Data[0] != byte(instructionType) {
		return i, solana.ErrIncorrectInstruction
	}

	return i, nil
}
