package metaplex

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/solagent/solagent-go/pkg/solana"
)

type VerifyCollectionInstructionAccounts struct {
	Metadata                ed25519.PublicKey
	CollectionAuthority     ed25519.PublicKey
	Payer                   ed25519.PublicKey
	CollectionMint          ed25519.PublicKey
	CollectionMetadata      ed25519.PublicKey
	CollectionMasterEdition ed25519.PublicKey
}

// NewVerifySizedCollectionItemInstruction verifies an item of a sized
// collection, incrementing the collection's size. The item's metadata must
// already exist, so this has to follow its creation.
func NewVerifySizedCollectionItemInstruction(accounts *VerifyCollectionInstructionAccounts) solana.Instruction {
	return solana.Instruction{
		Program: PROGRAM_ID,

		// Instruction args
		Data: []byte{byte(InstructionTypeVerifySizedCollectionItem)},

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Metadata,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.CollectionAuthority,
				IsWritable: false,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.Payer,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.CollectionMint,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.CollectionMetadata,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.CollectionMasterEdition,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}

// NewVerifyCollectionInstruction verifies an item of a collection created
// without collection details.
func NewVerifyCollectionInstruction(accounts *VerifyCollectionInstructionAccounts) solana.Instruction {
	return solana.Instruction{
		Program: PROGRAM_ID,

		// Instruction args
		Data: []byte{byte(InstructionTypeVerifyCollection)},

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Metadata,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.CollectionAuthority,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.Payer,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.CollectionMint,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.CollectionMetadata,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.CollectionMasterEdition,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}

type DecompiledVerifyCollection struct {
	Metadata       ed25519.PublicKey
	CollectionMint ed25519.PublicKey
	Sized          bool
}

func DecompileVerifyCollection(m solana.Message, index int) (*DecompiledVerifyCollection, error) {
	i, err := instructionAt(m, index, InstructionTypeVerifySizedCollectionItem)
	sized := true
	if err == solana.ErrIncorrectInstruction {
		i, err = instructionAt(m, index, InstructionTypeVerifyCollection)
		sized = false
	}
	if err != nil {
		return nil, err
	}
	if len(i.Data) != 1 {
		return nil, ErrInvalidInstructionData
	}
	if len(i.Accounts) < 6 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}

	return &DecompiledVerifyCollection{
		Metadata:       m.Accounts[i.Accounts[0]],
		CollectionMint: m.Accounts[i.Accounts[3]],
		Sized:          sized,
	}, nil
}
