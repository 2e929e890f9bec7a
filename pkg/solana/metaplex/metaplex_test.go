package metaplex

import (
	"crypto/ed25519"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solagent/solagent-go/pkg/solana"
)

func TestAddresses(t *testing.T) {
	mint := generateKeys(t, 1)[0]

	metadata, bump, err := GetMetadataAddress(mint)
	require.NoError(t, err)
	expected, err := solana.CreateProgramAddress(PROGRAM_ID, []byte("metadata"), PROGRAM_ID, mint, []byte{bump})
	require.NoError(t, err)
	assert.EqualValues(t, expected, metadata)

	edition, bump, err := GetMasterEditionAddress(mint)
	require.NoError(t, err)
	expected, err = solana.CreateProgramAddress(PROGRAM_ID, []byte("metadata"), PROGRAM_ID, mint, []byte("edition"), []byte{bump})
	require.NoError(t, err)
	assert.EqualValues(t, expected, edition)

	again, _, err := GetMetadataAddress(mint)
	require.NoError(t, err)
	assert.Equal(t, metadata, again)
	assert.NotEqual(t, metadata, edition)
}

func TestDataV2_Validate(t *testing.T) {
	keys := generateKeys(t, 6)

	valid := func() DataV2 {
		return DataV2{
			Name:                 "Solagent",
			Symbol:               "SOLA",
			URI:                  "https://example.com/sola.json",
			SellerFeeBasisPoints: 500,
		}
	}

	d := valid()
	assert.NoError(t, d.Validate())

	for _, tc := range []struct {
		field  string
		mutate func(d *DataV2)
	}{
		{"name", func(d *DataV2) { d.Name = "" }},
		{"name", func(d *DataV2) { d.Name = strings.Repeat("a", MaxNameLength+1) }},
		{"symbol", func(d *DataV2) { d.Symbol = strings.Repeat("S", MaxSymbolLength+1) }},
		{"uri", func(d *DataV2) { d.URI = "" }},
		{"uri", func(d *DataV2) { d.URI = strings.Repeat("u", MaxURILength+1) }},
		{"seller_fee_basis_points", func(d *DataV2) { d.SellerFeeBasisPoints = MaxSellerFeeBasisPoints + 1 }},
		{"creators", func(d *DataV2) {
			for i := 0; i < MaxCreators+1; i++ {
				d.Creators = append(d.Creators, Creator{Address: keys[i], Share: 10})
			}
		}},
		{"creators", func(d *DataV2) {
			d.Creators = []Creator{{Address: keys[0], Share: 50}, {Address: keys[1], Share: 40}}
		}},
		{"creators", func(d *DataV2) {
			d.Creators = []Creator{{Address: keys[0], Share: 50}, {Address: keys[0], Share: 50}}
		}},
		{"collection", func(d *DataV2) { d.Collection = &Collection{Verified: true, Key: keys[0]} }},
	} {
		d := valid()
		tc.mutate(&d)

		err := d.Validate()
		require.Error(t, err)
		assert.True(t, solana.IsValidation(err))

		var validationErr *solana.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, tc.field, validationErr.Field)
	}

	d = valid()
	d.Name = strings.Repeat("a", MaxNameLength)
	d.Symbol = strings.Repeat("S", MaxSymbolLength)
	d.URI = strings.Repeat("u", MaxURILength)
	d.SellerFeeBasisPoints = MaxSellerFeeBasisPoints
	d.Creators = []Creator{{Address: keys[0], Share: 60}, {Address: keys[1], Share: 40}}
	assert.NoError(t, d.Validate())
}

func TestCreateMetadataAccountV3(t *testing.T) {
	keys := generateKeys(t, 3)
	payer, mint, collection := keys[0], keys[1], keys[2]

	metadata, _, err := GetMetadataAddress(mint)
	require.NoError(t, err)

	accounts := &CreateMetadataAccountV3InstructionAccounts{
		Metadata:                metadata,
		Mint:                    mint,
		MintAuthority:           payer,
		Payer:                   payer,
		UpdateAuthority:         payer,
		UpdateAuthorityIsSigner: true,
	}
	args := &CreateMetadataAccountV3InstructionArgs{
		Data: DataV2{
			Name:                 "ab",
			Symbol:               "S",
			URI:                  "u",
			SellerFeeBasisPoints: 500,
		},
		IsMutable: true,
	}

	instruction, err := NewCreateMetadataAccountV3Instruction(accounts, args)
	require.NoError(t, err)
	assert.EqualValues(t, PROGRAM_ID, instruction.Program)
	assert.Equal(t, []byte{
		33,
		2, 0, 0, 0, 'a', 'b',
		1, 0, 0, 0, 'S',
		1, 0, 0, 0, 'u',
		0xf4, 0x01,
		0, // creators
		0, // collection
		0, // uses
		1, // is mutable
		0, // collection details
	}, instruction.Data)

	require.Len(t, instruction.Accounts, 7)
	assert.EqualValues(t, metadata, instruction.Accounts[0].PublicKey)
	assert.True(t, instruction.Accounts[0].IsWritable)
	assert.False(t, instruction.Accounts[1].IsSigner)
	assert.True(t, instruction.Accounts[2].IsSigner)
	assert.True(t, instruction.Accounts[3].IsSigner)
	assert.True(t, instruction.Accounts[3].IsWritable)
	assert.True(t, instruction.Accounts[4].IsSigner)
	assert.EqualValues(t, SYSTEM_PROGRAM_ID, instruction.Accounts[5].PublicKey)

	// Round trip through the wire format.
	args.Data.Creators = []Creator{{Address: payer, Verified: true, Share: 100}}
	args.Data.Collection = &Collection{Key: collection}
	args.CollectionDetails = &CollectionDetails{Size: 0}
	instruction, err = NewCreateMetadataAccountV3Instruction(accounts, args)
	require.NoError(t, err)

	var tx solana.Transaction
	require.NoError(t, tx.Unmarshal(solana.NewTransaction(payer, instruction).Marshal()))

	decompiled, err := DecompileCreateMetadataAccountV3(tx.Message, 0)
	require.NoError(t, err)
	assert.Equal(t, *args, decompiled.Args)
	assert.EqualValues(t, metadata, decompiled.Accounts.Metadata)
	assert.EqualValues(t, mint, decompiled.Accounts.Mint)
	assert.EqualValues(t, payer, decompiled.Accounts.UpdateAuthority)
	assert.True(t, decompiled.Accounts.UpdateAuthorityIsSigner)

	// An account index past the static keys, as a v0 message loading accounts
	// from a lookup table would have, is an error rather than a panic.
	tx.Message.Instructions[0].Accounts[1] = byte(len(tx.Message.Accounts))
	_, err = DecompileCreateMetadataAccountV3(tx.Message, 0)
	assert.ErrorIs(t, err, solana.ErrAccountIndexOutOfRange)
}

func TestCreateMetadataAccountV3_Invalid(t *testing.T) {
	keys := generateKeys(t, 3)
	payer, mint := keys[0], keys[1]

	metadata, _, err := GetMetadataAddress(mint)
	require.NoError(t, err)

	accounts := &CreateMetadataAccountV3InstructionAccounts{
		Metadata:        metadata,
		Mint:            mint,
		MintAuthority:   payer,
		Payer:           payer,
		UpdateAuthority: payer,
	}
	args := &CreateMetadataAccountV3InstructionArgs{
		Data: DataV2{Name: "n", URI: "u", SellerFeeBasisPoints: 10001},
	}

	_, err = NewCreateMetadataAccountV3Instruction(accounts, args)
	assert.True(t, solana.IsValidation(err))

	// Verified creators require a signing update authority.
	args.Data.SellerFeeBasisPoints = 0
	args.Data.Creators = []Creator{{Address: payer, Verified: true, Share: 100}}
	_, err = NewCreateMetadataAccountV3Instruction(accounts, args)
	assert.True(t, solana.IsValidation(err))

	args.Data.Creators = nil
	accounts.Metadata = keys[2]
	_, err = NewCreateMetadataAccountV3Instruction(accounts, args)
	assert.True(t, solana.IsValidation(err))
}

func TestCreateMasterEditionV3(t *testing.T) {
	keys := generateKeys(t, 3)
	payer, mint, tokenProgram := keys[0], keys[1], keys[2]

	metadata, _, err := GetMetadataAddress(mint)
	require.NoError(t, err)
	edition, _, err := GetMasterEditionAddress(mint)
	require.NoError(t, err)

	maxSupply := uint64(1)
	instruction, err := NewCreateMasterEditionV3Instruction(
		&CreateMasterEditionV3InstructionAccounts{
			Edition:         edition,
			Mint:            mint,
			UpdateAuthority: payer,
			MintAuthority:   payer,
			Payer:           payer,
			Metadata:        metadata,
			TokenProgram:    tokenProgram,
		},
		&CreateMasterEditionV3InstructionArgs{MaxSupply: &maxSupply},
	)
	require.NoError(t, err)
	assert.Equal(t, []byte{17, 1, 1, 0, 0, 0, 0, 0, 0, 0}, instruction.Data)
	require.Len(t, instruction.Accounts, 9)
	assert.True(t, instruction.Accounts[0].IsWritable)
	assert.True(t, instruction.Accounts[1].IsWritable)
	assert.True(t, instruction.Accounts[2].IsSigner)
	assert.True(t, instruction.Accounts[3].IsSigner)
	assert.EqualValues(t, tokenProgram, instruction.Accounts[6].PublicKey)

	decompiled, err := DecompileCreateMasterEditionV3(solana.NewTransaction(payer, instruction).Message, 0)
	require.NoError(t, err)
	assert.EqualValues(t, edition, decompiled.Edition)
	assert.EqualValues(t, metadata, decompiled.Metadata)
	require.NotNil(t, decompiled.MaxSupply)
	assert.EqualValues(t, 1, *decompiled.MaxSupply)

	_, err = NewCreateMasterEditionV3Instruction(
		&CreateMasterEditionV3InstructionAccounts{Edition: metadata, Mint: mint},
		&CreateMasterEditionV3InstructionArgs{},
	)
	assert.True(t, solana.IsValidation(err))
}

func TestVerifyCollection(t *testing.T) {
	keys := generateKeys(t, 6)
	accounts := &VerifyCollectionInstructionAccounts{
		Metadata:                keys[0],
		CollectionAuthority:     keys[1],
		Payer:                   keys[1],
		CollectionMint:          keys[2],
		CollectionMetadata:      keys[3],
		CollectionMasterEdition: keys[4],
	}

	sized := NewVerifySizedCollectionItemInstruction(accounts)
	assert.Equal(t, []byte{30}, sized.Data)
	assert.True(t, sized.Accounts[4].IsWritable)

	decompiled, err := DecompileVerifyCollection(solana.NewTransaction(keys[1], sized).Message, 0)
	require.NoError(t, err)
	assert.True(t, decompiled.Sized)
	assert.EqualValues(t, keys[0], decompiled.Metadata)
	assert.EqualValues(t, keys[2], decompiled.CollectionMint)

	unsized := NewVerifyCollectionInstruction(accounts)
	assert.Equal(t, []byte{18}, unsized.Data)
	assert.False(t, unsized.Accounts[4].IsWritable)

	decompiled, err = DecompileVerifyCollection(solana.NewTransaction(keys[1], unsized).Message, 0)
	require.NoError(t, err)
	assert.False(t, decompiled.Sized)

	unsized.Program = keys[5]
	_, err = DecompileVerifyCollection(solana.NewTransaction(keys[1], unsized).Message, 0)
	assert.Equal(t, solana.ErrIncorrectProgram, err)
}

func generateKeys(t *testing.T, amount int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, amount)

	for i := 0; i < amount; i++ {
		pub, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = pub
	}

	return keys
}
