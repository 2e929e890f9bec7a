package token

import (
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solagent/solagent-go/pkg/solana"
	"github.com/solagent/solagent-go/pkg/solana/system"
)

func TestGetAssociatedAccount(t *testing.T) {
	// Values generated from taken from spl code.
	wallet, err := base58.Decode("4uQeVj5tqViQh7yWWGStvkEG1Zmhx6uasJtWCJziofM")
	require.NoError(t, err)
	mint, err := base58.Decode("8opHzTAnfzRpPEx21XtnrVTX28YQuCpAjcn1PczScKh")
	require.NoError(t, err)
	addr, err := base58.Decode("H7MQwEzt97tUJryocn3qaEoy2ymWstwyEk1i9Yv3EmuZ")
	require.NoError(t, err)

	actual, err := GetAssociatedAccount(wallet, mint, ProgramKey)
	require.NoError(t, err)
	assert.EqualValues(t, addr, actual)

	// The token program is part of the seeds.
	other, err := GetAssociatedAccount(wallet, mint, Token2022ProgramKey)
	require.NoError(t, err)
	assert.NotEqual(t, actual, other)
}

func TestCreateAssociatedAccount(t *testing.T) {
	keys := generateKeys(t, 3)

	for _, tc := range []struct {
		idempotent bool
		command    byte
	}{
		{false, commandCreate},
		{true, commandCreateIdempotent},
	} {
		create := CreateAssociatedTokenAccount
		if tc.idempotent {
			create = CreateAssociatedTokenAccountIdempotent
		}

		expectedAddr, err := GetAssociatedAccount(keys[1], keys[2], Token2022ProgramKey)
		require.NoError(t, err)

		instruction, addr, err := create(keys[0], keys[1], keys[2], Token2022ProgramKey)
		require.NoError(t, err)
		assert.Equal(t, expectedAddr, addr)

		assert.Equal(t, []byte{tc.command}, instruction.Data)
		assert.Equal(t, 6, len(instruction.Accounts))
		assert.True(t, instruction.Accounts[0].IsSigner)
		assert.True(t, instruction.Accounts[0].IsWritable)
		assert.False(t, instruction.Accounts[1].IsSigner)
		assert.True(t, instruction.Accounts[1].IsWritable)
		for i := 2; i < len(instruction.Accounts); i++ {
			assert.False(t, instruction.Accounts[i].IsSigner)
			assert.False(t, instruction.Accounts[i].IsWritable)
		}

		assert.EqualValues(t, system.ProgramKey, instruction.Accounts[4].PublicKey)
		assert.EqualValues(t, Token2022ProgramKey, instruction.Accounts[5].PublicKey)

		decompiled, err := DecompileCreateAssociatedAccount(solana.NewTransaction(keys[0], instruction).Message, 0)
		require.NoError(t, err)
		assert.Equal(t, keys[0], decompiled.Subsidizer)
		assert.Equal(t, addr, decompiled.Address)
		assert.Equal(t, keys[1], decompiled.Owner)
		assert.Equal(t, keys[2], decompiled.Mint)
		assert.EqualValues(t, Token2022ProgramKey, decompiled.Program)
		assert.Equal(t, tc.idempotent, decompiled.Idempotent)
	}

	_, _, err := CreateAssociatedTokenAccount(keys[0], keys[1], keys[2], keys[0])
	assert.True(t, solana.IsValidation(err))
}
