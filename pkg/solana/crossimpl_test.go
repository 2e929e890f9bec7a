package solana

import (
	"crypto/ed25519"
	"testing"

	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Transactions produced here must be readable by an independent
// implementation of the wire format.
func TestCrossImpl_DecodeWithSolanaGo(t *testing.T) {
	keys := generateSigners(t, 5)
	payer, mint := keys[0], keys[1]
	program, dest, readonly := keys[2].PublicKey(), keys[3].PublicKey(), keys[4].PublicKey()

	tx := NewTransaction(
		payer.PublicKey(),
		NewInstruction(program, []byte{0, 1},
			NewAccountMeta(payer.PublicKey(), true),
			NewAccountMeta(mint.PublicKey(), true),
		),
		NewInstruction(program, []byte{7, 1, 0, 0, 0, 0, 0, 0, 0},
			NewAccountMeta(mint.PublicKey(), false),
			NewAccountMeta(dest, false),
			NewReadonlyAccountMeta(readonly, false),
		),
	)
	tx.SetBlockhash(Blockhash{9, 9, 9})
	require.NoError(t, tx.Sign(payer, mint))

	decoded, err := solanago.TransactionFromDecoder(bin.NewBinDecoder(tx.Marshal()))
	require.NoError(t, err)
	require.NoError(t, decoded.VerifySignatures())

	assert.False(t, decoded.Message.IsVersioned())
	assert.EqualValues(t, tx.Message.Header.NumSignatures, decoded.Message.Header.NumRequiredSignatures)
	assert.EqualValues(t, tx.Message.Header.NumReadonlySigned, decoded.Message.Header.NumReadonlySignedAccounts)
	assert.EqualValues(t, tx.Message.Header.NumReadOnly, decoded.Message.Header.NumReadonlyUnsignedAccounts)
	assert.EqualValues(t, tx.Message.RecentBlockhash[:], decoded.Message.RecentBlockhash[:])

	require.Len(t, decoded.Message.AccountKeys, len(tx.Message.Accounts))
	for i, key := range tx.Message.Accounts {
		assert.EqualValues(t, key, decoded.Message.AccountKeys[i][:])
	}

	require.Len(t, decoded.Message.Instructions, 2)
	for i, c := range tx.Message.Instructions {
		assert.EqualValues(t, c.ProgramIndex, decoded.Message.Instructions[i].ProgramIDIndex)
		assert.EqualValues(t, c.Data, []byte(decoded.Message.Instructions[i].Data))
		require.Len(t, decoded.Message.Instructions[i].Accounts, len(c.Accounts))
		for j, index := range c.Accounts {
			assert.EqualValues(t, index, decoded.Message.Instructions[i].Accounts[j])
		}
	}
}

// Transactions produced by an independent implementation must decode, and
// re-encode byte for byte.
func TestCrossImpl_EncodeWithSolanaGo(t *testing.T) {
	payerPub, payerPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	program, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	dest, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	payerKey := solanago.PublicKeyFromBytes(payerPub)
	instruction := solanago.NewInstruction(
		solanago.PublicKeyFromBytes(program),
		solanago.AccountMetaSlice{
			solanago.NewAccountMeta(payerKey, true, true),
			solanago.NewAccountMeta(solanago.PublicKeyFromBytes(dest), true, false),
		},
		[]byte{2, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0},
	)

	goTx, err := solanago.NewTransaction(
		[]solanago.Instruction{instruction},
		solanago.Hash{1, 2, 3},
		solanago.TransactionPayer(payerKey),
	)
	require.NoError(t, err)

	priv := solanago.PrivateKey(payerPriv)
	_, err = goTx.Sign(func(key solanago.PublicKey) *solanago.PrivateKey {
		if key.Equals(payerKey) {
			return &priv
		}
		return nil
	})
	require.NoError(t, err)

	raw, err := goTx.MarshalBinary()
	require.NoError(t, err)

	var tx Transaction
	require.NoError(t, tx.Unmarshal(raw))
	assert.NoError(t, tx.VerifySignatures())
	assert.Equal(t, raw, tx.Marshal())

	instructions, err := tx.Message.DecompileInstructions()
	require.NoError(t, err)
	require.Len(t, instructions, 1)
	assert.EqualValues(t, program, instructions[0].Program)
	assert.Equal(t, []AccountMeta{
		NewAccountMeta(payerPub, true),
		NewAccountMeta(dest, false),
	}, instructions[0].Accounts)
}
