package transaction

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solagent/solagent-go/pkg/solana"
	"github.com/solagent/solagent-go/pkg/solana/system"
	"github.com/solagent/solagent-go/pkg/testutil"
)

// remotePlan builds a transaction the way a remote service would: over its
// own blockhash, with only the signatures it can produce.
func remotePlan(t *testing.T, feePayer ed25519.PublicKey, oneShot ed25519.PublicKey, remoteSigner *solana.Keypair) solana.Transaction {
	program := testutil.GenerateSolanaKeys(t, 1)[0]

	instructions := []solana.Instruction{
		system.Transfer(feePayer, program, 1_000),
	}
	if oneShot != nil {
		instructions = append(instructions, system.CreateAccount(feePayer, oneShot, program, 1_000, 82))
	}

	txn := solana.NewTransaction(feePayer, instructions...)
	txn.SetBlockhash(solana.Blockhash{0xde, 0xad})
	if remoteSigner != nil {
		require.NoError(t, txn.Sign(remoteSigner))
	}
	return txn
}

func TestDecodeEnvelope(t *testing.T) {
	wallet := testutil.GenerateSolanaKeypair(t)
	txn := remotePlan(t, wallet.PublicKey(), nil, wallet)

	decoded, err := DecodeEnvelope(txn.Marshal())
	require.NoError(t, err)
	assert.Equal(t, txn.Marshal(), decoded.Marshal())

	decoded, err = DecodeEnvelope([]byte(txn.ToBase64() + "\n"))
	require.NoError(t, err)
	assert.Equal(t, txn.Marshal(), decoded.Marshal())

	decoded, err = DecodeBase64Envelope(txn.ToBase64())
	require.NoError(t, err)
	assert.Equal(t, txn.Signature(), decoded.Signature())

	for _, invalid := range [][]byte{nil, []byte("not a transaction"), txn.Marshal()[:40]} {
		_, err := DecodeEnvelope(invalid)
		assert.True(t, solana.IsValidation(err))
	}
}

func TestCoSign(t *testing.T) {
	env := setupPipeline(t)
	mint := testutil.GenerateSolanaKeypair(t)

	// The remote service signed nothing; it only knows our addresses.
	remote := remotePlan(t, env.wallet.PublicKey(), mint.PublicKey(), nil)
	remoteBlockhash := remote.Message.RecentBlockhash

	sig, err := env.pipeline.CoSign(context.Background(), []byte(remote.ToBase64()), mint)
	require.NoError(t, err)

	submitted := env.client.Submitted()
	require.Len(t, submitted, 1)
	txn := submitted[0]

	assert.Equal(t, sig, txn.Signature())
	assert.NotEqual(t, remoteBlockhash, txn.Message.RecentBlockhash)
	assert.True(t, env.client.IssuedBlockhash(txn.Message.RecentBlockhash))
	assert.NoError(t, txn.VerifySignatures())

	// Instructions are untouched.
	assert.Equal(t, remote.Message.Instructions, txn.Message.Instructions)
	assert.Equal(t, remote.Message.Accounts, txn.Message.Accounts)
}

func TestCoSign_StaleSignaturesDiscarded(t *testing.T) {
	env := setupPipeline(t)

	// A plan signed over the remote blockhash carries a signature that's no
	// longer valid once the blockhash is refreshed.
	remote := remotePlan(t, env.wallet.PublicKey(), nil, env.wallet)

	txn, err := env.pipeline.PrepareEnvelope(context.Background(), remote.Marshal())
	require.NoError(t, err)
	assert.NotEqual(t, remote.Signature(), txn.Signature())
	assert.NoError(t, txn.VerifySignatures())
}

func TestCoSign_Mismatch(t *testing.T) {
	env := setupPipeline(t)
	mint := testutil.GenerateSolanaKeypair(t)
	other := testutil.GenerateSolanaKeypair(t)

	// The envelope requires a one-shot signer we never generated.
	remote := remotePlan(t, env.wallet.PublicKey(), mint.PublicKey(), nil)
	_, err := env.pipeline.CoSign(context.Background(), remote.Marshal(), other)

	var mismatch *solana.EnvelopeMismatchError
	require.True(t, errors.As(err, &mismatch))
	require.Len(t, mismatch.Missing, 1)
	assert.EqualValues(t, mint.PublicKey(), mismatch.Missing[0])
	require.Len(t, mismatch.Unused, 1)
	assert.EqualValues(t, other.PublicKey(), mismatch.Unused[0])

	// The envelope doesn't reference the one-shot signer it was told about.
	remote = remotePlan(t, env.wallet.PublicKey(), nil, nil)
	_, err = env.pipeline.CoSign(context.Background(), remote.Marshal(), mint)
	require.True(t, errors.As(err, &mismatch))
	assert.Empty(t, mismatch.Missing)

	// A plan paid for by someone else.
	remote = remotePlan(t, other.PublicKey(), nil, nil)
	_, err = env.pipeline.CoSign(context.Background(), remote.Marshal())
	assert.True(t, solana.IsEnvelopeMismatch(err))

	assert.Empty(t, env.client.Submitted())
}

func TestCoSign_BlockhashFailure(t *testing.T) {
	env := setupPipeline(t)
	env.client.InduceError("getLatestBlockhash", errors.New("connection refused"))

	remote := remotePlan(t, env.wallet.PublicKey(), nil, nil)
	_, err := env.pipeline.CoSign(context.Background(), remote.Marshal())
	assert.True(t, solana.IsConnectivity(err))
	assert.Empty(t, env.client.Submitted())
}
