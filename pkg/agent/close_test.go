package agent

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solagent/solagent-go/pkg/agent/transaction"
	"github.com/solagent/solagent-go/pkg/solana"
	"github.com/solagent/solagent-go/pkg/solana/computebudget"
	"github.com/solagent/solagent-go/pkg/solana/token"
	"github.com/solagent/solagent-go/pkg/testutil"
	"github.com/solagent/solagent-go/pkg/usdc"
)

func (e *testEnv) addTokenAccount(t *testing.T, program, mint ed25519.PublicKey, amount uint64) ed25519.PublicKey {
	account := testutil.GenerateSolanaKeys(t, 1)[0]
	state := token.Account{
		Mint:   mint,
		Owner:  e.wallet.PublicKey(),
		Amount: amount,
		State:  token.AccountStateInitialized,
	}
	e.client.AddTokenAccount(e.wallet.PublicKey(), account, solana.AccountInfo{
		Data:  state.Marshal(),
		Owner: program,
	})
	return account
}

func (e *testEnv) addEmptyTokenAccounts(t *testing.T, program ed25519.PublicKey, n int) []ed25519.PublicKey {
	accounts := make([]ed25519.PublicKey, n)
	for i := range accounts {
		accounts[i] = e.addTokenAccount(t, program, testutil.GenerateSolanaKeys(t, 1)[0], 0)
	}
	return accounts
}

func TestCloseEmptyTokenAccounts(t *testing.T) {
	env := setup(t)
	owner := env.wallet.PublicKey()

	var closable []ed25519.PublicKey
	closable = append(closable, env.addEmptyTokenAccounts(t, token.ProgramKey, 50)...)
	closable = append(closable, env.addEmptyTokenAccounts(t, token.Token2022ProgramKey, 35)...)

	usdcAccount := env.addTokenAccount(t, token.ProgramKey, usdc.TokenMint, 0)
	env.addTokenAccount(t, token.ProgramKey, testutil.GenerateSolanaKeys(t, 1)[0], 10)

	res, err := env.agent.CloseEmptyTokenAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 85, res.Closed)
	assert.Empty(t, res.Unclosed)
	require.Len(t, res.Excluded, 1)
	assert.EqualValues(t, usdcAccount, res.Excluded[0])

	// The configured 40 don't fit in a packet, so batches are smaller. A
	// batch spanning both token programs has room for one fewer close.
	submitted := env.client.Submitted()
	require.Len(t, submitted, 4)
	require.Len(t, res.Signatures, 4)

	var closed []ed25519.PublicKey
	for i, expected := range []int{27, 26, 27, 5} {
		txn := submitted[i]
		assert.Equal(t, res.Signatures[i], txn.Signature())
		require.Len(t, txn.Message.Instructions, expected)

		for j := range txn.Message.Instructions {
			decompiled, err := token.DecompileCloseAccount(txn.Message, j)
			require.NoError(t, err)
			assert.EqualValues(t, owner, decompiled.Destination)
			assert.EqualValues(t, owner, decompiled.Owner)
			closed = append(closed, decompiled.Account)
		}
	}
	assert.Equal(t, toBytes(closable), toBytes(closed))
}

func TestCloseEmptyTokenAccounts_PriorityFee(t *testing.T) {
	env := setup(t)
	owner := env.wallet.PublicKey()

	a, err := New(
		env.client,
		env.wallet,
		WithConfig(WithOverrides(Overrides{})),
		WithPipelineConfig(transaction.WithOverrides(transaction.Overrides{
			ConfirmationTimeout: time.Second,
			PriorityFee:         1000,
		})),
	)
	require.NoError(t, err)

	var closable []ed25519.PublicKey
	closable = append(closable, env.addEmptyTokenAccounts(t, token.ProgramKey, 20)...)
	closable = append(closable, env.addEmptyTokenAccounts(t, token.Token2022ProgramKey, 10)...)

	res, err := a.CloseEmptyTokenAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30, res.Closed)
	assert.Empty(t, res.Unclosed)

	// The compute budget instruction takes the room of one close.
	submitted := env.client.Submitted()
	require.Len(t, submitted, 2)

	var closed []ed25519.PublicKey
	for i, expected := range []int{25, 5} {
		txn := submitted[i]
		assert.LessOrEqual(t, len(txn.Marshal()), solana.MaxTransactionSize)
		require.Len(t, txn.Message.Instructions, expected+1)

		budget := txn.Message.Instructions[0]
		assert.EqualValues(t, computebudget.ProgramKey, txn.Message.Accounts[budget.ProgramIndex])
		price, err := computebudget.ParseSetComputeUnitPriceIxnData(budget.Data)
		require.NoError(t, err)
		assert.EqualValues(t, 1000, price)

		for j := 1; j < len(txn.Message.Instructions); j++ {
			decompiled, err := token.DecompileCloseAccount(txn.Message, j)
			require.NoError(t, err)
			assert.EqualValues(t, owner, decompiled.Owner)
			closed = append(closed, decompiled.Account)
		}
	}
	assert.Equal(t, toBytes(closable), toBytes(closed))
}

func TestCloseEmptyTokenAccounts_BatchRejected(t *testing.T) {
	env := setupWithOverrides(t, Overrides{MaxCloseInstructionsPerTx: 20})

	var closable []ed25519.PublicKey
	closable = append(closable, env.addEmptyTokenAccounts(t, token.ProgramKey, 30)...)
	closable = append(closable, env.addEmptyTokenAccounts(t, token.Token2022ProgramKey, 15)...)

	env.client.RejectSubmissionAt(1, "Transaction simulation failed: Error processing Instruction 4: custom program error: 0xb")

	res, err := env.agent.CloseEmptyTokenAccounts(context.Background())
	require.True(t, solana.IsRejection(err))

	// The first batch landed. The rest are reported, not dropped.
	require.NotNil(t, res)
	assert.Equal(t, 20, res.Closed)
	assert.Len(t, res.Signatures, 1)
	assert.Equal(t, toBytes(closable[20:]), toBytes(res.Unclosed))

	// The third batch was never attempted.
	assert.Len(t, env.client.Submitted(), 1)
}

func TestCloseEmptyTokenAccounts_Nothing(t *testing.T) {
	env := setup(t)
	env.addTokenAccount(t, token.ProgramKey, testutil.GenerateSolanaKeys(t, 1)[0], 1)

	res, err := env.agent.CloseEmptyTokenAccounts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Closed)
	assert.Empty(t, res.Signatures)
	assert.Empty(t, env.client.Submitted())
}
